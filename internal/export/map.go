package export

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

// routeColors cycle through route markers on the map. Twelve distinct hues
// is plenty: adjacent routes rarely share a color at neighborhood scale.
var routeColors = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4", "#46f0f0",
	"#f032e6", "#bcf60c", "#008080", "#9a6324", "#800000", "#000075",
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Tree pickup routes</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .legend { background: white; padding: 8px 12px; line-height: 1.5; }
  .legend .over { color: #c00; font-weight: bold; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map');
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var points = [];
{{range .Markers}}
points.push([{{.Lat}}, {{.Lon}}]);
L.circleMarker([{{.Lat}}, {{.Lon}}], {radius: 7, color: {{.Color}}, fillOpacity: 0.8})
  .bindPopup({{.Popup}})
  .addTo(map);
{{end}}
if (points.length > 0) { map.fitBounds(points, {padding: [30, 30]}); } else { map.setView([0, 0], 2); }

var legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  div.innerHTML = {{.Legend}};
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))

type mapMarker struct {
	Lat   float64
	Lon   float64
	Color string
	Popup string
}

type mapData struct {
	Markers []mapMarker
	Legend  template.HTML
}

// WriteMap renders a self-contained Leaflet HTML map of the assignments.
// Over-capacity routes are called out in the legend.
func WriteMap(table *routes.Table, path string, capacity int) error {
	data := mapData{}
	legend := ""

	for i, routeID := range table.RouteIDs() {
		color := routeColors[i%len(routeColors)]
		trees := table.Trees(routeID)

		class := ""
		suffix := ""
		if trees > capacity {
			class = ` class="over"`
			suffix = fmt.Sprintf(" (over by %d)", trees-capacity)
		}
		legend += fmt.Sprintf(
			`<div%s><span style="color:%s">&#9679;</span> Route %s &mdash; %d trees%s</div>`,
			class, color, routeID, trees, suffix)

		for _, addr := range table.Route(routeID) {
			data.Markers = append(data.Markers, mapMarker{
				Lat:   addr.Latitude,
				Lon:   addr.Longitude,
				Color: color,
				Popup: fmt.Sprintf("Route %s: %s, %s (%d trees)", routeID, addr.Name, addr.Address, addr.Trees),
			})
		}
	}
	data.Legend = template.HTML(legend) // built from route IDs and counts only

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create map file: %w", err)
	}
	defer file.Close()

	if err = mapTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("failed to render map: %w", err)
	}
	return nil
}
