// Package export renders final route assignments: a GeoJSON document for
// tooling, a self-contained HTML map for review, and per-route text sheets
// for the drivers' clipboards.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

// GeoJSON types
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// GeoJSON converts an assignment table to a FeatureCollection with one point
// feature per address. Coordinates follow the GeoJSON [lon, lat] order.
func GeoJSON(table *routes.Table) *FeatureCollection {
	collection := &FeatureCollection{Type: "FeatureCollection"}

	for _, routeID := range table.RouteIDs() {
		for _, addr := range table.Route(routeID) {
			collection.Features = append(collection.Features, Feature{
				Type: "Feature",
				Geometry: Geometry{
					Type:        "Point",
					Coordinates: []float64{addr.Longitude, addr.Latitude},
				},
				Properties: map[string]interface{}{
					"id":      addr.ID,
					"name":    addr.Name,
					"address": addr.Address,
					"trees":   addr.Trees,
					"route":   routeID,
				},
			})
		}
	}

	return collection
}

// WriteGeoJSON writes the table as a GeoJSON file.
func WriteGeoJSON(table *routes.Table, path string) error {
	data, err := json.MarshalIndent(GeoJSON(table), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
