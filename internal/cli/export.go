package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peter-mxtoolbox/treeroutes/internal/export"
	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the map, GeoJSON and printable route sheets",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	table, err := routes.Load(assignmentsPath())
	if err != nil {
		return err
	}

	if err = writeOutputs(table); err != nil {
		return err
	}

	fmt.Printf("Wrote %s, %s and %d route sheets in %s\n",
		mapPath(), geojsonPath(), len(table.RouteIDs()), sheetsDir())
	return nil
}

// writeOutputs renders every downstream artifact from the table. Also used
// as the regen hook of the adjust session.
func writeOutputs(table *routes.Table) error {
	if err := export.WriteGeoJSON(table, geojsonPath()); err != nil {
		return err
	}
	if err := export.WriteMap(table, mapPath(), cfg.Capacity); err != nil {
		return err
	}
	return export.WriteRouteSheets(table, sheetsDir(), cfg.Capacity)
}
