package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

// WriteRouteSheets writes one printable text sheet per route into dir,
// plus a summary.txt totaling the run.
func WriteRouteSheets(table *routes.Table, dir string, capacity int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sheet directory: %w", err)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "ROUTE SUMMARY\n%s\n", strings.Repeat("=", 40))

	for _, routeID := range table.RouteIDs() {
		addrs := table.Route(routeID)
		trees := table.Trees(routeID)

		var sheet strings.Builder
		fmt.Fprintf(&sheet, "ROUTE %s\n", routeID)
		fmt.Fprintf(&sheet, "%d pickups, %d trees\n", len(addrs), trees)
		if trees > capacity {
			fmt.Fprintf(&sheet, "*** OVER CAPACITY BY %d TREES ***\n", trees-capacity)
		}
		fmt.Fprintf(&sheet, "%s\n", strings.Repeat("-", 40))

		for _, addr := range addrs {
			fmt.Fprintf(&sheet, "[ ] %-24s %2d tree(s)\n    %s\n", addr.Name, addr.Trees, addr.Address)
			if addr.Notes != "" {
				fmt.Fprintf(&sheet, "    note: %s\n", addr.Notes)
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("route-%s.txt", routeID))
		if err := os.WriteFile(path, []byte(sheet.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write sheet for route %s: %w", routeID, err)
		}

		mark := ""
		if trees > capacity {
			mark = "  OVER"
		}
		fmt.Fprintf(&summary, "Route %s: %3d pickups, %3d trees%s\n", routeID, len(addrs), trees, mark)
	}

	fmt.Fprintf(&summary, "%s\nTotal: %d pickups, %d trees\n",
		strings.Repeat("-", 40), table.Len(), table.TotalTrees())

	path := filepath.Join(dir, "summary.txt")
	if err := os.WriteFile(path, []byte(summary.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
