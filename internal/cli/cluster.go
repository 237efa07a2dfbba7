package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peter-mxtoolbox/treeroutes/internal/cluster"
)

var clusterCapacity int

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group geocoded addresses into capacity-balanced routes",
	Long: `Cluster partitions the geocoded addresses into routes. It starts
from ceil(total trees / capacity) routes and adds one at a time until every
route fits the trailer, up to the retry budget. If the budget runs out the
best attempt is kept and the offending routes are flagged for the adjust
step. Identical input always produces identical routes.`,
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().IntVar(&clusterCapacity, "capacity", 0, "trees per route (overrides TREEROUTES_CAPACITY)")
	rootCmd.AddCommand(clusterCmd)
}

func runCluster(_ *cobra.Command, _ []string) error {
	geocoded, err := loadGeocoded(geocodedPath())
	if err != nil {
		return err
	}

	opts := cluster.DefaultOptions()
	opts.Capacity = cfg.Capacity
	opts.Tolerance = cfg.Tolerance
	opts.MaxExtraRoutes = cfg.MaxExtraRoutes
	opts.Seed = cfg.Seed
	if clusterCapacity > 0 {
		opts.Capacity = clusterCapacity
	}

	result := cluster.Assign(geocoded.Resolved, opts, logger)

	if err = result.Table.Save(assignmentsPath()); err != nil {
		return err
	}

	fmt.Printf("Assigned %d addresses to %d routes in %d attempt(s) -> %s\n",
		result.Table.Len(), result.RouteCount, result.Attempts, assignmentsPath())

	for _, routeID := range result.Table.RouteIDs() {
		fmt.Printf("  Route %s: %3d pickups, %3d trees\n",
			routeID, len(result.Table.Route(routeID)), result.Table.Trees(routeID))
	}
	if len(result.Violations) > 0 {
		fmt.Printf("%d route(s) over the %d tree capacity:\n", len(result.Violations), opts.Capacity)
		for _, v := range result.Violations {
			fmt.Printf("  Route %s: %d trees (over by %d)\n", v.RouteID, v.Trees, v.Over)
		}
		fmt.Println("Use the adjust command to rebalance them.")
	}
	if len(geocoded.Failed) > 0 {
		fmt.Printf("note: %d addresses are unresolved and not on any route\n", len(geocoded.Failed))
	}
	return nil
}
