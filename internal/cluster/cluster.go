// Package cluster builds capacity-balanced pickup routes from geocoded
// addresses. It deliberately avoids full vehicle-routing optimization:
// grouping nearby addresses with K-means and growing the route count until
// every route fits the trailer is fast and good enough in practice.
package cluster

import (
	"log/slog"
	"math/rand"
	"sort"

	"github.com/peter-mxtoolbox/treeroutes/internal/models"
	"github.com/peter-mxtoolbox/treeroutes/internal/routes"
)

// Options configures the clusterer.
type Options struct {
	Capacity       int   // Capacity is the maximum tree count per route.
	Tolerance      int   // Tolerance is the overage allowed before re-partitioning.
	MaxExtraRoutes int   // MaxExtraRoutes bounds the retry loop above the initial estimate.
	Seed           int64 // Seed fixes the random source for reproducible assignments.
	MaxIterations  int   // MaxIterations bounds each K-means pass.
	Restarts       int   // Restarts is the number of K-means initializations per attempt.
}

// DefaultOptions mirror the capacities used in the field: a 16-foot trailer
// holds about 25 trees, a 12-foot about 18, so 22 is the conservative
// planning value.
func DefaultOptions() Options {
	return Options{
		Capacity:       22,
		Tolerance:      0,
		MaxExtraRoutes: 10,
		Seed:           42,
		MaxIterations:  300,
		Restarts:       10,
	}
}

// Result is the outcome of one clustering run.
type Result struct {
	Table      *routes.Table      // Table holds the final assignments.
	RouteCount int                // RouteCount is the number of routes produced.
	Attempts   int                // Attempts is how many partitionings were evaluated.
	Violations []routes.Violation // Violations flags routes still over capacity.
	MaxOverage int                // MaxOverage is the worst per-route overage in the result.
}

// Assign partitions the addresses into routes. The initial route count is
// ceil(total trees / capacity); whenever a route exceeds capacity beyond the
// tolerance the count is incremented and the partitioning re-run, up to
// MaxExtraRoutes attempts. When the budget runs out the best attempt seen
// (lowest maximum overage) is returned with its violations flagged, never an
// error: an operator resolves leftovers in the adjustment step.
func Assign(addrs []models.GeocodedAddress, opts Options, log *slog.Logger) *Result {
	if len(addrs) == 0 {
		return &Result{Table: routes.New()}
	}

	points := make([]point, len(addrs))
	totalTrees := 0
	for i, addr := range addrs {
		points[i] = point{x: addr.Longitude, y: addr.Latitude}
		totalTrees += addr.Trees
	}

	initial := (totalTrees + opts.Capacity - 1) / opts.Capacity
	if initial < 1 {
		initial = 1
	}

	var best *Result
	attempts := 0
	for k := initial; k <= initial+opts.MaxExtraRoutes; k++ {
		// Each attempt reseeds the source, so attempt N is reproducible on
		// its own and identical input always yields identical assignments.
		rng := rand.New(rand.NewSource(opts.Seed))

		effectiveK := k
		if effectiveK > len(addrs) {
			effectiveK = len(addrs)
		}

		labels := kmeans(points, effectiveK, rng, opts.MaxIterations, opts.Restarts)
		attempt := buildResult(addrs, points, labels, effectiveK, opts.Capacity)
		attempts++

		log.Debug("Clustering attempt",
			"routes", effectiveK, "max_overage", attempt.MaxOverage, "violations", len(attempt.Violations))

		if best == nil || attempt.MaxOverage < best.MaxOverage {
			best = attempt
		}

		if attempt.MaxOverage <= opts.Tolerance {
			best = attempt
			break
		}
		if effectiveK == len(addrs) {
			// Every address is already its own route; adding more cannot help.
			break
		}
	}
	best.Attempts = attempts

	log.Info("Clustering finished",
		"addresses", len(addrs),
		"trees", totalTrees,
		"routes", best.RouteCount,
		"attempts", best.Attempts,
		"violations", len(best.Violations),
	)

	return best
}

// buildResult turns raw cluster labels into a named assignment table.
// Route letters are handed out west to east by cluster centroid, so
// re-running on the same input keeps "Route A" on the same side of town.
func buildResult(
	addrs []models.GeocodedAddress,
	points []point,
	labels []int,
	k, capacity int,
) *Result {
	sums := make([]point, k)
	counts := make([]int, k)
	for i, label := range labels {
		sums[label].x += points[i].x
		sums[label].y += points[i].y
		counts[label]++
	}

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := order[a], order[b]
		if counts[ca] == 0 || counts[cb] == 0 {
			return counts[cb] == 0 && counts[ca] != 0
		}
		ma := sums[ca].x / float64(counts[ca])
		mb := sums[cb].x / float64(counts[cb])
		if ma != mb {
			return ma < mb
		}
		return ca < cb
	})

	names := make([]string, k)
	next := 0
	for _, clusterIdx := range order {
		if counts[clusterIdx] == 0 {
			continue
		}
		names[clusterIdx] = RouteLetter(next)
		next++
	}

	table := routes.New()
	for i, addr := range addrs {
		table.Assign(addr, names[labels[i]])
	}

	violations := table.Violations(capacity)
	maxOver := 0
	for _, v := range violations {
		if v.Over > maxOver {
			maxOver = v.Over
		}
	}

	return &Result{
		Table:      table,
		RouteCount: next,
		Violations: violations,
		MaxOverage: maxOver,
	}
}

// RouteLetter converts a route index to its letter name: A..Z, then AA, AB...
func RouteLetter(i int) string {
	const alphabet = 26
	if i < alphabet {
		return string(rune('A' + i))
	}
	return string(rune('A'+i/alphabet-1)) + string(rune('A'+i%alphabet))
}
