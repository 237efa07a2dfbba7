package cluster

import (
	"math"
	"math/rand"
)

// point is a 2-D coordinate used by the partitioner.
type point struct {
	x, y float64
}

// kmeans partitions points into k groups using Lloyd's algorithm with
// k-means++ seeding. All randomness flows through rng, so a fixed seed
// yields identical partitions for identical input. Returns one label per
// point.
func kmeans(points []point, k int, rng *rand.Rand, maxIter, restarts int) []int {
	if k >= len(points) {
		labels := make([]int, len(points))
		for i := range labels {
			labels[i] = i
		}
		return labels
	}

	bestLabels := make([]int, len(points))
	bestInertia := math.Inf(1)

	for r := 0; r < restarts; r++ {
		labels, inertia := lloyd(points, k, rng, maxIter)
		if inertia < bestInertia {
			bestInertia = inertia
			copy(bestLabels, labels)
		}
	}

	return bestLabels
}

// lloyd runs one k-means pass and returns the labels plus the final inertia
// (sum of squared distances to assigned centroids).
func lloyd(points []point, k int, rng *rand.Rand, maxIter int) ([]int, float64) {
	centroids := seedCentroids(points, k, rng)
	labels := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		// Recompute centroids. An emptied cluster is re-seeded with the
		// point farthest from its centroid so k never silently shrinks.
		counts := make([]int, k)
		sums := make([]point, k)
		for i, p := range points {
			c := labels[i]
			counts[c]++
			sums[c].x += p.x
			sums[c].y += p.y
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				centroids[c] = points[farthest(points, labels, centroids)]
				changed = true
				continue
			}
			centroids[c] = point{x: sums[c].x / float64(counts[c]), y: sums[c].y / float64(counts[c])}
		}

		if !changed {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return labels, inertia
}

// seedCentroids picks initial centroids with the k-means++ strategy: each
// subsequent centroid is chosen with probability proportional to its squared
// distance from the nearest centroid picked so far.
func seedCentroids(points []point, k int, rng *rand.Rand) []point {
	centroids := make([]point, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := sqDist(p, centroids[0])
			for _, c := range centroids[1:] {
				if dc := sqDist(p, c); dc < d {
					d = dc
				}
			}
			dists[i] = d
			total += d
		}

		if total == 0 {
			// All remaining points coincide with a centroid.
			centroids = append(centroids, points[rng.Intn(len(points))])
			continue
		}

		target := rng.Float64() * total
		acc := 0.0
		chosen := len(points) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}

	return centroids
}

func nearest(p point, centroids []point) int {
	best, bestDist := 0, sqDist(p, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := sqDist(p, centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthest(points []point, labels []int, centroids []point) int {
	best, bestDist := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func sqDist(a, b point) float64 {
	dx := a.x - b.x
	dy := a.y - b.y
	return dx*dx + dy*dy
}
