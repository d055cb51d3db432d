// pkg/cluster/cluster.go
package cluster

import (
	"math"

	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

// DBSCAN parameters tuned for raw (unscaled) feature-vector distances.
const (
	Eps       = 2.5
	MinPoints = 2
)

// Noise is the cluster id for points with no sufficiently dense neighborhood.
const Noise = -1

const unvisited = -2

// GroupSessions clusters all persisted feature vectors and returns a mapping
// from session id to cluster id. Fewer than two sessions with features yields
// an empty map; clustering is undefined below two points. The result is an
// analyst-facing report, never fed back into live deception policy.
func GroupSessions(rows []storage.FeatureRow) map[string]int {
	if len(rows) < 2 {
		return map[string]int{}
	}

	ids := make([]string, len(rows))
	points := make([][]float64, len(rows))
	for i, row := range rows {
		ids[i] = row.SessionID
		points[i] = profile.VectorFromMap(row.Features)
	}

	labels := DBSCAN(points, Eps, MinPoints)

	out := make(map[string]int, len(ids))
	for i, id := range ids {
		out[id] = labels[i]
	}
	return out
}

// DBSCAN runs density-based clustering over points with Euclidean distance.
// A point is a core point when its eps-neighborhood (itself included) holds
// at least minPoints members. Returned labels start at 0; Noise marks points
// outside every dense region.
func DBSCAN(points [][]float64, eps float64, minPoints int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPoints {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		expand(points, labels, neighbors, cluster, eps, minPoints)
		cluster++
	}

	return labels
}

// expand grows a cluster outward from a core point's neighborhood.
func expand(points [][]float64, labels []int, seeds []int, cluster int, eps float64, minPoints int) {
	for qi := 0; qi < len(seeds); qi++ {
		j := seeds[qi]

		if labels[j] == Noise {
			// Border point previously dismissed as noise.
			labels[j] = cluster
			continue
		}
		if labels[j] != unvisited {
			continue
		}

		labels[j] = cluster
		neighbors := regionQuery(points, j, eps)
		if len(neighbors) >= minPoints {
			seeds = append(seeds, neighbors...)
		}
	}
}

// regionQuery returns the indexes of all points within eps of points[i],
// including i itself.
func regionQuery(points [][]float64, i int, eps float64) []int {
	var out []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}
