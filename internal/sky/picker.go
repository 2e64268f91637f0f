package sky

import (
	"math"
	"sort"

	"github.com/litescript/exosky/internal/astro"
)

// DefaultPickThreshold is the pick tolerance, in scene units, around each
// star vertex (about 1° at the scene radius).
const DefaultPickThreshold = astro.SceneRadius * 0.0175

// Hit is a single ray/vertex intersection.
type Hit struct {
	Index         int
	Distance      float64 // along the ray
	DistanceToRay float64 // perpendicular
	Point         astro.Vec3
}

// Intersect returns every drawable vertex within threshold of the ray that
// lies in front of its origin, nearest first.
func Intersect(ray astro.Ray, cloud PointCloud, threshold float64) []Hit {
	thresholdSq := threshold * threshold
	var hits []Hit

	for i := 0; i < cloud.Len(); i++ {
		if !cloud.Drawable(i) {
			continue
		}
		v := cloud.Vertex(i)
		if v.Sub(ray.Origin).Dot(ray.Dir) <= 0 {
			continue
		}
		distSq := ray.DistanceSqToPoint(v)
		if distSq > thresholdSq {
			continue
		}
		t := ray.ClosestPoint(v)
		hits = append(hits, Hit{
			Index:         i,
			Distance:      t,
			DistanceToRay: math.Sqrt(distSq),
			Point:         ray.At(t),
		})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		if hits[a].DistanceToRay != hits[b].DistanceToRay {
			return hits[a].DistanceToRay < hits[b].DistanceToRay
		}
		return hits[a].Index < hits[b].Index
	})

	return hits
}

// Pick resolves the nearest hit back to its star through the cloud's own
// star snapshot. It returns false when nothing was hit.
func Pick(ray astro.Ray, cloud PointCloud, threshold float64) (Star, bool) {
	hits := Intersect(ray, cloud, threshold)
	if len(hits) == 0 {
		return Star{}, false
	}
	return cloud.StarAt(hits[0].Index)
}
