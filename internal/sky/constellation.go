package sky

import (
	"math"

	"github.com/litescript/exosky/internal/astro"
)

// Line opacities for the hover state.
const (
	OpacityActive   = 1.0
	OpacityInactive = 0.3
)

// Line colors for the hover state.
var (
	ColorLineActive   = RGB{1, 1, 0}
	ColorLineInactive = RGB{1, 1, 1}
)

// ConstellationLine is the drawable poly-line of one constellation.
type ConstellationLine struct {
	Key           ConstellationKey
	Constellation Constellation
	Points        []astro.Vec3 // resolved positions in stored order
	Active        bool
	Opacity       float64
	Color         RGB
}

// Segments returns the number of line segments in the poly-line.
func (l ConstellationLine) Segments() int {
	if len(l.Points) < 2 {
		return 0
	}
	return len(l.Points) - 1
}

// BuildConstellationLines resolves each constellation's star ids against
// positions. Unknown ids are dropped; constellations left with fewer than
// two positions produce no line. The constellation whose key equals active
// is highlighted.
func BuildConstellationLines(constellations []Constellation, positions map[string]astro.Vec3, active ConstellationKey) []ConstellationLine {
	lines := make([]ConstellationLine, 0, len(constellations))

	for _, c := range constellations {
		points := make([]astro.Vec3, 0, len(c.Stars))
		for _, id := range c.Stars {
			p, ok := positions[id]
			if !ok || !p.Finite() {
				continue
			}
			points = append(points, p)
		}
		if len(points) < 2 {
			continue
		}

		key := c.Key()
		line := ConstellationLine{
			Key:           key,
			Constellation: c,
			Points:        points,
			Opacity:       OpacityInactive,
			Color:         ColorLineInactive,
		}
		if active != "" && key == active {
			line.Active = true
			line.Opacity = OpacityActive
			line.Color = ColorLineActive
		}
		lines = append(lines, line)
	}

	return lines
}

// HoverLine returns the key of the line nearest along the ray among those
// passing within threshold of it.
func HoverLine(ray astro.Ray, lines []ConstellationLine, threshold float64) (ConstellationKey, bool) {
	thresholdSq := threshold * threshold
	best := math.Inf(1)
	var key ConstellationKey
	found := false

	for _, line := range lines {
		for i := 0; i+1 < len(line.Points); i++ {
			distSq, t := ray.DistanceSqToSegment(line.Points[i], line.Points[i+1])
			if distSq > thresholdSq || t <= 0 {
				continue
			}
			if t < best {
				best = t
				key = line.Key
				found = true
			}
		}
	}

	return key, found
}
