package astro

import (
	"math"
	"sync"
)

// Grid sampling constants, in degrees.
const (
	GridRingStep   = 15.0 // outer ring sampling and band spacing
	GridBandStep   = 5.0  // sampling along each band ring
	GridBandLimit  = 75.0 // bands run from -limit to +limit
	gridFullCircle = 360.0
)

// GridFrame identifies one of the two reference frames drawn over the sky.
type GridFrame int

const (
	// FrameEquatorial rings lie in the X/Z plane, bands are offset along Y.
	FrameEquatorial GridFrame = iota
	// FrameGalactic rings lie in the X/Y plane, bands are offset along Z.
	FrameGalactic
)

func (f GridFrame) String() string {
	switch f {
	case FrameEquatorial:
		return "equatorial"
	case FrameGalactic:
		return "galactic"
	default:
		return "unknown"
	}
}

// GridLines is the ordered point sequence of one reference frame.
type GridLines struct {
	Frame  GridFrame
	Points []Vec3
}

// GridGenerator produces the coordinate grid for a fixed radius. The
// geometry does not depend on star data, so it is built once and shared.
type GridGenerator struct {
	radius float64

	once  sync.Once
	grids []GridLines
}

// NewGridGenerator creates a generator for the given sphere radius.
func NewGridGenerator(radius float64) *GridGenerator {
	return &GridGenerator{radius: radius}
}

// Radius returns the sphere radius the grid is built for.
func (g *GridGenerator) Radius() float64 {
	return g.radius
}

// Geometry returns both frames, or nil when the grid is hidden.
// The returned slices are shared and must not be modified.
func (g *GridGenerator) Geometry(visible bool) []GridLines {
	if !visible {
		return nil
	}
	g.once.Do(func() {
		g.grids = []GridLines{
			{Frame: FrameEquatorial, Points: GenerateGrid(FrameEquatorial, g.radius)},
			{Frame: FrameGalactic, Points: GenerateGrid(FrameGalactic, g.radius)},
		}
	})
	return g.grids
}

// GridPointCount is the number of points GenerateGrid emits per frame.
func GridPointCount() int {
	ring := int(gridFullCircle/GridRingStep) + 1
	bands := int(2*GridBandLimit/GridRingStep) + 1
	perBand := int(gridFullCircle/GridBandStep) + 1
	return ring + bands*perBand
}

// GenerateGrid returns the points of one frame: the outer ring sampled every
// 15°, followed by one full ring per band from -75° to +75°, each sampled
// every 5°. Every ring repeats its first point at 360° so it closes.
func GenerateGrid(frame GridFrame, radius float64) []Vec3 {
	points := make([]Vec3, 0, GridPointCount())

	for i := 0.0; i <= gridFullCircle; i += GridRingStep {
		rad := degToRad(i)
		points = append(points, framePoint(frame, math.Cos(rad)*radius, math.Sin(rad)*radius, 0))
	}

	for i := -GridBandLimit; i <= GridBandLimit; i += GridRingStep {
		rad := degToRad(i)
		offset := math.Sin(rad) * radius
		r := math.Cos(rad) * radius
		for j := 0.0; j <= gridFullCircle; j += GridBandStep {
			radJ := degToRad(j)
			points = append(points, framePoint(frame, math.Cos(radJ)*r, math.Sin(radJ)*r, offset))
		}
	}

	return points
}

// framePoint places ring coordinates (a, b) and the band offset on the axes
// used by the frame.
func framePoint(frame GridFrame, a, b, offset float64) Vec3 {
	if frame == FrameGalactic {
		return Vec3{X: a, Y: b, Z: offset}
	}
	return Vec3{X: a, Y: offset, Z: b}
}
