package sky

import (
	"github.com/litescript/exosky/internal/astro"
)

// RGB is a linear color with components in [0,1].
type RGB struct {
	R, G, B float32
}

// Vertex colors for the two selection states.
var (
	ColorUnselected = RGB{1, 1, 1}
	ColorSelected   = RGB{0, 0, 1}
)

// PointCloud is the render buffer for the loaded stars. Vertex i belongs to
// stars[i]; the cloud keeps the star slice it was built from so a pick
// against this geometry always resolves against the same ordering.
type PointCloud struct {
	Positions []float32 // x,y,z per vertex
	Colors    []float32 // r,g,b per vertex
	Radius    float64

	stars    []Star
	drawable []bool
}

// BuildPointCloud converts stars into index-aligned position and color
// buffers. Vertex i is stars[i] scaled by radius; selected stars use
// ColorSelected. Non-finite positions keep their slot but are not drawable.
func BuildPointCloud(stars []Star, selected *Selection, radius float64) PointCloud {
	n := len(stars)
	cloud := PointCloud{
		Positions: make([]float32, n*3),
		Colors:    make([]float32, n*3),
		Radius:    radius,
		stars:     stars,
		drawable:  make([]bool, n),
	}

	for i, star := range stars {
		i3 := i * 3
		p := star.Position().Scale(radius)
		cloud.drawable[i] = p.Finite()
		cloud.Positions[i3] = float32(p.X)
		cloud.Positions[i3+1] = float32(p.Y)
		cloud.Positions[i3+2] = float32(p.Z)

		c := ColorUnselected
		if selected.Contains(star.ID) {
			c = ColorSelected
		}
		cloud.Colors[i3] = c.R
		cloud.Colors[i3+1] = c.G
		cloud.Colors[i3+2] = c.B
	}

	return cloud
}

// Len returns the number of vertices.
func (c PointCloud) Len() int {
	return len(c.stars)
}

// Vertex returns the scene position of vertex i.
func (c PointCloud) Vertex(i int) astro.Vec3 {
	i3 := i * 3
	return astro.Vec3{
		X: float64(c.Positions[i3]),
		Y: float64(c.Positions[i3+1]),
		Z: float64(c.Positions[i3+2]),
	}
}

// Color returns the color of vertex i.
func (c PointCloud) Color(i int) RGB {
	i3 := i * 3
	return RGB{c.Colors[i3], c.Colors[i3+1], c.Colors[i3+2]}
}

// Drawable reports whether vertex i has a finite position.
func (c PointCloud) Drawable(i int) bool {
	return i >= 0 && i < len(c.drawable) && c.drawable[i]
}

// StarAt maps a vertex index back to its star.
func (c PointCloud) StarAt(i int) (Star, bool) {
	if i < 0 || i >= len(c.stars) {
		return Star{}, false
	}
	return c.stars[i], true
}
