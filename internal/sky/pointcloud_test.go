package sky

import (
	"math"
	"testing"

	"github.com/litescript/exosky/internal/astro"
)

func testStars() []Star {
	return []Star{
		{ID: "A", X: 1, Y: 0, Z: 0},
		{ID: "B", X: 0, Y: 1, Z: 0},
		{ID: "C", X: 0, Y: 0, Z: 1},
		{ID: "D", X: -1, Y: 0, Z: 0},
	}
}

func TestBuildPointCloud_IndexAligned(t *testing.T) {
	stars := testStars()
	cloud := BuildPointCloud(stars, NewSelection(), astro.SceneRadius)

	if cloud.Len() != len(stars) {
		t.Fatalf("Len() = %d, want %d", cloud.Len(), len(stars))
	}
	if len(cloud.Positions) != 3*len(stars) || len(cloud.Colors) != 3*len(stars) {
		t.Fatalf("buffer sizes = %d/%d, want %d", len(cloud.Positions), len(cloud.Colors), 3*len(stars))
	}

	for i, s := range stars {
		want := s.Position().Scale(astro.SceneRadius)
		if got := cloud.Vertex(i); got.DistanceTo(want) > 1e-3 {
			t.Errorf("vertex %d = %v, want %v", i, got, want)
		}
		got, ok := cloud.StarAt(i)
		if !ok || got.ID != s.ID {
			t.Errorf("StarAt(%d) = %q, want %q", i, got.ID, s.ID)
		}
	}
}

func TestBuildPointCloud_SelectionColors(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("B")
	cloud := BuildPointCloud(testStars(), sel, 1)

	for i := 0; i < cloud.Len(); i++ {
		star, _ := cloud.StarAt(i)
		want := ColorUnselected
		if star.ID == "B" {
			want = ColorSelected
		}
		if got := cloud.Color(i); got != want {
			t.Errorf("color of %s = %v, want %v", star.ID, got, want)
		}
	}

	if ColorSelected == ColorUnselected {
		t.Error("selected and unselected colors must differ")
	}
}

func TestBuildPointCloud_Empty(t *testing.T) {
	cloud := BuildPointCloud(nil, nil, astro.SceneRadius)
	if cloud.Len() != 0 || len(cloud.Positions) != 0 || len(cloud.Colors) != 0 {
		t.Errorf("empty input produced %d vertices", cloud.Len())
	}
	if _, ok := cloud.StarAt(0); ok {
		t.Error("StarAt(0) on empty cloud should fail")
	}
}

func TestBuildPointCloud_NonFinitePositionKeepsSlot(t *testing.T) {
	stars := []Star{
		{ID: "ok", X: 1},
		{ID: "bad", X: math.NaN()},
		{ID: "ok2", Y: 1},
	}
	cloud := BuildPointCloud(stars, nil, 1)

	if cloud.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cloud.Len())
	}
	if cloud.Drawable(1) {
		t.Error("NaN vertex should not be drawable")
	}
	if !cloud.Drawable(0) || !cloud.Drawable(2) {
		t.Error("finite vertices should be drawable")
	}
	if s, _ := cloud.StarAt(2); s.ID != "ok2" {
		t.Errorf("StarAt(2) = %q, want ok2", s.ID)
	}
}

func TestAssignIDs(t *testing.T) {
	stars := AssignIDs([]Star{{}, {ID: "Vega"}, {}})
	want := []string{"star-0", "Vega", "star-2"}
	for i, s := range stars {
		if s.ID != want[i] {
			t.Errorf("stars[%d].ID = %q, want %q", i, s.ID, want[i])
		}
	}
}

func TestPositionMap_SkipsNonFinite(t *testing.T) {
	m := PositionMap([]Star{{ID: "A", X: 1}, {ID: "B", Y: math.Inf(1)}}, 10)
	if len(m) != 1 {
		t.Fatalf("len = %d, want 1", len(m))
	}
	if m["A"] != (astro.Vec3{X: 10}) {
		t.Errorf("A = %v, want {10 0 0}", m["A"])
	}
}
