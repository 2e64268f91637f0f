package ui

import (
	"strings"
	"testing"

	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/state"
)

func TestRenderStarInfo(t *testing.T) {
	mag := 1.42
	star := &sky.Star{ID: "gaia-1", RA: 101.2871, Dec: -16.7161, Magnitude: &mag}

	out := RenderStarInfo(star)
	for _, want := range []string{"gaia-1", "101.287°", "-16.716°", "1.42"} {
		if !strings.Contains(out, want) {
			t.Errorf("star info missing %q: %s", want, out)
		}
	}
	if n := strings.Count(out, "N/A"); n != 2 {
		t.Errorf("N/A count = %d, want 2 (intensity, parallax)", n)
	}

	if out := RenderStarInfo(nil); !strings.Contains(out, "Click a star") {
		t.Errorf("empty star info = %q", out)
	}
}

func TestRenderActiveConstellation(t *testing.T) {
	out := RenderActiveConstellation(&sky.Constellation{Name: "Kite", Stars: []string{"a", "b", "c"}})
	if !strings.Contains(out, "Kite") || !strings.Contains(out, "by unknown · 3 stars") {
		t.Errorf("unexpected panel: %s", out)
	}
	if out := RenderActiveConstellation(nil); !strings.Contains(out, "Hover") {
		t.Errorf("empty panel = %q", out)
	}
}

func TestRenderAuthoring(t *testing.T) {
	tests := []struct {
		name string
		snap state.Snapshot
		want string
	}{
		{"empty", state.Snapshot{}, "Selected stars: 0"},
		{"ready", state.Snapshot{Selected: []string{"a", "b"}, CanSave: true}, "[s] save"},
		{"saving", state.Snapshot{Selected: []string{"a", "b"}, Saving: true}, "saving..."},
		{"blocked", state.Snapshot{Selected: []string{"a"}}, "2+ stars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderAuthoring(tt.snap, "Author: ", "Name: ")
			if !strings.Contains(out, tt.want) {
				t.Errorf("got %q, want substring %q", out, tt.want)
			}
		})
	}
}

func TestRenderPanels_FixedHeight(t *testing.T) {
	out := renderPanels(state.Snapshot{}, "", "")
	if got := strings.Count(out, "\n") + 1; got != panelHeight {
		t.Errorf("panel lines = %d, want %d", got, panelHeight)
	}
}

func TestFormatDistance(t *testing.T) {
	d := 190.6
	if got := formatDistance(&d); got != "190.6 pc" {
		t.Errorf("formatDistance = %q", got)
	}
	if got := formatDistance(nil); got != "N/A" {
		t.Errorf("formatDistance(nil) = %q", got)
	}
}
