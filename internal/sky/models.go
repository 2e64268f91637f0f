// Package sky builds the renderable star scene seen from an exoplanet: the
// point cloud, constellation lines, picking and the constellation authoring
// state.
package sky

import (
	"fmt"
	"strings"

	"github.com/litescript/exosky/internal/astro"
)

// Exoplanet is the observer's vantage point.
type Exoplanet struct {
	Name     string   `json:"pl_name"`
	HostName string   `json:"hostname,omitempty"`
	RA       float64  `json:"ra"`
	Dec      float64  `json:"dec"`
	Distance *float64 `json:"sy_dist,omitempty"` // parsecs
}

// Star is a single light source on the celestial sphere. X/Y/Z is the
// normalized direction as seen from the exoplanet.
type Star struct {
	ID        string   `json:"id"`
	RA        float64  `json:"ra"`
	Dec       float64  `json:"dec"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Z         float64  `json:"z"`
	Magnitude *float64 `json:"phot_g_mean_mag,omitempty"`
	Parallax  *float64 `json:"parallax,omitempty"`
	Intensity *float64 `json:"intensity,omitempty"`
}

// Position returns the star's unit-sphere position.
func (s Star) Position() astro.Vec3 {
	return astro.Vec3{X: s.X, Y: s.Y, Z: s.Z}
}

// AssignIDs fills in missing star ids with "star-<index>". It is applied once
// when a star list is ingested so ids stay stable across re-renders.
func AssignIDs(stars []Star) []Star {
	for i := range stars {
		if stars[i].ID == "" {
			stars[i].ID = fmt.Sprintf("star-%d", i)
		}
	}
	return stars
}

// PositionMap maps star ids to scene positions scaled by radius. Stars with
// non-finite positions are left out.
func PositionMap(stars []Star, radius float64) map[string]astro.Vec3 {
	m := make(map[string]astro.Vec3, len(stars))
	for _, s := range stars {
		p := s.Position()
		if !p.Finite() {
			continue
		}
		m[s.ID] = p.Scale(radius)
	}
	return m
}

// ConstellationKey is the stable identity of a constellation.
type ConstellationKey string

// Constellation is a named, authored sequence of star ids for one exoplanet.
// Stars may reference ids that are not part of the loaded star set.
type Constellation struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Author string   `json:"author"`
	Planet string   `json:"planet"`
	Stars  []string `json:"stars"`
}

// Key returns the server id when present, otherwise a composite of planet,
// author, name and the stored star sequence.
func (c Constellation) Key() ConstellationKey {
	if c.ID != "" {
		return ConstellationKey("id:" + c.ID)
	}
	parts := append([]string{c.Planet, c.Author, c.Name}, c.Stars...)
	return ConstellationKey(strings.Join(parts, "\x1f"))
}
