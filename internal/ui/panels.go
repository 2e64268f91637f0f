package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/state"
)

// Panel colors
const (
	colorPanelLabel  = "135"
	colorPanelDim    = "60"
	colorPanelValue  = "252"
	colorPanelActive = "226"
	colorPanelBlue   = "33"
)

// panelHeight is the number of lines renderPanels always emits.
const panelHeight = 4

var (
	panelLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPanelLabel)).Bold(true)
	panelDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPanelDim))
	panelValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPanelValue))
)

// RenderStarInfo renders the clicked star. Missing values print as N/A.
//
//	Star  gaia-123  RA 101.287°  Dec -16.716°  G 1.42  Intensity 0.930  Parallax 379.210
func RenderStarInfo(star *sky.Star) string {
	label := panelLabelStyle.Render(fmt.Sprintf("%-14s", "Star"))
	if star == nil {
		return label + panelDimStyle.Render("Click a star to inspect it")
	}

	parts := []string{
		panelValueStyle.Render(star.ID),
		"RA " + panelValueStyle.Render(fmt.Sprintf("%.3f°", star.RA)),
		"Dec " + panelValueStyle.Render(fmt.Sprintf("%.3f°", star.Dec)),
		"G " + panelValueStyle.Render(formatOptional(star.Magnitude, "%.2f")),
		"Intensity " + panelValueStyle.Render(formatOptional(star.Intensity, "%.3f")),
		"Parallax " + panelValueStyle.Render(formatOptional(star.Parallax, "%.3f")),
	}
	return label + strings.Join(parts, "  ")
}

// RenderActiveConstellation renders the hovered constellation.
func RenderActiveConstellation(c *sky.Constellation) string {
	label := panelLabelStyle.Render(fmt.Sprintf("%-14s", "Constellation"))
	if c == nil {
		return label + panelDimStyle.Render("Hover a constellation line")
	}

	active := lipgloss.NewStyle().Foreground(lipgloss.Color(colorPanelActive))
	author := c.Author
	if author == "" {
		author = "unknown"
	}
	return label + active.Render(c.Name) +
		panelDimStyle.Render(fmt.Sprintf(" by %s · %d stars", author, len(c.Stars)))
}

// RenderAuthoring renders the selection count, the author and name inputs
// and the save hint.
func RenderAuthoring(snap state.Snapshot, authorInput, nameInput string) string {
	label := panelLabelStyle.Render(fmt.Sprintf("%-14s", "New"))
	blue := lipgloss.NewStyle().Foreground(lipgloss.Color(colorPanelBlue))

	selected := blue.Render(fmt.Sprintf("Selected stars: %d", len(snap.Selected)))

	var save string
	switch {
	case snap.Saving:
		save = panelDimStyle.Render("saving...")
	case snap.CanSave:
		save = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("[s] save")
	default:
		save = panelDimStyle.Render(fmt.Sprintf("[s] save (author, name, %d+ stars)", sky.MinConstellationStars))
	}

	return label + selected + "  " + authorInput + "  " + nameInput + "  " + save
}

// RenderPlanetLine renders the exoplanet summary.
func RenderPlanetLine(snap state.Snapshot) string {
	label := panelLabelStyle.Render(fmt.Sprintf("%-14s", "Exoplanet"))
	if snap.Planet == nil {
		return label + panelDimStyle.Render("none selected")
	}

	p := snap.Planet
	parts := []string{
		panelValueStyle.Render(p.Name),
		"RA " + panelValueStyle.Render(fmt.Sprintf("%.3f°", p.RA)),
		"Dec " + panelValueStyle.Render(fmt.Sprintf("%.3f°", p.Dec)),
		"Dist " + panelValueStyle.Render(formatDistance(p.Distance)),
	}
	if snap.Loading {
		parts = append(parts, panelDimStyle.Render("loading..."))
	} else {
		parts = append(parts, panelDimStyle.Render(fmt.Sprintf("%d stars · %d constellations", snap.StarCount, snap.Constellations)))
	}
	return label + strings.Join(parts, "  ")
}

// renderPanels renders the info panels under the sky canvas.
func renderPanels(snap state.Snapshot, authorInput, nameInput string) string {
	return strings.Join([]string{
		RenderPlanetLine(snap),
		RenderStarInfo(snap.ClickedStar),
		RenderActiveConstellation(snap.Active),
		RenderAuthoring(snap, authorInput, nameInput),
	}, "\n")
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}
