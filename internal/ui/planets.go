package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/exosky/internal/sky"
)

// Styles for the exoplanet list
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	currentRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// planetChosenMsg is emitted when the user picks an exoplanet.
type planetChosenMsg struct {
	planet sky.Exoplanet
}

// PlanetListModel is the exoplanet selector.
type PlanetListModel struct {
	width   int
	height  int
	cursor  int
	planets []sky.Exoplanet
	current string
	loading bool
	lastErr error

	filter textinput.Model
}

// NewPlanetListModel creates an empty, loading exoplanet list.
func NewPlanetListModel() PlanetListModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter by name"
	ti.CharLimit = 64
	ti.Width = 32
	return PlanetListModel{loading: true, filter: ti}
}

// Init implements the Bubble Tea model interface.
func (m PlanetListModel) Init() tea.Cmd {
	return nil
}

// SetSize updates the viewport size.
func (m PlanetListModel) SetSize(width, height int) PlanetListModel {
	m.width = width
	m.height = height
	return m
}

// SetPlanets installs the fetched exoplanet list.
func (m PlanetListModel) SetPlanets(planets []sky.Exoplanet, err error) PlanetListModel {
	m.loading = false
	m.lastErr = err
	if err == nil {
		m.planets = planets
	}
	if m.cursor >= len(m.visible()) {
		m.cursor = 0
	}
	return m
}

// SetCurrent marks the exoplanet the sky is shown for.
func (m PlanetListModel) SetCurrent(name string) PlanetListModel {
	m.current = name
	return m
}

// Filtering reports whether the filter input has focus.
func (m PlanetListModel) Filtering() bool {
	return m.filter.Focused()
}

// Planets returns all loaded exoplanets.
func (m PlanetListModel) Planets() []sky.Exoplanet {
	return m.planets
}

func (m PlanetListModel) visible() []sky.Exoplanet {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		return m.planets
	}
	out := make([]sky.Exoplanet, 0, len(m.planets))
	for _, p := range m.planets {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.HostName), q) {
			out = append(out, p)
		}
	}
	return out
}

// Selected returns the exoplanet under the cursor, if any.
func (m PlanetListModel) Selected() (sky.Exoplanet, bool) {
	list := m.visible()
	if m.cursor < 0 || m.cursor >= len(list) {
		return sky.Exoplanet{}, false
	}
	return list[m.cursor], true
}

// Update handles messages.
func (m PlanetListModel) Update(msg tea.Msg) (PlanetListModel, tea.Cmd) {
	if m.filter.Focused() {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter", "esc":
				m.filter.Blur()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.cursor = 0
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		count := len(m.visible())
		page := m.maxRows()

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < count-1 {
				m.cursor++
			}
		case "pgup":
			m.cursor = max(0, m.cursor-page)
		case "pgdown":
			if count > 0 {
				m.cursor = min(count-1, m.cursor+page)
			}
		case "home":
			m.cursor = 0
		case "end":
			if count > 0 {
				m.cursor = count - 1
			}
		case "/":
			cmd := m.filter.Focus()
			return m, cmd
		case "enter":
			if p, ok := m.Selected(); ok {
				return m, func() tea.Msg { return planetChosenMsg{planet: p} }
			}
		}
	}

	return m, nil
}

func (m PlanetListModel) maxRows() int {
	rows := m.height - 6
	if rows < 5 {
		rows = 5
	}
	return rows
}

// View renders the exoplanet list.
func (m PlanetListModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Exoplanets"))
	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString("  " + m.filter.View())
	}
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n\n")
	}

	if m.loading {
		b.WriteString("Loading exoplanets...\n")
		return b.String()
	}

	header := fmt.Sprintf("%-24s %-16s %9s %9s %10s", "Planet", "Host", "RA", "Dec", "Distance")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	list := m.visible()
	if len(list) == 0 {
		b.WriteString("  No exoplanets\n")
		return b.String()
	}

	maxRows := m.maxRows()
	startIdx := 0
	if m.cursor >= maxRows {
		startIdx = m.cursor - maxRows + 1
	}
	endIdx := min(startIdx+maxRows, len(list))

	for i := startIdx; i < endIdx; i++ {
		p := list[i]
		row := fmt.Sprintf("%-24s %-16s %8.3f° %8.3f° %10s",
			truncate(p.Name, 24),
			truncate(p.HostName, 16),
			p.RA,
			p.Dec,
			formatDistance(p.Distance),
		)

		switch {
		case i == m.cursor:
			b.WriteString(selectedRowStyle.Render(row))
		case p.Name == m.current:
			b.WriteString(currentRowStyle.Render(row))
		default:
			b.WriteString(rowStyle.Render(row))
		}
		b.WriteString("\n")
	}

	if len(list) > maxRows {
		b.WriteString(fmt.Sprintf("\n  Showing %d-%d of %d exoplanets", startIdx+1, endIdx, len(list)))
	}

	return b.String()
}

func formatDistance(pc *float64) string {
	if pc == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f pc", *pc)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
