// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/exosky/internal/astro"
	"github.com/litescript/exosky/internal/catalog"
	"github.com/litescript/exosky/internal/logging"
	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/state"
	"github.com/litescript/exosky/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewPlanets ViewMode = iota
	ViewSky
)

var errNoPlanet = errors.New("select an exoplanet first")

// Catalog is the backend the UI talks to.
type Catalog interface {
	ListExoplanets(ctx context.Context, limit int) ([]sky.Exoplanet, error)
	FetchStars(ctx context.Context, planet sky.Exoplanet, limitingMag float64) ([]sky.Star, error)
	FetchConstellations(ctx context.Context, planet string) ([]sky.Constellation, error)
	SaveConstellation(ctx context.Context, req sky.SaveRequest) (sky.Constellation, error)
	DownloadStarMap(ctx context.Context, planet, dir string) (string, error)
}

// Options configures the UI.
type Options struct {
	LimitingMagnitude float64
	ExoplanetLimit    int
	DownloadDir       string
	Timeout           time.Duration

	// InitialPlanet is selected once the exoplanet list arrives.
	InitialPlanet string
}

// Msg types for Bubble Tea
type (
	// AnimTickMsg triggers spinner updates.
	AnimTickMsg time.Time

	// PlanetsLoadedMsg carries the exoplanet list.
	PlanetsLoadedMsg struct {
		Planets []sky.Exoplanet
		Err     error
	}

	starsLoadedMsg struct {
		ticket state.Ticket
		stars  []sky.Star
		err    error
	}

	constellationsLoadedMsg struct {
		ticket state.Ticket
		list   []sky.Constellation
		err    error
	}

	saveDoneMsg struct {
		ticket state.Ticket
		record sky.Constellation
		err    error
	}

	exportDoneMsg struct {
		planet string
		path   string
		err    error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	scene   *state.Scene
	catalog Catalog
	opts    Options
	logger  *logging.Logger

	// UI state
	viewMode  ViewMode
	width     int
	height    int
	ready     bool
	statusMsg string
	statusErr error
	animTick  int
	exporting bool

	// Sub-models
	planets PlanetListModel
	skyView SkyViewModel
	author  textinput.Model
	name    textinput.Model

	snapshot state.Snapshot
}

// New creates a new root UI model.
func New(scene *state.Scene, cat Catalog, opts Options, logger *logging.Logger) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = catalog.DefaultTimeout
	}
	if opts.LimitingMagnitude == 0 {
		opts.LimitingMagnitude = catalog.DefaultLimitingMagnitude
	}
	if opts.ExoplanetLimit <= 0 {
		opts.ExoplanetLimit = catalog.DefaultExoplanetLimit
	}
	if logger == nil {
		logger = logging.Discard()
	}

	author := textinput.New()
	author.Prompt = "Author: "
	author.Placeholder = "your name"
	author.CharLimit = 64
	author.Width = 16

	name := textinput.New()
	name.Prompt = "Name: "
	name.Placeholder = "constellation"
	name.CharLimit = 64
	name.Width = 16

	m := Model{
		scene:    scene,
		catalog:  cat,
		opts:     opts,
		logger:   logger.With("ui"),
		viewMode: ViewPlanets,
		planets:  NewPlanetListModel(),
		skyView:  NewSkyViewModel(),
		author:   author,
		name:     name,
	}
	m.author.SetValue(scene.Authoring().Author())
	m.name.SetValue(scene.Authoring().Name())
	m.sync()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		animTickCmd(),
		m.loadPlanets(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.snapshot.SaveFailed {
			m.acknowledgeSaveFailure(msg)
			break
		}
		if m.editing() {
			cmds = append(cmds, m.updateInputs(msg))
			break
		}
		if m.viewMode == ViewPlanets && m.planets.Filtering() {
			cmds = append(cmds, m.updateActiveView(msg))
			break
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "1":
			m.viewMode = ViewPlanets
		case "2":
			m.viewMode = ViewSky
		case "tab":
			m.viewMode = (m.viewMode + 1) % 2
		case "esc":
			m.statusErr = nil
			m.scene.DismissError()
			m.sync()
		default:
			cmds = append(cmds, m.updateActiveView(msg))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case tea.MouseMsg:
		if m.viewMode == ViewSky && !m.snapshot.SaveFailed {
			m.handleMouse(msg)
		}

	case AnimTickMsg:
		cmds = append(cmds, animTickCmd())
		m.animTick++

	case PlanetsLoadedMsg:
		m.planets = m.planets.SetPlanets(msg.Planets, msg.Err)
		if msg.Err != nil {
			m.logger.Error("loading exoplanets: %v", msg.Err)
			m.statusErr = msg.Err
			break
		}
		m.logger.Info("loaded %d exoplanets", len(msg.Planets))
		if p, ok := m.initialPlanet(msg.Planets); ok {
			cmds = append(cmds, m.selectPlanet(p))
		}

	case planetChosenMsg:
		cmds = append(cmds, m.selectPlanet(msg.planet))

	case starsLoadedMsg:
		m.scene.ApplyStars(msg.ticket, msg.stars, msg.err)
		m.sync()

	case constellationsLoadedMsg:
		m.scene.ApplyConstellations(msg.ticket, msg.list, msg.err)
		m.sync()

	case saveDoneMsg:
		if m.scene.FinishSave(msg.ticket, msg.record, msg.err) {
			m.statusMsg = fmt.Sprintf("Saved constellation %q", msg.record.Name)
		}
		m.sync()
		m.author.SetValue(m.snapshot.Author)
		m.name.SetValue(m.snapshot.Name)

	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.logger.Error("exporting star map for %s: %v", msg.planet, msg.err)
			m.statusErr = msg.err
			m.statusMsg = ""
		} else {
			m.logger.Info("wrote star map %s", msg.path)
			m.statusMsg = "Star map saved to " + msg.path
		}

	default:
		if m.editing() {
			var cmd tea.Cmd
			if m.author.Focused() {
				m.author, cmd = m.author.Update(msg)
			} else {
				m.name, cmd = m.name.Update(msg)
			}
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.updateActiveView(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) editing() bool {
	return m.author.Focused() || m.name.Focused()
}

func (m *Model) updateActiveView(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewPlanets:
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "r" && !m.planets.Filtering() {
			return m.loadPlanets()
		}
		m.planets, cmd = m.planets.Update(msg)
	case ViewSky:
		if key, ok := msg.(tea.KeyMsg); ok {
			if handled, cmd := m.handleSkyKey(key); handled {
				return cmd
			}
		}
		var moved bool
		m.skyView, cmd, moved = m.skyView.Update(msg)
		if moved {
			m.updateThresholds()
			if m.scene.Hover(m.skyView.CenterRay()) {
				m.sync()
			}
		}
	}
	return cmd
}

// handleSkyKey handles keys that act on the scene rather than the camera.
func (m *Model) handleSkyKey(key tea.KeyMsg) (bool, tea.Cmd) {
	switch key.String() {
	case " ", "enter":
		if star, ok := m.scene.PickStar(m.skyView.CenterRay()); ok {
			m.logger.Debug("picked %s", star.ID)
		}
		m.sync()
	case "x":
		m.scene.ClearSelection()
		m.sync()
	case "g":
		m.scene.SetShowGrid(!m.scene.ShowGrid())
		m.sync()
	case "s":
		return true, m.beginSave()
	case "e":
		return true, m.exportStarMap()
	case "r":
		return true, m.reloadSky()
	case "a":
		if m.snapshot.Saving {
			return true, nil
		}
		m.name.Blur()
		return true, m.author.Focus()
	case "n":
		if m.snapshot.Saving {
			return true, nil
		}
		m.author.Blur()
		return true, m.name.Focus()
	case "f":
		if dir, ok := m.focusTarget(); ok {
			var cmd tea.Cmd
			m.skyView, cmd = m.skyView.FocusOn(dir)
			return true, cmd
		}
	default:
		return false, nil
	}
	return true, nil
}

// acknowledgeSaveFailure is the only key handler while a failed save is on
// screen; everything but dismissal is dropped.
func (m *Model) acknowledgeSaveFailure(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc", "enter":
		m.scene.DismissError()
		m.statusErr = nil
		m.sync()
	}
}

func (m *Model) updateInputs(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.author.Blur()
		m.name.Blur()
		return nil
	case "enter", "tab":
		if m.author.Focused() {
			m.author.Blur()
			return m.name.Focus()
		}
		m.name.Blur()
		return nil
	}

	var cmd tea.Cmd
	if m.author.Focused() {
		m.author, cmd = m.author.Update(msg)
		m.scene.Authoring().SetAuthor(m.author.Value())
	} else {
		m.name, cmd = m.name.Update(msg)
		m.scene.Authoring().SetName(m.name.Value())
	}
	m.sync()
	return cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	ray, ok := m.skyView.RayAt(msg.X, msg.Y-m.canvasTop())
	if !ok {
		return
	}

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if star, ok := m.scene.PickStar(ray); ok {
			m.logger.Debug("picked %s", star.ID)
		}
	case msg.Action == tea.MouseActionMotion:
		if !m.scene.Hover(ray) {
			return
		}
	default:
		return
	}
	m.sync()
}

// sync pulls fresh geometry and state into the sub-models.
func (m *Model) sync() {
	m.snapshot = m.scene.Snapshot()
	m.skyView = m.skyView.UpdateData(m.scene.Frame(), m.snapshot)

	current := ""
	if m.snapshot.Planet != nil {
		current = m.snapshot.Planet.Name
	}
	m.planets = m.planets.SetCurrent(current)
}

func (m *Model) layout() {
	headerH := lipgloss.Height(m.renderHeader())
	footerH := 2
	contentH := m.height - headerH - footerH
	if contentH < 1 {
		contentH = 1
	}

	m.planets = m.planets.SetSize(m.width, contentH)
	m.skyView = m.skyView.SetSize(m.width, contentH-panelHeight)
	m.updateThresholds()
}

func (m *Model) updateThresholds() {
	th := m.skyView.PickThreshold(m.scene.Radius())
	m.scene.SetThresholds(th, th)
}

// canvasTop is the screen row of the first sky canvas line.
func (m Model) canvasTop() int {
	return lipgloss.Height(m.renderHeader()) + 1
}

func (m Model) initialPlanet(planets []sky.Exoplanet) (sky.Exoplanet, bool) {
	if m.opts.InitialPlanet == "" || m.scene.Planet() != nil {
		return sky.Exoplanet{}, false
	}
	for _, p := range planets {
		if strings.EqualFold(p.Name, m.opts.InitialPlanet) {
			return p, true
		}
	}
	return sky.Exoplanet{}, false
}

func (m *Model) selectPlanet(p sky.Exoplanet) tea.Cmd {
	m.viewMode = ViewSky
	ticket, changed := m.scene.SelectPlanet(p)
	m.sync()
	if !changed {
		return nil
	}
	m.statusMsg = ""
	m.statusErr = nil
	return tea.Batch(
		m.fetchStars(ticket, p),
		m.fetchConstellations(ticket),
	)
}

// reloadSky refetches stars and constellations for the current exoplanet
// when its last load failed or is still pending.
func (m *Model) reloadSky() tea.Cmd {
	p := m.scene.Planet()
	if p == nil {
		m.statusErr = errNoPlanet
		return nil
	}
	m.logger.Info("reloading sky for %s", p.Name)
	return m.selectPlanet(*p)
}

// focusTarget returns the direction of the active constellation, or of the
// clicked star when no constellation is active.
func (m *Model) focusTarget() (astro.Vec3, bool) {
	frame := m.scene.Frame()
	if key := m.scene.ActiveKey(); key != "" {
		for _, line := range frame.Lines {
			if line.Key != key || len(line.Points) == 0 {
				continue
			}
			var sum astro.Vec3
			for _, p := range line.Points {
				sum = sum.Add(p)
			}
			if sum.Norm() > 0 {
				return sum.Normalized(), true
			}
		}
	}
	if star := m.scene.ClickedStar(); star != nil && star.Position().Finite() {
		return star.Position(), true
	}
	return astro.Vec3{}, false
}

func (m *Model) beginSave() tea.Cmd {
	req, ticket, err := m.scene.BeginSave()
	m.sync()
	if err != nil {
		return nil
	}

	cat, timeout := m.catalog, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		record, err := cat.SaveConstellation(ctx, req)
		return saveDoneMsg{ticket: ticket, record: record, err: err}
	}
}

func (m *Model) exportStarMap() tea.Cmd {
	p := m.scene.Planet()
	if p == nil {
		m.statusErr = errNoPlanet
		return nil
	}
	if m.exporting {
		return nil
	}
	m.exporting = true
	m.statusErr = nil
	name, _ := m.scene.ExportFileName("png")
	m.statusMsg = "Downloading " + name + "..."

	cat, timeout, dir, planet := m.catalog, m.opts.Timeout, m.opts.DownloadDir, p.Name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		path, err := cat.DownloadStarMap(ctx, planet, dir)
		return exportDoneMsg{planet: planet, path: path, err: err}
	}
}

func (m Model) loadPlanets() tea.Cmd {
	cat, timeout, limit := m.catalog, m.opts.Timeout, m.opts.ExoplanetLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		planets, err := cat.ListExoplanets(ctx, limit)
		return PlanetsLoadedMsg{Planets: planets, Err: err}
	}
}

func (m Model) fetchStars(t state.Ticket, p sky.Exoplanet) tea.Cmd {
	cat, timeout, mag := m.catalog, m.opts.Timeout, m.opts.LimitingMagnitude
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		stars, err := cat.FetchStars(ctx, p, mag)
		return starsLoadedMsg{ticket: t, stars: stars, err: err}
	}
}

func (m Model) fetchConstellations(t state.Ticket) tea.Cmd {
	cat, timeout := m.catalog, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		list, err := cat.FetchConstellations(ctx, t.Planet)
		return constellationsLoadedMsg{ticket: t, list: list, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewPlanets:
		content = m.planets.View()
	case ViewSky:
		content = m.skyView.View() + "\n" + renderPanels(m.snapshot, m.author.View(), m.name.View())
	}

	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	if m.height < 40 {
		return m.renderCompactTitle() + "\n" + m.renderTabs()
	}
	return m.renderLogo() + "\n" + m.renderTabs()
}

func (m Model) renderCompactTitle() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5CF6")).Render("  EXOSKY")
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	return title + muted.Render(fmt.Sprintf("  night sky from other worlds · v%s", version.Version))
}

func (m Model) renderLogo() string {
	logo := []string{
		`  ███████╗██╗  ██╗ ██████╗ ███████╗██╗  ██╗██╗   ██╗`,
		`  ██╔════╝╚██╗██╔╝██╔═══██╗██╔════╝██║ ██╔╝╚██╗ ██╔╝`,
		`  █████╗   ╚███╔╝ ██║   ██║███████╗█████╔╝  ╚████╔╝ `,
		`  ██╔══╝   ██╔██╗ ██║   ██║╚════██║██╔═██╗   ╚██╔╝  `,
		`  ███████╗██╔╝ ██╗╚██████╔╝███████║██║  ██╗   ██║   `,
		`  ╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝   ╚═╝   `,
	}

	var b strings.Builder

	for row, line := range logo {
		runes := []rune(line)
		lineLen := len(runes)

		for col, r := range runes {
			color := gradientColor(col, row, lineLen, len(logo))
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
			b.WriteString(style.Render(string(r)))
		}
		b.WriteString("\n")
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	b.WriteString(muted.Render("  Night sky from other worlds · Constellation studio"))
	b.WriteString("\n")
	b.WriteString(muted.Render(fmt.Sprintf("  v%s", version.Version)))

	return b.String()
}

// gradientColor returns a hex color for a position in the logo gradient:
// blue -> purple -> magenta -> pink, darker toward the bottom.
func gradientColor(col, row, width, height int) string {
	xRatio := float64(col) / float64(width)
	yRatio := float64(row) / float64(height)

	var r, g, b float64

	if xRatio < 0.33 {
		t := xRatio / 0.33
		r = 59 + t*(139-59)
		g = 130 + t*(92-130)
		b = 246
	} else if xRatio < 0.66 {
		t := (xRatio - 0.33) / 0.33
		r = 139 + t*(217-139)
		g = 92 + t*(70-92)
		b = 246 + t*(239-246)
	} else {
		t := (xRatio - 0.66) / 0.34
		r = 217 + t*(236-217)
		g = 70 + t*(72-70)
		b = 239 + t*(153-239)
	}

	brightness := 1.0 - (yRatio * 0.5)
	clamp8 := func(v float64) int {
		n := int(v * brightness)
		if n > 255 {
			return 255
		}
		if n < 0 {
			return 0
		}
		return n
	}

	return fmt.Sprintf("#%02X%02X%02X", clamp8(r), clamp8(g), clamp8(b))
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Exoplanets", "[2] Sky"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

// currentError returns the error to show in the footer, most recent
// source first.
func (m Model) currentError() error {
	switch {
	case m.statusErr != nil:
		return m.statusErr
	case m.snapshot.SaveError != nil:
		return m.snapshot.SaveError
	default:
		return m.snapshot.LastError
	}
}

func (m Model) busy() string {
	switch {
	case m.planets.loading:
		return "Loading exoplanets..."
	case m.snapshot.Loading:
		return "Loading stars..."
	case m.snapshot.Saving:
		return "Saving constellation..."
	case m.exporting:
		return "Downloading star map..."
	}
	return ""
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := spinnerFrames[m.animTick%len(spinnerFrames)]

	var status string
	if err := m.currentError(); err != nil {
		status = errStyle.Render("ERROR: "+err.Error()) + dimStyle.Render("  (esc to dismiss)")
	} else if msg := m.busy(); msg != "" {
		status = accentStyle.Render(spinner) + " " + m.renderShimmerText(msg)
	} else if m.statusMsg != "" {
		status = dimStyle.Render(m.statusMsg)
	} else {
		status = dimStyle.Render("Ready")
	}

	var help string
	switch {
	case m.snapshot.SaveFailed:
		help = dimStyle.Render("esc/enter: dismiss | ctrl+c: quit")
	case m.editing():
		help = dimStyle.Render("type to edit | enter/tab: next field | esc: done")
	case m.viewMode == ViewSky:
		help = dimStyle.Render("arrows/hjkl: look | +/-: zoom | space/click: select star | a/n: author/name | s: save | x: clear | g: grid | e: export | f: focus | r: retry | tab: exoplanets")
	default:
		help = dimStyle.Render("↑↓: navigate | enter: view sky | /: filter | r: reload | tab: sky | q: quit")
	}

	return "  " + status + "\n  " + help
}

func animTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}

// renderShimmerText renders text with a subtle moving shine effect.
func (m Model) renderShimmerText(text string) string {
	runes := []rune(text)
	textLen := len(runes)
	if textLen == 0 {
		return ""
	}

	pos := m.animTick % (textLen + 8)

	var result strings.Builder

	for i, r := range runes {
		dist := i - pos + 4
		if dist < 0 {
			dist = -dist
		}

		var r8, g8, b8 int
		switch {
		case dist <= 1:
			r8, g8, b8 = 180, 160, 220
		case dist <= 3:
			r8, g8, b8 = 140, 120, 180
		case dist <= 5:
			r8, g8, b8 = 110, 90, 150
		default:
			r8, g8, b8 = 80, 70, 120
		}

		hexColor := fmt.Sprintf("#%02X%02X%02X", r8, g8, b8)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}
