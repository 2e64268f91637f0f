package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/exosky/internal/astro"
	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/state"
)

const (
	// Default field of view in degrees. Vertical FOV is always half the
	// horizontal one.
	defaultFovAz = 120.0
	minFovAz     = 15.0
	maxFovAz     = 240.0

	// Animation
	animDuration  = 400 * time.Millisecond
	animFrameRate = 30 * time.Millisecond

	// Star glyphs by G magnitude
	glyphStarBright   = '✶' // mag < 2
	glyphStarMedium   = '*' // mag 2-4
	glyphStarDim      = '+' // mag 4-5.5
	glyphStarVeryDim  = '·' // mag > 5.5 or unknown
	glyphStarSelected = '◆'

	glyphLine = '•'
	glyphGrid = '·'

	colorBackground = "236"
	colorReticle    = "205"
	colorGridEq     = "24"
	colorGridGal    = "90"
	colorOverlay    = "60"
	colorAlert      = "#E84A27"
)

// draw priorities; a cell keeps the highest one written to it
const (
	prioEmpty = iota
	prioGrid
	prioLineInactive
	prioLineActive
	prioStar
	prioStarSelected
)

// SkyViewModel renders the star field seen from the selected exoplanet.
type SkyViewModel struct {
	width  int
	height int

	// Camera position (center of view)
	camAz float64
	camEl float64
	fovAz float64

	// Animation state
	animating   bool
	animStartAz float64
	animStartEl float64
	animTargAz  float64
	animTargEl  float64
	animStart   time.Time

	frame state.Frame
	snap  state.Snapshot
}

// NewSkyViewModel creates a new sky view model.
func NewSkyViewModel() SkyViewModel {
	return SkyViewModel{
		camAz: 0,
		camEl: 0,
		fovAz: defaultFovAz,
	}
}

// SetSize updates the viewport size. Height includes the header line.
func (m SkyViewModel) SetSize(width, height int) SkyViewModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData replaces the geometry and state snapshot to draw.
func (m SkyViewModel) UpdateData(frame state.Frame, snap state.Snapshot) SkyViewModel {
	m.frame = frame
	m.snap = snap
	return m
}

// Camera returns the current view direction in degrees.
func (m SkyViewModel) Camera() (az, el float64) {
	return m.camAz, m.camEl
}

func (m SkyViewModel) fovEl() float64 {
	return m.fovAz / 2
}

func (m SkyViewModel) canvasSize() (int, int) {
	return m.width, m.height - 1
}

// animTickMsg is sent during animation
type animTickMsg time.Time

func animTick() tea.Cmd {
	return tea.Tick(animFrameRate, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

// Update handles camera keys and animation frames. It reports whether the
// camera moved so the caller can refresh hover state.
func (m SkyViewModel) Update(msg tea.Msg) (SkyViewModel, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		stepAz := m.fovAz / 12
		stepEl := m.fovEl() / 12
		switch msg.String() {
		case "left", "h":
			return m.Pan(-stepAz, 0), nil, true
		case "right", "l":
			return m.Pan(stepAz, 0), nil, true
		case "up", "k":
			return m.Pan(0, stepEl), nil, true
		case "down", "j":
			return m.Pan(0, -stepEl), nil, true
		case "+", "=":
			return m.Zoom(0.8), nil, true
		case "-", "_":
			return m.Zoom(1.25), nil, true
		case "0":
			m.animating = false
			m.camAz, m.camEl, m.fovAz = 0, 0, defaultFovAz
			return m, nil, true
		}

	case animTickMsg:
		if m.animating {
			next, cmd := m.updateAnimation()
			return next, cmd, true
		}
	}

	return m, nil, false
}

// Pan moves the camera by the given offsets in degrees.
func (m SkyViewModel) Pan(dAz, dEl float64) SkyViewModel {
	m.animating = false
	m.camAz = wrap360(m.camAz + dAz)
	m.camEl = clampEl(m.camEl + dEl)
	return m
}

// Zoom scales the field of view.
func (m SkyViewModel) Zoom(factor float64) SkyViewModel {
	m.fovAz = math.Max(minFovAz, math.Min(maxFovAz, m.fovAz*factor))
	return m
}

// FocusOn animates the camera toward a scene direction.
func (m SkyViewModel) FocusOn(dir astro.Vec3) (SkyViewModel, tea.Cmd) {
	if dir.Norm() == 0 || !dir.Finite() {
		return m, nil
	}
	az, el := astro.AzEl(dir)
	m.animating = true
	m.animStartAz = m.camAz
	m.animStartEl = m.camEl
	m.animTargAz = az
	m.animTargEl = el
	m.animStart = time.Now()

	return m, animTick()
}

func (m SkyViewModel) updateAnimation() (SkyViewModel, tea.Cmd) {
	elapsed := time.Since(m.animStart)
	t := float64(elapsed) / float64(animDuration)

	if t >= 1.0 {
		m.animating = false
		m.camAz = m.animTargAz
		m.camEl = m.animTargEl
		return m, nil
	}

	// Ease-out cubic
	t = 1 - math.Pow(1-t, 3)

	m.camAz = wrap360(astro.LerpAngle(m.animStartAz, m.animTargAz, t))
	m.camEl = lerp(m.animStartEl, m.animTargEl, t)

	return m, animTick()
}

// CenterRay is the pointer ray through the reticle.
func (m SkyViewModel) CenterRay() astro.Ray {
	return astro.NewRay(astro.Vec3{}, astro.Direction(m.camAz, m.camEl))
}

// RayAt returns the pointer ray through canvas cell (x, y). It returns false
// when the cell is outside the canvas.
func (m SkyViewModel) RayAt(x, y int) (astro.Ray, bool) {
	width, height := m.canvasSize()
	if x < 0 || y < 0 || x >= width || y >= height {
		return astro.Ray{}, false
	}
	az, el := m.unproject(x, y, width, height)
	return astro.NewRay(astro.Vec3{}, astro.Direction(az, el)), true
}

// PickThreshold returns a pick tolerance of about one canvas cell at the
// given scene radius, never smaller than the default.
func (m SkyViewModel) PickThreshold(radius float64) float64 {
	width, height := m.canvasSize()
	if width <= 0 || height <= 0 {
		return sky.DefaultPickThreshold
	}
	cellDeg := math.Max(m.fovAz/float64(width), m.fovEl()/float64(height))
	th := radius * math.Tan(cellDeg*0.75*math.Pi/180)
	return math.Max(th, sky.DefaultPickThreshold)
}

// View renders the sky view.
func (m SkyViewModel) View() string {
	width, height := m.canvasSize()
	if width < 20 || height < 6 {
		return "Sky view requires larger terminal"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderSkyCanvas(width, height))

	return b.String()
}

func (m SkyViewModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#d0c8ff"))

	title := titleStyle.Render("Sky View")

	planet := dimStyle.Render("no exoplanet")
	if m.snap.Planet != nil {
		planet = accentStyle.Render(m.snap.Planet.Name)
	}

	grid := dimStyle.Render("Grid: off")
	if m.snap.ShowGrid {
		grid = accentStyle.Render("Grid: on")
	}

	compass := dimStyle.Render(fmt.Sprintf("Az:%.0f° El:%.0f° FOV:%.0f°", m.camAz, m.camEl, m.fovAz))

	return fmt.Sprintf("%s | %s | %s | %s", title, planet, grid, compass)
}

type cell struct {
	r     rune
	color lipgloss.Color
	prio  int
}

type canvas struct {
	width, height int
	cells         [][]cell
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height, cells: make([][]cell, height)}
	for y := range c.cells {
		c.cells[y] = make([]cell, width)
		for x := range c.cells[y] {
			c.cells[y][x] = cell{r: ' ', color: colorBackground}
		}
	}
	return c
}

func (c *canvas) set(x, y int, r rune, color lipgloss.Color, prio int) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	if c.cells[y][x].prio > prio {
		return
	}
	c.cells[y][x] = cell{r: r, color: color, prio: prio}
}

func (c *canvas) text(x, y int, s string, color lipgloss.Color) {
	for i, r := range []rune(s) {
		if x+i >= 0 && x+i < c.width && y >= 0 && y < c.height {
			c.cells[y][x+i] = cell{r: r, color: color, prio: prioStarSelected + 1}
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			style := lipgloss.NewStyle().Foreground(c.cells[y][x].color)
			b.WriteString(style.Render(string(c.cells[y][x].r)))
		}
		if y < c.height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m SkyViewModel) renderSkyCanvas(width, height int) string {
	cv := newCanvas(width, height)

	for _, g := range m.frame.Grid {
		color := lipgloss.Color(colorGridEq)
		if g.Frame == astro.FrameGalactic {
			color = colorGridGal
		}
		for _, p := range g.Points {
			m.plot(cv, p, glyphGrid, color, prioGrid)
		}
	}

	for _, line := range m.frame.Lines {
		prio := prioLineInactive
		if line.Active {
			prio = prioLineActive
		}
		color := rgbColor(line.Color, line.Opacity)
		for i := 0; i+1 < len(line.Points); i++ {
			m.drawSegment(cv, line.Points[i], line.Points[i+1], color, prio)
		}
	}

	cloud := m.frame.Cloud
	for i := 0; i < cloud.Len(); i++ {
		if !cloud.Drawable(i) {
			continue
		}
		star, ok := cloud.StarAt(i)
		if !ok {
			continue
		}
		glyph, brightness := starGlyph(star.Magnitude)
		prio := prioStar
		if cloud.Color(i) == sky.ColorSelected {
			glyph = glyphStarSelected
			brightness = 1
			prio = prioStarSelected
		}
		m.plot(cv, cloud.Vertex(i), glyph, rgbColor(cloud.Color(i), brightness), prio)
	}

	// Reticle brackets around the center cell
	cx, cy := width/2, height/2
	cv.set(cx-1, cy, '[', colorReticle, prioStar)
	cv.set(cx+1, cy, ']', colorReticle, prioStar)
	cv.set(cx, cy, '+', colorReticle, prioEmpty)

	switch {
	case m.snap.SaveFailed && m.snap.SaveError != nil:
		m.overlay(cv, colorAlert, "Save failed: "+m.snap.SaveError.Error(), "esc/enter to dismiss")
	case m.snap.Planet == nil:
		m.overlay(cv, colorOverlay, "Select an exoplanet to view its sky (tab)")
	case m.snap.Loading && m.snap.LastError != nil:
		m.overlay(cv, colorAlert, "Could not load stars: "+m.snap.LastError.Error(), "press r to retry")
	case m.snap.Loading:
		m.overlay(cv, colorOverlay, "Loading stars...")
	}

	return cv.String()
}

// overlay centers lines of text just above the reticle.
func (m SkyViewModel) overlay(cv *canvas, color lipgloss.Color, lines ...string) {
	y := cv.height/2 - 1 - len(lines)
	if y < 0 {
		y = 0
	}
	for i, line := range lines {
		x := (cv.width - len([]rune(line))) / 2
		if x < 0 {
			x = 0
		}
		cv.text(x, y+i, line, color)
	}
}

func (m SkyViewModel) plot(cv *canvas, p astro.Vec3, r rune, color lipgloss.Color, prio int) {
	az, el := astro.AzEl(p)
	x, y, visible := m.projectToScreen(az, el, cv.width, cv.height)
	if !visible {
		return
	}
	cv.set(x, y, r, color, prio)
}

// drawSegment samples the chord between two scene points densely enough to
// leave no gaps at the current zoom.
func (m SkyViewModel) drawSegment(cv *canvas, a, b astro.Vec3, color lipgloss.Color, prio int) {
	na, nb := a.Normalized(), b.Normalized()
	angle := math.Acos(math.Max(-1, math.Min(1, na.Dot(nb)))) * 180 / math.Pi
	cellDeg := math.Min(m.fovAz/float64(cv.width), m.fovEl()/float64(cv.height))
	steps := int(angle/cellDeg*2) + 1
	if steps > 1024 {
		steps = 1024
	}
	d := b.Sub(a)
	for k := 0; k <= steps; k++ {
		p := a.Add(d.Scale(float64(k) / float64(steps)))
		m.plot(cv, p, glyphLine, color, prio)
	}
}

// starGlyph returns the glyph and brightness for a star's magnitude.
// Brighter stars (lower magnitude) get more prominent symbols.
func starGlyph(mag *float64) (rune, float64) {
	if mag == nil {
		return glyphStarVeryDim, 0.55
	}
	switch {
	case *mag < 2:
		return glyphStarBright, 1.0
	case *mag < 4:
		return glyphStarMedium, 0.85
	case *mag < 5.5:
		return glyphStarDim, 0.7
	default:
		return glyphStarVeryDim, 0.55
	}
}

// rgbColor converts a linear color scaled by intensity to a hex color.
func rgbColor(c sky.RGB, intensity float64) lipgloss.Color {
	to8 := func(v float32) int {
		n := int(math.Round(float64(v) * intensity * 255))
		if n < 0 {
			return 0
		}
		if n > 255 {
			return 255
		}
		return n
	}
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", to8(c.R), to8(c.G), to8(c.B)))
}

// projectToScreen converts az/el to screen coordinates relative to camera
func (m SkyViewModel) projectToScreen(az, el float64, width, height int) (int, int, bool) {
	fovAz, fovEl := m.fovAz, m.fovEl()

	// Calculate angular offset from camera center
	dAz := astro.NormalizeAngle(az - m.camAz)
	dEl := el - m.camEl

	// Check if within FOV
	if dAz < -fovAz/2 || dAz >= fovAz/2 {
		return 0, 0, false
	}
	if dEl <= -fovEl/2 || dEl > fovEl/2 {
		return 0, 0, false
	}

	// X: -fovAz/2..+fovAz/2 -> 0..width
	// Y: +fovEl/2..-fovEl/2 -> 0..height (higher el = higher on screen)
	x := int((dAz + fovAz/2) / fovAz * float64(width))
	y := int((fovEl/2 - dEl) / fovEl * float64(height))
	if x >= width || y >= height {
		return 0, 0, false
	}

	return x, y, true
}

// unproject maps the center of a screen cell back to az/el.
func (m SkyViewModel) unproject(x, y, width, height int) (az, el float64) {
	fovAz, fovEl := m.fovAz, m.fovEl()
	dAz := (float64(x)+0.5)/float64(width)*fovAz - fovAz/2
	dEl := fovEl/2 - (float64(y)+0.5)/float64(height)*fovEl
	return wrap360(m.camAz + dAz), clampEl(m.camEl + dEl)
}

func wrap360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func clampEl(el float64) float64 {
	return math.Max(-90, math.Min(90, el))
}

// lerp linear interpolation
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Init returns nil cmd
func (m SkyViewModel) Init() tea.Cmd {
	return nil
}
