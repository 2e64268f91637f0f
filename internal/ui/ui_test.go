package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/exosky/internal/astro"
	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/state"
)

type fakeCatalog struct {
	planets        []sky.Exoplanet
	stars          map[string][]sky.Star
	constellations map[string][]sky.Constellation
	saveErr        error
	saved          []sky.SaveRequest
	exported       []string

	// starsErrs fail successive FetchStars calls, one error per call.
	starsErrs []error
	starCalls int
}

func (f *fakeCatalog) ListExoplanets(ctx context.Context, limit int) ([]sky.Exoplanet, error) {
	return f.planets, nil
}

func (f *fakeCatalog) FetchStars(ctx context.Context, p sky.Exoplanet, mag float64) ([]sky.Star, error) {
	f.starCalls++
	if len(f.starsErrs) > 0 {
		err := f.starsErrs[0]
		f.starsErrs = f.starsErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]sky.Star(nil), f.stars[p.Name]...), nil
}

func (f *fakeCatalog) FetchConstellations(ctx context.Context, planet string) ([]sky.Constellation, error) {
	return append([]sky.Constellation{}, f.constellations[planet]...), nil
}

func (f *fakeCatalog) SaveConstellation(ctx context.Context, req sky.SaveRequest) (sky.Constellation, error) {
	if f.saveErr != nil {
		return sky.Constellation{}, f.saveErr
	}
	f.saved = append(f.saved, req)
	return sky.Constellation{ID: "c1", Name: req.Name, Author: req.Author, Planet: req.Planet, Stars: req.Stars}, nil
}

func (f *fakeCatalog) DownloadStarMap(ctx context.Context, planet, dir string) (string, error) {
	f.exported = append(f.exported, planet)
	return dir + "/" + "star_map-" + planet + ".png", nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		planets: []sky.Exoplanet{
			{Name: "Kepler-22 b", RA: 289.2, Dec: 47.9},
			{Name: "TRAPPIST-1 e", RA: 346.6, Dec: -5.0},
		},
		stars: map[string][]sky.Star{
			"Kepler-22 b": {
				{ID: "A", X: 1},
				starAt("B", 10, 0),
				{ID: "C", Y: 1},
			},
			"TRAPPIST-1 e": {
				{ID: "T1", X: 1},
			},
		},
		constellations: map[string][]sky.Constellation{},
	}
}

func starAt(id string, az, el float64) sky.Star {
	d := astro.Direction(az, el)
	return sky.Star{ID: id, X: d.X, Y: d.Y, Z: d.Z}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes a command produced by the model's own fetch and save paths
// and feeds every resulting message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case PlanetsLoadedMsg, planetChosenMsg, starsLoadedMsg, constellationsLoadedMsg, saveDoneMsg, exportDoneMsg:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		default:
			t.Fatalf("unexpected message %T", msg)
		}
	}
	return m
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func typeText(m Model, s string) Model {
	m, _ = send(m, keyMsg(s))
	return m
}

func newTestModel(t *testing.T, cat *fakeCatalog, opts Options) (Model, *state.Scene) {
	t.Helper()
	scene := state.NewScene(state.DefaultConfig(), nil)
	m := New(scene, cat, opts, nil)
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 50})
	return m, scene
}

func loadKepler(t *testing.T, m Model, cat *fakeCatalog) Model {
	t.Helper()
	m, _ = send(m, PlanetsLoadedMsg{Planets: cat.planets})
	m, cmd := send(m, keyMsg("enter"))
	return run(t, m, cmd)
}

func TestModel_ChoosePlanetLoadsSky(t *testing.T) {
	cat := newFakeCatalog()
	m, scene := newTestModel(t, cat, Options{})
	require.Equal(t, ViewPlanets, m.viewMode)

	m = loadKepler(t, m, cat)

	assert.Equal(t, ViewSky, m.viewMode)
	require.NotNil(t, scene.Planet())
	assert.Equal(t, "Kepler-22 b", scene.Planet().Name)
	assert.Len(t, scene.Stars(), 3)
	assert.False(t, m.snapshot.Loading)
	assert.Contains(t, m.View(), "3 stars")
}

func TestModel_LoadingShownUntilStarsArrive(t *testing.T) {
	cat := newFakeCatalog()
	m, _ := newTestModel(t, cat, Options{})
	m, _ = send(m, PlanetsLoadedMsg{Planets: cat.planets}, planetChosenMsg{planet: cat.planets[0]})

	assert.True(t, m.snapshot.Loading)
	assert.Contains(t, m.View(), "Loading stars...")
}

func TestModel_AuthorConstellation(t *testing.T) {
	cat := newFakeCatalog()
	m, scene := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	m, _ = send(m, keyMsg(" "))     // A at the view center
	m, _ = send(m, keyMsg("l"))     // pan 10° toward B
	m, _ = send(m, keyMsg(" "))     // B
	m, _ = send(m, keyMsg("a"))     // focus author
	m = typeText(m, "Ada")
	m, _ = send(m, keyMsg("enter")) // on to name
	m = typeText(m, "Kite")
	m, _ = send(m, keyMsg("enter"))

	require.Equal(t, []string{"A", "B"}, m.snapshot.Selected)
	require.True(t, m.snapshot.CanSave)
	assert.Contains(t, m.View(), "Selected stars: 2")

	m, cmd := send(m, keyMsg("s"))
	assert.True(t, m.snapshot.Saving)
	m = run(t, m, cmd)

	require.Len(t, cat.saved, 1)
	assert.Equal(t, sky.SaveRequest{Name: "Kite", Author: "Ada", Stars: []string{"A", "B"}, Planet: "Kepler-22 b"}, cat.saved[0])
	assert.Len(t, scene.Constellations(), 1)
	assert.Empty(t, m.snapshot.Selected)
	assert.Empty(t, m.author.Value())
	assert.Empty(t, m.name.Value())
	assert.Contains(t, m.statusMsg, "Kite")
}

func TestModel_SaveBlockedWithoutName(t *testing.T) {
	cat := newFakeCatalog()
	m, _ := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	m, _ = send(m, keyMsg(" "), keyMsg("l"), keyMsg(" "), keyMsg("a"))
	m = typeText(m, "Ada")
	m, _ = send(m, keyMsg("esc"))

	m, cmd := send(m, keyMsg("s"))
	assert.Nil(t, cmd)
	assert.Empty(t, cat.saved)
	assert.ErrorIs(t, m.snapshot.SaveError, sky.ErrMissingName)
	assert.Contains(t, m.View(), sky.ErrMissingName.Error())

	m, _ = send(m, keyMsg("esc"))
	assert.NoError(t, m.snapshot.SaveError)
}

func TestModel_SaveFailureKeepsSelection(t *testing.T) {
	cat := newFakeCatalog()
	cat.saveErr = errors.New("backend unavailable")
	m, _ := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	m, _ = send(m, keyMsg(" "), keyMsg("l"), keyMsg(" "), keyMsg("a"))
	m = typeText(m, "Ada")
	m, _ = send(m, keyMsg("tab"))
	m = typeText(m, "Kite")
	m, _ = send(m, keyMsg("esc"))

	m, cmd := send(m, keyMsg("s"))
	m = run(t, m, cmd)

	assert.Equal(t, []string{"A", "B"}, m.snapshot.Selected)
	assert.Equal(t, "Kite", m.name.Value())
	assert.ErrorIs(t, m.snapshot.SaveError, cat.saveErr)
	assert.Contains(t, m.View(), "Save failed: backend unavailable")
}

func TestModel_SaveFailureBlocksInput(t *testing.T) {
	cat := newFakeCatalog()
	cat.saveErr = errors.New("backend unavailable")
	m, scene := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	m, _ = send(m, keyMsg(" "), keyMsg("l"), keyMsg(" "), keyMsg("a"))
	m = typeText(m, "Ada")
	m, _ = send(m, keyMsg("tab"))
	m = typeText(m, "Kite")
	m, _ = send(m, keyMsg("esc"))
	m, cmd := send(m, keyMsg("s"))
	m = run(t, m, cmd)
	require.True(t, m.snapshot.SaveFailed)

	// Picks, camera moves, clicks and view switches wait for the dismissal.
	az, _ := m.skyView.Camera()
	m, cmd = send(m, keyMsg(" "), keyMsg("h"), keyMsg("x"), keyMsg("1"))
	assert.Nil(t, cmd)
	width, height := m.skyView.canvasSize()
	m, _ = send(m, tea.MouseMsg{X: width / 2, Y: m.canvasTop() + height/2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.Equal(t, []string{"A", "B"}, m.snapshot.Selected)
	assert.Equal(t, ViewSky, m.viewMode)
	gotAz, _ := m.skyView.Camera()
	assert.Equal(t, az, gotAz)
	assert.Equal(t, "B", scene.ClickedStar().ID)

	m, _ = send(m, keyMsg("esc"))
	assert.False(t, m.snapshot.SaveFailed)
	assert.NotContains(t, m.View(), "Save failed")

	m, _ = send(m, keyMsg(" "))
	assert.Equal(t, []string{"A"}, m.snapshot.Selected, "B under the reticle toggles off once dismissed")
}

func TestModel_ReselectRetriesFailedStars(t *testing.T) {
	cat := newFakeCatalog()
	cat.starsErrs = []error{errors.New("connection refused")}
	m, scene := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	require.Equal(t, 1, cat.starCalls)
	assert.True(t, m.snapshot.Loading)
	assert.Contains(t, m.View(), "Could not load stars: connection refused")

	m, _ = send(m, keyMsg("1"))
	m, cmd := send(m, keyMsg("enter"))
	m = run(t, m, cmd)

	assert.Equal(t, 2, cat.starCalls)
	assert.False(t, m.snapshot.Loading)
	assert.Len(t, scene.Stars(), 3)
	assert.NoError(t, m.snapshot.LastError)
}

func TestModel_RetryKeyReloadsSky(t *testing.T) {
	cat := newFakeCatalog()
	cat.starsErrs = []error{errors.New("timeout")}
	m, scene := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)
	require.True(t, m.snapshot.Loading)

	m, cmd := send(m, keyMsg("r"))
	m = run(t, m, cmd)
	assert.Len(t, scene.Stars(), 3)
	assert.False(t, m.snapshot.Loading)

	// Nothing to retry once loaded.
	_, cmd = send(m, keyMsg("r"))
	assert.Nil(t, cmd)
	assert.Equal(t, 2, cat.starCalls)
}

func TestModel_StaleStarsIgnored(t *testing.T) {
	cat := newFakeCatalog()
	m, scene := newTestModel(t, cat, Options{})
	m, _ = send(m, PlanetsLoadedMsg{Planets: cat.planets})

	m, first := send(m, planetChosenMsg{planet: cat.planets[0]})
	m, second := send(m, planetChosenMsg{planet: cat.planets[1]})

	m = run(t, m, second)
	m = run(t, m, first)

	require.NotNil(t, scene.Planet())
	assert.Equal(t, "TRAPPIST-1 e", scene.Planet().Name)
	require.Len(t, scene.Stars(), 1)
	assert.Equal(t, "T1", scene.Stars()[0].ID)
	assert.Equal(t, 1, m.snapshot.StarCount)
}

func TestModel_InitialPlanet(t *testing.T) {
	cat := newFakeCatalog()
	m, scene := newTestModel(t, cat, Options{InitialPlanet: "trappist-1 e"})

	m, cmd := send(m, PlanetsLoadedMsg{Planets: cat.planets})
	m = run(t, m, cmd)

	require.NotNil(t, scene.Planet())
	assert.Equal(t, "TRAPPIST-1 e", scene.Planet().Name)
	assert.Equal(t, ViewSky, m.viewMode)
}

func TestModel_GridToggle(t *testing.T) {
	cat := newFakeCatalog()
	m, _ := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	m, _ = send(m, keyMsg("g"))
	assert.True(t, m.snapshot.ShowGrid)
	assert.Len(t, m.skyView.frame.Grid, 2)

	m, _ = send(m, keyMsg("g"))
	assert.False(t, m.snapshot.ShowGrid)
	assert.Empty(t, m.skyView.frame.Grid)
}

func TestModel_ExportStarMap(t *testing.T) {
	cat := newFakeCatalog()
	m, _ := newTestModel(t, cat, Options{DownloadDir: "/tmp/maps"})

	m, cmd := send(m, PlanetsLoadedMsg{Planets: cat.planets}, tea.KeyMsg{Type: tea.KeyTab}, keyMsg("e"))
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.statusErr, errNoPlanet)

	m, _ = send(m, keyMsg("1"))
	m = loadKepler(t, m, cat)
	m, cmd = send(m, keyMsg("e"))
	assert.True(t, m.exporting)
	m = run(t, m, cmd)

	assert.False(t, m.exporting)
	assert.Equal(t, []string{"Kepler-22 b"}, cat.exported)
	assert.Equal(t, "Star map saved to /tmp/maps/star_map-Kepler-22 b.png", m.statusMsg)
}

func TestModel_MouseClickPicks(t *testing.T) {
	cat := newFakeCatalog()
	m, scene := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	width, height := m.skyView.canvasSize()
	click := tea.MouseMsg{
		X:      width / 2,
		Y:      m.canvasTop() + height/2,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
	}
	m, _ = send(m, click)

	require.NotNil(t, scene.ClickedStar())
	assert.Equal(t, "A", scene.ClickedStar().ID)
	assert.Equal(t, []string{"A"}, m.snapshot.Selected)

	// Clicks on the header are ignored.
	m, _ = send(m, tea.MouseMsg{X: 1, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, []string{"A"}, m.snapshot.Selected)
}

func TestModel_HoverHighlightsConstellation(t *testing.T) {
	cat := newFakeCatalog()
	cat.constellations["Kepler-22 b"] = []sky.Constellation{
		{ID: "7", Name: "Arc", Author: "Ada", Planet: "Kepler-22 b", Stars: []string{"A", "B"}},
	}
	m, scene := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	// Panning right by 10° moves the reticle onto the A-B segment's end.
	m, _ = send(m, keyMsg("l"))

	require.NotNil(t, scene.Active())
	assert.Equal(t, "Arc", scene.Active().Name)
	assert.True(t, strings.Contains(m.View(), "Arc"))
}

func TestModel_ClearSelection(t *testing.T) {
	cat := newFakeCatalog()
	m, _ := newTestModel(t, cat, Options{})
	m = loadKepler(t, m, cat)

	m, _ = send(m, keyMsg(" "), keyMsg("x"))
	assert.Empty(t, m.snapshot.Selected)
	assert.Equal(t, sky.StateIdle, m.snapshot.State)
}
