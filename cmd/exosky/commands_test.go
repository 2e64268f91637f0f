package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/exosky/internal/astro"
	"github.com/litescript/exosky/internal/sky"
)

const testBaseURL = "https://exosky.test"

const planetsBody = `{"data":[
	{"pl_name":"Kepler-22 b","hostname":"Kepler-22","ra":289.2,"dec":47.9,"sy_dist":190.0},
	{"pl_name":"TOI-700 d","hostname":"TOI-700","ra":97.1,"dec":-65.6}
]}`

const starsBody = `{"data":[
	{"id":"A","ra":1,"dec":2,"x":1,"y":0,"z":0,"phot_g_mean_mag":4.5},
	{"id":"B","ra":3,"dec":4,"x":0,"y":1,"z":0,"phot_g_mean_mag":1.2},
	{"id":"C","ra":5,"dec":6,"x":0,"y":0,"z":1}
]}`

// newTestApp returns an app whose backend is served by httpmock, and its
// stdout buffer.
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.httpClient = &http.Client{}
	httpmock.ActivateNonDefault(a.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/exoplanets/",
		httpmock.NewStringResponder(http.StatusOK, planetsBody))
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/stars/",
		httpmock.NewStringResponder(http.StatusOK, starsBody))
	return a, &stdout
}

func execute(a *app, args ...string) error {
	return run(context.Background(), a, append(args, "--api-url", testBaseURL, "--log-level", "error"))
}

func TestPlanetsCommand(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, execute(a, "planets"))
	text := out.String()
	assert.Contains(t, text, "PLANET")
	assert.Contains(t, text, "Kepler-22 b")
	assert.Contains(t, text, "190.0 pc")
	assert.Contains(t, text, "N/A", "missing distance")
}

func TestPlanetsCommand_JSON(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, execute(a, "planets", "--json"))
	var planets []sky.Exoplanet
	require.NoError(t, json.Unmarshal(out.Bytes(), &planets))
	require.Len(t, planets, 2)
	assert.Equal(t, "TOI-700 d", planets[1].Name)
}

func TestPlanetsCommand_ExoplanetLimitFlag(t *testing.T) {
	a, _ := newTestApp(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/exoplanets/",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "3", req.URL.Query().Get("limit"))
			return httpmock.NewStringResponse(http.StatusOK, planetsBody), nil
		})

	require.NoError(t, execute(a, "planets", "--exoplanet-limit", "3"))
	assert.Equal(t, 3, a.cfg.ExoplanetLimit)
}

func TestStarsCommand(t *testing.T) {
	a, out := newTestApp(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/constellations/",
		httpmock.NewStringResponder(http.StatusOK, `[{"name":"Kite","author":"ana","planet":"Kepler-22 b","stars":["A","B"]}]`))

	require.NoError(t, execute(a, "stars", "kepler-22 b", "--top", "2"))
	text := out.String()
	assert.Contains(t, text, "Kepler-22 b: 3 stars")
	assert.Contains(t, text, "1 constellations")

	// Brightest first; star C has no magnitude and falls past --top.
	assert.Less(t, strings.Index(text, "\nB "), strings.Index(text, "\nA "))
	assert.NotContains(t, text, "\nC ")
}

func TestStarsCommand_FetchFailure(t *testing.T) {
	a, _ := newTestApp(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/constellations/",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	err := execute(a, "stars", "Kepler-22 b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch constellations")
}

func TestStarsCommand_UnknownPlanet(t *testing.T) {
	a, _ := newTestApp(t)

	err := execute(a, "stars", "Nowhere b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Nowhere b" not found`)
}

func TestConstellationsCommand_Segments(t *testing.T) {
	a, out := newTestApp(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/constellations/",
		httpmock.NewStringResponder(http.StatusOK, `[
			{"id":"1","name":"Kite","author":"ana","planet":"Kepler-22 b","stars":["A","B","C"]},
			{"id":"2","name":"Ghost","author":"bo","planet":"Kepler-22 b","stars":["A","missing"]}
		]`))

	require.NoError(t, execute(a, "constellations", "Kepler-22 b"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"Kite", "ana", "3", "2"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Ghost", "bo", "2", "0"}, strings.Fields(lines[2]))
}

func TestConstellationsCommand_Empty(t *testing.T) {
	a, out := newTestApp(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/constellations/",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	require.NoError(t, execute(a, "constellations", "TOI-700 d"))
	assert.Contains(t, out.String(), "No constellations for TOI-700 d yet")
}

func TestSaveCommand(t *testing.T) {
	a, out := newTestApp(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/constellations/",
		func(req *http.Request) (*http.Response, error) {
			var got sky.SaveRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			assert.Equal(t, "Kite", got.Name)
			assert.Equal(t, "ana", got.Author)
			assert.Equal(t, "Kepler-22 b", got.Planet)
			assert.Equal(t, []string{"B", "A"}, got.Stars)
			return httpmock.NewStringResponse(http.StatusCreated,
				`{"id":"c-1","name":"Kite","author":"ana","planet":"Kepler-22 b","stars":["B","A"]}`), nil
		})

	require.NoError(t, execute(a, "save", "Kepler-22 b", "--author", " ana ", "--name", "Kite", "--stars", "B,A"))
	assert.Contains(t, out.String(), `Saved "Kite" by ana on Kepler-22 b (2 stars)`)
}

func TestSaveCommand_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown star", []string{"--author", "ana", "--name", "Kite", "--stars", "A,Z"}, sky.ErrUnknownStar},
		{"one star", []string{"--author", "ana", "--name", "Kite", "--stars", "A"}, sky.ErrTooFewStars},
		{"no author", []string{"--name", "Kite", "--stars", "A,B"}, sky.ErrMissingAuthor},
		{"no name", []string{"--author", "ana", "--stars", "A,B"}, sky.ErrMissingName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t)

			err := execute(a, append([]string{"save", "Kepler-22 b"}, tt.args...)...)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, httpmock.GetCallCountInfo()["POST "+testBaseURL+"/api/constellations/"])
		})
	}
}

func TestSaveCommand_DuplicateStar(t *testing.T) {
	a, _ := newTestApp(t)

	err := execute(a, "save", "Kepler-22 b", "--author", "ana", "--name", "Kite", "--stars", "A,B,A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestExportCommand(t *testing.T) {
	a, out := newTestApp(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/generate_star_map",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, []byte("GIF89a"))
			resp.Header.Set("Content-Type", "image/gif")
			return resp, nil
		})

	dir := t.TempDir()
	require.NoError(t, execute(a, "export", "TOI-700 d", "--dir", dir))
	assert.Equal(t, filepath.Join(dir, "star_map-TOI-700 d.gif")+"\n", out.String())
}

func TestGridCommand(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, execute(a, "grid"))
	assert.Contains(t, out.String(), "equatorial: ")
	assert.Contains(t, out.String(), "galactic: ")

	a, out = newTestApp(t)
	require.NoError(t, execute(a, "grid", "--frame", "galactic", "--points"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "frame,x,y,z", lines[0])
	assert.Len(t, lines, astro.GridPointCount()+1)
	assert.True(t, strings.HasPrefix(lines[1], "galactic,"))
	assert.Zero(t, httpmock.GetTotalCallCount(), "grid needs no backend")
}

func TestGridCommand_BadFrame(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, execute(a, "grid", "--frame", "ecliptic"))
}

func TestInvalidConfigRejected(t *testing.T) {
	a, _ := newTestApp(t)
	err := execute(a, "planets", "--exoplanet-limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exoplanet_limit")
}

func TestBrightest(t *testing.T) {
	mag := func(v float64) *float64 { return &v }
	stars := []sky.Star{{ID: "dim", Magnitude: mag(6)}, {ID: "none"}, {ID: "bright", Magnitude: mag(0.5)}}

	got := brightest(stars, 5)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"bright", "dim", "none"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "dim", stars[0].ID, "input order is kept")
	assert.Len(t, brightest(stars, 1), 1)
}
