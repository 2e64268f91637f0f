// Package state owns the mutable scene state for one viewing session.
package state

import (
	"github.com/litescript/exosky/internal/astro"
	"github.com/litescript/exosky/internal/catalog"
	"github.com/litescript/exosky/internal/logging"
	"github.com/litescript/exosky/internal/sky"
)

// Ticket tags an asynchronous request with the exoplanet selection it was
// issued for. Responses carrying a ticket that is no longer current are
// dropped.
type Ticket struct {
	Generation uint64
	Planet     string
}

// Config holds configuration for the scene.
type Config struct {
	Radius         float64
	PickThreshold  float64
	HoverThreshold float64
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Radius:         astro.SceneRadius,
		PickThreshold:  sky.DefaultPickThreshold,
		HoverThreshold: sky.DefaultPickThreshold,
	}
}

// Frame is the immutable geometry for one render pass. The point cloud and
// constellation lines are built from the same star snapshot.
type Frame struct {
	Planet    *sky.Exoplanet
	Cloud     sky.PointCloud
	Lines     []sky.ConstellationLine
	Grid      []astro.GridLines
	Positions map[string]astro.Vec3
}

// Scene is the single owner of all session state. It is not safe for
// concurrent use: the UI event loop calls it, and network results are fed
// back through Apply* with the ticket they were issued under.
type Scene struct {
	cfg    Config
	logger *logging.Logger
	grid   *astro.GridGenerator

	generation uint64
	planet     *sky.Exoplanet

	stars          []sky.Star
	starIndex      map[string]int
	constellations []sky.Constellation
	starsLoaded    bool
	constLoaded    bool

	authoring   *sky.Authoring
	active      sky.ConstellationKey
	clickedStar *sky.Star
	showGrid    bool
	lastError   error

	// frame cache; rebuilt when stars, selection, constellations or the
	// active reference change
	frame      Frame
	frameDirty bool
}

// NewScene creates an empty scene.
func NewScene(cfg Config, logger *logging.Logger) *Scene {
	if cfg.Radius <= 0 {
		cfg.Radius = astro.SceneRadius
	}
	if cfg.PickThreshold <= 0 {
		cfg.PickThreshold = sky.DefaultPickThreshold
	}
	if cfg.HoverThreshold <= 0 {
		cfg.HoverThreshold = cfg.PickThreshold
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scene{
		cfg:        cfg,
		logger:     logger.With("scene"),
		grid:       astro.NewGridGenerator(cfg.Radius),
		starIndex:  make(map[string]int),
		authoring:  sky.NewAuthoring(),
		frameDirty: true,
	}
}

// Radius returns the scene radius.
func (s *Scene) Radius() float64 {
	return s.cfg.Radius
}

// SetThresholds changes the pick and hover tolerances. Values that are not
// positive leave the current setting.
func (s *Scene) SetThresholds(pick, hover float64) {
	if pick > 0 {
		s.cfg.PickThreshold = pick
	}
	if hover > 0 {
		s.cfg.HoverThreshold = hover
	}
}

// Planet returns the selected exoplanet, or nil.
func (s *Scene) Planet() *sky.Exoplanet {
	return s.planet
}

// Current returns the ticket for the current selection.
func (s *Scene) Current() Ticket {
	t := Ticket{Generation: s.generation}
	if s.planet != nil {
		t.Planet = s.planet.Name
	}
	return t
}

// IsCurrent reports whether t was issued for the current selection.
func (s *Scene) IsCurrent(t Ticket) bool {
	return s.planet != nil && t.Generation == s.generation
}

// SelectPlanet switches to a new exoplanet. Stars, constellations,
// selection, active reference and clicked star are dropped before the
// returned ticket is used to fetch the new data. Selecting the planet that
// is already current and fully loaded is a no-op and returns the current
// ticket with false; while its load is pending or has failed, selecting it
// again starts a fresh load.
func (s *Scene) SelectPlanet(p sky.Exoplanet) (Ticket, bool) {
	if s.samePlanet(p) && s.starsLoaded && s.constLoaded && s.lastError == nil {
		return s.Current(), false
	}

	s.generation++
	planet := p
	s.planet = &planet

	s.stars = nil
	s.starIndex = make(map[string]int)
	s.constellations = nil
	s.starsLoaded = false
	s.constLoaded = false
	s.authoring.Reset()
	s.active = ""
	s.clickedStar = nil
	s.lastError = nil
	s.frameDirty = true

	s.logger.Info("selected exoplanet %s (generation %d)", p.Name, s.generation)
	return s.Current(), true
}

func (s *Scene) samePlanet(p sky.Exoplanet) bool {
	return s.planet != nil && s.planet.Name == p.Name && s.planet.RA == p.RA && s.planet.Dec == p.Dec
}

// ApplyStars installs a fetched star list. It returns false when the
// response is stale or failed; failures leave the scene without stars.
func (s *Scene) ApplyStars(t Ticket, stars []sky.Star, err error) bool {
	if !s.IsCurrent(t) {
		s.logger.Debug("dropping stale star response for %s (generation %d, current %d)",
			t.Planet, t.Generation, s.generation)
		return false
	}
	if err != nil {
		s.logger.Error("fetching stars for %s: %v", t.Planet, err)
		s.lastError = err
		return false
	}

	s.stars = stars
	s.starIndex = make(map[string]int, len(stars))
	for i, st := range stars {
		if _, dup := s.starIndex[st.ID]; dup {
			s.logger.Warn("duplicate star id %q at index %d", st.ID, i)
			continue
		}
		s.starIndex[st.ID] = i
	}
	s.starsLoaded = true
	s.frameDirty = true
	s.logger.Info("loaded %d stars for %s", len(stars), t.Planet)
	return true
}

// ApplyConstellations installs the fetched constellation list. An empty
// list is not an error.
func (s *Scene) ApplyConstellations(t Ticket, list []sky.Constellation, err error) bool {
	if !s.IsCurrent(t) {
		s.logger.Debug("dropping stale constellation response for %s", t.Planet)
		return false
	}
	if err != nil {
		s.logger.Error("fetching constellations for %s: %v", t.Planet, err)
		s.lastError = err
		return false
	}

	s.constellations = list
	s.constLoaded = true
	s.frameDirty = true
	s.logger.Info("loaded %d constellations for %s", len(list), t.Planet)
	return true
}

// Stars returns the loaded star list. Callers must not modify it.
func (s *Scene) Stars() []sky.Star {
	return s.stars
}

// Constellations returns the loaded constellations. Callers must not
// modify it.
func (s *Scene) Constellations() []sky.Constellation {
	return s.constellations
}

// Loading reports whether the star field for the current planet has not
// arrived yet.
func (s *Scene) Loading() bool {
	return s.planet != nil && !s.starsLoaded
}

// HasStar reports whether id is in the loaded star set.
func (s *Scene) HasStar(id string) bool {
	_, ok := s.starIndex[id]
	return ok
}

// Authoring returns the authoring state machine.
func (s *Scene) Authoring() *sky.Authoring {
	return s.authoring
}

// ClickedStar returns the last picked star, or nil.
func (s *Scene) ClickedStar() *sky.Star {
	return s.clickedStar
}

// Active returns the hovered constellation, or nil.
func (s *Scene) Active() *sky.Constellation {
	if s.active == "" {
		return nil
	}
	for i := range s.constellations {
		if s.constellations[i].Key() == s.active {
			return &s.constellations[i]
		}
	}
	return nil
}

// ActiveKey returns the hovered constellation key.
func (s *Scene) ActiveKey() sky.ConstellationKey {
	return s.active
}

// LastError returns the last fetch error for the current planet.
func (s *Scene) LastError() error {
	return s.lastError
}

// DismissError clears the last fetch and save errors.
func (s *Scene) DismissError() {
	s.lastError = nil
	s.authoring.DismissError()
}

// ShowGrid reports whether coordinate grids are visible.
func (s *Scene) ShowGrid() bool {
	return s.showGrid
}

// SetShowGrid toggles coordinate grid visibility.
func (s *Scene) SetShowGrid(show bool) {
	if s.showGrid != show {
		s.showGrid = show
		s.frameDirty = true
	}
}

// ExportFileName returns the star map file name for the current exoplanet.
func (s *Scene) ExportFileName(ext string) (string, bool) {
	if s.planet == nil {
		return "", false
	}
	return catalog.StarMapFileName(s.planet.Name, ext), true
}

// Frame returns the geometry for the current state, rebuilding it when
// anything it depends on changed. Cloud and position map are always built
// together from the same star slice.
func (s *Scene) Frame() Frame {
	if !s.frameDirty {
		return s.frame
	}

	positions := sky.PositionMap(s.stars, s.cfg.Radius)
	s.frame = Frame{
		Planet:    s.planet,
		Cloud:     sky.BuildPointCloud(s.stars, s.authoring.Selection(), s.cfg.Radius),
		Lines:     sky.BuildConstellationLines(s.constellations, positions, s.active),
		Grid:      s.grid.Geometry(s.showGrid),
		Positions: positions,
	}
	s.frameDirty = false
	return s.frame
}

// PickStar resolves a pointer ray against the current frame. A hit toggles
// the star's selection and updates the clicked star; a miss changes
// nothing.
func (s *Scene) PickStar(ray astro.Ray) (sky.Star, bool) {
	frame := s.Frame()
	star, ok := sky.Pick(ray, frame.Cloud, s.cfg.PickThreshold)
	if !ok {
		return sky.Star{}, false
	}
	s.ToggleStar(star)
	return star, true
}

// ToggleStar flips a star's selection and makes it the clicked star.
func (s *Scene) ToggleStar(star sky.Star) bool {
	picked := star
	s.clickedStar = &picked
	selected := s.authoring.Toggle(star.ID)
	s.frameDirty = true
	s.logger.Debug("toggled %s (selected=%v, %d selected)", star.ID, selected, s.authoring.Selection().Len())
	return selected
}

// Hover makes the constellation line under the ray active. Rays that hit
// no line leave the active reference unchanged.
func (s *Scene) Hover(ray astro.Ray) bool {
	frame := s.Frame()
	key, ok := sky.HoverLine(ray, frame.Lines, s.cfg.HoverThreshold)
	if !ok {
		return false
	}
	s.SetActive(key)
	return true
}

// SetActive sets the active constellation by key.
func (s *Scene) SetActive(key sky.ConstellationKey) {
	if s.active != key {
		s.active = key
		s.frameDirty = true
	}
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() {
	s.authoring.Clear()
	s.frameDirty = true
}

// BeginSave validates the authoring session and returns the request to
// send with its ticket. Validation failures change nothing.
func (s *Scene) BeginSave() (sky.SaveRequest, Ticket, error) {
	planet := ""
	if s.planet != nil {
		planet = s.planet.Name
	}
	req, err := s.authoring.PrepareSave(planet, s.HasStar)
	if err != nil {
		s.logger.Warn("save blocked: %v", err)
		return sky.SaveRequest{}, Ticket{}, err
	}
	s.logger.Info("saving constellation %q with %d stars", req.Name, len(req.Stars))
	return req, s.Current(), nil
}

// FinishSave applies the persistence result. On success the server record
// is appended and the session cleared; on failure selection and text stay
// for a retry. Results for a previous planet are dropped.
func (s *Scene) FinishSave(t Ticket, record sky.Constellation, err error) bool {
	if !s.IsCurrent(t) {
		s.logger.Debug("dropping stale save result for %s", t.Planet)
		return false
	}
	if err != nil {
		s.logger.Error("saving constellation: %v", err)
		s.authoring.FailSave(err)
		return false
	}

	next := make([]sky.Constellation, len(s.constellations), len(s.constellations)+1)
	copy(next, s.constellations)
	s.constellations = append(next, record)
	s.authoring.CompleteSave()
	s.frameDirty = true
	s.logger.Info("saved constellation %q", record.Name)
	return true
}

// Snapshot is a read-only view for panels and headless output.
type Snapshot struct {
	Planet         *sky.Exoplanet
	Loading        bool
	StarCount      int
	Constellations int
	Selected       []string
	State          sky.AuthoringState
	Author         string
	Name           string
	CanSave        bool
	Saving         bool
	SaveFailed     bool
	ClickedStar    *sky.Star
	Active         *sky.Constellation
	ShowGrid       bool
	LastError      error
	SaveError      error
}

// Snapshot returns a consistent view of current state.
func (s *Scene) Snapshot() Snapshot {
	return Snapshot{
		Planet:         s.planet,
		Loading:        s.Loading(),
		StarCount:      len(s.stars),
		Constellations: len(s.constellations),
		Selected:       s.authoring.Selection().IDs(),
		State:          s.authoring.State(),
		Author:         s.authoring.Author(),
		Name:           s.authoring.Name(),
		CanSave:        s.authoring.CanSave(),
		Saving:         s.authoring.Saving(),
		SaveFailed:     s.authoring.Failed(),
		ClickedStar:    s.clickedStar,
		Active:         s.Active(),
		ShowGrid:       s.showGrid,
		LastError:      s.lastError,
		SaveError:      s.authoring.LastError(),
	}
}
