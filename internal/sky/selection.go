package sky

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinConstellationStars is the smallest constellation that can be saved.
const MinConstellationStars = 2

// Validation and state errors reported by Authoring.
var (
	ErrMissingAuthor = errors.New("author is required")
	ErrMissingName   = errors.New("constellation name is required")
	ErrMissingPlanet = errors.New("no exoplanet selected")
	ErrTooFewStars   = errors.New("select at least two stars")
	ErrUnknownStar   = errors.New("selection contains a star that is not loaded")
	ErrSaveInFlight  = errors.New("a save is already in progress")
)

// Selection is an insertion-ordered set of star ids.
type Selection struct {
	ids   []string
	index map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{index: make(map[string]struct{})}
}

// Toggle removes id when present, otherwise appends it. It reports whether
// id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		delete(s.index, id)
		for i, v := range s.ids {
			if v == id {
				s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
				break
			}
		}
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Contains reports whether id is selected. A nil selection is empty.
func (s *Selection) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the selected ids in insertion order.
func (s *Selection) IDs() []string {
	if s == nil || len(s.ids) == 0 {
		return []string{}
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
	s.index = make(map[string]struct{})
}

// AuthoringState is the state of the constellation authoring session.
type AuthoringState int

const (
	// StateIdle has no pending author/name text.
	StateIdle AuthoringState = iota
	// StateSelecting is an active authoring session.
	StateSelecting
)

func (s AuthoringState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	default:
		return "unknown"
	}
}

// SaveRequest is the body sent to persist a constellation.
type SaveRequest struct {
	Name   string   `json:"name" validate:"required"`
	Author string   `json:"author" validate:"required"`
	Stars  []string `json:"stars" validate:"min=2,unique,dive,required"`
	Planet string   `json:"planet" validate:"required"`
}

var saveValidate = validator.New()

// Validate checks the request and maps the first failure to one of the
// package's sentinel errors.
func (r SaveRequest) Validate() error {
	err := saveValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].StructField() {
	case "Author":
		return ErrMissingAuthor
	case "Name":
		return ErrMissingName
	case "Planet":
		return ErrMissingPlanet
	default:
		return ErrTooFewStars
	}
}

// Authoring is the selection/authoring state machine. Toggle is the only
// way stars enter or leave the selection; Clear and a successful save empty
// it.
type Authoring struct {
	selection *Selection
	author    string
	name      string
	state     AuthoringState
	saving    bool
	failed    bool
	lastErr   error
}

// NewAuthoring returns an idle authoring session.
func NewAuthoring() *Authoring {
	return &Authoring{selection: NewSelection()}
}

// State returns the current state.
func (a *Authoring) State() AuthoringState { return a.state }

// Selection returns the live selection. Callers must not mutate it.
func (a *Authoring) Selection() *Selection { return a.selection }

// Author returns the pending author text.
func (a *Authoring) Author() string { return a.author }

// Name returns the pending constellation name.
func (a *Authoring) Name() string { return a.name }

// Saving reports whether a save is in flight.
func (a *Authoring) Saving() bool { return a.saving }

// LastError returns the last validation or persistence error, if any.
func (a *Authoring) LastError() error { return a.lastErr }

// Failed reports whether the last save was rejected by the backend. It
// stays set until the error is dismissed or another save starts.
func (a *Authoring) Failed() bool { return a.failed }

// DismissError clears the last error.
func (a *Authoring) DismissError() {
	a.lastErr = nil
	a.failed = false
}

// Toggle flips the membership of a star id. While a save is in flight the
// selection is frozen and Toggle only reports membership.
func (a *Authoring) Toggle(id string) bool {
	if a.saving {
		return a.selection.Contains(id)
	}
	a.state = StateSelecting
	return a.selection.Toggle(id)
}

// Clear empties the selection. It does nothing while a save is in flight.
func (a *Authoring) Clear() {
	if a.saving {
		return
	}
	a.selection.Clear()
	if a.author == "" && a.name == "" {
		a.state = StateIdle
	}
}

// SetAuthor updates the pending author text. Ignored while saving.
func (a *Authoring) SetAuthor(author string) {
	if a.saving {
		return
	}
	a.author = author
	a.updateTextState()
}

// SetName updates the pending constellation name. Ignored while saving.
func (a *Authoring) SetName(name string) {
	if a.saving {
		return
	}
	a.name = name
	a.updateTextState()
}

func (a *Authoring) updateTextState() {
	if a.author != "" || a.name != "" {
		a.state = StateSelecting
	} else if a.selection.Len() == 0 {
		a.state = StateIdle
	}
}

// CanSave reports whether PrepareSave would pass validation, ignoring star
// membership.
func (a *Authoring) CanSave() bool {
	return !a.saving &&
		strings.TrimSpace(a.author) != "" &&
		strings.TrimSpace(a.name) != "" &&
		a.selection.Len() >= MinConstellationStars
}

// PrepareSave validates the session and builds the save request. known
// reports whether a star id is part of the current star set. On failure
// nothing changes except the recorded error. On success the machine is
// marked as saving until CompleteSave or FailSave.
func (a *Authoring) PrepareSave(planet string, known func(id string) bool) (SaveRequest, error) {
	if a.saving {
		return SaveRequest{}, ErrSaveInFlight
	}

	req := SaveRequest{
		Name:   strings.TrimSpace(a.name),
		Author: strings.TrimSpace(a.author),
		Stars:  a.selection.IDs(),
		Planet: planet,
	}
	a.failed = false
	if err := req.Validate(); err != nil {
		a.lastErr = err
		return SaveRequest{}, err
	}
	if known != nil {
		for _, id := range req.Stars {
			if !known(id) {
				a.lastErr = ErrUnknownStar
				return SaveRequest{}, ErrUnknownStar
			}
		}
	}

	a.saving = true
	a.lastErr = nil
	return req, nil
}

// CompleteSave finishes a successful save: selection and text are cleared.
func (a *Authoring) CompleteSave() {
	a.saving = false
	a.failed = false
	a.lastErr = nil
	a.selection.Clear()
	a.author = ""
	a.name = ""
	a.state = StateIdle
}

// FailSave records a persistence failure and keeps everything for a retry.
func (a *Authoring) FailSave(err error) {
	a.saving = false
	a.failed = true
	a.lastErr = err
}

// Reset empties the selection and drops any pending save. Author and name
// text survive so they can be reused for the next exoplanet. It is used when
// the exoplanet changes.
func (a *Authoring) Reset() {
	a.selection.Clear()
	a.saving = false
	a.failed = false
	a.lastErr = nil
	a.state = StateIdle
	a.updateTextState()
}
