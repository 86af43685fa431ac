package resolve

import (
	"errors"
	"fmt"

	"github.com/Digital-Shane/title-scout/internal/media"
)

// Phase names one discrete step of a resolution.
type Phase string

const (
	PhaseSearch  Phase = "search"
	PhaseDetails Phase = "details"
	PhaseCast    Phase = "cast"
	PhaseImages  Phase = "images"
)

// State is where a resolution stopped.
type State string

const (
	StateIdle            State = "idle"
	StateSearching       State = "searching"
	StateCandidatesFound State = "candidates_found"
	StateNoCandidates    State = "no_candidates"
	StateFetchingDetails State = "fetching_details"
	StateFetchingExtras  State = "fetching_extras"
	StateComplete        State = "complete"
	StateFailed          State = "failed"
)

// ErrNoCandidates is returned by file resolution when search found nothing.
var ErrNoCandidates = errors.New("no matching candidates")

// PhaseError reports the phase and identifier a resolution failed on, so a
// caller can retry just that step.
type PhaseError struct {
	Phase    Phase
	Provider string
	ID       media.Identifier
	Query    string
	Err      error
}

func (e *PhaseError) Error() string {
	target := e.Query
	if !e.ID.IsZero() {
		target = e.ID.String()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Provider, e.Phase, target, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Phase, target, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// FailedPhase returns the phase err failed in, if it carries one.
func FailedPhase(err error) (Phase, bool) {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase, true
	}
	return "", false
}
