package cleaner

import "fmt"

// Phase is one step of a cleanup run. Transitions are strictly sequential;
// each phase requires the previous one's output. PhaseError is reachable
// from any step on unrecoverable failure.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAuthenticated
	PhaseLibraryFetched
	PhaseSignalsFetched
	PhaseCandidatesComputed
	PhaseAwaitingConfirmation
	PhaseRemoving
	PhaseCompleted
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:                 "idle",
	PhaseAuthenticated:        "authenticated",
	PhaseLibraryFetched:       "library_fetched",
	PhaseSignalsFetched:       "signals_fetched",
	PhaseCandidatesComputed:   "candidates_computed",
	PhaseAwaitingConfirmation: "awaiting_confirmation",
	PhaseRemoving:             "removing",
	PhaseCompleted:            "completed",
	PhaseError:                "error",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// run tracks the phase of one cleanup execution.
type run struct {
	phase Phase
	err   error
}

// advance moves to the next phase; skipping a step is a programming error.
func (r *run) advance(to Phase) error {
	if r.phase == PhaseError {
		return fmt.Errorf("cleanup run already failed: %w", r.err)
	}
	if to != r.phase+1 {
		return fmt.Errorf("invalid transition %s -> %s", r.phase, to)
	}
	r.phase = to
	return nil
}

// fail moves the run to PhaseError, recording the cause.
func (r *run) fail(err error) {
	r.phase = PhaseError
	r.err = err
}
