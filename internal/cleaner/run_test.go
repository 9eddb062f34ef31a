package cleaner

import (
	"errors"
	"testing"
)

func TestRunAdvanceSequential(t *testing.T) {
	r := &run{}
	phases := []Phase{
		PhaseAuthenticated,
		PhaseLibraryFetched,
		PhaseSignalsFetched,
		PhaseCandidatesComputed,
		PhaseAwaitingConfirmation,
		PhaseRemoving,
		PhaseCompleted,
	}
	for _, p := range phases {
		if err := r.advance(p); err != nil {
			t.Fatalf("advance(%s) error = %v", p, err)
		}
	}
	if r.phase != PhaseCompleted {
		t.Errorf("phase = %s, want completed", r.phase)
	}
}

func TestRunAdvanceRejectsSkippedPhase(t *testing.T) {
	r := &run{}
	if err := r.advance(PhaseLibraryFetched); err == nil {
		t.Error("advance() skipping authenticated succeeded, want error")
	}
}

func TestRunFailBlocksFurtherTransitions(t *testing.T) {
	r := &run{}
	cause := errors.New("refresh token rejected")
	r.fail(cause)

	if r.phase != PhaseError {
		t.Errorf("phase = %s, want error", r.phase)
	}
	if err := r.advance(PhaseAuthenticated); !errors.Is(err, cause) {
		t.Errorf("advance() after fail = %v, want wrapped cause", err)
	}
}
