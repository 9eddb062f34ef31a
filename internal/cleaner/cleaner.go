package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pverell/spotify-liked-cleaner/internal/spotify"
)

// LibraryClient is the surface of the Spotify client a cleanup run uses.
// All three operations share one session-scoped token manager.
type LibraryClient interface {
	FetchAllLiked(ctx context.Context) ([]spotify.Track, error)
	FetchRecentSignals(ctx context.Context, ranges []spotify.TopTimeRange) (spotify.Signals, error)
	RemoveLiked(ctx context.Context, ids []string, progress func(done, total int)) (spotify.RemovalResult, error)
}

// RunStatus is the final state of a cleanup run.
type RunStatus string

const (
	// StatusCompleted means every candidate was removed.
	StatusCompleted RunStatus = "completed"
	// StatusCompletedWithFailures means the run finished but some tracks
	// could not be removed after retries.
	StatusCompletedWithFailures RunStatus = "completed_with_failures"
	// StatusFailed means the run aborted before completion.
	StatusFailed RunStatus = "failed"
	// StatusCanceled means the user declined the confirmation step.
	StatusCanceled RunStatus = "canceled"
)

// Preview is the candidate set presented for confirmation before removal.
// Transient; never persisted.
type Preview struct {
	Timeframe   Timeframe
	TotalLiked  int
	SignalCount int
	Candidates  []Candidate
	GeneratedAt time.Time
}

// Result holds the aggregate outcome of one cleanup run. Only these
// aggregates cross the persistence boundary; FailedIDs exist for rendering
// the failure message and are never stored.
type Result struct {
	Status         RunStatus
	Timeframe      Timeframe
	TotalLiked     int
	Scanned        int
	CandidateCount int
	Removed        int
	Kept           int
	FailedRemovals int
	SignalCount    int
	Retries        int
	FailedIDs      []string
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Service runs cleanups. Stateless between runs; one Service serves all
// user sessions.
type Service struct {
	logger *log.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a cleanup service.
func NewService(logger *log.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		logger: logger,
		now:    time.Now,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview fetches the library and signals and computes the candidate set
// without removing anything.
func (s *Service) Preview(ctx context.Context, client LibraryClient, tf Timeframe) (*Preview, error) {
	now := s.now()

	liked, err := client.FetchAllLiked(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching library: %w", err)
	}

	signals, err := client.FetchRecentSignals(ctx, tf.TopRanges())
	if err != nil {
		return nil, fmt.Errorf("fetching listening signals: %w", err)
	}

	candidates := Select(liked, signals, tf.Cutoff(now))
	s.logger.Info("cleanup preview computed",
		"timeframe", tf, "liked", len(liked), "candidates", len(candidates))

	return &Preview{
		Timeframe:   tf,
		TotalLiked:  len(liked),
		SignalCount: signals.Size(),
		Candidates:  candidates,
		GeneratedAt: now,
	}, nil
}

// Execute performs a full cleanup run: fetch, select, confirm, remove. The
// run walks its phases strictly in order and lands in an error state on the
// first unrecoverable failure, so the returned Result always reflects the
// true outcome. Partial removal failures complete the run with
// StatusCompletedWithFailures and the failing ids listed.
func (s *Service) Execute(ctx context.Context, client LibraryClient, tf Timeframe, events *Events) (*Result, error) {
	st := &run{}
	result := &Result{
		Status:    StatusFailed,
		Timeframe: tf,
		StartedAt: s.now(),
	}

	fail := func(err error) (*Result, error) {
		st.fail(err)
		result.Status = StatusFailed
		result.CompletedAt = s.now()
		events.completed(result)
		s.logger.Error("cleanup run failed", "phase", st.phase, "err", err)
		return result, err
	}

	// The client carries a session token manager, so reaching this point
	// means the session authenticated.
	if err := st.advance(PhaseAuthenticated); err != nil {
		return fail(err)
	}

	events.fetchStarted()
	liked, err := client.FetchAllLiked(ctx)
	if err != nil {
		return fail(fmt.Errorf("fetching library: %w", err))
	}
	if err := st.advance(PhaseLibraryFetched); err != nil {
		return fail(err)
	}
	result.TotalLiked = len(liked)
	result.Scanned = len(liked)

	signals, err := client.FetchRecentSignals(ctx, tf.TopRanges())
	if err != nil {
		return fail(fmt.Errorf("fetching listening signals: %w", err))
	}
	if err := st.advance(PhaseSignalsFetched); err != nil {
		return fail(err)
	}
	result.SignalCount = signals.Size()

	candidates := Select(liked, signals, tf.Cutoff(result.StartedAt))
	if err := st.advance(PhaseCandidatesComputed); err != nil {
		return fail(err)
	}
	result.CandidateCount = len(candidates)
	events.candidatesReady(len(candidates))

	if err := st.advance(PhaseAwaitingConfirmation); err != nil {
		return fail(err)
	}
	preview := &Preview{
		Timeframe:   tf,
		TotalLiked:  len(liked),
		SignalCount: signals.Size(),
		Candidates:  candidates,
		GeneratedAt: result.StartedAt,
	}
	if !events.confirm(preview) {
		result.Status = StatusCanceled
		result.Kept = len(liked)
		result.CompletedAt = s.now()
		events.completed(result)
		s.logger.Info("cleanup run canceled", "candidates", len(candidates))
		return result, nil
	}

	if err := st.advance(PhaseRemoving); err != nil {
		return fail(err)
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Track.ID
	}

	removal, err := client.RemoveLiked(ctx, ids, events.removalProgress)
	result.Removed = len(removal.Removed)
	result.FailedRemovals = len(removal.Failed)
	result.FailedIDs = removal.Failed
	result.Retries = removal.Retries

	var partial *spotify.PartialRemovalError
	if err != nil && !errors.As(err, &partial) {
		return fail(fmt.Errorf("removing tracks: %w", err))
	}
	if err := st.advance(PhaseCompleted); err != nil {
		return fail(err)
	}

	result.Kept = result.TotalLiked - result.Removed
	result.CompletedAt = s.now()
	if removal.AllRemoved() {
		result.Status = StatusCompleted
	} else {
		result.Status = StatusCompletedWithFailures
	}

	events.completed(result)
	s.logger.Info("cleanup run finished",
		"status", result.Status, "removed", result.Removed, "failed", result.FailedRemovals)
	return result, nil
}
