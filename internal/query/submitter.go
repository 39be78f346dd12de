package query

import (
	"context"
	"strings"
	"sync"

	"github.com/spigell/assessment-finder/internal/logger"
	"github.com/spigell/assessment-finder/internal/recommend"

	"go.uber.org/zap"
)

// Fetcher performs the network call for a validated query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (*recommend.Response, error)
}

// Observer is notified of every committed state transition.
type Observer func(State)

// Submitter owns the interaction state for one user and runs one request per
// submission. It is safe for concurrent use; overlapping submissions are
// resolved in favour of the latest one.
type Submitter struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu        sync.Mutex
	seq       uint64
	state     State
	observers []Observer
}

func New(fetcher Fetcher, log *zap.Logger) *Submitter {
	return &Submitter{
		fetcher: fetcher,
		logger:  logger.WithFields(log),
		state:   idle(),
	}
}

// Subscribe registers fn for every committed transition. Observers run with
// the submitter locked and must not call back into it.
func (s *Submitter) Subscribe(fn Observer) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// State returns the current snapshot.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit validates the query, fetches recommendations for it and returns the
// state once the request settles. When a newer submission was issued in the
// meantime, this settlement is dropped and the current state is returned.
func (s *Submitter) Submit(ctx context.Context, q string) State {
	s.mu.Lock()
	return s.submitLocked(ctx, q)
}

// TrySubmit is Submit for callers whose trigger is disabled while loading: it
// refuses (false) when a request is in flight. The check and the transition to
// loading happen under the same lock.
func (s *Submitter) TrySubmit(ctx context.Context, q string) (State, bool) {
	s.mu.Lock()
	if s.state.Loading() {
		st := s.state
		s.mu.Unlock()
		return st, false
	}
	return s.submitLocked(ctx, q), true
}

// submitLocked must be called with s.mu held; it releases it.
func (s *Submitter) submitLocked(ctx context.Context, q string) State {
	s.seq++
	seq := s.seq

	if strings.TrimSpace(q) == "" {
		s.commit(invalid(seq, q))
		st := s.state
		s.mu.Unlock()

		s.logger.Debug("rejected empty query", zap.Uint64(logger.FieldSeq, seq))
		return st
	}

	s.commit(loading(seq, q))
	s.mu.Unlock()

	log := s.logger.With(logger.QueryFields(seq, q)...)
	log.Debug("submitting query")

	resp, err := s.fetcher.Fetch(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		log.Info("discarding superseded settlement", zap.Uint64("latest_seq", s.seq), zap.Bool("failed", err != nil))
		return s.state
	}

	if err != nil {
		log.Warn("recommendation request failed", zap.Error(err))
		s.commit(failed(seq, q))
		return s.state
	}

	var results []recommend.Recommendation
	if resp != nil {
		results = resp.Recommendations
	}

	log.Info("got recommendations", zap.Int("count", len(results)))
	s.commit(succeeded(seq, q, results))

	return s.state
}

// commit must be called with s.mu held.
func (s *Submitter) commit(st State) {
	s.state = st
	for _, fn := range s.observers {
		fn(st)
	}
}
