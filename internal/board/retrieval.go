package board

import (
	"context"

	"go.uber.org/zap"

	"factboard/api/internal/store"
)

// Notifier raises the blocking notification shown when retrieval fails.
type Notifier interface {
	Notify(ctx context.Context, err *RetrievalError)
}

type NotifierFunc func(ctx context.Context, err *RetrievalError)

func (f NotifierFunc) Notify(ctx context.Context, err *RetrievalError) { f(ctx, err) }

// Retrieval loads the facts for the current category and replaces the
// collection wholesale. Only the most recently issued retrieval may touch
// the state; older responses are dropped.
type Retrieval struct {
	fetcher  FactFetcher
	state    *State
	notifier Notifier
	limit    int
	logger   *zap.Logger
}

func NewRetrieval(fetcher FactFetcher, state *State, notifier Notifier, limit int, logger *zap.Logger) *Retrieval {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrieval{
		fetcher:  fetcher,
		state:    state,
		notifier: notifier,
		limit:    limit,
		logger:   logger,
	}
}

// Run executes one retrieval. It returns ErrSuperseded when a newer retrieval
// was issued while this one was in flight, and a *RetrievalError on failure.
// Failures are not retried.
func (r *Retrieval) Run(ctx context.Context) error {
	token, current := r.state.beginRetrieval()
	query := store.FactQuery{Category: current, Limit: r.limit}

	facts, err := r.fetcher.FetchFacts(ctx, query)
	if err != nil {
		if !r.state.finishRetrieval(token, nil) {
			r.logger.Debug("stale retrieval failed", zap.Uint64("token", token), zap.Error(err))
			return ErrSuperseded
		}
		retrievalErr := &RetrievalError{Category: current, Err: err}
		r.logger.Warn("fact retrieval failed",
			zap.String("category", current),
			zap.Stringer("severity", retrievalErr.Severity()),
			zap.Error(err))
		if r.notifier != nil {
			r.notifier.Notify(ctx, retrievalErr)
		}
		return retrievalErr
	}

	if facts == nil {
		facts = []store.Fact{}
	}
	if !r.state.finishRetrieval(token, facts) {
		r.logger.Debug("discarding stale retrieval",
			zap.Uint64("token", token),
			zap.String("category", current),
			zap.Int("facts", len(facts)))
		return ErrSuperseded
	}
	return nil
}
