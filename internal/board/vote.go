package board

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"factboard/api/internal/store"
)

// voteTracker holds the per-fact updating flags. A flag disables the vote
// buttons of its own fact only.
type voteTracker struct {
	mu       sync.Mutex
	updating map[int64]struct{}
}

func newVoteTracker() *voteTracker {
	return &voteTracker{updating: make(map[int64]struct{})}
}

func (t *voteTracker) begin(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.updating[id]; busy {
		return false
	}
	t.updating[id] = struct{}{}
	return true
}

func (t *voteTracker) end(id int64) {
	t.mu.Lock()
	delete(t.updating, id)
	t.mu.Unlock()
}

func (t *voteTracker) active(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.updating[id]
	return busy
}

// VoteTransaction increments one counter of one fact and swaps in the row
// the store confirms. The local collection is never incremented on its own.
type VoteTransaction struct {
	incrementer VoteIncrementer
	state       *State
	tracker     *voteTracker
	onError     MutationHandler
	logger      *zap.Logger
}

func NewVoteTransaction(incrementer VoteIncrementer, state *State, onError MutationHandler, logger *zap.Logger) *VoteTransaction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteTransaction{
		incrementer: incrementer,
		state:       state,
		tracker:     newVoteTracker(),
		onError:     onError,
		logger:      logger,
	}
}

// IsUpdating reports whether a vote on id is in flight.
func (v *VoteTransaction) IsUpdating(id int64) bool {
	return v.tracker.active(id)
}

// Vote increments column on fact id. Facts not in the collection and facts
// with a vote already in flight are rejected before reaching the store.
func (v *VoteTransaction) Vote(ctx context.Context, id int64, column store.VoteColumn) (store.Fact, error) {
	if !column.Valid() {
		return store.Fact{}, fmt.Errorf("%w: %q", store.ErrUnknownColumn, column)
	}
	if _, ok := v.state.Fact(id); !ok {
		return store.Fact{}, ErrFactNotLoaded
	}
	if !v.tracker.begin(id) {
		return store.Fact{}, ErrVoteInFlight
	}
	defer v.tracker.end(id)

	updated, err := v.incrementer.IncrementVote(ctx, id, column)
	if err == nil && updated.ID != id {
		err = fmt.Errorf("%w: asked for fact %d, got %d", ErrInconsistentRow, id, updated.ID)
	}
	if err != nil {
		mutationErr := &MutationError{Op: OpVote, FactID: id, Column: column, Err: err}
		reportMutation(v.logger, v.onError, mutationErr)
		return store.Fact{}, mutationErr
	}

	if !v.state.ReplaceFactByID(updated) {
		// A retrieval replaced the collection while the vote was in flight.
		v.logger.Debug("voted fact no longer loaded", zap.Int64("fact_id", id))
	}
	return updated, nil
}
