// Package board is the interaction model of the fact board: one state
// container mutated by three flows (retrieval, submission, voting) that
// talk to a remote fact store.
//
// Each flow suspends only its own region while its store call is in flight:
// the feed behind the loading flag, the form behind the uploading flag, one
// fact's vote buttons behind that fact's updating flag. Flows may run
// concurrently from separate goroutines. State changes only after the store
// answers; nothing is applied optimistically.
package board

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"factboard/api/internal/category"
	"factboard/api/internal/store"
)

type FactFetcher interface {
	FetchFacts(ctx context.Context, q store.FactQuery) ([]store.Fact, error)
}

type FactInserter interface {
	InsertFact(ctx context.Context, item store.NewFact) (store.Fact, error)
}

type VoteIncrementer interface {
	IncrementVote(ctx context.Context, id int64, column store.VoteColumn) (store.Fact, error)
}

// Store is the remote persistent store the board runs against.
type Store interface {
	FactFetcher
	FactInserter
	VoteIncrementer
}

// MutationHandler receives submission and vote failures. Without one they are
// only logged.
type MutationHandler func(err *MutationError)

func reportMutation(logger *zap.Logger, handler MutationHandler, err *MutationError) {
	fields := []zap.Field{
		zap.String("op", string(err.Op)),
		zap.Stringer("severity", err.Severity()),
		zap.Error(err.Err),
	}
	if err.Op == OpVote {
		fields = append(fields, zap.Int64("fact_id", err.FactID), zap.String("column", string(err.Column)))
	}
	logger.Warn("fact mutation failed", fields...)
	if handler != nil {
		handler(err)
	}
}

type Options struct {
	Store Store
	// Notifier is told about retrieval failures.
	Notifier Notifier
	// OnMutationError is told about submission and vote failures.
	OnMutationError MutationHandler
	// FetchLimit caps retrievals; zero means store.MaxFacts.
	FetchLimit int
	Logger     *zap.Logger
}

type Board struct {
	state      *State
	form       *Form
	retrieval  *Retrieval
	submission *Submission
	votes      *VoteTransaction
	logger     *zap.Logger
}

func New(opts Options) *Board {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	state := NewState()
	form := &Form{}
	return &Board{
		state:      state,
		form:       form,
		retrieval:  NewRetrieval(opts.Store, state, opts.Notifier, opts.FetchLimit, logger),
		submission: NewSubmission(opts.Store, state, form, opts.OnMutationError, logger),
		votes:      NewVoteTransaction(opts.Store, state, opts.OnMutationError, logger),
		logger:     logger,
	}
}

func (b *Board) State() *State { return b.state }

func (b *Board) Form() *Form { return b.form }

// Load runs a retrieval for the current category, as on mount.
func (b *Board) Load(ctx context.Context) error {
	return b.retrieval.Run(ctx)
}

// SelectCategory switches the filter and reloads the collection.
func (b *Board) SelectCategory(ctx context.Context, name string) error {
	if !category.IsFilter(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	b.state.SetCategory(name)
	return b.retrieval.Run(ctx)
}

// ToggleForm opens or closes the submission form.
func (b *Board) ToggleForm() bool {
	return b.state.ToggleForm()
}

func (b *Board) Submit(ctx context.Context) (store.Fact, error) {
	return b.submission.Submit(ctx)
}

func (b *Board) Vote(ctx context.Context, id int64, column store.VoteColumn) (store.Fact, error) {
	return b.votes.Vote(ctx, id, column)
}

func (b *Board) IsUpdating(id int64) bool {
	return b.votes.IsUpdating(id)
}
