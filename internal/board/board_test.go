package board

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"factboard/api/internal/store"
)

// Every flow test joins the goroutines it starts.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	fetchFn     func(context.Context, store.FactQuery) ([]store.Fact, error)
	insertFn    func(context.Context, store.NewFact) (store.Fact, error)
	incrementFn func(context.Context, int64, store.VoteColumn) (store.Fact, error)

	mu             sync.Mutex
	fetchCalls     []store.FactQuery
	insertCalls    []store.NewFact
	incrementCalls int
}

func (f *fakeStore) FetchFacts(ctx context.Context, q store.FactQuery) ([]store.Fact, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, q)
	f.mu.Unlock()
	if f.fetchFn != nil {
		return f.fetchFn(ctx, q)
	}
	return []store.Fact{}, nil
}

func (f *fakeStore) InsertFact(ctx context.Context, item store.NewFact) (store.Fact, error) {
	f.mu.Lock()
	f.insertCalls = append(f.insertCalls, item)
	f.mu.Unlock()
	if f.insertFn != nil {
		return f.insertFn(ctx, item)
	}
	return store.Fact{}, errors.New("insert not configured")
}

func (f *fakeStore) IncrementVote(ctx context.Context, id int64, column store.VoteColumn) (store.Fact, error) {
	f.mu.Lock()
	f.incrementCalls++
	f.mu.Unlock()
	if f.incrementFn != nil {
		return f.incrementFn(ctx, id, column)
	}
	return store.Fact{}, errors.New("increment not configured")
}

func (f *fakeStore) inserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.insertCalls)
}

func (f *fakeStore) increments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.incrementCalls
}

func sampleFacts() []store.Fact {
	return []store.Fact{
		{ID: 3, Text: "Light takes 8 minutes from the Sun", Source: "https://nasa.gov", Category: "science", VotesInteresting: 9, VotesMindblowing: 2},
		{ID: 7, Text: "The Eiffel Tower grows in summer", Source: "https://example.com/eiffel", Category: "history", VotesInteresting: 4, VotesFalse: 1},
		{ID: 1, Text: "Singapore has a night safari", Source: "https://example.com/sg", Category: "singapore", VotesInteresting: 1, VotesFalse: 6},
	}
}

// loadedBoard returns a board whose collection already holds facts.
func loadedBoard(t *testing.T, fs *fakeStore, facts []store.Fact, opts ...func(*Options)) *Board {
	t.Helper()
	o := Options{Store: fs}
	for _, apply := range opts {
		apply(&o)
	}
	b := New(o)
	b.State().ReplaceFacts(facts)
	return b
}

func TestNewBoardStartsOnAllCategory(t *testing.T) {
	b := New(Options{Store: &fakeStore{}})
	snap := b.State().Snapshot()
	assert.Equal(t, "all", snap.CurrentCategory)
	assert.Empty(t, snap.Facts)
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.ShowForm)
}

func TestToggleForm(t *testing.T) {
	b := New(Options{Store: &fakeStore{}})
	assert.True(t, b.ToggleForm())
	assert.True(t, b.State().ShowForm())
	assert.False(t, b.ToggleForm())
}

func TestSeverityClassification(t *testing.T) {
	assert.Equal(t, Recoverable, Classify(errors.New("connection reset")))
	assert.Equal(t, Recoverable, Classify(store.ErrNotFound))
	assert.Equal(t, Escalate, Classify(ErrInconsistentRow))

	merr := &MutationError{Op: OpVote, FactID: 4, Column: store.VotesFalse, Err: ErrInconsistentRow}
	assert.Equal(t, Escalate, merr.Severity())
	assert.Contains(t, merr.Error(), "vote votesFalse on fact 4")
	assert.Equal(t, "escalate", Escalate.String())

	rerr := &RetrievalError{Category: "news", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(rerr, context.DeadlineExceeded))
	assert.Equal(t, Recoverable, rerr.Severity())
}
