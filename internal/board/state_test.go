package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factboard/api/internal/store"
)

func TestReplaceFactsIsWholesale(t *testing.T) {
	s := NewState()
	s.ReplaceFacts(sampleFacts())
	require.Len(t, s.Facts(), 3)

	s.ReplaceFacts([]store.Fact{})
	assert.Empty(t, s.Facts())
}

func TestReplaceFactsCopiesInput(t *testing.T) {
	s := NewState()
	input := sampleFacts()
	s.ReplaceFacts(input)
	input[0].Text = "mutated"
	assert.Equal(t, "Light takes 8 minutes from the Sun", s.Facts()[0].Text)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := NewState()
	s.ReplaceFacts(sampleFacts())
	snap := s.Snapshot()
	snap.Facts[0].VotesInteresting = 100
	fact, ok := s.Fact(3)
	require.True(t, ok)
	assert.Equal(t, 9, fact.VotesInteresting)
}

func TestSnapshotReflectsTransitions(t *testing.T) {
	s := NewState()
	s.ReplaceFacts(sampleFacts())
	s.SetCategory("history")
	s.SetLoading(true)
	s.ToggleForm()

	want := Snapshot{
		CurrentCategory: "history",
		Facts:           sampleFacts(),
		IsLoading:       true,
		ShowForm:        true,
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestPrependFactKeepsOrder(t *testing.T) {
	s := NewState()
	s.ReplaceFacts(sampleFacts())
	s.PrependFact(store.Fact{ID: 42, Category: "news"})

	facts := s.Facts()
	require.Len(t, facts, 4)
	assert.Equal(t, []int64{42, 3, 7, 1}, ids(facts))
}

func TestPrependFactCapsCollection(t *testing.T) {
	s := NewState()
	full := make([]store.Fact, store.MaxFacts)
	for i := range full {
		full[i] = store.Fact{ID: int64(i + 1)}
	}
	s.ReplaceFacts(full)
	s.PrependFact(store.Fact{ID: 5000})

	facts := s.Facts()
	require.Len(t, facts, store.MaxFacts)
	assert.Equal(t, int64(5000), facts[0].ID)
	assert.Equal(t, int64(store.MaxFacts-1), facts[len(facts)-1].ID)
}

func TestReplaceFactsCapsCollection(t *testing.T) {
	s := NewState()
	s.ReplaceFacts(make([]store.Fact, store.MaxFacts+10))
	assert.Len(t, s.Facts(), store.MaxFacts)
}

func TestReplaceFactByIDDoesNotResort(t *testing.T) {
	s := NewState()
	s.ReplaceFacts(sampleFacts())

	bumped := sampleFacts()[2]
	bumped.VotesInteresting = 50
	assert.True(t, s.ReplaceFactByID(bumped))
	facts := s.Facts()
	assert.Equal(t, []int64{3, 7, 1}, ids(facts))
	assert.Equal(t, 50, facts[2].VotesInteresting)

	assert.False(t, s.ReplaceFactByID(store.Fact{ID: 999}))
	assert.Len(t, s.Facts(), 3)
}

func TestFlagTransitions(t *testing.T) {
	s := NewState()
	s.SetLoading(true)
	assert.True(t, s.IsLoading())
	s.SetLoading(false)
	assert.False(t, s.IsLoading())

	s.SetFormVisible(true)
	assert.True(t, s.ShowForm())
	s.SetFormVisible(false)
	assert.False(t, s.ShowForm())

	s.SetCategory("news")
	assert.Equal(t, "news", s.CurrentCategory())
}

func TestFinishRetrievalIgnoresOldTokens(t *testing.T) {
	s := NewState()
	first, _ := s.beginRetrieval()
	second, _ := s.beginRetrieval()
	assert.Greater(t, second, first)

	assert.False(t, s.finishRetrieval(first, sampleFacts()))
	assert.Empty(t, s.Facts())
	assert.True(t, s.IsLoading())

	assert.True(t, s.finishRetrieval(second, sampleFacts()[:1]))
	assert.Len(t, s.Facts(), 1)
	assert.False(t, s.IsLoading())
}

func ids(facts []store.Fact) []int64 {
	out := make([]int64, 0, len(facts))
	for _, item := range facts {
		out = append(out, item.ID)
	}
	return out
}
