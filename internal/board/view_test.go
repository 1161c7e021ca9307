package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factboard/api/internal/category"
	"factboard/api/internal/store"
)

func TestViewDerivesDisputeAndColor(t *testing.T) {
	b := loadedBoard(t, &fakeStore{}, sampleFacts())

	view := b.View()
	require.Len(t, view.Facts, 3)
	assert.Empty(t, view.Message)
	assert.Equal(t, "all", view.CurrentCategory)
	assert.Equal(t, MaxTextLength, view.Remaining)

	assert.False(t, view.Facts[0].Disputed)
	assert.Equal(t, "#16a34a", view.Facts[0].Color)
	assert.False(t, view.Facts[1].Disputed)
	assert.True(t, view.Facts[2].Disputed)
	assert.Equal(t, "#7074b7", view.Facts[2].Color)
}

func TestViewRecomputesDisputeOnEveryRead(t *testing.T) {
	b := loadedBoard(t, &fakeStore{}, sampleFacts())
	assert.True(t, b.View().Facts[2].Disputed)

	item := sampleFacts()[2]
	item.VotesMindblowing = 10
	require.True(t, b.State().ReplaceFactByID(item))
	assert.False(t, b.View().Facts[2].Disputed)
}

func TestViewFallsBackForUnknownCategory(t *testing.T) {
	b := loadedBoard(t, &fakeStore{}, []store.Fact{{ID: 1, Category: "astrology"}})
	view := b.View()
	require.Len(t, view.Facts, 1)
	assert.Equal(t, category.FallbackColor, view.Facts[0].Color)
}

func TestViewEmptyMessage(t *testing.T) {
	b := loadedBoard(t, &fakeStore{}, nil)
	view := b.View()
	assert.Empty(t, view.Facts)
	assert.Equal(t, EmptyMessage, view.Message)
}
