package board

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factboard/api/internal/store"
)

func validDraft() Draft {
	return Draft{
		Text:     "Honey never spoils",
		Source:   "https://example.com/honey",
		Category: "history",
	}
}

func openForm(t *testing.T, b *Board, d Draft) {
	t.Helper()
	b.State().SetFormVisible(true)
	require.NoError(t, b.Form().Fill(d))
}

func confirmingStore() *fakeStore {
	return &fakeStore{
		insertFn: func(_ context.Context, item store.NewFact) (store.Fact, error) {
			return store.Fact{ID: 100, Text: item.Text, Source: item.Source, Category: item.Category}, nil
		},
	}
}

func TestIsHTTPURL(t *testing.T) {
	for raw, want := range map[string]bool{
		"https://example.com":         true,
		"http://example.com/a?b=c#d":  true,
		"HTTPS://EXAMPLE.COM":         true,
		"ftp://example.com/file":      false,
		"example.com":                 false,
		"/relative/path":              false,
		"https://":                    false,
		"not a url":                   false,
		"javascript:alert(1)":         false,
		"":                            false,
		"http://[::1]:namedport/path": false,
	} {
		assert.Equal(t, want, IsHTTPURL(raw), raw)
	}
}

func TestDraftValid(t *testing.T) {
	assert.True(t, validDraft().Valid())

	exact := validDraft()
	exact.Text = strings.Repeat("é", MaxTextLength)
	assert.True(t, exact.Valid(), "limit counts characters, not bytes")

	cases := map[string]func(*Draft){
		"empty text":       func(d *Draft) { d.Text = "" },
		"text too long":    func(d *Draft) { d.Text = strings.Repeat("a", MaxTextLength+1) },
		"empty source":     func(d *Draft) { d.Source = "" },
		"non-http source":  func(d *Draft) { d.Source = "ftp://example.com" },
		"relative source":  func(d *Draft) { d.Source = "example.com/honey" },
		"empty category":   func(d *Draft) { d.Category = "" },
		"unknown category": func(d *Draft) { d.Category = "astrology" },
		"pseudo category":  func(d *Draft) { d.Category = "all" },
	}
	for name, mutate := range cases {
		d := validDraft()
		mutate(&d)
		assert.False(t, d.Valid(), name)
	}
}

func TestSubmitWithLongTextIsNoop(t *testing.T) {
	fs := confirmingStore()
	b := loadedBoard(t, fs, sampleFacts())
	d := validDraft()
	d.Text = strings.Repeat("x", MaxTextLength+1)
	openForm(t, b, d)

	_, err := b.Submit(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidDraft))
	assert.Equal(t, sampleFacts(), b.State().Facts())
	assert.True(t, b.State().ShowForm())
	assert.Equal(t, d, b.Form().Draft())
	assert.False(t, b.Form().Uploading())
	assert.Zero(t, fs.inserts())
}

func TestSubmitWithBadSourceIsNoop(t *testing.T) {
	for _, source := range []string{"not a url", "mailto:someone@example.com", "ftp://example.com/x"} {
		fs := confirmingStore()
		b := loadedBoard(t, fs, sampleFacts())
		d := validDraft()
		d.Source = source
		openForm(t, b, d)

		_, err := b.Submit(context.Background())
		assert.True(t, errors.Is(err, ErrInvalidDraft), source)
		assert.Equal(t, sampleFacts(), b.State().Facts(), source)
		assert.True(t, b.State().ShowForm(), source)
		assert.Zero(t, fs.inserts(), source)
	}
}

func TestSubmitPrependsConfirmedRowAndClosesForm(t *testing.T) {
	fs := confirmingStore()
	b := loadedBoard(t, fs, sampleFacts())
	openForm(t, b, validDraft())

	created, err := b.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), created.ID)

	facts := b.State().Facts()
	require.Len(t, facts, len(sampleFacts())+1)
	assert.Equal(t, created, facts[0])
	assert.Equal(t, sampleFacts(), facts[1:])
	assert.False(t, b.State().ShowForm())
	assert.Equal(t, Draft{}, b.Form().Draft())
	assert.False(t, b.Form().Uploading())

	require.Len(t, fs.insertCalls, 1)
	assert.Equal(t, store.NewFact{Text: "Honey never spoils", Source: "https://example.com/honey", Category: "history"}, fs.insertCalls[0])
}

func TestSubmitFailureKeepsDraftAndForm(t *testing.T) {
	insertErr := errors.New("insert rejected")
	fs := &fakeStore{
		insertFn: func(context.Context, store.NewFact) (store.Fact, error) {
			return store.Fact{}, insertErr
		},
	}
	var handled []*MutationError
	b := loadedBoard(t, fs, sampleFacts(), func(o *Options) {
		o.OnMutationError = func(err *MutationError) { handled = append(handled, err) }
	})
	openForm(t, b, validDraft())

	_, err := b.Submit(context.Background())
	var mutationErr *MutationError
	require.True(t, errors.As(err, &mutationErr))
	assert.Equal(t, OpSubmit, mutationErr.Op)
	assert.True(t, errors.Is(err, insertErr))
	assert.Equal(t, Recoverable, mutationErr.Severity())

	assert.Equal(t, sampleFacts(), b.State().Facts())
	assert.True(t, b.State().ShowForm())
	assert.Equal(t, validDraft(), b.Form().Draft())
	assert.False(t, b.Form().Uploading())
	require.Len(t, handled, 1)
	assert.Same(t, mutationErr, handled[0])
}

func TestSubmitWithoutConfirmedIDEscalates(t *testing.T) {
	fs := &fakeStore{
		insertFn: func(_ context.Context, item store.NewFact) (store.Fact, error) {
			return store.Fact{Text: item.Text}, nil
		},
	}
	b := loadedBoard(t, fs, sampleFacts())
	openForm(t, b, validDraft())

	_, err := b.Submit(context.Background())
	var mutationErr *MutationError
	require.True(t, errors.As(err, &mutationErr))
	assert.Equal(t, Escalate, mutationErr.Severity())
	assert.Equal(t, sampleFacts(), b.State().Facts())
}

func TestFormIsDisabledWhileUploading(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fs := &fakeStore{
		insertFn: func(_ context.Context, item store.NewFact) (store.Fact, error) {
			close(started)
			<-release
			return store.Fact{ID: 55, Text: item.Text, Source: item.Source, Category: item.Category}, nil
		},
	}
	b := loadedBoard(t, fs, nil)
	openForm(t, b, validDraft())

	done := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background())
		done <- err
	}()
	<-started

	assert.True(t, b.Form().Uploading())
	assert.True(t, b.View().Uploading)
	assert.True(t, errors.Is(b.Form().SetText("changed"), ErrUploadInFlight))
	_, err := b.Submit(context.Background())
	assert.True(t, errors.Is(err, ErrUploadInFlight))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fs.inserts())
	assert.Equal(t, []int64{55}, ids(b.State().Facts()))
	require.NoError(t, b.Form().SetText("next"))
}

func TestFormRemaining(t *testing.T) {
	f := &Form{}
	assert.Equal(t, MaxTextLength, f.Remaining())
	require.NoError(t, f.SetText("héllo"))
	assert.Equal(t, MaxTextLength-5, f.Remaining())
	require.NoError(t, f.SetText(strings.Repeat("a", MaxTextLength+3)))
	assert.Equal(t, -3, f.Remaining())

	require.NoError(t, f.SetSource("https://example.com"))
	require.NoError(t, f.SetCategory("news"))
	assert.Equal(t, "https://example.com", f.Draft().Source)
	assert.Equal(t, "news", f.Draft().Category)
}
