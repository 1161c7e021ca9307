package board

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"factboard/api/internal/category"
	"factboard/api/internal/store"
)

// MaxTextLength is the longest fact text accepted, in characters.
const MaxTextLength = 200

// Draft is the content of the submission form.
type Draft struct {
	Text     string
	Source   string
	Category string
}

// Valid reports whether every field passes. Callers get no per-field detail.
func (d Draft) Valid() bool {
	textLen := utf8.RuneCountInString(d.Text)
	return textLen > 0 &&
		textLen <= MaxTextLength &&
		IsHTTPURL(d.Source) &&
		category.Contains(d.Category)
}

// IsHTTPURL reports whether raw parses as an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Form holds the draft and the uploading flag that disables every input.
type Form struct {
	mu        sync.Mutex
	draft     Draft
	uploading bool
}

func (f *Form) setField(apply func(*Draft)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploading {
		return ErrUploadInFlight
	}
	apply(&f.draft)
	return nil
}

func (f *Form) SetText(text string) error {
	return f.setField(func(d *Draft) { d.Text = text })
}

func (f *Form) SetSource(source string) error {
	return f.setField(func(d *Draft) { d.Source = source })
}

func (f *Form) SetCategory(name string) error {
	return f.setField(func(d *Draft) { d.Category = name })
}

// Fill sets all three fields at once.
func (f *Form) Fill(d Draft) error {
	return f.setField(func(cur *Draft) { *cur = d })
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form) Uploading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploading
}

// Remaining is the character budget left for the text field. It goes
// negative once the text is too long.
func (f *Form) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return MaxTextLength - utf8.RuneCountInString(f.draft.Text)
}

func (f *Form) startUpload() (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploading {
		return Draft{}, ErrUploadInFlight
	}
	if !f.draft.Valid() {
		return Draft{}, ErrInvalidDraft
	}
	f.uploading = true
	return f.draft, nil
}

func (f *Form) finishUpload(succeeded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploading = false
	if succeeded {
		f.draft = Draft{}
	}
}

// Submission validates the form and inserts the draft as a new fact.
type Submission struct {
	inserter FactInserter
	state    *State
	form     *Form
	onError  MutationHandler
	logger   *zap.Logger
}

func NewSubmission(inserter FactInserter, state *State, form *Form, onError MutationHandler, logger *zap.Logger) *Submission {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submission{
		inserter: inserter,
		state:    state,
		form:     form,
		onError:  onError,
		logger:   logger,
	}
}

// Submit sends the current draft. An invalid draft returns ErrInvalidDraft
// without touching anything. On success the confirmed row is prepended, the
// form is cleared and hidden. On failure the draft is kept, the form stays
// open and a *MutationError is returned.
func (p *Submission) Submit(ctx context.Context) (store.Fact, error) {
	draft, err := p.form.startUpload()
	if err != nil {
		return store.Fact{}, err
	}

	created, err := p.inserter.InsertFact(ctx, store.NewFact{
		Text:     draft.Text,
		Source:   draft.Source,
		Category: draft.Category,
	})
	if err == nil && created.ID == 0 {
		err = fmt.Errorf("%w: insert returned no id", ErrInconsistentRow)
	}
	if err != nil {
		p.form.finishUpload(false)
		mutationErr := &MutationError{Op: OpSubmit, Err: err}
		reportMutation(p.logger, p.onError, mutationErr)
		return store.Fact{}, mutationErr
	}

	p.form.finishUpload(true)
	p.state.PrependFact(created)
	p.state.SetFormVisible(false)
	return created, nil
}
