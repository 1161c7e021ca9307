package board

import (
	"errors"
	"fmt"

	"factboard/api/internal/store"
)

var (
	// ErrSuperseded is returned by a retrieval whose response arrived after a
	// newer retrieval was issued. Its result was discarded.
	ErrSuperseded = errors.New("retrieval superseded by a newer request")
	// ErrInvalidDraft is returned when the form content fails validation.
	// No store call is made and the form stays as it was.
	ErrInvalidDraft    = errors.New("draft is incomplete or invalid")
	ErrUploadInFlight  = errors.New("submission already in progress")
	ErrVoteInFlight    = errors.New("vote already in progress for this fact")
	ErrFactNotLoaded   = errors.New("fact is not in the current collection")
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInconsistentRow marks a store confirmation that cannot belong to the
	// request it answers.
	ErrInconsistentRow = errors.New("store confirmed an inconsistent row")
)

type Severity int

const (
	// Recoverable errors are shown (or swallowed) and the board carries on.
	Recoverable Severity = iota
	// Escalate marks errors that indicate a broken store contract.
	Escalate
)

func (s Severity) String() string {
	switch s {
	case Recoverable:
		return "recoverable"
	case Escalate:
		return "escalate"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Classify decides how a caller should treat err.
func Classify(err error) Severity {
	if errors.Is(err, ErrInconsistentRow) {
		return Escalate
	}
	return Recoverable
}

// RetrievalError wraps a failed fact retrieval.
type RetrievalError struct {
	Category string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve facts (category %s): %v", e.Category, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Severity() Severity { return Classify(e.Err) }

type MutationOp string

const (
	OpSubmit MutationOp = "submit"
	OpVote   MutationOp = "vote"
)

// MutationError wraps a failed submission or vote. The collection is never
// modified when one is produced.
type MutationError struct {
	Op     MutationOp
	FactID int64
	Column store.VoteColumn
	Err    error
}

func (e *MutationError) Error() string {
	if e.Op == OpVote {
		return fmt.Sprintf("vote %s on fact %d: %v", e.Column, e.FactID, e.Err)
	}
	return fmt.Sprintf("%s fact: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

func (e *MutationError) Severity() Severity { return Classify(e.Err) }
