package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"factboard/api/internal/category"
)

// MaxFacts caps every retrieval.
const MaxFacts = 1000

// ErrNotFound is returned when a vote targets an id the store does not have.
var ErrNotFound = errors.New("fact not found")

// ErrUnknownColumn is returned for a vote column outside the three counters.
var ErrUnknownColumn = errors.New("unknown vote column")

type Fact struct {
	ID               int64     `json:"id"`
	Text             string    `json:"text"`
	Source           string    `json:"source"`
	Category         string    `json:"category"`
	VotesInteresting int       `json:"votesInteresting"`
	VotesMindblowing int       `json:"votesMindblowing"`
	VotesFalse       int       `json:"votesFalse"`
	CreatedAt        time.Time `json:"createdAt"`
}

// IsDisputed reports whether false votes outnumber the positive ones.
// It is derived on every call and never stored.
func (f Fact) IsDisputed() bool {
	return f.VotesInteresting+f.VotesMindblowing < f.VotesFalse
}

// Votes returns the counter for column.
func (f Fact) Votes(column VoteColumn) int {
	switch column {
	case VotesInteresting:
		return f.VotesInteresting
	case VotesMindblowing:
		return f.VotesMindblowing
	case VotesFalse:
		return f.VotesFalse
	default:
		return 0
	}
}

// NewFact is the insert payload. Vote counters are defaulted by the store.
type NewFact struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// FactQuery filters and caps a retrieval. Ordering is fixed to
// votesInteresting descending.
type FactQuery struct {
	Category string
	Limit    int
}

// Filtered reports whether the query carries an equality filter on category.
func (q FactQuery) Filtered() bool {
	return q.Category != "" && q.Category != category.All
}

// EffectiveLimit clamps the limit to 1..MaxFacts; zero means MaxFacts.
func (q FactQuery) EffectiveLimit() int {
	if q.Limit <= 0 || q.Limit > MaxFacts {
		return MaxFacts
	}
	return q.Limit
}

type VoteColumn string

const (
	VotesInteresting VoteColumn = "votesInteresting"
	VotesMindblowing VoteColumn = "votesMindblowing"
	VotesFalse       VoteColumn = "votesFalse"
)

// VoteColumns lists the counters in button order.
var VoteColumns = []VoteColumn{VotesInteresting, VotesMindblowing, VotesFalse}

func (c VoteColumn) Valid() bool {
	switch c {
	case VotesInteresting, VotesMindblowing, VotesFalse:
		return true
	}
	return false
}

// ParseVoteColumn accepts a column name or its short form
// (interesting, mindblowing, false).
func ParseVoteColumn(raw string) (VoteColumn, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "votesinteresting", "interesting":
		return VotesInteresting, nil
	case "votesmindblowing", "mindblowing":
		return VotesMindblowing, nil
	case "votesfalse", "false":
		return VotesFalse, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, raw)
}

// sqlColumn maps a vote column to its table column. Only ever called
// with a validated column.
func (c VoteColumn) sqlColumn() string {
	switch c {
	case VotesInteresting:
		return "votes_interesting"
	case VotesMindblowing:
		return "votes_mindblowing"
	case VotesFalse:
		return "votes_false"
	}
	return ""
}

// Backend is what the API server needs from a fact store.
type Backend interface {
	FetchFacts(ctx context.Context, q FactQuery) ([]Fact, error)
	InsertFact(ctx context.Context, item NewFact) (Fact, error)
	IncrementVote(ctx context.Context, id int64, column VoteColumn) (Fact, error)
	// FactsAfter pages through every fact by ascending id, ignoring MaxFacts.
	FactsAfter(ctx context.Context, afterID int64, size int) ([]Fact, error)
	Ping(ctx context.Context) error
}

var (
	_ Backend = (*PostgresStore)(nil)
	_ Backend = (*RedisStore)(nil)
)
