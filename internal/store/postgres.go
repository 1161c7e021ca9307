package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const factColumns = `id, text, source, category, votes_interesting, votes_mindblowing, votes_false, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (Fact, error) {
	var item Fact
	err := row.Scan(
		&item.ID,
		&item.Text,
		&item.Source,
		&item.Category,
		&item.VotesInteresting,
		&item.VotesMindblowing,
		&item.VotesFalse,
		&item.CreatedAt,
	)
	return item, err
}

// FetchFacts selects every column, optionally filtered by category, ordered by
// interesting votes and capped at the query limit.
func (s *PostgresStore) FetchFacts(ctx context.Context, q FactQuery) ([]Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts`
	args := []any{}
	if q.Filtered() {
		query += ` WHERE category = $1`
		args = append(args, q.Category)
	}
	query += fmt.Sprintf(` ORDER BY votes_interesting DESC, id ASC LIMIT $%d`, len(args)+1)
	args = append(args, q.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	return collectFacts(rows)
}

func (s *PostgresStore) FactsAfter(ctx context.Context, afterID int64, size int) ([]Fact, error) {
	if size <= 0 {
		return []Fact{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		afterID, size,
	)
	if err != nil {
		return nil, fmt.Errorf("page facts: %w", err)
	}
	return collectFacts(rows)
}

func (s *PostgresStore) InsertFact(ctx context.Context, item NewFact) (Fact, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO facts (text, source, category)
		VALUES ($1, $2, $3)
		RETURNING `+factColumns,
		item.Text, item.Source, item.Category,
	)
	created, err := scanFact(row)
	if err != nil {
		return Fact{}, fmt.Errorf("insert fact: %w", err)
	}
	return created, nil
}

// IncrementVote adds one to column in a single statement so concurrent voters
// never lose an increment, and returns the row as stored afterwards.
func (s *PostgresStore) IncrementVote(ctx context.Context, id int64, column VoteColumn) (Fact, error) {
	if !column.Valid() {
		return Fact{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	col := column.sqlColumn()
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE facts SET %s = %s + 1
		WHERE id = $1
		RETURNING %s`, col, col, factColumns),
		id,
	)
	updated, err := scanFact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Fact{}, ErrNotFound
	}
	if err != nil {
		return Fact{}, fmt.Errorf("increment %s: %w", column, err)
	}
	return updated, nil
}

// SearchFacts runs a full-text query over fact text.
func (s *PostgresStore) SearchFacts(ctx context.Context, text, categoryName string, limit int) ([]Fact, error) {
	if strings.TrimSpace(text) == "" {
		return []Fact{}, nil
	}
	if limit <= 0 || limit > MaxFacts {
		limit = 20
	}

	query := `SELECT ` + factColumns + ` FROM facts WHERE fts @@ plainto_tsquery('english', $1)`
	args := []any{text}
	if (FactQuery{Category: categoryName}).Filtered() {
		query += ` AND category = $2`
		args = append(args, categoryName)
	}
	query += fmt.Sprintf(` ORDER BY ts_rank(fts, plainto_tsquery('english', $1)) DESC, votes_interesting DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	return collectFacts(rows)
}

func collectFacts(rows *sql.Rows) ([]Fact, error) {
	defer rows.Close()

	items := make([]Fact, 0)
	for rows.Next() {
		item, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return items, nil
}
