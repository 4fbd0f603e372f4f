// Package store persists finished conversions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

var ErrNotFound = eris.New("conversion not found")

// Conversion is one stored conversion result. Tree holds the rendered JSON
// tree and is empty for statuses that produce none.
type Conversion struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	ContentHash string          `json:"content_hash"`
	OptionsKey  string          `json:"options_key"`
	Status      string          `json:"status"`
	Strategy    string          `json:"strategy"`
	Tree        json.RawMessage `json:"tree,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	Source string
	Status string
	Limit  int
	Offset int
}

type SQLiteStore struct {
	db *sql.DB
}

// Open opens the database at dsn and configures WAL mode. Use ":memory:"
// for a throwaway store.
func Open(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS conversions (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	options_key  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	strategy     TEXT NOT NULL DEFAULT '',
	tree         TEXT,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversions_hash ON conversions(content_hash, options_key);
CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts c, assigning an ID and timestamp when they are unset.
func (s *SQLiteStore) Save(ctx context.Context, c *Conversion) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	var tree sql.NullString
	if len(c.Tree) > 0 {
		tree = sql.NullString{String: string(c.Tree), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, source, content_hash, options_key, status, strategy, tree, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Source, c.ContentHash, c.OptionsKey, c.Status, c.Strategy, tree, c.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert conversion %s", c.ID)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Conversion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, content_hash, options_key, status, strategy, tree, created_at
		 FROM conversions WHERE id = ?`, id)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return c, err
}

// FindByHash returns the newest conversion of the same content with the same
// options, or nil when there is none.
func (s *SQLiteStore) FindByHash(ctx context.Context, contentHash, optionsKey string) (*Conversion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, content_hash, options_key, status, strategy, tree, created_at
		 FROM conversions WHERE content_hash = ? AND options_key = ?
		 ORDER BY created_at DESC LIMIT 1`, contentHash, optionsKey)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// List returns conversions newest first, without their trees.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Conversion, error) {
	query := `SELECT id, source, content_hash, options_key, status, strategy, NULL, created_at
		FROM conversions WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conversions")
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list conversions iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanConversion(row scannable) (*Conversion, error) {
	var (
		c    Conversion
		tree sql.NullString
	)
	err := row.Scan(&c.ID, &c.Source, &c.ContentHash, &c.OptionsKey, &c.Status, &c.Strategy, &tree, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan conversion")
	}
	if tree.Valid {
		c.Tree = json.RawMessage(tree.String)
	}
	return &c, nil
}
