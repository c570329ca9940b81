// Package store persists garments, laundry entries and outfits in SQLite
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

func init() {
	// SQLite's lower() only folds ASCII, colors like "Marrón" need full Unicode folding.
	sqlite.MustRegisterDeterministicScalarFunction("contains_fold", 2, containsFold)
}

// containsFold reports whether the first argument contains the second, ignoring case.
func containsFold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	haystack, ok1 := args[0].(string)
	needle, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return int64(0), nil
	}
	if strings.Contains(strings.ToLower(haystack), strings.ToLower(needle)) {
		return int64(1), nil
	}
	return int64(0), nil
}

const schema = `
CREATE TABLE IF NOT EXISTS garments (
	id TEXT PRIMARY KEY,
	image_url TEXT NOT NULL,
	type TEXT NOT NULL,
	color TEXT NOT NULL,
	season TEXT NOT NULL DEFAULT '[]',
	occasion TEXT NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'AVAILABLE',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_garments_status ON garments(status);
CREATE INDEX IF NOT EXISTS idx_garments_type ON garments(type);

CREATE TABLE IF NOT EXISTS laundry_queue (
	id TEXT PRIMARY KEY,
	garment_id TEXT NOT NULL UNIQUE REFERENCES garments(id) ON DELETE CASCADE,
	added_at INTEGER NOT NULL,
	estimated_available_at INTEGER
);

CREATE TABLE IF NOT EXISTS outfits (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	ai_suggestion INTEGER NOT NULL DEFAULT 0,
	prompt TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS outfit_garments (
	outfit_id TEXT NOT NULL REFERENCES outfits(id) ON DELETE CASCADE,
	garment_id TEXT NOT NULL REFERENCES garments(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	PRIMARY KEY (outfit_id, garment_id)
);
`

type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer keeps sqlite free of SQLITE_BUSY under the HTTP server
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now, newID: uuid.NewString}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
