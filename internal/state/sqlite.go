package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps alert keys in an "alerts" table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and ensures the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, persistErr("sqlite", "open", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, persistErr("sqlite", "open", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, persistErr("sqlite", "set WAL mode", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS alerts (
		key        TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, persistErr("sqlite", "migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM alerts WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, persistErr("sqlite", "read", err)
	}
	return true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (key, created_at) VALUES (?, ?)`,
		key, time.Now().Unix())
	return persistErr("sqlite", "write", err)
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM alerts ORDER BY key`)
	if err != nil {
		return nil, persistErr("sqlite", "read", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, persistErr("sqlite", "scan", err)
		}
		keys = append(keys, k)
	}
	return keys, persistErr("sqlite", "read", rows.Err())
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := fmt.Sprintf(`DELETE FROM alerts WHERE key IN (%s)`, strings.TrimSuffix(strings.Repeat("?,", len(keys)), ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return persistErr("sqlite", "delete", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
