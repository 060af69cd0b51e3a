package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"KumoSentinel/internal/model"
)

// SQLiteRecorder persists run records to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT,
			status       TEXT,
			bar_date     TEXT,
			price        REAL,
			tenkan       REAL,
			kijun        REAL,
			senkou_a     REAL,
			senkou_b     REAL,
			signal       TEXT,
			outcome      TEXT,
			error_text   TEXT,
			bars         INTEGER,
			dropped      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts rec. A zero Timestamp is stamped with the current time.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, timestamp, symbol, status, bar_date, price,
		 tenkan, kijun, senkou_a, senkou_b,
		 signal, outcome, error_text, bars, dropped)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, ts.Unix(), rec.Symbol, rec.Status, rec.Date, rec.Price,
		rec.Tenkan, rec.Kijun, rec.SenkouA, rec.SenkouB,
		string(rec.Signal), string(rec.Outcome), rec.Error, rec.Bars, rec.Dropped,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		run_id, timestamp, symbol, status, bar_date, price,
		tenkan, kijun, senkou_a, senkou_b,
		signal, outcome, error_text, bars, dropped
		FROM runs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec     RunRecord
			ts      int64
			sig     string
			outcome string
		)
		if err := rows.Scan(&rec.RunID, &ts, &rec.Symbol, &rec.Status, &rec.Date, &rec.Price,
			&rec.Tenkan, &rec.Kijun, &rec.SenkouA, &rec.SenkouB,
			&sig, &outcome, &rec.Error, &rec.Bars, &rec.Dropped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Timestamp = time.Unix(ts, 0)
		rec.Signal = model.Signal(sig)
		rec.Outcome = Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
