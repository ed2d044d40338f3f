package runner

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// History is an optional SQLite registry of completed runs, useful for
// finding which cache bucket a past run used and how it went.
type History struct {
	db *sql.DB
}

// RunRecord is one completed multi-chain run.
type RunRecord struct {
	RunHash   string
	BaseSeed  int64
	Chains    int
	Succeeded int
	Method    string
	StartedAt time.Time
	Duration  time.Duration
}

// OpenHistory opens (or creates) the registry at path. ":memory:" gives
// an in-process registry.
func OpenHistory(path string) (*History, error) {
	connStr := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("runner: create history dir: %w", err)
		}
		// WAL so concurrent runners sharing a registry don't block.
		connStr = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("runner: open history: %w", err)
	}
	if err := createRunsTable(db); err != nil {
		db.Close()
		return nil, err
	}
	return &History{db: db}, nil
}

func createRunsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			run_hash TEXT NOT NULL,
			base_seed INTEGER NOT NULL,
			chains INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			method TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(run_hash);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("runner: create runs table: %w", err)
	}
	return nil
}

// Record appends one completed run.
func (h *History) Record(ctx context.Context, rec RunRecord) error {
	query := `
		INSERT INTO runs (run_hash, base_seed, chains, succeeded, method, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.db.ExecContext(ctx, query,
		rec.RunHash, rec.BaseSeed, rec.Chains, rec.Succeeded, rec.Method,
		rec.StartedAt.Unix(), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("runner: record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT run_hash, base_seed, chains, succeeded, method, started_at, duration_ms
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`
	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("runner: query history: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt int64
		var durationMs int64
		if err := rows.Scan(&rec.RunHash, &rec.BaseSeed, &rec.Chains, &rec.Succeeded,
			&rec.Method, &startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("runner: scan history row: %w", err)
		}
		rec.StartedAt = time.Unix(startedAt, 0)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
