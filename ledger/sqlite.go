package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteLedger stores runs in a SQLite database file.
type SQLiteLedger struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// NewSQLiteLedger returns a ledger backed by the database at path. Call Init before use.
func NewSQLiteLedger(path string) *SQLiteLedger {
	return &SQLiteLedger{path: path}
}

// Init opens the database and creates the runs table if needed.
func (l *SQLiteLedger) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path == "" {
		return errors.New("sqlite path is required")
	}
	if l.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	l.db = db
	return nil
}

// Record inserts run, replacing any run with the same id.
func (l *SQLiteLedger) Record(ctx context.Context, run Run) error {
	db, err := l.getDB()
	if err != nil {
		return err
	}

	index, err := json.Marshal(run.Index)
	if err != nil {
		return fmt.Errorf("encode index of run %s: %w", run.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, strategy, method, ntrain, mae, smae, rmse, train_index, elapsed_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			strategy = excluded.strategy,
			method = excluded.method,
			ntrain = excluded.ntrain,
			mae = excluded.mae,
			smae = excluded.smae,
			rmse = excluded.rmse,
			train_index = excluded.train_index,
			elapsed_ns = excluded.elapsed_ns,
			created_at = excluded.created_at
	`, run.ID.String(), run.Strategy, run.Method, run.NTrain, run.MAE, run.SMAE, run.RMSE,
		string(index), int64(run.Elapsed), run.CreatedAt.UTC().UnixNano())
	return err
}

const selectRuns = `SELECT id, strategy, method, ntrain, mae, smae, rmse, train_index, elapsed_ns, created_at FROM runs`

// Get returns the run with id, or false when there is none.
func (l *SQLiteLedger) Get(ctx context.Context, id uuid.UUID) (Run, bool, error) {
	db, err := l.getDB()
	if err != nil {
		return Run{}, false, err
	}

	run, err := scanRun(db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	return run, true, nil
}

// List returns the runs of strategy, or all runs when strategy is empty, oldest first.
func (l *SQLiteLedger) List(ctx context.Context, strategy string) ([]Run, error) {
	db, err := l.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectRuns+` WHERE ? = '' OR strategy = ?`, strategy, strategy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRuns(out)
	return out, nil
}

// Close closes the database. The ledger must be re-initialized before further use.
func (l *SQLiteLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *SQLiteLedger) getDB() (*sql.DB, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.db == nil {
		return nil, ErrNotInitialized
	}
	return l.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run              Run
		id, index        string
		elapsed, created int64
	)
	if err := row.Scan(&id, &run.Strategy, &run.Method, &run.NTrain, &run.MAE, &run.SMAE, &run.RMSE,
		&index, &elapsed, &created); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("parse run id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(index), &run.Index); err != nil {
		return Run{}, fmt.Errorf("decode index of run %s: %w", id, err)
	}
	run.ID = parsed
	run.Elapsed = time.Duration(elapsed)
	run.CreatedAt = time.Unix(0, created).UTC()
	return run, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			method TEXT NOT NULL,
			ntrain INTEGER NOT NULL,
			mae REAL NOT NULL,
			smae REAL NOT NULL,
			rmse REAL NOT NULL,
			train_index TEXT NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_strategy ON runs (strategy);
	`)
	return err
}
