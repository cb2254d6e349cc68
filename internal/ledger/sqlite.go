package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/decision-ledger/internal/model"
)

// SchemaVersion is bumped whenever the runs table changes shape
const SchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_runs (
	run_id       TEXT PRIMARY KEY,
	claim_id     TEXT NOT NULL,
	role         TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	payout_total REAL NOT NULL,
	status       TEXT NOT NULL,
	payload      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_runs_claim ON decision_runs(claim_id);
CREATE INDEX IF NOT EXISTS idx_decision_runs_created ON decision_runs(created_at);
`

// SQLiteConfig configures the SQLite registry
type SQLiteConfig struct {
	// Path is the database file path
	Path string

	// MaxOpenConns defaults to 1; SQLite has a single writer
	MaxOpenConns int

	// WALMode enables write-ahead logging
	WALMode bool

	// BusyTimeout is how long to wait for locks. Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteRegistry stores runs in an embedded SQLite database
type SQLiteRegistry struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteRegistry opens (and if needed creates) the database at cfg.Path
func NewSQLiteRegistry(cfg SQLiteConfig) (*SQLiteRegistry, error) {
	if cfg.Path == "" {
		return nil, model.NewStorageError("sqlite", "open", errors.New("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}

	logger := slog.Default().With("component", "ledger.sqlite")

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.WALMode {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, model.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	r := &SQLiteRegistry{db: db, config: cfg, logger: logger}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("SQLite ledger initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"schema_version", SchemaVersion,
	)

	return r, nil
}

func (r *SQLiteRegistry) initSchema() error {
	if _, err := r.db.Exec(sqliteSchema); err != nil {
		return model.NewStorageError("sqlite", "create_schema", err)
	}

	var version int
	err := r.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := r.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return model.NewStorageError("sqlite", "write_schema_version", err)
		}
	case err != nil:
		return model.NewStorageError("sqlite", "read_schema_version", err)
	case version > SchemaVersion:
		return model.NewStorageError("sqlite", "check_schema_version",
			fmt.Errorf("database schema v%d is newer than supported v%d", version, SchemaVersion))
	}
	return nil
}

// Store inserts the run; an existing run ID is rejected
func (r *SQLiteRegistry) Store(ctx context.Context, run *model.DecisionRun) error {
	if err := validateRun(run); err != nil {
		return model.NewStorageError("sqlite", "store", err)
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return model.NewStorageError("sqlite", "marshal", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO decision_runs (run_id, claim_id, role, created_at, payout_total, status, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO NOTHING`,
		run.RunID,
		run.ClaimID,
		string(run.GeneratedByRole),
		run.Timestamp.UnixNano(),
		run.Outcome.PayoutTotal,
		string(run.Outcome.Status),
		string(payload),
	)
	if err != nil {
		return model.NewStorageError("sqlite", "insert", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.NewStorageError("sqlite", "rows_affected", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, run.RunID)
	}

	r.logger.Debug("run stored", "run_id", run.RunID, "claim_id", run.ClaimID)
	return nil
}

// Get loads a run by ID
func (r *SQLiteRegistry) Get(ctx context.Context, runID string) (*model.DecisionRun, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM decision_runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFound("decision run", runID)
	}
	if err != nil {
		return nil, model.NewStorageError("sqlite", "get", err)
	}
	return decodeRun([]byte(payload))
}

// List returns matching runs, newest first
func (r *SQLiteRegistry) List(ctx context.Context, q model.RunQuery) ([]*model.DecisionRun, error) {
	query := `SELECT payload FROM decision_runs WHERE 1=1`
	var args []interface{}
	if q.ClaimID != "" {
		query += ` AND claim_id = ?`
		args = append(args, q.ClaimID)
	}
	if q.Role != "" {
		query += ` AND role = ?`
		args = append(args, string(q.Role))
	}
	query += ` ORDER BY created_at DESC, run_id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.NewStorageError("sqlite", "list", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []*model.DecisionRun{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, model.NewStorageError("sqlite", "scan", err)
		}
		run, err := decodeRun([]byte(payload))
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("sqlite", "iterate", err)
	}
	return runs, nil
}

// Backend returns "sqlite"
func (r *SQLiteRegistry) Backend() string {
	return "sqlite"
}

// Close closes the database
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func decodeRun(payload []byte) (*model.DecisionRun, error) {
	var run model.DecisionRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}
