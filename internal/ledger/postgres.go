package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/decision-ledger/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS decision_runs (
	run_id       TEXT PRIMARY KEY,
	claim_id     TEXT NOT NULL,
	role         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	payout_total DOUBLE PRECISION NOT NULL,
	status       TEXT NOT NULL,
	payload      JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_runs_claim ON decision_runs(claim_id);
CREATE INDEX IF NOT EXISTS idx_decision_runs_created ON decision_runs(created_at);
`

// PostgresRegistry stores runs in PostgreSQL
type PostgresRegistry struct {
	db     *pgxpool.Pool
	owned  bool
	logger *slog.Logger
}

// NewPostgresRegistry connects to dsn and ensures the schema exists
func NewPostgresRegistry(ctx context.Context, dsn string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, model.NewStorageError("postgres", "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, model.NewStorageError("postgres", "ping", err)
	}

	r := NewPostgresRegistryFromPool(pool)
	r.owned = true
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRegistryFromPool wraps an existing pool; the caller keeps ownership
func NewPostgresRegistryFromPool(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{
		db:     db,
		logger: slog.Default().With("component", "ledger.postgres"),
	}
}

// Migrate creates the runs table if it does not exist
func (r *PostgresRegistry) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return model.NewStorageError("postgres", "create_schema", err)
	}
	return nil
}

// Store inserts the run; an existing run ID is rejected
func (r *PostgresRegistry) Store(ctx context.Context, run *model.DecisionRun) error {
	if err := validateRun(run); err != nil {
		return model.NewStorageError("postgres", "store", err)
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return model.NewStorageError("postgres", "marshal", err)
	}

	query := `
		INSERT INTO decision_runs (run_id, claim_id, role, created_at, payout_total, status, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		run.RunID,
		run.ClaimID,
		string(run.GeneratedByRole),
		run.Timestamp,
		run.Outcome.PayoutTotal,
		string(run.Outcome.Status),
		payload,
	)
	if err != nil {
		return model.NewStorageError("postgres", "insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, run.RunID)
	}

	r.logger.Debug("run stored", "run_id", run.RunID, "claim_id", run.ClaimID)
	return nil
}

// Get loads a run by ID
func (r *PostgresRegistry) Get(ctx context.Context, runID string) (*model.DecisionRun, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `SELECT payload FROM decision_runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFound("decision run", runID)
	}
	if err != nil {
		return nil, model.NewStorageError("postgres", "get", err)
	}
	return decodeRun(payload)
}

// List returns matching runs, newest first
func (r *PostgresRegistry) List(ctx context.Context, q model.RunQuery) ([]*model.DecisionRun, error) {
	query := `SELECT payload FROM decision_runs WHERE 1=1`
	var args []interface{}
	if q.ClaimID != "" {
		args = append(args, q.ClaimID)
		query += fmt.Sprintf(` AND claim_id = $%d`, len(args))
	}
	if q.Role != "" {
		args = append(args, string(q.Role))
		query += fmt.Sprintf(` AND role = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, run_id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, model.NewStorageError("postgres", "list", err)
	}
	defer rows.Close()

	runs := []*model.DecisionRun{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, model.NewStorageError("postgres", "scan", err)
		}
		run, err := decodeRun(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("postgres", "iterate", err)
	}
	return runs, nil
}

// Backend returns "postgres"
func (r *PostgresRegistry) Backend() string {
	return "postgres"
}

// Close releases the pool when the registry created it
func (r *PostgresRegistry) Close() error {
	if r.owned {
		r.db.Close()
	}
	return nil
}
