// Package ledger stores decision runs. Runs are append-only: once stored a
// run is never updated or deleted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// ErrDuplicateRun is returned when a run ID is stored twice
var ErrDuplicateRun = errors.New("run already stored")

// Registry is the append-only store of decision runs
type Registry interface {
	// Store appends a run; storing an existing run ID fails with ErrDuplicateRun
	Store(ctx context.Context, run *model.DecisionRun) error

	// Get returns the run or a *model.NotFoundError
	Get(ctx context.Context, runID string) (*model.DecisionRun, error)

	// List returns matching runs, newest first
	List(ctx context.Context, q model.RunQuery) ([]*model.DecisionRun, error)

	// Backend names the implementation, e.g. "sqlite"
	Backend() string

	Close() error
}

// NewRunID generates an identifier of the form RUN-1A2B3C4D
func NewRunID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RUN-" + strings.ToUpper(id[:8])
}

// Open creates the registry selected by cfg.Backend
func Open(ctx context.Context, cfg model.LedgerConfig) (Registry, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryRegistry(), nil

	case "sqlite":
		return NewSQLiteRegistry(SQLiteConfig{
			Path:         cfg.SQLitePath,
			BusyTimeout:  time.Duration(cfg.BusyTimeout) * time.Millisecond,
			MaxOpenConns: cfg.MaxOpenConns,
			WALMode:      true,
		})

	case "postgres", "postgresql":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend requires ledger.postgres_dsn")
		}
		return NewPostgresRegistry(ctx, cfg.PostgresDSN)

	default:
		return nil, fmt.Errorf("unknown ledger backend: %s (supported: memory, sqlite, postgres)", cfg.Backend)
	}
}

func validateRun(run *model.DecisionRun) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	if run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.ClaimID == "" {
		return fmt.Errorf("run %s has no claim id", run.RunID)
	}
	return nil
}

// matches applies the non-limit parts of a query
func matches(run *model.DecisionRun, q model.RunQuery) bool {
	if q.ClaimID != "" && run.ClaimID != q.ClaimID {
		return false
	}
	if q.Role != "" && run.GeneratedByRole != q.Role {
		return false
	}
	return true
}

// sortNewestFirst orders by timestamp descending, then run ID for stability
func sortNewestFirst(runs []*model.DecisionRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.After(runs[j].Timestamp)
		}
		return runs[i].RunID > runs[j].RunID
	})
}
