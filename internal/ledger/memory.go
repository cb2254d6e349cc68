package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// MemoryRegistry keeps runs in process memory
type MemoryRegistry struct {
	mu   sync.RWMutex
	runs map[string]*model.DecisionRun
}

// NewMemoryRegistry creates an empty in-memory registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		runs: make(map[string]*model.DecisionRun),
	}
}

// Store appends a copy of the run
func (m *MemoryRegistry) Store(ctx context.Context, run *model.DecisionRun) error {
	if err := validateRun(run); err != nil {
		return model.NewStorageError(m.Backend(), "store", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.RunID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, run.RunID)
	}
	m.runs[run.RunID] = run.Clone()
	return nil
}

// Get returns a copy of the stored run
func (m *MemoryRegistry) Get(ctx context.Context, runID string) (*model.DecisionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, model.NewNotFound("decision run", runID)
	}
	return run.Clone(), nil
}

// List returns copies of matching runs, newest first
func (m *MemoryRegistry) List(ctx context.Context, q model.RunQuery) ([]*model.DecisionRun, error) {
	m.mu.RLock()
	runs := make([]*model.DecisionRun, 0, len(m.runs))
	for _, run := range m.runs {
		if matches(run, q) {
			runs = append(runs, run.Clone())
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(runs)
	if q.Limit > 0 && len(runs) > q.Limit {
		runs = runs[:q.Limit]
	}
	return runs, nil
}

// Backend returns "memory"
func (m *MemoryRegistry) Backend() string {
	return "memory"
}

// Close is a no-op
func (m *MemoryRegistry) Close() error {
	return nil
}

// Len returns the number of stored runs
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}
