package governance

import (
	"context"
	"sort"
	"sync"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// Store persists change proposals
type Store interface {
	Put(ctx context.Context, p *model.ChangeProposal) error
	Get(ctx context.Context, id string) (*model.ChangeProposal, error)
	List(ctx context.Context) ([]*model.ChangeProposal, error)
}

// MemoryStore keeps proposals in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]*model.ChangeProposal
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{proposals: make(map[string]*model.ChangeProposal)}
}

// Put inserts or replaces a proposal
func (m *MemoryStore) Put(ctx context.Context, p *model.ChangeProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = cloneProposal(p)
	return nil
}

// Get returns a copy of the proposal
func (m *MemoryStore) Get(ctx context.Context, id string) (*model.ChangeProposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, model.NewNotFound("proposal", id)
	}
	return cloneProposal(p), nil
}

// List returns copies of all proposals, newest first
func (m *MemoryStore) List(ctx context.Context) ([]*model.ChangeProposal, error) {
	m.mu.RLock()
	out := make([]*model.ChangeProposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		out = append(out, cloneProposal(p))
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ProposalID > out[j].ProposalID
	})
	return out, nil
}

func cloneProposal(p *model.ChangeProposal) *model.ChangeProposal {
	c := *p
	if p.QAImpactSummary != nil {
		summary := *p.QAImpactSummary
		c.QAImpactSummary = &summary
	}
	c.ApprovalSteps = make([]model.ApprovalStep, len(p.ApprovalSteps))
	copy(c.ApprovalSteps, p.ApprovalSteps)
	return &c
}
