// Package governance manages change proposals to interpretation and
// assumption sets through a role gated workflow:
//
//	Draft -> Pending Approval -> Approved -> Published
//	                          \-> Rejected
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/validate"
)

// Service creates proposals and applies workflow actions
type Service struct {
	mu        sync.Mutex
	store     Store
	validator *validate.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a service over store
func NewService(store Store) *Service {
	return &Service{
		store:     store,
		validator: validate.NewValidator(),
		logger:    slog.Default().With("component", "governance"),
		now:       time.Now,
	}
}

// NewProposalID generates an identifier of the form PROP-1A2B3C4D
func NewProposalID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PROP-" + strings.ToUpper(id[:8])
}

// Create stores a new Draft proposal
func (s *Service) Create(ctx context.Context, req model.ChangeProposalCreate) (*model.ChangeProposal, error) {
	if err := s.validator.Struct(req).Err(); err != nil {
		return nil, err
	}
	creator, ok := s.validator.Gate().ParseRole(string(req.CreatedBy))
	if !ok {
		return nil, &model.ValidationError{Issues: []model.Issue{{
			Field:   "created_by",
			Message: fmt.Sprintf("unknown role %q", req.CreatedBy),
		}}}
	}

	p := &model.ChangeProposal{
		ProposalID:      NewProposalID(),
		Title:           req.Title,
		ProposalType:    req.ProposalType,
		ProposedVersion: req.ProposedVersion,
		Rationale:       req.Rationale,
		QAImpactSummary: req.QAImpactSummary,
		Status:          model.ProposalDraft,
		CreatedAt:       s.now().UTC(),
		CreatedBy:       creator,
		ApprovalSteps:   []model.ApprovalStep{},
	}

	if err := s.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("store proposal: %w", err)
	}

	s.logger.Info("proposal created", "proposal_id", p.ProposalID, "type", p.ProposalType, "created_by", creator)
	return p, nil
}

// Get returns a proposal
func (s *Service) Get(ctx context.Context, id string) (*model.ChangeProposal, error) {
	return s.store.Get(ctx, id)
}

// List returns every proposal, newest first
func (s *Service) List(ctx context.Context) ([]*model.ChangeProposal, error) {
	return s.store.List(ctx)
}

// Apply performs a workflow action. Actions not allowed from the current
// status, or by the acting role, fail with *model.TransitionError.
func (s *Service) Apply(ctx context.Context, id string, update model.ChangeProposalUpdate) (*model.ChangeProposal, error) {
	if err := s.validator.Struct(update).Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	t, ok := workflow[update.Action]
	if !ok {
		return nil, &model.TransitionError{From: p.Status, Action: update.Action, Role: update.ActorRole, Reason: "unknown action"}
	}

	actor, known := s.validator.Gate().ParseRole(string(update.ActorRole))
	switch {
	case !known:
		return nil, &model.TransitionError{From: p.Status, Action: update.Action, Role: update.ActorRole,
			Reason: "unknown role"}
	case p.Status != t.from:
		return nil, &model.TransitionError{From: p.Status, Action: update.Action, Role: actor,
			Reason: fmt.Sprintf("requires status %q", t.from)}
	case len(t.roles) > 0 && !s.validator.Gate().HasAny(actor, t.roles...):
		return nil, &model.TransitionError{From: p.Status, Action: update.Action, Role: actor,
			Reason: fmt.Sprintf("requires one of %s", joinRoles(t.roles))}
	}

	now := s.now().UTC()
	status := "Completed"
	if update.Action == model.ActionReject {
		status = "Rejected"
	}
	p.ApprovalSteps = append(p.ApprovalSteps, model.ApprovalStep{
		StepName:     t.step,
		RequiredRole: t.requiredRole(actor),
		Status:       status,
		CompletedAt:  &now,
		CompletedBy:  actor,
	})

	from := p.Status
	p.Status = t.to
	switch update.Action {
	case model.ActionApprove:
		p.ApprovedAt = &now
		p.ApprovedBy = actor
	case model.ActionPublish:
		p.PublishedAt = &now
	}

	if err := s.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("store proposal: %w", err)
	}

	s.logger.Info("proposal transitioned",
		"proposal_id", p.ProposalID,
		"action", update.Action,
		"from", from,
		"to", p.Status,
		"actor", actor,
	)
	return p, nil
}

func joinRoles(roles []model.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
