package governance

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ppiankov/decision-ledger/internal/model"
)

func newTestService() *Service {
	return NewService(NewMemoryStore())
}

func createProposal(t *testing.T, s *Service) *model.ChangeProposal {
	t.Helper()
	p, err := s.Create(context.Background(), model.ChangeProposalCreate{
		Title:           "Include accessories by default",
		ProposalType:    model.ProposalTypeInterpretation,
		ProposedVersion: "2026.1",
		Rationale:       "Declaration status is rarely recorded",
		QAImpactSummary: &model.QAImpactSummary{CohortID: "COH-1", ImpactedClaimsCount: 3, TotalDeltaPayout: 3350},
		CreatedBy:       "adjuster",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return p
}

func apply(t *testing.T, s *Service, id string, action model.ProposalAction, role model.Role) *model.ChangeProposal {
	t.Helper()
	p, err := s.Apply(context.Background(), id, model.ChangeProposalUpdate{Action: action, ActorRole: role})
	if err != nil {
		t.Fatalf("%s as %s failed: %v", action, role, err)
	}
	return p
}

func TestCreate(t *testing.T) {
	s := newTestService()
	p := createProposal(t, s)

	if !regexp.MustCompile(`^PROP-[0-9A-F]{8}$`).MatchString(p.ProposalID) {
		t.Errorf("unexpected proposal id %s", p.ProposalID)
	}
	if p.Status != model.ProposalDraft {
		t.Errorf("expected Draft, got %s", p.Status)
	}
	if p.CreatedBy != model.RoleAdjuster {
		t.Errorf("expected created_by Adjuster, got %s", p.CreatedBy)
	}
	if p.ApprovalSteps == nil || len(p.ApprovalSteps) != 0 {
		t.Errorf("expected empty approval steps, got %v", p.ApprovalSteps)
	}
}

func TestCreate_Invalid(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.ChangeProposalCreate
	}{
		{"missing title", model.ChangeProposalCreate{ProposalType: model.ProposalTypeAssumption, ProposedVersion: "1", CreatedBy: model.RoleAdjuster}},
		{"bad type", model.ChangeProposalCreate{Title: "x", ProposalType: "Pricing", ProposedVersion: "1", CreatedBy: model.RoleAdjuster}},
		{"unknown role", model.ChangeProposalCreate{Title: "x", ProposalType: model.ProposalTypeAssumption, ProposedVersion: "1", CreatedBy: "Intern"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.req)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestWorkflow_HappyPath(t *testing.T) {
	s := newTestService()
	p := createProposal(t, s)

	p = apply(t, s, p.ProposalID, model.ActionSubmit, model.RoleAdjuster)
	if p.Status != model.ProposalPendingApproval {
		t.Fatalf("expected Pending Approval, got %s", p.Status)
	}

	p = apply(t, s, p.ProposalID, model.ActionApprove, model.RoleSupervisor)
	if p.Status != model.ProposalApproved {
		t.Fatalf("expected Approved, got %s", p.Status)
	}
	if p.ApprovedAt == nil || p.ApprovedBy != model.RoleSupervisor {
		t.Errorf("expected approval stamp, got at=%v by=%s", p.ApprovedAt, p.ApprovedBy)
	}

	p = apply(t, s, p.ProposalID, model.ActionPublish, "policy_owner")
	if p.Status != model.ProposalPublished {
		t.Fatalf("expected Published, got %s", p.Status)
	}
	if p.PublishedAt == nil {
		t.Error("expected published_at to be set")
	}

	if len(p.ApprovalSteps) != 3 {
		t.Fatalf("expected 3 approval steps, got %d", len(p.ApprovalSteps))
	}
	last := p.ApprovalSteps[2]
	if last.StepName != "Publication" || last.CompletedBy != model.RolePolicyOwner || last.Status != "Completed" {
		t.Errorf("unexpected publication step %+v", last)
	}

	stored, err := s.Get(context.Background(), p.ProposalID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != model.ProposalPublished {
		t.Errorf("expected stored status Published, got %s", stored.Status)
	}
}

func TestWorkflow_Reject(t *testing.T) {
	s := newTestService()
	p := createProposal(t, s)

	apply(t, s, p.ProposalID, model.ActionSubmit, model.RoleAdjuster)
	p = apply(t, s, p.ProposalID, model.ActionReject, model.RoleQALead)

	if p.Status != model.ProposalRejected {
		t.Errorf("expected Rejected, got %s", p.Status)
	}
	if p.ApprovalSteps[1].Status != "Rejected" {
		t.Errorf("expected rejected step, got %+v", p.ApprovalSteps[1])
	}
}

func TestWorkflow_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  []model.ProposalAction
		action model.ProposalAction
		role   model.Role
	}{
		{"approve a draft", nil, model.ActionApprove, model.RoleSupervisor},
		{"publish a draft", nil, model.ActionPublish, model.RolePolicyOwner},
		{"adjuster approves", []model.ProposalAction{model.ActionSubmit}, model.ActionApprove, model.RoleAdjuster},
		{"supervisor publishes", []model.ProposalAction{model.ActionSubmit, model.ActionApprove}, model.ActionPublish, model.RoleSupervisor},
		{"submit twice", []model.ProposalAction{model.ActionSubmit}, model.ActionSubmit, model.RoleAdjuster},
		{"unknown role", nil, model.ActionSubmit, "Intern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService()
			p := createProposal(t, s)
			for _, a := range tt.setup {
				apply(t, s, p.ProposalID, a, model.RolePolicyOwner)
			}

			before, _ := s.Get(ctx, p.ProposalID)
			_, err := s.Apply(ctx, p.ProposalID, model.ChangeProposalUpdate{Action: tt.action, ActorRole: tt.role})

			var te *model.TransitionError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransitionError, got %v", err)
			}
			if !errors.Is(err, model.ErrTransition) {
				t.Error("expected errors.Is ErrTransition")
			}

			after, _ := s.Get(ctx, p.ProposalID)
			if after.Status != before.Status || len(after.ApprovalSteps) != len(before.ApprovalSteps) {
				t.Errorf("failed transition modified the proposal: %+v", after)
			}
		})
	}
}

func TestApply_Errors(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Apply(ctx, "PROP-MISSING", model.ChangeProposalUpdate{Action: model.ActionSubmit, ActorRole: model.RoleAdjuster})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}

	p := createProposal(t, s)
	_, err = s.Apply(ctx, p.ProposalID, model.ChangeProposalUpdate{Action: "archive", ActorRole: model.RoleAdjuster})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	s := newTestService()
	base := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}

	first := createProposal(t, s)
	second := createProposal(t, s)

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(list))
	}
	if list[0].ProposalID != second.ProposalID || list[1].ProposalID != first.ProposalID {
		t.Errorf("expected newest first, got %s then %s", list[0].ProposalID, list[1].ProposalID)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := newTestService()
	p := createProposal(t, s)

	p.Title = "changed"
	p.QAImpactSummary.TotalDeltaPayout = 0

	stored, err := s.Get(context.Background(), p.ProposalID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Title != "Include accessories by default" {
		t.Errorf("store was modified through returned pointer: %s", stored.Title)
	}
	if stored.QAImpactSummary.TotalDeltaPayout != 3350 {
		t.Errorf("impact summary was modified: %v", stored.QAImpactSummary.TotalDeltaPayout)
	}
}

func TestActions(t *testing.T) {
	tests := []struct {
		status model.ProposalStatus
		want   int
	}{
		{model.ProposalDraft, 1},
		{model.ProposalPendingApproval, 2},
		{model.ProposalApproved, 1},
		{model.ProposalPublished, 0},
		{model.ProposalRejected, 0},
	}
	for _, tt := range tests {
		if got := len(Actions(tt.status)); got != tt.want {
			t.Errorf("Actions(%s): expected %d, got %d", tt.status, tt.want, got)
		}
	}
}
