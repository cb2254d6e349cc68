package governance

import "github.com/ppiankov/decision-ledger/internal/model"

// transition is one edge of the proposal workflow
type transition struct {
	from  model.ProposalStatus
	to    model.ProposalStatus
	step  string
	roles []model.Role // empty means any known role
}

var workflow = map[model.ProposalAction]transition{
	model.ActionSubmit: {
		from: model.ProposalDraft,
		to:   model.ProposalPendingApproval,
		step: "Submit for approval",
	},
	model.ActionApprove: {
		from:  model.ProposalPendingApproval,
		to:    model.ProposalApproved,
		step:  "Approval",
		roles: []model.Role{model.RoleSupervisor, model.RoleQALead, model.RolePolicyOwner},
	},
	model.ActionPublish: {
		from:  model.ProposalApproved,
		to:    model.ProposalPublished,
		step:  "Publication",
		roles: []model.Role{model.RolePolicyOwner},
	},
	model.ActionReject: {
		from:  model.ProposalPendingApproval,
		to:    model.ProposalRejected,
		step:  "Rejection",
		roles: []model.Role{model.RoleSupervisor, model.RoleQALead, model.RolePolicyOwner},
	},
}

// requiredRole names the role recorded on an approval step
func (t transition) requiredRole(actor model.Role) model.Role {
	if len(t.roles) == 0 {
		return actor
	}
	return t.roles[0]
}

// Actions lists the actions available from status
func Actions(status model.ProposalStatus) []model.ProposalAction {
	var actions []model.ProposalAction
	for _, a := range []model.ProposalAction{model.ActionSubmit, model.ActionApprove, model.ActionPublish, model.ActionReject} {
		if workflow[a].from == status {
			actions = append(actions, a)
		}
	}
	return actions
}
