package validate

import (
	"strings"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// RoleGate decides which roles may choose an assumption alternative
// and which roles may act on governance proposals
type RoleGate struct {
	known map[string]model.Role
}

// NewRoleGate creates a role gate over the known roles
func NewRoleGate() *RoleGate {
	gate := &RoleGate{
		known: make(map[string]model.Role),
	}
	for _, r := range model.Roles() {
		gate.known[normalizeRole(string(r))] = r
	}
	gate.known["qa"] = model.RoleQALead

	return gate
}

// ParseRole maps a free-form label onto a known role
func (g *RoleGate) ParseRole(label string) (model.Role, bool) {
	role, ok := g.known[normalizeRole(label)]
	return role, ok
}

// CanChoose reports whether role may pick the alternative.
// An alternative without an allowed role list is open to everyone.
func (g *RoleGate) CanChoose(role model.Role, alt model.Alternative) bool {
	if len(alt.AllowedRoles) == 0 {
		return true
	}
	parsed, ok := g.ParseRole(string(role))
	if !ok {
		return false
	}
	for _, allowed := range alt.AllowedRoles {
		if r, ok := g.ParseRole(string(allowed)); ok && r == parsed {
			return true
		}
	}
	return false
}

// AllowedAlternatives filters an assumption's alternatives down to what role may choose
func (g *RoleGate) AllowedAlternatives(role model.Role, a model.Assumption) []model.Alternative {
	var allowed []model.Alternative
	for _, alt := range a.Alternatives {
		if g.CanChoose(role, alt) {
			allowed = append(allowed, alt)
		}
	}
	return allowed
}

// HasAny reports whether role is one of the given roles
func (g *RoleGate) HasAny(role model.Role, roles ...model.Role) bool {
	parsed, ok := g.ParseRole(string(role))
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == parsed {
			return true
		}
	}
	return false
}

// normalizeRole folds case and separators so "QA Lead", "qa_lead" and
// "qa-lead" compare equal
func normalizeRole(label string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(label)))
}
