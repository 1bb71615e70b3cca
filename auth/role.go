package auth

import (
	"fmt"
	"strings"
)

// Role is the canonical account role
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalizes case and surrounding whitespace. Empty input is a plain user.
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(RoleUser):
		return RoleUser, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Capability is an action gated by role
type Capability string

const (
	CapabilityGrantRewards Capability = "grant_rewards"
	CapabilityManageBadges Capability = "manage_badges"
	CapabilityViewLedger   Capability = "view_ledger"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {CapabilityGrantRewards, CapabilityManageBadges, CapabilityViewLedger},
}

// Principal is the authenticated caller handed over by the session layer
type Principal struct {
	ID    string
	Role  Role
	Email string
}

// AdminEmailChecker reports whether an email belongs to a legacy admin account
type AdminEmailChecker interface {
	IsAdminEmail(email string) bool
}

// NewPrincipal builds a principal from raw identity values. Legacy admin emails
// are promoted to ADMIN whatever the stored role says.
func NewPrincipal(id, rawRole, email string, admins AdminEmailChecker) (Principal, error) {
	role, err := ParseRole(rawRole)
	if err != nil {
		return Principal{}, err
	}
	if role != RoleAdmin && admins != nil && admins.IsAdminEmail(email) {
		role = RoleAdmin
	}
	return Principal{ID: strings.TrimSpace(id), Role: role, Email: email}, nil
}

// Can reports whether the principal may perform capability
func (p Principal) Can(capability Capability) bool {
	for _, c := range roleCapabilities[p.Role] {
		if c == capability {
			return true
		}
	}
	return false
}
