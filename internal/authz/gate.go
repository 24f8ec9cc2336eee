// Package authz implements the access gate: the single authorization
// service invoked on every protected request. Role and block status are
// re-read from the store per request — never cached in a token or session —
// so blocking an account takes effect on the target's very next navigation.
package authz

import (
	"printdesk/internal/models"
)

// Decision is the tagged result of an authorization check. Routes branch on
// the tag instead of re-implementing the role+block policy per guard.
type Decision int

const (
	// Allowed grants access.
	Allowed Decision = iota
	// DeniedRole means the caller's role is outside the permitted set.
	DeniedRole
	// DeniedBlocked means the account is blocked; callers surface the
	// distinguished "account blocked" message rather than a generic denial.
	DeniedBlocked
	// DeniedError means a required lookup failed. The gate is fail-closed:
	// a store error never results in a silent allow.
	DeniedError
)

// UserDirectory is the slice of the user store the gate depends on.
type UserDirectory interface {
	// EnsureUser returns the account for email, creating it on first
	// authenticated contact with the given role and protection flag.
	EnsureUser(email string, role models.Role, protected bool) (*models.User, error)
	// IsBlocked reports the account's block flag.
	IsBlocked(email string) (bool, error)
}

// Gate authorizes identities against required roles.
type Gate struct {
	users      UserDirectory
	superAdmin string
}

// NewGate creates a gate over the given directory. superAdmin names the
// protected identity, which is always treated as role admin; pass "" when
// no super admin is configured.
func NewGate(users UserDirectory, superAdmin string) *Gate {
	return &Gate{users: users, superAdmin: superAdmin}
}

// Authorize checks whether the identity may access a resource requiring the
// given role. The check runs in two steps against live data: the role must
// be in the permitted set ({user, admin} for user-tier, {admin} for
// admin-tier), then the block flag must be clear — a blocked account is
// denied regardless of role. Unknown identities are provisioned lazily with
// role user (admin for the configured super admin). On Allowed the resolved
// account is returned so handlers can branch on role without another
// directory round trip.
func (g *Gate) Authorize(email string, required models.Role) (Decision, *models.User) {
	if email == "" {
		return DeniedError, nil
	}

	user, err := g.users.EnsureUser(email, g.initialRole(email), email == g.superAdmin && g.superAdmin != "")
	if err != nil {
		return DeniedError, nil
	}

	// The super admin is admin no matter what the row says.
	if g.superAdmin != "" && email == g.superAdmin {
		user.Role = models.RoleAdmin
	}

	if required == models.RoleAdmin && !user.IsAdmin() {
		return DeniedRole, nil
	}
	if user.Role != models.RoleUser && user.Role != models.RoleAdmin {
		return DeniedRole, nil
	}

	blocked, err := g.users.IsBlocked(email)
	if err != nil {
		return DeniedError, nil
	}
	if blocked {
		return DeniedBlocked, nil
	}

	return Allowed, user
}

func (g *Gate) initialRole(email string) models.Role {
	if g.superAdmin != "" && email == g.superAdmin {
		return models.RoleAdmin
	}
	return models.RoleUser
}
