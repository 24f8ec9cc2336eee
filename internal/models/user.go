package models

// Role represents a user's permission level in the system.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User represents an account known to the shop. Rows are created lazily on
// first authenticated contact; credentials live with the external identity
// provider, never here. Protected marks the single super-admin account whose
// role, block flag, and existence cannot be changed by any operation.
type User struct {
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Protected bool   `json:"protected"`
	Blocked   bool   `json:"blocked"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
