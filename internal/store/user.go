// Package store provides database access methods for all printdesk
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"printdesk/internal/models"
)

// ErrProtectedUser is returned when a mutation targets the protected
// super-admin account. The check happens before any write.
var ErrProtectedUser = errors.New("cannot modify protected user")

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail retrieves a user by email. Returns nil if not found.
func (s *UserStore) FindByEmail(email string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRow(`
		SELECT email, role, protected, blocked FROM users WHERE email = $1
	`, email).Scan(&u.Email, &u.Role, &u.Protected, &u.Blocked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// EnsureUser returns the user row for email, creating it on first contact
// with the given role and protection flag. A concurrent first contact for
// the same email is resolved by the ON CONFLICT clause: whoever loses the
// race reads the existing row unchanged.
func (s *UserStore) EnsureUser(email string, role models.Role, protected bool) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRow(`
		INSERT INTO users (email, role, protected)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING email, role, protected, blocked
	`, email, role, protected).Scan(&u.Email, &u.Role, &u.Protected, &u.Blocked)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

// IsBlocked reports whether the account is blocked. An unknown email is
// not blocked.
func (s *UserStore) IsBlocked(email string) (bool, error) {
	var blocked bool
	err := s.db.QueryRow(`SELECT blocked FROM users WHERE email = $1`, email).Scan(&blocked)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is blocked: %w", err)
	}
	return blocked, nil
}

// AccountRow is one row of the admin user listing: the account joined
// with its profile details (empty when no profile exists yet).
type AccountRow struct {
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	Blocked        bool        `json:"blocked"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	MobileNumber   string      `json:"mobileNumber"`
	MobileVerified bool        `json:"mobileVerified"`
}

// List returns all users with their profile details joined, ordered by email.
func (s *UserStore) List() ([]AccountRow, error) {
	rows, err := s.db.Query(`
		SELECT u.email, u.role, u.blocked,
		       COALESCE(p.first_name, ''), COALESCE(p.last_name, ''),
		       COALESCE(p.mobile_number, ''), COALESCE(p.mobile_verified, FALSE)
		FROM users u
		LEFT JOIN profiles p ON u.email = p.email
		ORDER BY u.email
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var accounts []AccountRow
	for rows.Next() {
		var a AccountRow
		if err := rows.Scan(
			&a.Email, &a.Role, &a.Blocked,
			&a.FirstName, &a.LastName, &a.MobileNumber, &a.MobileVerified,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateRole changes a user's role. Rejects the protected account.
func (s *UserStore) UpdateRole(email string, role models.Role) error {
	if err := s.rejectProtected(email); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		UPDATE users SET role = $1 WHERE email = $2 AND NOT protected
	`, role, email)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// Block marks a user as blocked. Rejects the protected account. Takes
// effect on the target's very next navigation because the access gate
// re-reads the flag per request.
func (s *UserStore) Block(email string) error {
	if err := s.rejectProtected(email); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		UPDATE users SET blocked = TRUE WHERE email = $1 AND NOT protected
	`, email)
	if err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

// Unblock clears the blocked flag. Unblocking an unknown user is a no-op.
func (s *UserStore) Unblock(email string) error {
	_, err := s.db.Exec(`UPDATE users SET blocked = FALSE WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}

// Delete removes a user row. Rejects the protected account. The profile
// row goes with it via the foreign key cascade.
func (s *UserStore) Delete(email string) error {
	if err := s.rejectProtected(email); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM users WHERE email = $1 AND NOT protected`, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// rejectProtected returns ErrProtectedUser when the target row carries the
// protected flag. The mutation statements also carry a NOT protected guard
// so a racing protection change cannot slip a write through.
func (s *UserStore) rejectProtected(email string) error {
	u, err := s.FindByEmail(email)
	if err != nil {
		return err
	}
	if u != nil && u.Protected {
		return ErrProtectedUser
	}
	return nil
}
