package store

import (
	"database/sql"
	"fmt"

	"printdesk/internal/models"
)

// ProfileStore handles profile-related database operations.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// FindWithBlock retrieves a profile joined with the account's block flag.
// Returns nil if no profile exists for the email.
func (s *ProfileStore) FindWithBlock(email string) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.db.QueryRow(`
		SELECT p.email, p.first_name, p.last_name, p.mobile_number, p.mobile_verified, u.blocked
		FROM profiles p
		JOIN users u ON p.email = u.email
		WHERE p.email = $1
	`, email).Scan(&p.Email, &p.FirstName, &p.LastName, &p.MobileNumber, &p.MobileVerified, &p.Blocked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// Upsert writes profile details for a user. Empty incoming fields preserve
// whatever is already stored, so a partial update never wipes contact data.
func (s *ProfileStore) Upsert(p *models.Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO profiles (email, first_name, last_name, mobile_number, mobile_verified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			first_name      = CASE WHEN EXCLUDED.first_name    = '' THEN profiles.first_name    ELSE EXCLUDED.first_name    END,
			last_name       = CASE WHEN EXCLUDED.last_name     = '' THEN profiles.last_name     ELSE EXCLUDED.last_name     END,
			mobile_number   = CASE WHEN EXCLUDED.mobile_number = '' THEN profiles.mobile_number ELSE EXCLUDED.mobile_number END,
			mobile_verified = EXCLUDED.mobile_verified,
			updated_at      = now()
	`, p.Email, p.FirstName, p.LastName, p.MobileNumber, p.MobileVerified)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// ToggleMobileVerified flips the manual mobile-verification flag and
// returns the new value. found is false when no profile exists for the email.
func (s *ProfileStore) ToggleMobileVerified(email string) (newFlag, found bool, err error) {
	err = s.db.QueryRow(`
		UPDATE profiles SET mobile_verified = NOT mobile_verified, updated_at = now()
		WHERE email = $1
		RETURNING mobile_verified
	`, email).Scan(&newFlag)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("toggle mobile verified: %w", err)
	}
	return newFlag, true, nil
}
