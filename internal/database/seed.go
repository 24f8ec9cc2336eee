package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// EnsureSuperAdmin guarantees the configured super-admin account exists with
// role admin and the protected flag set. The protected flag is what the
// mutation operations check, so it must be present before any traffic is
// served. Idempotent: re-running reasserts role and protection but never
// duplicates the row.
func EnsureSuperAdmin(db *sql.DB, email string) error {
	if email == "" {
		slog.Warn("no super admin configured — all accounts are mutable")
		return nil
	}

	_, err := db.Exec(`
		INSERT INTO users (email, role, protected, blocked)
		VALUES ($1, 'admin', TRUE, FALSE)
		ON CONFLICT (email) DO UPDATE SET role = 'admin', protected = TRUE, blocked = FALSE
	`, email)
	if err != nil {
		return fmt.Errorf("ensure super admin: %w", err)
	}

	slog.Info("super admin ensured", "email", email)
	return nil
}
