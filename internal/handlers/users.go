package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"printdesk/internal/middleware"
	"printdesk/internal/models"
	"printdesk/internal/store"
)

// Users groups the account, role, and profile management handlers.
type Users struct {
	users      *store.UserStore
	profiles   *store.ProfileStore
	superAdmin string // protected identity; "" when not configured
}

// NewUsers creates the user management handler group.
func NewUsers(users *store.UserStore, profiles *store.ProfileStore, superAdmin string) *Users {
	return &Users{
		users:      users,
		profiles:   profiles,
		superAdmin: superAdmin,
	}
}

// isProtected reports whether email names the configured super admin.
// Mutation handlers check this before touching the store so a protected
// mutation is rejected before any write, even if the row is missing.
func (h *Users) isProtected(email string) bool {
	return h.superAdmin != "" && email == h.superAdmin
}

// canAccess allows self-service lookups and any admin lookup.
func canAccess(cur *models.User, target string) bool {
	return cur != nil && (cur.IsAdmin() || cur.Email == target)
}

// GetRole returns the account's role. Unknown accounts default to "user";
// the row itself is created lazily when that user first authenticates.
func (h *Users) GetRole(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, "Email required", http.StatusBadRequest)
		return
	}
	if !canAccess(middleware.CurrentUser(r.Context()), email) {
		writeError(w, "Forbidden", http.StatusForbidden)
		return
	}

	user, err := h.users.FindByEmail(email)
	if err != nil {
		slog.Error("role lookup failed", "error", err, "email", email)
		writeError(w, "Could not get user role", http.StatusInternalServerError)
		return
	}

	role := models.RoleUser
	if user != nil {
		role = user.Role
	}
	writeJSON(w, http.StatusOK, map[string]models.Role{"role": role})
}

// GetUsers returns every account joined with profile details (admin only).
func (h *Users) GetUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.users.List()
	if err != nil {
		slog.Error("user list failed", "error", err)
		writeError(w, "Failed to fetch users.", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []store.AccountRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": accounts})
}

// roleUpdateRequest is the JSON body of the role change operation.
type roleUpdateRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateRole changes an account's role. The protected identity is immune.
func (h *Users) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Role == "" {
		writeError(w, "Email and role are required.", http.StatusBadRequest)
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		writeError(w, "Invalid role.", http.StatusBadRequest)
		return
	}

	if h.isProtected(req.Email) && role != models.RoleAdmin {
		writeError(w, "Cannot change super admin role.", http.StatusForbidden)
		return
	}

	if err := h.users.UpdateRole(req.Email, role); err != nil {
		if err == store.ErrProtectedUser {
			writeError(w, "Cannot change super admin role.", http.StatusForbidden)
			return
		}
		slog.Error("role update failed", "error", err, "email", req.Email)
		writeError(w, "Could not update role.", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "Role updated to "+string(role))
}

// emailRequest is the JSON body of the single-email account operations.
type emailRequest struct {
	Email string `json:"email"`
}

// BlockUser blocks an account. Takes effect on the target's next
// navigation because the access gate re-reads the flag per request.
func (h *Users) BlockUser(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Email required", http.StatusBadRequest)
		return
	}

	if h.isProtected(req.Email) {
		writeError(w, "Cannot block protected admin.", http.StatusForbidden)
		return
	}

	if err := h.users.Block(req.Email); err != nil {
		if err == store.ErrProtectedUser {
			writeError(w, "Cannot block protected admin.", http.StatusForbidden)
			return
		}
		slog.Error("block failed", "error", err, "email", req.Email)
		writeError(w, "Failed to block user.", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "User blocked successfully.")
}

// UnblockUser clears the block flag. Unblocking an unknown account is a
// no-op success so the admin console can always clear its state.
func (h *Users) UnblockUser(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Email required", http.StatusBadRequest)
		return
	}

	if err := h.users.Unblock(req.Email); err != nil {
		slog.Error("unblock failed", "error", err, "email", req.Email)
		writeError(w, "Failed to unblock user.", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "User unblocked successfully.")
}

// DeleteUser removes an account and, via cascade, its profile. The
// protected identity is immune.
func (h *Users) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Email required", http.StatusBadRequest)
		return
	}

	if h.isProtected(req.Email) {
		writeError(w, "Cannot delete protected admin.", http.StatusForbidden)
		return
	}

	if err := h.users.Delete(req.Email); err != nil {
		if err == store.ErrProtectedUser {
			writeError(w, "Cannot delete protected admin.", http.StatusForbidden)
			return
		}
		slog.Error("delete failed", "error", err, "email", req.Email)
		writeError(w, "Failed to delete user.", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "User deleted successfully.")
}

// profileRequest is the JSON body of the profile write operations.
type profileRequest struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MobileNumber   string `json:"mobileNumber"`
	MobileVerified bool   `json:"mobileVerified"`
}

// UpdateProfile upserts a user's contact details. Empty fields preserve
// what is stored. Users may only write their own profile; admins any.
func (h *Users) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Email is required", http.StatusBadRequest)
		return
	}
	if !canAccess(middleware.CurrentUser(r.Context()), req.Email) {
		writeError(w, "Forbidden", http.StatusForbidden)
		return
	}

	// The profile row references the users row, so make sure it exists.
	if err := h.ensureAccount(req.Email); err != nil {
		slog.Error("ensure account failed", "error", err, "email", req.Email)
		writeError(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	p := &models.Profile{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MobileNumber:   req.MobileNumber,
		MobileVerified: req.MobileVerified,
	}
	if err := h.profiles.Upsert(p); err != nil {
		slog.Error("profile upsert failed", "error", err, "email", req.Email)
		writeError(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "Profile updated successfully!")
}

// GetProfile returns a profile joined with the account's block flag, so
// route guards learn about a block in the same round trip.
func (h *Users) GetProfile(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, "Email is required", http.StatusBadRequest)
		return
	}
	if !canAccess(middleware.CurrentUser(r.Context()), email) {
		writeError(w, "Forbidden", http.StatusForbidden)
		return
	}

	profile, err := h.profiles.FindWithBlock(email)
	if err != nil {
		slog.Error("profile lookup failed", "error", err, "email", email)
		writeError(w, "Failed to fetch profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, "Profile not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// VerifyMobileManual toggles a profile's mobile-verified flag. This is the
// staff fallback when the SMS passcode flow fails for a customer.
func (h *Users) VerifyMobileManual(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Email is required", http.StatusBadRequest)
		return
	}

	_, found, err := h.profiles.ToggleMobileVerified(req.Email)
	if err != nil {
		slog.Error("mobile verify toggle failed", "error", err, "email", req.Email)
		writeError(w, "Failed to toggle mobile verification.", http.StatusInternalServerError)
		return
	}
	if !found {
		writeError(w, "Profile not found", http.StatusNotFound)
		return
	}

	writeMessage(w, "Mobile verification status updated!")
}

// CreateUserProfile is the signup hook: it provisions the account row and
// writes the initial profile in one call.
func (h *Users) CreateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, "Email is required", http.StatusBadRequest)
		return
	}
	if !canAccess(middleware.CurrentUser(r.Context()), req.Email) {
		writeError(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.ensureAccount(req.Email); err != nil {
		slog.Error("ensure account failed", "error", err, "email", req.Email)
		writeError(w, "Failed to create profile", http.StatusInternalServerError)
		return
	}

	p := &models.Profile{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
	}
	if err := h.profiles.Upsert(p); err != nil {
		slog.Error("profile create failed", "error", err, "email", req.Email)
		writeError(w, "Failed to create profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ensureAccount lazily creates the users row for email with the defaults
// the access gate would apply.
func (h *Users) ensureAccount(email string) error {
	role := models.RoleUser
	protected := false
	if h.isProtected(email) {
		role = models.RoleAdmin
		protected = true
	}
	_, err := h.users.EnsureUser(email, role, protected)
	return err
}
