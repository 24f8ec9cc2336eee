package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"printdesk/internal/cart"
	"printdesk/internal/middleware"
	"printdesk/internal/models"
)

// Carts groups the pre-order staging handlers. The cart is keyed by the
// verified identity, never by a client-supplied email.
type Carts struct {
	carts *cart.Store
}

// NewCarts creates the cart handler group.
func NewCarts(carts *cart.Store) *Carts {
	return &Carts{carts: carts}
}

// cartAddRequest is the JSON body of the add-to-cart operation.
type cartAddRequest struct {
	Type    string          `json:"type"`
	ItemID  string          `json:"itemId"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Add stages an item in the caller's cart.
func (h *Carts) Add(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" || req.ItemID == "" {
		writeError(w, "Missing fields", http.StatusBadRequest)
		return
	}
	if req.Type != models.CartTypePrint && req.Type != models.CartTypeStationery {
		writeError(w, "Missing fields", http.StatusBadRequest)
		return
	}

	cur := middleware.CurrentUser(r.Context())
	item := &models.CartItem{
		UserEmail: cur.Email,
		Type:      req.Type,
		ItemID:    req.ItemID,
		Details:   req.Details,
	}
	added, err := h.carts.Add(r.Context(), item)
	if err != nil {
		slog.Error("cart add failed", "error", err, "user", cur.Email)
		writeError(w, "Internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Added to cart",
		"item":    added,
	})
}

// List returns the caller's staged items, oldest first.
func (h *Carts) List(w http.ResponseWriter, r *http.Request) {
	cur := middleware.CurrentUser(r.Context())
	items, err := h.carts.List(r.Context(), cur.Email)
	if err != nil {
		slog.Error("cart list failed", "error", err, "user", cur.Email)
		writeError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Remove deletes one staged item from the caller's cart.
func (h *Carts) Remove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, "Item ID required", http.StatusBadRequest)
		return
	}

	cur := middleware.CurrentUser(r.Context())
	if err := h.carts.Remove(r.Context(), cur.Email, req.ID); err != nil {
		slog.Error("cart remove failed", "error", err, "user", cur.Email)
		writeError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeMessage(w, "Removed from cart")
}

// Clear drops the caller's whole cart, as on sign-out.
func (h *Carts) Clear(w http.ResponseWriter, r *http.Request) {
	cur := middleware.CurrentUser(r.Context())
	if err := h.carts.Clear(r.Context(), cur.Email); err != nil {
		slog.Error("cart clear failed", "error", err, "user", cur.Email)
		writeError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeMessage(w, "Cart cleared")
}
