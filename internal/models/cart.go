package models

import (
	"encoding/json"
	"time"
)

// Cart entry types.
const (
	CartTypePrint      = "print"
	CartTypeStationery = "stationery"
)

// CartItem is a pre-order staging entry. Carts are ephemeral: they live in
// Valkey with a TTL, are cleared wholesale on sign-out, and never become
// the order record themselves — the client reads the cart and translates
// it into a submission at checkout.
type CartItem struct {
	ID        string          `json:"id"`
	UserEmail string          `json:"userEmail"`
	Type      string          `json:"type"`   // "print" or "stationery"
	ItemID    string          `json:"itemId"` // file name or catalog product ID
	Details   json.RawMessage `json:"details,omitempty"`
	AddedAt   time.Time       `json:"addedAt"`
}
