// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"fmt"
	"time"
)

// Status represents an order's fulfillment state. Orders move through a
// linear pipeline: new -> in process -> ready to deliver. Physical handoff
// happens outside the system, so "ready to deliver" is terminal here.
type Status string

const (
	StatusNew            Status = "new"
	StatusInProcess      Status = "in process"
	StatusReadyToDeliver Status = "ready to deliver"
)

// ParseStatus validates a raw status string. Anything outside the three
// recognized values is rejected. Transitions are not forced to be
// forward-only: staff may move an order back to an earlier state.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusInProcess, StatusReadyToDeliver:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

// PrintType describes what kind of print job an order is.
type PrintType string

const (
	PrintBlackWhite PrintType = "bw"
	PrintColor      PrintType = "color"
	// PrintStationery marks merchandise-only orders with no documents.
	PrintStationery PrintType = "stationery"
)

// SideOption describes single- or double-sided printing. Stationery-only
// orders carry the empty value.
type SideOption string

const (
	SideSingle SideOption = "single"
	SideDouble SideOption = "double"
	SideNone   SideOption = ""
)

// ItemKind discriminates the two manifest line-item variants.
type ItemKind string

const (
	// ItemDocument is an uploaded file persisted to object storage.
	ItemDocument ItemKind = "document"
	// ItemMerchandise is a catalog item ordered by quantity.
	ItemMerchandise ItemKind = "merchandise"
)

// OrderItem is one line of an order manifest: either a document reference
// with a page count, or a merchandise reference with a quantity. The kind
// is carried as structured data end-to-end, never re-parsed from strings.
type OrderItem struct {
	ID          int64    `json:"id"`
	OrderID     int64    `json:"order_id"`
	Kind        ItemKind `json:"kind"`
	DisplayName string   `json:"display_name"`
	S3Key       *string  `json:"s3_key,omitempty"` // documents only
	Pages       int      `json:"pages"`            // documents only
	Quantity    int      `json:"quantity"`         // merchandise only
	Position    int      `json:"position"`
}

// Label returns the human-readable line shown in order listings and the
// confirmation mail: the stored filename for documents, "name × qty" for
// merchandise.
func (i *OrderItem) Label() string {
	if i.Kind == ItemMerchandise {
		return fmt.Sprintf("%s × %d", i.DisplayName, i.Quantity)
	}
	return i.DisplayName
}

// Order represents a customer order. OrderNumber is derived from ID by the
// database in the same statement that assigns the ID, so it is unique,
// immutable, and never influenced by user input.
type Order struct {
	ID            int64       `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	UserEmail     string      `json:"userEmail"`
	PrintType     PrintType   `json:"printType"`
	SideOption    SideOption  `json:"sideOption"`
	SpiralBinding bool        `json:"spiralBinding"`
	TotalPages    int         `json:"totalPages"`
	TotalCost     float64     `json:"totalCost"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	Items         []OrderItem `json:"items,omitempty"`
}

// IsStationeryOnly reports whether the order carries no documents.
func (o *Order) IsStationeryOnly() bool {
	return o.PrintType == PrintStationery
}

// Documents returns the document items of the manifest, in order.
func (o *Order) Documents() []OrderItem {
	return o.itemsOfKind(ItemDocument)
}

// Merchandise returns the merchandise items of the manifest, in order.
func (o *Order) Merchandise() []OrderItem {
	return o.itemsOfKind(ItemMerchandise)
}

func (o *Order) itemsOfKind(kind ItemKind) []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}
