package store

import (
	"database/sql"
	"errors"
	"fmt"

	"printdesk/internal/models"
)

// ErrOrderNotFound is returned when a status update targets an unknown order.
var ErrOrderNotFound = errors.New("order not found")

// OrderStore handles all order-related database operations. It is the only
// writer of the orders and order_items tables.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore creates a new OrderStore with the given database connection.
func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, order_number, user_email, print_type, side_option,
	spiral_binding, total_pages, total_cost, status, created_at`

// CreateProvisional inserts a new order with an empty manifest. The order
// number is a generated column derived from the identity id, so both are
// assigned by this single statement: there is no window in which the row
// exists unnumbered, and concurrent submissions can never collide.
func (s *OrderStore) CreateProvisional(userEmail string, printType models.PrintType, side models.SideOption, spiral bool, totalCost float64) (*models.Order, error) {
	o := &models.Order{}
	err := s.db.QueryRow(`
		INSERT INTO orders (user_email, print_type, side_option, spiral_binding, total_cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orderColumns,
		userEmail, printType, side, spiral, totalCost,
	).Scan(
		&o.ID, &o.OrderNumber, &o.UserEmail, &o.PrintType, &o.SideOption,
		&o.SpiralBinding, &o.TotalPages, &o.TotalCost, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// FinalizeItems attaches the manifest to an order and records the page
// total in one transaction. Blobs referenced by the items are already in
// object storage; if this fails they are orphaned there — no compensating
// delete is attempted, reconciliation happens out of band.
func (s *OrderStore) FinalizeItems(orderID int64, items []models.OrderItem, totalPages int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}
	defer tx.Rollback()

	for pos, it := range items {
		_, err := tx.Exec(`
			INSERT INTO order_items (order_id, kind, display_name, s3_key, pages, quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, orderID, it.Kind, it.DisplayName, it.S3Key, it.Pages, it.Quantity, pos)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	res, err := tx.Exec(`UPDATE orders SET total_pages = $1 WHERE id = $2`, totalPages, orderID)
	if err != nil {
		return fmt.Errorf("finalize order totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finalize order commit: %w", err)
	}
	return nil
}

// List returns orders newest first, optionally filtered to one user's
// email, with their manifests loaded.
func (s *OrderStore) List(filterEmail string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`
	args := []any{}
	if filterEmail != "" {
		query = `SELECT ` + orderColumns + ` FROM orders WHERE user_email = $1 ORDER BY created_at DESC, id DESC`
		args = append(args, filterEmail)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserEmail, &o.PrintType, &o.SideOption,
			&o.SpiralBinding, &o.TotalPages, &o.TotalCost, &o.Status, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.loadItems(orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// FindByNumber retrieves an order by its human-readable number, with the
// manifest loaded. Returns nil if not found.
func (s *OrderStore) FindByNumber(orderNumber string) (*models.Order, error) {
	o := &models.Order{}
	err := s.db.QueryRow(`
		SELECT `+orderColumns+` FROM orders WHERE order_number = $1
	`, orderNumber).Scan(
		&o.ID, &o.OrderNumber, &o.UserEmail, &o.PrintType, &o.SideOption,
		&o.SpiralBinding, &o.TotalPages, &o.TotalCost, &o.Status, &o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by number: %w", err)
	}

	items, err := s.loadItems(o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// SetStatus updates the fulfillment status of an order. Callers must pass
// a status validated by models.ParseStatus; this method only guards the
// row's existence.
func (s *OrderStore) SetStatus(orderID int64, status models.Status) error {
	res, err := s.db.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// loadItems fetches an order's manifest in manifest order.
func (s *OrderStore) loadItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, kind, display_name, s3_key, pages, quantity, position
		FROM order_items WHERE order_id = $1 ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.Kind, &it.DisplayName,
			&it.S3Key, &it.Pages, &it.Quantity, &it.Position,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
