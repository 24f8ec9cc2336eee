// Package handlers implements the HTTP API of the printdesk server.
// Handlers orchestrate stores, object storage, and mail; they own request
// validation and the mapping of failures onto status codes.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"printdesk/internal/mail"
	"printdesk/internal/middleware"
	"printdesk/internal/models"
	"printdesk/internal/storage"
	"printdesk/internal/store"
)

const (
	// maxUploadSize caps a whole submission (all files plus form fields).
	maxUploadSize = 50 << 20

	// presignExpiry is how long a signed document URL stays valid.
	presignExpiry = 1 * time.Hour
)

// Uploader is the slice of the storage client the order handlers use.
// Satisfied by *storage.Client.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Orders groups the order pipeline handlers.
type Orders struct {
	orders  *store.OrderStore
	storage Uploader
	mailer  mail.Mailer
	inbox   string // operational mailbox copied on confirmations
}

// NewOrders creates the order handler group. storage may be nil when object
// storage is not configured; document submissions are then rejected.
func NewOrders(orders *store.OrderStore, uploader Uploader, mailer mail.Mailer, inbox string) *Orders {
	return &Orders{
		orders:  orders,
		storage: uploader,
		mailer:  mailer,
		inbox:   inbox,
	}
}

// merchInput is a catalog line item as submitted by the client.
type merchInput struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SubmitOrder handles the mixed document/merchandise flow: multipart
// files[] plus print options, page count hints, and optional catalog items.
// The order row is created first (drawing its number), each file is then
// uploaded under that number, and the manifest is finalized with the
// aggregate page count. A failed upload aborts the submission; files
// uploaded before the failure stay in the bucket as orphans for the
// out-of-band reconciliation sweep.
func (h *Orders) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, "Object storage is not configured.", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, "Upload too large.", http.StatusRequestEntityTooLarge)
		return
	}

	userEmail := r.FormValue("user")
	if cur := middleware.CurrentUser(r.Context()); cur != nil {
		// The verified identity wins over whatever the form claims.
		userEmail = cur.Email
	}

	printTypeRaw := r.FormValue("printType")
	totalCostRaw := r.FormValue("totalCost")
	// createdAt is required for compatibility with the submission payload
	// but the store assigns the authoritative timestamp.
	createdAt := r.FormValue("createdAt")
	if userEmail == "" || printTypeRaw == "" || totalCostRaw == "" || createdAt == "" {
		writeError(w, "Missing required fields.", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, "No files uploaded.", http.StatusBadRequest)
		return
	}

	printType, ok := parsePrintType(printTypeRaw)
	if !ok || printType == models.PrintStationery {
		writeError(w, "Invalid print type.", http.StatusBadRequest)
		return
	}
	side, ok := parseSideOption(r.FormValue("sideOption"))
	if !ok {
		writeError(w, "Invalid side option.", http.StatusBadRequest)
		return
	}
	spiral := r.FormValue("spiralBinding") == "true"

	totalCost, err := strconv.ParseFloat(totalCostRaw, 64)
	if err != nil {
		writeError(w, "Invalid total cost.", http.StatusBadRequest)
		return
	}

	var pageHints []int
	if raw := r.FormValue("pageCounts"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pageHints); err != nil {
			writeError(w, "Invalid page counts.", http.StatusBadRequest)
			return
		}
	}

	var merch []merchInput
	if raw := r.FormValue("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &merch); err != nil {
			writeError(w, "Invalid items.", http.StatusBadRequest)
			return
		}
	}

	order, err := h.orders.CreateProvisional(userEmail, printType, side, spiral, totalCost)
	if err != nil {
		slog.Error("order create failed", "error", err, "user", userEmail)
		writeError(w, "Failed to store print order.", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	var items []models.OrderItem
	totalPages := 0

	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, "Failed to read file.", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, "Failed to read file.", http.StatusBadRequest)
			return
		}

		key := storage.DocumentKey(order.OrderNumber, fh.Filename)
		contentType := storage.ContentTypeForName(fh.Filename)
		if err := h.storage.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
			// Files uploaded before this one are now orphaned blobs.
			slog.Error("document upload failed", "error", err, "order", order.OrderNumber, "key", key)
			writeError(w, "Failed to store print order.", http.StatusInternalServerError)
			return
		}

		// Client hint wins when positive; otherwise count pages from the
		// uploaded bytes.
		pages := 0
		if i < len(pageHints) && pageHints[i] > 0 {
			pages = pageHints[i]
		} else if contentType == "application/pdf" {
			pages = countPDFPages(data)
		}
		totalPages += pages

		items = append(items, models.OrderItem{
			Kind:        models.ItemDocument,
			DisplayName: fh.Filename,
			S3Key:       &key,
			Pages:       pages,
		})
	}

	for _, m := range merch {
		qty := m.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, models.OrderItem{
			Kind:        models.ItemMerchandise,
			DisplayName: m.Name,
			Quantity:    qty,
		})
	}

	if err := h.orders.FinalizeItems(order.ID, items, totalPages); err != nil {
		slog.Error("order finalize failed", "error", err, "order", order.OrderNumber)
		writeError(w, "Failed to store print order.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orderNumber": order.OrderNumber,
		"totalCost":   totalCost,
	})
}

// stationeryOrderRequest is the JSON body of the merchandise-only flow.
type stationeryOrderRequest struct {
	User      string       `json:"user"`
	Items     []merchInput `json:"items"`
	TotalCost float64      `json:"totalCost"`
	CreatedAt string       `json:"createdAt"`
}

// SubmitStationeryOrder handles merchandise-only submissions: no files, no
// print options, totalPages carries the item quantity sum instead.
func (h *Orders) SubmitStationeryOrder(w http.ResponseWriter, r *http.Request) {
	var req stationeryOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Missing stationery order data.", http.StatusBadRequest)
		return
	}
	if cur := middleware.CurrentUser(r.Context()); cur != nil {
		req.User = cur.Email
	}
	if req.User == "" || len(req.Items) == 0 || req.TotalCost == 0 {
		writeError(w, "Missing stationery order data.", http.StatusBadRequest)
		return
	}

	order, err := h.orders.CreateProvisional(req.User, models.PrintStationery, models.SideNone, false, req.TotalCost)
	if err != nil {
		slog.Error("stationery order create failed", "error", err, "user", req.User)
		writeError(w, "Failed to store stationery order.", http.StatusInternalServerError)
		return
	}

	var items []models.OrderItem
	totalQty := 0
	for _, m := range req.Items {
		qty := m.Quantity
		if qty < 1 {
			qty = 1
		}
		totalQty += qty
		items = append(items, models.OrderItem{
			Kind:        models.ItemMerchandise,
			DisplayName: m.Name,
			Quantity:    qty,
		})
	}

	if err := h.orders.FinalizeItems(order.ID, items, totalQty); err != nil {
		slog.Error("stationery order finalize failed", "error", err, "order", order.OrderNumber)
		writeError(w, "Failed to store stationery order.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orderNumber": order.OrderNumber,
		"totalCost":   req.TotalCost,
	})
}

// GetOrders lists orders with each manifest exploded into attachedFiles
// name entries. Admins see every order (optionally filtered by the email
// query parameter); everyone else sees only their own.
func (h *Orders) GetOrders(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("email")
	cur := middleware.CurrentUser(r.Context())
	if cur != nil && !cur.IsAdmin() {
		filter = cur.Email
	}

	orders, err := h.orders.List(filter)
	if err != nil {
		slog.Error("order list failed", "error", err)
		writeError(w, "Failed to fetch orders.", http.StatusInternalServerError)
		return
	}

	type fileEntry struct {
		Name string `json:"name"`
	}
	type orderView struct {
		models.Order
		AttachedFiles []fileEntry `json:"attachedFiles"`
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		v := orderView{Order: o, AttachedFiles: []fileEntry{}}
		for _, it := range o.Items {
			v.AttachedFiles = append(v.AttachedFiles, fileEntry{Name: it.Label()})
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

// statusUpdateRequest is the JSON body of the staff status advance.
type statusUpdateRequest struct {
	OrderID   int64  `json:"orderId"`
	NewStatus string `json:"newStatus"`
}

// UpdateOrderStatus advances an order through the fulfillment pipeline.
// The target status must be one of the three recognized states; anything
// else is rejected and the stored status is left untouched.
func (h *Orders) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Order ID and new status required.", http.StatusBadRequest)
		return
	}
	if req.OrderID == 0 || req.NewStatus == "" {
		writeError(w, "Order ID and new status required.", http.StatusBadRequest)
		return
	}

	status, err := models.ParseStatus(req.NewStatus)
	if err != nil {
		writeError(w, "Invalid order status.", http.StatusBadRequest)
		return
	}

	if err := h.orders.SetStatus(req.OrderID, status); err != nil {
		if err == store.ErrOrderNotFound {
			writeError(w, "Order not found.", http.StatusNotFound)
			return
		}
		slog.Error("status update failed", "error", err, "order_id", req.OrderID)
		writeError(w, "Failed to update order status.", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "Order status updated successfully.")
}

// ConfirmPayment reads the current persisted order row and sends the
// confirmation mail to the ordering user plus the operational inbox.
// Unknown order numbers yield 404 and no mail.
func (h *Orders) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderNumber string `json:"orderNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderNumber == "" {
		writeError(w, "Order number required.", http.StatusBadRequest)
		return
	}

	order, err := h.orders.FindByNumber(req.OrderNumber)
	if err != nil {
		slog.Error("confirm payment lookup failed", "error", err, "order", req.OrderNumber)
		writeError(w, "Failed to confirm payment.", http.StatusInternalServerError)
		return
	}
	if order == nil {
		writeError(w, "Order not found.", http.StatusNotFound)
		return
	}

	recipients := []string{order.UserEmail}
	if h.inbox != "" && h.inbox != order.UserEmail {
		recipients = append(recipients, h.inbox)
	}

	body := mail.BuildConfirmation(order)
	if err := h.mailer.Send(recipients, mail.ConfirmationSubject(order.OrderNumber), body); err != nil {
		slog.Error("confirmation mail failed", "error", err, "order", order.OrderNumber)
		writeError(w, "Failed to confirm payment.", http.StatusInternalServerError)
		return
	}

	writeMessage(w, "Confirmation email sent.")
}

// GetSignedURL returns a one-hour presigned link for a stored document.
// Document keys are namespaced by order number, so a non-admin caller may
// only presign keys under orders they placed themselves.
func (h *Orders) GetSignedURL(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, "Object storage is not configured.", http.StatusServiceUnavailable)
		return
	}

	key := r.URL.Query().Get("filename")
	if key == "" {
		writeError(w, "Filename required", http.StatusBadRequest)
		return
	}

	if cur := middleware.CurrentUser(r.Context()); cur != nil && !cur.IsAdmin() {
		number, _, _ := strings.Cut(key, "/")
		order, err := h.orders.FindByNumber(number)
		if err != nil {
			slog.Error("signed URL ownership lookup failed", "error", err, "key", key)
			writeError(w, "Failed to generate signed URL", http.StatusInternalServerError)
			return
		}
		if order == nil || order.UserEmail != cur.Email {
			writeError(w, "Forbidden.", http.StatusForbidden)
			return
		}
	}

	url, err := h.storage.PresignedURL(r.Context(), key, presignExpiry)
	if err != nil {
		slog.Error("presign failed", "error", err, "key", key)
		writeError(w, "Failed to generate signed URL", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// parsePrintType validates a raw print type value.
func parsePrintType(s string) (models.PrintType, bool) {
	switch models.PrintType(s) {
	case models.PrintBlackWhite, models.PrintColor, models.PrintStationery:
		return models.PrintType(s), true
	}
	return "", false
}

// parseSideOption validates a raw side option value. The empty value is
// legal: stationery-only orders have no sides.
func parseSideOption(s string) (models.SideOption, bool) {
	switch models.SideOption(s) {
	case models.SideSingle, models.SideDouble, models.SideNone:
		return models.SideOption(s), true
	}
	return "", false
}

// pdfPageMarker matches PDF page object declarations. "/Type /Pages" (the
// page tree node) is excluded by the trailing boundary.
var pdfPageMarker = regexp.MustCompile(`/Type\s*/Page\b`)

// countPDFPages counts pages by scanning the raw bytes for page objects.
// Best-effort: compressed object streams hide their markers, in which case
// the count comes up short and the client-supplied hint is the only source.
func countPDFPages(data []byte) int {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return 0
	}
	return len(pdfPageMarker.FindAll(data, -1))
}
