package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"printdesk/internal/authz"
	"printdesk/internal/database"
	"printdesk/internal/handlers"
	"printdesk/internal/models"
	"printdesk/internal/store"
)

const superAdmin = "owner@example.com"

// fakeDirectory backs the gate for tests that need no database.
type fakeDirectory struct {
	users map[string]*models.User
}

func (d *fakeDirectory) EnsureUser(email string, role models.Role, protected bool) (*models.User, error) {
	if u, ok := d.users[email]; ok {
		c := *u
		return &c, nil
	}
	u := models.User{Email: email, Role: role, Protected: protected}
	d.users[email] = &u
	c := u
	return &c, nil
}

func (d *fakeDirectory) IsBlocked(email string) (bool, error) {
	if u, ok := d.users[email]; ok {
		return u.Blocked, nil
	}
	return false, nil
}

// fakeUploader records uploads instead of talking to S3. Setting failAt to n
// makes the nth and every later Upload call return uploadErr.
type fakeUploader struct {
	keys      []string
	calls     int
	failAt    int
	uploadErr error
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	f.calls++
	if f.failAt > 0 && f.calls >= f.failAt {
		return f.uploadErr
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeUploader) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://s3.example.com/" + key + "?signed", nil
}

// recordMailer captures confirmation sends.
type recordMailer struct {
	recipients [][]string
	subjects   []string
	bodies     []string
}

func (m *recordMailer) Send(to []string, subject, htmlBody string) error {
	m.recipients = append(m.recipients, to)
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, htmlBody)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "printdesk")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "printdesk")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect(testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE users, profiles, orders, order_items RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := database.EnsureSuperAdmin(db, superAdmin); err != nil {
		t.Fatalf("EnsureSuperAdmin: %v", err)
	}
	return db
}

// testServer wires the full stack over a real database with fakes for the
// external collaborators. Cart routes are covered by the cart package tests
// and stay unwired here.
func testServer(t *testing.T) (http.Handler, *fakeUploader, *recordMailer) {
	t.Helper()
	db := testDB(t)

	userStore := store.NewUserStore(db)
	uploader := &fakeUploader{}
	mailer := &recordMailer{}

	gate := authz.NewGate(userStore, superAdmin)
	orders := handlers.NewOrders(store.NewOrderStore(db), uploader, mailer, "inbox@printdesk.local")
	users := handlers.NewUsers(userStore, store.NewProfileStore(db), superAdmin)
	carts := handlers.NewCarts(nil)

	return New(gate, orders, users, carts, nil), uploader, mailer
}

func doJSON(t *testing.T, h http.Handler, method, path, identity string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if identity != "" {
		req.Header.Set("X-User-Email", identity)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	gate := authz.NewGate(&fakeDirectory{users: map[string]*models.User{}}, "")
	r := New(gate, handlers.NewOrders(nil, nil, nil, ""), handlers.NewUsers(nil, nil, ""), handlers.NewCarts(nil), nil)

	rec := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	gate := authz.NewGate(&fakeDirectory{users: map[string]*models.User{}}, "")
	r := New(gate, handlers.NewOrders(nil, nil, nil, ""), handlers.NewUsers(nil, nil, ""), handlers.NewCarts(nil), nil)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/get-orders"},
		{http.MethodPost, "/confirm-payment"},
		{http.MethodGet, "/get-role"},
		{http.MethodPost, "/update-order-status"},
		{http.MethodPost, "/block-user"},
	}
	for _, p := range paths {
		rec := doJSON(t, r, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestBlockedAccountDeniedEverywhere(t *testing.T) {
	dir := &fakeDirectory{users: map[string]*models.User{
		"blocked@example.com": {Email: "blocked@example.com", Role: models.RoleAdmin, Blocked: true},
	}}
	gate := authz.NewGate(dir, "")
	r := New(gate, handlers.NewOrders(nil, nil, nil, ""), handlers.NewUsers(nil, nil, ""), handlers.NewCarts(nil), nil)

	for _, path := range []string{"/get-orders", "/get-role"} {
		rec := doJSON(t, r, http.MethodGet, path, "blocked@example.com", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("GET %s: status = %d, want 403", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Account blocked.") {
			t.Errorf("GET %s: body = %q", path, rec.Body.String())
		}
	}

	// Admin tier too: the block wins over the role.
	rec := doJSON(t, r, http.MethodPost, "/update-order-status", "blocked@example.com",
		map[string]any{"orderId": 1, "newStatus": "in process"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin route: status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Account blocked.") {
		t.Errorf("admin route body = %q", rec.Body.String())
	}
}

func TestUserCannotReachAdminRoutes(t *testing.T) {
	gate := authz.NewGate(&fakeDirectory{users: map[string]*models.User{}}, "")
	r := New(gate, handlers.NewOrders(nil, nil, nil, ""), handlers.NewUsers(nil, nil, ""), handlers.NewCarts(nil), nil)

	rec := doJSON(t, r, http.MethodPost, "/update-order-status", "customer@example.com",
		map[string]any{"orderId": 1, "newStatus": "in process"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func submitOrder(t *testing.T, r http.Handler, identity string, pageCounts string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"user":          identity,
		"printType":     "bw",
		"sideOption":    "single",
		"spiralBinding": "true",
		"totalCost":     "40",
		"createdAt":     time.Now().Format(time.RFC3339),
	}
	if pageCounts != "" {
		fields["pageCounts"] = pageCounts
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/submit-order", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Email", identity)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// Two files with page hints 3 and 5 make an order of 8 pages under a fresh
// ORD number, with every blob keyed under that number.
func TestSubmitOrderEndToEnd(t *testing.T) {
	r, uploader, _ := testServer(t)

	rec := submitOrder(t, r, "customer@example.com", "[3,5]", map[string][]byte{
		"notes.pdf":  []byte("%PDF-1.4 notes"),
		"thesis.pdf": []byte("%PDF-1.4 thesis"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OrderNumber string  `json:"orderNumber"`
		TotalCost   float64 `json:"totalCost"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderNumber != "ORD0001" {
		t.Errorf("order number = %q, want ORD0001", resp.OrderNumber)
	}
	if resp.TotalCost != 40 {
		t.Errorf("total cost = %v, want 40", resp.TotalCost)
	}

	if len(uploader.keys) != 2 {
		t.Fatalf("uploaded blobs = %d, want 2", len(uploader.keys))
	}
	for _, key := range uploader.keys {
		if !strings.HasPrefix(key, "ORD0001/") {
			t.Errorf("blob key %q not namespaced by order number", key)
		}
	}

	// The listing shows the aggregate page count and the manifest names.
	list := doJSON(t, r, http.MethodGet, "/get-orders", "customer@example.com", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("get-orders status = %d", list.Code)
	}
	var listing struct {
		Orders []struct {
			OrderNumber   string `json:"orderNumber"`
			TotalPages    int    `json:"totalPages"`
			Status        string `json:"status"`
			AttachedFiles []struct {
				Name string `json:"name"`
			} `json:"attachedFiles"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(listing.Orders))
	}
	o := listing.Orders[0]
	if o.TotalPages != 8 {
		t.Errorf("total pages = %d, want 8", o.TotalPages)
	}
	if o.Status != "new" {
		t.Errorf("status = %q, want new", o.Status)
	}
	if len(o.AttachedFiles) != 2 {
		t.Errorf("attached files = %+v", o.AttachedFiles)
	}
}

// Without usable hints the page count falls back to scanning the PDF bytes.
func TestSubmitOrderCountsPagesFromPDF(t *testing.T) {
	r, _, _ := testServer(t)

	pdf := []byte("%PDF-1.4\n<< /Type /Page >>\n<< /Type /Page >>")
	rec := submitOrder(t, r, "customer@example.com", "[0]", map[string][]byte{"scan.pdf": pdf})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	list := doJSON(t, r, http.MethodGet, "/get-orders", "customer@example.com", nil)
	var listing struct {
		Orders []struct {
			TotalPages int `json:"totalPages"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Orders) != 1 || listing.Orders[0].TotalPages != 2 {
		t.Errorf("listing = %+v, want 2 pages", listing.Orders)
	}
}

// A failed upload aborts the whole submission: the caller gets a 500, no
// manifest is finalized, and blobs stored before the failure stay behind as
// orphans.
func TestSubmitOrderUploadFailureAborts(t *testing.T) {
	r, uploader, _ := testServer(t)
	uploader.failAt = 2
	uploader.uploadErr = errors.New("bucket unavailable")

	rec := submitOrder(t, r, "customer@example.com", "[3,5]", map[string][]byte{
		"notes.pdf":  []byte("%PDF-1.4 notes"),
		"thesis.pdf": []byte("%PDF-1.4 thesis"),
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to store print order.") {
		t.Errorf("body = %q", rec.Body.String())
	}

	// Exactly the blob stored before the failure remains; nothing retracts it.
	if len(uploader.keys) != 1 {
		t.Fatalf("stored blobs = %v, want exactly one", uploader.keys)
	}
	if !strings.HasPrefix(uploader.keys[0], "ORD0001/") {
		t.Errorf("orphan key = %q", uploader.keys[0])
	}

	// The order row stays provisional: empty manifest, zero pages.
	list := doJSON(t, r, http.MethodGet, "/get-orders", "customer@example.com", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("get-orders status = %d", list.Code)
	}
	var listing struct {
		Orders []struct {
			TotalPages    int `json:"totalPages"`
			AttachedFiles []struct {
				Name string `json:"name"`
			} `json:"attachedFiles"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(listing.Orders))
	}
	if n := len(listing.Orders[0].AttachedFiles); n != 0 {
		t.Errorf("attached files = %d, want none", n)
	}
	if listing.Orders[0].TotalPages != 0 {
		t.Errorf("total pages = %d, want 0", listing.Orders[0].TotalPages)
	}
}

// Listings are scoped: a non-admin only ever sees their own orders, and the
// email filter belongs to admins.
func TestGetOrdersScoping(t *testing.T) {
	r, _, _ := testServer(t)

	submitStationery(t, r, "a@example.com")
	submitStationery(t, r, "b@example.com")

	countOrders := func(rec *httptest.ResponseRecorder) int {
		t.Helper()
		var listing struct {
			Orders []struct {
				UserEmail string `json:"userEmail"`
			} `json:"orders"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		return len(listing.Orders)
	}

	// Non-admin asking for someone else's orders still gets only their own.
	rec := doJSON(t, r, http.MethodGet, "/get-orders?email=b@example.com", "a@example.com", nil)
	if n := countOrders(rec); n != 1 {
		t.Errorf("customer listing = %d orders, want 1", n)
	}

	// Admin sees everything.
	rec = doJSON(t, r, http.MethodGet, "/get-orders", superAdmin, nil)
	if n := countOrders(rec); n != 2 {
		t.Errorf("admin listing = %d orders, want 2", n)
	}

	// Admin filter narrows.
	rec = doJSON(t, r, http.MethodGet, "/get-orders?email=b@example.com", superAdmin, nil)
	if n := countOrders(rec); n != 1 {
		t.Errorf("admin filtered listing = %d orders, want 1", n)
	}
}

func submitStationery(t *testing.T, r http.Handler, identity string) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/submit-stationery-order", identity, map[string]any{
		"user":      identity,
		"items":     []map[string]any{{"name": "Notebook", "quantity": 2}, {"name": "Pen"}},
		"totalCost": 75,
		"createdAt": time.Now().Format(time.RFC3339),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("stationery submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OrderNumber string `json:"orderNumber"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.OrderNumber
}

// Stationery orders carry the quantity sum as their page total and list
// items as "name × qty".
func TestSubmitStationeryOrderEndToEnd(t *testing.T) {
	r, _, _ := testServer(t)

	number := submitStationery(t, r, "customer@example.com")
	if number != "ORD0001" {
		t.Errorf("order number = %q, want ORD0001", number)
	}

	list := doJSON(t, r, http.MethodGet, "/get-orders", "customer@example.com", nil)
	var listing struct {
		Orders []struct {
			PrintType     string `json:"printType"`
			TotalPages    int    `json:"totalPages"`
			AttachedFiles []struct {
				Name string `json:"name"`
			} `json:"attachedFiles"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(listing.Orders))
	}
	o := listing.Orders[0]
	if o.PrintType != "stationery" {
		t.Errorf("print type = %q", o.PrintType)
	}
	// Quantity 2 plus defaulted quantity 1.
	if o.TotalPages != 3 {
		t.Errorf("total pages = %d, want 3", o.TotalPages)
	}
	if len(o.AttachedFiles) != 2 || o.AttachedFiles[0].Name != "Notebook × 2" {
		t.Errorf("attached files = %+v", o.AttachedFiles)
	}
}

// Signed URLs are scoped by ownership: the key's order-number prefix must
// belong to the caller unless the caller is an admin.
func TestGetSignedURLOwnership(t *testing.T) {
	r, uploader, _ := testServer(t)

	rec := submitOrder(t, r, "customer@example.com", "[3]", map[string][]byte{
		"notes.pdf": []byte("%PDF-1.4 notes"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(uploader.keys) != 1 {
		t.Fatalf("stored blobs = %v, want one", uploader.keys)
	}
	key := uploader.keys[0]

	// The ordering user may presign their own document.
	rec = doJSON(t, r, http.MethodGet, "/get-signed-url?filename="+key, "customer@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner presign = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), key+"?signed") {
		t.Errorf("owner presign body = %q", rec.Body.String())
	}

	// Another customer may not.
	rec = doJSON(t, r, http.MethodGet, "/get-signed-url?filename="+key, "other@example.com", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-user presign = %d, want 403", rec.Code)
	}

	// A key under an order that does not exist is likewise refused.
	rec = doJSON(t, r, http.MethodGet, "/get-signed-url?filename=ORD9999/ghost.pdf", "customer@example.com", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unknown order presign = %d, want 403", rec.Code)
	}

	// Admins may presign anything.
	rec = doJSON(t, r, http.MethodGet, "/get-signed-url?filename="+key, superAdmin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin presign = %d, want 200", rec.Code)
	}
}

func TestUpdateOrderStatusEndToEnd(t *testing.T) {
	r, _, _ := testServer(t)
	submitStationery(t, r, "customer@example.com")

	status := func() string {
		t.Helper()
		list := doJSON(t, r, http.MethodGet, "/get-orders", "customer@example.com", nil)
		var listing struct {
			Orders []struct {
				Status string `json:"status"`
			} `json:"orders"`
		}
		if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		return listing.Orders[0].Status
	}

	// Valid advance.
	rec := doJSON(t, r, http.MethodPost, "/update-order-status", superAdmin,
		map[string]any{"orderId": 1, "newStatus": "in process"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := status(); got != "in process" {
		t.Errorf("order status = %q, want in process", got)
	}

	// Unrecognized value: rejected, stored status untouched.
	rec = doJSON(t, r, http.MethodPost, "/update-order-status", superAdmin,
		map[string]any{"orderId": 1, "newStatus": "shipped"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status update = %d, want 400", rec.Code)
	}
	if got := status(); got != "in process" {
		t.Errorf("order status changed by rejected update: %q", got)
	}

	// Unknown order.
	rec = doJSON(t, r, http.MethodPost, "/update-order-status", superAdmin,
		map[string]any{"orderId": 999, "newStatus": "ready to deliver"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order update = %d, want 404", rec.Code)
	}
}

func TestConfirmPaymentEndToEnd(t *testing.T) {
	r, _, mailer := testServer(t)
	number := submitStationery(t, r, "customer@example.com")

	// Unknown order: 404 and no mail.
	rec := doJSON(t, r, http.MethodPost, "/confirm-payment", "customer@example.com",
		map[string]any{"orderNumber": "ORD9999"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order = %d, want 404", rec.Code)
	}
	if len(mailer.recipients) != 0 {
		t.Errorf("mail sent for unknown order: %+v", mailer.recipients)
	}

	// Known order: user plus operational inbox.
	rec = doJSON(t, r, http.MethodPost, "/confirm-payment", "customer@example.com",
		map[string]any{"orderNumber": number})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(mailer.recipients) != 1 {
		t.Fatalf("sends = %d, want 1", len(mailer.recipients))
	}
	got := mailer.recipients[0]
	if len(got) != 2 || got[0] != "customer@example.com" || got[1] != "inbox@printdesk.local" {
		t.Errorf("recipients = %v", got)
	}
	if mailer.subjects[0] != "Order Confirmed - "+number {
		t.Errorf("subject = %q", mailer.subjects[0])
	}
	if !strings.Contains(mailer.bodies[0], "Notebook × 2") {
		t.Errorf("body missing item: %s", mailer.bodies[0])
	}
}

// Blocking is visible on the target's very next request.
func TestBlockThenNextNavigationDenied(t *testing.T) {
	r, _, _ := testServer(t)

	// Customer is known and welcome.
	rec := doJSON(t, r, http.MethodGet, "/get-role?email=customer@example.com", "customer@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get-role = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"user"`) {
		t.Errorf("role body = %q", rec.Body.String())
	}

	// Admin blocks them.
	rec = doJSON(t, r, http.MethodPost, "/block-user", superAdmin,
		map[string]any{"email": "customer@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("block = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Next navigation is turned away.
	rec = doJSON(t, r, http.MethodGet, "/get-role?email=customer@example.com", "customer@example.com", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("post-block get-role = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Account blocked.") {
		t.Errorf("post-block body = %q", rec.Body.String())
	}

	// Unblock restores access.
	rec = doJSON(t, r, http.MethodPost, "/unblock-user", superAdmin,
		map[string]any{"email": "customer@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock = %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodGet, "/get-role?email=customer@example.com", "customer@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("post-unblock get-role = %d, want 200", rec.Code)
	}
}

// The protected identity cannot be demoted, blocked, or deleted, not even by
// itself.
func TestProtectedAdminImmuneOverHTTP(t *testing.T) {
	r, _, _ := testServer(t)

	calls := []struct {
		path string
		body map[string]any
	}{
		{"/update-role", map[string]any{"email": superAdmin, "role": "user"}},
		{"/block-user", map[string]any{"email": superAdmin}},
		{"/delete-user", map[string]any{"email": superAdmin}},
	}
	for _, c := range calls {
		rec := doJSON(t, r, http.MethodPost, c.path, superAdmin, c.body)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", c.path, rec.Code)
		}
	}

	// Still an admin afterwards.
	rec := doJSON(t, r, http.MethodGet, "/get-users", superAdmin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get-users after immunity checks = %d, want 200", rec.Code)
	}
}

func TestRoleManagementEndToEnd(t *testing.T) {
	r, _, _ := testServer(t)

	// Promote a customer to admin.
	rec := doJSON(t, r, http.MethodGet, "/get-role?email=staff@example.com", "staff@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get-role = %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/update-role", superAdmin,
		map[string]any{"email": "staff@example.com", "role": "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update-role = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The promoted account can now use admin routes.
	rec = doJSON(t, r, http.MethodGet, "/get-users", "staff@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("promoted admin get-users = %d, want 200", rec.Code)
	}

	// Unrecognized roles are rejected.
	rec = doJSON(t, r, http.MethodPost, "/update-role", superAdmin,
		map[string]any{"email": "staff@example.com", "role": "owner"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role = %d, want 400", rec.Code)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	r, _, _ := testServer(t)

	rec := doJSON(t, r, http.MethodPost, "/update-profile", "customer@example.com", map[string]any{
		"email":        "customer@example.com",
		"firstName":    "Asha",
		"lastName":     "Rao",
		"mobileNumber": "9876543210",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update-profile = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/get-profile?email=customer@example.com", "customer@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get-profile = %d", rec.Code)
	}
	var p struct {
		FirstName    string `json:"firstName"`
		MobileNumber string `json:"mobileNumber"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.FirstName != "Asha" || p.MobileNumber != "9876543210" {
		t.Errorf("profile = %+v", p)
	}

	// One customer cannot read another's profile.
	rec = doJSON(t, r, http.MethodGet, "/get-profile?email=customer@example.com", "other@example.com", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-user get-profile = %d, want 403", rec.Code)
	}

	// Admins can.
	rec = doJSON(t, r, http.MethodGet, "/get-profile?email=customer@example.com", superAdmin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin get-profile = %d, want 200", rec.Code)
	}

	// Unknown profile is a 404, not an empty object.
	rec = doJSON(t, r, http.MethodGet, "/get-profile?email="+superAdmin, superAdmin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing profile = %d, want 404", rec.Code)
	}
}

func TestVerifyMobileManualEndToEnd(t *testing.T) {
	r, _, _ := testServer(t)

	doJSON(t, r, http.MethodPost, "/update-profile", "customer@example.com", map[string]any{
		"email": "customer@example.com", "mobileNumber": "9876543210",
	})

	rec := doJSON(t, r, http.MethodPost, "/verify-mobile-manual", superAdmin,
		map[string]any{"email": "customer@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-mobile-manual = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, "/verify-mobile-manual", superAdmin,
		map[string]any{"email": "ghost@example.com"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown profile toggle = %d, want 404", rec.Code)
	}
}
