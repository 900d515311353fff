// Package apitest runs an in-memory storefront backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type failure struct {
	status  int
	message string
}

type account struct {
	password string
	token    string
	user     domain.User
}

type Backend struct {
	server *httptest.Server

	mu         sync.Mutex
	products   []domain.Product
	cartridges []domain.CartridgeProduct
	qrCodes    map[string]domain.QRCode
	accounts   map[string]account
	tokens     map[string]domain.User
	carts      map[int64][]domain.RemoteCartItem
	orders     map[int64][]domain.Order
	guest      []domain.Order
	requests   []Request
	failures   map[string]failure
	nextID     int64
}

// New starts the backend and closes it when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		qrCodes:  make(map[string]domain.QRCode),
		accounts: make(map[string]account),
		tokens:   make(map[string]domain.User),
		carts:    make(map[int64][]domain.RemoteCartItem),
		orders:   make(map[int64][]domain.Order),
		failures: make(map[string]failure),
		nextID:   1000,
	}
	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)

	return b
}

// URL is the API base URL to hand to api.NewClient.
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

func (b *Backend) AddProduct(p domain.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = append(b.products, p)
}

func (b *Backend) AddCartridge(p domain.CartridgeProduct, codes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cartridges = append(b.cartridges, p)
	for _, code := range codes {
		b.nextID++
		b.qrCodes[code] = domain.QRCode{ID: b.nextID, Code: code, ProductID: p.ID, Status: "available", Product: p}
	}
}

// AddUser registers an account and returns the bearer token the backend accepts for it.
func (b *Backend) AddUser(email, password string, user domain.User) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := fmt.Sprintf("token-%d-%d", user.ID, len(b.tokens))
	user.Email = email
	b.accounts[email] = account{password: password, token: token, user: user}
	b.tokens[token] = user
	return token
}

// Fail makes the next request matching method and path answer with status and message.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns the recorded requests for method and path (path without the /api prefix).
func (b *Backend) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == "/api"+path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) CartOf(userID int64) []domain.RemoteCartItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.RemoteCartItem(nil), b.carts[userID]...)
}

func (b *Backend) OrdersOf(userID int64) []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Order(nil), b.orders[userID]...)
}

func (b *Backend) GuestOrders() []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Order(nil), b.guest...)
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter()
	r.Use(b.record, b.injectFailures)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/software/products", b.listProducts).Methods(http.MethodGet)
	a.HandleFunc("/software/products/{id:[0-9]+}", b.getProduct).Methods(http.MethodGet)
	a.HandleFunc("/software/products/{id:[0-9]+}/plans", b.getPlans).Methods(http.MethodGet)
	a.HandleFunc("/software/brands", b.listBrands).Methods(http.MethodGet)
	a.HandleFunc("/software/categories", b.listCategories).Methods(http.MethodGet)
	a.HandleFunc("/cartridge/products", b.listCartridges).Methods(http.MethodGet)
	a.HandleFunc("/cartridge/products/{id:[0-9]+}", b.getCartridge).Methods(http.MethodGet)
	a.HandleFunc("/cartridge/qr-codes/{code}", b.getQRCode).Methods(http.MethodGet)

	a.HandleFunc("/cart", b.authed(b.getCart)).Methods(http.MethodGet)
	a.HandleFunc("/cart/items", b.authed(b.addCartItem)).Methods(http.MethodPost)
	a.HandleFunc("/cart/items/{id:[0-9]+}", b.authed(b.updateCartItem)).Methods(http.MethodPut)
	a.HandleFunc("/cart/items/{id:[0-9]+}", b.authed(b.deleteCartItem)).Methods(http.MethodDelete)
	a.HandleFunc("/cart/clear", b.authed(b.clearCart)).Methods(http.MethodDelete)

	a.HandleFunc("/orders/guest", b.guestOrder).Methods(http.MethodPost)
	a.HandleFunc("/orders/from-cart", b.authed(b.orderFromCart)).Methods(http.MethodPost)
	a.HandleFunc("/orders/my-orders", b.authed(b.myOrders)).Methods(http.MethodGet)

	a.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	a.HandleFunc("/distributors/login", b.login).Methods(http.MethodPost)
	a.HandleFunc("/distributors/register", b.registerDistributor).Methods(http.MethodPost)

	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.requests = append(b.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		b.mu.Lock()
		f, ok := b.failures[key]
		delete(b.failures, key)
		b.mu.Unlock()

		if ok {
			writeJSON(w, f.status, map[string]any{"success": false, "message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, user domain.User)

func (b *Backend) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		user, ok := b.tokens[token]
		b.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		h(w, r, user)
	}
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, http.StatusOK, b.products)
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := b.findProduct(pathID(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
		return
	}
	writeData(w, http.StatusOK, p)
}

func (b *Backend) getPlans(w http.ResponseWriter, r *http.Request) {
	p, ok := b.findProduct(pathID(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
		return
	}
	// bare array, no envelope
	writeJSON(w, http.StatusOK, p.Plans)
}

func (b *Backend) listBrands(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := map[int64]bool{}
	var brands []domain.Brand
	for _, p := range b.products {
		if !seen[p.BrandID] {
			seen[p.BrandID] = true
			brands = append(brands, domain.Brand{ID: p.BrandID, Name: p.BrandName, ImageURL: p.BrandImageURL})
		}
	}
	writeData(w, http.StatusOK, brands)
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := map[int64]bool{}
	var categories []domain.Category
	for _, p := range b.products {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			categories = append(categories, domain.Category{ID: p.CategoryID, Name: p.CategoryName})
		}
	}
	writeData(w, http.StatusOK, categories)
}

func (b *Backend) listCartridges(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, http.StatusOK, b.cartridges)
}

func (b *Backend) getCartridge(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.cartridges {
		if p.ID == id {
			writeData(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Cartridge not found"})
}

func (b *Backend) getQRCode(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	qr, ok := b.qrCodes[mux.Vars(r)["code"]]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "QR code not found"})
		return
	}
	writeData(w, http.StatusOK, qr)
}

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request, user domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.carts[user.ID]
	if items == nil {
		items = []domain.RemoteCartItem{}
	}
	writeData(w, http.StatusOK, map[string]any{"id": user.ID, "items": items})
}

func (b *Backend) addCartItem(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req struct {
		SoftwarePlanID int64 `json:"software_plan_id"`
		Quantity       int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid cart item"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	product, plan, ok := b.findPlanLocked(req.SoftwarePlanID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Plan not found"})
		return
	}

	items := b.carts[user.ID]
	for i := range items {
		if items[i].SoftwarePlanID == plan.ID {
			items[i].Quantity += req.Quantity
			items[i].Subtotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
			writeData(w, http.StatusOK, items[i])
			return
		}
	}

	price := plan.DisplayPrice(user.IsDistributor())
	b.nextID++
	item := domain.RemoteCartItem{
		ID:             b.nextID,
		CartID:         user.ID,
		SoftwarePlanID: plan.ID,
		PlanName:       plan.PlanName,
		DurationType:   plan.DurationType,
		ProductName:    product.Name,
		BrandName:      product.BrandName,
		UnitPrice:      price,
		Quantity:       req.Quantity,
		Subtotal:       price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		CurrentPrice:   price,
	}
	b.carts[user.ID] = append(items, item)
	writeData(w, http.StatusCreated, item)
}

func (b *Backend) updateCartItem(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "quantity must be at least 1"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.carts[user.ID]
	for i := range items {
		if items[i].ID == pathID(r) {
			items[i].Quantity = req.Quantity
			items[i].Subtotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
			writeData(w, http.StatusOK, items[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Cart item not found"})
}

func (b *Backend) deleteCartItem(w http.ResponseWriter, r *http.Request, user domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.carts[user.ID]
	for i := range items {
		if items[i].ID == pathID(r) {
			b.carts[user.ID] = append(items[:i:i], items[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Cart item not found"})
}

func (b *Backend) clearCart(w http.ResponseWriter, r *http.Request, user domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.carts, user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) guestOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "items are required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var lines []domain.OrderLine
	for _, it := range req.Items {
		lines = append(lines, domain.OrderLine{
			SoftwarePlanID: it.SoftwarePlanID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Subtotal:       it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	order := b.newOrderLocked(req.PaymentMethod, lines)
	b.guest = append(b.guest, order)
	writeData(w, http.StatusCreated, order)
}

func (b *Backend) orderFromCart(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid order"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.carts[user.ID]
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Cart is empty"})
		return
	}

	var lines []domain.OrderLine
	for _, it := range items {
		lines = append(lines, domain.OrderLine{
			SoftwarePlanID: it.SoftwarePlanID,
			ProductName:    it.ProductName,
			PlanName:       it.PlanName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Subtotal:       it.Subtotal,
		})
	}

	order := b.newOrderLocked(req.PaymentMethod, lines)
	b.orders[user.ID] = append(b.orders[user.ID], order)
	delete(b.carts, user.ID)
	writeData(w, http.StatusCreated, order)
}

func (b *Backend) myOrders(w http.ResponseWriter, r *http.Request, user domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	orders := b.orders[user.ID]
	if orders == nil {
		orders = []domain.Order{}
	}
	writeData(w, http.StatusOK, orders)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid credentials"})
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[creds.Email]
	b.mu.Unlock()

	if !ok || acc.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid email or password"})
		return
	}
	writeData(w, http.StatusOK, map[string]any{"token": acc.token, "user": acc.user})
}

func (b *Backend) registerDistributor(w http.ResponseWriter, r *http.Request) {
	var reg domain.DistributorRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "email is required"})
		return
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	b.AddUser(reg.Email, reg.Password, domain.User{ID: id, Name: reg.ContactPerson, Role: domain.RoleDistributor})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Registration submitted"})
}

func (b *Backend) newOrderLocked(paymentMethod string, lines []domain.OrderLine) domain.Order {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}

	b.nextID++
	return domain.Order{
		ID:            b.nextID,
		OrderNumber:   fmt.Sprintf("ORD-%d", b.nextID),
		Status:        "pending",
		PaymentMethod: paymentMethod,
		TotalAmount:   total,
		CreatedAt:     time.Now().UTC(),
		Items:         lines,
	}
}

func (b *Backend) findProduct(id int64) (domain.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (b *Backend) findPlanLocked(planID int64) (domain.Product, domain.Plan, bool) {
	for _, p := range b.products {
		if plan, ok := p.Plan(planID); ok {
			return p, plan, true
		}
	}
	return domain.Product{}, domain.Plan{}, false
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
