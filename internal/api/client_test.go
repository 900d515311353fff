package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/api/apitest"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/metrics"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/session"
	"github.com/nikolayk812/licensing-storefront/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monthly = domain.Plan{
		ID:           11,
		PlanName:     "Monthly",
		DurationType: domain.DurationMonthly,
		Price:        decimal.NewFromInt(100),
		SpecialPrice: decimal.NewNullDecimal(decimal.NewFromInt(80)),
	}
	yearly = domain.Plan{
		ID:           12,
		PlanName:     "Yearly",
		DurationType: domain.DurationYearly,
		Price:        decimal.NewFromInt(1000),
	}
	antivirus = domain.Product{
		ID:           1,
		BrandID:      3,
		CategoryID:   4,
		Name:         "Antivirus Pro",
		BrandName:    "Shield",
		CategoryName: "Security",
		Plans:        []domain.Plan{monthly, yearly},
	}
)

type fixture struct {
	backend *apitest.Backend
	storage port.Storage
	client  *api.Client
}

func newFixture(t *testing.T, opts ...api.Option) fixture {
	t.Helper()

	backend := apitest.New(t)
	backend.AddProduct(antivirus)

	store := storage.NewMemory()
	client, err := api.NewClient(backend.URL(), session.New(store), opts...)
	require.NoError(t, err)

	return fixture{backend: backend, storage: store, client: client}
}

func (f fixture) signIn(t *testing.T, role domain.Role) domain.User {
	t.Helper()

	user := domain.User{ID: int64(gofakeit.Number(1, 1_000_000)), Name: gofakeit.Name(), Role: role}
	token := f.backend.AddUser(gofakeit.Email(), "pw", user)
	require.NoError(t, f.storage.Set(t.Context(), port.KeyToken, token))
	return user
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{name: "no scheme", baseURL: "localhost:8000/api"},
		{name: "ftp scheme", baseURL: "ftp://example.com/api"},
		{name: "no host", baseURL: "http:///api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.NewClient(tt.baseURL, session.New(storage.NewMemory()))
			require.Error(t, err)
		})
	}
}

func TestEndpoints(t *testing.T) {
	e, err := api.NewEndpoints("https://shop.example.com/api/")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api/software/products", e.URL(api.ResourceProducts))
	assert.Equal(t, "https://shop.example.com/api/software/products/7", e.Product(7))
	assert.Equal(t, "https://shop.example.com/api/software/products/7/plans", e.ProductPlans(7))
	assert.Equal(t, "https://shop.example.com/api/cart/items/9", e.CartItem(9))
	assert.Equal(t, "https://shop.example.com/api/cartridge/qr-codes/A%2FB", e.QRCode("A/B"))
	assert.Equal(t, "https://shop.example.com/api/orders/from-cart", e.URL(api.ResourceOrderFromCart))
	assert.Panics(t, func() { e.URL("nope") })
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	products, err := f.client.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Empty(t, cmp.Diff(antivirus, products[0]))

	product, err := f.client.Product(ctx, antivirus.ID)
	require.NoError(t, err)
	assert.Equal(t, antivirus.Name, product.Name)

	plans, err := f.client.ProductPlans(ctx, antivirus.ID)
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	brands, err := f.client.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Brand{{ID: 3, Name: "Shield"}}, brands)

	categories, err := f.client.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: 4, Name: "Security"}}, categories)

	for _, r := range f.backend.Requests() {
		assert.Empty(t, r.Header.Get("Authorization"), "anonymous catalog reads carry no token")
	}
}

func TestCatalog_SendsTokenWhenSignedIn(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, domain.RoleDistributor)

	_, err := f.client.Products(t.Context())
	require.NoError(t, err)

	reqs := f.backend.RequestsTo(http.MethodGet, "/software/products")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Header.Get("Authorization"), "Bearer token-")
}

func TestProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Product(t.Context(), 404)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Product not found", apiErr.Message)
}

func TestCartridges(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	toner := domain.CartridgeProduct{ID: 5, Name: "Toner 12A", ModelNumber: "Q2612A", Price: decimal.NewFromInt(2500)}
	f.backend.AddCartridge(toner, "QR-0001")

	products, err := f.client.CartridgeProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, toner.Price.Equal(products[0].Price))

	qr, err := f.client.LookupQRCode(ctx, "QR-0001")
	require.NoError(t, err)
	assert.Equal(t, toner.ID, qr.ProductID)
	assert.Equal(t, "Toner 12A", qr.Product.Name)

	_, err = f.client.LookupQRCode(ctx, "")
	require.EqualError(t, err, "code is empty")
}

func TestCart_RequiresToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Cart(t.Context())
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	err = f.client.AddCartItem(t.Context(), monthly.ID, 1)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	assert.Empty(t, f.backend.Requests(), "no request may leave without a token")
}

func TestCart_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	user := f.signIn(t, domain.RoleCustomer)

	require.NoError(t, f.client.AddCartItem(ctx, monthly.ID, 1))
	require.NoError(t, f.client.AddCartItem(ctx, monthly.ID, 1))
	require.NoError(t, f.client.AddCartItem(ctx, yearly.ID, 1))

	items, err := f.client.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(200).Equal(items[0].Subtotal))

	var body map[string]any
	reqs := f.backend.RequestsTo(http.MethodPost, "/cart/items")
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, map[string]any{"software_plan_id": float64(monthly.ID), "quantity": float64(1)}, body)

	require.NoError(t, f.client.UpdateCartItem(ctx, items[1].ID, 3))
	require.NoError(t, f.client.DeleteCartItem(ctx, items[0].ID))

	left := f.backend.CartOf(user.ID)
	require.Len(t, left, 1)
	assert.Equal(t, 3, left[0].Quantity)

	require.NoError(t, f.client.ClearCart(ctx))
	assert.Empty(t, f.backend.CartOf(user.ID))
}

func TestCart_BareArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"software_plan_id":11,"quantity":2,"unit_price":"150","subtotal":"300"}]`))
	}))
	t.Cleanup(srv.Close)

	store := storage.NewMemory()
	require.NoError(t, store.Set(t.Context(), port.KeyToken, "t"))

	client, err := api.NewClient(srv.URL, session.New(store))
	require.NoError(t, err)

	items, err := client.Cart(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(items[0].Subtotal))
}

func TestError_MessageExtraction(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		wantExpired bool
	}{
		{name: "message field", body: `{"message":"Plan not found"}`, wantMessage: "Plan not found"},
		{name: "error field", body: `{"error":"Bad input"}`, wantMessage: "Bad input"},
		{name: "html body", body: `<html>502</html>`, wantMessage: api.GenericErrorMessage},
		{name: "empty body", body: ``, wantMessage: api.GenericErrorMessage},
		{name: "missing user id", body: `{"message":"The user id field is required."}`, wantMessage: "The user id field is required.", wantExpired: true},
		{name: "missing user_id", body: `{"message":"user_id missing"}`, wantMessage: "user_id missing", wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			client, err := api.NewClient(srv.URL, session.New(storage.NewMemory()))
			require.NoError(t, err)

			_, err = client.Products(t.Context())

			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantExpired, apiErr.SessionExpired())
		})
	}
}

func TestOrders(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	guestReq := domain.OrderRequest{
		BillingInfo:   domain.BillingInfo{FullName: "A", Email: "a@b.c", Phone: "1", Address: "x"},
		PaymentMethod: "cod",
		Items:         []domain.OrderItem{{SoftwarePlanID: monthly.ID, Quantity: 2, UnitPrice: monthly.Price}},
	}

	order, err := f.client.CreateGuestOrder(ctx, guestReq, "key-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(order.TotalAmount))

	reqs := f.backend.RequestsTo(http.MethodPost, "/orders/guest")
	require.Len(t, reqs, 1)
	assert.Equal(t, "key-1", reqs[0].Header.Get(api.IdempotencyHeader))

	_, err = f.client.CreateGuestOrder(ctx, domain.OrderRequest{}, "")
	require.EqualError(t, err, "items are empty")

	user := f.signIn(t, domain.RoleCustomer)
	require.NoError(t, f.client.AddCartItem(ctx, yearly.ID, 1))

	_, err = f.client.CreateOrderFromCart(ctx, guestReq, "key-2")
	require.NoError(t, err)

	reqs = f.backend.RequestsTo(http.MethodPost, "/orders/from-cart")
	require.Len(t, reqs, 1)
	assert.NotContains(t, string(reqs[0].Body), `"items"`)

	orders, err := f.client.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, f.backend.OrdersOf(user.ID)[0].OrderNumber, orders[0].OrderNumber)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	email := gofakeit.Email()
	token := f.backend.AddUser(email, "secret", domain.User{ID: 9, Name: "Sita", Role: domain.RoleCustomer})

	res, err := f.client.Login(ctx, domain.Credentials{Email: email, Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, token, res.Token)
	assert.Equal(t, int64(9), res.User.ID)

	_, err = f.client.Login(ctx, domain.Credentials{Email: email, Password: "wrong"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = f.client.Login(ctx, domain.Credentials{})
	require.EqualError(t, err, "email and password are required")
}

func TestDistributorRegistrationAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	reg := domain.DistributorRegistration{
		CompanyName:   gofakeit.Company(),
		ContactPerson: gofakeit.Name(),
		Email:         gofakeit.Email(),
		Phone:         gofakeit.Phone(),
		Password:      "pw",
	}
	require.NoError(t, f.client.RegisterDistributor(ctx, reg))

	res, err := f.client.DistributorLogin(ctx, domain.Credentials{Email: reg.Email, Password: "pw"})
	require.NoError(t, err)
	assert.True(t, res.User.IsDistributor())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewClientMetrics(reg)
	require.NoError(t, err)

	f := newFixture(t, api.WithMetrics(m))

	_, err = f.client.Products(t.Context())
	require.NoError(t, err)
	_, err = f.client.Product(t.Context(), 404)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("products", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("products", "404")))
}

func TestExpiredToken_NotSent(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	require.NoError(t, f.storage.Set(ctx, port.KeyToken, expired))

	_, err = f.client.Cart(ctx)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	err = f.client.AddCartItem(ctx, monthly.ID, 1)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	_, err = f.client.CreateOrderFromCart(ctx, domain.OrderRequest{PaymentMethod: "cod"}, "key")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	_, err = f.client.MyOrders(ctx)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Empty(t, f.backend.Requests())

	_, err = f.client.CreateGuestOrder(ctx, domain.OrderRequest{
		PaymentMethod: "cod",
		Items:         []domain.OrderItem{{SoftwarePlanID: monthly.ID, Quantity: 1, UnitPrice: monthly.Price}},
	}, "key")
	require.NoError(t, err)

	reqs := f.backend.RequestsTo(http.MethodPost, "/orders/guest")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}
