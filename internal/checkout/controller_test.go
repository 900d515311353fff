package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/api/apitest"
	"github.com/nikolayk812/licensing-storefront/internal/cart"
	"github.com/nikolayk812/licensing-storefront/internal/checkout"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/session"
	"github.com/nikolayk812/licensing-storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	toasts []port.Toast
}

func (r *recorder) Notify(_ context.Context, t port.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recorder) Last() port.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.toasts) == 0 {
		return port.Toast{}
	}
	return r.toasts[len(r.toasts)-1]
}

type fixture struct {
	backend   *apitest.Backend
	session   *session.Session
	client    *api.Client
	guestCart *cart.LocalRepository
	notes     *recorder
	ctrl      *checkout.Controller
}

func newFixture(t *testing.T, products ...domain.Product) fixture {
	t.Helper()

	backend := apitest.New(t)
	for _, p := range products {
		backend.AddProduct(p)
	}

	store := storage.NewMemory()
	sess := session.New(store)
	client, err := api.NewClient(backend.URL(), sess)
	require.NoError(t, err)

	guestCart := cart.NewLocal(store, port.KeyCart)
	notes := &recorder{}

	return fixture{
		backend:   backend,
		session:   sess,
		client:    client,
		guestCart: guestCart,
		notes:     notes,
		ctrl:      checkout.NewController(sess, client, guestCart, checkout.WithNotifier(notes)),
	}
}

func (f fixture) signIn(t *testing.T) domain.User {
	t.Helper()

	user := domain.User{ID: int64(gofakeit.Number(1, 1_000_000)), Name: gofakeit.Name(), Role: domain.RoleCustomer}
	token := f.backend.AddUser(gofakeit.Email(), "pw", user)
	require.NoError(t, f.session.SignIn(t.Context(), token, user))
	return user
}

func paymentFlow(t *testing.T, order checkout.PendingOrder, method domain.PaymentMethod) *checkout.Flow {
	t.Helper()

	f, err := checkout.NewFlow(order)
	require.NoError(t, err)
	require.NoError(t, f.SubmitBilling(billing()))
	if method != "" {
		require.NoError(t, f.SelectPayment(method))
	}
	return f
}

func decodeOrder(t *testing.T, body []byte) domain.OrderRequest {
	t.Helper()

	var req domain.OrderRequest
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func TestSubmit_GuestBuyNow(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	prod := product(1, p)
	fx := newFixture(t, prod)

	require.NoError(t, fx.guestCart.Add(ctx, prod, p, 2))

	flow := paymentFlow(t, checkout.FromDirect(prod, p), domain.PaymentCash)
	res, err := fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)

	assert.Equal(t, checkout.DefaultRedirectPath, res.RedirectTo)
	assert.Equal(t, checkout.DefaultRedirectDelay, res.RedirectAfter)
	assert.True(t, flow.Placed())

	reqs := fx.backend.RequestsTo(http.MethodPost, "/orders/guest")
	require.Len(t, reqs, 1)
	assert.Equal(t, flow.IdempotencyKey(), reqs[0].Header.Get(api.IdempotencyHeader))
	assert.Empty(t, reqs[0].Header.Get("Authorization"))

	sent := decodeOrder(t, reqs[0].Body)
	assert.Equal(t, "cod", sent.PaymentMethod)
	want := []domain.OrderItem{{SoftwarePlanID: 5, Quantity: 1, UnitPrice: decimal.NewFromInt(500)}}
	assert.Empty(t, cmp.Diff(want, sent.Items, cmp.Comparer(decimal.Decimal.Equal)))

	items, err := fx.guestCart.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, checkout.MsgOrderPlaced, fx.notes.Last().Message)
	assert.Equal(t, port.LevelSuccess, fx.notes.Last().Level)
}

func TestSubmit_GuestCart(t *testing.T) {
	ctx := t.Context()
	monthly, yearly := plan(11, 100), plan(12, 1000)
	prod := product(1, monthly, yearly)
	fx := newFixture(t, prod)

	require.NoError(t, fx.guestCart.Add(ctx, prod, monthly, 2))
	require.NoError(t, fx.guestCart.Add(ctx, prod, yearly, 1))
	items, err := fx.guestCart.Items(ctx)
	require.NoError(t, err)

	flow := paymentFlow(t, checkout.FromGuestCart(items), domain.PaymentEsewa)
	_, err = fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)

	orders := fx.backend.GuestOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, "esewa", orders[0].PaymentMethod)
	assert.Len(t, orders[0].Items, 2)

	left, err := fx.guestCart.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSubmit_NoPaymentMethod(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	fx := newFixture(t, product(1, p))

	flow := paymentFlow(t, checkout.FromDirect(product(1, p), p), "")
	_, err := fx.ctrl.Submit(ctx, flow)
	require.ErrorIs(t, err, checkout.ErrPaymentMethodRequired)

	assert.Empty(t, fx.backend.Requests())
	assert.Equal(t, port.LevelError, fx.notes.Last().Level)
	assert.Equal(t, checkout.MsgSelectPayment, fx.notes.Last().Message)
	assert.False(t, flow.Placed())
}

func TestSubmit_BillingStepRejected(t *testing.T) {
	p := plan(5, 500)
	fx := newFixture(t)

	flow, err := checkout.NewFlow(checkout.FromDirect(product(1, p), p))
	require.NoError(t, err)

	_, err = fx.ctrl.Submit(t.Context(), flow)
	require.ErrorIs(t, err, checkout.ErrWrongStep)
	assert.Empty(t, fx.backend.Requests())
}

func TestSubmit_LoggedInServerCart(t *testing.T) {
	ctx := t.Context()
	monthly, yearly := plan(11, 150), plan(12, 250)
	fx := newFixture(t, product(1, monthly), product(2, yearly))
	user := fx.signIn(t)

	require.NoError(t, fx.client.AddCartItem(ctx, monthly.ID, 1))
	require.NoError(t, fx.client.AddCartItem(ctx, yearly.ID, 1))

	remote, err := fx.client.Cart(ctx)
	require.NoError(t, err)

	flow := paymentFlow(t, checkout.FromServerCart(remote), domain.PaymentIPS)
	_, err = fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)

	reqs := fx.backend.RequestsTo(http.MethodPost, "/orders/from-cart")
	require.Len(t, reqs, 1)
	sent := decodeOrder(t, reqs[0].Body)
	assert.Equal(t, "ips", sent.PaymentMethod)
	assert.Empty(t, sent.Items)
	assert.Equal(t, flow.IdempotencyKey(), reqs[0].Header.Get(api.IdempotencyHeader))

	assert.Empty(t, fx.backend.RequestsTo(http.MethodPost, "/orders/guest"))
	assert.Len(t, fx.backend.OrdersOf(user.ID), 1)
	assert.Empty(t, fx.backend.CartOf(user.ID))
}

func TestSubmit_LoggedInBuyNowUsesGuestEndpoint(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	prod := product(1, p)
	fx := newFixture(t, prod)
	fx.signIn(t)

	flow := paymentFlow(t, checkout.FromDirect(prod, p), domain.PaymentKhalti)
	_, err := fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)

	reqs := fx.backend.RequestsTo(http.MethodPost, "/orders/guest")
	require.Len(t, reqs, 1)
	assert.NotEmpty(t, reqs[0].Header.Get("Authorization"))
	assert.Len(t, decodeOrder(t, reqs[0].Body).Items, 1)
	assert.Empty(t, fx.backend.RequestsTo(http.MethodPost, "/orders/from-cart"))
}

func TestSubmit_GuestWithServerCartOrigin(t *testing.T) {
	fx := newFixture(t)
	order := checkout.FromServerCart([]domain.RemoteCartItem{{
		ID: 1, SoftwarePlanID: 5, Quantity: 1,
		UnitPrice: decimal.NewFromInt(500), Subtotal: decimal.NewFromInt(500),
	}})

	_, err := fx.ctrl.Submit(t.Context(), paymentFlow(t, order, domain.PaymentCash))
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Empty(t, fx.backend.Requests())
	assert.Equal(t, checkout.MsgSessionExpired, fx.notes.Last().Message)
}

func TestSubmit_BackendError(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	prod := product(1, p)
	fx := newFixture(t, prod)

	require.NoError(t, fx.guestCart.Add(ctx, prod, p, 1))
	fx.backend.Fail(http.MethodPost, "/orders/guest", http.StatusUnprocessableEntity, "Plan is no longer available")

	flow := paymentFlow(t, checkout.FromDirect(prod, p), domain.PaymentCash)
	_, err := fx.ctrl.Submit(ctx, flow)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Plan is no longer available", fx.notes.Last().Message)
	assert.False(t, flow.Placed())

	items, err := fx.guestCart.Items(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// a retry of the same flow reuses the key
	_, err = fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)
	reqs := fx.backend.RequestsTo(http.MethodPost, "/orders/guest")
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].Header.Get(api.IdempotencyHeader), reqs[1].Header.Get(api.IdempotencyHeader))
}

func TestSubmit_AfterPlaced(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	prod := product(1, p)
	fx := newFixture(t, prod)

	flow := paymentFlow(t, checkout.FromDirect(prod, p), domain.PaymentCash)
	_, err := fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)

	_, err = fx.ctrl.Submit(ctx, flow)
	require.ErrorIs(t, err, checkout.ErrOrderPlaced)
	assert.Len(t, fx.backend.RequestsTo(http.MethodPost, "/orders/guest"), 1)
}

type blockingOrders struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (b *blockingOrders) CreateGuestOrder(ctx context.Context, _ domain.OrderRequest, _ string) (domain.Order, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return domain.Order{}, ctx.Err()
	}
	return domain.Order{ID: 1, OrderNumber: "ORD-1"}, nil
}

func (b *blockingOrders) CreateOrderFromCart(ctx context.Context, req domain.OrderRequest, key string) (domain.Order, error) {
	return b.CreateGuestOrder(ctx, req, key)
}

func TestSubmit_ConcurrentSubmitSendsOneRequest(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	orders := &blockingOrders{entered: make(chan struct{}, 1), release: make(chan struct{})}
	guestCart := cart.NewLocal(storage.NewMemory(), port.KeyCart)
	ctrl := checkout.NewController(session.New(storage.NewMemory()), orders, guestCart)

	flow := paymentFlow(t, checkout.FromDirect(product(1, p), p), domain.PaymentCash)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(ctx, flow)
		done <- err
	}()
	<-orders.entered

	_, err := ctrl.Submit(ctx, flow)
	require.ErrorIs(t, err, checkout.ErrSubmitInProgress)

	close(orders.release)
	require.NoError(t, <-done)

	orders.mu.Lock()
	defer orders.mu.Unlock()
	assert.Equal(t, 1, orders.calls)
}

func TestSubmit_ConcurrentOnOneFlowPlacesOneOrder(t *testing.T) {
	p := plan(5, 500)
	prod := product(1, p)

	for range 20 {
		fx := newFixture(t, prod)
		flow := paymentFlow(t, checkout.FromDirect(prod, p), domain.PaymentCash)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = fx.ctrl.Submit(t.Context(), flow)
			}()
		}
		wg.Wait()

		var placed int
		for _, err := range errs {
			if err == nil {
				placed++
				continue
			}
			assert.True(t, errors.Is(err, checkout.ErrSubmitInProgress) || errors.Is(err, checkout.ErrOrderPlaced), err)
		}
		assert.Equal(t, 1, placed)
		assert.Len(t, fx.backend.GuestOrders(), 1)
		assert.True(t, flow.Placed())
	}
}

func TestSubmit_ExpiredTokenIsGuest(t *testing.T) {
	ctx := t.Context()
	p := plan(5, 500)
	prod := product(1, p)
	fx := newFixture(t, prod)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	require.NoError(t, fx.session.SignIn(ctx, expired, domain.User{ID: 7, Role: domain.RoleCustomer}))
	require.False(t, fx.session.IsAuthenticated(ctx))

	flow := paymentFlow(t, checkout.FromDirect(prod, p), domain.PaymentCash)
	_, err = fx.ctrl.Submit(ctx, flow)
	require.NoError(t, err)

	reqs := fx.backend.RequestsTo(http.MethodPost, "/orders/guest")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
	assert.Empty(t, fx.backend.RequestsTo(http.MethodPost, "/orders/from-cart"))
}
