// Package checkout turns a shopper's selection into an order request.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/session"
)

const (
	MsgSelectPayment  = "Please select a payment method."
	MsgOrderPlaced    = "Order placed successfully!"
	MsgSessionExpired = "Your session has expired. Please log in again."

	DefaultRedirectPath  = "/my-orders"
	DefaultRedirectDelay = 2 * time.Second
)

var (
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrSubmitInProgress      = errors.New("order submission already in progress")
)

type OrderAPI interface {
	CreateGuestOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.Order, error)
	CreateOrderFromCart(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.Order, error)
}

type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// Clearer empties the guest cart after a guest order.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Refresher lets cart views recompute after an order.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Result struct {
	Order         domain.Order
	RedirectTo    string
	RedirectAfter time.Duration
}

type Controller struct {
	auth      Authenticator
	orders    OrderAPI
	guestCart Clearer
	refresher Refresher
	notifier  port.Notifier
	logger    *slog.Logger

	redirectPath  string
	redirectDelay time.Duration

	submitting atomic.Bool
}

type Option func(*Controller)

func WithRefresher(r Refresher) Option {
	return func(c *Controller) { c.refresher = r }
}

func WithNotifier(n port.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithRedirect(path string, delay time.Duration) Option {
	return func(c *Controller) {
		c.redirectPath = path
		c.redirectDelay = delay
	}
}

func NewController(auth Authenticator, orders OrderAPI, guestCart Clearer, opts ...Option) *Controller {
	c := &Controller{
		auth:          auth,
		orders:        orders,
		guestCart:     guestCart,
		notifier:      discard{},
		logger:        slog.Default(),
		redirectPath:  DefaultRedirectPath,
		redirectDelay: DefaultRedirectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit places the order held by f. It must be called on the payment step.
// Concurrent calls are rejected with ErrSubmitInProgress before any request,
// and a flow that already placed its order is rejected with ErrOrderPlaced.
func (c *Controller) Submit(ctx context.Context, f *Flow) (Result, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return Result{}, ErrSubmitInProgress
	}
	defer c.submitting.Store(false)

	if f.Placed() {
		return Result{}, ErrOrderPlaced
	}

	step, ok := f.Step().(PaymentStep)
	if !ok {
		return Result{}, ErrWrongStep
	}
	if step.Method == "" {
		c.notify(ctx, port.LevelError, MsgSelectPayment)
		return Result{}, ErrPaymentMethodRequired
	}

	req := domain.OrderRequest{
		BillingInfo:   step.Billing,
		PaymentMethod: step.Method.WireCode(),
	}

	loggedIn := c.auth.IsAuthenticated(ctx)
	order, err := c.place(ctx, f, req, loggedIn)
	if err != nil {
		c.logger.ErrorContext(ctx, "order submission failed",
			"origin", f.Order().Origin, "logged_in", loggedIn, "error", err)
		c.notify(ctx, port.LevelError, failureMessage(err))
		return Result{}, err
	}

	f.placed.Store(true)
	c.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID, "order_number", order.OrderNumber, "origin", f.Order().Origin)

	if !loggedIn {
		if err := c.guestCart.Clear(ctx); err != nil {
			c.logger.ErrorContext(ctx, "guest cart clear failed", "error", err)
		}
	}
	if c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			c.logger.WarnContext(ctx, "cart refresh after order failed", "error", err)
		}
	}

	c.notify(ctx, port.LevelSuccess, MsgOrderPlaced)

	return Result{
		Order:         order,
		RedirectTo:    c.redirectPath,
		RedirectAfter: c.redirectDelay,
	}, nil
}

// place picks the endpoint: signed-in cart checkouts order the server cart,
// everything else posts explicit items to the guest endpoint.
func (c *Controller) place(ctx context.Context, f *Flow, req domain.OrderRequest, loggedIn bool) (domain.Order, error) {
	origin := f.Order().Origin
	key := f.IdempotencyKey()

	switch {
	case loggedIn && origin == OriginDirect:
		req.Items = f.Order().Items()
		return c.orders.CreateGuestOrder(ctx, req, key)
	case loggedIn:
		return c.orders.CreateOrderFromCart(ctx, req, key)
	case origin == OriginServerCart:
		return domain.Order{}, fmt.Errorf("server cart checkout: %w", session.ErrNotAuthenticated)
	default:
		req.Items = f.Order().Items()
		return c.orders.CreateGuestOrder(ctx, req, key)
	}
}

func (c *Controller) notify(ctx context.Context, level port.Level, msg string) {
	c.notifier.Notify(ctx, port.Toast{Level: level, Message: msg})
}

func failureMessage(err error) string {
	if errors.Is(err, session.ErrNotAuthenticated) {
		return MsgSessionExpired
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.SessionExpired() {
			return MsgSessionExpired
		}
		return apiErr.Message
	}
	return api.GenericErrorMessage
}

type discard struct{}

func (discard) Notify(context.Context, port.Toast) {}
