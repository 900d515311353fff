package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

// CreateGuestOrder posts an order with explicit items. Logged-in shoppers
// buying a single item directly reuse it, so the token is sent when present.
func (c *Client) CreateGuestOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.Order, error) {
	if len(req.Items) == 0 {
		return domain.Order{}, fmt.Errorf("items are empty")
	}
	return c.createOrder(ctx, ResourceGuestOrder, authOptional, req, idempotencyKey)
}

// CreateOrderFromCart orders whatever the server cart holds; items are resolved server side.
func (c *Client) CreateOrderFromCart(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.Order, error) {
	req.Items = nil
	return c.createOrder(ctx, ResourceOrderFromCart, authRequired, req, idempotencyKey)
}

func (c *Client) createOrder(ctx context.Context, r Resource, a auth, req domain.OrderRequest, idempotencyKey string) (domain.Order, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(IdempotencyHeader, idempotencyKey)
	}

	var order domain.Order
	err := c.do(ctx, call{
		resource: r,
		method:   http.MethodPost,
		url:      c.endpoints.URL(r),
		auth:     a,
		body:     req,
		header:   header,
	}, &order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("c.do: %w", err)
	}
	return order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := c.do(ctx, call{
		resource: ResourceMyOrders,
		method:   http.MethodGet,
		url:      c.endpoints.URL(ResourceMyOrders),
		auth:     authRequired,
	}, &orders)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}
	return orders, nil
}
