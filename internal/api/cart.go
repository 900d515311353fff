package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

type addCartItemRequest struct {
	SoftwarePlanID int64 `json:"software_plan_id"`
	Quantity       int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// cartEnvelope is what GET /cart may return when it is not a bare item list.
type cartEnvelope struct {
	ID    int64                   `json:"id"`
	Items []domain.RemoteCartItem `json:"items"`
}

// Cart returns the rows of the authenticated user's server cart.
func (c *Client) Cart(ctx context.Context) ([]domain.RemoteCartItem, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{
		resource: ResourceCart,
		method:   http.MethodGet,
		url:      c.endpoints.URL(ResourceCart),
		auth:     authRequired,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []domain.RemoteCartItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode cart items: %w", err)
		}
		return items, nil
	}

	var envelope cartEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return envelope.Items, nil
}

func (c *Client) AddCartItem(ctx context.Context, planID int64, quantity int) error {
	err := c.do(ctx, call{
		resource: ResourceCartItems,
		method:   http.MethodPost,
		url:      c.endpoints.URL(ResourceCartItems),
		auth:     authRequired,
		body:     addCartItemRequest{SoftwarePlanID: planID, Quantity: quantity},
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}
	return nil
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	err := c.do(ctx, call{
		resource: ResourceCartItems,
		method:   http.MethodPut,
		url:      c.endpoints.CartItem(itemID),
		auth:     authRequired,
		body:     updateCartItemRequest{Quantity: quantity},
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}
	return nil
}

func (c *Client) DeleteCartItem(ctx context.Context, itemID int64) error {
	err := c.do(ctx, call{
		resource: ResourceCartItems,
		method:   http.MethodDelete,
		url:      c.endpoints.CartItem(itemID),
		auth:     authRequired,
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}
	return nil
}

func (c *Client) ClearCart(ctx context.Context) error {
	err := c.do(ctx, call{
		resource: ResourceCartClear,
		method:   http.MethodDelete,
		url:      c.endpoints.URL(ResourceCartClear),
		auth:     authRequired,
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}
	return nil
}
