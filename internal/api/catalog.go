package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

// Catalog reads send the token when there is one so distributors get special prices.

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, call{
		resource: ResourceProducts,
		method:   http.MethodGet,
		url:      c.endpoints.URL(ResourceProducts),
		auth:     authOptional,
	}, &products)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := c.do(ctx, call{
		resource: ResourceProducts,
		method:   http.MethodGet,
		url:      c.endpoints.Product(id),
		auth:     authOptional,
	}, &product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("c.do: %w", err)
	}
	return product, nil
}

func (c *Client) ProductPlans(ctx context.Context, productID int64) ([]domain.Plan, error) {
	var plans []domain.Plan
	err := c.do(ctx, call{
		resource: ResourceProducts,
		method:   http.MethodGet,
		url:      c.endpoints.ProductPlans(productID),
		auth:     authOptional,
	}, &plans)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}
	return plans, nil
}

func (c *Client) Brands(ctx context.Context) ([]domain.Brand, error) {
	return list[domain.Brand](ctx, c, ResourceBrands)
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	return list[domain.Category](ctx, c, ResourceCategories)
}

func (c *Client) CartridgeProducts(ctx context.Context) ([]domain.CartridgeProduct, error) {
	return list[domain.CartridgeProduct](ctx, c, ResourceCartridgeProducts)
}

func (c *Client) CartridgeBrands(ctx context.Context) ([]domain.Brand, error) {
	return list[domain.Brand](ctx, c, ResourceCartridgeBrands)
}

func (c *Client) CartridgeCategories(ctx context.Context) ([]domain.Category, error) {
	return list[domain.Category](ctx, c, ResourceCartridgeCategories)
}

func (c *Client) CartridgeProduct(ctx context.Context, id int64) (domain.CartridgeProduct, error) {
	var product domain.CartridgeProduct
	err := c.do(ctx, call{
		resource: ResourceCartridgeProducts,
		method:   http.MethodGet,
		url:      c.endpoints.CartridgeProduct(id),
	}, &product)
	if err != nil {
		return domain.CartridgeProduct{}, fmt.Errorf("c.do: %w", err)
	}
	return product, nil
}

// LookupQRCode resolves a scanned cartridge code to its unit and product.
func (c *Client) LookupQRCode(ctx context.Context, code string) (domain.QRCode, error) {
	if code == "" {
		return domain.QRCode{}, fmt.Errorf("code is empty")
	}

	var qr domain.QRCode
	err := c.do(ctx, call{
		resource: "qr_code",
		method:   http.MethodGet,
		url:      c.endpoints.QRCode(code),
	}, &qr)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("c.do: %w", err)
	}
	return qr, nil
}

func list[T any](ctx context.Context, c *Client, r Resource) ([]T, error) {
	var out []T
	err := c.do(ctx, call{
		resource: r,
		method:   http.MethodGet,
		url:      c.endpoints.URL(r),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("c.do: %w", err)
	}
	return out, nil
}
