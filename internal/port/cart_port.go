package port

import (
	"context"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

type CartRepository interface {
	Origin() domain.CartOrigin
	Lines(ctx context.Context) ([]domain.CartLine, error)
	Add(ctx context.Context, product domain.Product, plan domain.Plan, quantity int) error
	UpdateQuantity(ctx context.Context, index int, quantity int) error
	Remove(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}
