package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

// API is the part of the backend client the server cart needs.
type API interface {
	Cart(ctx context.Context) ([]domain.RemoteCartItem, error)
	AddCartItem(ctx context.Context, planID int64, quantity int) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// RemoteRepository mirrors the server cart. Indexes refer to the last
// fetched snapshot; a mutation drops the snapshot so the next read refetches.
type RemoteRepository struct {
	api API

	mu       sync.Mutex
	snapshot []domain.RemoteCartItem
	fetched  bool
}

func NewRemote(api API) *RemoteRepository {
	return &RemoteRepository{api: api}
}

func (r *RemoteRepository) Origin() domain.CartOrigin {
	return domain.OriginServer
}

// Items refetches the server cart and returns its rows.
func (r *RemoteRepository) Items(ctx context.Context) ([]domain.RemoteCartItem, error) {
	items, err := r.api.Cart(ctx)
	if err != nil {
		return nil, fmt.Errorf("api.Cart: %w", err)
	}

	r.mu.Lock()
	r.snapshot = items
	r.fetched = true
	r.mu.Unlock()

	return append([]domain.RemoteCartItem(nil), items...), nil
}

func (r *RemoteRepository) Lines(ctx context.Context) ([]domain.CartLine, error) {
	items, err := r.Items(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.LineFromRemoteCartItem(item))
	}
	return lines, nil
}

func (r *RemoteRepository) Add(ctx context.Context, _ domain.Product, plan domain.Plan, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if err := r.api.AddCartItem(ctx, plan.ID, quantity); err != nil {
		return fmt.Errorf("api.AddCartItem: %w", err)
	}

	r.invalidate()
	return nil
}

func (r *RemoteRepository) UpdateQuantity(ctx context.Context, index int, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	item, err := r.at(ctx, index)
	if err != nil {
		return err
	}

	if err := r.api.UpdateCartItem(ctx, item.ID, quantity); err != nil {
		return fmt.Errorf("api.UpdateCartItem: %w", err)
	}

	r.invalidate()
	return nil
}

func (r *RemoteRepository) Remove(ctx context.Context, index int) error {
	item, err := r.at(ctx, index)
	if err != nil {
		return err
	}

	if err := r.api.DeleteCartItem(ctx, item.ID); err != nil {
		return fmt.Errorf("api.DeleteCartItem: %w", err)
	}

	r.invalidate()
	return nil
}

func (r *RemoteRepository) Clear(ctx context.Context) error {
	if err := r.api.ClearCart(ctx); err != nil {
		return fmt.Errorf("api.ClearCart: %w", err)
	}

	r.invalidate()
	return nil
}

func (r *RemoteRepository) at(ctx context.Context, index int) (domain.RemoteCartItem, error) {
	r.mu.Lock()
	fetched := r.fetched
	r.mu.Unlock()

	if !fetched {
		if _, err := r.Items(ctx); err != nil {
			return domain.RemoteCartItem{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.snapshot) {
		return domain.RemoteCartItem{}, ErrIndexOutOfRange
	}
	return r.snapshot[index], nil
}

func (r *RemoteRepository) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	r.fetched = false
}
