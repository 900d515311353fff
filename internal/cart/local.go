package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
)

var (
	ErrIndexOutOfRange = errors.New("cart index out of range")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// LocalRepository is the guest cart: a JSON array of CartItem under one storage key.
type LocalRepository struct {
	storage port.Storage
	key     string
	now     func() time.Time
}

func NewLocal(storage port.Storage, key string) *LocalRepository {
	if key == "" {
		key = port.KeyCart
	}
	return &LocalRepository{storage: storage, key: key, now: time.Now}
}

func (r *LocalRepository) Origin() domain.CartOrigin {
	return domain.OriginGuest
}

func (r *LocalRepository) Items(ctx context.Context) ([]domain.CartItem, error) {
	return loadItems[domain.CartItem](ctx, r.storage, r.key)
}

func (r *LocalRepository) Lines(ctx context.Context) ([]domain.CartLine, error) {
	items, err := r.Items(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.LineFromCartItem(item))
	}
	return lines, nil
}

// Add merges into an existing (product, plan) entry or appends a new one.
func (r *LocalRepository) Add(ctx context.Context, product domain.Product, plan domain.Plan, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	items, err := r.Items(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range items {
		if items[i].Matches(product.ID, plan.ID) {
			items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		items = append(items, domain.CartItem{
			Product:  product,
			Plan:     plan,
			Quantity: quantity,
			AddedAt:  r.now().UTC(),
		})
	}

	return r.save(ctx, items)
}

func (r *LocalRepository) UpdateQuantity(ctx context.Context, index int, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	items, err := r.Items(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return ErrIndexOutOfRange
	}

	items[index].Quantity = quantity
	return r.save(ctx, items)
}

func (r *LocalRepository) Remove(ctx context.Context, index int) error {
	items, err := r.Items(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return ErrIndexOutOfRange
	}

	items = append(items[:index], items[index+1:]...)
	return r.save(ctx, items)
}

func (r *LocalRepository) Clear(ctx context.Context) error {
	return clearKey(ctx, r.storage, r.key)
}

func (r *LocalRepository) save(ctx context.Context, items []domain.CartItem) error {
	return saveItems(ctx, r.storage, r.key, items)
}

// loadItems reads the JSON array stored under key; a missing key is an empty cart.
func loadItems[T any](ctx context.Context, storage port.Storage, key string) ([]T, error) {
	raw, ok, err := storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("storage.Get: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("cart under %q is not valid JSON: %w", key, err)
	}
	return items, nil
}

func saveItems[T any](ctx context.Context, storage port.Storage, key string, items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := storage.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("storage.Set: %w", err)
	}
	return nil
}

func clearKey(ctx context.Context, storage port.Storage, key string) error {
	if err := storage.Remove(ctx, key); err != nil {
		return fmt.Errorf("storage.Remove: %w", err)
	}
	return nil
}
