package cart

import (
	"context"
	"time"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
)

// CartridgeRepository is the guest cartridge cart, kept apart from the
// software cart under its own storage key. Entries merge by product id.
type CartridgeRepository struct {
	storage port.Storage
	now     func() time.Time
}

func NewCartridges(storage port.Storage) *CartridgeRepository {
	return &CartridgeRepository{storage: storage, now: time.Now}
}

func (r *CartridgeRepository) Items(ctx context.Context) ([]domain.CartridgeCartItem, error) {
	return loadItems[domain.CartridgeCartItem](ctx, r.storage, port.KeyCartridgeCart)
}

func (r *CartridgeRepository) Lines(ctx context.Context) ([]domain.CartLine, error) {
	items, err := r.Items(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.LineFromCartridgeItem(item))
	}
	return lines, nil
}

func (r *CartridgeRepository) Add(ctx context.Context, product domain.CartridgeProduct, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	items, err := r.Items(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range items {
		if items[i].Product.ID == product.ID {
			items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		items = append(items, domain.CartridgeCartItem{
			Product:  product,
			Quantity: quantity,
			AddedAt:  r.now().UTC(),
		})
	}

	return r.save(ctx, items)
}

func (r *CartridgeRepository) UpdateQuantity(ctx context.Context, index int, quantity int) error {
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

func (r *CartridgeRepository) Remove(ctx context.Context, index int) error {
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

func (r *CartridgeRepository) Clear(ctx context.Context) error {
	return clearKey(ctx, r.storage, port.KeyCartridgeCart)
}

func (r *CartridgeRepository) save(ctx context.Context, items []domain.CartridgeCartItem) error {
	return saveItems(ctx, r.storage, port.KeyCartridgeCart, items)
}
