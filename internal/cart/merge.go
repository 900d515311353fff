package cart

import (
	"context"
	"errors"
	"fmt"
)

// MergeGuest replays the guest cart into the server cart after login.
// Lines the server accepted are dropped from the guest cart even when a
// later line fails, so a retry never adds them twice.
func MergeGuest(ctx context.Context, local *LocalRepository, api API) (int, error) {
	items, err := local.Items(ctx)
	if err != nil {
		return 0, err
	}

	for i, item := range items {
		if err := api.AddCartItem(ctx, item.Plan.ID, item.Quantity); err != nil {
			addErr := fmt.Errorf("api.AddCartItem: %w", err)
			return i, errors.Join(addErr, local.save(ctx, items[i:]))
		}
	}

	if err := local.Clear(ctx); err != nil {
		return len(items), err
	}
	return len(items), nil
}
