package cart

import (
	"context"

	"github.com/nikolayk812/licensing-storefront/internal/port"
)

type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// OpenRepository picks the server cart for signed-in shoppers and the
// guest cart under key otherwise.
func OpenRepository(ctx context.Context, auth Authenticator, storage port.Storage, api API, key string) port.CartRepository {
	if auth.IsAuthenticated(ctx) {
		return NewRemote(api)
	}
	return NewLocal(storage, key)
}
