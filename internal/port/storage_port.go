package port

import "context"

// Storage keys shared by the client, mirroring the storefront's local storage layout.
const (
	KeyToken            = "token"
	KeyUserToken        = "userToken"
	KeyDistributorToken = "distributorToken"
	KeyUser             = "user"
	KeyCart             = "cart"
	KeyCartridgeCart    = "cartridgeCart"
)

// Storage is a string key/value store scoped to one shopper profile.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}
