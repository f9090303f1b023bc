package port

import (
	"context"
	"time"
)

// ObjectStore is the gateway to the single bucket holding uploaded videos and
// produced archives. Exists reports (false, nil) for a missing key; every
// other failure is a StoreAccessError.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Fetch(ctx context.Context, key string, localDestination string) error
	Store(ctx context.Context, localSource string, key string) error
	SignedLink(ctx context.Context, key string, ttl time.Duration) (string, error)
}
