package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// SetIdempotency claims a key, returns false if already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// CompleteIdempotency records the result of a claimed key
	CompleteIdempotency(ctx context.Context, key, result string) error

	// GetIdempotency returns the recorded result, or "" while the claim is in flight
	GetIdempotency(ctx context.Context, key string) (string, error)

	// ReleaseIdempotency drops a claim so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetOrderList returns a cached order-list payload, ok=false on miss
	GetOrderList(ctx context.Context, key string) (payload []byte, ok bool, err error)

	SetOrderList(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// OrderListVersion is part of every order-list cache key; bumping it
	// invalidates all cached lists at once
	OrderListVersion(ctx context.Context) (int64, error)

	BumpOrderListVersion(ctx context.Context) error
}
