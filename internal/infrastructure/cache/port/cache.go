package port

import (
	"context"
	"time"
)

// NoExpiration asks the adapter to keep the key until evicted.
const NoExpiration time.Duration = 0

// Cache is the key-value cache contract used by the application layer.
// Implementations must be safe for concurrent use and context-aware so
// callers control timeouts and cancellation.
//
// Values are plain strings to keep the port free of serialization concerns.
type Cache interface {
	// Get fetches the value for key. A missing key is reported as
	// ("", ErrMiss); a non-nil error otherwise means a transport or server
	// failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. ttl of NoExpiration persists until eviction.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes the given keys and returns how many were removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Close releases resources held by the adapter.
	Close() error
}

// ErrMiss signals a cache miss in a typed way so callers can distinguish
// misses from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (errMiss) Error() string { return "cache: miss" }
