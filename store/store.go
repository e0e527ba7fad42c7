// Package store defines the backend abstraction used by cachemux.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Put for a key (no prepended
// metadata, no re-encoding, no mutation). If a store performs internal
// transforms (e.g., compression), they MUST be fully reversed so that the
// bytes returned by Get are identical to the bytes provided to Put.
//
// Counter keys are a special case: Increment and Decrement operate on values
// written as ASCII decimal integers, which is how the coordination layer
// stores numeric values. A store only needs to guarantee atomicity of the
// counter operations it natively supports; everything else is best-effort.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/cachemux/lock"
)

// ErrNonNumeric is returned by Increment/Decrement when the stored value
// cannot be interpreted as an integer.
var ErrNonNumeric = errors.New("store: value is not numeric")

// Store is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value with the given TTL. A TTL <= 0 means no expiry.
	// The optional tags are advisory: backends with native tag indexing may
	// record them; all others ignore them (tag scoping is handled above the
	// store by namespace derivation).
	// Returns ok=false when the store rejected the write under pressure.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) (ok bool, err error)

	// Forget removes a key. Returns true if a key was removed.
	Forget(ctx context.Context, key string) (bool, error)

	// Flush removes every key in the store.
	Flush(ctx context.Context) (bool, error)

	// Increment adds delta to the integer stored at key, initializing a
	// missing key to delta. Must be atomic where the backend supports it.
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// Decrement subtracts delta from the integer stored at key.
	Decrement(ctx context.Context, key string, delta int64) (int64, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Adder is implemented by stores with a native atomic write-if-absent.
// Callers fall back to a non-atomic read-then-write when absent.
type Adder interface {
	// Add stores value only if key is absent. A TTL <= 0 means no expiry.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// TagFlusher is implemented by stores with native tag-based deletion.
// Tag invalidation works without it; this is a best-effort physical
// reclamation hook on top of the namespace bump.
type TagFlusher interface {
	FlushTags(ctx context.Context, tags []string) (bool, error)
}

// Lockable is implemented by stores that can mint distributed locks.
type Lockable interface {
	// Lock returns an unacquired lock handle. ttl <= 0 means the lock does
	// not passively expire. An empty owner means a random token.
	Lock(name string, ttl time.Duration, owner string) lock.Lock
}
