package lock

import (
	"context"
	"time"
)

// AtomicStore is the narrow contract a backend must provide for cross-process
// locking. Every method must execute as a single indivisible server-side
// operation; ReleaseLock in particular must be an atomic compare-and-delete
// (e.g. a server-evaluated script), never a client-side read-compare-delete,
// which would race with a foreign re-acquisition between the compare and the
// delete.
type AtomicStore interface {
	// AcquireLock sets name to owner only if absent. ttl <= 0 means no
	// expiry. Returns true when the caller now holds the lock.
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)

	// ReleaseLock deletes name only when its stored value equals owner.
	// Returns true when a deletion happened.
	ReleaseLock(ctx context.Context, name, owner string) (bool, error)

	// ForceReleaseLock deletes name unconditionally.
	ForceReleaseLock(ctx context.Context, name string) error

	// LockOwner returns the stored owner token, or "" when unheld.
	LockOwner(ctx context.Context, name string) (string, error)
}

// StoreLock is the cross-process lock variant, delegating every transition to
// an AtomicStore.
type StoreLock struct {
	base
	store AtomicStore
}

var _ Lock = (*StoreLock)(nil)

// NewStoreLock returns an unacquired lock over st. ttl <= 0 disables passive
// expiry. An empty owner means a random token.
func NewStoreLock(st AtomicStore, name string, ttl time.Duration, owner string) *StoreLock {
	return &StoreLock{base: newBase(name, ttl, owner), store: st}
}

func (l *StoreLock) Acquire(ctx context.Context) (bool, error) {
	return l.store.AcquireLock(ctx, l.name, l.owner, l.ttl)
}

func (l *StoreLock) Release(ctx context.Context) (bool, error) {
	return l.store.ReleaseLock(ctx, l.name, l.owner)
}

func (l *StoreLock) ForceRelease(ctx context.Context) error {
	return l.store.ForceReleaseLock(ctx, l.name)
}

func (l *StoreLock) CurrentOwner(ctx context.Context) (string, error) {
	return l.store.LockOwner(ctx, l.name)
}
