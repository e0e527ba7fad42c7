// Package lock provides per-name mutual exclusion for cache coordination.
//
// Two variants ship with cachemux: an in-process lock backed by a shared
// Registry (single process only) and a store-backed lock that delegates to a
// backend implementing AtomicStore (safe across processes).
//
// A lock handle is transient: create one per acquisition attempt and discard
// it after release or expiry. Re-acquiring a name already held by the same
// owner is unsupported and behaves like a foreign acquisition attempt.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout reports that Block gave up before the lock could be acquired.
// It is a distinct condition from an ordinary failed Acquire.
var ErrTimeout = errors.New("lock: timed out waiting for acquisition")

// DefaultPollInterval is the sleep between blocked acquisition attempts.
const DefaultPollInterval = 250 * time.Millisecond

// Lock is a single-acquisition mutual-exclusion handle.
type Lock interface {
	// Acquire makes one attempt to take the lock. Returns false without
	// side effects when the lock is held by a live owner.
	Acquire(ctx context.Context) (bool, error)

	// Release frees the lock only when this handle's owner token matches
	// the stored owner; otherwise returns false and leaves the lock intact.
	Release(ctx context.Context) (bool, error)

	// ForceRelease frees the lock unconditionally, ignoring ownership.
	ForceRelease(ctx context.Context) error

	// Owner returns this handle's owner token.
	Owner() string

	// CurrentOwner returns the owner token stored in the backend,
	// or "" when the lock is not held.
	CurrentOwner(ctx context.Context) (string, error)

	// PollInterval is the sleep between Block attempts.
	PollInterval() time.Duration

	// SetPollInterval overrides the sleep between Block attempts.
	SetPollInterval(d time.Duration)
}

// IsOwnedBy reports whether the lock is currently held by owner.
func IsOwnedBy(ctx context.Context, l Lock, owner string) (bool, error) {
	cur, err := l.CurrentOwner(ctx)
	if err != nil {
		return false, err
	}
	return cur != "" && cur == owner, nil
}

// IsOwnedByCurrentProcess reports whether the lock is held under the token
// minted for this handle.
func IsOwnedByCurrentProcess(ctx context.Context, l Lock) (bool, error) {
	return IsOwnedBy(ctx, l, l.Owner())
}

// Block polls Acquire every PollInterval until it succeeds or until elapsed
// time reaches timeout, at which point it fails with ErrTimeout. The caller
// owns the lock on a nil return.
func Block(ctx context.Context, l Lock, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.PollInterval()):
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
	}
}

// Do makes a single acquisition attempt and, on success, runs fn with the
// lock held. The lock is released on every exit path, including a panicking
// fn. Returns (false, nil) when the lock could not be taken.
func Do(ctx context.Context, l Lock, fn func() error) (bool, error) {
	ok, err := l.Acquire(ctx)
	if err != nil || !ok {
		return false, err
	}
	defer l.Release(ctx)
	return true, fn()
}

// BlockDo blocks up to timeout for the lock and runs fn with it held.
// The lock is released on every exit path.
func BlockDo(ctx context.Context, l Lock, timeout time.Duration, fn func() error) error {
	if err := Block(ctx, l, timeout); err != nil {
		return err
	}
	defer l.Release(ctx)
	return fn()
}

// base carries the fields every lock variant shares.
type base struct {
	name  string
	owner string
	ttl   time.Duration // 0 => no passive expiry
	sleep time.Duration
}

func newBase(name string, ttl time.Duration, owner string) base {
	if owner == "" {
		owner = uuid.NewString()
	}
	if ttl < 0 {
		ttl = 0
	}
	return base{name: name, owner: owner, ttl: ttl, sleep: DefaultPollInterval}
}

func (b *base) Owner() string { return b.owner }

func (b *base) PollInterval() time.Duration { return b.sleep }

func (b *base) SetPollInterval(d time.Duration) {
	if d > 0 {
		b.sleep = d
	}
}
