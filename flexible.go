package cachemux

import (
	"context"
	"time"
)

// createdSuffix derives the key holding a flexible entry's creation record.
const createdSuffix = ":created"

// flexiblePrefix names the refresh lock and dedupe tag for a key.
const flexiblePrefix = "flexible:"

// Flexible implements stale-while-revalidate caching. fresh is the window in
// which the value is served as-is; hard is the full expiry written to the
// backend.
//
// Cold (value or creation record missing): producer runs synchronously and
// the result is returned after being stored with the hard TTL. Fresh: the
// value is returned immediately, nothing scheduled. Stale: the stale value is
// returned immediately and a refresh is handed to the deferred executor,
// deduplicated per key, so readers never wait on lock acquisition or
// producer latency and at most one recomputation runs per key at a time.
//
// The creation record is an opaque token (nanosecond instant). The background
// refresh re-reads it under a per-key lock and aborts when it no longer
// matches the token observed at read time, meaning another worker already
// refreshed.
//
// Presence, not nil-ness, decides whether the entry is cold, so a producer
// may legitimately return nil and have it cached like any other value.
func (r *Repository) Flexible(ctx context.Context, key string, fresh, hard time.Duration, producer func(ctx context.Context) (any, error)) (any, error) {
	v, present, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	cv, _, err := r.Get(ctx, key+createdSuffix)
	if err != nil {
		return nil, err
	}

	created, haveCreated := cv.(int64)
	if !present || !haveCreated {
		// cold or desynchronized: recompute in-line
		nv, err := producer(ctx)
		if err != nil {
			return nil, &ProducerError{Key: key, Err: err}
		}
		if err := r.writeFlexible(ctx, key, nv, hard); err != nil {
			return nil, err
		}
		return nv, nil
	}

	if r.clock.Now().UnixNano() < created+fresh.Nanoseconds() {
		return v, nil
	}

	// Stale: serve it, refresh out-of-band. The executor drops the closure
	// when a refresh for this key is already queued or running.
	observed := created
	r.exec.Execute(func(bctx context.Context) {
		r.refreshFlexible(bctx, key, hard, observed, producer)
	}, flexiblePrefix+key)

	return v, nil
}

func (r *Repository) refreshFlexible(ctx context.Context, key string, hard time.Duration, observed int64, producer func(ctx context.Context) (any, error)) {
	l := r.Lock(flexiblePrefix+key, r.lockTTL)
	ok, err := l.Acquire(ctx)
	if err != nil {
		r.log.Warn("refresh lock error", Fields{"key": key, "err": err})
		return
	}
	if !ok {
		// a refresh is already in flight elsewhere; safe to skip
		return
	}
	defer l.Release(ctx)

	// another worker may have refreshed between staleness detection and now
	cur, have, err := r.Get(ctx, key+createdSuffix)
	if err != nil {
		r.log.Warn("refresh recheck failed", Fields{"key": key, "err": err})
		return
	}
	if tok, isInt := cur.(int64); !have || !isInt || tok != observed {
		return
	}

	nv, err := producer(ctx)
	if err != nil {
		// background context: nothing to re-raise to, so record it
		r.log.Error("refresh producer failed", Fields{"key": key, "err": err})
		return
	}
	if err := r.writeFlexible(ctx, key, nv, hard); err != nil {
		r.log.Error("refresh write failed", Fields{"key": key, "err": err})
	}
}

// writeFlexible stores the value and a fresh creation record, both bounded by
// the hard TTL. The two writes are independent; a torn pair reads as cold and
// resynchronizes on the next Flexible call.
func (r *Repository) writeFlexible(ctx context.Context, key string, v any, hard time.Duration) error {
	if _, err := r.write(ctx, key, v, hard); err != nil {
		return err
	}
	_, err := r.write(ctx, key+createdSuffix, r.clock.Now().UnixNano(), hard)
	return err
}
