package cachemux

import (
	"context"
	"time"

	cd "github.com/unkn0wn-root/cachemux/codec"
	def "github.com/unkn0wn-root/cachemux/deferred"
	lk "github.com/unkn0wn-root/cachemux/lock"
	st "github.com/unkn0wn-root/cachemux/store"
)

const defaultLockTTL = 60 * time.Second

// Repository is the coordinating façade over a Store: value (de)serialization
// with numeric passthrough, TTL normalization, tag scoping, event emission,
// and stale-while-revalidate refresh.
//
// TTL rule, applied uniformly: Forever/RememberForever store with no expiry;
// Put/PutMany with ttl <= 0 behave like Forget; positive ttl expires after
// that duration. PutUntil/RememberUntil normalize an absolute instant the
// same way.
//
// A Repository exclusively owns its Store for the lifetime of the façade.
// Derived repositories returned by Tags share the root's resources and do not
// close them.
type Repository struct {
	name   string
	store  st.Store
	codec  cd.Codec
	log    Logger
	events Events
	exec   def.Executor
	clock  Clock

	lockTTL   time.Duration
	lockSleep time.Duration

	enabled  bool
	owns     bool // close the store on Close
	ownsExec bool // executor was created here, close it too
	tags     *TagSet

	// fallback lock table for stores without the Lockable capability
	lockReg *lk.Registry
}

func newRepository(opts Options) *Repository {
	r := &Repository{
		name:    opts.Name,
		store:   opts.Store,
		enabled: !opts.Disabled,
		owns:    true,
		clock:   realClock{},
		lockReg: lk.NewRegistry(),
	}

	// defaults
	r.codec = coalesce[cd.Codec](opts.Codec, cd.Msgpack{})
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.events = coalesce[Events](opts.Events, NopEvents{})
	r.lockTTL = coalesce[time.Duration](opts.LockTTL, defaultLockTTL)
	r.lockSleep = opts.LockPollInterval

	if opts.Deferred != nil {
		r.exec = opts.Deferred
	} else {
		r.exec = def.NewAsync(1, 256)
		r.ownsExec = true
	}
	return r
}

func (r *Repository) Name() string { return r.name }

// Store returns the underlying backend.
func (r *Repository) Store() st.Store { return r.store }

func (r *Repository) Enabled() bool { return r.enabled }

// Close releases owned resources. Derived (tagged) repositories no-op.
func (r *Repository) Close(ctx context.Context) error {
	if !r.owns {
		return nil
	}
	if r.ownsExec {
		if a, ok := r.exec.(*def.Async); ok {
			a.Close()
		}
	}
	return r.store.Close(ctx)
}

// Tags returns a repository scoped to the given tag combination: every key
// routes through the combination's current namespace, and Clear resets the
// tags instead of flushing the store. Works with any backend; no native tag
// support is required.
func (r *Repository) Tags(names ...string) *Repository {
	nr := *r
	nr.tags = NewTagSet(r.store, names...)
	nr.owns = false
	return &nr
}

// TagSet returns the bound tag set, or nil for an untagged repository.
func (r *Repository) TagSet() *TagSet { return r.tags }

func (r *Repository) tagNames() []string {
	if r.tags == nil {
		return nil
	}
	return r.tags.Names()
}

// itemKey maps a caller key to its storage key. Tagged repositories prefix
// with the namespace digest so a tag reset strands previously written
// entries.
func (r *Repository) itemKey(ctx context.Context, key string) (string, error) {
	if r.tags == nil {
		return key, nil
	}
	ns, err := r.tags.Namespace(ctx)
	if err != nil {
		return "", err
	}
	return ns + ":" + key, nil
}

// Get returns the stored value for key. Undecodable entries are dropped and
// reported as misses.
func (r *Repository) Get(ctx context.Context, key string) (any, bool, error) {
	if !r.enabled {
		return nil, false, nil
	}
	k, err := r.itemKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	r.events.Retrieving(r.name, key, r.tagNames())

	raw, ok, err := r.store.Get(ctx, k)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		r.events.Missed(r.name, key, r.tagNames())
		return nil, false, nil
	}
	v, err := decodeValue(r.codec, raw)
	if err != nil {
		// self-heal: a miss is always recomputable
		_, _ = r.store.Forget(ctx, k)
		r.log.Warn("dropped undecodable entry", Fields{"key": key, "err": err})
		r.events.Missed(r.name, key, r.tagNames())
		return nil, false, nil
	}
	r.events.Hit(r.name, key, v, r.tagNames())
	return v, true, nil
}

// GetOr returns the stored value, or the lazily-evaluated default on miss.
// The default is not cached.
func (r *Repository) GetOr(ctx context.Context, key string, fallback func(ctx context.Context) (any, error)) (any, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	return fallback(ctx)
}

// Many batch-reads keys. Keys absent from the backend map to nil; input key
// identity is preserved in the result.
func (r *Repository) Many(ctx context.Context, keys []string) (map[string]any, error) {
	return getMany(ctx, r, keys, nil)
}

// ManyWithDefaults batch-reads the map's keys; absent keys map to the
// caller's per-key default.
func (r *Repository) ManyWithDefaults(ctx context.Context, defaults map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	return getMany(ctx, r, keys, defaults)
}

// Put stores value for ttl. ttl <= 0 is equivalent to Forget.
func (r *Repository) Put(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return r.Forget(ctx, key)
	}
	return r.write(ctx, key, value, ttl)
}

// PutUntil stores value until the absolute instant at. Elapsed instants are
// equivalent to Forget.
func (r *Repository) PutUntil(ctx context.Context, key string, value any, at time.Time) (bool, error) {
	return r.Put(ctx, key, value, at.Sub(r.clock.Now()))
}

// Forever stores value with no expiry.
func (r *Repository) Forever(ctx context.Context, key string, value any) (bool, error) {
	return r.write(ctx, key, value, 0)
}

// write is the single store-write path; ttl 0 means no expiry here.
func (r *Repository) write(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !r.enabled {
		return true, nil
	}
	k, err := r.itemKey(ctx, key)
	if err != nil {
		return false, err
	}
	secs := int64(ttl / time.Second)
	r.events.Writing(r.name, key, value, secs, r.tagNames())

	raw, err := encodeValue(r.codec, value)
	if err != nil {
		// degrade to a failed write; the entry is recomputable
		r.log.Warn("value encode failed", Fields{"key": key, "err": err})
		r.events.WriteFailed(r.name, key, value, secs, r.tagNames())
		return false, nil
	}
	ok, err := r.store.Put(ctx, k, raw, ttl, r.tagNames()...)
	if err != nil {
		r.events.WriteFailed(r.name, key, value, secs, r.tagNames())
		return false, err
	}
	if !ok {
		r.events.WriteFailed(r.name, key, value, secs, r.tagNames())
		return false, nil
	}
	r.events.Written(r.name, key, value, secs, r.tagNames())
	return true, nil
}

// Add stores value only if key is absent; returns false when it already
// exists or ttl has elapsed (<= 0). Uses the backend's native atomic add
// where available; otherwise falls back to read-then-write, which is
// explicitly non-atomic.
func (r *Repository) Add(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !r.enabled || ttl <= 0 {
		return false, nil
	}
	k, err := r.itemKey(ctx, key)
	if err != nil {
		return false, err
	}

	if adder, native := r.store.(st.Adder); native {
		secs := int64(ttl / time.Second)
		r.events.Writing(r.name, key, value, secs, r.tagNames())

		raw, err := encodeValue(r.codec, value)
		if err != nil {
			r.log.Warn("value encode failed", Fields{"key": key, "err": err})
			r.events.WriteFailed(r.name, key, value, secs, r.tagNames())
			return false, nil
		}
		ok, err := adder.Add(ctx, k, raw, ttl)
		if err != nil {
			r.events.WriteFailed(r.name, key, value, secs, r.tagNames())
			return false, err
		}
		if !ok {
			// an existing entry winning the race is a normal Add outcome,
			// not a failed write
			return false, nil
		}
		r.events.Written(r.name, key, value, secs, r.tagNames())
		return true, nil
	}

	// non-atomic fallback
	if _, exists, err := r.store.Get(ctx, k); err != nil || exists {
		return false, err
	}
	return r.write(ctx, key, value, ttl)
}

// Increment delegates to the backend's atomic counter; fails when the stored
// value is non-numeric.
func (r *Repository) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	k, err := r.itemKey(ctx, key)
	if err != nil {
		return 0, err
	}
	return r.store.Increment(ctx, k, delta)
}

// Decrement delegates to the backend's atomic counter.
func (r *Repository) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	k, err := r.itemKey(ctx, key)
	if err != nil {
		return 0, err
	}
	return r.store.Decrement(ctx, k, delta)
}

// Remember returns the cached value when present; otherwise it invokes
// producer, stores the result for ttl, and returns it. Producer failures are
// wrapped in a ProducerError carrying the key.
func (r *Repository) Remember(ctx context.Context, key string, ttl time.Duration, producer func(ctx context.Context) (any, error)) (any, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	v, err = producer(ctx)
	if err != nil {
		return nil, &ProducerError{Key: key, Err: err}
	}
	if _, err := r.Put(ctx, key, v, ttl); err != nil {
		return nil, err
	}
	return v, nil
}

// RememberUntil is Remember with an absolute expiry instant.
func (r *Repository) RememberUntil(ctx context.Context, key string, at time.Time, producer func(ctx context.Context) (any, error)) (any, error) {
	return r.Remember(ctx, key, at.Sub(r.clock.Now()), producer)
}

// RememberForever is Remember with no expiry.
func (r *Repository) RememberForever(ctx context.Context, key string, producer func(ctx context.Context) (any, error)) (any, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	v, err = producer(ctx)
	if err != nil {
		return nil, &ProducerError{Key: key, Err: err}
	}
	if _, err := r.Forever(ctx, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Forget removes key.
func (r *Repository) Forget(ctx context.Context, key string) (bool, error) {
	if !r.enabled {
		return false, nil
	}
	k, err := r.itemKey(ctx, key)
	if err != nil {
		return false, err
	}
	r.events.Forgetting(r.name, key, r.tagNames())
	ok, err := r.store.Forget(ctx, k)
	if err != nil {
		r.events.ForgetFailed(r.name, key, r.tagNames())
		return false, err
	}
	if !ok {
		r.events.ForgetFailed(r.name, key, r.tagNames())
		return false, nil
	}
	r.events.Forgot(r.name, key, r.tagNames())
	return true, nil
}

// Clear flushes the whole store, or, on a tagged repository, resets the tag
// combination so its entries become unreachable.
func (r *Repository) Clear(ctx context.Context) (bool, error) {
	if !r.enabled {
		return false, nil
	}
	if r.tags != nil {
		if err := r.tags.Reset(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return r.store.Flush(ctx)
}

// PutMany fans out independent per-key writes (best-effort, no rollback).
// ttl <= 0 degrades to a bulk delete of all keys. The aggregate result is
// true only when every individual write succeeded.
func (r *Repository) PutMany(ctx context.Context, values map[string]any, ttl time.Duration) (bool, error) {
	return putMany(ctx, r, values, ttl)
}

// PutManyForever fans out Forever per key, aggregating the boolean AND.
func (r *Repository) PutManyForever(ctx context.Context, values map[string]any) (bool, error) {
	return putManyForever(ctx, r, values)
}

// Lock mints a lock handle named name. When the backend is Lockable the lock
// is distributed; otherwise it falls back to an in-process lock shared by
// this repository and its derived façades. ttl <= 0 means no passive expiry.
func (r *Repository) Lock(name string, ttl time.Duration) lk.Lock {
	var l lk.Lock
	if lb, ok := r.store.(st.Lockable); ok {
		l = lb.Lock(name, ttl, "")
	} else {
		l = lk.NewMemory(r.lockReg, name, ttl, "")
	}
	if r.lockSleep > 0 {
		l.SetPollInterval(r.lockSleep)
	}
	return l
}
