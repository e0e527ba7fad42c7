// Package memory provides an in-process store with the full capability set
// (atomic add, counters, locking). Single-process only.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/unkn0wn-root/cachemux/lock"
	st "github.com/unkn0wn-root/cachemux/store"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// Store keeps entries in a mutex-guarded map. Expired entries are dropped
// lazily on access and, when a cleanup interval is configured, by a
// background sweep.
type Store struct {
	mu sync.Mutex
	m  map[string]entry

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var (
	_ st.Store         = (*Store)(nil)
	_ st.Adder         = (*Store)(nil)
	_ st.Lockable      = (*Store)(nil)
	_ lock.AtomicStore = (*Store)(nil)
)

type Config struct {
	// CleanupInterval enables a background sweep of expired entries.
	// 0 disables the sweep; expiry is then enforced lazily on access.
	CleanupInterval time.Duration
}

func New(cfg Config) *Store {
	s := &Store{m: make(map[string]entry)}
	if cfg.CleanupInterval > 0 {
		s.ticker = time.NewTicker(cfg.CleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.m {
		if !e.exp.IsZero() && e.exp.Before(now) {
			delete(s.m, k)
		}
	}
	s.mu.Unlock()
}

// live returns the entry for key and drops it when expired.
// Caller must hold s.mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.m[key]
	if !ok {
		return entry{}, false
	}
	if !e.exp.IsZero() && !e.exp.After(time.Now()) {
		delete(s.m, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, false, nil
	}
	return e.v, true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration, _ ...string) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.m[key] = entry{v: value, exp: exp}
	s.mu.Unlock()
	return true, nil
}

func (s *Store) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.live(key); exists {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.m[key] = entry{v: value, exp: exp}
	return true, nil
}

func (s *Store) Forget(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	delete(s.m, key)
	return ok, nil
}

func (s *Store) Flush(context.Context) (bool, error) {
	s.mu.Lock()
	s.m = make(map[string]entry)
	s.mu.Unlock()
	return true, nil
}

func (s *Store) Increment(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	cur := int64(0)
	if ok {
		n, err := strconv.ParseInt(string(e.v), 10, 64)
		if err != nil {
			return 0, st.ErrNonNumeric
		}
		cur = n
	}
	cur += delta
	// counters keep their remaining TTL
	s.m[key] = entry{v: strconv.AppendInt(nil, cur, 10), exp: e.exp}
	return cur, nil
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *Store) Close(context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

// Locking: lock state lives in the same map under a reserved prefix, so the
// memory store satisfies the cross-process lock contract within one process.

const lockPrefix = "lock:"

func (s *Store) Lock(name string, ttl time.Duration, owner string) lock.Lock {
	return lock.NewStoreLock(s, name, ttl, owner)
}

func (s *Store) AcquireLock(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.live(lockPrefix + name); held {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.m[lockPrefix+name] = entry{v: []byte(owner), exp: exp}
	return true, nil
}

func (s *Store) ReleaseLock(_ context.Context, name, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, held := s.live(lockPrefix + name)
	if !held || string(e.v) != owner {
		return false, nil
	}
	delete(s.m, lockPrefix+name)
	return true, nil
}

func (s *Store) ForceReleaseLock(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.m, lockPrefix+name)
	s.mu.Unlock()
	return nil
}

func (s *Store) LockOwner(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, held := s.live(lockPrefix + name)
	if !held {
		return "", nil
	}
	return string(e.v), nil
}
