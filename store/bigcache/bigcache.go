// Package bigcache adapts allegro/bigcache to the cachemux store contract.
// BigCache has no per-entry TTL; entries expire by the global LifeWindow.
// Counter and add operations are serialized by a process mutex.
package bigcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	st "github.com/unkn0wn-root/cachemux/store"
)

type Store struct {
	c *bc.BigCache

	// guards Add/Increment/Decrement read-modify-write sequences
	rmw sync.Mutex
}

var (
	_ st.Store = (*Store)(nil)
	_ st.Adder = (*Store)(nil)
)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

// Put ignores the per-entry TTL; expiry follows the configured LifeWindow.
func (s *Store) Put(_ context.Context, key string, value []byte, _ time.Duration, _ ...string) (bool, error) {
	return true, s.c.Set(key, value)
}

func (s *Store) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.rmw.Lock()
	defer s.rmw.Unlock()
	_, hit, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if hit {
		return false, nil
	}
	return s.Put(ctx, key, value, ttl)
}

func (s *Store) Forget(_ context.Context, key string) (bool, error) {
	err := s.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Flush(context.Context) (bool, error) {
	if err := s.c.Reset(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	cur := int64(0)
	if b, hit, err := s.Get(ctx, key); err != nil {
		return 0, err
	} else if hit {
		n, perr := strconv.ParseInt(string(b), 10, 64)
		if perr != nil {
			return 0, st.ErrNonNumeric
		}
		cur = n
	}
	cur += delta
	if err := s.c.Set(key, strconv.AppendInt(nil, cur, 10)); err != nil {
		return 0, err
	}
	return cur, nil
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *Store) Close(context.Context) error {
	return s.c.Close()
}
