// Package ristretto adapts dgraph-io/ristretto to the cachemux store
// contract. Counter and add operations are serialized by a process mutex
// because Ristretto has no native read-modify-write.
package ristretto

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	st "github.com/unkn0wn-root/cachemux/store"
)

type Store struct {
	c *rc.Cache

	// guards Add/Increment/Decrement read-modify-write sequences
	rmw sync.Mutex
}

var (
	_ st.Store = (*Store)(nil)
	_ st.Adder = (*Store)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration, _ ...string) (bool, error) {
	if ttl <= 0 {
		return s.c.Set(key, value, int64(len(value))), nil
	}
	return s.c.SetWithTTL(key, value, int64(len(value)), ttl), nil
}

func (s *Store) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.rmw.Lock()
	defer s.rmw.Unlock()
	if _, exists := s.c.Get(key); exists {
		return false, nil
	}
	ok, err := s.Put(ctx, key, value, ttl)
	if ok {
		// make the write visible to an immediately following Add
		s.c.Wait()
	}
	return ok, err
}

func (s *Store) Forget(_ context.Context, key string) (bool, error) {
	_, existed := s.c.Get(key)
	s.c.Del(key)
	return existed, nil
}

func (s *Store) Flush(context.Context) (bool, error) {
	s.c.Clear()
	return true, nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	cur := int64(0)
	ttl := time.Duration(0)
	if v, ok := s.c.Get(key); ok {
		b, _ := v.([]byte)
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, st.ErrNonNumeric
		}
		cur = n
		if rem, ok := s.c.GetTTL(key); ok {
			ttl = rem
		}
	}
	cur += delta
	if _, err := s.Put(ctx, key, strconv.AppendInt(nil, cur, 10), ttl); err != nil {
		return 0, err
	}
	s.c.Wait()
	return cur, nil
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes Ristretto metrics when enabled (not part of the store
// contract).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
