// Package redis adapts go-redis clients to the cachemux store contract,
// including the cross-process lock capability.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cachemux/lock"
	st "github.com/unkn0wn-root/cachemux/store"
)

var ErrNilClient = errors.New("redis store: nil client")

// releaseScript is the atomic compare-and-delete used for lock release:
// delete the key only when its stored value equals the expected owner, as a
// single server-evaluated operation. A client-side read-compare-delete would
// race with a foreign re-acquisition between the compare and the delete.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ st.Store         = (*Store)(nil)
	_ st.Adder         = (*Store)(nil)
	_ st.Lockable      = (*Store)(nil)
	_ lock.AtomicStore = (*Store)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration, _ ...string) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // non-positive TTLs mean "no expiry" per store contract
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0
	}
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Del(ctx, key).Result()
	return n > 0, err
}

func (s *Store) Flush(ctx context.Context) (bool, error) {
	if err := s.rdb.FlushDB(ctx).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return s.rdb.IncrBy(ctx, key, delta).Result()
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.rdb.DecrBy(ctx, key, delta).Result()
}

// Close releases the underlying client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func (s *Store) Lock(name string, ttl time.Duration, owner string) lock.Lock {
	return lock.NewStoreLock(s, name, ttl, owner)
}

func (s *Store) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // SET NX without expiry: held until released
	}
	return s.rdb.SetNX(ctx, name, owner, ttl).Result()
}

func (s *Store) ReleaseLock(ctx context.Context, name, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.rdb, []string{name}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ForceReleaseLock(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, name).Err()
}

func (s *Store) LockOwner(ctx context.Context, name string) (string, error) {
	v, err := s.rdb.Get(ctx, name).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return v, err
}
