package cachemux

import (
	"fmt"
	"time"

	cd "github.com/unkn0wn-root/cachemux/codec"
	def "github.com/unkn0wn-root/cachemux/deferred"
	st "github.com/unkn0wn-root/cachemux/store"
)

// Options tune the behavior of a Repository.
// Only Name and Store are required; others have sensible defaults.
type Options struct {
	// Required
	Name  string   // store name reported in events, e.g. "redis", "memory"
	Store st.Store // backend the repository exclusively owns

	Codec    cd.Codec     // nil => codec.Msgpack{}
	Logger   Logger       // nil => NopLogger
	Events   Events       // nil => NopEvents
	Deferred def.Executor // nil => deferred.NewAsync(1, 256), owned and closed by the repository

	// LockTTL bounds locks taken by background refreshes; 0 => 60s.
	LockTTL time.Duration

	// LockPollInterval overrides the sleep between blocked lock attempts
	// for locks minted through Repository.Lock; 0 => lock package default.
	LockPollInterval time.Duration

	Disabled bool // default false (enabled); a disabled repository misses on reads and no-ops writes
}

// New builds a Repository over opts.Store.
func New(opts Options) (*Repository, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("cachemux: store is required")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("cachemux: name is required")
	}
	return newRepository(opts), nil
}
