package lock

import (
	"context"
	"sync"
	"time"
)

type registryEntry struct {
	owner     string
	expiresAt time.Time // zero => no passive expiry
}

// Registry is the shared in-process lock table. All Memory locks that should
// exclude each other must be created from the same Registry; pass the handle
// explicitly, there is no package-level instance.
type Registry struct {
	mu    sync.Mutex
	locks map[string]registryEntry
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]registryEntry)}
}

func (r *Registry) acquire(name, owner string, ttl time.Duration) bool {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.locks[name]; ok {
		if e.expiresAt.IsZero() || e.expiresAt.After(now) {
			return false
		}
		// expired; fall through and take over
	}
	e := registryEntry{owner: owner}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	r.locks[name] = e
	return true
}

func (r *Registry) release(name, owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[name]
	if !ok || e.owner != owner {
		return false
	}
	delete(r.locks, name)
	return true
}

func (r *Registry) forceRelease(name string) {
	r.mu.Lock()
	delete(r.locks, name)
	r.mu.Unlock()
}

func (r *Registry) owner(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[name]
	if !ok {
		return ""
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(time.Now()) {
		delete(r.locks, name)
		return ""
	}
	return e.owner
}

// Memory is the in-process lock variant. Not safe across processes; intended
// for single-process deployments and tests.
type Memory struct {
	base
	reg *Registry
}

var _ Lock = (*Memory)(nil)

// NewMemory returns an unacquired in-process lock. ttl <= 0 disables passive
// expiry. An empty owner means a random token.
func NewMemory(reg *Registry, name string, ttl time.Duration, owner string) *Memory {
	return &Memory{base: newBase(name, ttl, owner), reg: reg}
}

func (l *Memory) Acquire(context.Context) (bool, error) {
	return l.reg.acquire(l.name, l.owner, l.ttl), nil
}

func (l *Memory) Release(context.Context) (bool, error) {
	return l.reg.release(l.name, l.owner), nil
}

func (l *Memory) ForceRelease(context.Context) error {
	l.reg.forceRelease(l.name)
	return nil
}

func (l *Memory) CurrentOwner(context.Context) (string, error) {
	return l.reg.owner(l.name), nil
}
