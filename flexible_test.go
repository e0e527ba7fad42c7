package cachemux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/cachemux/deferred"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// captureExec records submitted refreshes without running them.
type captureExec struct {
	fns  []func(context.Context)
	tags []string
}

func (c *captureExec) Execute(fn func(ctx context.Context), tag string) {
	c.fns = append(c.fns, fn)
	c.tags = append(c.tags, tag)
}

func countingProducer(calls *int) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		*calls++
		return fmt.Sprintf("v%d", *calls), nil
	}
}

func TestFlexibleFreshAndStale(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Now()}
	r := newTestRepo(t, func(o *Options) { o.Deferred = deferred.Sync{} })
	r.clock = clk

	calls := 0
	producer := countingProducer(&calls)

	// cold: synchronous compute
	v, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
	if err != nil || v != "v1" {
		t.Fatalf("cold: v=%v err=%v", v, err)
	}
	if calls != 1 {
		t.Fatalf("cold: calls=%d", calls)
	}

	// fresh at t=5s: no recompute
	clk.Advance(5 * time.Second)
	v, err = r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
	if err != nil || v != "v1" || calls != 1 {
		t.Fatalf("fresh: v=%v calls=%d err=%v", v, calls, err)
	}

	// stale at t=15s: stale value served, refresh runs (inline via Sync)
	clk.Advance(10 * time.Second)
	v, err = r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
	if err != nil || v != "v1" {
		t.Fatalf("stale: v=%v err=%v", v, err)
	}
	if calls != 2 {
		t.Fatalf("stale: refresh should have run once, calls=%d", calls)
	}

	// refreshed value is fresh again
	v, err = r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
	if err != nil || v != "v2" || calls != 2 {
		t.Fatalf("after refresh: v=%v calls=%d err=%v", v, calls, err)
	}
}

func TestFlexibleConcurrentStaleReadsRefreshOnce(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Now()}
	exec := &captureExec{}
	r := newTestRepo(t, func(o *Options) { o.Deferred = exec })
	r.clock = clk

	calls := 0
	producer := countingProducer(&calls)

	if _, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer); err != nil {
		t.Fatal(err)
	}
	clk.Advance(15 * time.Second)

	// two rapid stale reads both serve the stale value and both hand a
	// refresh to the executor (dedupe by tag is the executor's call)
	for i := 0; i < 2; i++ {
		v, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
		if err != nil || v != "v1" {
			t.Fatalf("stale read #%d: v=%v err=%v", i, v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("no refresh may run before the executor does: calls=%d", calls)
	}
	if len(exec.fns) != 2 || exec.tags[0] != "flexible:k" || exec.tags[1] != "flexible:k" {
		t.Fatalf("want two submissions under one tag, got %v", exec.tags)
	}

	// first refresh recomputes; the second aborts on the moved creation
	// record, so the producer still ran exactly once more
	exec.fns[0](ctx)
	exec.fns[1](ctx)
	if calls != 2 {
		t.Fatalf("duplicate refresh must abort: calls=%d", calls)
	}
	if v, _, _ := r.Get(ctx, "k"); v != "v2" {
		t.Fatalf("refreshed value: %v", v)
	}
}

func TestFlexibleSkipsRefreshWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Now()}
	exec := &captureExec{}
	r := newTestRepo(t, func(o *Options) { o.Deferred = exec })
	r.clock = clk

	calls := 0
	producer := countingProducer(&calls)

	if _, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer); err != nil {
		t.Fatal(err)
	}
	clk.Advance(15 * time.Second)
	if _, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer); err != nil {
		t.Fatal(err)
	}

	// a refresh is "in flight" elsewhere
	l := r.Lock("flexible:k", 0)
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("setup: could not take refresh lock")
	}
	defer l.ForceRelease(ctx)

	exec.fns[0](ctx)
	if calls != 1 {
		t.Fatalf("refresh must skip while lock is held: calls=%d", calls)
	}
}

func TestFlexibleCachesNilValue(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Now()}
	r := newTestRepo(t, func(o *Options) { o.Deferred = deferred.Sync{} })
	r.clock = clk

	calls := 0
	producer := func(context.Context) (any, error) {
		calls++
		return nil, nil
	}

	v, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
	if err != nil || v != nil || calls != 1 {
		t.Fatalf("cold: v=%v calls=%d err=%v", v, calls, err)
	}

	// a cached nil is a hit, not a cold miss
	clk.Advance(5 * time.Second)
	v, err = r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer)
	if err != nil || v != nil {
		t.Fatalf("fresh: v=%v err=%v", v, err)
	}
	if calls != 1 {
		t.Fatalf("nil result must not recompute while fresh: calls=%d", calls)
	}

	// and goes stale like any other value
	clk.Advance(10 * time.Second)
	if _, err := r.Flexible(ctx, "k", 10*time.Second, time.Minute, producer); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("stale nil must refresh: calls=%d", calls)
	}
}

func TestFlexibleColdProducerFailure(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t, func(o *Options) { o.Deferred = deferred.Sync{} })

	cause := errors.New("boom")
	_, err := r.Flexible(ctx, "k", time.Second, time.Minute, func(context.Context) (any, error) {
		return nil, cause
	})
	var pe *ProducerError
	if !errors.As(err, &pe) || !errors.Is(err, cause) {
		t.Fatalf("want wrapped ProducerError, got %v", err)
	}
}
