package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMutualExclusion(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	const n = 16
	var wg sync.WaitGroup
	acquired := make([]bool, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			l := NewMemory(reg, "job", time.Minute, "")
			ok, err := l.Acquire(ctx)
			if err != nil {
				t.Errorf("Acquire: %v", err)
			}
			acquired[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range acquired {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("want exactly one winner, got %d", winners)
	}
}

func TestReleaseSafety(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	holder := NewMemory(reg, "job", 0, "owner-a")
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("setup: acquire failed")
	}

	// foreign owner cannot release
	foreign := NewMemory(reg, "job", 0, "owner-b")
	if ok, _ := foreign.Release(ctx); ok {
		t.Fatal("foreign release must fail")
	}
	if cur, _ := holder.CurrentOwner(ctx); cur != "owner-a" {
		t.Fatalf("lock must be intact, owner=%q", cur)
	}

	// matching owner releases; a different owner can then acquire
	if ok, _ := holder.Release(ctx); !ok {
		t.Fatal("matching release must succeed")
	}
	if ok, _ := foreign.Acquire(ctx); !ok {
		t.Fatal("lock must be free after release")
	}

	// force release ignores ownership
	if err := holder.ForceRelease(ctx); err != nil {
		t.Fatal(err)
	}
	if cur, _ := holder.CurrentOwner(ctx); cur != "" {
		t.Fatalf("force release must remove the lock, owner=%q", cur)
	}
}

func TestNoReentrancy(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	l := NewMemory(reg, "job", time.Minute, "owner-a")
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("first acquire failed")
	}
	if ok, _ := l.Acquire(ctx); ok {
		t.Fatal("re-acquiring a held lock must fail, even for the same owner")
	}
}

func TestExpiredLockCanBeTakenOver(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	old := NewMemory(reg, "job", 20*time.Millisecond, "")
	if ok, _ := old.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	time.Sleep(40 * time.Millisecond)

	next := NewMemory(reg, "job", 0, "")
	if ok, _ := next.Acquire(ctx); !ok {
		t.Fatal("expired lock must be acquirable")
	}
	// the stale handle can no longer release
	if ok, _ := old.Release(ctx); ok {
		t.Fatal("stale owner must not release the new holder's lock")
	}
}

func TestOwnershipProbes(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	l := NewMemory(reg, "job", 0, "")
	if own, _ := IsOwnedByCurrentProcess(ctx, l); own {
		t.Fatal("unacquired lock is owned by nobody")
	}
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	if own, _ := IsOwnedByCurrentProcess(ctx, l); !own {
		t.Fatal("holder must see its own ownership")
	}
	if own, _ := IsOwnedBy(ctx, l, "someone-else"); own {
		t.Fatal("wrong owner token must not match")
	}
}

func TestBlockTimesOut(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	holder := NewMemory(reg, "job", 0, "")
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("setup: acquire failed")
	}

	waiter := NewMemory(reg, "job", 0, "")
	waiter.SetPollInterval(5 * time.Millisecond)
	start := time.Now()
	err := Block(ctx, waiter, 30*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("block must give up near the timeout")
	}
}

func TestBlockAcquiresWhenFreed(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	holder := NewMemory(reg, "job", 0, "")
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("setup: acquire failed")
	}
	go func() {
		time.Sleep(15 * time.Millisecond)
		_, _ = holder.Release(ctx)
	}()

	waiter := NewMemory(reg, "job", 0, "")
	waiter.SetPollInterval(5 * time.Millisecond)
	if err := Block(ctx, waiter, time.Second); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if own, _ := IsOwnedByCurrentProcess(ctx, waiter); !own {
		t.Fatal("waiter must hold the lock after Block")
	}
}

func TestDoReleasesOnEveryPath(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	boom := errors.New("boom")
	l := NewMemory(reg, "job", 0, "")
	ran, err := Do(ctx, l, func() error { return boom })
	if !ran || !errors.Is(err, boom) {
		t.Fatalf("Do: ran=%v err=%v", ran, err)
	}
	if cur, _ := l.CurrentOwner(ctx); cur != "" {
		t.Fatal("lock must be released after a failing callback")
	}

	// held lock: single attempt reports false without running fn
	holder := NewMemory(reg, "job", 0, "")
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("setup: acquire failed")
	}
	ran, err = Do(ctx, NewMemory(reg, "job", 0, ""), func() error {
		t.Fatal("callback must not run without the lock")
		return nil
	})
	if ran || err != nil {
		t.Fatalf("Do on held lock: ran=%v err=%v", ran, err)
	}
}

func TestBlockDo(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	l := NewMemory(reg, "job", 0, "")
	called := false
	if err := BlockDo(ctx, l, 50*time.Millisecond, func() error {
		called = true
		return nil
	}); err != nil || !called {
		t.Fatalf("BlockDo: called=%v err=%v", called, err)
	}
	if cur, _ := l.CurrentOwner(ctx); cur != "" {
		t.Fatal("lock must be released after BlockDo")
	}
}

func TestRandomOwnerTokens(t *testing.T) {
	reg := NewRegistry()
	a := NewMemory(reg, "x", 0, "")
	b := NewMemory(reg, "x", 0, "")
	if a.Owner() == "" || a.Owner() == b.Owner() {
		t.Fatalf("owner tokens must be random and distinct: %q vs %q", a.Owner(), b.Owner())
	}
}
