package deferred

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAsyncRunsSubmissions(t *testing.T) {
	e := NewAsync(2, 16)

	var n atomic.Int64
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		e.Execute(func(context.Context) {
			n.Add(1)
			wg.Done()
		}, "") // untagged: never deduped
	}
	wg.Wait()
	e.Close()

	if n.Load() != 4 {
		t.Fatalf("ran %d, want 4", n.Load())
	}
}

func TestAsyncDedupesPendingTag(t *testing.T) {
	e := NewAsync(1, 16)
	defer e.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int64

	e.Execute(func(context.Context) {
		close(started)
		<-release
		runs.Add(1)
	}, "refresh:k")
	<-started

	// same tag while the first is still running: dropped
	e.Execute(func(context.Context) { runs.Add(1) }, "refresh:k")
	// different tag: accepted
	done := make(chan struct{})
	e.Execute(func(context.Context) { close(done) }, "refresh:other")

	close(release)
	<-done
	time.Sleep(20 * time.Millisecond) // let any stray duplicate drain

	if got := runs.Load(); got != 1 {
		t.Fatalf("tagged function ran %d times, want 1", got)
	}
}

func TestAsyncTagReusableAfterSettle(t *testing.T) {
	e := NewAsync(1, 16)
	defer e.Close()

	var runs atomic.Int64
	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		e.Execute(func(context.Context) {
			runs.Add(1)
			close(done)
		}, "refresh:k")
		<-done
	}
	if runs.Load() != 2 {
		t.Fatalf("settled tag must be reusable, ran %d", runs.Load())
	}
}

func TestSyncRunsInline(t *testing.T) {
	ran := false
	Sync{}.Execute(func(context.Context) { ran = true }, "any")
	if !ran {
		t.Fatal("Sync must run inline")
	}
}
