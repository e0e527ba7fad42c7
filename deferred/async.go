package deferred

import (
	"context"
	"sync"
)

type job struct {
	fn  func(ctx context.Context)
	tag string
}

// Async is a bounded worker-pool Executor. Submissions beyond queue capacity
// are dropped rather than blocking the caller; a dropped refresh is safe
// because the next staleness detection re-submits it.
type Async struct {
	q    chan job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	pending map[string]struct{}
}

var _ Executor = (*Async)(nil)

// NewAsync starts workers goroutines draining a queue of qlen submissions.
func NewAsync(workers, qlen int) *Async {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	e := &Async{
		q:       make(chan job, qlen),
		pending: make(map[string]struct{}),
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer e.wg.Done()
			for j := range e.q {
				j.fn(context.Background())
				e.settle(j.tag)
			}
		}()
	}
	return e
}

func (e *Async) Execute(fn func(ctx context.Context), tag string) {
	if tag != "" {
		e.mu.Lock()
		if _, dup := e.pending[tag]; dup {
			e.mu.Unlock()
			return
		}
		e.pending[tag] = struct{}{}
		e.mu.Unlock()
	}

	select {
	case e.q <- job{fn: fn, tag: tag}:
	default: // queue full; drop
		e.settle(tag)
	}
}

func (e *Async) settle(tag string) {
	if tag == "" {
		return
	}
	e.mu.Lock()
	delete(e.pending, tag)
	e.mu.Unlock()
}

// Close stops accepting work implicitly (submissions to a closed queue would
// panic, so call Close only after all producers have stopped) and waits for
// queued functions to finish.
func (e *Async) Close() {
	e.once.Do(func() {
		close(e.q)
		e.wg.Wait()
	})
}
