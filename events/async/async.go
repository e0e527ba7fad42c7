// Package async decouples event delivery from cache hot paths: events are
// queued to a small worker pool and dropped under backpressure rather than
// blocking the caller.
package async

import (
	"sync"

	"github.com/unkn0wn-root/cachemux"
)

type Events struct {
	inner cachemux.Events
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ cachemux.Events = (*Events)(nil)

func New(inner cachemux.Events, workers, qlen int) *Events {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	e := &Events{inner: inner, q: make(chan func(), qlen)}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer e.wg.Done()
			for f := range e.q {
				f()
			}
		}()
	}
	return e
}

func (e *Events) Close() {
	e.once.Do(func() {
		close(e.q)
		e.wg.Wait()
	})
}

func (e *Events) try(f func()) {
	select {
	case e.q <- f:
	default: // drop
	}
}

func (e *Events) Retrieving(s, k string, t []string) { e.try(func() { e.inner.Retrieving(s, k, t) }) }
func (e *Events) Hit(s, k string, v any, t []string) { e.try(func() { e.inner.Hit(s, k, v, t) }) }
func (e *Events) Missed(s, k string, t []string)     { e.try(func() { e.inner.Missed(s, k, t) }) }
func (e *Events) RetrievingMany(s string, ks, t []string) {
	e.try(func() { e.inner.RetrievingMany(s, ks, t) })
}
func (e *Events) Writing(s, k string, v any, sec int64, t []string) {
	e.try(func() { e.inner.Writing(s, k, v, sec, t) })
}
func (e *Events) Written(s, k string, v any, sec int64, t []string) {
	e.try(func() { e.inner.Written(s, k, v, sec, t) })
}
func (e *Events) WriteFailed(s, k string, v any, sec int64, t []string) {
	e.try(func() { e.inner.WriteFailed(s, k, v, sec, t) })
}
func (e *Events) WritingMany(s string, ks []string, sec int64, t []string) {
	e.try(func() { e.inner.WritingMany(s, ks, sec, t) })
}
func (e *Events) Forgetting(s, k string, t []string)   { e.try(func() { e.inner.Forgetting(s, k, t) }) }
func (e *Events) Forgot(s, k string, t []string)       { e.try(func() { e.inner.Forgot(s, k, t) }) }
func (e *Events) ForgetFailed(s, k string, t []string) { e.try(func() { e.inner.ForgetFailed(s, k, t) }) }
