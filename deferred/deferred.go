// Package deferred schedules work outside the request path.
//
// The cache's stale-while-revalidate path hands refresh closures to an
// Executor; the only requirement is "eventually, and at most once per dedupe
// tag at a time", not immediacy.
package deferred

import "context"

// Executor runs fn out-of-band. A non-empty tag deduplicates: while a
// function submitted under tag is queued or running, further submissions
// under the same tag are dropped.
type Executor interface {
	Execute(fn func(ctx context.Context), tag string)
}

// Sync runs submitted functions inline on the calling goroutine. Dedupe tags
// are ignored (nothing is ever concurrently pending). Intended for tests and
// single-threaded tooling.
type Sync struct{}

var _ Executor = Sync{}

func (Sync) Execute(fn func(ctx context.Context), _ string) {
	fn(context.Background())
}
