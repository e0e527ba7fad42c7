// Package slogevents logs cache events through log/slog, with sampling for
// the hot read path.
package slogevents

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cachemux"
)

type Options struct {
	// Sampling to avoid floods on the read path; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
	// LogValues includes cached values in hit/write records. Off by
	// default: values may be large or sensitive.
	LogValues bool
}

type Events struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ cachemux.Events = (*Events)(nil)

func New(l *slog.Logger, opts Options) *Events {
	return &Events{l: l, opts: opts}
}

func (e *Events) redact(k string) string {
	if e.opts.Redact != nil {
		return e.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (e *Events) common(store, key string, tags []string) []any {
	out := []any{"store", store, "key", e.redact(key)}
	if len(tags) > 0 {
		out = append(out, "tags", tags)
	}
	return out
}

func (e *Events) Retrieving(store, key string, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Debug("cache.retrieving", e.common(store, key, tags)...)
}

func (e *Events) Hit(store, key string, value any, tags []string) {
	if e.l == nil || !sample(e.opts.HitEvery, &e.hitCtr) {
		return
	}
	args := e.common(store, key, tags)
	if e.opts.LogValues {
		args = append(args, "value", value)
	}
	e.l.Debug("cache.hit", args...)
}

func (e *Events) Missed(store, key string, tags []string) {
	if e.l == nil || !sample(e.opts.MissEvery, &e.missCtr) {
		return
	}
	e.l.Debug("cache.missed", e.common(store, key, tags)...)
}

func (e *Events) RetrievingMany(store string, keys []string, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Debug("cache.retrieving_many", "store", store, "count", len(keys))
}

func (e *Events) Writing(store, key string, value any, seconds int64, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Debug("cache.writing", append(e.common(store, key, tags), "seconds", seconds)...)
}

func (e *Events) Written(store, key string, value any, seconds int64, tags []string) {
	if e.l == nil {
		return
	}
	args := append(e.common(store, key, tags), "seconds", seconds)
	if e.opts.LogValues {
		args = append(args, "value", value)
	}
	e.l.Debug("cache.written", args...)
}

func (e *Events) WriteFailed(store, key string, value any, seconds int64, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Warn("cache.write_failed", append(e.common(store, key, tags), "seconds", seconds)...)
}

func (e *Events) WritingMany(store string, keys []string, seconds int64, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Debug("cache.writing_many", "store", store, "count", len(keys), "seconds", seconds)
}

func (e *Events) Forgetting(store, key string, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Debug("cache.forgetting", e.common(store, key, tags)...)
}

func (e *Events) Forgot(store, key string, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Debug("cache.forgot", e.common(store, key, tags)...)
}

func (e *Events) ForgetFailed(store, key string, tags []string) {
	if e.l == nil {
		return
	}
	e.l.Warn("cache.forget_failed", e.common(store, key, tags)...)
}
