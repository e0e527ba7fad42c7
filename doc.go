// Package cachemux layers tag-based invalidation, distributed mutual
// exclusion, and stale-while-revalidate refresh on top of a pluggable
// key-value backend.
//
// Components:
//   - store.Store: byte store with TTLs (memory, Redis, Ristretto, BigCache)
//     plus optional capabilities (atomic add, native tag flush, locking).
//   - lock.Lock: per-name mutual exclusion; in-process or store-backed.
//   - TagSet: per-tag version ids whose digest prefixes every tagged key;
//     resetting a tag strands old entries without enumerating them.
//   - Repository: the coordinating façade (Get/Put/Remember/Flexible/...),
//     with event emission and numeric-passthrough serialization.
//   - deferred.Executor: runs Flexible's background refreshes, deduplicated
//     per key.
//
// Keys:
//
//	<key>                    - untagged entries
//	<digest>:<key>           - entries under a tag combination
//	tag:<name>:version       - a tag's current version id
//	<key>:created            - a flexible entry's creation record
//	flexible:<key>           - refresh lock for a flexible key
//
// Stale-while-revalidate:
//
//	v, _ := repo.Flexible(ctx, "report", 10*time.Second, time.Minute, build)
//
// returns the cached value immediately, fresh or stale; when stale, build
// runs out-of-band under a per-key lock and at most once at a time.
package cachemux
