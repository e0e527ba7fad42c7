package cachemux

import (
	"context"
	"sort"
	"time"
)

// Batch get/put is shared by the plain and tagged façades as free functions
// over the repository's public single-key operations, so both key routing and
// event emission stay in one place.

func getMany(ctx context.Context, r *Repository, keys []string, defaults map[string]any) (map[string]any, error) {
	r.events.RetrievingMany(r.name, keys, r.tagNames())

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok, err := r.Get(ctx, k)
		if err != nil {
			return out, err
		}
		if ok {
			out[k] = v
		} else if defaults != nil {
			out[k] = defaults[k]
		} else {
			out[k] = nil
		}
	}
	return out, nil
}

func putMany(ctx context.Context, r *Repository, values map[string]any, ttl time.Duration) (bool, error) {
	keys := sortedKeys(values)
	r.events.WritingMany(r.name, keys, int64(ttl/time.Second), r.tagNames())

	if ttl <= 0 {
		// degrade to bulk delete
		all := true
		for _, k := range keys {
			ok, err := r.Forget(ctx, k)
			if err != nil || !ok {
				all = false
			}
		}
		return all, nil
	}

	all := true
	for _, k := range keys {
		ok, err := r.write(ctx, k, values[k], ttl)
		if err != nil || !ok {
			// independent writes: keep going, no rollback
			all = false
		}
	}
	return all, nil
}

func putManyForever(ctx context.Context, r *Repository, values map[string]any) (bool, error) {
	keys := sortedKeys(values)
	r.events.WritingMany(r.name, keys, 0, r.tagNames())

	all := true
	for _, k := range keys {
		ok, err := r.Forever(ctx, k, values[k])
		if err != nil || !ok {
			all = false
		}
	}
	return all, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
