package cachemux

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/cachemux/internal/util"
	st "github.com/unkn0wn-root/cachemux/store"
)

// TagSet maintains per-tag version ids in the backend and derives the
// invalidation namespace for a tag combination. Bumping any one tag's version
// changes the namespace of every combination containing it, making entries
// written under the old namespace unreachable without physical deletion.
type TagSet struct {
	store st.Store
	names []string // normalized
}

// NewTagSet binds a set of tag names to a store. Names are normalized to a
// canonical form (trimmed, lowercased) and deduplicated.
func NewTagSet(s st.Store, names ...string) *TagSet {
	return &TagSet{store: s, names: normalizeTags(names)}
}

func normalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Names returns the normalized tag names.
func (t *TagSet) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func tagVersionKey(name string) string { return "tag:" + name + ":version" }

// TagID returns the stored version id for name, generating and persisting
// (indefinitely) a fresh random id on first use. Version ids are never
// reused; Reset replaces them wholesale.
func (t *TagSet) TagID(ctx context.Context, name string) (string, error) {
	k := tagVersionKey(name)
	raw, ok, err := t.store.Get(ctx, k)
	if err != nil {
		return "", err
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}
	id := newVersionID()
	if _, err := t.store.Put(ctx, k, []byte(id), 0); err != nil {
		return "", err
	}
	return id, nil
}

// TagIDs returns the version id of every tag in the set.
func (t *TagSet) TagIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(t.names))
	for _, n := range t.names {
		id, err := t.TagID(ctx, n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Namespace joins the version ids of all tags in the set, order-independent,
// into a single digest used as a key prefix for entries written under this
// tag combination.
func (t *TagSet) Namespace(ctx context.Context) (string, error) {
	ids, err := t.TagIDs(ctx)
	if err != nil {
		return "", err
	}
	return util.Digest(ids), nil
}

// Reset regenerates the version id of every tag. This is the primary
// invalidation mechanism: O(1), no enumeration of existing entries. Where the
// backend supports native tag deletion the hook is invoked as well, as a
// best-effort physical reclamation.
func (t *TagSet) Reset(ctx context.Context) error {
	for _, n := range t.names {
		ok, err := t.store.Put(ctx, tagVersionKey(n), []byte(newVersionID()), 0)
		if err != nil {
			return fmt.Errorf("cachemux: reset tag %q: %w", n, err)
		}
		if !ok {
			return fmt.Errorf("cachemux: reset tag %q: write rejected", n)
		}
	}
	if f, ok := t.store.(st.TagFlusher); ok {
		_, _ = f.FlushTags(ctx, t.names) // best-effort
	}
	return nil
}

// Flush removes the stored version-id record of every tag, forcing
// regeneration on next access.
func (t *TagSet) Flush(ctx context.Context) error {
	for _, n := range t.names {
		if _, err := t.store.Forget(ctx, tagVersionKey(n)); err != nil {
			return fmt.Errorf("cachemux: flush tag %q: %w", n, err)
		}
	}
	return nil
}

func newVersionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
