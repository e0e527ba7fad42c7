package util

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Digest returns a short stable digest over the given parts, independent of
// their order. Used to derive tag namespaces from version-id combinations.
func Digest(parts []string) string {
	s := make([]string, len(parts))
	copy(s, parts)
	sort.Strings(s)
	joined := strings.Join(s, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum)[:16] // first 16 hex chars
}
