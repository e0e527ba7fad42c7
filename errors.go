package cachemux

import (
	"fmt"
)

// ProducerError wraps a failure raised by a caller-supplied producer inside
// Remember or Flexible, carrying the cache key for context. The underlying
// cause is reachable with errors.Unwrap / errors.Is.
type ProducerError struct {
	Key string
	Err error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("cachemux: producer for %q failed: %v", e.Key, e.Err)
}

func (e *ProducerError) Unwrap() error { return e.Err }
