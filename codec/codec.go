// Package codec provides value serializers for cachemux.
//
// Values handled by the coordination layer are dynamic, so codecs here work
// on any rather than a concrete type. Numeric values never reach a codec:
// the layer above stores them as ASCII decimal to preserve backend counter
// atomicity (see the repository's value serialization).
package codec

// Codec encodes/decodes arbitrary values to []byte for storage.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}
