package codec

import "fmt"

// Bytes is an identity codec for []byte values. Encode returns the input
// unchanged; Decode returns the stored bytes as-is. Useful when callers
// already hold raw byte slices and want no transcoding.
type Bytes struct{}

func (Bytes) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("codec: Bytes expects []byte, got %T", v)
	}
	return b, nil
}

func (Bytes) Decode(b []byte) (any, error) { return b, nil }

// String stores values as their UTF-8 bytes and decodes back to string.
// No validation is performed.
type String struct{}

func (String) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("codec: String expects string, got %T", v)
	}
	return []byte(s), nil
}

func (String) Decode(b []byte) (any, error) { return string(b), nil }
