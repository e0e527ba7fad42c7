package cachemux

import (
	"bytes"
	"math"
	"strconv"

	"github.com/unkn0wn-root/cachemux/codec"
)

// Numeric values pass through as ASCII decimal instead of the codec. This
// preserves backend-native Increment/Decrement atomicity (Redis INCRBY works
// on plain integer strings) and avoids needless encode/decode on counters.
//
// The cost is a small decode ambiguity: a codec payload that happens to look
// like a decimal number would decode as one. With the shipped codecs that
// cannot occur for a single top-level value, since finite numbers never reach
// the codec in the first place and non-finite floats encode as typed binary.

func encodeValue(cd codec.Codec, v any) ([]byte, error) {
	switch n := v.(type) {
	case int:
		return strconv.AppendInt(nil, int64(n), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(n), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(n), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(n), 10), nil
	case int64:
		return strconv.AppendInt(nil, n, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(n), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(n), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(n), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(n), 10), nil
	case uint64:
		return strconv.AppendUint(nil, n, 10), nil
	case float32:
		return encodeFloat(cd, float64(n))
	case float64:
		return encodeFloat(cd, n)
	}
	return cd.Encode(v)
}

func encodeFloat(cd codec.Codec, f float64) ([]byte, error) {
	// NaN and the infinities have no decimal rendering; the codec keeps them
	// typed.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cd.Encode(f)
	}
	b := strconv.AppendFloat(nil, f, 'g', -1, 64)
	// Whole floats render without a point ("2"), which would decode as int64.
	// Force a float marker so the stored type survives the round trip.
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, '.', '0')
	}
	return b, nil
}

func decodeValue(cd codec.Codec, b []byte) (any, error) {
	if len(b) > 0 && looksNumeric(b) {
		s := string(b)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	return cd.Decode(b)
}

func looksNumeric(b []byte) bool {
	for i, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c == '-' || c == '+':
			// leading sign, or an exponent sign as in "1e-07"
			if i != 0 && b[i-1] != 'e' && b[i-1] != 'E' {
				return false
			}
		case c == '.' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return true
}
