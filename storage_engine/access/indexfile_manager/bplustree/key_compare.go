package bplus

import (
	"KeyTreeDB/types"
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Keys are the concatenation of their parts:
//   int       → 4 or 8 bytes little endian, ordered as signed integers
//   varstring → uint16 length + bytes, ordered bytewise (a prefix sorts first)

// validateKeyDesc rejects descriptors the comparator cannot order.
func validateKeyDesc(kdesc types.KeyDesc) error {
	if len(kdesc.Parts) == 0 {
		return errors.Wrap(ErrBadParameter, "key descriptor has no parts")
	}
	for i, part := range kdesc.Parts {
		switch part.Type {
		case types.KeyPartInt:
			if part.Length != 4 && part.Length != 8 {
				return errors.Wrapf(ErrUnsupportedKeyPart, "part %d: int of %d bytes", i, part.Length)
			}
		case types.KeyPartVarString:
			if part.Length < 0 || part.Length > MaxKeyLen {
				return errors.Wrapf(ErrBadParameter, "part %d: varstring max length %d", i, part.Length)
			}
		default:
			return errors.Wrapf(ErrUnsupportedKeyPart, "part %d: %s", i, part.Type)
		}
	}
	return nil
}

// validateKey checks that key splits exactly into the descriptor's parts.
func validateKey(kdesc types.KeyDesc, key []byte) error {
	if key == nil {
		return errors.Wrap(ErrBadParameter, "nil key")
	}
	if len(key) > MaxKeyLen {
		return errors.Wrapf(ErrKeyTooLarge, "key of %d bytes, max %d", len(key), MaxKeyLen)
	}
	rest := key
	for i, part := range kdesc.Parts {
		n, err := partLen(part, rest)
		if err != nil {
			return errors.Wrapf(err, "part %d", i)
		}
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return errors.Wrapf(ErrBadParameter, "%d trailing key bytes", len(rest))
	}
	return nil
}

func partLen(part types.KeyPart, b []byte) (int, error) {
	switch part.Type {
	case types.KeyPartInt:
		if len(b) < part.Length {
			return 0, errors.Wrap(ErrBadParameter, "short int part")
		}
		return part.Length, nil
	case types.KeyPartVarString:
		if len(b) < 2 {
			return 0, errors.Wrap(ErrBadParameter, "short varstring length")
		}
		n := int(binary.LittleEndian.Uint16(b))
		if len(b) < 2+n {
			return 0, errors.Wrap(ErrBadParameter, "short varstring body")
		}
		return 2 + n, nil
	default:
		return 0, ErrUnsupportedKeyPart
	}
}

// compareKeys orders two keys of the same descriptor: -1, 0 or +1.
func compareKeys(kdesc types.KeyDesc, a, b []byte) int {
	for _, part := range kdesc.Parts {
		switch part.Type {
		case types.KeyPartInt:
			if len(a) < part.Length || len(b) < part.Length {
				return bytes.Compare(a, b)
			}
			var x, y int64
			if part.Length == 4 {
				x = int64(int32(binary.LittleEndian.Uint32(a)))
				y = int64(int32(binary.LittleEndian.Uint32(b)))
			} else {
				x = int64(binary.LittleEndian.Uint64(a))
				y = int64(binary.LittleEndian.Uint64(b))
			}
			if x != y {
				if x < y {
					return -1
				}
				return 1
			}
			a, b = a[part.Length:], b[part.Length:]

		case types.KeyPartVarString:
			na, errA := partLen(part, a)
			nb, errB := partLen(part, b)
			if errA != nil || errB != nil {
				return bytes.Compare(a, b)
			}
			if c := bytes.Compare(a[2:na], b[2:nb]); c != 0 {
				return c
			}
			a, b = a[na:], b[nb:]
		}
	}
	return 0
}

// EncodeKey builds a key from Go values, one per descriptor part.
// Int parts take int, int32 or int64; varstring parts take string or []byte.
func EncodeKey(kdesc types.KeyDesc, values ...any) ([]byte, error) {
	if err := validateKeyDesc(kdesc); err != nil {
		return nil, err
	}
	if len(values) != len(kdesc.Parts) {
		return nil, errors.Wrapf(ErrBadParameter, "%d values for %d key parts", len(values), len(kdesc.Parts))
	}

	var out []byte
	for i, part := range kdesc.Parts {
		switch part.Type {
		case types.KeyPartInt:
			var v int64
			switch x := values[i].(type) {
			case int:
				v = int64(x)
			case int32:
				v = int64(x)
			case int64:
				v = x
			default:
				return nil, errors.Wrapf(ErrBadParameter, "part %d: want integer, got %T", i, values[i])
			}
			if part.Length == 4 {
				if v < -1<<31 || v > 1<<31-1 {
					return nil, errors.Wrapf(ErrBadParameter, "part %d: %d overflows int32", i, v)
				}
				out = binary.LittleEndian.AppendUint32(out, uint32(int32(v)))
			} else {
				out = binary.LittleEndian.AppendUint64(out, uint64(v))
			}

		case types.KeyPartVarString:
			var s []byte
			switch x := values[i].(type) {
			case string:
				s = []byte(x)
			case []byte:
				s = x
			default:
				return nil, errors.Wrapf(ErrBadParameter, "part %d: want string, got %T", i, values[i])
			}
			if part.Length > 0 && len(s) > part.Length {
				return nil, errors.Wrapf(ErrKeyTooLarge, "part %d: %d bytes, max %d", i, len(s), part.Length)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(len(s)))
			out = append(out, s...)
		}
	}
	if len(out) > MaxKeyLen {
		return nil, errors.Wrapf(ErrKeyTooLarge, "key of %d bytes, max %d", len(out), MaxKeyLen)
	}
	return out, nil
}

// IntKey is the key of a single 4-byte int column.
func IntKey(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

// IntKeyDesc describes a single 4-byte int column.
func IntKeyDesc() types.KeyDesc {
	return types.KeyDesc{Parts: []types.KeyPart{{Type: types.KeyPartInt, Length: 4}}}
}

// DecodeKey is the inverse of EncodeKey: int parts come back as int64, varstrings as string.
func DecodeKey(kdesc types.KeyDesc, key []byte) ([]any, error) {
	if err := validateKey(kdesc, key); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(kdesc.Parts))
	for _, part := range kdesc.Parts {
		n, _ := partLen(part, key)
		switch part.Type {
		case types.KeyPartInt:
			if part.Length == 4 {
				out = append(out, int64(int32(binary.LittleEndian.Uint32(key))))
			} else {
				out = append(out, int64(binary.LittleEndian.Uint64(key)))
			}
		case types.KeyPartVarString:
			out = append(out, string(key[2:n]))
		}
		key = key[n:]
	}
	return out, nil
}

// FormatKey renders a key for dumps and logs.
func FormatKey(kdesc types.KeyDesc, key []byte) string {
	vals, err := DecodeKey(kdesc, key)
	if err != nil {
		return fmt.Sprintf("%x", key)
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			parts[i] = fmt.Sprintf("%q", s)
		} else {
			parts[i] = fmt.Sprint(v)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
