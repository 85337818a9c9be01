package bplus

import (
	"KeyTreeDB/types"
	"testing"

	"github.com/cockroachdb/errors"
)

func compositeKeyDesc() types.KeyDesc {
	return types.KeyDesc{Parts: []types.KeyPart{
		{Type: types.KeyPartVarString, Length: 32},
		{Type: types.KeyPartInt, Length: 8},
	}}
}

func mustKey(t *testing.T, kdesc types.KeyDesc, values ...any) []byte {
	t.Helper()
	k, err := EncodeKey(kdesc, values...)
	if err != nil {
		t.Fatalf("EncodeKey(%v): %v", values, err)
	}
	return k
}

func TestCompareIntKeys(t *testing.T) {
	kd := IntKeyDesc()
	tests := []struct {
		a, b int32
		want int
	}{
		{1, 2, -1},
		{2, 1, 1},
		{7, 7, 0},
		{-5, 3, -1},
		{-1, -2, 1},
		{-2147483648, 2147483647, -1},
	}
	for _, tt := range tests {
		if got := compareKeys(kd, IntKey(tt.a), IntKey(tt.b)); got != tt.want {
			t.Errorf("compare(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareCompositeKeys(t *testing.T) {
	kd := compositeKeyDesc()
	tests := []struct {
		name string
		a, b []byte
		want int
	}{
		{"string decides", mustKey(t, kd, "apple", 9), mustKey(t, kd, "banana", 1), -1},
		{"prefix sorts first", mustKey(t, kd, "app", 9), mustKey(t, kd, "apple", 1), -1},
		{"int breaks tie", mustKey(t, kd, "pear", int64(-3)), mustKey(t, kd, "pear", 2), -1},
		{"equal", mustKey(t, kd, "pear", 2), mustKey(t, kd, "pear", 2), 0},
		{"empty string", mustKey(t, kd, "", 100), mustKey(t, kd, "a", 0), -1},
	}
	for _, tt := range tests {
		if got := compareKeys(kd, tt.a, tt.b); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
		if got := compareKeys(kd, tt.b, tt.a); got != -tt.want {
			t.Errorf("%s reversed: got %d, want %d", tt.name, got, -tt.want)
		}
	}
}

func TestEncodeDecodeKey(t *testing.T) {
	kd := compositeKeyDesc()
	key := mustKey(t, kd, "order-17", int64(1)<<40)
	vals, err := DecodeKey(kd, key)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if vals[0] != "order-17" || vals[1] != int64(1)<<40 {
		t.Errorf("DecodeKey = %v", vals)
	}
	if got := FormatKey(kd, key); got != `("order-17", 1099511627776)` {
		t.Errorf("FormatKey = %s", got)
	}
	if got := FormatKey(IntKeyDesc(), IntKey(-4)); got != "-4" {
		t.Errorf("FormatKey int = %s", got)
	}
}

func TestKeyValidation(t *testing.T) {
	tests := []struct {
		name  string
		kdesc types.KeyDesc
		vals  []any
		want  error
	}{
		{"no parts", types.KeyDesc{}, nil, ErrBadParameter},
		{"odd int width", types.KeyDesc{Parts: []types.KeyPart{{Type: types.KeyPartInt, Length: 2}}}, []any{1}, ErrUnsupportedKeyPart},
		{"unknown part", types.KeyDesc{Parts: []types.KeyPart{{Type: types.KeyPartInvalid}}}, []any{1}, ErrUnsupportedKeyPart},
		{"wrong arity", IntKeyDesc(), []any{1, 2}, ErrBadParameter},
		{"wrong type", IntKeyDesc(), []any{"x"}, ErrBadParameter},
		{"int32 overflow", IntKeyDesc(), []any{int64(1) << 40}, ErrBadParameter},
		{"string too long", compositeKeyDesc(), []any{string(make([]byte, 33)), 1}, ErrKeyTooLarge},
	}
	for _, tt := range tests {
		if _, err := EncodeKey(tt.kdesc, tt.vals...); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}

	if err := validateKey(IntKeyDesc(), []byte{1, 2, 3}); !errors.Is(err, ErrBadParameter) {
		t.Errorf("short key: got %v", err)
	}
	if err := validateKey(IntKeyDesc(), []byte{1, 2, 3, 4, 5}); !errors.Is(err, ErrBadParameter) {
		t.Errorf("trailing bytes: got %v", err)
	}
	if err := validateKey(IntKeyDesc(), nil); !errors.Is(err, ErrBadParameter) {
		t.Errorf("nil key: got %v", err)
	}
}
