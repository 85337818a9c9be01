package storageengine

import (
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/types"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestParseKeyDesc(t *testing.T) {
	tests := []struct {
		in    string
		parts []types.KeyPart
		err   error
	}{
		{"int", []types.KeyPart{{Type: types.KeyPartInt, Length: 4}}, nil},
		{"string:32, int64", []types.KeyPart{{Type: types.KeyPartVarString, Length: 32}, {Type: types.KeyPartInt, Length: 8}}, nil},
		{"varchar", []types.KeyPart{{Type: types.KeyPartVarString}}, nil},
		{"float", nil, bplus.ErrUnsupportedKeyPart},
		{"string:x", nil, bplus.ErrBadParameter},
	}
	for _, tt := range tests {
		kdesc, err := ParseKeyDesc(tt.in)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("%q: got %v, want %v", tt.in, err, tt.err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if len(kdesc.Parts) != len(tt.parts) {
			t.Fatalf("%q: %d parts", tt.in, len(kdesc.Parts))
		}
		for i := range tt.parts {
			if kdesc.Parts[i] != tt.parts[i] {
				t.Errorf("%q part %d = %+v, want %+v", tt.in, i, kdesc.Parts[i], tt.parts[i])
			}
		}
	}
}

func TestParseKey(t *testing.T) {
	se := openEngine(t, t.TempDir())
	defer se.Close()

	kdesc, _ := ParseKeyDesc("string:16,int")
	if err := se.CreateIndex("people", kdesc); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	key, err := se.ParseKey("people", []string{"ada", "36"})
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if got := bplus.FormatKey(kdesc, key); got != `("ada", 36)` {
		t.Errorf("key = %s", got)
	}
	if _, err := se.ParseKey("people", []string{"ada"}); !errors.Is(err, bplus.ErrBadParameter) {
		t.Errorf("missing part: %v", err)
	}
	if _, err := se.ParseKey("people", []string{"ada", "old"}); !errors.Is(err, bplus.ErrBadParameter) {
		t.Errorf("bad int: %v", err)
	}
}

func TestParseCompOp(t *testing.T) {
	for in, want := range map[string]bplus.CompOp{"eq": bplus.OpEQ, "<": bplus.OpLT, "LE": bplus.OpLE, ">": bplus.OpGT, ">=": bplus.OpGE, "bof": bplus.OpBOF, "EOF": bplus.OpEOF} {
		if got, err := ParseCompOp(in); err != nil || got != want {
			t.Errorf("ParseCompOp(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCompOp("~"); !errors.Is(err, bplus.ErrBadComparisonOperator) {
		t.Errorf("bad op: %v", err)
	}
}
