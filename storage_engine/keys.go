package storageengine

import (
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/types"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ParseKeyDesc reads a descriptor like "int", "string:32" or "string,int64".
// Without a length, strings may use the whole key.
func ParseKeyDesc(s string) (types.KeyDesc, error) {
	var kdesc types.KeyDesc
	for _, field := range strings.Split(s, ",") {
		name, length, hasLen := strings.Cut(strings.TrimSpace(field), ":")
		var part types.KeyPart
		switch strings.ToLower(name) {
		case "int", "int32":
			part = types.KeyPart{Type: types.KeyPartInt, Length: 4}
		case "int64", "bigint":
			part = types.KeyPart{Type: types.KeyPartInt, Length: 8}
		case "string", "varchar", "varstring":
			part = types.KeyPart{Type: types.KeyPartVarString}
			if hasLen {
				n, err := strconv.Atoi(length)
				if err != nil {
					return types.KeyDesc{}, errors.Wrapf(bplus.ErrBadParameter, "bad string length %q", length)
				}
				part.Length = n
			}
		default:
			return types.KeyDesc{}, errors.Wrapf(bplus.ErrUnsupportedKeyPart, "key part %q", name)
		}
		kdesc.Parts = append(kdesc.Parts, part)
	}
	return kdesc, nil
}

// ParseKey builds a key of index from its textual parts, one per key part.
func (se *StorageEngine) ParseKey(index string, fields []string) ([]byte, error) {
	tree, err := se.Index(index)
	if err != nil {
		return nil, err
	}
	kdesc := tree.KeyDesc()
	if len(fields) != len(kdesc.Parts) {
		return nil, errors.Wrapf(bplus.ErrBadParameter, "index '%s' takes %d key parts, got %d", index, len(kdesc.Parts), len(fields))
	}

	values := make([]any, len(fields))
	for i, part := range kdesc.Parts {
		if part.Type != types.KeyPartInt {
			values[i] = fields[i]
			continue
		}
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(bplus.ErrBadParameter, "part %d: %q is not an integer", i, fields[i])
		}
		values[i] = v
	}
	return bplus.EncodeKey(kdesc, values...)
}

// ParseCompOp maps "eq", "<=", "bof" and friends to an operator.
func ParseCompOp(s string) (bplus.CompOp, error) {
	switch strings.ToLower(s) {
	case "eq", "=", "==":
		return bplus.OpEQ, nil
	case "lt", "<":
		return bplus.OpLT, nil
	case "le", "<=":
		return bplus.OpLE, nil
	case "gt", ">":
		return bplus.OpGT, nil
	case "ge", ">=":
		return bplus.OpGE, nil
	case "bof":
		return bplus.OpBOF, nil
	case "eof":
		return bplus.OpEOF, nil
	default:
		return bplus.OpInvalid, errors.Wrapf(bplus.ErrBadComparisonOperator, "%q", s)
	}
}
