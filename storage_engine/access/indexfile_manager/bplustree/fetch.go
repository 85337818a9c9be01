package bplus

import (
	"KeyTreeDB/types"
	"bytes"

	"github.com/cockroachdb/errors"
)

/*
Fetch positions a cursor on the first object that satisfies the start condition,
then checks it against the stop condition.

	start op   landing slot (idx from searchLeaf)
	EQ         idx if found, EOS otherwise
	LT         idx-1 if found, idx otherwise
	LE         idx
	GT         idx+1
	GE         idx if found, idx+1 otherwise
	BOF / EOF  first / last slot of the leaf level

A landing slot outside the leaf moves to the neighbouring leaf (prev for -1, next past the end).
No page stays pinned once Fetch returns.
*/

func Fetch(cache PageCache, root int64, kdesc types.KeyDesc, startKey []byte, startOp CompOp, stopKey []byte, stopOp CompOp) (Cursor, error) {
	if err := validateKeyDesc(kdesc); err != nil {
		return eos(), err
	}
	if err := checkCondition(kdesc, startKey, startOp); err != nil {
		return eos(), errors.Wrap(err, "start condition")
	}
	if err := checkCondition(kdesc, stopKey, stopOp); err != nil {
		return eos(), errors.Wrap(err, "stop condition")
	}
	if root < 0 {
		return eos(), errors.Wrapf(ErrBadParameter, "invalid root %d", root)
	}

	var (
		leafID int64
		err    error
	)
	switch startOp {
	case OpBOF:
		leafID, err = firstLeaf(cache, root)
	case OpEOF:
		leafID, err = lastLeaf(cache, root)
	default:
		leafID, err = FindLeaf(cache, root, kdesc, startKey)
	}
	if err != nil {
		return eos(), err
	}

	_, leaf, err := pinLeaf(cache, leafID)
	if err != nil {
		return eos(), err
	}

	var pos int
	switch startOp {
	case OpBOF:
		pos = 0
	case OpEOF:
		pos = leaf.nSlots() - 1
	default:
		found, idx := searchLeaf(leaf, kdesc, startKey)
		switch startOp {
		case OpEQ:
			if !found {
				return eos(), cache.UnpinPage(leafID, false)
			}
			pos = idx
		case OpLT:
			if found {
				pos = idx - 1
			} else {
				pos = idx
			}
		case OpLE:
			pos = idx
		case OpGT:
			pos = idx + 1
		case OpGE:
			if found {
				pos = idx
			} else {
				pos = idx + 1
			}
		}
	}

	leafID, leaf, pos, ok, err := settle(cache, leafID, leaf, pos)
	if err != nil || !ok {
		return eos(), err
	}
	return landCursor(cache, leafID, leaf, pos, kdesc, stopKey, stopOp)
}

// checkCondition validates an operator and, when it needs one, its key.
func checkCondition(kdesc types.KeyDesc, key []byte, op CompOp) error {
	switch op {
	case OpBOF, OpEOF:
		return nil
	case OpEQ, OpLT, OpLE, OpGT, OpGE:
		return validateKey(kdesc, key)
	default:
		return errors.Wrapf(ErrBadComparisonOperator, "operator %d", op)
	}
}

// settle moves an out-of-range slot onto the neighbouring leaf. It takes over the
// caller's pin on leafID and returns with the landing leaf pinned, or with nothing
// pinned (ok=false) when the leaf level runs out.
func settle(cache PageCache, leafID int64, leaf *leafPage, pos int) (int64, *leafPage, int, bool, error) {
	for pos < 0 || pos >= leaf.nSlots() {
		toLeft := pos < 0
		sibID := leaf.next()
		if toLeft {
			sibID = leaf.prev()
		}
		if sibID == types.NilPageID {
			return types.NilPageID, nil, -1, false, cache.UnpinPage(leafID, false)
		}

		_, sib, err := pinLeaf(cache, sibID)
		uerr := cache.UnpinPage(leafID, false)
		if err != nil {
			return types.NilPageID, nil, -1, false, err
		}
		if uerr != nil {
			_ = cache.UnpinPage(sibID, false)
			return types.NilPageID, nil, -1, false, uerr
		}

		leafID, leaf = sibID, sib
		if toLeft {
			pos = leaf.nSlots() - 1
		} else {
			pos = 0
		}
	}
	return leafID, leaf, pos, true, nil
}

// landCursor builds the cursor for slot pos of a pinned leaf and releases the leaf.
func landCursor(cache PageCache, leafID int64, leaf *leafPage, pos int, kdesc types.KeyDesc, stopKey []byte, stopOp CompOp) (Cursor, error) {
	key := bytes.Clone(leaf.key(pos))
	if stopReached(kdesc, key, stopKey, stopOp) {
		return eos(), cache.UnpinPage(leafID, false)
	}

	cur := Cursor{
		State:          CursorOn,
		Leaf:           leafID,
		SlotNo:         pos,
		OidArrayElemNo: 0,
		Key:            key,
		ObjectID:       leaf.objectAt(pos, 0),
	}
	if err := cache.UnpinPage(leafID, false); err != nil {
		return eos(), err
	}
	return cur, nil
}

// stopReached reports whether key lies beyond the stop condition.
func stopReached(kdesc types.KeyDesc, key, stopKey []byte, stopOp CompOp) bool {
	if stopOp == OpBOF || stopOp == OpEOF {
		return false
	}
	switch c := compareKeys(kdesc, key, stopKey); {
	case c == 0:
		return stopOp == OpLT || stopOp == OpGT
	case c < 0:
		return stopOp == OpEQ || stopOp == OpGT || stopOp == OpGE
	default:
		return stopOp == OpEQ || stopOp == OpLT || stopOp == OpLE
	}
}
