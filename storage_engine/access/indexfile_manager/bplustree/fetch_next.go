package bplus

import (
	"KeyTreeDB/types"

	"github.com/cockroachdb/errors"
)

// FetchNext advances a cursor one object in the direction implied by the stop
// condition: LT/LE (and EOF) walk towards larger keys, GT/GE (and BOF) towards
// smaller ones. An EQ stop has nothing after the first match, and an EOS cursor stays EOS.
//
// The cursor's slot number is only a hint. Inserts since the last call may have
// shifted or split the leaf, so the position is re-established from the cursor key first.
func FetchNext(cache PageCache, root int64, kdesc types.KeyDesc, stopKey []byte, stopOp CompOp, current Cursor) (Cursor, error) {
	if err := validateKeyDesc(kdesc); err != nil {
		return eos(), err
	}

	switch current.State {
	case CursorEOS:
		return current, nil
	case CursorOn:
		if err := validateKey(kdesc, current.Key); err != nil {
			return eos(), errors.Wrap(ErrBadCursor, err.Error())
		}
	default:
		return eos(), errors.Wrapf(ErrBadCursor, "cursor state %d", current.State)
	}

	if err := checkCondition(kdesc, stopKey, stopOp); err != nil {
		return eos(), errors.Wrap(err, "stop condition")
	}

	var forward bool
	switch stopOp {
	case OpEQ:
		return eos(), nil
	case OpLT, OpLE, OpEOF:
		forward = true
	case OpGT, OpGE, OpBOF:
		forward = false
	}

	leafID, leaf, idx, found, err := resync(cache, root, kdesc, current)
	if err != nil {
		return eos(), err
	}

	pos := idx + 1
	if !forward {
		if found {
			pos = idx - 1
		} else {
			pos = idx
		}
	}

	leafID, leaf, pos, ok, err := settle(cache, leafID, leaf, pos)
	if err != nil || !ok {
		return eos(), err
	}
	return landCursor(cache, leafID, leaf, pos, kdesc, stopKey, stopOp)
}

// resync returns the cursor key's position with its leaf pinned. If the slot the
// cursor remembers no longer holds its key, the key is searched again from the root.
// When the key itself is gone, idx is the largest slot below it (found=false).
func resync(cache PageCache, root int64, kdesc types.KeyDesc, cur Cursor) (int64, *leafPage, int, bool, error) {
	_, leaf, err := pinLeaf(cache, cur.Leaf)
	switch {
	case err == nil:
		if cur.SlotNo >= 0 && cur.SlotNo < leaf.nSlots() &&
			compareKeys(kdesc, leaf.key(cur.SlotNo), cur.Key) == 0 {
			return cur.Leaf, leaf, cur.SlotNo, true, nil
		}
		if err := cache.UnpinPage(cur.Leaf, false); err != nil {
			return types.NilPageID, nil, -1, false, err
		}
	case errors.Is(err, ErrBadBtreePage):
		// the page stopped being a leaf (root growth); fall through to a fresh descent
	default:
		return types.NilPageID, nil, -1, false, err
	}

	leafID, err := FindLeaf(cache, root, kdesc, cur.Key)
	if err != nil {
		return types.NilPageID, nil, -1, false, err
	}
	_, leaf, err = pinLeaf(cache, leafID)
	if err != nil {
		return types.NilPageID, nil, -1, false, err
	}
	found, idx := searchLeaf(leaf, kdesc, cur.Key)
	return leafID, leaf, idx, found, nil
}
