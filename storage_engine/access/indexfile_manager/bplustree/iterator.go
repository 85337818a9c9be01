package bplus

import "KeyTreeDB/types"

// Iterator walks a key range with Fetch / FetchNext. It holds no pins, so it can
// stay open across inserts into the same tree.
type Iterator struct {
	tree     *BPlusTree
	startKey []byte
	startOp  CompOp
	stopKey  []byte
	stopOp   CompOp
	cur      Cursor
	started  bool
	err      error
}

// Scan prepares an iterator; nothing is read until the first Next.
// Ascending: Scan(lo, OpGE, hi, OpLE). Descending: Scan(hi, OpLE, lo, OpGE).
func (t *BPlusTree) Scan(startKey []byte, startOp CompOp, stopKey []byte, stopOp CompOp) *Iterator {
	return &Iterator{
		tree:     t,
		startKey: startKey,
		startOp:  startOp,
		stopKey:  stopKey,
		stopOp:   stopOp,
	}
}

// Next advances the iterator. Returns false when exhausted or on error.
func (it *Iterator) Next() bool {
	if it.err != nil || it.cur.State == CursorEOS {
		return false
	}
	if !it.started {
		it.started = true
		it.cur, it.err = it.tree.Fetch(it.startKey, it.startOp, it.stopKey, it.stopOp)
	} else {
		it.cur, it.err = it.tree.FetchNext(it.stopKey, it.nextOp(), it.cur)
	}
	return it.err == nil && it.cur.State == CursorOn
}

// nextOp keeps unbounded scans moving the way they started.
func (it *Iterator) nextOp() CompOp {
	if it.stopOp != OpBOF && it.stopOp != OpEOF {
		return it.stopOp
	}
	switch it.startOp {
	case OpLT, OpLE, OpEOF:
		return OpBOF
	default:
		return OpEOF
	}
}

// Close ends the iteration.
func (it *Iterator) Close() {
	it.cur = eos()
}

// Key returns the current key.
func (it *Iterator) Key() []byte {
	if it.cur.State != CursorOn {
		return nil
	}
	return it.cur.Key
}

// Value returns the current object ID.
func (it *Iterator) Value() types.ObjectID {
	return it.cur.ObjectID
}

func (it *Iterator) Err() error {
	return it.err
}
