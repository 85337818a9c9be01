package bplus

import (
	"KeyTreeDB/types"
	"bytes"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// splitLeaf makes room for entry at logical position pos of a full leaf by moving
// the upper part of the leaf to a new right sibling. The new sibling's first key
// goes up to the parent.
func (ins *inserter) splitLeaf(pageID int64, p *leafPage, pos int, entry []byte) (split bool, item InternalItem, err error) {
	newID, err := ins.alloc.AllocatePage(ins.ref, pageID)
	if err != nil {
		return false, InternalItem{}, errors.Wrap(err, "splitLeaf: failed to allocate right sibling")
	}
	_, np, err := newLeaf(ins.cache, newID, p.size(), false)
	if err != nil {
		return false, InternalItem{}, err
	}
	defer func() { release(ins.cache, newID, true, &err) }()

	entries := mergeEntries(p.slotted, pos, entry)
	n := splitPoint(entries, p.capacity())
	fillPage(p.slotted, entries[:n])
	fillPage(np.slotted, entries[n:])

	// p <-> np <-> oldNext
	oldNext := p.next()
	np.setNext(oldNext)
	np.setPrev(pageID)
	p.setNext(newID)
	if oldNext != types.NilPageID {
		_, sib, err := pinLeaf(ins.cache, oldNext)
		if err != nil {
			return false, InternalItem{}, errors.Wrap(err, "splitLeaf: failed to relink right neighbour")
		}
		sib.setPrev(newID)
		if err := touch(ins.cache, oldNext); err != nil {
			_ = ins.cache.UnpinPage(oldNext, true)
			return false, InternalItem{}, err
		}
		if err := ins.cache.UnpinPage(oldNext, true); err != nil {
			return false, InternalItem{}, err
		}
	}

	if err := touch(ins.cache, pageID); err != nil {
		return false, InternalItem{}, err
	}
	if err := touch(ins.cache, newID); err != nil {
		return false, InternalItem{}, err
	}

	if ins.counters != nil {
		ins.counters.leafSplits.Inc()
	}
	ins.logger.Debug("leaf split",
		zap.Int64("pageID", pageID),
		zap.Int64("newPageID", newID),
		zap.Int("left", n),
		zap.Int("right", len(entries)-n))

	return true, InternalItem{ChildPageID: newID, Key: bytes.Clone(np.key(0))}, nil
}

// mergeEntries copies a page's entries in slot order with entry spliced in at pos.
func mergeEntries(s slotted, pos int, entry []byte) [][]byte {
	n := s.nSlots()
	out := make([][]byte, 0, n+1)
	for i := 0; i < n; i++ {
		if i == pos {
			out = append(out, entry)
		}
		out = append(out, s.rawEntry(i))
	}
	if pos >= n {
		out = append(out, entry)
	}
	return out
}

// splitPoint is how many entries stay on the left page: entries are taken in order
// until the occupied bytes (entry plus slot) pass half the page capacity. At least
// one entry is always left over for the right side.
func splitPoint(entries [][]byte, capacity int) int {
	half := capacity / 2
	sum, n := 0, 0
	for n < len(entries) && sum <= half {
		sum += len(entries[n]) + SlotSize
		n++
	}
	if n == len(entries) {
		n--
	}
	return n
}

// fillPage replaces a page's entries with entries, in order.
func fillPage(s slotted, entries [][]byte) {
	s.resetData()
	for i, e := range entries {
		s.setSlot(i, s.appendEntry(e))
	}
	s.setNSlots(len(entries))
}
