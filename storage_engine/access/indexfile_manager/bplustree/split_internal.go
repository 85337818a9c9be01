package bplus

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// splitInternal is splitLeaf for internal pages, except the first entry that does
// not stay left moves up instead of right: its child becomes the new page's p0
// and its key becomes the separator handed to the parent.
func (ins *inserter) splitInternal(pageID int64, p *internalPage, pos int, entry []byte) (split bool, item InternalItem, err error) {
	newID, err := ins.alloc.AllocatePage(ins.ref, pageID)
	if err != nil {
		return false, InternalItem{}, errors.Wrap(err, "splitInternal: failed to allocate sibling")
	}
	_, np, err := newInternal(ins.cache, newID, p.size())
	if err != nil {
		return false, InternalItem{}, err
	}
	defer func() { release(ins.cache, newID, true, &err) }()

	entries := mergeEntries(p.slotted, pos, entry)
	n := splitPoint(entries, p.capacity())
	promoted := decodeInternalEntry(entries[n])

	fillPage(p.slotted, entries[:n])
	fillPage(np.slotted, entries[n+1:])
	np.setP0(promoted.ChildPageID)

	if err := touch(ins.cache, pageID); err != nil {
		return false, InternalItem{}, err
	}
	if err := touch(ins.cache, newID); err != nil {
		return false, InternalItem{}, err
	}

	if ins.counters != nil {
		ins.counters.internalSplits.Inc()
	}
	ins.logger.Debug("internal split",
		zap.Int64("pageID", pageID),
		zap.Int64("newPageID", newID),
		zap.Int("left", n),
		zap.Int("right", len(entries)-n-1))

	return true, InternalItem{ChildPageID: newID, Key: promoted.Key}, nil
}
