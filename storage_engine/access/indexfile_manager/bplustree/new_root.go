package bplus

import (
	"KeyTreeDB/types"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// rootInsert grows the tree by one level after the root split, without moving the root:
// the root's current content is copied to a new page, and the root page is rewritten
// as an internal page with p0 = that copy and a single entry for item.
func (ins *inserter) rootInsert(root int64, item InternalItem) (err error) {
	newID, err := ins.alloc.AllocatePage(ins.ref, root)
	if err != nil {
		return errors.Wrap(err, "rootInsert: failed to allocate page")
	}

	rootPg, rootTp, err := pinPage(ins.cache, root)
	if err != nil {
		return err
	}
	defer func() { release(ins.cache, root, true, &err) }()

	newPg, err := ins.cache.FetchNewPage(newID)
	if err != nil {
		return errors.Wrapf(err, "rootInsert: failed to pin new page %d", newID)
	}
	defer func() { release(ins.cache, newID, true, &err) }()

	copy(newPg.Data, rootPg.Data)
	moved := slotted{data: newPg.Data}
	moved.setSelfID(newID)
	moved.setRoot(false)

	// the root was a leaf: its right sibling (the split's new page) still points back at the root page
	if _, wasLeaf := rootTp.(*leafPage); wasLeaf && item.ChildPageID != types.NilPageID {
		_, sib, err := pinLeaf(ins.cache, item.ChildPageID)
		if err != nil {
			return errors.Wrap(err, "rootInsert: failed to relink leaf")
		}
		sib.setPrev(newID)
		terr := touch(ins.cache, item.ChildPageID)
		if uerr := ins.cache.UnpinPage(item.ChildPageID, true); terr == nil {
			terr = uerr
		}
		if terr != nil {
			return terr
		}
	}

	size := slotted{data: rootPg.Data}.size()
	nr := &internalPage{initPage(rootPg.Data, root, kindInternal, size, true)}
	nr.setP0(newID)
	placeEntry(nr.slotted, 0, encodeInternalEntry(item.ChildPageID, item.Key))

	if err := touch(ins.cache, newID); err != nil {
		return err
	}
	if err := touch(ins.cache, root); err != nil {
		return err
	}

	if ins.counters != nil {
		ins.counters.rootGrowths.Inc()
	}
	ins.logger.Debug("root growth",
		zap.Int64("root", root),
		zap.Int64("movedTo", newID),
		zap.Int64("sibling", item.ChildPageID))
	return nil
}
