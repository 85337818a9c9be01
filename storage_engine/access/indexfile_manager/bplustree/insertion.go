package bplus

import (
	"KeyTreeDB/types"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// inserter carries what one Insert call needs through the recursion.
type inserter struct {
	cache    PageCache
	alloc    PageAllocator
	ref      types.CatalogRef
	kdesc    types.KeyDesc
	logger   *zap.Logger
	counters *treeCounters
}

// Insert adds key → oid to the tree rooted at root. New pages come from the
// allocator under ref. A key already present fails with ErrDuplicateKey and
// leaves the tree untouched. The root page ID never changes.
func Insert(cache PageCache, alloc PageAllocator, ref types.CatalogRef, root int64, kdesc types.KeyDesc, key []byte, oid types.ObjectID) error {
	ins := &inserter{cache: cache, alloc: alloc, ref: ref, kdesc: kdesc, logger: zap.NewNop()}
	return ins.run(root, key, oid)
}

func (ins *inserter) run(root int64, key []byte, oid types.ObjectID) error {
	if err := validateKeyDesc(ins.kdesc); err != nil {
		return err
	}
	if err := validateKey(ins.kdesc, key); err != nil {
		return err
	}
	if root < 0 {
		return errors.Wrapf(ErrBadParameter, "invalid root %d", root)
	}

	split, item, err := ins.insert(root, key, oid)
	if err != nil {
		return err
	}
	if split {
		if err := ins.rootInsert(root, item); err != nil {
			return errors.Wrap(err, "root growth failed")
		}
	}
	if ins.counters != nil {
		ins.counters.inserts.Inc()
	}
	return nil
}

// insert places key in the subtree at pageID. When the page had to split,
// it returns the item the parent must absorb.
func (ins *inserter) insert(pageID int64, key []byte, oid types.ObjectID) (split bool, item InternalItem, err error) {
	_, tp, err := pinPage(ins.cache, pageID)
	if err != nil {
		return false, InternalItem{}, err
	}
	dirty := false
	defer func() { release(ins.cache, pageID, dirty, &err) }()

	switch p := tp.(type) {
	case *internalPage:
		_, idx := searchInternal(p, ins.kdesc, key)
		childSplit, childItem, err := ins.insert(p.child(idx), key, oid)
		if err != nil || !childSplit {
			return false, InternalItem{}, err
		}

		_, pos := searchInternal(p, ins.kdesc, childItem.Key)
		dirty = true
		return ins.insertInternalEntry(pageID, p, pos+1, childItem)

	case *leafPage:
		found, idx := searchLeaf(p, ins.kdesc, key)
		if found {
			return false, InternalItem{}, errors.Wrapf(ErrDuplicateKey, "key %s", FormatKey(ins.kdesc, key))
		}

		entry := encodeLeafEntry(key, []types.ObjectID{oid})
		if len(entry)+SlotSize > p.capacity()/4 {
			return false, InternalItem{}, errors.Wrapf(ErrKeyTooLarge, "entry of %d bytes in a %d byte page", len(entry), p.size())
		}

		dirty = true
		if p.totalFree() >= len(entry)+SlotSize {
			placeEntry(p.slotted, idx+1, entry)
			return false, InternalItem{}, touch(ins.cache, pageID)
		}
		return ins.splitLeaf(pageID, p, idx+1, entry)

	default:
		return false, InternalItem{}, errors.Wrapf(ErrBadBtreePage, "page %d", pageID)
	}
}

// placeEntry writes entry at logical position pos, compacting first when the free
// space is there but fragmented. The caller has checked totalFree.
func placeEntry(s slotted, pos int, entry []byte) {
	if s.contiguousFree() < len(entry)+SlotSize {
		compactPage(s, NilSlot)
	}
	off := s.appendEntry(entry)
	s.insertSlot(pos, off)
}
