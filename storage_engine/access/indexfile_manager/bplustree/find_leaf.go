package bplus

import (
	"KeyTreeDB/types"

	"github.com/cockroachdb/errors"
)

// FindLeaf walks from pageID down to the leaf whose key range covers key and
// returns its page ID. Pages are pinned one level at a time; nothing stays pinned.
func FindLeaf(cache PageCache, pageID int64, kdesc types.KeyDesc, key []byte) (int64, error) {
	return descend(cache, pageID, func(p *internalPage) int64 {
		_, idx := searchInternal(p, kdesc, key)
		return p.child(idx)
	})
}

// firstLeaf follows p0 pointers to the leftmost leaf.
func firstLeaf(cache PageCache, root int64) (int64, error) {
	return descend(cache, root, func(p *internalPage) int64 {
		return p.p0()
	})
}

// lastLeaf follows the last slot's child to the rightmost leaf.
func lastLeaf(cache PageCache, root int64) (int64, error) {
	return descend(cache, root, func(p *internalPage) int64 {
		return p.child(p.nSlots() - 1)
	})
}

func descend(cache PageCache, pageID int64, pick func(*internalPage) int64) (int64, error) {
	for {
		_, tp, err := pinPage(cache, pageID)
		if err != nil {
			return types.NilPageID, err
		}
		switch p := tp.(type) {
		case *leafPage:
			err = cache.UnpinPage(pageID, false)
			return pageID, err
		case *internalPage:
			child := pick(p)
			if err := cache.UnpinPage(pageID, false); err != nil {
				return types.NilPageID, err
			}
			pageID = child
		default:
			_ = cache.UnpinPage(pageID, false)
			return types.NilPageID, errors.Wrapf(ErrBadBtreePage, "unexpected page %d during descent", pageID)
		}
	}
}
