package bplus

import (
	"KeyTreeDB/storage_engine/page"

	"github.com/cockroachdb/errors"
)

// pinPage fetches and decodes an index page. The returned page is pinned and the
// caller must unpin it when done, on every path.
func pinPage(cache PageCache, pageID int64) (*page.Page, treePage, error) {
	if pageID < 0 {
		return nil, nil, errors.Wrapf(ErrBadParameter, "invalid pageID %d", pageID)
	}
	pg, err := cache.FetchPage(pageID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to fetch page %d", pageID)
	}
	tp, err := viewPage(pg.Data)
	if err != nil {
		_ = cache.UnpinPage(pageID, false)
		return nil, nil, errors.Wrapf(err, "page %d", pageID)
	}
	return pg, tp, nil
}

// pinLeaf is pinPage for a page that must be a leaf.
func pinLeaf(cache PageCache, pageID int64) (*page.Page, *leafPage, error) {
	pg, tp, err := pinPage(cache, pageID)
	if err != nil {
		return nil, nil, err
	}
	leaf, ok := tp.(*leafPage)
	if !ok {
		_ = cache.UnpinPage(pageID, false)
		return nil, nil, errors.Wrapf(ErrBadBtreePage, "page %d is not a leaf", pageID)
	}
	return pg, leaf, nil
}

// newLeaf pins a freshly allocated page and formats it as an empty leaf.
func newLeaf(cache PageCache, pageID int64, size int, root bool) (*page.Page, *leafPage, error) {
	pg, err := cache.FetchNewPage(pageID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to pin new page %d", pageID)
	}
	return pg, &leafPage{initPage(pg.Data, pageID, kindLeaf, size, root)}, nil
}

// newInternal pins a freshly allocated page and formats it as an empty internal page.
func newInternal(cache PageCache, pageID int64, size int) (*page.Page, *internalPage, error) {
	pg, err := cache.FetchNewPage(pageID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to pin new page %d", pageID)
	}
	return pg, &internalPage{initPage(pg.Data, pageID, kindInternal, size, false)}, nil
}

// release unpins pageID and folds an unpin failure into err.
func release(cache PageCache, pageID int64, dirty bool, err *error) {
	if uerr := cache.UnpinPage(pageID, dirty); uerr != nil && *err == nil {
		*err = errors.Wrapf(uerr, "failed to unpin page %d", pageID)
	}
}

// touch marks a mutated page dirty in the cache.
func touch(cache PageCache, pageID int64) error {
	if err := cache.MarkDirty(pageID); err != nil {
		return errors.Wrapf(err, "failed to mark page %d dirty", pageID)
	}
	return nil
}
