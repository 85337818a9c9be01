package bplus

import (
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// CreateBPlusTree allocates the root page of a new tree and formats it as an
// empty root leaf. The root's page ID (tree.Root()) is the tree's identity from
// now on and is what callers persist.
func CreateBPlusTree(cache PageCache, alloc PageAllocator, cfg Config) (t *BPlusTree, err error) {
	t, err = newTree(cache, alloc, cfg)
	if err != nil {
		return nil, err
	}

	rootID, err := alloc.AllocatePage(cfg.Ref, types.NilPageID)
	if err != nil {
		return nil, errors.Wrap(err, "CreateBPlusTree: failed to allocate root")
	}
	if _, _, err := newLeaf(cache, rootID, t.pageSize, true); err != nil {
		return nil, err
	}
	defer func() { release(cache, rootID, true, &err) }()

	if err := touch(cache, rootID); err != nil {
		return nil, err
	}
	t.root = rootID
	t.logger.Debug("new tree", zap.String("index", t.name), zap.Int64("root", rootID), zap.Int("pageSize", t.pageSize))
	return t, nil
}

// OpenBPlusTree binds an existing root page. The page must be a tree root.
func OpenBPlusTree(cache PageCache, alloc PageAllocator, cfg Config) (t *BPlusTree, err error) {
	t, err = newTree(cache, alloc, cfg)
	if err != nil {
		return nil, err
	}

	_, tp, err := pinPage(cache, cfg.Root)
	if err != nil {
		return nil, errors.Wrap(err, "OpenBPlusTree: failed to read root")
	}
	defer func() { release(cache, cfg.Root, false, &err) }()

	hdr := tp.header()
	if !hdr.isRoot() {
		return nil, errors.Wrapf(ErrBadBtreePage, "page %d is not a root", cfg.Root)
	}
	t.root = cfg.Root
	t.pageSize = hdr.size()
	t.logger.Debug("loaded tree", zap.String("index", t.name), zap.Int64("root", t.root))
	return t, nil
}

func newTree(cache PageCache, alloc PageAllocator, cfg Config) (*BPlusTree, error) {
	if cache == nil || alloc == nil {
		return nil, errors.Wrap(ErrBadParameter, "page cache and allocator are required")
	}
	if err := validateKeyDesc(cfg.KeyDesc); err != nil {
		return nil, err
	}

	size := cfg.PageSize
	if size == 0 {
		size = page.PageSize
	}
	if size < MinPageSize || size > page.PageSize {
		return nil, errors.Wrapf(ErrBadParameter, "page size %d outside [%d, %d]", size, MinPageSize, page.PageSize)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &BPlusTree{
		name:     cfg.Name,
		ref:      cfg.Ref,
		root:     types.NilPageID,
		kdesc:    cfg.KeyDesc,
		pageSize: size,
		cache:    cache,
		alloc:    alloc,
		logger:   logger.With(zap.String("index", cfg.Name)),
		counters: metrics.forIndex(cfg.Name),
	}, nil
}

func (t *BPlusTree) Name() string { return t.name }

func (t *BPlusTree) Root() int64 { return t.root }

func (t *BPlusTree) KeyDesc() types.KeyDesc { return t.kdesc }

func (t *BPlusTree) Ref() types.CatalogRef { return t.ref }

// Insert adds key → oid. See the package level Insert.
func (t *BPlusTree) Insert(key []byte, oid types.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ins := &inserter{
		cache:    t.cache,
		alloc:    t.alloc,
		ref:      t.ref,
		kdesc:    t.kdesc,
		logger:   t.logger,
		counters: &t.counters,
	}
	return ins.run(t.root, key, oid)
}

// Fetch opens a cursor. See the package level Fetch.
func (t *BPlusTree) Fetch(startKey []byte, startOp CompOp, stopKey []byte, stopOp CompOp) (Cursor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Fetch(t.cache, t.root, t.kdesc, startKey, startOp, stopKey, stopOp)
}

// FetchNext advances a cursor. See the package level FetchNext.
func (t *BPlusTree) FetchNext(stopKey []byte, stopOp CompOp, current Cursor) (Cursor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return FetchNext(t.cache, t.root, t.kdesc, stopKey, stopOp, current)
}
