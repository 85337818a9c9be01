package indexfile

import (
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/storage_engine/bufferpool"
	"KeyTreeDB/storage_engine/catalog"
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/types"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

/*
This file is the main file for Index File Manager that deals with the Index pages
Similar to the catalog it is shared by the whole engine and has access to the page store and the buffer pool

Each index lives in its own file (<name>.idx): page 0 holds the index metadata, every other page is a tree page.
The manager is also the trees' page allocator: a catalog ref resolves to the file, and the store hands out the next page.
*/

var ErrBadIndexFile = errors.New("index file does not match the catalog")

func NewIndexFileManager(store diskmanager.Store, pool *bufferpool.BufferPool, cat *catalog.CatalogManager, metrics *bplus.Metrics, logger *zap.Logger) *IndexFileManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = bplus.NewMetrics()
	}
	return &IndexFileManager{
		store:   store,
		pool:    pool,
		catalog: cat,
		indexes: make(map[string]*bplus.BPlusTree),
		metrics: metrics,
		logger:  logger,
	}
}

func fileName(indexName string) string {
	return indexName + ".idx"
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return errors.Wrapf(bplus.ErrBadParameter, "invalid index name %q", name)
	}
	return nil
}

// AllocatePage implements bplus.PageAllocator. The store always appends,
// so the hint is not used.
func (ifm *IndexFileManager) AllocatePage(ref types.CatalogRef, _ int64) (int64, error) {
	pfid, err := ifm.catalog.Resolve(ref)
	if err != nil {
		return types.NilPageID, err
	}
	return ifm.store.AllocatePage(pfid.FileID, types.PageTypeBPlusNode)
}

// CreateIndex registers a new index, creates its file and formats an empty root.
func (ifm *IndexFileManager) CreateIndex(name string, kdesc types.KeyDesc, pageSize int) (*bplus.BPlusTree, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()
	return ifm.createLocked(name, kdesc, pageSize)
}

func (ifm *IndexFileManager) createLocked(name string, kdesc types.KeyDesc, pageSize int) (*bplus.BPlusTree, error) {
	entry, err := ifm.catalog.RegisterIndex(name, kdesc, pageSize)
	if err != nil {
		return nil, err
	}

	fileID := entry.File.FileID
	if _, err := ifm.store.OpenFile(fileName(name), fileID); err != nil {
		return nil, errors.Wrapf(err, "failed to create index file for '%s'", name)
	}
	// page 0 is reserved for the metadata
	if _, err := ifm.store.AllocatePage(fileID, types.PageTypeMetadata); err != nil {
		return nil, err
	}

	tree, err := bplus.CreateBPlusTree(ifm.pool, ifm, ifm.treeConfig(entry))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create B+ tree for '%s'", name)
	}
	entry.RootPageID = tree.Root()
	if err := ifm.catalog.SetRoot(entry.Ref, entry.RootPageID); err != nil {
		return nil, err
	}
	if err := ifm.writeMeta(entry); err != nil {
		return nil, err
	}

	ifm.indexes[name] = tree
	ifm.logger.Info("index created",
		zap.String("index", name),
		zap.Stringer("file", entry.File),
		zap.Int64("root", entry.RootPageID))
	return tree, nil
}

// GetOrCreateIndex returns the open tree for name, loading it from disk or creating it as needed.
func (ifm *IndexFileManager) GetOrCreateIndex(name string, kdesc types.KeyDesc, pageSize int) (*bplus.BPlusTree, error) {
	ifm.mu.RLock()
	tree, exists := ifm.indexes[name]
	ifm.mu.RUnlock()

	if exists && tree != nil {
		return tree, nil
	}

	if err := validName(name); err != nil {
		return nil, err
	}

	// Slow path: open or create the index file.
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have
	// opened it while we were waiting for the lock).
	if tree, exists := ifm.indexes[name]; exists && tree != nil {
		return tree, nil
	}

	if _, err := ifm.catalog.Lookup(name); errors.Is(err, catalog.ErrIndexNotFound) {
		return ifm.createLocked(name, kdesc, pageSize)
	}
	return ifm.loadLocked(name)
}

// GetIndex returns the open tree for an existing index, loading it if needed.
func (ifm *IndexFileManager) GetIndex(name string) (*bplus.BPlusTree, error) {
	ifm.mu.RLock()
	tree, exists := ifm.indexes[name]
	ifm.mu.RUnlock()
	if exists {
		return tree, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()
	if tree, exists := ifm.indexes[name]; exists {
		return tree, nil
	}
	return ifm.loadLocked(name)
}

// LoadIndex opens an existing index file and caches it.
// Used when the engine opens to preload every index in the catalog.
func (ifm *IndexFileManager) LoadIndex(name string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// Already cached, nothing to do.
	if _, exists := ifm.indexes[name]; exists {
		return nil
	}
	_, err := ifm.loadLocked(name)
	return err
}

func (ifm *IndexFileManager) loadLocked(name string) (*bplus.BPlusTree, error) {
	entry, err := ifm.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	isNew, err := ifm.store.OpenFile(fileName(name), entry.File.FileID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open index file for '%s'", name)
	}
	if isNew {
		return nil, errors.Wrapf(ErrBadIndexFile, "index file for '%s' is missing", name)
	}

	meta, err := ifm.readMeta(entry.File.FileID)
	if err != nil {
		return nil, errors.Wrapf(err, "index '%s'", name)
	}
	if meta.Name != entry.Name || meta.Ref != entry.Ref || meta.RootPageID != entry.RootPageID {
		return nil, errors.Wrapf(ErrBadIndexFile, "'%s': file says %s/ref %d/root %d, catalog says ref %d/root %d",
			name, meta.Name, meta.Ref, meta.RootPageID, entry.Ref, entry.RootPageID)
	}

	cfg := ifm.treeConfig(entry)
	cfg.Root = entry.RootPageID
	tree, err := bplus.OpenBPlusTree(ifm.pool, ifm, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load index '%s'", name)
	}

	ifm.indexes[name] = tree
	ifm.logger.Debug("index loaded", zap.String("index", name), zap.Int64("root", entry.RootPageID))
	return tree, nil
}

func (ifm *IndexFileManager) treeConfig(entry catalog.IndexEntry) bplus.Config {
	return bplus.Config{
		Name:     entry.Name,
		Ref:      entry.Ref,
		KeyDesc:  entry.KeyDesc,
		PageSize: entry.PageSize,
		Logger:   ifm.logger,
		Metrics:  ifm.metrics,
	}
}

func (ifm *IndexFileManager) writeMeta(entry catalog.IndexEntry) error {
	raw, err := json.Marshal(indexMeta{
		Name:       entry.Name,
		Ref:        entry.Ref,
		RootPageID: entry.RootPageID,
		KeyDesc:    entry.KeyDesc,
		PageSize:   entry.PageSize,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode index metadata")
	}
	return ifm.store.WriteMetadata(entry.File.FileID, raw)
}

func (ifm *IndexFileManager) readMeta(fileID uint32) (indexMeta, error) {
	var meta indexMeta
	raw, err := ifm.store.ReadMetadata(fileID)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, errors.Wrap(err, "failed to decode index metadata")
	}
	return meta, nil
}

// OpenIndexes lists the names of the cached trees.
func (ifm *IndexFileManager) OpenIndexes() []string {
	ifm.mu.RLock()
	defer ifm.mu.RUnlock()

	names := make([]string, 0, len(ifm.indexes))
	for name := range ifm.indexes {
		names = append(names, name)
	}
	return names
}

// CloseIndex flushes and forgets the tree for one index.
func (ifm *IndexFileManager) CloseIndex(name string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	if _, exists := ifm.indexes[name]; !exists {
		return nil // not open, nothing to do
	}
	if err := ifm.flush(); err != nil {
		return errors.Wrapf(err, "failed to close index '%s'", name)
	}
	delete(ifm.indexes, name)
	return nil
}

// CloseAll flushes every dirty page and clears the cache.
// Called when the storage engine shuts down.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	err := ifm.flush()
	for name := range ifm.indexes {
		delete(ifm.indexes, name)
	}
	return err
}

func (ifm *IndexFileManager) flush() error {
	if err := ifm.pool.FlushAllPages(); err != nil {
		return err
	}
	return ifm.store.Sync()
}
