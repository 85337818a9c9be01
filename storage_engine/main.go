package storageengine

import (
	indexfile "KeyTreeDB/storage_engine/access/indexfile_manager"
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/storage_engine/bufferpool"
	"KeyTreeDB/storage_engine/catalog"
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/types"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

/*
The main file of storage engine, that initializes every layer under one data directory:

	<root>/metadata/catalog.json   catalog (index name -> ref, file, root, key descriptor)
	<root>/indexes/<name>.idx      one file per index (file backend)
	<root>/pages/                  pebble database (pebble backend)

Every index registered in the catalog is loaded when the engine opens.
*/

var ErrClosed = errors.New("storage engine is closed")

func Open(dbRoot string, opts ...Option) (*StorageEngine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferPoolSize <= 0 {
		return nil, errors.Newf("buffer pool size must be positive, got %d", cfg.BufferPoolSize)
	}

	if err := os.MkdirAll(dbRoot, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create db root")
	}

	store, err := openStore(dbRoot, cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	catalogManager, err := catalog.NewCatalogManager(dbRoot, cfg.CatalogCacheSize, logger)
	if err != nil {
		_ = store.CloseAll()
		return nil, errors.Wrap(err, "failed to init catalog manager")
	}

	bufferPool := bufferpool.NewBufferPool(cfg.BufferPoolSize, store, logger)
	metrics := bplus.NewMetrics()
	indexManager := indexfile.NewIndexFileManager(store, bufferPool, catalogManager, metrics, logger)

	se := &StorageEngine{
		BufferPool:     bufferPool,
		Store:          store,
		CatalogManager: catalogManager,
		IndexManager:   indexManager,
		DbRoot:         dbRoot,
		cfg:            cfg,
		metrics:        metrics,
		logger:         logger,
	}

	registerer := cfg.Registerer
	if registerer == nil {
		se.Registry = prometheus.NewRegistry()
		registerer = se.Registry
	}
	collectors := append(bufferPool.Collectors(), metrics.Collectors()...)
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			_ = se.Close()
			return nil, errors.Wrap(err, "failed to register metrics")
		}
	}

	for _, entry := range catalogManager.Indexes() {
		if err := indexManager.LoadIndex(entry.Name); err != nil {
			_ = se.Close()
			return nil, errors.Wrapf(err, "failed to load index '%s'", entry.Name)
		}
	}

	logger.Info("storage engine opened",
		zap.String("root", dbRoot),
		zap.Stringer("backend", cfg.Backend),
		zap.Int("bufferPool", cfg.BufferPoolSize),
		zap.Int("indexes", len(catalogManager.Indexes())))
	return se, nil
}

func openStore(dbRoot string, backend Backend, logger *zap.Logger) (diskmanager.Store, error) {
	switch backend {
	case BackendPebble:
		return diskmanager.OpenPebbleStore(filepath.Join(dbRoot, "pages"), nil, logger)
	default:
		return diskmanager.NewDiskManager(filepath.Join(dbRoot, "indexes"), logger)
	}
}

func (se *StorageEngine) requireOpen() error {
	if se.IndexManager == nil {
		return ErrClosed
	}
	return nil
}

// CreateIndex registers and formats a new, empty index.
func (se *StorageEngine) CreateIndex(name string, kdesc types.KeyDesc) error {
	if err := se.requireOpen(); err != nil {
		return err
	}
	_, err := se.IndexManager.CreateIndex(name, kdesc, se.cfg.PageSize)
	return err
}

// Index returns the open tree of an index.
func (se *StorageEngine) Index(name string) (*bplus.BPlusTree, error) {
	if err := se.requireOpen(); err != nil {
		return nil, err
	}
	return se.IndexManager.GetIndex(name)
}

// Indexes lists the catalog entries ordered by name.
func (se *StorageEngine) Indexes() []catalog.IndexEntry {
	return se.CatalogManager.Indexes()
}

// EncodeKey builds a key for an index from one Go value per key part.
func (se *StorageEngine) EncodeKey(index string, values ...any) ([]byte, error) {
	tree, err := se.Index(index)
	if err != nil {
		return nil, err
	}
	return bplus.EncodeKey(tree.KeyDesc(), values...)
}

func (se *StorageEngine) Insert(index string, key []byte, oid types.ObjectID) error {
	tree, err := se.Index(index)
	if err != nil {
		return err
	}
	return tree.Insert(key, oid)
}

func (se *StorageEngine) Fetch(index string, startKey []byte, startOp bplus.CompOp, stopKey []byte, stopOp bplus.CompOp) (bplus.Cursor, error) {
	tree, err := se.Index(index)
	if err != nil {
		return bplus.Cursor{}, err
	}
	return tree.Fetch(startKey, startOp, stopKey, stopOp)
}

func (se *StorageEngine) FetchNext(index string, stopKey []byte, stopOp bplus.CompOp, current bplus.Cursor) (bplus.Cursor, error) {
	tree, err := se.Index(index)
	if err != nil {
		return bplus.Cursor{}, err
	}
	return tree.FetchNext(stopKey, stopOp, current)
}

// Scan returns an iterator over a key range, see bplus.BPlusTree.Scan.
func (se *StorageEngine) Scan(index string, startKey []byte, startOp bplus.CompOp, stopKey []byte, stopOp bplus.CompOp) (*bplus.Iterator, error) {
	tree, err := se.Index(index)
	if err != nil {
		return nil, err
	}
	return tree.Scan(startKey, startOp, stopKey, stopOp), nil
}

func (se *StorageEngine) Search(index string, key []byte) (types.ObjectID, bool, error) {
	tree, err := se.Index(index)
	if err != nil {
		return types.ObjectID{}, false, err
	}
	return tree.Search(key)
}

func (se *StorageEngine) Dump(index string, w io.Writer) error {
	tree, err := se.Index(index)
	if err != nil {
		return err
	}
	return tree.Dump(w)
}

func (se *StorageEngine) Stats(index string) (bplus.TreeStats, error) {
	tree, err := se.Index(index)
	if err != nil {
		return bplus.TreeStats{}, err
	}
	return tree.Stats()
}

func (se *StorageEngine) PoolStats() bufferpool.BufferPoolStats {
	return se.BufferPool.GetStats()
}

// Flush writes every dirty page back and syncs the store.
func (se *StorageEngine) Flush() error {
	if err := se.BufferPool.FlushAllPages(); err != nil {
		return err
	}
	return se.Store.Sync()
}

// Close flushes everything and releases the store. The engine cannot be used afterwards.
func (se *StorageEngine) Close() error {
	if se.IndexManager == nil {
		return nil
	}
	var err error
	err = errors.CombineErrors(err, se.IndexManager.CloseAll())
	err = errors.CombineErrors(err, se.Store.CloseAll())
	se.CatalogManager.Close()
	se.IndexManager = nil
	se.logger.Info("storage engine closed", zap.String("root", se.DbRoot))
	return err
}
