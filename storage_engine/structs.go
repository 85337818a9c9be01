package storageengine

import (
	indexfile "KeyTreeDB/storage_engine/access/indexfile_manager"
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/storage_engine/bufferpool"
	"KeyTreeDB/storage_engine/catalog"
	diskmanager "KeyTreeDB/storage_engine/disk_manager"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type StorageEngine struct {
	BufferPool *bufferpool.BufferPool

	Store          diskmanager.Store
	CatalogManager *catalog.CatalogManager
	IndexManager   *indexfile.IndexFileManager

	// Registry is the engine's own metrics registry, nil when WithRegisterer was used.
	Registry *prometheus.Registry

	DbRoot  string
	cfg     Config
	metrics *bplus.Metrics
	logger  *zap.Logger
}

// Backend selects the page store.
type Backend uint8

const (
	BackendFile   Backend = iota // one file per index under <root>/indexes
	BackendPebble                // every page in one pebble database under <root>/pages
)

func (b Backend) String() string {
	if b == BackendPebble {
		return "pebble"
	}
	return "file"
}

type Config struct {
	BufferPoolSize   int
	PageSize         int // logical page size of new trees
	CatalogCacheSize int64
	Backend          Backend
	Logger           *zap.Logger
	Registerer       prometheus.Registerer
}
