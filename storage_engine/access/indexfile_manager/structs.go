package indexfile

import (
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/storage_engine/bufferpool"
	"KeyTreeDB/storage_engine/catalog"
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/types"
	"sync"

	"go.uber.org/zap"
)

type IndexFileManager struct {
	store   diskmanager.Store           // shared with the buffer pool
	pool    *bufferpool.BufferPool      // every tree page goes through here
	catalog *catalog.CatalogManager     // name → ref, file, root
	indexes map[string]*bplus.BPlusTree // index name → open tree
	metrics *bplus.Metrics              // shared by all trees, labelled per index
	logger  *zap.Logger
	mu      sync.RWMutex
}

// indexMeta is stored on page 0 of every index file so the file describes itself
// even without the catalog.
type indexMeta struct {
	Name       string           `json:"name"`
	Ref        types.CatalogRef `json:"ref"`
	RootPageID int64            `json:"root_page_id"`
	KeyDesc    types.KeyDesc    `json:"key_desc"`
	PageSize   int              `json:"page_size"`
}
