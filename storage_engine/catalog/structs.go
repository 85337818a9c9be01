package catalog

import (
	"KeyTreeDB/types"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// IndexEntry is everything the catalog knows about one index
type IndexEntry struct {
	Name       string               `json:"name"`
	Ref        types.CatalogRef     `json:"ref"`
	File       types.PhysicalFileID `json:"file"`
	RootPageID int64                `json:"root_page_id"`
	KeyDesc    types.KeyDesc        `json:"key_desc"`
	PageSize   int                  `json:"page_size"` // logical tree page size
}

// catalogFile is the on-disk form of the catalog
type catalogFile struct {
	NextFileID uint32                `json:"next_file_id"`
	NextRef    types.CatalogRef      `json:"next_ref"`
	Indexes    map[string]IndexEntry `json:"indexes"`
}

type CatalogManager struct {
	dbRoot     string
	nextFileID uint32
	nextRef    types.CatalogRef
	indexes    map[string]IndexEntry       // index name -> entry
	byRef      map[types.CatalogRef]string // ref -> index name
	resolved   *ristretto.Cache[uint32, types.PhysicalFileID]
	logger     *zap.Logger
	mu         sync.RWMutex
}
