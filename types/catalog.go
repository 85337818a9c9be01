package types

import "fmt"

// CatalogRef identifies an index entry in the catalog. The tree passes it
// through to the page allocator so new pages land in the index's own file.
type CatalogRef uint32

// PhysicalFileID is where a catalog entry's pages live.
type PhysicalFileID struct {
	Volume uint16 `json:"volume"`
	FileID uint32 `json:"file_id"`
}

func (p PhysicalFileID) String() string {
	return fmt.Sprintf("vol%d/file%d", p.Volume, p.FileID)
}
