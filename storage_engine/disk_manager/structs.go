package diskmanager

import (
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ############################################# PAGE STORE ################################################

// Store is what the bufferpool and the index file manager need from persistent storage.
// DiskManager keeps one OS file per fileID; PebbleStore keeps every page as a pebble key.
type Store interface {
	// OpenFile opens (creating if needed) the file for fileID and reports whether it was new.
	OpenFile(name string, fileID uint32) (bool, error)
	ReadPage(pageID int64) (*page.Page, error)
	WritePage(pg *page.Page) error
	AllocatePage(fileID uint32, pageType types.PageType) (int64, error)
	WriteMetadata(fileID uint32, metadata []byte) error
	ReadMetadata(fileID uint32) ([]byte, error)
	FilePages(fileID uint32) (int64, error)
	Sync() error
	CloseAll() error
}

// ############################################# FILE DESCRIPTOR ###########################################

type PageKey struct {
	FileID   uint32
	LocalNum int64
}

// FileDescriptor represents an open file managed by the disk manager
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID int64 // Next available page ID within this file
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager manages all disk I/O operations and file handles
type DiskManager struct {
	baseDir       string
	files         map[uint32]*FileDescriptor // fileID -> file descriptor
	globalPageMap map[int64]uint32           // globalPageID -> fileID mapping
	localToGlobal map[PageKey]int64          // (fileID, localNum) → globalPageID
	logger        *zap.Logger
	mu            sync.RWMutex
}
