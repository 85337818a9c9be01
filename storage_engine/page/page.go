package page

import (
	"KeyTreeDB/types"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	PageSize           = types.PageSize
	PageChecksumOffset = 0 // first 8 bytes of every page = xxhash64 of the rest
	PageTypeOffset     = 8
)

/*
This contains the page frame struct shared by the page stores and the bufferpool.

The frame only knows the two bytes ranges every page shares:
  0-7  checksum, stamped by the store on write and checked on read
  8    page type (types.PageType)
Everything after byte 8 belongs to the page owner; for index pages the layout
lives in /KeyTreeDB/storage_engine/access/indexfile_manager/bplustree/node_to_index_page.go
*/

type Page struct {
	ID       int64
	FileID   uint32
	Data     []byte
	IsDirty  bool
	PinCount int32
	PageType types.PageType
	mu       sync.RWMutex
}

func New(pageID int64, fileID uint32, pageType types.PageType) *Page {
	return &Page{
		ID:       pageID,
		FileID:   fileID,
		Data:     make([]byte, PageSize),
		PageType: pageType,
	}
}

func (p *Page) Lock() {
	p.mu.Lock()
}

func (p *Page) Unlock() {
	p.mu.Unlock()
}

func (p *Page) RLock() {
	p.mu.RLock()
}

func (p *Page) RUnlock() {
	p.mu.RUnlock()
}

// Seal stamps the page type and checksum into data before it goes to storage.
func Seal(data []byte, pageType types.PageType) {
	data[PageTypeOffset] = byte(pageType)
	binary.LittleEndian.PutUint64(data[PageChecksumOffset:], xxhash.Sum64(data[PageTypeOffset:]))
}

// Verify reports whether the stored checksum matches the page body.
// A page that was never written (all zero) is accepted.
func Verify(data []byte) bool {
	stored := binary.LittleEndian.Uint64(data[PageChecksumOffset:])
	if stored == 0 && isZero(data) {
		return true
	}
	return stored == xxhash.Sum64(data[PageTypeOffset:])
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
