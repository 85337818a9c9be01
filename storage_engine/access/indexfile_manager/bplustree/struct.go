// Structure of B+ Tree
/*
Tree
 ├── Internal Page (p0 + n × {child, key}, so n+1 children)
 │      └── Child Internal Pages ...
 │             └── Leaf Pages ({key, objectIDs} entries, prev/next links)


- keys: sorted ascending by slot order
- the child of entry i holds keys >= key(i) and < key(i+1); p0 holds keys < key(0)
- leaf pages doubly linked for range scans in both directions
- all leaf pages at same depth
- the root page id never changes: root growth moves the old root's content out instead

*/
package bplus

import (
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"
	"sync"

	"go.uber.org/zap"
)

const (
	MaxKeyLen = 256 // in bytes
)

// PageCache is the buffer manager as the tree sees it. Every FetchPage and
// FetchNewPage pins, and each pin is paired with exactly one UnpinPage.
type PageCache interface {
	FetchPage(pageID int64) (*page.Page, error)
	FetchNewPage(pageID int64) (*page.Page, error)
	UnpinPage(pageID int64, isDirty bool) error
	MarkDirty(pageID int64) error
}

// PageAllocator hands out fresh page ids in the file behind a catalog entry,
// preferably close to nearPageID.
type PageAllocator interface {
	AllocatePage(ref types.CatalogRef, nearPageID int64) (int64, error)
}

// CompOp is a start or stop condition of a cursor.
type CompOp uint8

const (
	OpInvalid CompOp = iota
	OpEQ
	OpLT
	OpLE
	OpGT
	OpGE
	OpBOF
	OpEOF
)

func (op CompOp) String() string {
	switch op {
	case OpEQ:
		return "EQ"
	case OpLT:
		return "LT"
	case OpLE:
		return "LE"
	case OpGT:
		return "GT"
	case OpGE:
		return "GE"
	case OpBOF:
		return "BOF"
	case OpEOF:
		return "EOF"
	default:
		return "INVALID"
	}
}

type CursorState uint8

const (
	CursorInvalid CursorState = iota
	CursorOn
	CursorEOS
)

// Cursor is a position in the leaf level. It holds no pins between calls.
type Cursor struct {
	State          CursorState
	Leaf           int64
	SlotNo         int
	OidArrayElemNo int
	Key            []byte
	ObjectID       types.ObjectID
}

func eos() Cursor {
	return Cursor{State: CursorEOS, Leaf: types.NilPageID, SlotNo: -1}
}

// InternalItem is what a split hands to the parent: the new page and its separator key.
type InternalItem struct {
	ChildPageID int64
	Key         []byte
}

type BPlusTree struct {
	name     string
	ref      types.CatalogRef // catalog entry that owns the tree's file
	root     int64            // global page ID of the root, fixed for the tree's lifetime
	kdesc    types.KeyDesc
	pageSize int
	cache    PageCache
	alloc    PageAllocator
	logger   *zap.Logger
	counters treeCounters
	mu       sync.RWMutex // Insert takes it exclusively, cursor calls share it
}

// Config names one tree. Root is ignored by CreateBPlusTree.
type Config struct {
	Name     string
	Ref      types.CatalogRef
	Root     int64
	KeyDesc  types.KeyDesc
	PageSize int
	Logger   *zap.Logger
	Metrics  *Metrics
}
