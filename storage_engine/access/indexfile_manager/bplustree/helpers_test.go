package bplus

import (
	"KeyTreeDB/storage_engine/bufferpool"
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"
	"testing"
)

const testFileID = 1

// fileAllocator hands out pages at the end of one file, ignoring the hint.
type fileAllocator struct {
	store  diskmanager.Store
	fileID uint32
}

func (a fileAllocator) AllocatePage(_ types.CatalogRef, _ int64) (int64, error) {
	return a.store.AllocatePage(a.fileID, types.PageTypeBPlusNode)
}

// pinTracker counts outstanding pins so tests can check nothing leaks.
type pinTracker struct {
	PageCache
	pins map[int64]int
}

func (c *pinTracker) FetchPage(pageID int64) (*page.Page, error) {
	pg, err := c.PageCache.FetchPage(pageID)
	if err == nil {
		c.pins[pageID]++
	}
	return pg, err
}

func (c *pinTracker) FetchNewPage(pageID int64) (*page.Page, error) {
	pg, err := c.PageCache.FetchNewPage(pageID)
	if err == nil {
		c.pins[pageID]++
	}
	return pg, err
}

func (c *pinTracker) UnpinPage(pageID int64, dirty bool) error {
	c.pins[pageID]--
	return c.PageCache.UnpinPage(pageID, dirty)
}

func (c *pinTracker) outstanding() int {
	n := 0
	for _, v := range c.pins {
		n += v
	}
	return n
}

type testEnv struct {
	store diskmanager.Store
	pool  *bufferpool.BufferPool
	cache *pinTracker
	alloc fileAllocator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dm, err := diskmanager.NewDiskManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	t.Cleanup(func() { _ = dm.CloseAll() })
	if _, err := dm.OpenFile("test_index.idx", testFileID); err != nil {
		t.Fatalf("Failed to open index file: %v", err)
	}
	pool := bufferpool.NewBufferPool(64, dm, nil)
	return &testEnv{
		store: dm,
		pool:  pool,
		cache: &pinTracker{PageCache: pool, pins: make(map[int64]int)},
		alloc: fileAllocator{store: dm, fileID: testFileID},
	}
}

func newTestTree(t *testing.T, env *testEnv, pageSize int) *BPlusTree {
	t.Helper()
	tree, err := CreateBPlusTree(env.cache, env.alloc, Config{
		Name:     "test",
		Ref:      1,
		KeyDesc:  IntKeyDesc(),
		PageSize: pageSize,
	})
	if err != nil {
		t.Fatalf("Failed to create tree: %v", err)
	}
	return tree
}

func checkNoPins(t *testing.T, env *testEnv) {
	t.Helper()
	if n := env.cache.outstanding(); n != 0 {
		t.Fatalf("%d pages still pinned: %v", n, env.cache.pins)
	}
}

func oidFor(k int32) types.ObjectID {
	return types.ObjectID{FileID: 9, PageNo: uint32(k), SlotNo: uint16(k % 7), Unique: uint32(k) * 3}
}

func keyInt(t *testing.T, key []byte) int32 {
	t.Helper()
	vals, err := DecodeKey(IntKeyDesc(), key)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	return int32(vals[0].(int64))
}

// collect drains a range through Fetch / FetchNext.
func collect(t *testing.T, tree *BPlusTree, startKey []byte, startOp CompOp, stopKey []byte, stopOp CompOp) []int32 {
	t.Helper()
	var out []int32
	cur, err := tree.Fetch(startKey, startOp, stopKey, stopOp)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	nextOp := stopOp
	if stopOp == OpBOF || stopOp == OpEOF {
		nextOp = OpEOF
		if startOp == OpLT || startOp == OpLE || startOp == OpEOF {
			nextOp = OpBOF
		}
	}
	for cur.State == CursorOn {
		k := keyInt(t, cur.Key)
		if cur.ObjectID != oidFor(k) {
			t.Fatalf("key %d carries object %v, want %v", k, cur.ObjectID, oidFor(k))
		}
		out = append(out, k)
		if cur, err = tree.FetchNext(stopKey, nextOp, cur); err != nil {
			t.Fatalf("FetchNext: %v", err)
		}
	}
	return out
}

func equalInts(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
