package bufferpool

import (
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/types"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newPool(t *testing.T, capacity int) (*BufferPool, *diskmanager.DiskManager) {
	t.Helper()
	dm, err := diskmanager.NewDiskManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	t.Cleanup(func() { _ = dm.CloseAll() })
	if _, err := dm.OpenFile("bp_test.idx", 1); err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	return NewBufferPool(capacity, dm, nil), dm
}

func TestBufferPoolNewFetchUnpin(t *testing.T) {
	bp, _ := newPool(t, 4)

	pg, err := bp.NewPage(1, types.PageTypeBPlusNode)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if pg.PinCount != 1 {
		t.Errorf("new page pin count = %d, want 1", pg.PinCount)
	}
	copy(pg.Data[48:], []byte("node bytes"))

	again, err := bp.FetchPage(pg.ID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if again != pg {
		t.Errorf("FetchPage returned a different frame for a cached page")
	}
	if bp.PinCount(pg.ID) != 2 {
		t.Errorf("pin count = %d, want 2", bp.PinCount(pg.ID))
	}

	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bp.UnpinPage(pg.ID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if bp.PinCount(pg.ID) != 0 {
		t.Errorf("pin count after unpins = %d, want 0", bp.PinCount(pg.ID))
	}

	stats := bp.GetStats()
	if stats.Hits != 1 || stats.DirtyPages != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 dirty page", stats)
	}
	if got := testutil.ToFloat64(bp.metrics.hits); got != 1 {
		t.Errorf("hits counter = %v, want 1", got)
	}
}

func TestBufferPoolEvictionWritesBack(t *testing.T) {
	bp, _ := newPool(t, 2)

	var ids []int64
	for i := 0; i < 3; i++ {
		pg, err := bp.NewPage(1, types.PageTypeBPlusNode)
		if err != nil {
			t.Fatalf("NewPage %d: %v", i, err)
		}
		pg.Data[100] = byte(i + 1)
		ids = append(ids, pg.ID)
		if err := bp.UnpinPage(pg.ID, true); err != nil {
			t.Fatalf("UnpinPage: %v", err)
		}
	}

	if bp.Size() != 2 {
		t.Errorf("pool size = %d, want 2", bp.Size())
	}
	if got := testutil.ToFloat64(bp.metrics.evictions); got != 1 {
		t.Errorf("evictions = %v, want 1", got)
	}

	// the first page was evicted and must come back from disk intact
	pg, err := bp.FetchPage(ids[0])
	if err != nil {
		t.Fatalf("FetchPage evicted page: %v", err)
	}
	defer bp.UnpinPage(pg.ID, false)
	if pg.Data[100] != 1 {
		t.Errorf("evicted page content = %d, want 1", pg.Data[100])
	}
}

func TestBufferPoolAllPinned(t *testing.T) {
	bp, _ := newPool(t, 1)

	pg, err := bp.NewPage(1, types.PageTypeBPlusNode)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if _, err := bp.NewPage(1, types.PageTypeBPlusNode); !errors.Is(err, ErrAllPinned) {
		t.Errorf("got %v, want ErrAllPinned", err)
	}
	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bp.UnpinPage(12345, false); !errors.Is(err, ErrPageNotCached) {
		t.Errorf("unpin unknown page: got %v, want ErrPageNotCached", err)
	}
}

func TestBufferPoolFlushAll(t *testing.T) {
	bp, dm := newPool(t, 4)

	pg, err := bp.NewPage(1, types.PageTypeBPlusNode)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pg.Data[200] = 42
	if err := bp.UnpinPage(pg.ID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bp.FlushAllPages(); err != nil {
		t.Fatalf("FlushAllPages: %v", err)
	}
	if bp.GetStats().DirtyPages != 0 {
		t.Errorf("dirty pages remain after flush")
	}

	onDisk, err := dm.ReadPage(pg.ID)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if onDisk.Data[200] != 42 {
		t.Errorf("flushed byte = %d, want 42", onDisk.Data[200])
	}
}
