package storageengine

import (
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/types"
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func openEngine(t *testing.T, root string, opts ...Option) *StorageEngine {
	t.Helper()
	se, err := Open(root, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return se
}

func oid(k int) types.ObjectID {
	return types.ObjectID{FileID: 3, PageNo: uint32(k), SlotNo: uint16(k % 11), Unique: uint32(k)}
}

func scanAll(t *testing.T, se *StorageEngine, index string, startKey []byte, startOp bplus.CompOp, stopKey []byte, stopOp bplus.CompOp) []int64 {
	t.Helper()
	it, err := se.Scan(index, startKey, startOp, stopKey, stopOp)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var out []int64
	for it.Next() {
		vals, err := bplus.DecodeKey(bplus.IntKeyDesc(), it.Key())
		if err != nil {
			t.Fatalf("DecodeKey: %v", err)
		}
		out = append(out, vals[0].(int64))
	}
	if it.Err() != nil {
		t.Fatalf("iterator: %v", it.Err())
	}
	return out
}

func equal(a, b []int64) bool {
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

func runEngineScenario(t *testing.T, opts ...Option) {
	root := t.TempDir()
	opts = append(opts, WithPageSize(160), WithBufferPoolSize(8))
	se := openEngine(t, root, opts...)

	if err := se.CreateIndex("pk", bplus.IntKeyDesc()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	for _, k := range []int{5, 10, 15, 20, 30} {
		key, err := se.EncodeKey("pk", k)
		if err != nil {
			t.Fatalf("EncodeKey: %v", err)
		}
		if err := se.Insert("pk", key, oid(k)); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	stats, err := se.Stats("pk")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Height != 2 || stats.LeafPages != 2 {
		t.Errorf("stats = %s", stats)
	}

	cur, err := se.Fetch("pk", bplus.IntKey(5), bplus.OpEQ, bplus.IntKey(30), bplus.OpLE)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	var got []int
	for cur.State == bplus.CursorOn {
		got = append(got, int(cur.ObjectID.PageNo))
		if cur, err = se.FetchNext("pk", bplus.IntKey(30), bplus.OpLE, cur); err != nil {
			t.Fatalf("FetchNext: %v", err)
		}
	}
	if len(got) != 5 || got[0] != 5 || got[4] != 30 {
		t.Errorf("fetched %v", got)
	}
	if err := se.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	se = openEngine(t, root, opts...)
	defer se.Close()

	if got := scanAll(t, se, "pk", nil, bplus.OpBOF, nil, bplus.OpEOF); !equal(got, []int64{5, 10, 15, 20, 30}) {
		t.Errorf("after reopen = %v", got)
	}
	if got := scanAll(t, se, "pk", bplus.IntKey(20), bplus.OpLE, bplus.IntKey(10), bplus.OpGT); !equal(got, []int64{20, 15}) {
		t.Errorf("descending = %v", got)
	}
	if _, ok, err := se.Search("pk", bplus.IntKey(15)); err != nil || !ok {
		t.Errorf("Search(15) = %v, %v", ok, err)
	}
	if err := se.Insert("pk", bplus.IntKey(15), oid(15)); !errors.Is(err, bplus.ErrDuplicateKey) {
		t.Errorf("duplicate after reopen: %v", err)
	}
}

func TestEngineFileBackend(t *testing.T) {
	runEngineScenario(t)
}

func TestEnginePebbleBackend(t *testing.T) {
	runEngineScenario(t, WithPebbleBackend())
}

func TestEngineManyIndexes(t *testing.T) {
	se := openEngine(t, t.TempDir(), WithPageSize(512), WithBufferPoolSize(16))
	defer se.Close()

	kdesc := bplus.IntKeyDesc()
	for _, name := range []string{"c", "a", "b"} {
		if err := se.CreateIndex(name, kdesc); err != nil {
			t.Fatalf("CreateIndex(%s): %v", name, err)
		}
	}
	var listed []string
	for _, e := range se.Indexes() {
		listed = append(listed, e.Name)
	}
	if strings.Join(listed, ",") != "a,b,c" {
		t.Errorf("indexes = %v", listed)
	}

	for k := 0; k < 400; k++ {
		if err := se.Insert("b", bplus.IntKey(int32(k)), oid(k)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if got := scanAll(t, se, "b", bplus.IntKey(395), bplus.OpGT, nil, bplus.OpEOF); !equal(got, []int64{396, 397, 398, 399}) {
		t.Errorf("tail = %v", got)
	}
	if got := scanAll(t, se, "a", nil, bplus.OpBOF, nil, bplus.OpEOF); len(got) != 0 {
		t.Errorf("index a = %v", got)
	}

	var buf bytes.Buffer
	if err := se.Dump("b", &buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(buf.String(), "Index b") {
		t.Errorf("dump header missing:\n%s", buf.String())
	}
	if ps := se.PoolStats(); ps.Hits == 0 || ps.Capacity != 16 {
		t.Errorf("pool stats = %s", ps)
	}

	if _, err := se.Index("missing"); err == nil {
		t.Errorf("unknown index resolved")
	}
}

func TestEngineMetrics(t *testing.T) {
	se := openEngine(t, t.TempDir(), WithPageSize(160))
	defer se.Close()

	if err := se.CreateIndex("m", bplus.IntKeyDesc()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	for k := int32(0); k < 20; k++ {
		if err := se.Insert("m", bplus.IntKey(k), oid(int(k))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	families, err := se.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	seen := make(map[string]bool)
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{
		"keytree_bplus_inserts_total",
		"keytree_bplus_leaf_splits_total",
		"keytree_bplus_root_growths_total",
		"keytree_bufferpool_hits_total",
	} {
		if !seen[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestEngineSharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	se := openEngine(t, t.TempDir(), WithRegisterer(reg))
	defer se.Close()

	if se.Registry != nil {
		t.Errorf("engine created its own registry")
	}
	// a second engine on the same registerer collides
	if _, err := Open(t.TempDir(), WithRegisterer(reg)); err == nil {
		t.Errorf("duplicate registration accepted")
	}
}

func TestEngineClosed(t *testing.T) {
	se := openEngine(t, t.TempDir())
	if err := se.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := se.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := se.CreateIndex("x", bplus.IntKeyDesc()); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateIndex after close: %v", err)
	}

	if _, err := Open(t.TempDir(), WithBufferPoolSize(0)); err == nil {
		t.Errorf("zero buffer pool accepted")
	}
}
