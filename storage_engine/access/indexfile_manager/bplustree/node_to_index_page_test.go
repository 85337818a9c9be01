package bplus

import (
	"KeyTreeDB/types"
	"bytes"
	"testing"
)

// punchHole drops slot i the way a delete would, leaving its bytes behind as unused.
func punchHole(s slotted, i int) {
	s.setUnused(s.unused() + s.entryLen(i))
	for j := i; j < s.nSlots()-1; j++ {
		s.setSlot(j, s.slot(j+1))
	}
	s.setNSlots(s.nSlots() - 1)
}

func newTestLeafPage(size int, keys ...int32) *leafPage {
	data := make([]byte, types.PageSize)
	p := &leafPage{initPage(data, 77, kindLeaf, size, false)}
	for _, k := range keys {
		_, idx := searchLeaf(p, IntKeyDesc(), IntKey(k))
		placeEntry(p.slotted, idx+1, encodeLeafEntry(IntKey(k), []types.ObjectID{oidFor(k)}))
	}
	return p
}

func leafKeys(t *testing.T, p *leafPage) []int32 {
	out := make([]int32, p.nSlots())
	for i := range out {
		out[i] = keyInt(t, p.key(i))
	}
	return out
}

func TestEntryLength(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"internal int key", internalEntryLength(4), 16},
		{"internal 6 byte key", internalEntryLength(6), 8 + 8},
		{"internal 7 byte key", internalEntryLength(7), 16 + 8},
		{"leaf int key one object", leafEntryLength(4, 1), 8 + types.ObjectIDSize},
		{"leaf 5 byte key two objects", leafEntryLength(5, 2), 16 + 2*types.ObjectIDSize},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, tt.got, tt.want)
		}
		if tt.got%EntryAlign != 0 {
			t.Errorf("%s: length %d not aligned", tt.name, tt.got)
		}
	}
}

func TestEntryCodec(t *testing.T) {
	key := []byte{3, 0, 'a', 'b', 'c'}
	ie := encodeInternalEntry(4242, key)
	item := decodeInternalEntry(ie)
	if item.ChildPageID != 4242 || !bytes.Equal(item.Key, key) {
		t.Errorf("internal entry round trip = %+v", item)
	}
	if !bytes.Equal(internalEntryKey(ie), key) {
		t.Errorf("internalEntryKey = %v", internalEntryKey(ie))
	}

	oids := []types.ObjectID{oidFor(1), oidFor(2)}
	le := encodeLeafEntry(key, oids)
	if !bytes.Equal(leafEntryKey(le), key) {
		t.Errorf("leafEntryKey = %v", leafEntryKey(le))
	}

	p := &leafPage{initPage(make([]byte, types.PageSize), 5, kindLeaf, 512, false)}
	placeEntry(p.slotted, 0, le)
	if p.objectCount(0) != 2 || p.objectAt(0, 1) != oids[1] {
		t.Errorf("leaf objects = %d, %v", p.objectCount(0), p.objectAt(0, 1))
	}
	if p.entryLen(0) != len(le) {
		t.Errorf("entryLen = %d, want %d", p.entryLen(0), len(le))
	}
}

func TestPageHeader(t *testing.T) {
	data := make([]byte, types.PageSize)
	s := initPage(data, 99, kindInternal, 1024, true)
	if s.kind() != kindInternal || !s.isRoot() || s.selfID() != 99 || s.size() != 1024 {
		t.Fatalf("header = kind %v root %v id %d size %d", s.kind(), s.isRoot(), s.selfID(), s.size())
	}
	if s.totalFree() != 1024-HeaderSize || s.contiguousFree() != s.totalFree() {
		t.Errorf("fresh page free = %d/%d", s.totalFree(), s.contiguousFree())
	}
	p := &internalPage{s}
	if p.p0() != types.NilPageID {
		t.Errorf("fresh p0 = %d, want nil", p.p0())
	}
	s.setRoot(false)
	if s.isRoot() {
		t.Errorf("root flag not cleared")
	}

	tp, err := viewPage(data)
	if err != nil {
		t.Fatalf("viewPage: %v", err)
	}
	if _, ok := tp.(*internalPage); !ok {
		t.Errorf("viewPage returned %T", tp)
	}
	if _, err := viewPage(make([]byte, types.PageSize)); err == nil {
		t.Errorf("zero page decoded as a tree page")
	}
}

func TestSlotOrderFollowsKeys(t *testing.T) {
	p := newTestLeafPage(512, 30, 10, 20, 5, 25)
	if got := leafKeys(t, p); !equalInts(got, []int32{5, 10, 20, 25, 30}) {
		t.Errorf("slot order = %v", got)
	}
	used := 5 * (leafEntryLength(4, 1) + SlotSize)
	if p.totalFree() != p.capacity()-used {
		t.Errorf("totalFree = %d, want %d", p.totalFree(), p.capacity()-used)
	}
}

func TestCompactPage(t *testing.T) {
	p := newTestLeafPage(512, 10, 20, 30, 40, 50)
	punchHole(p.slotted, 1) // 20
	punchHole(p.slotted, 2) // 40

	if p.contiguousFree() >= p.totalFree() {
		t.Fatalf("page not fragmented: %d/%d", p.contiguousFree(), p.totalFree())
	}
	before := p.totalFree()

	compactPage(p.slotted, NilSlot)
	if p.contiguousFree() != p.totalFree() || p.totalFree() != before {
		t.Errorf("after compaction free = %d/%d, want %d/%d", p.contiguousFree(), p.totalFree(), before, before)
	}
	if p.unused() != 0 {
		t.Errorf("unused = %d after compaction", p.unused())
	}
	if got := leafKeys(t, p); !equalInts(got, []int32{10, 30, 50}) {
		t.Errorf("keys after compaction = %v", got)
	}
	for i, k := range []int32{10, 30, 50} {
		if p.objectAt(i, 0) != oidFor(k) {
			t.Errorf("slot %d object = %v", i, p.objectAt(i, 0))
		}
	}

	// a second pass changes nothing
	snapshot := bytes.Clone(p.data[:p.size()])
	compactPage(p.slotted, NilSlot)
	if !bytes.Equal(snapshot, p.data[:p.size()]) {
		t.Errorf("compaction is not idempotent")
	}
}

func TestCompactPageExcludedSlotGoesLast(t *testing.T) {
	p := newTestLeafPage(512, 10, 20, 30)
	punchHole(p.slotted, 0)

	compactPage(p.slotted, 0) // 20
	entryLen := leafEntryLength(4, 1)
	if p.slot(0) != p.free()-entryLen {
		t.Errorf("excluded entry at %d, want %d (next to free space)", p.slot(0), p.free()-entryLen)
	}
	if p.slot(1) != 0 {
		t.Errorf("first kept entry at %d, want 0", p.slot(1))
	}
	if got := leafKeys(t, p); !equalInts(got, []int32{20, 30}) {
		t.Errorf("keys = %v", got)
	}
}

func TestPlaceEntryCompactsWhenFragmented(t *testing.T) {
	// 4 entries of 26 bytes fill a 112 byte data region up to 104
	p := newTestLeafPage(160, 10, 20, 30, 40)
	punchHole(p.slotted, 0)
	if p.contiguousFree() >= leafEntryLength(4, 1)+SlotSize {
		t.Fatalf("test page has too much contiguous space: %d", p.contiguousFree())
	}

	_, idx := searchLeaf(p, IntKeyDesc(), IntKey(25))
	placeEntry(p.slotted, idx+1, encodeLeafEntry(IntKey(25), []types.ObjectID{oidFor(25)}))
	if got := leafKeys(t, p); !equalInts(got, []int32{20, 25, 30, 40}) {
		t.Errorf("keys = %v", got)
	}
	if p.unused() != 0 {
		t.Errorf("placeEntry did not compact")
	}
}
