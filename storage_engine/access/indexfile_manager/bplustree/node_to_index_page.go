package bplus

import (
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"
	"encoding/binary"
)

/*
Index pages are slotted pages. The data region grows up from the header, the slot array
grows down from the end of the (logical) page, and the free space sits in between.

Layout:

	Header (48 bytes):
	  checksum     uint64 (8 bytes)  stamped by the page store
	  pageType     byte   (1 byte)   types.PageTypeBPlusNode, stamped by the page store
	  kind         byte   (1 byte)   1=internal, 2=leaf, 3=overflow
	  flags        byte   (1 byte)   bit0 = root
	  reserved            (1 byte)
	  selfID       int64  (8 bytes)
	  nSlots       uint16 (2 bytes)
	  free         uint16 (2 bytes)  first free byte of the data region
	  unused       uint16 (2 bytes)  dead bytes below free
	  size         uint16 (2 bytes)  logical page size
	  p0 / prev    int64  (8 bytes)  internal: leftmost child, leaf: previous leaf
	  next         int64  (8 bytes)  leaf: next leaf
	  reserved            (4 bytes)

	Data region: entries, offsets relative to HeaderSize
	Slot array:  slot i is a uint16 offset at size - 2*(i+1)

Entries:

	internal: [ klen uint16 | key | pad ] [ child int64 ]
	leaf:     [ nObjects uint16 | klen uint16 | key | pad ] [ nObjects × ObjectID ]

Logical slot order is ascending key order. Entry order in the data region is arbitrary.
*/

const (
	HeaderSize  = 48
	SlotSize    = 2
	EntryAlign  = 8
	MinPageSize = 128

	offKind   = 9
	offFlags  = 10
	offSelfID = 12
	offNSlots = 20
	offFree   = 22
	offUnused = 24
	offSize   = 26
	offLink0  = 28
	offLink1  = 36

	flagRoot = 1

	internalFixed = 2 // klen
	leafFixed     = 4 // nObjects + klen
	childIDSize   = 8

	// NilSlot passed to compaction means no slot is singled out.
	NilSlot = -1
)

type pageKind uint8

const (
	kindInternal pageKind = 1
	kindLeaf     pageKind = 2
	kindOverflow pageKind = 3
)

func (k pageKind) String() string {
	switch k {
	case kindInternal:
		return "INTERNAL"
	case kindLeaf:
		return "LEAF"
	case kindOverflow:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

func alignUp(n int) int {
	return (n + EntryAlign - 1) &^ (EntryAlign - 1)
}

// entryLength is the one sizing rule every component uses:
// the fixed header plus the key is rounded up before the trailing payload.
func entryLength(fixed, keyLen, trailing int) int {
	return alignUp(fixed+keyLen) + trailing
}

func internalEntryLength(keyLen int) int {
	return entryLength(internalFixed, keyLen, childIDSize)
}

func leafEntryLength(keyLen, nObjects int) int {
	return entryLength(leafFixed, keyLen, nObjects*types.ObjectIDSize)
}

// ── common slotted page view ────────────────────────────────────────────────

type slotted struct {
	data []byte
}

func (s slotted) u16(off int) int { return int(binary.LittleEndian.Uint16(s.data[off:])) }
func (s slotted) putU16(off, v int) { binary.LittleEndian.PutUint16(s.data[off:], uint16(v)) }
func (s slotted) i64(off int) int64 { return int64(binary.LittleEndian.Uint64(s.data[off:])) }
func (s slotted) putI64(off int, v int64) { binary.LittleEndian.PutUint64(s.data[off:], uint64(v)) }

func (s slotted) kind() pageKind { return pageKind(s.data[offKind]) }
func (s slotted) isRoot() bool { return s.data[offFlags]&flagRoot != 0 }
func (s slotted) selfID() int64 { return s.i64(offSelfID) }
func (s slotted) nSlots() int { return s.u16(offNSlots) }
func (s slotted) free() int { return s.u16(offFree) }
func (s slotted) unused() int { return s.u16(offUnused) }
func (s slotted) size() int { return s.u16(offSize) }
func (s slotted) capacity() int { return s.size() - HeaderSize }
func (s slotted) setNSlots(n int) { s.putU16(offNSlots, n) }
func (s slotted) setFree(n int) { s.putU16(offFree, n) }
func (s slotted) setUnused(n int) { s.putU16(offUnused, n) }
func (s slotted) setSelfID(id int64) { s.putI64(offSelfID, id) }

func (s slotted) setRoot(root bool) {
	if root {
		s.data[offFlags] |= flagRoot
	} else {
		s.data[offFlags] &^= flagRoot
	}
}

// usedBytes counts live entry bytes plus the slot array.
func (s slotted) usedBytes() int {
	return s.free() - s.unused() + SlotSize*s.nSlots()
}

// totalFree is all reclaimable space, fragmented bytes included.
func (s slotted) totalFree() int {
	return s.capacity() - s.usedBytes()
}

// contiguousFree is the gap between the data region and the slot array.
func (s slotted) contiguousFree() int {
	return s.capacity() - s.free() - SlotSize*s.nSlots()
}

func (s slotted) slotPos(i int) int { return s.size() - SlotSize*(i+1) }
func (s slotted) slot(i int) int { return s.u16(s.slotPos(i)) }
func (s slotted) setSlot(i, off int) { s.putU16(s.slotPos(i), off) }

// entry returns the bytes of slot i from its start to the end of the data region.
func (s slotted) entry(i int) []byte {
	start := HeaderSize + s.slot(i)
	return s.data[start : HeaderSize+s.free()]
}

// entryLen is the full stored length of slot i.
func (s slotted) entryLen(i int) int {
	e := s.entry(i)
	switch s.kind() {
	case kindInternal:
		return internalEntryLength(int(binary.LittleEndian.Uint16(e)))
	default:
		return leafEntryLength(int(binary.LittleEndian.Uint16(e[2:])), int(binary.LittleEndian.Uint16(e)))
	}
}

// key returns slot i's key without copying.
func (s slotted) key(i int) []byte {
	e := s.entry(i)
	if s.kind() == kindInternal {
		klen := int(binary.LittleEndian.Uint16(e))
		return e[internalFixed : internalFixed+klen]
	}
	klen := int(binary.LittleEndian.Uint16(e[2:]))
	return e[leafFixed : leafFixed+klen]
}

// rawEntry returns a copy of slot i's stored bytes.
func (s slotted) rawEntry(i int) []byte {
	out := make([]byte, s.entryLen(i))
	copy(out, s.entry(i))
	return out
}

// appendEntry writes e at the start of contiguous free space and returns its offset.
// The caller has checked contiguousFree.
func (s slotted) appendEntry(e []byte) int {
	off := s.free()
	copy(s.data[HeaderSize+off:], e)
	s.setFree(off + len(e))
	return off
}

// insertSlot opens logical position pos for off, shifting later slots by one.
func (s slotted) insertSlot(pos, off int) {
	n := s.nSlots()
	for i := n; i > pos; i-- {
		s.setSlot(i, s.slot(i-1))
	}
	s.setSlot(pos, off)
	s.setNSlots(n + 1)
}

// resetData drops every entry but keeps the header links.
func (s slotted) resetData() {
	clear(s.data[HeaderSize:s.size()])
	s.setNSlots(0)
	s.setFree(0)
	s.setUnused(0)
}

func initPage(data []byte, pageID int64, kind pageKind, size int, root bool) slotted {
	clear(data[offKind:HeaderSize])
	data[page.PageTypeOffset] = byte(types.PageTypeBPlusNode)
	s := slotted{data: data}
	s.data[offKind] = byte(kind)
	s.setRoot(root)
	s.setSelfID(pageID)
	s.putU16(offSize, size)
	s.putI64(offLink0, types.NilPageID)
	s.putI64(offLink1, types.NilPageID)
	return s
}

// ── tagged page variants ────────────────────────────────────────────────────

// treePage is a decoded view of a pinned index page.
type treePage interface {
	header() slotted
}

type internalPage struct{ slotted }
type leafPage struct{ slotted }
type overflowPage struct{ slotted }

func (p *internalPage) header() slotted { return p.slotted }
func (p *leafPage) header() slotted { return p.slotted }
func (p *overflowPage) header() slotted { return p.slotted }

func viewPage(data []byte) (treePage, error) {
	s := slotted{data: data}
	if s.size() < MinPageSize || s.size() > len(data) {
		return nil, ErrBadBtreePage
	}
	switch s.kind() {
	case kindInternal:
		return &internalPage{s}, nil
	case kindLeaf:
		return &leafPage{s}, nil
	case kindOverflow:
		return &overflowPage{s}, nil
	default:
		return nil, ErrBadBtreePage
	}
}

// internal page accessors

func (p *internalPage) p0() int64 { return p.i64(offLink0) }
func (p *internalPage) setP0(id int64) { p.putI64(offLink0, id) }

func (p *internalPage) childAt(i int) int64 {
	e := p.entry(i)
	klen := int(binary.LittleEndian.Uint16(e))
	return int64(binary.LittleEndian.Uint64(e[alignUp(internalFixed+klen):]))
}

// child follows a binary search index: -1 means p0.
func (p *internalPage) child(idx int) int64 {
	if idx < 0 {
		return p.p0()
	}
	return p.childAt(idx)
}

func encodeInternalEntry(child int64, key []byte) []byte {
	e := make([]byte, internalEntryLength(len(key)))
	binary.LittleEndian.PutUint16(e, uint16(len(key)))
	copy(e[internalFixed:], key)
	binary.LittleEndian.PutUint64(e[alignUp(internalFixed+len(key)):], uint64(child))
	return e
}

func decodeInternalEntry(e []byte) InternalItem {
	klen := int(binary.LittleEndian.Uint16(e))
	key := make([]byte, klen)
	copy(key, e[internalFixed:])
	return InternalItem{
		ChildPageID: int64(binary.LittleEndian.Uint64(e[alignUp(internalFixed+klen):])),
		Key:         key,
	}
}

// leaf page accessors

func (p *leafPage) prev() int64 { return p.i64(offLink0) }
func (p *leafPage) next() int64 { return p.i64(offLink1) }
func (p *leafPage) setPrev(id int64) { p.putI64(offLink0, id) }
func (p *leafPage) setNext(id int64) { p.putI64(offLink1, id) }

func (p *leafPage) objectCount(i int) int {
	return int(binary.LittleEndian.Uint16(p.entry(i)))
}

func (p *leafPage) objectAt(i, elem int) types.ObjectID {
	e := p.entry(i)
	klen := int(binary.LittleEndian.Uint16(e[2:]))
	start := alignUp(leafFixed+klen) + elem*types.ObjectIDSize
	return types.DecodeObjectID(e[start:])
}

func encodeLeafEntry(key []byte, oids []types.ObjectID) []byte {
	e := make([]byte, leafEntryLength(len(key), len(oids)))
	binary.LittleEndian.PutUint16(e, uint16(len(oids)))
	binary.LittleEndian.PutUint16(e[2:], uint16(len(key)))
	copy(e[leafFixed:], key)
	base := alignUp(leafFixed + len(key))
	for i, oid := range oids {
		oid.Encode(e[base+i*types.ObjectIDSize:])
	}
	return e
}

// leafEntryKey reads the key out of a raw leaf entry.
func leafEntryKey(e []byte) []byte {
	klen := int(binary.LittleEndian.Uint16(e[2:]))
	return e[leafFixed : leafFixed+klen]
}

func internalEntryKey(e []byte) []byte {
	klen := int(binary.LittleEndian.Uint16(e))
	return e[internalFixed : internalFixed+klen]
}
