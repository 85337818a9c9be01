package page

import (
	"KeyTreeDB/types"
	"testing"
)

func TestSealVerify(t *testing.T) {
	pg := New(1, 1, types.PageTypeBPlusNode)
	copy(pg.Data[16:], []byte("hello page"))

	Seal(pg.Data, pg.PageType)
	if !Verify(pg.Data) {
		t.Fatalf("sealed page failed verification")
	}
	if types.PageType(pg.Data[PageTypeOffset]) != types.PageTypeBPlusNode {
		t.Errorf("page type byte = %d, want %d", pg.Data[PageTypeOffset], types.PageTypeBPlusNode)
	}

	pg.Data[100] ^= 0xFF
	if Verify(pg.Data) {
		t.Errorf("corrupted page passed verification")
	}
}

func TestVerifyZeroPage(t *testing.T) {
	if !Verify(make([]byte, PageSize)) {
		t.Errorf("fresh zero page should verify")
	}
}
