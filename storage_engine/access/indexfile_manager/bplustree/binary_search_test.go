package bplus

import (
	"math/rand"
	"testing"
)

func searchInts(keys []int32, k int32) (bool, int) {
	return binarySearch(IntKeyDesc(), len(keys), func(i int) []byte { return IntKey(keys[i]) }, IntKey(k))
}

func TestBinarySearch(t *testing.T) {
	keys := []int32{10, 20, 30, 40, 50}
	tests := []struct {
		key   int32
		found bool
		idx   int
	}{
		{10, true, 0},
		{30, true, 2},
		{50, true, 4},
		{5, false, -1},
		{15, false, 0},
		{45, false, 3},
		{99, false, 4},
	}
	for _, tt := range tests {
		found, idx := searchInts(keys, tt.key)
		if found != tt.found || idx != tt.idx {
			t.Errorf("search(%d) = (%v, %d), want (%v, %d)", tt.key, found, idx, tt.found, tt.idx)
		}
	}

	if found, idx := searchInts(nil, 1); found || idx != -1 {
		t.Errorf("empty search = (%v, %d)", found, idx)
	}
}

func TestBinarySearchAgainstLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n <= 33; n++ {
		keys := make([]int32, n)
		v := int32(-40)
		for i := range keys {
			v += int32(1 + rng.Intn(4))
			keys[i] = v
		}
		for k := int32(-45); k <= v+5; k++ {
			wantFound, wantIdx := false, -1
			for i, x := range keys {
				if x == k {
					wantFound, wantIdx = true, i
					break
				}
				if x < k {
					wantIdx = i
				}
			}
			found, idx := searchInts(keys, k)
			if found != wantFound || idx != wantIdx {
				t.Fatalf("n=%d search(%d) = (%v, %d), want (%v, %d)", n, k, found, idx, wantFound, wantIdx)
			}
		}
	}
}
