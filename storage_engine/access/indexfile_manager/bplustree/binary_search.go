package bplus

import "KeyTreeDB/types"

// binarySearch finds key among n sorted keys.
// found=true: idx is the matching slot.
// found=false: idx is the largest slot whose key is below key, or -1 if every key is greater.
func binarySearch(kdesc types.KeyDesc, n int, keyAt func(i int) []byte, key []byte) (bool, int) {
	if n == 0 {
		return false, -1
	}

	low, high := 0, n
	mid := (low + high) / 2
	for {
		c := compareKeys(kdesc, key, keyAt(mid))
		if c == 0 {
			return true, mid
		}
		if c > 0 {
			low = mid
		} else {
			high = mid
		}
		mid = (low + high) / 2
		if low >= mid {
			break
		}
	}

	// mid == low here; it was either never compared or compared GREATER
	switch c := compareKeys(kdesc, key, keyAt(mid)); {
	case c == 0:
		return true, mid
	case c > 0:
		return false, mid
	default:
		return false, -1
	}
}

// searchInternal locates the child to descend into: idx -1 means p0.
func searchInternal(p *internalPage, kdesc types.KeyDesc, key []byte) (bool, int) {
	return binarySearch(kdesc, p.nSlots(), p.key, key)
}

func searchLeaf(p *leafPage, kdesc types.KeyDesc, key []byte) (bool, int) {
	return binarySearch(kdesc, p.nSlots(), p.key, key)
}
