package bplus

// compactPage rewrites every live entry back to back from the start of the data region
// in slot order, leaving one contiguous free area. When excluded names a slot, that
// slot's entry is written last so it borders the free area.
func compactPage(s slotted, excluded int) {
	n := s.nSlots()
	buf := make([]byte, 0, s.free()-s.unused())
	offsets := make([]int, n)

	for i := 0; i < n; i++ {
		if i == excluded {
			continue
		}
		offsets[i] = len(buf)
		buf = append(buf, s.entry(i)[:s.entryLen(i)]...)
	}
	if excluded >= 0 && excluded < n {
		offsets[excluded] = len(buf)
		buf = append(buf, s.entry(excluded)[:s.entryLen(excluded)]...)
	}

	oldFree := s.free()
	copy(s.data[HeaderSize:], buf)
	clear(s.data[HeaderSize+len(buf) : HeaderSize+oldFree])
	for i, off := range offsets {
		s.setSlot(i, off)
	}
	s.setFree(len(buf))
	s.setUnused(0)
}
