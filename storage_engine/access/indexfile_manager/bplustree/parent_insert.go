package bplus

// insertInternalEntry absorbs a child's split item at position pos of an internal
// page, splitting the page in turn when the item does not fit.
func (ins *inserter) insertInternalEntry(pageID int64, p *internalPage, pos int, item InternalItem) (bool, InternalItem, error) {
	entry := encodeInternalEntry(item.ChildPageID, item.Key)
	if p.totalFree() >= len(entry)+SlotSize {
		placeEntry(p.slotted, pos, entry)
		return false, InternalItem{}, touch(ins.cache, pageID)
	}
	return ins.splitInternal(pageID, p, pos, entry)
}
