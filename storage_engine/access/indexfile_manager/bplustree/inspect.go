// Index inspection for debugging.
// Use tree.Dump(w) for a human-readable level-order dump of the pages, tree.Stats() for counts.

package bplus

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// TreeStats summarises the shape of a tree.
type TreeStats struct {
	Height        int
	InternalPages int
	LeafPages     int
	Entries       int
	UsedBytes     int
	CapacityBytes int
}

func (s TreeStats) Fill() float64 {
	if s.CapacityBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.CapacityBytes)
}

func (s TreeStats) String() string {
	return fmt.Sprintf("height %d, %s internal + %s leaf pages, %s entries, %s of %s used (%.1f%%)",
		s.Height,
		humanize.Comma(int64(s.InternalPages)), humanize.Comma(int64(s.LeafPages)),
		humanize.Comma(int64(s.Entries)),
		humanize.IBytes(uint64(s.UsedBytes)), humanize.IBytes(uint64(s.CapacityBytes)),
		s.Fill()*100)
}

// walkLevels visits the tree breadth first. visit gets each pinned page's view.
func (t *BPlusTree) walkLevels(visit func(level int, pageID int64, tp treePage)) error {
	queue := []int64{t.root}
	level := 0
	for len(queue) > 0 {
		size := len(queue)
		for _, pageID := range queue[:size] {
			_, tp, err := pinPage(t.cache, pageID)
			if err != nil {
				return err
			}
			visit(level, pageID, tp)
			if p, ok := tp.(*internalPage); ok {
				queue = append(queue, p.p0())
				for i := 0; i < p.nSlots(); i++ {
					queue = append(queue, p.childAt(i))
				}
			}
			if err := t.cache.UnpinPage(pageID, false); err != nil {
				return err
			}
		}
		queue = queue[size:]
		level++
	}
	return nil
}

// Stats walks the whole tree.
func (t *BPlusTree) Stats() (TreeStats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s TreeStats
	err := t.walkLevels(func(level int, _ int64, tp treePage) {
		hdr := tp.header()
		if level+1 > s.Height {
			s.Height = level + 1
		}
		s.UsedBytes += hdr.usedBytes()
		s.CapacityBytes += hdr.capacity()
		switch tp.(type) {
		case *internalPage:
			s.InternalPages++
		case *leafPage:
			s.LeafPages++
			s.Entries += hdr.nSlots()
		}
	})
	return s, err
}

// Dump writes every page of the tree, level by level.
func (t *BPlusTree) Dump(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Index %s: root page %d, page size %d\n", t.name, t.root, t.pageSize)
	lastLevel := -1
	return t.walkLevels(func(level int, pageID int64, tp treePage) {
		if level != lastLevel {
			p("  Level %d:\n", level)
			lastLevel = level
		}
		hdr := tp.header()
		switch n := tp.(type) {
		case *internalPage:
			keys := make([]string, n.nSlots())
			children := []string{fmt.Sprint(n.p0())}
			for i := range keys {
				keys[i] = FormatKey(t.kdesc, n.key(i))
				children = append(children, fmt.Sprint(n.childAt(i)))
			}
			p("    [page %d] INTERNAL keys=[%s] children=[%s] free=%d\n",
				pageID, strings.Join(keys, " "), strings.Join(children, " "), hdr.totalFree())
		case *leafPage:
			p("    [page %d] LEAF n=%d prev=%d next=%d free=%d\n",
				pageID, n.nSlots(), n.prev(), n.next(), hdr.totalFree())
			for i := 0; i < n.nSlots(); i++ {
				p("      %s -> %s\n", FormatKey(t.kdesc, n.key(i)), n.objectAt(i, 0))
			}
		default:
			p("    [page %d] %s\n", pageID, hdr.kind())
		}
	})
}
