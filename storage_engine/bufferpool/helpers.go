package bufferpool

import (
	"KeyTreeDB/storage_engine/page"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.pages),
		Capacity:   bp.capacity,
		Hits:       bp.metrics.nHits,
		Misses:     bp.metrics.nMisses,
		Evictions:  bp.metrics.nEvictions,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	for _, pg := range bp.pages {
		pg.RLock()
		if pg.PinCount > 0 {
			stats.PinnedPages++
		}
		if pg.IsDirty {
			stats.DirtyPages++
		}
		pg.RUnlock()
	}

	return stats
}

func (s BufferPoolStats) String() string {
	return fmt.Sprintf("pages %d/%d (%s cached), pinned %d, dirty %d, hits %s, misses %s, evictions %s, hit rate %.1f%%",
		s.TotalPages, s.Capacity,
		humanize.IBytes(uint64(s.TotalPages)*page.PageSize),
		s.PinnedPages, s.DirtyPages,
		humanize.Comma(int64(s.Hits)), humanize.Comma(int64(s.Misses)), humanize.Comma(int64(s.Evictions)),
		s.HitRate*100)
}

// Reset flushes and clears all pages from the buffer pool
func (bp *BufferPool) Reset() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, pg := range bp.pages {
		pg.Lock()
		if pg.IsDirty && bp.store != nil {
			if err := bp.writeLocked(pg); err != nil {
				pg.Unlock()
				return errors.Wrap(err, "failed to flush page during reset")
			}
		}
		pg.Unlock()
	}

	bp.pages = make(map[int64]*page.Page, bp.capacity)
	bp.accessOrder = make([]int64, 0, bp.capacity)
	return nil
}

// Size returns the current number of pages in the buffer pool
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// Capacity returns the maximum capacity of the buffer pool
func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

// PinCount reports the pin count of a cached page, 0 if it is not cached.
func (bp *BufferPool) PinCount(pageID int64) int32 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	pg, ok := bp.pages[pageID]
	if !ok {
		return 0
	}
	pg.RLock()
	defer pg.RUnlock()
	return pg.PinCount
}

// MarkDirty marks a page as dirty (modified)
func (bp *BufferPool) MarkDirty(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return errors.Wrapf(ErrPageNotCached, "page %d", pageID)
	}

	pg.Lock()
	pg.IsDirty = true
	pg.Unlock()
	return nil
}
