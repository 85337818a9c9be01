package bufferpool

import (
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

/*
This file is the main file of the bufferpool
The buffer pool works on LRU based caching mechanism
and holds access to the page store for flushing the pages in the cache onto the disk
similarly if page not found in the cache, the store loads the page and adds it in the cache for future access

Pages are identified by globalPageID.
Every FetchPage / FetchNewPage pins; the caller owes exactly one UnpinPage per pin.
*/

var (
	ErrAllPinned     = errors.New("all pages are pinned, cannot evict")
	ErrPageNotCached = errors.New("page not in buffer pool")
)

// NewBufferPool creates a new buffer pool with the given capacity
func NewBufferPool(capacity int, store diskmanager.Store, logger *zap.Logger) *BufferPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BufferPool{
		pages:       make(map[int64]*page.Page, capacity),
		capacity:    capacity,
		store:       store,
		accessOrder: make([]int64, 0, capacity),
		metrics:     newPoolMetrics(),
		logger:      logger,
	}
}

// Collectors returns the pool's prometheus counters for registration.
func (bp *BufferPool) Collectors() []prometheus.Collector {
	m := bp.metrics
	return []prometheus.Collector{m.hits, m.misses, m.evictions, m.flushes}
}

// FetchPage retrieves a page from the buffer pool, loading from the store if necessary
// Returns the page with pin count incremented
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if pg, exists := bp.pages[pageID]; exists {
		bp.logger.Debug("bufferpool hit", zap.Int64("pageID", pageID), zap.Int32("pinCount", pg.PinCount))
		bp.metrics.hits.Inc()
		bp.metrics.nHits++
		bp.updateAccessOrder(pageID)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	bp.logger.Debug("bufferpool miss", zap.Int64("pageID", pageID))
	bp.metrics.misses.Inc()
	bp.metrics.nMisses++
	if bp.store == nil {
		return nil, errors.New("page store not set")
	}

	pg, err := bp.store.ReadPage(pageID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read page %d", pageID)
	}

	// Add to buffer pool (may trigger eviction)
	if err := bp.addPage(pg); err != nil {
		return nil, errors.Wrap(err, "failed to add page to buffer pool")
	}

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	return pg, nil
}

// FetchNewPage pins a frame for a page that was just allocated: nothing is read
// from the store, the frame starts zeroed and dirty.
func (bp *BufferPool) FetchNewPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if pg, exists := bp.pages[pageID]; exists {
		// a previous incarnation is still cached, reuse the frame
		pg.Lock()
		clear(pg.Data)
		pg.PageType = types.PageTypeBPlusNode
		pg.IsDirty = true
		pg.PinCount++
		pg.Unlock()
		bp.updateAccessOrder(pageID)
		return pg, nil
	}

	pg := page.New(pageID, diskmanager.FileOf(pageID), types.PageTypeBPlusNode)
	pg.IsDirty = true
	pg.PinCount = 1

	if err := bp.addPage(pg); err != nil {
		return nil, errors.Wrapf(err, "failed to add new page %d to buffer pool", pageID)
	}
	return pg, nil
}

// NewPage asks the store for the next available page ID for the given
// file, constructs a blank Page struct entirely in RAM, marks it dirty so
// the BufferPool will eventually flush it, and pins it for the caller.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	if bp.store == nil {
		return nil, errors.New("page store not set")
	}

	pageID, err := bp.store.AllocatePage(fileID, pageType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate page")
	}

	pg, err := bp.FetchNewPage(pageID)
	if err != nil {
		return nil, err
	}
	pg.Lock()
	pg.PageType = pageType
	pg.Unlock()
	return pg, nil
}

// UnpinPage decrements the pin count for a page
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return errors.Wrapf(ErrPageNotCached, "page %d", pageID)
	}

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if isDirty {
		pg.IsDirty = true
	}
	return nil
}

// FlushPage writes a specific page to the store if dirty
func (bp *BufferPool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return errors.Wrapf(ErrPageNotCached, "page %d", pageID)
	}

	pg.Lock()
	defer pg.Unlock()

	if !pg.IsDirty {
		return nil
	}
	return bp.writeLocked(pg)
}

// FlushAllPages writes all dirty pages to the store
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.store == nil {
		return errors.New("page store not set")
	}

	bp.logger.Debug("bufferpool flush all", zap.Int("poolSize", len(bp.pages)))

	for pageID, pg := range bp.pages {
		pg.Lock()
		if pg.IsDirty {
			if err := bp.writeLocked(pg); err != nil {
				pg.Unlock()
				return errors.Wrapf(err, "failed to flush page %d", pageID)
			}
		}
		pg.Unlock()
	}
	return nil
}

// writeLocked assumes the page lock is held
func (bp *BufferPool) writeLocked(pg *page.Page) error {
	if err := bp.store.WritePage(pg); err != nil {
		return errors.Wrapf(err, "failed to flush page %d", pg.ID)
	}
	pg.IsDirty = false
	bp.metrics.flushes.Inc()
	bp.logger.Debug("bufferpool flush", zap.Int64("pageID", pg.ID))
	return nil
}

// addPage adds a page to the buffer pool, evicting if necessary
// Assumes lock is already held
func (bp *BufferPool) addPage(pg *page.Page) error {
	if _, exists := bp.pages[pg.ID]; exists {
		bp.updateAccessOrder(pg.ID)
		return nil
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLRU(); err != nil {
			return errors.Wrap(err, "failed to evict page")
		}
	}

	bp.pages[pg.ID] = pg
	bp.updateAccessOrder(pg.ID)
	return nil
}

// evictLRU evicts the least recently used unpinned page
// Assumes lock is already held
func (bp *BufferPool) evictLRU() error {
	for i := 0; i < len(bp.accessOrder); i++ {
		pageID := bp.accessOrder[i]
		pg, exists := bp.pages[pageID]

		if !exists {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}

		pg.Lock()
		if pg.PinCount > 0 {
			pg.Unlock()
			continue
		}

		bp.logger.Debug("bufferpool evict", zap.Int64("pageID", pageID), zap.Bool("dirty", pg.IsDirty))
		if pg.IsDirty && bp.store != nil {
			if err := bp.writeLocked(pg); err != nil {
				pg.Unlock()
				return errors.Wrapf(err, "failed to write page %d during eviction", pageID)
			}
		}
		pg.Unlock()

		delete(bp.pages, pageID)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		bp.metrics.evictions.Inc()
		bp.metrics.nEvictions++
		return nil
	}

	return ErrAllPinned
}

// updateAccessOrder moves a page to the end of access order (most recently used)
// Assumes lock is already held
func (bp *BufferPool) updateAccessOrder(pageID int64) {
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, pageID)
}
