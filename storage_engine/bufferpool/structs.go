package bufferpool

import (
	diskmanager "KeyTreeDB/storage_engine/disk_manager"
	"KeyTreeDB/storage_engine/page"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ############################################# BUFFER POOL #############################################

// BufferPool manages cached pages in memory with LRU eviction
type BufferPool struct {
	pages       map[int64]*page.Page // pageID -> Page
	capacity    int
	store       diskmanager.Store
	accessOrder []int64 // LRU tracking: most recently used at end
	metrics     *poolMetrics
	logger      *zap.Logger
	mu          sync.Mutex
}

// BufferPoolStats is a point-in-time view of the pool
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	HitRate     float64
}

type poolMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	flushes   prometheus.Counter

	// mirrored as plain counters so GetStats doesn't need to scrape prometheus
	nHits, nMisses, nEvictions uint64
}

func newPoolMetrics() *poolMetrics {
	return &poolMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keytree", Subsystem: "bufferpool", Name: "hits_total",
			Help: "Page fetches served from the pool.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keytree", Subsystem: "bufferpool", Name: "misses_total",
			Help: "Page fetches that went to the page store.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keytree", Subsystem: "bufferpool", Name: "evictions_total",
			Help: "Pages evicted to make room.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keytree", Subsystem: "bufferpool", Name: "flushes_total",
			Help: "Dirty pages written back to the page store.",
		}),
	}
}
