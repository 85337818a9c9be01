package storageengine

import (
	"KeyTreeDB/storage_engine/page"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		BufferPoolSize:   100,
		PageSize:         page.PageSize,
		CatalogCacheSize: 1024,
		Backend:          BackendFile,
	}
}

// WithBufferPoolSize sets how many pages the buffer pool caches.
func WithBufferPoolSize(n int) Option {
	return func(c *Config) { c.BufferPoolSize = n }
}

// WithPageSize sets the logical page size used by indexes created from now on.
// Existing indexes keep the size they were created with.
func WithPageSize(n int) Option {
	return func(c *Config) { c.PageSize = n }
}

func WithCatalogCacheSize(n int64) Option {
	return func(c *Config) { c.CatalogCacheSize = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithPebbleBackend keeps pages in a pebble database instead of index files.
func WithPebbleBackend() Option {
	return func(c *Config) { c.Backend = BackendPebble }
}

// WithRegisterer registers the engine's collectors with r instead of a private registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = r }
}
