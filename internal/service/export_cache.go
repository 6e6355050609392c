package service

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/edirooss/livesrc/internal/domain/catalog"
)

// Format selects a playlist serialization.
type Format string

const (
	FormatTxt Format = "txt"
	FormatM3U Format = "m3u"
)

type cachedExport struct {
	version uint64
	body    string
}

// ExportCache serves catalog serializations, re-rendering only when the
// catalog version moved. Concurrent renders of one format are coalesced.
type ExportCache struct {
	log     *zap.Logger
	catalog *catalog.Catalog

	mu      sync.RWMutex
	entries map[Format]cachedExport

	sg singleflight.Group
}

// NewExportCache returns an empty cache over cat.
func NewExportCache(log *zap.Logger, cat *catalog.Catalog) *ExportCache {
	return &ExportCache{
		log:     log.Named("export_cache"),
		catalog: cat,
		entries: make(map[Format]cachedExport),
	}
}

// Get returns the serialization in format f and whether it came from cache.
func (c *ExportCache) Get(f Format) (string, bool) {
	version := c.catalog.Version()

	c.mu.RLock()
	e, ok := c.entries[f]
	c.mu.RUnlock()
	if ok && e.version == version {
		return e.body, true
	}

	v, _, _ := c.sg.Do(string(f), func() (any, error) {
		// version is read before rendering so a concurrent change forces
		// the next caller to render again
		version := c.catalog.Version()
		c.mu.RLock()
		e, ok := c.entries[f]
		c.mu.RUnlock()
		if ok && e.version == version {
			return e.body, nil
		}

		var body string
		switch f {
		case FormatM3U:
			body = c.catalog.ToM3UString()
		default:
			body = c.catalog.ToTxtString()
		}

		c.mu.Lock()
		c.entries[f] = cachedExport{version: version, body: body}
		c.mu.Unlock()
		c.log.Debug("export rendered", zap.String("format", string(f)), zap.Uint64("version", version))
		return body, nil
	})
	return v.(string), false
}

// Invalidate drops every cached serialization.
func (c *ExportCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[Format]cachedExport)
	c.mu.Unlock()
}
