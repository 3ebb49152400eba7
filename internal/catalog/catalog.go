// Package catalog caches the seller's price list.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
)

// Source fetches the price list.
type Source interface {
	ListServices(ctx context.Context) ([]model.ServiceEntry, error)
	RefreshServices(ctx context.Context) ([]model.ServiceEntry, error)
}

// Catalog holds the price list in memory after the first load.
type Catalog struct {
	source  Source
	logger  *slog.Logger
	entries []model.ServiceEntry
	group   singleflight.Group
	loaded  bool
	mu      sync.RWMutex
	changed common.Notifier[[]model.ServiceEntry]
}

// New creates an empty catalog backed by source.
func New(source Source, logger *slog.Logger) *Catalog {
	return &Catalog{
		source: source,
		logger: common.LoggerOrDefault(logger),
	}
}

// Load fetches the price list once. Later calls return the cached entries.
// Concurrent first calls share a single fetch.
func (c *Catalog) Load(ctx context.Context) ([]model.ServiceEntry, error) {
	c.mu.RLock()
	if c.loaded {
		out := c.snapshot()
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		if c.loaded {
			out := c.snapshot()
			c.mu.RUnlock()
			return out, nil
		}
		c.mu.RUnlock()

		entries, err := c.source.ListServices(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load price list: %w", err)
		}
		return c.store(entries), nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]model.ServiceEntry)), nil
}

// Reload asks the backend to re-read its price list and replaces the cache.
func (c *Catalog) Reload(ctx context.Context) ([]model.ServiceEntry, error) {
	v, err, _ := c.group.Do("reload", func() (any, error) {
		entries, err := c.source.RefreshServices(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh price list: %w", err)
		}
		return c.store(entries), nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]model.ServiceEntry)), nil
}

func (c *Catalog) store(entries []model.ServiceEntry) []model.ServiceEntry {
	c.mu.Lock()
	c.entries = clone(entries)
	c.loaded = true
	out := c.snapshot()
	c.mu.Unlock()

	c.logger.Debug("price list loaded", "entries", len(out))
	c.changed.Notify(clone(out))
	return out
}

// snapshot must be called with c.mu held.
func (c *Catalog) snapshot() []model.ServiceEntry {
	return clone(c.entries)
}

// Loaded reports whether the price list has been fetched.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Entries returns a copy of the cached entries, empty before the first load.
func (c *Catalog) Entries() []model.ServiceEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

// Find returns the entry with id.
func (c *Catalog) Find(id int64) (model.ServiceEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.ServiceEntry{}, false
}

// ByName returns the entry whose name equals name, ignoring surrounding space.
func (c *Catalog) ByName(name string) (model.ServiceEntry, bool) {
	name = strings.TrimSpace(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.Name == name {
			return e, true
		}
	}
	return model.ServiceEntry{}, false
}

// Subscribe registers fn to receive the entries after every load or reload.
func (c *Catalog) Subscribe(fn func([]model.ServiceEntry)) func() {
	return c.changed.Subscribe(fn)
}

func clone(entries []model.ServiceEntry) []model.ServiceEntry {
	out := make([]model.ServiceEntry, len(entries))
	copy(out, entries)
	return out
}
