// Package store persists the watched codes and monitor options as JSON
// documents keyed by instrument class, one document per category.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fevolq/money/internal/cache"
)

// Category names double as the backing file names.
const (
	CategoryWorth   = "worth"
	CategoryMonitor = "monitor"
	CategoryHistory = "history_monitor"
)

// fileStore is the shared cache-aside document store. Reads populate the
// expiring cache with no TTL; writes go straight to disk and evict the
// cached bytes. The mutex serializes read-modify-write cycles so
// concurrent writers on the same category cannot lose updates.
type fileStore struct {
	path  string
	cache *cache.Cache
	mu    sync.Mutex
}

func newFileStore(dir, category string, c *cache.Cache) *fileStore {
	return &fileStore{
		path:  filepath.Join(dir, category+".json"),
		cache: c,
	}
}

func (f *fileStore) cacheKey() string {
	return "store:" + filepath.Base(f.path)
}

// load decodes the document into v. Decoding from cached raw bytes gives
// every caller an independent copy of the backing data.
func (f *fileStore) load(v any) error {
	if raw, ok := f.cache.Get(f.cacheKey()); ok {
		return json.Unmarshal(raw.([]byte), v)
	}

	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		raw = []byte("{}")
	} else if err != nil {
		return fmt.Errorf("reading %s: %w", f.path, err)
	}

	f.cache.Set(f.cacheKey(), raw, 0)
	return json.Unmarshal(raw, v)
}

// save writes the document to disk and evicts the cache entry.
func (f *fileStore) save(v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", f.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}

	f.cache.Delete(f.cacheKey())
	return nil
}

// Stores bundles the three category stores over one data directory.
type Stores struct {
	Worth   *WorthStore
	Monitor *MonitorStore
	History *HistoryStore
}

// New creates the category stores rooted at dir.
func New(dir string, c *cache.Cache) *Stores {
	return &Stores{
		Worth:   NewWorthStore(dir, c),
		Monitor: NewMonitorStore(dir, c),
		History: NewHistoryStore(dir, c),
	}
}
