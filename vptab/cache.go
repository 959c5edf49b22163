package vptab

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	idxapi "github.com/viant/sqlite-vptree/index"
)

// DefaultCacheSize bounds the number of cached indexes across connections.
const DefaultCacheSize = 64

// treeCache shares built indexes across connections, keyed by
// db path, source table, metric and index kind.
type treeCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *cacheEntry]
}

var sharedCache = newTreeCache(DefaultCacheSize)

func newTreeCache(size int) *treeCache {
	entries, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		panic(err)
	}
	return &treeCache{entries: entries}
}

// SetCacheSize resizes the shared cache, evicting the least recently used
// indexes when shrinking.
func SetCacheSize(size int) {
	if size > 0 {
		sharedCache.entries.Resize(size)
	}
}

type cacheEntry struct {
	mu       sync.RWMutex
	idx      idxapi.Index
	building bool
	cond     *sync.Cond
}

func newCacheEntry() *cacheEntry {
	e := &cacheEntry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *cacheEntry) get() idxapi.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

func (e *cacheEntry) set(idx idxapi.Index) {
	e.mu.Lock()
	e.idx = idx
	e.mu.Unlock()
}

func (e *cacheEntry) waitForBuild() idxapi.Index {
	e.mu.Lock()
	for e.building {
		e.cond.Wait()
	}
	idx := e.idx
	e.mu.Unlock()
	return idx
}

func (e *cacheEntry) startBuild() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idx != nil || e.building {
		return false
	}
	e.building = true
	return true
}

func (e *cacheEntry) finishBuild() {
	e.mu.Lock()
	e.building = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

func cacheKey(dbPath, table, metric, kind string) string {
	return dbPath + "|" + table + "|" + metric + "|" + kind
}

func (c *treeCache) entry(key string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries.Get(key); ok {
		return e
	}
	e := newCacheEntry()
	c.entries.Add(key, e)
	return e
}

// invalidate drops cached indexes of table in every database.
func (c *treeCache) invalidate(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, key := range c.entries.Keys() {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) < 2 || !strings.EqualFold(parts[1], table) {
			continue
		}
		if e, ok := c.entries.Peek(key); ok {
			e.set(nil)
			count++
		}
	}
	return count
}

// InvalidateCache clears cached indexes built over table across active
// connections and returns how many were dropped.
func InvalidateCache(table string) int {
	return sharedCache.invalidate(table)
}
