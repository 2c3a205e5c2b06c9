// Package fieldcache caches the other-fields lookup used while editing a
// condition configuration.
//
// The editor asks for "every field except the one being edited" each time a
// condition row is opened. Entries are keyed by the edited field's id and
// live until invalidated; concurrent misses for the same id share one store
// query. Each Cache is an explicit object owned by its caller, one per
// editing session or per server.
package fieldcache

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/solatis/condfield/internal/types"
)

// Name labels this cache in metrics.
const Name = "otherfields"

// Lister loads the fields other than exclude.
type Lister interface {
	ListOtherFields(ctx context.Context, exclude types.FieldID) ([]types.FieldRecord, error)
}

// Observer receives cache events. *metrics.Collector implements it.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheSize(cache string, n int)
}

// Cache memoizes Lister results per field id.
type Cache struct {
	lister   Lister
	observer Observer

	mu      sync.RWMutex
	entries map[types.FieldID][]types.FieldRecord
	gen     uint64

	group singleflight.Group
}

// New creates an empty cache over lister. observer may be nil.
func New(lister Lister, observer Observer) *Cache {
	return &Cache{
		lister:   lister,
		observer: observer,
		entries:  make(map[types.FieldID][]types.FieldRecord),
	}
}

// OtherFields returns every field except id. The returned slice is shared
// and must not be modified.
func (c *Cache) OtherFields(ctx context.Context, id types.FieldID) ([]types.FieldRecord, error) {
	c.mu.RLock()
	fields, ok := c.entries[id]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		c.hit()
		return fields, nil
	}
	c.miss()

	v, err, _ := c.group.Do(strconv.FormatInt(int64(id), 10), func() (interface{}, error) {
		fields, err := c.lister.ListOtherFields(ctx, id)
		if err != nil {
			return nil, err
		}
		if fields == nil {
			fields = []types.FieldRecord{}
		}
		c.mu.Lock()
		// An invalidation during the load makes this result stale.
		if c.gen == gen {
			c.entries[id] = fields
		}
		n := len(c.entries)
		c.mu.Unlock()
		c.size(n)
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.FieldRecord), nil
}

// Invalidate drops every entry. Call it after any field is created,
// renamed, reordered or deleted: each entry lists every other field.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[types.FieldID][]types.FieldRecord)
	c.gen++
	c.mu.Unlock()
	c.size(0)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) hit() {
	if c.observer != nil {
		c.observer.CacheHit(Name)
	}
}

func (c *Cache) miss() {
	if c.observer != nil {
		c.observer.CacheMiss(Name)
	}
}

func (c *Cache) size(n int) {
	if c.observer != nil {
		c.observer.CacheSize(Name, n)
	}
}
