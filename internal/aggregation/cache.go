package aggregation

import (
	"container/list"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ViewCache memoizes computed views keyed by (view request, predicate
// fingerprint) within one catalog generation. The cache is bounded with LRU
// eviction — filter combinations are high cardinality — and is invalidated
// wholesale when the generation advances: an entry computed against an old
// generation is never returned.
type ViewCache struct {
	mu         sync.Mutex
	capacity   int
	generation uint64
	entries    map[string]*list.Element
	order      *list.List

	// group dedupes concurrent misses on the same key so one computation
	// serves all concurrent identical requests.
	group singleflight.Group
}

type viewCacheEntry struct {
	key  string
	view View
}

// NewViewCache creates a cache holding at most capacity views per generation.
func NewViewCache(capacity int) *ViewCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &ViewCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// GetOrCompute returns the cached view for key under generation, computing
// and storing it on a miss. Views are pure functions of (snapshot,
// predicate), so a racing duplicate computation would be wasted work but
// never wrong; singleflight keeps it to one computation per key.
func (c *ViewCache) GetOrCompute(generation uint64, key string, compute func() (View, error)) (View, error) {
	if view, ok := c.lookup(generation, key); ok {
		return view, nil
	}

	flightKey := fmt.Sprintf("%d:%s", generation, key)
	result, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		// Double-check after acquiring the flight: a previous caller may
		// have stored the entry between our lookup and here.
		if view, ok := c.lookup(generation, key); ok {
			return view, nil
		}
		view, err := compute()
		if err != nil {
			return View{}, err
		}
		c.store(generation, key, view)
		return view, nil
	})
	if err != nil {
		return View{}, err
	}
	return result.(View), nil
}

// Len returns the number of cached entries for the current generation.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *ViewCache) lookup(generation uint64, key string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverLocked(generation)
	if generation != c.generation {
		// A reader still holding an older snapshot computes uncached:
		// entries only answer for the generation they were stored under,
		// never for a key collision across generations.
		return View{}, false
	}

	elem, ok := c.entries[key]
	if !ok {
		return View{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*viewCacheEntry).view, true
}

func (c *ViewCache) store(generation uint64, key string, view View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverLocked(generation)
	if generation != c.generation {
		// A newer generation arrived while we were computing; the result
		// belongs to a superseded snapshot and must not be cached.
		return
	}

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*viewCacheEntry).view = view
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.entries, oldest.Value.(*viewCacheEntry).key)
			c.order.Remove(oldest)
		}
	}

	c.entries[key] = c.order.PushFront(&viewCacheEntry{key: key, view: view})
}

// rolloverLocked drops every entry when a newer generation is observed.
func (c *ViewCache) rolloverLocked(generation uint64) {
	if generation > c.generation {
		c.generation = generation
		c.entries = make(map[string]*list.Element)
		c.order = list.New()
	}
}
