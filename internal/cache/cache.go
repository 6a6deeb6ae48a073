package cache

import (
	"maps"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultIndexField = "id"
	DefaultCapacity   = 100
)

// preallocLimit caps how many arena slots New reserves up front.
const preallocLimit = 1024

// maxCapacity is the largest capacity the int32 slot indices can address.
const maxCapacity = math.MaxInt32

// Record is a stored value: a set of named fields, one of which holds the
// primary key.
type Record = map[string]any

// Config controls keying, capacity and expiration.
//
// Zero values select the defaults:
//   - IndexField "" means "id"
//   - Capacity <= 0 means DefaultCapacity; values above math.MaxInt32 are clamped
//   - MaxAge <= 0 disables expiration; reads then refresh recency instead
//   - Clock nil means time.Now
//   - Logger nil means no logging
type Config struct {
	IndexField  string
	IndexFields []string
	Capacity    int
	MaxAge      time.Duration

	Clock  func() time.Time
	Logger *zerolog.Logger
}

// Entry is a snapshot of a stored record as returned by Put. Value is a copy
// and may be modified freely.
type Entry struct {
	Key       any
	Value     Record
	UpdatedAt time.Time
}

// Cache is a capacity-bounded LRU store of records with optional secondary
// indexes and whole-store expiration.
//
// Cache is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access themselves.
type Cache struct {
	indexField string
	capacity   int
	maxAge     time.Duration
	clock      func() time.Time
	log        zerolog.Logger

	items   map[any]int32
	lru     recency
	indexes secondary
}

// New constructs an empty cache. New never returns a nil Cache.
func New(cfg Config) *Cache {
	if cfg.IndexField == "" {
		cfg.IndexField = DefaultIndexField
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	cfg.Capacity = min(cfg.Capacity, maxCapacity)
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Cache{
		indexField: cfg.IndexField,
		capacity:   cfg.Capacity,
		maxAge:     cfg.MaxAge,
		clock:      cfg.Clock,
		log:        log,
		items:      make(map[any]int32, min(cfg.Capacity, preallocLimit)),
		lru:        newRecency(min(cfg.Capacity, preallocLimit)),
		indexes:    newSecondary(cfg.IndexField, cfg.IndexFields),
	}
}

// Put inserts rec, or replaces the record stored under the same primary key.
// Either way the entry becomes the most recently used.
//
// The cache keeps a shallow copy of rec, so later changes to the caller's
// map do not reach the stored record or its index entries. Nested maps and
// slices are still shared.
//
// Put reports false and changes nothing when rec has no usable primary key:
// the field is missing, nil, NaN, or of a type that cannot be compared.
func (c *Cache) Put(rec Record) (Entry, bool) {
	key, ok := rec[c.indexField]
	if !ok || !usableKey(key) {
		return Entry{}, false
	}
	rec = maps.Clone(rec)
	now := c.clock()

	if i, exists := c.items[key]; exists {
		s := &c.lru.slots[i]
		c.indexes.drop(key, s.value)
		s.value = rec
		s.updatedAt = now
		c.lru.moveToFront(i)
		c.indexes.add(key, rec)
		return s.entry(), true
	}

	i := c.lru.alloc(key, rec, now)
	c.lru.pushFront(i)
	c.items[key] = i
	c.indexes.add(key, rec)

	e := c.lru.slots[i].entry()
	c.evictOverflow()
	return e, true
}

// Get returns the record stored under key.
//
// Without MaxAge a hit moves the entry to the front. With MaxAge a hit leaves
// recency alone, and a hit on an entry older than MaxAge clears the whole
// cache and reports a miss. The returned record is a copy.
func (c *Cache) Get(key any) (Record, bool) {
	if !hashable(key) {
		return nil, false
	}
	i, ok := c.items[key]
	if !ok {
		return nil, false
	}

	s := &c.lru.slots[i]
	if c.maxAge > 0 {
		if c.expired(s) {
			c.invalidate(key)
			return nil, false
		}
	} else {
		c.lru.moveToFront(i)
	}
	return maps.Clone(s.value), true
}

// GetByIndex looks a record up through a secondary field. Lookups on the
// primary field go straight to Get. Unconfigured fields always miss.
func (c *Cache) GetByIndex(field string, value any) (Record, bool) {
	if field == c.indexField {
		return c.Get(value)
	}
	key, ok := c.indexes.resolve(field, value)
	if !ok {
		return nil, false
	}
	return c.Get(key)
}

// Peek returns the record under key without touching recency and without
// triggering invalidation. Stale entries still report a miss.
func (c *Cache) Peek(key any) (Record, bool) {
	if !hashable(key) {
		return nil, false
	}
	i, ok := c.items[key]
	if !ok {
		return nil, false
	}
	s := &c.lru.slots[i]
	if c.expired(s) {
		return nil, false
	}
	return maps.Clone(s.value), true
}

// Contains reports whether key is resident, ignoring expiration.
func (c *Cache) Contains(key any) bool {
	if !hashable(key) {
		return false
	}
	_, ok := c.items[key]
	return ok
}

// Remove deletes the entry under key and returns its record. The cache no
// longer references the returned map.
func (c *Cache) Remove(key any) (Record, bool) {
	if !hashable(key) {
		return nil, false
	}
	i, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return c.removeSlot(i), true
}

// SetCapacity changes the capacity and evicts least recently used entries
// until the cache fits. Values below 1 are treated as 1 and values above
// math.MaxInt32 as math.MaxInt32. It returns the number of entries evicted.
func (c *Cache) SetCapacity(n int) int {
	c.capacity = min(max(n, 1), maxCapacity)
	return c.evictOverflow()
}

// Clear removes every entry. Clearing an empty cache is a no-op.
func (c *Cache) Clear() {
	c.clearAll()
}

// Len returns the number of resident entries, stale ones included.
func (c *Cache) Len() int {
	return len(c.items)
}

// Capacity returns the current capacity.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Keys returns primary keys in MRU -> LRU order.
func (c *Cache) Keys() []any {
	out := make([]any, 0, len(c.items))
	for i := c.lru.head; i != nilSlot; i = c.lru.slots[i].next {
		out = append(out, c.lru.slots[i].key)
	}
	return out
}

func (c *Cache) evictOverflow() int {
	evicted := 0
	for len(c.items) > c.capacity {
		if !c.evictTail() {
			break
		}
		evicted++
	}
	return evicted
}

func (c *Cache) evictTail() bool {
	if c.lru.tail == nilSlot {
		return false
	}
	key := c.lru.slots[c.lru.tail].key
	c.removeSlot(c.lru.tail)
	c.log.Debug().
		Interface("key", key).
		Int("capacity", c.capacity).
		Msg("evicted least recently used entry")
	return true
}

func (c *Cache) removeSlot(i int32) Record {
	s := c.lru.slots[i]
	c.lru.unlink(i)
	delete(c.items, s.key)
	c.indexes.drop(s.key, s.value)
	c.lru.release(i)
	return s.value
}

func (c *Cache) clearAll() {
	clear(c.items)
	c.lru.reset()
	c.indexes.reset()
}

func (s *slot) entry() Entry {
	return Entry{Key: s.key, Value: maps.Clone(s.value), UpdatedAt: s.updatedAt}
}

func usableKey(v any) bool {
	if !hashable(v) {
		return false
	}
	switch f := v.(type) {
	case float64:
		return !math.IsNaN(f)
	case float32:
		return !math.IsNaN(float64(f))
	}
	return true
}
