package cache

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants walks the recency list in both directions and compares it
// with the primary and secondary indexes.
func checkInvariants(t *testing.T, c *Cache) {
	t.Helper()

	seen := 0
	prev := nilSlot
	for i := c.lru.head; i != nilSlot; i = c.lru.slots[i].next {
		s := c.lru.slots[i]
		require.Equal(t, prev, s.prev, "broken prev link at slot %d", i)

		idx, ok := c.items[s.key]
		require.True(t, ok, "listed key %v missing from index", s.key)
		require.Equal(t, i, idx)

		prev = i
		seen++
		require.LessOrEqual(t, seen, len(c.lru.slots), "cycle in recency list")
	}
	require.Equal(t, prev, c.lru.tail)
	require.Equal(t, len(c.items), seen)
	require.LessOrEqual(t, len(c.items), c.capacity)

	if len(c.items) == 0 {
		require.Equal(t, nilSlot, c.lru.head)
		require.Equal(t, nilSlot, c.lru.tail)
	}

	for field, idx := range c.indexes.byName {
		for v, key := range idx {
			i, ok := c.items[key]
			require.True(t, ok, "%s=%v points at evicted key %v", field, v, key)
			assert.Equal(t, v, c.lru.slots[i].value[field])
		}
	}
}

func TestRecency_ReusesReleasedSlots(t *testing.T) {
	c := New(Config{Capacity: 2})

	c.Put(Record{"id": 1})
	c.Put(Record{"id": 2})
	c.Remove(1)
	c.Put(Record{"id": 3})

	assert.Len(t, c.lru.slots, 2)
	assert.Empty(t, c.lru.free)
	assert.Equal(t, []any{3, 2}, c.Keys())
	checkInvariants(t, c)

	// Eviction runs after the new slot is linked, so one extra slot is
	// allocated and the evicted one is parked on the free list.
	c.Put(Record{"id": 4})
	assert.Len(t, c.lru.slots, 3)
	assert.Len(t, c.lru.free, 1)
	assert.Equal(t, []any{4, 3}, c.Keys())
	checkInvariants(t, c)
}

func TestRecency_MoveToFrontOfTail(t *testing.T) {
	c := New(Config{Capacity: 3})
	c.Put(Record{"id": 1})
	c.Put(Record{"id": 2})
	c.Put(Record{"id": 3})

	c.Get(1)
	assert.Equal(t, []any{1, 3, 2}, c.Keys())
	assert.Equal(t, 2, c.lru.slots[c.lru.tail].key)
	checkInvariants(t, c)

	c.Get(1)
	assert.Equal(t, []any{1, 3, 2}, c.Keys())
	checkInvariants(t, c)
}

func TestRecency_ResetKeepsNothingReachable(t *testing.T) {
	c := New(Config{Capacity: 4, IndexFields: []string{"email"}})
	c.Put(Record{"id": 1, "email": "a@x.com"})
	c.Put(Record{"id": 2, "email": "b@x.com"})
	c.Clear()

	for _, s := range c.lru.slots[:cap(c.lru.slots)] {
		assert.Nil(t, s.value)
	}
	assert.Empty(t, c.indexes.byName["email"])
	checkInvariants(t, c)
}

func TestCache_RandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := New(Config{Capacity: 8, IndexFields: []string{"group", "tag"}})

	for step := 0; step < 5000; step++ {
		key := rng.Intn(20)
		switch op := rng.Intn(10); {
		case op < 5:
			c.Put(Record{"id": key, "group": rng.Intn(5), "tag": string(rune('a' + rng.Intn(6)))})
		case op < 7:
			c.Get(key)
		case op < 8:
			c.Remove(key)
		case op < 9:
			c.GetByIndex("group", rng.Intn(5))
		default:
			c.SetCapacity(1 + rng.Intn(10))
		}
		checkInvariants(t, c)
	}
}
