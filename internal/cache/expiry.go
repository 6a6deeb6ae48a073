package cache

import "time"

// expired reports whether s is older than the configured max age.
//
// Age is counted in whole elapsed seconds, so with MaxAge of one second a
// record written 1.9s ago is still fresh.
func (c *Cache) expired(s *slot) bool {
	if c.maxAge <= 0 {
		return false
	}
	age := c.clock().Sub(s.updatedAt).Truncate(time.Second)
	return age > c.maxAge
}

// invalidate drops the whole store after a stale read.
//
// One stale entry invalidates everything, including entries that were
// written later.
func (c *Cache) invalidate(stale any) {
	n := len(c.items)
	c.clearAll()
	c.log.Debug().
		Interface("stale_key", stale).
		Int("dropped", n).
		Dur("max_age", c.maxAge).
		Msg("max age exceeded, cache invalidated")
}
