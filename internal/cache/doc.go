// Package cache implements a single-process, in-memory record cache.
//
// Records are keyed by a configurable primary field and may also be found
// through secondary fields. Goals for this package:
//   - O(1) Put/Get/Remove via a map index over an arena-backed recency list
//   - Capacity-bounded LRU eviction, including when capacity shrinks
//   - Optional secondary indexes with last-writer-wins semantics
//   - Optional max age: a stale read invalidates the whole cache
//
// A Cache is a plain value with no goroutines and no locks. Callers share it
// across goroutines only behind their own mutex.
package cache
