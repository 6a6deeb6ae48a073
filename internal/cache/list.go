package cache

import "time"

// nilSlot marks an absent link in the recency list.
const nilSlot int32 = -1

// slot is one arena cell of the recency list.
// Links are arena indices, never pointers, so unlinking a slot cannot leave
// a dangling reference behind.
type slot struct {
	key       any
	value     Record
	updatedAt time.Time

	prev int32
	next int32
}

// recency is a doubly linked list laid out in a slice arena.
// head is the most recently touched slot, tail the least recently touched.
// Released slots go on a free list and are reused by alloc.
type recency struct {
	slots []slot
	free  []int32
	head  int32
	tail  int32
}

func newRecency(capacity int) recency {
	return recency{
		slots: make([]slot, 0, capacity),
		head:  nilSlot,
		tail:  nilSlot,
	}
}

// alloc stores a detached slot and returns its index.
func (l *recency) alloc(key any, value Record, at time.Time) int32 {
	s := slot{key: key, value: value, updatedAt: at, prev: nilSlot, next: nilSlot}

	if n := len(l.free); n > 0 {
		i := l.free[n-1]
		l.free = l.free[:n-1]
		l.slots[i] = s
		return i
	}

	l.slots = append(l.slots, s)
	return int32(len(l.slots) - 1)
}

// release clears a detached slot and hands it back to the free list.
func (l *recency) release(i int32) {
	l.slots[i] = slot{prev: nilSlot, next: nilSlot}
	l.free = append(l.free, i)
}

func (l *recency) pushFront(i int32) {
	s := &l.slots[i]
	s.prev = nilSlot
	s.next = l.head

	if l.head != nilSlot {
		l.slots[l.head].prev = i
	}
	l.head = i
	if l.tail == nilSlot {
		l.tail = i
	}
}

func (l *recency) unlink(i int32) {
	s := &l.slots[i]

	if s.prev != nilSlot {
		l.slots[s.prev].next = s.next
	} else {
		l.head = s.next
	}
	if s.next != nilSlot {
		l.slots[s.next].prev = s.prev
	} else {
		l.tail = s.prev
	}

	s.prev = nilSlot
	s.next = nilSlot
}

// moveToFront is a no-op when i is already the head.
func (l *recency) moveToFront(i int32) {
	if l.head == i {
		return
	}
	l.unlink(i)
	l.pushFront(i)
}

// reset drops every slot in one step. The backing arrays are kept for reuse
// but zeroed so stored records can be collected.
func (l *recency) reset() {
	clear(l.slots)
	l.slots = l.slots[:0]
	l.free = l.free[:0]
	l.head = nilSlot
	l.tail = nilSlot
}
