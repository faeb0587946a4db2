// Package pools provides the fixed-capacity slot arena backing the reactor
// connection pool, and a tiered byte pool for the thread-pool workers.
package pools

import "fmt"

// Arena is a fixed-capacity slot registry with an O(1) free list. Slots are
// addressed by integer handle; the values themselves are embedded in the
// arena so admission never allocates.
//
// Arena is not safe for concurrent use. The reactors drive it from a single
// goroutine, which is the point.
type Arena[T any] struct {
	slots    []arenaSlot[T]
	freeHead int
	active   int
}

type arenaSlot[T any] struct {
	val  T
	next int
	free bool
}

const arenaNil = -1

// NewArena builds an arena of the given capacity. When init is non-nil it
// runs over every slot at construction (eager allocation policy); a nil init
// leaves slot contents zero-valued so buffers can be attached lazily on
// first acquire.
func NewArena[T any](capacity int, init func(*T)) *Arena[T] {
	if capacity <= 0 {
		panic("pools: arena capacity must be positive")
	}

	a := &Arena[T]{
		slots:    make([]arenaSlot[T], capacity),
		freeHead: 0,
	}
	for i := range a.slots {
		a.slots[i].next = i + 1
		a.slots[i].free = true
		if init != nil {
			init(&a.slots[i].val)
		}
	}
	a.slots[capacity-1].next = arenaNil

	return a
}

// Acquire pops the free-list head. ok is false when the arena is exhausted;
// the caller sheds the load (for the reactors: close the socket, no
// response).
func (a *Arena[T]) Acquire() (handle int, v *T, ok bool) {
	if a.freeHead == arenaNil {
		return arenaNil, nil, false
	}

	handle = a.freeHead
	slot := &a.slots[handle]
	a.freeHead = slot.next
	slot.next = arenaNil
	slot.free = false
	a.active++

	return handle, &slot.val, true
}

// Release pushes a slot back onto the free list. Slot contents are kept, not
// zeroed: buffers attached lazily survive across client lifetimes. Releasing
// a slot that is already free is a bug at the call site, so it panics.
func (a *Arena[T]) Release(handle int) {
	slot := &a.slots[handle]
	if slot.free {
		panic(fmt.Sprintf("pools: double release of arena slot %d", handle))
	}

	slot.next = a.freeHead
	slot.free = true
	a.freeHead = handle
	a.active--
}

// Get returns the value stored in an acquired slot.
func (a *Arena[T]) Get(handle int) *T {
	return &a.slots[handle].val
}

// Active returns the number of acquired slots.
func (a *Arena[T]) Active() int {
	return a.active
}

// Cap returns the arena capacity.
func (a *Arena[T]) Cap() int {
	return len(a.slots)
}
