package threadpool

import (
	"net"
	"sync"
)

// connQueue is the bounded handoff between the accepting goroutine and the
// workers: a fixed ring guarded by one mutex/condition pair plus a shutdown
// flag. Push never blocks the acceptor; a full queue sheds the connection.
type connQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	items    []net.Conn
	head     int
	size     int
	shutdown bool
}

func newConnQueue(capacity int) *connQueue {
	q := &connQueue{items: make([]net.Conn, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues c and wakes one waiting worker. It returns false when the
// queue is full or shutting down; the caller closes the socket.
func (q *connQueue) Push(c net.Conn) bool {
	q.mu.Lock()
	if q.shutdown || q.size == len(q.items) {
		q.mu.Unlock()
		return false
	}

	q.items[(q.head+q.size)%len(q.items)] = c
	q.size++
	q.cond.Signal()
	q.mu.Unlock()
	return true
}

// Pop blocks until an item is available or shutdown begins. After shutdown
// workers take no further work, even if items remain; Shutdown disposes of
// the leftovers.
func (q *connQueue) Pop() (net.Conn, bool) {
	q.mu.Lock()
	for q.size == 0 && !q.shutdown {
		q.cond.Wait()
	}
	if q.shutdown {
		q.mu.Unlock()
		return nil, false
	}

	c := q.items[q.head]
	q.items[q.head] = nil
	q.head = (q.head + 1) % len(q.items)
	q.size--
	q.mu.Unlock()
	return c, true
}

// Shutdown sets the flag, wakes every waiter and closes anything still
// queued.
func (q *connQueue) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	var leftovers []net.Conn
	for q.size > 0 {
		leftovers = append(leftovers, q.items[q.head])
		q.items[q.head] = nil
		q.head = (q.head + 1) % len(q.items)
		q.size--
	}
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, c := range leftovers {
		c.Close()
	}
}

// Len returns the current queue depth.
func (q *connQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
