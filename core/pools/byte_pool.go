package pools

import "sync"

// BytePool is a tiered byte slice pool keyed by size class. The thread-pool
// workers draw their per-connection request and file-chunk buffers from it so
// a burst of short-lived connections does not churn the allocator.
type BytePool struct {
	pools []*sync.Pool
	sizes []int
}

// Size tiers match the two buffer classes the servers use: 4KB request
// buffers and 32KB file chunks.
var defaultSizes = []int{4096, 32768}

// NewBytePool creates a byte pool with the standard tiers.
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom tiers. Sizes must be
// ascending.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of at least the requested size. Requests larger
// than every tier are allocated directly and will not be pooled on Put.
func (bp *BytePool) Get(size int) []byte {
	i := bp.tierFor(size)
	if i < 0 {
		return make([]byte, size)
	}
	buf := *bp.pools[i].Get().(*[]byte)
	return buf[:size]
}

// Put returns a byte slice to its tier, matched by capacity. Slices that did
// not come from a tier are left to the GC.
func (bp *BytePool) Put(buf []byte) {
	i := bp.tierFor(cap(buf))
	if i < 0 || bp.sizes[i] != cap(buf) {
		return
	}
	full := buf[:cap(buf)]
	bp.pools[i].Put(&full)
}

// tierFor returns the index of the smallest tier holding size, -1 when size
// exceeds the largest tier.
func (bp *BytePool) tierFor(size int) int {
	for i, s := range bp.sizes {
		if size <= s {
			return i
		}
	}
	return -1
}
