package pools

import "testing"

// TestBytePoolTiers tests size-class selection
func TestBytePoolTiers(t *testing.T) {
	bp := NewBytePool()

	tests := []struct {
		request int
		wantCap int
	}{
		{100, 4096},
		{4096, 4096},
		{4097, 32768},
		{32768, 32768},
	}

	for _, tt := range tests {
		buf := bp.Get(tt.request)
		if len(buf) != tt.request {
			t.Errorf("Get(%d): len %d", tt.request, len(buf))
		}
		if cap(buf) != tt.wantCap {
			t.Errorf("Get(%d): cap %d, want %d", tt.request, cap(buf), tt.wantCap)
		}
		bp.Put(buf)
	}
}

// TestBytePoolOversized tests direct allocation beyond the largest tier
func TestBytePoolOversized(t *testing.T) {
	bp := NewBytePool()

	buf := bp.Get(100000)
	if len(buf) != 100000 {
		t.Errorf("oversized Get: len %d", len(buf))
	}
	bp.Put(buf) // dropped, not pooled
}

// TestBytePoolReuse tests that returned buffers circulate
func TestBytePoolReuse(t *testing.T) {
	bp := NewBytePoolWithSizes([]int{64})

	buf := bp.Get(64)
	buf[0] = 0xAA
	bp.Put(buf)

	again := bp.Get(64)
	if cap(again) != 64 {
		t.Errorf("reused buffer cap %d, want 64", cap(again))
	}
}
