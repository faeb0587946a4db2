package pools

import "testing"

type fakeConn struct {
	buf []byte
	id  int
}

// TestArenaAcquireRelease tests the basic slot cycle
func TestArenaAcquireRelease(t *testing.T) {
	a := NewArena[fakeConn](4, nil)

	if a.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", a.Cap())
	}
	if a.Active() != 0 {
		t.Fatalf("Active() = %d, want 0", a.Active())
	}

	h, v, ok := a.Acquire()
	if !ok || v == nil {
		t.Fatal("Acquire on empty arena failed")
	}
	v.id = 42

	if a.Active() != 1 {
		t.Errorf("Active() = %d, want 1", a.Active())
	}
	if a.Get(h).id != 42 {
		t.Errorf("Get(%d).id = %d, want 42", h, a.Get(h).id)
	}

	a.Release(h)
	if a.Active() != 0 {
		t.Errorf("Active() after release = %d, want 0", a.Active())
	}
}

// TestArenaExhaustion tests that exactly capacity slots are handed out
func TestArenaExhaustion(t *testing.T) {
	const cap = 8
	a := NewArena[fakeConn](cap, nil)

	handles := make([]int, 0, cap)
	for i := 0; i < cap; i++ {
		h, _, ok := a.Acquire()
		if !ok {
			t.Fatalf("Acquire %d failed before capacity", i)
		}
		handles = append(handles, h)
	}

	if _, _, ok := a.Acquire(); ok {
		t.Error("Acquire beyond capacity succeeded")
	}

	// One release makes exactly one slot available again.
	a.Release(handles[3])
	if h, _, ok := a.Acquire(); !ok {
		t.Error("Acquire after release failed")
	} else if h != handles[3] {
		t.Errorf("reacquired handle %d, want %d", h, handles[3])
	}
	if _, _, ok := a.Acquire(); ok {
		t.Error("arena overcommitted after single release")
	}
}

// TestArenaSlotContentsSurvive tests that released slots keep their contents
func TestArenaSlotContentsSurvive(t *testing.T) {
	a := NewArena[fakeConn](1, nil)

	h, v, _ := a.Acquire()
	v.buf = make([]byte, 4096)
	a.Release(h)

	h2, v2, _ := a.Acquire()
	if h2 != h {
		t.Fatalf("expected slot reuse, got %d and %d", h, h2)
	}
	if v2.buf == nil || len(v2.buf) != 4096 {
		t.Error("slot buffer did not survive release")
	}
}

// TestArenaEagerInit tests the construction-time init hook
func TestArenaEagerInit(t *testing.T) {
	calls := 0
	a := NewArena[fakeConn](16, func(c *fakeConn) {
		c.buf = make([]byte, 64)
		calls++
	})

	if calls != 16 {
		t.Fatalf("init ran %d times, want 16", calls)
	}
	_, v, _ := a.Acquire()
	if len(v.buf) != 64 {
		t.Error("eager init buffer missing on acquire")
	}
}

// TestArenaDoubleReleasePanics tests that releasing a free slot panics
func TestArenaDoubleReleasePanics(t *testing.T) {
	a := NewArena[fakeConn](2, nil)
	h, _, _ := a.Acquire()
	a.Release(h)

	defer func() {
		if recover() == nil {
			t.Error("double release did not panic")
		}
	}()
	a.Release(h)
}
