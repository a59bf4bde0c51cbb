package cell

import (
	"sync"
	"testing"
)

// testListener counts MarkDirty calls for subscription tests.
type testListener struct {
	id         uint64
	mu         sync.Mutex
	dirtyCount int
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

func TestSourceBasic(t *testing.T) {
	count := NewSource(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestSourcePeekDoesNotTrack(t *testing.T) {
	count := NewSource(42)

	listener := newTestListener()
	WithListener(listener, func() {
		if count.Peek() != 42 {
			t.Errorf("expected 42, got %d", count.Peek())
		}
	})

	count.Set(100)
	if listener.getDirtyCount() != 0 {
		t.Errorf("Peek should not subscribe listener, got %d notifications", listener.getDirtyCount())
	}
}

func TestSourceTracking(t *testing.T) {
	count := NewSource(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = count.Get()
	})

	count.Set(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", listener.getDirtyCount())
	}

	// Same value should not notify
	count.Set(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("same value should not notify, got %d", listener.getDirtyCount())
	}

	count.Set(2)
	if listener.getDirtyCount() != 2 {
		t.Errorf("expected 2 notifications, got %d", listener.getDirtyCount())
	}
}

func TestSourceWatch(t *testing.T) {
	count := NewSource(0)

	var got []int
	sub := count.Watch(func(v int) {
		got = append(got, v)
	})

	count.Set(1)
	count.Set(2)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}

	sub.Unsubscribe()
	count.Set(3)
	if len(got) != 2 {
		t.Errorf("unsubscribed watcher still notified: %v", got)
	}

	// Double unsubscribe is safe
	sub.Unsubscribe()
}

func TestSourceWatchNoOpSuppression(t *testing.T) {
	count := NewSource(5)

	calls := 0
	count.Watch(func(int) { calls++ })

	count.Set(5)
	if calls != 0 {
		t.Errorf("setting the current value should not notify, got %d calls", calls)
	}
}

func TestSourceWatchOrder(t *testing.T) {
	count := NewSource(0)

	var order []string
	count.Watch(func(int) { order = append(order, "first") })
	count.Watch(func(int) { order = append(order, "second") })
	count.Watch(func(int) { order = append(order, "third") })

	count.Set(1)
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("watchers out of registration order: %v", order)
	}
}

func TestSourceWithEquals(t *testing.T) {
	// Treat values with the same parity as equal
	count := NewSource(2).WithEquals(func(a, b int) bool {
		return a%2 == b%2
	})

	calls := 0
	count.Watch(func(int) { calls++ })

	count.Set(4) // same parity, suppressed
	if calls != 0 {
		t.Errorf("expected suppression by custom equality, got %d calls", calls)
	}

	count.Set(7)
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSourceSliceEquality(t *testing.T) {
	s := NewSource([]int{1, 2})

	calls := 0
	s.Watch(func([]int) { calls++ })

	// Deep-equal slice is a no-op
	s.Set([]int{1, 2})
	if calls != 0 {
		t.Errorf("deep-equal slice should not notify, got %d calls", calls)
	}

	s.Set([]int{1, 2, 3})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
