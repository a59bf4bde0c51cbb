package cell

import "testing"

func TestGoroutineContextReleasedAfterUse(t *testing.T) {
	src := NewSource(1)
	doubled := Map(src, func(n int) int { return n * 2 })

	gidCh := make(chan uint64)
	go func() {
		_ = doubled.Get()
		src.Set(5)
		Batch(func() { src.Set(6) })
		gidCh <- getGoroutineID()
	}()

	gid := <-gidCh
	if _, ok := trackingContexts.Load(gid); ok {
		t.Error("idle goroutine left a tracking context behind")
	}
}

func TestPlainReadCreatesNoContext(t *testing.T) {
	src := NewSource(1)

	gidCh := make(chan uint64)
	go func() {
		_ = src.Get()
		_ = src.Peek()
		gidCh <- getGoroutineID()
	}()

	gid := <-gidCh
	if _, ok := trackingContexts.Load(gid); ok {
		t.Error("untracked read created a tracking context")
	}
}

func TestContextSurvivesWithinPropagation(t *testing.T) {
	src := NewSource(1)
	doubled := Map(src, func(n int) int { return n * 2 })

	// The watcher runs mid-pass; the context must still be live so the
	// pass can keep collecting errors and pending work.
	var sawContext bool
	doubled.Watch(func(int) {
		_, sawContext = trackingContexts.Load(getGoroutineID())
	})

	src.Set(3)
	if !sawContext {
		t.Error("tracking context released in the middle of a propagation pass")
	}
}
