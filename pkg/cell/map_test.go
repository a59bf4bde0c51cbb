package cell

import "testing"

func TestMapIdentityLaw(t *testing.T) {
	count := NewSource(3)
	identity := Map(count, func(n int) int { return n })

	for _, v := range []int{3, -1, 0, 42, 42, 7} {
		count.Set(v)
		if identity.Get() != count.Get() {
			t.Errorf("identity law violated: map(c, id)=%d, c=%d", identity.Get(), count.Get())
		}
	}
}

func TestMapCompositionLaw(t *testing.T) {
	f := func(n int) int { return n + 3 }
	g := func(n int) int { return n * 2 }

	count := NewSource(1)
	composed := Map(Map(count, f), g)
	fused := Map(count, func(n int) int { return g(f(n)) })

	for _, v := range []int{1, 10, -4, 0, 99} {
		count.Set(v)
		if composed.Get() != fused.Get() {
			t.Errorf("composition law violated at %d: chained=%d, fused=%d", v, composed.Get(), fused.Get())
		}
	}
}

func TestMapLaziness(t *testing.T) {
	calls := 0
	count := NewSource(1)

	_ = Map(count, func(n int) int {
		calls++
		return n * 2
	})

	count.Set(2)
	count.Set(3)

	if calls != 0 {
		t.Errorf("map function ran %d times without a reader or watcher", calls)
	}
}

func TestMapChangePropagation(t *testing.T) {
	count := NewSource(8)
	doubled := Map(count, func(n int) int { return n * 2 })

	calls := 0
	var got int
	doubled.Watch(func(v int) {
		calls++
		got = v
	})

	count.Set(10)
	if calls != 1 || got != 20 {
		t.Errorf("expected one call with 20, got %d calls with %d", calls, got)
	}
}

func TestMapTypeChange(t *testing.T) {
	count := NewSource(7)
	label := Map(count, func(n int) string {
		if n%2 == 0 {
			return "even"
		}
		return "odd"
	})

	if label.Get() != "odd" {
		t.Errorf("expected odd, got %s", label.Get())
	}

	count.Set(4)
	if label.Get() != "even" {
		t.Errorf("expected even, got %s", label.Get())
	}
}
