package cell

// Map produces a derived cell holding f applied to c's current value.
//
// f must be pure: the timing and frequency of its invocation is
// unspecified. It may run zero or more times between two observed
// changes, and it never runs while the derived cell has no watchers and
// is not read.
//
// Map satisfies the functor laws, covered by the package tests:
// mapping with the identity function is behaviorally indistinguishable
// from the original cell, and Map(Map(c, f), g) is equivalent to
// Map(c, g∘f) for pure f and g.
func Map[A, B any](c Cell[A], f func(A) B) *Derived[B] {
	return NewDerived(func() B {
		return f(c.Get())
	})
}
