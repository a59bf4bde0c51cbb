// Package cell provides reactive value containers with automatic
// dependency tracking.
//
// A Source is a gettable/settable reactive value. A Derived is a value
// computed from other cells by a pure function; it recomputes lazily when
// any of its dependencies change.
//
// # Core Types
//
// Source[T] is a settable reactive container:
//
//	count := cell.NewSource(0)
//	value := count.Get()  // Read (subscribes the current dependent, if any)
//	count.Set(5)          // Write (propagates to dependents and watchers)
//	count.Update(func(n int) int { return n + 1 })
//
// Derived[T] is a cached derived computation:
//
//	doubled := cell.Map(count, func(n int) int { return n * 2 })
//	value := doubled.Get()  // Recomputes only if dependencies changed
//
// Combine lifts an n-ary function over several cells:
//
//	ok := cell.Combine2(low, high, func(a, b int) bool { return a <= b })
//
// # Propagation
//
// Set propagates synchronously and depth-first: every dependent Derived
// that currently has watchers recomputes before Set returns, and watcher
// callbacks fire in registration order with the new value. A Derived with
// no watchers is only marked dirty and recomputes on its next read.
//
// Notification is equality-gated: setting a Source to an equal value is a
// no-op, and a recompute that produces an equal value does not fire
// watchers. The default equality uses == for common scalar types and
// reflect.DeepEqual otherwise; override it per cell with WithEquals.
//
// # Batching
//
// By default each Set runs its own propagation pass. Batch groups several
// updates into a single pass:
//
//	cell.Batch(func() {
//	    low.Set(1)
//	    high.Set(9)
//	})  // Dependents notified once after both updates
//
// # Errors
//
// A panic in a user-supplied function is recovered and wrapped in
// *ComputationError. Get re-panics it; TryGet returns it. A failed
// Derived stays dirty, so a later read re-attempts the computation.
// A computation that reads its own cell, directly or transitively, fails
// with *CyclicDependencyError instead of recursing forever.
//
// # Thread Safety
//
// All primitives are safe for concurrent use. Dependency tracking state
// is per-goroutine, so a computation only tracks reads made on its own
// goroutine.
package cell
