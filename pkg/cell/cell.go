package cell

// Cell is the capability set shared by Source and Derived: a readable,
// watchable reactive value. Map and the typed Combine variants accept
// any Cell, so custom reactive containers can participate in derivation
// by satisfying this interface.
type Cell[T any] interface {
	// Get returns the current value, recomputing first if stale.
	// When called inside a tracked computation, Get subscribes that
	// computation to this cell.
	Get() T

	// Peek returns the current value without creating a dependency.
	Peek() T

	// Watch registers fn to be called with the new value after each
	// change that actually alters it. Callbacks run synchronously
	// during propagation, in registration order.
	Watch(fn func(T)) *Subscription

	// ID returns the unique identifier for this cell.
	ID() uint64
}
