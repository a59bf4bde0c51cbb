package cell

import (
	"errors"
	"sync"
)

// Source is a settable reactive value container.
// Reading a Source during a tracked computation automatically subscribes
// that computation to receive invalidations when the value changes.
type Source[T any] struct {
	base cellBase

	// value is the current value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// equal is the equality function used to decide if the value changed.
	// If nil, uses default equality checking.
	equal func(T, T) bool

	// watchers are the external callbacks registered via Watch.
	watchers watcherList[T]
}

// NewSource creates a new source cell with the given initial value.
func NewSource[T any](initial T) *Source[T] {
	hookCellCreated("source")
	return &Source[T]{
		base: cellBase{
			id: nextID(),
		},
		value: initial,
	}
}

// Get returns the current value and subscribes the current dependent.
// If called during a tracked computation, that computation will be
// invalidated when this cell's value changes.
func (s *Source[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Track dependency (after releasing the value lock to prevent deadlock)
	s.base.track()

	return value
}

// Peek returns the current value without subscribing.
// Useful for reading a value without creating a dependency.
func (s *Source[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and propagates to dependents and watchers if it
// changed, judged by the cell's equality function. Setting an equal
// value is a no-op and notifies nobody.
//
// Propagation is synchronous and depth-first: it completes before Set
// returns, unless a Batch is active, in which case the notification is
// deferred to the end of the outermost batch. If a watcher callback or a
// forced recompute fails during the pass, the remaining notifications
// still run and the collected failures are re-raised from Set.
func (s *Source[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.announce()
	}
}

// Update atomically reads and updates the value.
// The function receives the current value and returns the new value.
func (s *Source[T]) Update(fn func(T) T) {
	s.mu.Lock()
	oldValue := s.value
	newValue := fn(oldValue)
	changed := !s.equals(oldValue, newValue)
	if changed {
		s.value = newValue
	}
	s.mu.Unlock()

	if changed {
		s.announce()
	}
}

// Watch registers fn to be called with the new value after each change.
func (s *Source[T]) Watch(fn func(T)) *Subscription {
	return s.watchers.add(fn)
}

// WithEquals returns the cell configured with a custom equality function.
// Useful for types where reflect.DeepEqual is too expensive or has the
// wrong semantics.
func (s *Source[T]) WithEquals(fn func(T, T) bool) *Source[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this cell.
func (s *Source[T]) ID() uint64 {
	return s.base.id
}

// announce starts or defers the notification for a committed change.
func (s *Source[T]) announce() {
	if getBatchDepth() > 0 {
		// Reads inside the batch must see values consistent with the
		// committed write, so dependents are invalidated now; only the
		// notification pass waits for the outermost batch.
		s.base.invalidateSubs()
		queuePending(s)
		return
	}

	beginPropagation()
	s.notifyChanged()
	raisePropagationErrors(endPropagation())
}

// notifyChanged runs one notification step for this cell: watchers
// first, in registration order, then dependent derived cells.
// Implements the notifier interface used by batch replay.
func (s *Source[T]) notifyChanged() {
	hookNotify(s.watchers.count())
	s.watchers.notify(s.base.id, s.Peek())
	s.base.markSubsDirty()
}

// equals checks value equality using the configured function.
func (s *Source[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// raisePropagationErrors re-raises failures collected during the
// outermost propagation pass, after every notification has run.
func raisePropagationErrors(errs []error) {
	switch len(errs) {
	case 0:
	case 1:
		panic(errs[0])
	default:
		panic(errors.Join(errs...))
	}
}

var _ Cell[int] = (*Source[int])(nil)
var _ notifier = (*Source[int])(nil)
