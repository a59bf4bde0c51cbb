package cell

import (
	"sync"
	"sync/atomic"
	"time"
)

// Derived is a cached computation over other cells. It tracks the cells
// its function reads, invalidates when any of them change, and
// recomputes on the next read.
//
// Deriveds are lazy: the computation only runs when the value is read or
// when the cell has watchers forcing eager recomputation during
// propagation. The dependency set is re-derived from scratch on every
// recompute, so a function that conditionally reads different cells is
// always subscribed to exactly what it last read.
//
// Deriveds are themselves cells, so derived values chain.
type Derived[T any] struct {
	base cellBase

	// compute is the pure function that produces the value.
	compute func() T

	// value is the cached computed value.
	value T

	// computedOnce records whether value holds a real computation result.
	// Guarded by valueMu.
	computedOnce bool

	// err is the failure of the last computation attempt, nil on success.
	// Guarded by valueMu.
	err error

	// pendingChange records a recomputed value that watchers have not
	// been told about yet. An in-batch read may recompute ahead of the
	// deferred notification pass; the pass consumes this flag so the
	// change is still delivered. Guarded by valueMu.
	pendingChange bool

	// valueMu protects value, computedOnce and err.
	valueMu sync.RWMutex

	// valid indicates whether the cached value is current.
	// When false, the next read will recompute.
	valid atomic.Bool

	// deferredNotify marks a batch invalidation whose notification pass
	// has not run yet, so that pass still cascades through this cell
	// even though it is already dirty.
	deferredNotify atomic.Bool

	// sources are the cells this derived read during its last computation.
	sources   []*cellBase
	sourcesMu sync.Mutex

	// equal is the equality function for change suppression.
	equal func(T, T) bool

	// computeMu serializes recomputation across goroutines.
	computeMu sync.Mutex

	// computingBy holds the goroutine ID of the in-flight computation,
	// 0 when idle. A read from the same goroutine while set is a cycle.
	computingBy atomic.Uint64

	// watchers are the external callbacks registered via Watch.
	watchers watcherList[T]
}

// NewDerived creates a derived cell over the given computation.
// The computation must be pure; it is not run until the first read.
func NewDerived[T any](compute func() T) *Derived[T] {
	hookCellCreated("derived")
	return &Derived[T]{
		base: cellBase{
			id: nextID(),
		},
		compute: compute,
	}
}

// Get returns the derived value, recomputing if stale, and subscribes
// the current dependent. If the computation fails, Get panics with
// *ComputationError (or *CyclicDependencyError for a reentrant read);
// use TryGet for an error return.
func (d *Derived[T]) Get() T {
	d.base.track()

	value, err := d.read()
	if err != nil {
		panic(err)
	}
	return value
}

// TryGet is Get with an explicit error return instead of a panic.
func (d *Derived[T]) TryGet() (T, error) {
	d.base.track()
	return d.read()
}

// Peek returns the derived value without subscribing.
// Still recomputes if the cached value is stale.
func (d *Derived[T]) Peek() T {
	value, err := d.read()
	if err != nil {
		panic(err)
	}
	return value
}

// Watch registers fn to be called with the new value after each change.
// Subscribing forces an initial evaluation so later changes are judged
// against a real value; Watch panics if that evaluation fails.
func (d *Derived[T]) Watch(fn func(T)) *Subscription {
	if !d.valid.Load() {
		if _, err := d.recompute(); err != nil {
			panic(err)
		}
	}

	// The value at subscription time is the baseline for change diffs.
	d.valueMu.Lock()
	d.pendingChange = false
	d.valueMu.Unlock()

	return d.watchers.add(fn)
}

// WithEquals returns the cell configured with a custom equality function.
func (d *Derived[T]) WithEquals(fn func(T, T) bool) *Derived[T] {
	d.equal = fn
	return d
}

// ID returns the unique identifier for this cell.
// Implements the Listener interface.
func (d *Derived[T]) ID() uint64 {
	return d.base.id
}

// MarkDirty invalidates the cached value.
// With no watchers the recompute is deferred to the next read; with
// watchers the cell recomputes immediately and, if the value changed
// since the last delivery, notifies watchers and dependents in turn.
// Implements the Listener interface.
func (d *Derived[T]) MarkDirty() {
	wasValid := d.valid.CompareAndSwap(true, false)
	deferred := d.deferredNotify.Swap(false)

	if d.watchers.empty() {
		// CAS keeps the downstream cascade idempotent while dirty, but a
		// pending batch invalidation still owes its dependents a pass.
		if wasValid || deferred {
			d.base.markSubsDirty()
		}
		return
	}

	if _, err := d.recompute(); err != nil {
		// Stay dirty and record the failure against the current pass;
		// sibling notifications still run.
		recordPropagationError(err)
		d.base.markSubsDirty()
		return
	}
	if !d.takePendingChange() {
		return
	}

	hookNotify(d.watchers.count())
	d.watchers.notify(d.base.id, d.Peek())
	d.base.markSubsDirty()
}

// invalidate marks the cache stale without recomputing or notifying.
// Implements the invalidator interface used by batched writes.
func (d *Derived[T]) invalidate() {
	if !d.valid.CompareAndSwap(true, false) {
		return
	}
	d.deferredNotify.Store(true)
	d.base.invalidateSubs()
}

// addSource records a cell read during the current computation.
// Implements the dependent interface.
func (d *Derived[T]) addSource(source *cellBase) {
	d.sourcesMu.Lock()
	defer d.sourcesMu.Unlock()

	for _, s := range d.sources {
		if s == source {
			return
		}
	}
	d.sources = append(d.sources, source)
}

// read returns the current value, recomputing if stale.
func (d *Derived[T]) read() (T, error) {
	var zero T

	// A read from the goroutine that is currently computing this cell
	// means the computation depends on itself.
	if gid := getGoroutineID(); d.computingBy.Load() == gid {
		hookCycle()
		return zero, &CyclicDependencyError{CellID: d.base.id}
	}

	if !d.valid.Load() {
		if _, err := d.recompute(); err != nil {
			return zero, err
		}
	}

	d.valueMu.RLock()
	value := d.value
	d.valueMu.RUnlock()
	return value, nil
}

// recompute runs the computation, updates the cache and reports whether
// the value changed. On failure the cell stays dirty so a later read
// re-attempts instead of serving a cached error.
func (d *Derived[T]) recompute() (bool, error) {
	gid := getGoroutineID()
	if d.computingBy.Load() == gid {
		hookCycle()
		return false, &CyclicDependencyError{CellID: d.base.id}
	}

	d.computeMu.Lock()
	defer d.computeMu.Unlock()

	// Another goroutine may have recomputed while we waited.
	if d.valid.Load() {
		return false, nil
	}

	d.computingBy.Store(gid)
	defer d.computingBy.Store(0)

	// Drop old sources; the dependency set is re-derived from whatever
	// the computation actually reads this time.
	d.sourcesMu.Lock()
	for _, source := range d.sources {
		source.unsubscribe(d)
	}
	d.sources = d.sources[:0]
	d.sourcesMu.Unlock()

	// Track new sources during the computation.
	old := setCurrentListener(d)
	start := time.Now()

	var newValue T
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = newComputationError(d.base.id, r)
			}
		}()
		newValue = d.compute()
		return nil
	}()

	setCurrentListener(old)
	hookRecompute(time.Since(start), err)

	if err != nil {
		d.valueMu.Lock()
		d.err = err
		d.valueMu.Unlock()
		return false, err
	}

	d.valueMu.Lock()
	changed := !d.computedOnce || !d.equals(d.value, newValue)
	d.value = newValue
	d.computedOnce = true
	d.err = nil
	if changed {
		d.pendingChange = true
	}
	d.valueMu.Unlock()

	d.valid.Store(true)
	return changed, nil
}

// takePendingChange reports and clears whether the value changed since
// watchers last heard about it.
func (d *Derived[T]) takePendingChange() bool {
	d.valueMu.Lock()
	defer d.valueMu.Unlock()
	changed := d.pendingChange
	d.pendingChange = false
	return changed
}

// equals checks value equality using the configured function.
func (d *Derived[T]) equals(a, b T) bool {
	if d.equal != nil {
		return d.equal(a, b)
	}
	return defaultEquals(a, b)
}

var _ Cell[int] = (*Derived[int])(nil)
var _ dependent = (*Derived[int])(nil)
var _ invalidator = (*Derived[int])(nil)
