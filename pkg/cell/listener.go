package cell

// Listener is anything that can be notified when a dependency changes.
// Derived cells implement it to invalidate their cached value.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has
	// changed. For a Derived this invalidates the cached value and, if
	// the Derived has watchers, recomputes and propagates immediately.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during batch processing.
	ID() uint64
}

// dependent is a listener that records which cells it read during its
// last computation, so the dependency set can be dropped and re-derived
// on the next recompute.
type dependent interface {
	Listener
	addSource(source *cellBase)
}

// invalidator is a listener whose cache can be marked stale without
// running its eager recompute-and-notify path. Batched writes
// invalidate dependents immediately so in-batch reads see the committed
// values, and defer only the notification pass.
type invalidator interface {
	invalidate()
}

// notifier is a cell with a pending change to announce. Batch mode
// queues notifiers and replays them, deduplicated, when the outermost
// batch completes.
type notifier interface {
	notifyChanged()
	ID() uint64
}
