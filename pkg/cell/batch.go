package cell

// Batch groups multiple cell updates into a single notification pass.
// Writes inside the batch commit and invalidate dependents immediately,
// so reads within the batch observe the new values; watcher and
// dependent notifications are collected, deduplicated by cell, and run
// together when the outermost batch completes.
//
// Without a batch, every Set runs its own propagation pass; code that
// updates several sources feeding one Combine and wants a single
// downstream notification opts in explicitly:
//
//	cell.Batch(func() {
//	    low.Set(1)
//	    high.Set(9)
//	})
//	// Dependents recompute once with both changes visible
//
// Batches can be nested. Notifications only fire when the outermost
// batch completes.
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			processPending()
		}
	}()

	fn()
}

// Tx runs fn as a transaction, grouping all cell updates.
// It is an alias for Batch that reads better at call sites that treat
// the grouped updates as one logical change.
func Tx(fn func()) {
	Batch(fn)
}

// processPending deduplicates and announces all deferred changes.
func processPending() {
	pending := drainPending()
	if len(pending) == 0 {
		return
	}

	// Deduplicate by cell ID, keeping first-queued order
	seen := make(map[uint64]bool, len(pending))
	unique := make([]notifier, 0, len(pending))

	for _, n := range pending {
		id := n.ID()
		if !seen[id] {
			seen[id] = true
			unique = append(unique, n)
		}
	}

	beginPropagation()
	for _, n := range unique {
		n.notifyChanged()
	}
	raisePropagationErrors(endPropagation())
}

// Untracked runs a function without tracking cell reads as dependencies.
// Useful inside a computation that needs a value without subscribing
// to it.
//
// Note: For single cell reads, use Peek instead, which is more
// efficient and clearer in intent.
func Untracked(fn func()) {
	old := setCurrentListener(nil)
	defer setCurrentListener(old)
	fn()
}

// UntrackedGet reads a cell's value without creating a dependency.
// This is a convenience function equivalent to c.Peek().
func UntrackedGet[T any](c Cell[T]) T {
	return c.Peek()
}
