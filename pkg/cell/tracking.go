package cell

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for a goroutine.
// Each goroutine has its own context so computations running on
// different goroutines track their dependencies independently.
type trackingContext struct {
	// currentListener is what's currently tracking dependencies.
	// When a cell is read, it subscribes this listener.
	// nil means no tracking (reads don't create subscriptions).
	currentListener Listener

	// batchDepth tracks nested Batch() calls.
	// When > 0, cell updates queue notifications instead of firing immediately.
	batchDepth int

	// pending accumulates cells with unannounced changes while batching.
	// Deduplicated by ID before notification.
	pending []notifier

	// propDepth tracks nested propagation passes. Errors recovered from
	// watcher callbacks and forced recomputes accumulate until the
	// outermost pass completes.
	propDepth int

	// propErrs collects failures from the current propagation pass.
	propErrs []error
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine.
// This uses the runtime stack to extract the goroutine ID.
// Note: This is an implementation detail and should not be relied upon externally.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> "
	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current
// goroutine, creating one if none exists.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// idle reports whether the context carries no state worth keeping.
func (c *trackingContext) idle() bool {
	return c.currentListener == nil && c.batchDepth == 0 && c.propDepth == 0 &&
		len(c.pending) == 0 && len(c.propErrs) == 0
}

// releaseIfIdle drops the current goroutine's context once it returns
// to the idle state, so short-lived goroutines do not accumulate
// entries in the map.
func releaseIfIdle() {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok && ctx.(*trackingContext).idle() {
		trackingContexts.Delete(gid)
	}
}

// getCurrentListener returns the current listener being tracked.
// Returns nil if no tracking is active. Does not create a context, so
// untracked reads leave no per-goroutine state behind.
func getCurrentListener() Listener {
	if ctx, ok := trackingContexts.Load(getGoroutineID()); ok {
		return ctx.(*trackingContext).currentListener
	}
	return nil
}

// setCurrentListener sets the current listener for dependency tracking.
// Returns the previous listener so it can be restored.
func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	if l == nil {
		releaseIfIdle()
	}
	return old
}

// getBatchDepth returns the current batch nesting depth.
func getBatchDepth() int {
	if ctx, ok := trackingContexts.Load(getGoroutineID()); ok {
		return ctx.(*trackingContext).batchDepth
	}
	return 0
}

// incrementBatchDepth increases the batch depth by 1.
func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth decreases the batch depth by 1.
// Returns true if batch depth reached 0 (batch complete).
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

// queuePending records a cell whose change notification is deferred
// until the outermost batch completes.
func queuePending(n notifier) {
	ctx := getTrackingContext()
	ctx.pending = append(ctx.pending, n)
}

// drainPending returns and clears the pending notifier queue.
func drainPending() []notifier {
	ctx := getTrackingContext()
	pending := ctx.pending
	ctx.pending = nil
	releaseIfIdle()
	return pending
}

// beginPropagation enters a propagation pass on the current goroutine.
func beginPropagation() {
	getTrackingContext().propDepth++
}

// recordPropagationError collects a failure from the current pass so one
// failing watcher or recompute does not stop its siblings.
func recordPropagationError(err error) {
	if err == nil {
		return
	}
	ctx := getTrackingContext()
	ctx.propErrs = append(ctx.propErrs, err)
}

// endPropagation leaves a propagation pass. When the outermost pass
// completes with collected failures, they are re-raised joined so the
// caller of Set observes them after the full traversal has run.
func endPropagation() []error {
	ctx := getTrackingContext()
	ctx.propDepth--
	if ctx.propDepth > 0 {
		return nil
	}
	errs := ctx.propErrs
	ctx.propErrs = nil
	releaseIfIdle()
	return errs
}

// WithListener runs a function with the specified listener for tracking.
// Cells read during fn subscribe l as a dependent. This is primarily
// useful for building custom reactive consumers on top of the core.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}
