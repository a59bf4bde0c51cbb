package cell

import "sync"

// cellBase provides type-erased dependent management.
// It is embedded in Source[T] and Derived[T] to share subscription logic.
type cellBase struct {
	id uint64

	// subs are the dependents subscribed to this cell.
	subs []Listener

	// subMu protects the subs slice.
	subMu sync.RWMutex
}

// subscribe adds a listener to this cell's dependents.
// Deduplicates by listener ID to prevent double-subscription.
func (b *cellBase) subscribe(l Listener) {
	if l == nil {
		return
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()

	lid := l.ID()
	for _, existing := range b.subs {
		if existing.ID() == lid {
			return
		}
	}

	b.subs = append(b.subs, l)
}

// unsubscribe removes a listener from this cell's dependents.
func (b *cellBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()

	lid := l.ID()
	for i, existing := range b.subs {
		if existing.ID() == lid {
			// Remove by swapping with last element (order doesn't matter
			// for dependents; watcher order is kept separately)
			b.subs[i] = b.subs[len(b.subs)-1]
			b.subs = b.subs[:len(b.subs)-1]
			return
		}
	}
}

// markSubsDirty notifies all dependents that this cell changed.
// Uses copy-before-notify to avoid holding locks during notification,
// since a dependent's recompute may resubscribe to this cell.
func (b *cellBase) markSubsDirty() {
	b.subMu.RLock()
	subs := make([]Listener, len(b.subs))
	copy(subs, b.subs)
	b.subMu.RUnlock()

	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// invalidateSubs marks dependent derived cells stale without running
// their eager recompute path. Listeners that are not derived cells are
// left for the deferred notification pass.
func (b *cellBase) invalidateSubs() {
	b.subMu.RLock()
	subs := make([]Listener, len(b.subs))
	copy(subs, b.subs)
	b.subMu.RUnlock()

	for _, sub := range subs {
		if iv, ok := sub.(invalidator); ok {
			iv.invalidate()
		}
	}
}

// track subscribes the current listener, if any, and records this cell
// as one of its sources for the next dependency reset.
func (b *cellBase) track() {
	listener := getCurrentListener()
	if listener == nil {
		return
	}
	// A computation reading its own cell must not self-subscribe; the
	// cycle is reported at read time instead.
	if listener.ID() == b.id {
		return
	}
	b.subscribe(listener)
	if d, ok := listener.(dependent); ok {
		d.addSource(b)
	}
}
