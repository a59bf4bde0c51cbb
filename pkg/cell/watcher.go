package cell

import "sync"

// Subscription is the handle returned by Watch.
// Unsubscribe removes the callback; calling it more than once is safe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the watcher from its cell.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// watcher is a single registered callback.
type watcher[T any] struct {
	id uint64
	fn func(T)
}

// watcherList holds the ordered watcher callbacks for a cell.
// Watchers fire in registration order, so removal preserves order.
type watcherList[T any] struct {
	mu       sync.Mutex
	watchers []watcher[T]
}

// add registers fn and returns its subscription handle.
func (wl *watcherList[T]) add(fn func(T)) *Subscription {
	id := nextID()
	wl.mu.Lock()
	wl.watchers = append(wl.watchers, watcher[T]{id: id, fn: fn})
	wl.mu.Unlock()

	return &Subscription{cancel: func() { wl.remove(id) }}
}

// remove deletes the watcher with the given id, keeping order.
func (wl *watcherList[T]) remove(id uint64) {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	for i, w := range wl.watchers {
		if w.id == id {
			wl.watchers = append(wl.watchers[:i], wl.watchers[i+1:]...)
			return
		}
	}
}

// count returns the number of registered watchers.
func (wl *watcherList[T]) count() int {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	return len(wl.watchers)
}

// empty reports whether no watchers are registered.
func (wl *watcherList[T]) empty() bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	return len(wl.watchers) == 0
}

// notify invokes each watcher with v in registration order.
// Each callback is isolated: a panic is recovered and recorded against
// the current propagation pass so sibling watchers still run.
func (wl *watcherList[T]) notify(cellID uint64, v T) {
	wl.mu.Lock()
	watchers := make([]watcher[T], len(wl.watchers))
	copy(watchers, wl.watchers)
	wl.mu.Unlock()

	for _, w := range watchers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					recordPropagationError(newComputationError(cellID, r))
				}
			}()
			w.fn(v)
		}()
	}
}
