package cell

import (
	"sync"
	"time"
)

// Hooks receive observation callbacks from the reactive core.
// All fields are optional; nil hooks are skipped. The metrics package
// uses these to export Prometheus series without the core depending
// on an instrumentation library.
type Hooks struct {
	// OnCellCreated is called when a cell is created.
	// kind is "source" or "derived".
	OnCellCreated func(kind string)

	// OnRecompute is called after each derivation attempt with its
	// duration and outcome.
	OnRecompute func(d time.Duration, err error)

	// OnNotify is called once per changed cell during propagation with
	// the number of watcher callbacks invoked.
	OnNotify func(watchers int)

	// OnCycle is called when a cyclic dependency is detected.
	OnCycle func()
}

var (
	hooksMu sync.RWMutex
	hooks   Hooks
)

// SetHooks installs the observation hooks. Passing the zero Hooks
// removes them. Intended to be called once at startup.
func SetHooks(h Hooks) {
	hooksMu.Lock()
	hooks = h
	hooksMu.Unlock()
}

func currentHooks() Hooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return hooks
}

func hookCellCreated(kind string) {
	if h := currentHooks(); h.OnCellCreated != nil {
		h.OnCellCreated(kind)
	}
}

func hookRecompute(d time.Duration, err error) {
	if h := currentHooks(); h.OnRecompute != nil {
		h.OnRecompute(d, err)
	}
}

func hookNotify(watchers int) {
	if h := currentHooks(); h.OnNotify != nil {
		h.OnNotify(watchers)
	}
}

func hookCycle() {
	if h := currentHooks(); h.OnCycle != nil {
		h.OnCycle()
	}
}
