package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cellgraph-dev/cellgraph/pkg/cell"
)

// ErrNotFound is returned when no cell is registered under a name.
var ErrNotFound = errors.New("store: cell not found")

// ErrReadOnly is returned when setting a cell that is not a source.
var ErrReadOnly = errors.New("store: cell is read-only")

// ErrDuplicate is returned when a name is registered twice.
var ErrDuplicate = errors.New("store: name already registered")

// Store is a registry of named cells. It gives transport and
// persistence layers a type-erased view of a cell graph: values can be
// read by name, sources can be set from JSON, and every change to a
// registered cell fans in to the store's watchers.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	watchMu  sync.Mutex
	watchers map[uint64]func(name string, value any)
	watchSeq uint64
}

// entry is one registered cell.
type entry struct {
	name string

	// get reads the current value without subscribing.
	// A derivation failure is returned, not panicked.
	get func() (any, error)

	// set decodes a JSON payload into the cell. nil for derived cells.
	set func(raw json.RawMessage) error

	// sub is the cell watcher feeding the store's fan-in.
	sub *cell.Subscription
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries:  make(map[string]*entry),
		watchers: make(map[uint64]func(string, any)),
	}
}

// Register adds a named read-only view of a cell.
// The store subscribes to the cell, so registering a derived cell makes
// it eager: it recomputes during propagation from then on.
func Register[T any](s *Store, name string, c cell.Cell[T]) error {
	return s.add(name, readEntry(name, c), nil)
}

// RegisterSource adds a named source cell that can also be set through
// the store from a JSON payload.
func RegisterSource[T any](s *Store, name string, src *cell.Source[T]) error {
	set := func(raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("store: decode %q: %w", name, err)
		}
		src.Set(v)
		return nil
	}
	return s.add(name, readEntry[T](name, src), set)
}

// readEntry builds the type-erased read and watch wiring for a cell.
func readEntry[T any](name string, c cell.Cell[T]) func(*Store) (*entry, error) {
	return func(s *Store) (e *entry, err error) {
		// Watch primes a derived cell, so a failing derivation surfaces
		// here as a panic; report it as a registration error instead.
		defer func() {
			if r := recover(); r != nil {
				if rerr, ok := r.(error); ok {
					err = fmt.Errorf("store: register %q: %w", name, rerr)
					return
				}
				err = fmt.Errorf("store: register %q: %v", name, r)
			}
		}()

		e = &entry{
			name: name,
			get: func() (v any, err error) {
				defer func() {
					if r := recover(); r != nil {
						if rerr, ok := r.(error); ok {
							err = rerr
							return
						}
						err = fmt.Errorf("store: read %q: %v", name, r)
					}
				}()
				return c.Peek(), nil
			},
		}
		e.sub = c.Watch(func(v T) {
			s.broadcast(name, v)
		})
		return e, nil
	}
}

// add registers an entry under a unique name.
func (s *Store) add(name string, build func(*Store) (*entry, error), set func(json.RawMessage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}

	e, err := build(s)
	if err != nil {
		return err
	}
	e.set = set
	s.entries[name] = e
	return nil
}

// Get returns the current value of the named cell.
func (s *Store) Get(name string) (any, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.get()
}

// SetJSON decodes a JSON payload into the named source cell.
// Returns ErrNotFound for unknown names and ErrReadOnly for cells
// registered without a setter.
func (s *Store) SetJSON(name string, raw json.RawMessage) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if e.set == nil {
		return fmt.Errorf("%w: %q", ErrReadOnly, name)
	}
	return e.set(raw)
}

// Names returns the registered names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot reads every registered cell. Cells whose derivation fails
// are omitted from the map and their failures returned joined.
func (s *Store) Snapshot() (map[string]any, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	snap := make(map[string]any, len(entries))
	var errs []error
	for _, e := range entries {
		v, err := e.get()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snap[e.name] = v
	}
	return snap, errors.Join(errs...)
}

// WatchAll registers fn to run for every change to any registered cell,
// including cells registered after the call. The returned function
// cancels the watch.
func (s *Store) WatchAll(fn func(name string, value any)) func() {
	s.watchMu.Lock()
	s.watchSeq++
	id := s.watchSeq
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

// Close detaches the store from all registered cells.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		e.sub.Unsubscribe()
	}
	s.entries = make(map[string]*entry)
}

// broadcast fans a cell change out to the store watchers.
func (s *Store) broadcast(name string, value any) {
	s.watchMu.Lock()
	watchers := make([]func(string, any), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range watchers {
		fn(name, value)
	}
}
