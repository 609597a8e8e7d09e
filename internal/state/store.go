// Package state is the client-resident record store.
//
// Every value is addressed by a local key (see package keys) and is only ever
// replaced as a whole, under the store's lock, so readers never observe a
// partially merged record. Alongside the values the store tracks the save
// status of each key, which keys hold local edits not yet confirmed by the
// remote store, and which scopes have completed their first load.
package state

import (
	"sort"
	"sync"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// Source says where a change came from.
type Source string

const (
	SourceLocal Source = "local"
	SourceLoad  Source = "load"
	SourcePoll  Source = "poll"
	SourcePush  Source = "push"
)

// Change is delivered to listeners after a value or status is replaced.
type Change struct {
	Key    string
	Source Source
	Status bool // true when only the save status changed
}

type table[T any] struct {
	values map[string]T
	clone  func(T) T
	zero   func() T
}

func newTable[T any](clone func(T) T, zero func() T) *table[T] {
	return &table[T]{values: make(map[string]T), clone: clone, zero: zero}
}

func (t *table[T]) get(key string) (T, bool) {
	v, ok := t.values[key]
	if !ok {
		return t.zero(), false
	}
	return t.clone(v), true
}

func (t *table[T]) put(key string, v T) {
	t.values[key] = t.clone(v)
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func emptyStrings() []string { return []string{} }

// Store holds all cached records of a session. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	areas        *table[[]string]
	descriptions *table[string]
	categories   *table[model.CategorySelection]
	reviews      *table[model.ReviewRecord]
	tasks        *table[[]model.Task]
	years        *table[[]string]
	departments  *table[[]model.Department]
	roster       *table[[]model.RosterMember]

	status  map[string]model.SaveStatus
	pending map[string]map[string]struct{}
	loaded  map[string]bool
	loading map[string]bool

	listeners map[int]func(Change)
	nextID    int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		areas:        newTable(cloneStrings, emptyStrings),
		descriptions: newTable(func(s string) string { return s }, func() string { return "" }),
		categories: newTable(func(c model.CategorySelection) model.CategorySelection {
			return model.CategorySelection{Available: cloneStrings(c.Available), Selected: cloneStrings(c.Selected)}
		}, func() model.CategorySelection {
			return model.CategorySelection{Available: []string{}, Selected: []string{}}
		}),
		reviews: newTable(model.ReviewRecord.Clone, func() model.ReviewRecord {
			return model.ReviewRecord{}.Clone()
		}),
		tasks:       newTable(model.CloneTasks, func() []model.Task { return []model.Task{} }),
		years:       newTable(cloneStrings, emptyStrings),
		departments: newTable(func(d []model.Department) []model.Department { return append([]model.Department{}, d...) }, func() []model.Department { return []model.Department{} }),
		roster:      newTable(model.CloneRoster, func() []model.RosterMember { return []model.RosterMember{} }),
		status:      make(map[string]model.SaveStatus),
		pending:     make(map[string]map[string]struct{}),
		loaded:      make(map[string]bool),
		loading:     make(map[string]bool),
		listeners:   make(map[int]func(Change)),
	}
}

// OnChange registers fn to be called after every change. Listeners run on the
// goroutine that made the change, outside the store's lock. The returned func
// removes the listener.
func (s *Store) OnChange(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// unlockAndNotify releases the write lock and then informs listeners.
func (s *Store) unlockAndNotify(changes ...Change) {
	fns := make([]func(Change), 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// Save status

// Status returns the save status of key, idle when never written.
func (s *Store) Status(key string) model.SaveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.status[key]; ok {
		return st
	}
	return model.SaveIdle
}

// SetStatus replaces the save status of key.
func (s *Store) SetStatus(key string, st model.SaveStatus) {
	s.mu.Lock()
	if s.status[key] == st {
		s.mu.Unlock()
		return
	}
	s.status[key] = st
	s.unlockAndNotify(Change{Key: key, Source: SourceLocal, Status: true})
}

// Pending edits. A key is pending while any of its rows has a local edit the
// writer has not yet delivered. Remote data never overwrites a pending key.

// MarkPending records an undelivered edit of row under key.
func (s *Store) MarkPending(key, row string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.pending[key]
	if !ok {
		rows = make(map[string]struct{})
		s.pending[key] = rows
	}
	rows[row] = struct{}{}
}

// ClearPending records that the latest edit of row under key was delivered
// (or abandoned after a failure).
func (s *Store) ClearPending(key, row string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rows, ok := s.pending[key]; ok {
		delete(rows, row)
		if len(rows) == 0 {
			delete(s.pending, key)
		}
	}
}

// IsPending reports whether key holds an undelivered local edit.
func (s *Store) IsPending(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending[key]) > 0
}

// Load tracking

// BeginLoad marks a load of scope as started and reports whether it is the
// scope's first load. Only a first load puts the store in the loading state.
func (s *Store) BeginLoad(scope string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[scope] || s.loading[scope] {
		return false
	}
	s.loading[scope] = true
	return true
}

// EndLoad marks the load of scope as finished. A failed first load leaves the
// scope unloaded so the next attempt is still reported as first.
func (s *Store) EndLoad(scope string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, scope)
	if ok {
		s.loaded[scope] = true
	}
}

// Loading reports whether any first load is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loading) > 0
}

// Loaded reports whether scope has completed a load.
func (s *Store) Loaded(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[scope]
}
