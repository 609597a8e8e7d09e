package state

import (
	"reflect"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

func get[T any](s *Store, t *table[T], key string) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := t.get(key)
	return v
}

func put[T any](s *Store, t *table[T], key string, v T, src Source) {
	s.mu.Lock()
	t.put(key, v)
	s.unlockAndNotify(Change{Key: key, Source: src})
}

// update applies fn to the current value under the lock. When fn fails the
// value is left untouched.
func update[T any](s *Store, t *table[T], key string, src Source, fn func(T) (T, error)) (T, error) {
	s.mu.Lock()
	cur, _ := t.get(key)
	next, err := fn(cur)
	if err != nil {
		s.mu.Unlock()
		var zero T
		return zero, err
	}
	t.put(key, next)
	s.unlockAndNotify(Change{Key: key, Source: src})
	return t.clone(next), nil
}

// merge applies remote data unless key holds a pending local edit. It reports
// whether the value was applied. Applying a value equal to the current one is
// a no-op and notifies nobody.
func merge[T any](s *Store, t *table[T], key string, src Source, fn func(T) T) bool {
	s.mu.Lock()
	if len(s.pending[key]) > 0 {
		s.mu.Unlock()
		return false
	}
	cur, existed := t.get(key)
	next := fn(cur)
	// Compare clones so nil and empty collections count as equal.
	if existed && reflect.DeepEqual(t.clone(cur), t.clone(next)) {
		s.mu.Unlock()
		return true
	}
	t.put(key, next)
	s.unlockAndNotify(Change{Key: key, Source: src})
	return true
}

func replace[T any](v T) func(T) T {
	return func(T) T { return v }
}

// Areas

func (s *Store) Areas(key string) []string { return get(s, s.areas, key) }
func (s *Store) PutAreas(key string, v []string, src Source) {
	put(s, s.areas, key, v, src)
}
func (s *Store) UpdateAreas(key string, fn func([]string) ([]string, error)) ([]string, error) {
	return update(s, s.areas, key, SourceLocal, fn)
}
func (s *Store) MergeAreas(key string, v []string, src Source) bool {
	return merge(s, s.areas, key, src, replace(v))
}

// Descriptions

func (s *Store) Description(key string) string { return get(s, s.descriptions, key) }
func (s *Store) PutDescription(key, v string, src Source) {
	put(s, s.descriptions, key, v, src)
}
func (s *Store) MergeDescription(key, v string, src Source) bool {
	return merge(s, s.descriptions, key, src, replace(v))
}

// Category selections

func (s *Store) Categories(key string) model.CategorySelection { return get(s, s.categories, key) }
func (s *Store) PutCategories(key string, v model.CategorySelection, src Source) {
	put(s, s.categories, key, v, src)
}
func (s *Store) MergeCategories(key string, v model.CategorySelection, src Source) bool {
	return merge(s, s.categories, key, src, replace(v))
}

// Reviews

func (s *Store) Review(key string) model.ReviewRecord { return get(s, s.reviews, key) }

func (s *Store) UpdateReview(key string, fn func(model.ReviewRecord) (model.ReviewRecord, error)) (model.ReviewRecord, error) {
	return update(s, s.reviews, key, SourceLocal, fn)
}

// MergeReview merges a partial remote review into the cached record; fn
// receives the current record and returns the merged one.
func (s *Store) MergeReview(key string, src Source, fn func(model.ReviewRecord) model.ReviewRecord) bool {
	return merge(s, s.reviews, key, src, fn)
}

// Tasks

func (s *Store) Tasks(key string) []model.Task { return get(s, s.tasks, key) }
func (s *Store) PutTasks(key string, v []model.Task, src Source) {
	put(s, s.tasks, key, v, src)
}
func (s *Store) UpdateTasks(key string, fn func([]model.Task) ([]model.Task, error)) ([]model.Task, error) {
	return update(s, s.tasks, key, SourceLocal, fn)
}
func (s *Store) MergeTasks(key string, v []model.Task, src Source) bool {
	return merge(s, s.tasks, key, src, replace(v))
}

// Config records

func (s *Store) Years(key string) []string { return get(s, s.years, key) }
func (s *Store) PutYears(key string, v []string, src Source) {
	put(s, s.years, key, v, src)
}
func (s *Store) MergeYears(key string, v []string, src Source) bool {
	return merge(s, s.years, key, src, replace(v))
}

func (s *Store) Departments(key string) []model.Department { return get(s, s.departments, key) }
func (s *Store) PutDepartments(key string, v []model.Department, src Source) {
	put(s, s.departments, key, v, src)
}
func (s *Store) MergeDepartments(key string, v []model.Department, src Source) bool {
	return merge(s, s.departments, key, src, replace(v))
}

func (s *Store) Roster(key string) []model.RosterMember { return get(s, s.roster, key) }
func (s *Store) PutRoster(key string, v []model.RosterMember, src Source) {
	put(s, s.roster, key, v, src)
}
func (s *Store) UpdateRoster(key string, fn func([]model.RosterMember) ([]model.RosterMember, error)) ([]model.RosterMember, error) {
	return update(s, s.roster, key, SourceLocal, fn)
}
func (s *Store) MergeRoster(key string, v []model.RosterMember, src Source) bool {
	return merge(s, s.roster, key, src, replace(v))
}
