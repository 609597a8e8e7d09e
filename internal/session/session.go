// Package session is the facade the user interface talks to.
//
// A Session binds one (organization, period, department) scope to a remote
// store. Reads come from the local state store and never block on the
// network. Mutations update the state store first and then hand the encoded
// row to the debounced writer, so every edit shows up locally at once and
// reaches the remote store after the quiet interval.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/14tweny/Gottwood-Review-sub000/internal/ingest"
	"github.com/14tweny/Gottwood-Review-sub000/internal/prefs"
	"github.com/14tweny/Gottwood-Review-sub000/internal/roster"
	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/internal/writer"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/codec"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/keys"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

var (
	// ErrNoIdentity is returned by mutations that need an author before
	// Identify has been called.
	ErrNoIdentity = errors.New("no identity: call Identify first")

	// ErrWrongPeriod is returned when a mutation belongs to the other
	// period kind, e.g. a vote in a tracker period.
	ErrWrongPeriod = errors.New("operation not available in this period")
)

// Options configures a Session.
type Options struct {
	Org           model.Organization
	Period        string
	Dept          string
	CurrentPeriod string // threshold for model.Classify

	Writer       writer.Config
	PollInterval time.Duration
	Notifier     writer.Notifier // nil logs failures

	// Prefs caches config records and the identity between runs. Optional.
	Prefs *prefs.Store

	// Now is the clock for comment timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Session is one user's working view of a scope.
type Session struct {
	scope   model.Scope
	kind    model.PeriodKind
	remote  remote.Store
	state   *state.Store
	writer  *writer.Writer
	sync    *ingest.Syncer
	decoder *codec.Decoder
	prefs   *prefs.Store
	now     func() time.Time

	editSeq atomic.Uint64

	mu       sync.Mutex
	identity string
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
}

// New builds a session without touching the network. Call Load to fill it.
func New(store remote.Store, opts Options) (*Session, error) {
	if err := opts.Org.Validate(); err != nil {
		return nil, err
	}
	scope := model.Scope{Org: opts.Org.ID, Period: opts.Period, Dept: opts.Dept}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := (model.Department{ID: opts.Dept}).Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	st := state.New()
	s := &Session{
		scope:   scope,
		kind:    model.Classify(opts.Period, opts.CurrentPeriod),
		remote:  store,
		state:   st,
		writer:  writer.New(opts.Writer, st, opts.Notifier),
		decoder: codec.NewDecoder(func(format string, args ...interface{}) { log.Printf("[Session] "+format, args...) }),
		prefs:   opts.Prefs,
		now:     opts.Now,
	}
	s.sync = ingest.New(store, st, scope.Org, scope.Period, ingest.Options{
		PollInterval: opts.PollInterval,
		Decoder:      s.decoder,
	})
	return s, nil
}

// Open creates a session, seeds it from the prefs cache and performs the
// first bulk load. A failed load is not fatal: the session keeps the cached
// state and the error is returned alongside it.
func Open(ctx context.Context, store remote.Store, opts Options) (*Session, error) {
	s, err := New(store, opts)
	if err != nil {
		return nil, err
	}
	s.restore(ctx)
	return s, s.Load(ctx)
}

// Load fetches the scope and merges it. Keys holding local edits keep them.
func (s *Session) Load(ctx context.Context) error {
	if _, err := s.sync.Load(ctx); err != nil {
		return err
	}
	s.persistConfig(ctx)
	return nil
}

// Start runs the poll and push channels in the background until Close.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.closed {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.sync.Run(runCtx)
	}()
}

// Wake requests an immediate poll, e.g. on return to the foreground.
func (s *Session) Wake() {
	s.sync.Wake()
}

// Flush sends every waiting write now.
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Close flushes pending writes, stops the background channels and stores
// the config cache. The remote store is not closed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if n := s.writer.Pending(); n > 0 {
		log.Printf("[Session] Sending %d waiting writes before closing", n)
	}
	err := s.writer.Close(ctx)
	if cancel != nil {
		cancel()
		<-done
	}
	s.persistConfig(ctx)
	return err
}

// Scope returns the session's scope.
func (s *Session) Scope() model.Scope { return s.scope }

// Kind reports whether the period uses task checklists or rated reviews.
func (s *Session) Kind() model.PeriodKind { return s.kind }

// Loading reports whether the first load is still in progress.
func (s *Session) Loading() bool { return s.state.Loading() }

// OnChange registers a listener for store changes. The returned func removes it.
func (s *Session) OnChange(fn func(state.Change)) func() { return s.state.OnChange(fn) }

// SaveStatus returns the save status of a local key.
func (s *Session) SaveStatus(key string) model.SaveStatus { return s.state.Status(key) }

// Identity returns the name the session acts as, empty until Identify.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Keys

// ReviewKey is the local key of a review record in this scope.
func (s *Session) ReviewKey(area, category string) string {
	return keys.ReviewKey(s.scope.Org, s.scope.Period, s.scope.Dept, area, category)
}

// TaskKey is the local key of an area's task list.
func (s *Session) TaskKey(area string) string {
	return keys.TaskKey(s.scope.Org, s.scope.Period, s.scope.Dept, area)
}

// DescriptionKey is the local key of an area's description.
func (s *Session) DescriptionKey(area string) string {
	return keys.DescriptionKey(s.scope.Org, s.scope.Period, s.scope.Dept, area)
}

// CategoriesKey is the local key of an area's category selection.
func (s *Session) CategoriesKey(area string) string {
	return keys.CategoriesKey(s.scope.Org, s.scope.Period, s.scope.Dept, area)
}

// AreasKey is the local key of the department's area list.
func (s *Session) AreasKey() string {
	return keys.AreaListKey(s.scope.Org, s.scope.Period, s.scope.Dept)
}

// ConfigKey is the local key of one of the organization's config records.
func (s *Session) ConfigKey(name string) string {
	return keys.ConfigKey(s.scope.Org, name)
}

// Reads

// Areas returns the department's ordered area list.
func (s *Session) Areas() []string { return s.state.Areas(s.AreasKey()) }

// Description returns an area's description.
func (s *Session) Description(area string) string {
	return s.state.Description(s.DescriptionKey(area))
}

// Categories returns an area's category selection.
func (s *Session) Categories(area string) model.CategorySelection {
	return s.state.Categories(s.CategoriesKey(area))
}

// Review returns the review record of a category in an area.
func (s *Session) Review(area, category string) model.ReviewRecord {
	return s.state.Review(s.ReviewKey(area, category))
}

// Tasks returns an area's task list in display order.
func (s *Session) Tasks(area string) []model.Task {
	return model.SortForDisplay(s.state.Tasks(s.TaskKey(area)))
}

// Years returns the organization's period list.
func (s *Session) Years() []string { return s.state.Years(s.ConfigKey(keys.ConfigYears)) }

// Departments returns the organization's departments.
func (s *Session) Departments() []model.Department {
	return s.state.Departments(s.ConfigKey(keys.ConfigDepts))
}

// Roster returns the organization's roster.
func (s *Session) Roster() []model.RosterMember {
	return s.state.Roster(s.ConfigKey(keys.ConfigRoster))
}

// Resolver returns a name resolver over the current roster.
func (s *Session) Resolver() *roster.Resolver {
	return roster.NewResolver(s.Roster())
}

// save hands the encoded row to the writer. The row is captured now, so the
// write carries this edit's value even if the store changes meanwhile.
func (s *Session) save(statusKey string, row remote.Row, immediate bool) error {
	job := writer.Job{
		Key:       row.Identity().String(),
		StatusKey: statusKey,
		Write: func(ctx context.Context) error {
			_, err := s.remote.Upsert(ctx, row)
			return err
		},
	}
	if immediate {
		return s.writer.Immediate(job)
	}
	return s.writer.Schedule(job)
}

// guard marks key pending for the duration of a local edit so that a poll
// landing between the store update and the writer's own marker cannot
// overwrite it. The returned func lifts the guard.
func (s *Session) guard(key string) func() {
	marker := "edit#" + strconv.FormatUint(s.editSeq.Add(1), 10)
	s.state.MarkPending(key, marker)
	return func() { s.state.ClearPending(key, marker) }
}

func (s *Session) requireKind(kind model.PeriodKind) error {
	if s.kind != kind {
		return fmt.Errorf("%w: %s is a %s period", ErrWrongPeriod, s.scope.Period, s.kind)
	}
	return nil
}

func (s *Session) author() (string, error) {
	name := s.Identity()
	if name == "" {
		return "", ErrNoIdentity
	}
	return name, nil
}
