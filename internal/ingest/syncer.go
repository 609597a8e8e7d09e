// Package ingest keeps the local state store in step with the remote store.
//
// Three channels feed the store: a bulk load when a scope is opened, a
// periodic poll (plus an immediate poll on Wake), and a push subscription.
// All of them decode rows with the same codec and merge through Apply, which
// never overwrites a key that holds an undelivered local edit.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/14tweny/Gottwood-Review-sub000/internal/roster"
	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/codec"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/keys"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

// DefaultPollInterval is used when Options.PollInterval is unset.
const DefaultPollInterval = 15 * time.Second

// Options configures a Syncer.
type Options struct {
	PollInterval time.Duration
	Decoder      *codec.Decoder
}

// Syncer merges remote rows of one (organization, period) into a state store.
type Syncer struct {
	remote  remote.Store
	state   *state.Store
	decoder *codec.Decoder
	org     string
	period  string
	poll    time.Duration
	wake    chan struct{}
}

// Stats summarises one batch of merged rows.
type Stats struct {
	Rows    int // rows received
	Applied int // rows merged into the store
	Pending int // rows skipped because the key holds a local edit
	Ignored int // rows that were unrecognised or out of scope
}

// New creates a syncer for org and period.
func New(store remote.Store, st *state.Store, org, period string, opts Options) *Syncer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Decoder == nil {
		opts.Decoder = codec.NewDecoder(nil)
	}
	return &Syncer{
		remote:  store,
		state:   st,
		decoder: opts.Decoder,
		org:     org,
		period:  period,
		poll:    opts.PollInterval,
		wake:    make(chan struct{}, 1),
	}
}

// ScopeID names the load scope in the state store.
func (s *Syncer) ScopeID() string {
	return s.org + "/" + s.period
}

// Apply decodes row and merges it into the store. It reports whether the
// row changed the store's view: false for unrecognised rows, rows of another
// organization or period, and rows whose key holds a pending local edit.
func (s *Syncer) Apply(row remote.Row, src state.Source) bool {
	applied, _ := s.apply(row, src)
	return applied
}

type outcome int

const (
	outcomeApplied outcome = iota
	outcomePending
	outcomeIgnored
)

func (s *Syncer) apply(row remote.Row, src state.Source) (bool, outcome) {
	if row.Organization != s.org {
		return false, outcomeIgnored
	}
	if row.Period != s.period && row.Period != keys.ConfigPeriod {
		return false, outcomeIgnored
	}
	u, ok := s.decoder.DecodeRow(row)
	if !ok {
		return false, outcomeIgnored
	}

	var applied bool
	switch u.Kind {
	case codec.UpdateReview, codec.UpdateVotes:
		applied = s.state.MergeReview(u.Key, src, u.ApplyReview)
	case codec.UpdateTasks:
		applied = s.state.MergeTasks(u.Key, u.Tasks, src)
	case codec.UpdateDescription:
		applied = s.state.MergeDescription(u.Key, u.Text, src)
	case codec.UpdateCategories:
		applied = s.state.MergeCategories(u.Key, u.Categories, src)
	case codec.UpdateAreas:
		applied = s.state.MergeAreas(u.Key, u.Areas, src)
	case codec.UpdateYears:
		applied = s.state.MergeYears(u.Key, u.Years, src)
	case codec.UpdateDepartments:
		applied = s.state.MergeDepartments(u.Key, u.Departments, src)
	case codec.UpdateRoster:
		// Rosters written as bare names carry no colors; fill them in
		// roster order so every client draws the same palette.
		members, _ := roster.FillColors(u.Roster)
		applied = s.state.MergeRoster(u.Key, members, src)
	default:
		return false, outcomeIgnored
	}
	if !applied {
		return false, outcomePending
	}
	return true, outcomeApplied
}

// fetch reads the period's rows plus the organization's config rows.
func (s *Syncer) fetch(ctx context.Context) ([]remote.Row, error) {
	rows, err := s.remote.SelectScope(ctx, s.org, s.period)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", s.ScopeID(), err)
	}
	config, err := s.remote.SelectScope(ctx, s.org, keys.ConfigPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to select config of %s: %w", s.org, err)
	}
	return append(rows, config...), nil
}

func (s *Syncer) merge(rows []remote.Row, src state.Source) Stats {
	stats := Stats{Rows: len(rows)}
	for _, row := range rows {
		_, out := s.apply(row, src)
		switch out {
		case outcomeApplied:
			stats.Applied++
		case outcomePending:
			stats.Pending++
		default:
			stats.Ignored++
		}
	}
	return stats
}

// Load performs the bulk load of the scope. Only the scope's first load puts
// the store in the loading state. On a read failure the cached state is kept
// and the error returned.
func (s *Syncer) Load(ctx context.Context) (Stats, error) {
	first := s.state.BeginLoad(s.ScopeID())
	rows, err := s.fetch(ctx)
	if first {
		defer s.state.EndLoad(s.ScopeID(), err == nil)
	}
	if err != nil {
		log.Printf("[Sync] Load of %s failed, keeping cached state: %v", s.ScopeID(), err)
		return Stats{}, err
	}

	stats := s.merge(rows, state.SourceLoad)
	s.logEvent("load_complete", map[string]interface{}{
		"first":           first,
		"rows":            stats.Rows,
		"applied":         stats.Applied,
		"skipped_pending": stats.Pending,
	})
	return stats, nil
}

// Poll re-fetches the scope and merges it. Keys without pending edits take
// the fetched value.
func (s *Syncer) Poll(ctx context.Context) (Stats, error) {
	rows, err := s.fetch(ctx)
	if err != nil {
		log.Printf("[Sync] Poll of %s failed, keeping cached state: %v", s.ScopeID(), err)
		return Stats{}, err
	}
	stats := s.merge(rows, state.SourcePoll)
	if stats.Applied > 0 || stats.Pending > 0 {
		s.logEvent("poll_merged", map[string]interface{}{
			"rows":            stats.Rows,
			"applied":         stats.Applied,
			"skipped_pending": stats.Pending,
		})
	}
	return stats, nil
}


// Wake requests an immediate poll, e.g. when the client returns to the
// foreground. Requests made while one is already queued are merged.
func (s *Syncer) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run polls and listens for pushes until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	log.Printf("[Sync] Starting for %s (poll every %s)", s.ScopeID(), s.poll)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.RunPoller(ctx)
	}()
	go func() {
		defer wg.Done()
		s.RunPush(ctx)
	}()
	wg.Wait()

	log.Printf("[Sync] Stopped for %s", s.ScopeID())
	return nil
}

// RunPoller polls every poll interval and on every Wake until ctx is done.
func (s *Syncer) RunPoller(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		case <-s.wake:
			s.Poll(ctx)
		}
	}
}

// RunPush applies push events until ctx is done. A dropped subscription is
// re-established after a poll interval; the poller covers the gap.
func (s *Syncer) RunPush(ctx context.Context) {
	for {
		if err := s.listen(ctx); err != nil {
			log.Printf("[Sync] Push channel for %s unavailable: %v", s.org, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.poll):
		}
	}
}

func (s *Syncer) listen(ctx context.Context) error {
	sub, err := s.remote.Subscribe(ctx, s.org)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case row, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("subscription closed")
			}
			if s.Apply(row, state.SourcePush) {
				s.logEvent("push_applied", map[string]interface{}{
					"area_id":     row.AreaID,
					"category_id": row.CategoryID,
					"updated_at":  row.UpdatedAt,
				})
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return fmt.Errorf("subscription error channel closed")
			}
			log.Printf("[Sync] Subscription error: %v", err)
		}
	}
}

// logEvent writes a structured JSON log line.
func (s *Syncer) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "sync"
	data["event_type"] = eventType
	data["organization"] = s.org
	data["period"] = s.period

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Sync] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
