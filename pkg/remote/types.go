// Package remote defines the remote store contract of the Gottwood sync core
// and its Redis implementation.
//
// The remote schema is deliberately narrow: every record kind (review, votes,
// task list, description, category selection, area list, config) is stored as
// a Row with the same handful of generic text columns. Rows are unique on
// (organization, period, area_id, category_id) and every write is an upsert.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Row is one record of the remote store. Which columns carry what depends on
// the row kind, see package codec.
type Row struct {
	Organization     string `json:"organization"`
	Period           string `json:"period"`
	DepartmentTag    string `json:"department_tag"`
	AreaID           string `json:"area_id"`
	AreaName         string `json:"area_name"`
	CategoryID       string `json:"category_id"`
	Rating           int    `json:"rating"`
	WorkedWell       string `json:"worked_well"`
	NeedsImprovement string `json:"needs_improvement"`
	Notes            string `json:"notes"`
	UpdatedAt        int64  `json:"updated_at"` // Unix milliseconds, set by the store on write
}

// Identity returns the unique key of the row: (organization, period, area_id, category_id).
func (r Row) Identity() RowID {
	return RowID{Organization: r.Organization, Period: r.Period, AreaID: r.AreaID, CategoryID: r.CategoryID}
}

// Validate checks the identity columns are present.
func (r Row) Validate() error {
	if r.Organization == "" {
		return fmt.Errorf("row organization cannot be empty")
	}
	if r.Period == "" {
		return fmt.Errorf("row period cannot be empty")
	}
	if r.AreaID == "" {
		return fmt.Errorf("row area_id cannot be empty")
	}
	if r.CategoryID == "" {
		return fmt.Errorf("row category_id cannot be empty")
	}
	return nil
}

// RowID is the uniqueness constraint of the remote schema.
type RowID struct {
	Organization string
	Period       string
	AreaID       string
	CategoryID   string
}

func (id RowID) String() string {
	return id.Organization + "/" + id.Period + "/" + id.AreaID + "/" + id.CategoryID
}

// Store is the remote store contract consumed by the writer and the sync channels.
type Store interface {
	// Upsert writes or replaces the row with the same identity and publishes a
	// change event to the organization's subscribers. It returns the row as
	// stored, with UpdatedAt set.
	Upsert(ctx context.Context, row Row) (Row, error)

	// Get returns a single row. Missing rows yield an error for which
	// IsNotFound reports true.
	Get(ctx context.Context, id RowID) (*Row, error)

	// SelectScope returns every row of (organization, period).
	SelectScope(ctx context.Context, org, period string) ([]Row, error)

	// Subscribe delivers change events for every row of the organization.
	Subscribe(ctx context.Context, org string) (*Subscription, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// ErrNotFound is returned by Get when the row does not exist.
var ErrNotFound = errors.New("row not found")

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}

// Subscription is an active push subscription to row change events.
// Caller must call Close() when done to release the underlying connection.
type Subscription struct {
	events <-chan Row
	errors <-chan error
	cancel func()
	once   sync.Once
}

// NewSubscription wraps the channels fed by a backend's receive loop. cancel
// must stop that loop, which in turn closes both channels.
func NewSubscription(events <-chan Row, errs <-chan error, cancel func()) *Subscription {
	return &Subscription{events: events, errors: errs, cancel: cancel}
}

// Events returns the channel of row change events.
// The channel is closed when the subscription is closed or its context is cancelled.
func (s *Subscription) Events() <-chan Row {
	return s.events
}

// Errors returns non-fatal subscription errors such as undecodable payloads.
// The subscription keeps running after an error; the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}
