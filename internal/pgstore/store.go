// Package pgstore is the PostgreSQL backend of the remote store.
//
// Rows live in a single table whose primary key is the row identity, so every
// write is an INSERT ... ON CONFLICT upsert. Change events use LISTEN/NOTIFY
// on one channel; a notification carries only the row identity and the
// listener reads the row back, which keeps payloads far below the NOTIFY size
// limit whatever the size of a task list.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

// NotifyChannel is the LISTEN/NOTIFY channel carrying row changes.
const NotifyChannel = "gottwood_rows"

const rowColumns = `organization, period, department_tag, area_id, area_name, category_id,
	rating, worked_well, needs_improvement, notes, updated_at`

// Store implements remote.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ remote.Store = (*Store)(nil)

// Open connects to databaseURL, verifies the connection and applies pending
// migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// notification is the NOTIFY payload.
type notification struct {
	Organization string `json:"organization"`
	Period       string `json:"period"`
	AreaID       string `json:"area_id"`
	CategoryID   string `json:"category_id"`
}

func encodeNotification(id remote.RowID) (string, error) {
	b, err := json.Marshal(notification{
		Organization: id.Organization,
		Period:       id.Period,
		AreaID:       id.AreaID,
		CategoryID:   id.CategoryID,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeNotification(payload string) (remote.RowID, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return remote.RowID{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.Organization == "" || n.AreaID == "" || n.CategoryID == "" {
		return remote.RowID{}, fmt.Errorf("incomplete notification %q", payload)
	}
	return remote.RowID{Organization: n.Organization, Period: n.Period, AreaID: n.AreaID, CategoryID: n.CategoryID}, nil
}

// Upsert writes the row and notifies listeners when the transaction commits.
func (s *Store) Upsert(ctx context.Context, row remote.Row) (remote.Row, error) {
	if err := row.Validate(); err != nil {
		return remote.Row{}, fmt.Errorf("invalid row: %w", err)
	}
	row.UpdatedAt = s.now().UnixMilli()

	payload, err := encodeNotification(row.Identity())
	if err != nil {
		return remote.Row{}, fmt.Errorf("encode notification: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return remote.Row{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO gottwood_rows (`+rowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (organization, period, area_id, category_id) DO UPDATE SET
			department_tag    = EXCLUDED.department_tag,
			area_name         = EXCLUDED.area_name,
			rating            = EXCLUDED.rating,
			worked_well       = EXCLUDED.worked_well,
			needs_improvement = EXCLUDED.needs_improvement,
			notes             = EXCLUDED.notes,
			updated_at        = EXCLUDED.updated_at
	`, row.Organization, row.Period, row.DepartmentTag, row.AreaID, row.AreaName, row.CategoryID,
		row.Rating, row.WorkedWell, row.NeedsImprovement, row.Notes, row.UpdatedAt)
	if err != nil {
		return remote.Row{}, fmt.Errorf("upsert row %s: %w", row.Identity(), err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, payload); err != nil {
		return remote.Row{}, fmt.Errorf("notify row %s: %w", row.Identity(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return remote.Row{}, fmt.Errorf("commit upsert: %w", err)
	}
	return row, nil
}

func scanRow(r pgx.Row) (remote.Row, error) {
	var row remote.Row
	err := r.Scan(&row.Organization, &row.Period, &row.DepartmentTag, &row.AreaID, &row.AreaName,
		&row.CategoryID, &row.Rating, &row.WorkedWell, &row.NeedsImprovement, &row.Notes, &row.UpdatedAt)
	return row, err
}

// Get returns a single row, or an error satisfying remote.IsNotFound.
func (s *Store) Get(ctx context.Context, id remote.RowID) (*remote.Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, `
		SELECT `+rowColumns+` FROM gottwood_rows
		WHERE organization = $1 AND period = $2 AND area_id = $3 AND category_id = $4
	`, id.Organization, id.Period, id.AreaID, id.CategoryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, remote.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get row %s: %w", id, err)
	}
	return &row, nil
}

// SelectScope returns every row of (org, period), ordered by area_id then category_id.
func (s *Store) SelectScope(ctx context.Context, org, period string) ([]remote.Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+rowColumns+` FROM gottwood_rows
		WHERE organization = $1 AND period = $2
		ORDER BY area_id, category_id
	`, org, period)
	if err != nil {
		return nil, fmt.Errorf("select scope %s/%s: %w", org, period, err)
	}
	defer rows.Close()

	out := []remote.Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select scope %s/%s: %w", org, period, err)
	}
	return out, nil
}

// Subscribe listens for row changes of org on a dedicated pooled connection.
// LISTEN is issued before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, org string) (*remote.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}

	eventsChan := make(chan remote.Row, 64)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	// The connection stays in LISTEN state, so it must never go back to the pool.
	listenConn := conn.Hijack()

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer listenConn.Close(context.Background())

		for {
			n, err := listenConn.WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					log.Printf("[PgStore] Listen connection lost: %v", err)
				}
				return
			}

			id, err := decodeNotification(n.Payload)
			if err != nil {
				select {
				case errorsChan <- err:
				case <-subCtx.Done():
					return
				}
				continue
			}
			if id.Organization != org {
				continue
			}

			row, err := s.Get(subCtx, id)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				select {
				case errorsChan <- fmt.Errorf("read notified row: %w", err):
				case <-subCtx.Done():
					return
				}
				continue
			}

			select {
			case eventsChan <- *row:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return remote.NewSubscription(eventsChan, errorsChan, cancelFunc), nil
}
