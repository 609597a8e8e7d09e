package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Each row is a hash; a per-period set
// indexes the row keys for scope queries; changes are published on a
// per-organization Pub/Sub channel.
// The store is safe for concurrent use.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore creates a store from Redis connection options.
func NewRedisStore(opts *redis.Options) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(opts),
		now: time.Now,
	}
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(opts), nil
}

// Close closes the Redis connection. After calling Close(), the store should not be used.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Upsert writes the row hash and its scope index entry in one MULTI/EXEC, then
// publishes the stored row to the organization's event channel. The row is
// stored once the transaction commits; a failed publish is only logged, since
// subscribers that miss it pick the row up on their next poll.
func (s *RedisStore) Upsert(ctx context.Context, row Row) (Row, error) {
	if err := row.Validate(); err != nil {
		return Row{}, fmt.Errorf("invalid row: %w", err)
	}
	row.UpdatedAt = s.now().UnixMilli()

	key := RowKey(row.Identity())
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, RowToHash(row))
		pipe.SAdd(ctx, ScopeKey(row.Organization, row.Period), key)
		return nil
	})
	if err != nil {
		return Row{}, fmt.Errorf("failed to write row to Redis: %w", err)
	}

	payload, err := json.Marshal(row)
	if err != nil {
		log.Printf("[Remote] Failed to marshal event for %s: %v", key, err)
		return row, nil
	}
	if err := s.rdb.Publish(ctx, RowEventsChannel(row.Organization), payload).Err(); err != nil {
		log.Printf("[Remote] Failed to publish event for %s: %v", key, err)
	}

	return row, nil
}

// Get retrieves a single row. Returns an error satisfying IsNotFound if the
// row does not exist.
func (s *RedisStore) Get(ctx context.Context, id RowID) (*Row, error) {
	hash, err := s.rdb.HGetAll(ctx, RowKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read row from Redis: %w", err)
	}
	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	row, err := HashToRow(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize row %s: %w", id, err)
	}
	return &row, nil
}

// SelectScope returns every row of (org, period), ordered by area_id then category_id.
// Index entries whose hash has disappeared are skipped.
func (s *RedisStore) SelectScope(ctx context.Context, org, period string) ([]Row, error) {
	members, err := s.rdb.SMembers(ctx, ScopeKey(org, period)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scope index: %w", err)
	}
	if len(members) == 0 {
		return []Row{}, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, key := range members {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read scope rows: %w", err)
	}

	rows := make([]Row, 0, len(members))
	for i, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			continue
		}
		row, err := HashToRow(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize row %s: %w", members[i], err)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AreaID != rows[j].AreaID {
			return rows[i].AreaID < rows[j].AreaID
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows, nil
}

// Subscribe subscribes to row change events of an organization.
// The subscription is confirmed before Subscribe returns, so rows written after
// it returns are guaranteed to be delivered while the connection stays up.
//
// Events are delivered on a buffered channel (size 64). Redis Pub/Sub is
// at-most-once: a disconnected subscriber misses events, which the periodic
// poll repairs.
func (s *RedisStore) Subscribe(ctx context.Context, org string) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, RowEventsChannel(org))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to row events: %w", err)
	}

	eventsChan := make(chan Row, 64)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var row Row
				if err := json.Unmarshal([]byte(msg.Payload), &row); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal row event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- row:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return NewSubscription(eventsChan, errorsChan, cancelFunc), nil
}
