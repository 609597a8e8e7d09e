package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a store connected to a miniredis instance
func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewRedisStore(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func testRow(area, category string) Row {
	return Row{
		Organization:  "gw",
		Period:        "2025",
		DepartmentTag: "prod",
		AreaID:        "prod__" + area,
		AreaName:      area,
		CategoryID:    "prod__" + category,
		Notes:         "note for " + category,
	}
}

func TestNewRedisStoreFromURL(t *testing.T) {
	t.Run("accepts redis url", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := NewRedisStoreFromURL("redis://" + mr.Addr())
		require.NoError(t, err)
		defer store.Close()

		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := NewRedisStoreFromURL("http://nope")
		assert.Error(t, err)
	})
}

func TestUpsert(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	fixed := time.UnixMilli(1_700_000_000_000)
	store.now = func() time.Time { return fixed }

	t.Run("writes row and scope index", func(t *testing.T) {
		row := testRow("main-stage", "lighting")
		stored, err := store.Upsert(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, fixed.UnixMilli(), stored.UpdatedAt)

		key := RowKey(row.Identity())
		assert.True(t, mr.Exists(key))
		members, err := mr.Members(ScopeKey("gw", "2025"))
		require.NoError(t, err)
		assert.Contains(t, members, key)
	})

	t.Run("replaces row with same identity", func(t *testing.T) {
		row := testRow("main-stage", "sound")
		_, err := store.Upsert(ctx, row)
		require.NoError(t, err)

		row.Notes = "second"
		row.Rating = 4
		_, err = store.Upsert(ctx, row)
		require.NoError(t, err)

		got, err := store.Get(ctx, row.Identity())
		require.NoError(t, err)
		assert.Equal(t, "second", got.Notes)
		assert.Equal(t, 4, got.Rating)
	})

	t.Run("rejects row without identity", func(t *testing.T) {
		_, err := store.Upsert(ctx, Row{Organization: "gw"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid row")
	})
}

// refusePublish fails every PUBLISH while letting other commands through.
type refusePublish struct{}

func (refusePublish) DialHook(next redis.DialHook) redis.DialHook { return next }

func (refusePublish) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "publish" {
			err := errors.New("publish refused")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (refusePublish) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestUpsertSucceedsWhenPublishFails(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	store.rdb.AddHook(refusePublish{})

	row := testRow("bar", "service")
	stored, err := store.Upsert(ctx, row)
	require.NoError(t, err)
	assert.NotZero(t, stored.UpdatedAt)
	assert.True(t, mr.Exists(RowKey(row.Identity())))

	got, err := store.Get(ctx, row.Identity())
	require.NoError(t, err)
	assert.Equal(t, row.Notes, got.Notes)
}

func TestGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("missing row is not found", func(t *testing.T) {
		_, err := store.Get(ctx, RowID{Organization: "gw", Period: "2025", AreaID: "x", CategoryID: "y"})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("returns stored columns", func(t *testing.T) {
		row := testRow("bar", "service")
		row.WorkedWell = "fast"
		row.NeedsImprovement = "queues"
		_, err := store.Upsert(ctx, row)
		require.NoError(t, err)

		got, err := store.Get(ctx, row.Identity())
		require.NoError(t, err)
		assert.Equal(t, "fast", got.WorkedWell)
		assert.Equal(t, "queues", got.NeedsImprovement)
		assert.Equal(t, "bar", got.AreaName)
		assert.Equal(t, "prod", got.DepartmentTag)
	})
}

func TestSelectScope(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("empty scope", func(t *testing.T) {
		rows, err := store.SelectScope(ctx, "gw", "1999")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("returns sorted rows of one period only", func(t *testing.T) {
		for _, r := range []Row{testRow("b", "z"), testRow("a", "y"), testRow("a", "x")} {
			_, err := store.Upsert(ctx, r)
			require.NoError(t, err)
		}
		other := testRow("a", "x")
		other.Period = "2024"
		_, err := store.Upsert(ctx, other)
		require.NoError(t, err)

		rows, err := store.SelectScope(ctx, "gw", "2025")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "prod__a", rows[0].AreaID)
		assert.Equal(t, "prod__x", rows[0].CategoryID)
		assert.Equal(t, "prod__y", rows[1].CategoryID)
		assert.Equal(t, "prod__b", rows[2].AreaID)
	})

	t.Run("skips index entries whose hash vanished", func(t *testing.T) {
		store2, mr := setupTestStore(t)
		row := testRow("gone", "c")
		_, err := store2.Upsert(ctx, row)
		require.NoError(t, err)
		mr.Del(RowKey(row.Identity()))

		rows, err := store2.SelectScope(ctx, "gw", "2025")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestSubscribe(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("receives upserted rows", func(t *testing.T) {
		sub, err := store.Subscribe(ctx, "gw")
		require.NoError(t, err)
		defer sub.Close()

		row := testRow("main-stage", "lighting")
		_, err = store.Upsert(ctx, row)
		require.NoError(t, err)

		select {
		case received := <-sub.Events():
			assert.Equal(t, row.AreaID, received.AreaID)
			assert.Equal(t, row.Notes, received.Notes)
			assert.NotZero(t, received.UpdatedAt)
		case <-time.After(1 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("ignores other organizations", func(t *testing.T) {
		sub, err := store.Subscribe(ctx, "other-org")
		require.NoError(t, err)
		defer sub.Close()

		_, err = store.Upsert(ctx, testRow("main-stage", "lighting"))
		require.NoError(t, err)

		select {
		case received := <-sub.Events():
			t.Fatalf("unexpected event %+v", received)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		sub, err := store.Subscribe(ctx, "gw")
		require.NoError(t, err)

		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())
	})

	t.Run("cleanup on context cancellation", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)

		sub, err := store.Subscribe(cancelCtx, "gw")
		require.NoError(t, err)
		assert.NotNil(t, sub.Errors())

		cancel()

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok, "channel should be closed")
		case <-time.After(1 * time.Second):
			t.Fatal("timeout waiting for channel close")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(redis.Nil))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(context.Canceled))
	assert.False(t, IsNotFound(nil))
}
