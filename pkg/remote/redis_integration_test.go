//go:build integration

package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/internal/testutil"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

// Run with: go test -tags=integration -v ./pkg/remote

func TestRedisStore_AgainstRealRedis(t *testing.T) {
	url := testutil.RedisContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := remote.NewRedisStoreFromURL(url)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	sub, err := store.Subscribe(ctx, "gw")
	require.NoError(t, err)
	defer sub.Close()

	row := remote.Row{
		Organization: "gw", Period: "2025", DepartmentTag: "prod",
		AreaID: "prod__bar", AreaName: "Bar", CategoryID: "prod__service",
		Notes: "first",
	}
	_, err = store.Upsert(ctx, row)
	require.NoError(t, err)
	row.Notes = "second"
	_, err = store.Upsert(ctx, row)
	require.NoError(t, err)

	got, err := store.Get(ctx, row.Identity())
	require.NoError(t, err)
	assert.Equal(t, "second", got.Notes)

	rows, err := store.SelectScope(ctx, "gw", "2025")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	for _, want := range []string{"first", "second"} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, want, ev.Notes)
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for %q event", want)
		}
	}
}
