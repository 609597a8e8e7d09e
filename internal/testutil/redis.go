// Package testutil provides throwaway backends for tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

// MiniRedis starts an in-process Redis server and returns a store connected
// to it. Both are shut down when the test ends.
func MiniRedis(t testing.TB) (*remote.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := remote.NewRedisStore(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })
	return store, mr
}
