package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetJSON(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "identity:gw", map[string]string{"name": "Sam"}))

	var got map[string]string
	ok, err := s.GetJSON(ctx, "identity:gw", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Sam", got["name"])

	// Overwrite replaces the value.
	require.NoError(t, s.SetJSON(ctx, "identity:gw", map[string]string{"name": "Ana"}))
	ok, err = s.GetJSON(ctx, "identity:gw", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana", got["name"])
}

func TestMissingAndCorruptValues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	years := []string{"default"}
	ok, err := s.GetJSON(ctx, "nope", &years)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"default"}, years)

	_, err = s.db.Exec(`INSERT INTO prefs (key, value, updated_at) VALUES ('bad', '{not json', 0)`)
	require.NoError(t, err)

	ok, err = s.GetJSON(ctx, "bad", &years)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"default"}, years)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM prefs WHERE key = 'bad'`).Scan(&n))
	assert.Zero(t, n, "corrupt value is removed")

	require.NoError(t, s.SetJSON(ctx, "bad", []string{"2025"}))
	ok, err = s.GetJSON(ctx, "bad", &years)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"2025"}, years)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "config:gw:depts", []string{}))
	require.NoError(t, s.Delete(ctx, "config:gw:depts"))
	require.NoError(t, s.Delete(ctx, "config:gw:depts"))

	var depts []string
	ok, err := s.GetJSON(ctx, "config:gw:depts", &depts)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetJSON(ctx, "identity:gw", "Lee"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	ok, err := s.GetJSON(ctx, "identity:gw", &name)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lee", name)
}
