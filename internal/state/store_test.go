package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

func TestTypedDefaults(t *testing.T) {
	s := New()

	assert.Equal(t, []string{}, s.Areas("areas:gw:2025:prod"))
	assert.Equal(t, "", s.Description("desc:x"))
	assert.Equal(t, []model.Task{}, s.Tasks("tasks:x"))
	assert.NotNil(t, s.Review("review:x").Votes)
	assert.NotNil(t, s.Categories("cats:x").Available)
	assert.Equal(t, []model.RosterMember{}, s.Roster("config:gw:roster"))
	assert.Equal(t, model.SaveIdle, s.Status("anything"))
}

func TestValuesAreCopied(t *testing.T) {
	s := New()
	areas := []string{"Bar"}
	s.PutAreas("k", areas, SourceLocal)
	areas[0] = "mutated"
	assert.Equal(t, []string{"Bar"}, s.Areas("k"))

	got := s.Areas("k")
	got[0] = "mutated"
	assert.Equal(t, []string{"Bar"}, s.Areas("k"))
}

func TestUpdateIsAtomicPerKey(t *testing.T) {
	s := New()
	key := "review:gw:2025:prod:bar:service"

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateReview(key, func(r model.ReviewRecord) (model.ReviewRecord, error) {
				err := r.SetVote(string(rune('A'+i%26))+string(rune('a'+i/26)), 3)
				return r, err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Review(key).Votes, 50)
}

func TestUpdateErrorLeavesValue(t *testing.T) {
	s := New()
	s.PutTasks("k", []model.Task{{ID: "1", Label: "a", Status: model.TaskDone}}, SourceLocal)

	_, err := s.UpdateTasks("k", func([]model.Task) ([]model.Task, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Len(t, s.Tasks("k"), 1)
}

func TestMergeSkipsPendingKeys(t *testing.T) {
	s := New()
	key := "areas:gw:2025:prod"
	s.PutAreas(key, []string{"A", "B"}, SourceLocal)
	s.MarkPending(key, "row-1")

	applied := s.MergeAreas(key, []string{"A"}, SourceLoad)
	assert.False(t, applied)
	assert.Equal(t, []string{"A", "B"}, s.Areas(key))

	s.ClearPending(key, "row-1")
	assert.False(t, s.IsPending(key))
	assert.True(t, s.MergeAreas(key, []string{"A"}, SourcePoll))
	assert.Equal(t, []string{"A"}, s.Areas(key))
}

func TestPendingTracksRowsIndependently(t *testing.T) {
	s := New()
	key := "review:k"
	s.MarkPending(key, "votes")
	s.MarkPending(key, "review")
	s.ClearPending(key, "votes")
	assert.True(t, s.IsPending(key))
	s.ClearPending(key, "review")
	assert.False(t, s.IsPending(key))

	// Clearing an unknown row is harmless.
	s.ClearPending("nope", "x")
}

func TestListeners(t *testing.T) {
	s := New()
	var got []Change
	unsubscribe := s.OnChange(func(c Change) { got = append(got, c) })

	s.PutDescription("desc:k", "hello", SourceLocal)
	s.MergeDescription("desc:k", "hello", SourcePush) // identical value, no notification
	s.MergeDescription("desc:k", "world", SourcePush)
	s.SetStatus("desc:k", model.SaveSaving)
	s.SetStatus("desc:k", model.SaveSaving) // unchanged, no notification

	require.Len(t, got, 3)
	assert.Equal(t, Change{Key: "desc:k", Source: SourceLocal}, got[0])
	assert.Equal(t, Change{Key: "desc:k", Source: SourcePush}, got[1])
	assert.True(t, got[2].Status)

	unsubscribe()
	s.PutDescription("desc:k", "again", SourceLocal)
	assert.Len(t, got, 3)
}

func TestListenerMayReadStore(t *testing.T) {
	s := New()
	var seen string
	s.OnChange(func(c Change) { seen = s.Description(c.Key) })
	s.PutDescription("desc:k", "value", SourceLocal)
	assert.Equal(t, "value", seen)
}

func TestLoadTracking(t *testing.T) {
	s := New()
	scope := "gw/2025"

	assert.True(t, s.BeginLoad(scope))
	assert.True(t, s.Loading())
	assert.False(t, s.BeginLoad(scope), "concurrent load is not a first load")
	s.EndLoad(scope, false)
	assert.False(t, s.Loading())
	assert.False(t, s.Loaded(scope))

	assert.True(t, s.BeginLoad(scope), "failed first load is retried as first")
	s.EndLoad(scope, true)
	assert.True(t, s.Loaded(scope))
	assert.False(t, s.BeginLoad(scope))
	assert.False(t, s.Loading())
}
