package writer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// recordingSink wraps the state store and keeps the status history per key.
type recordingSink struct {
	*state.Store
	mu      sync.Mutex
	history map[string][]model.SaveStatus
}

func newRecordingSink() *recordingSink {
	return &recordingSink{Store: state.New(), history: map[string][]model.SaveStatus{}}
}

func (r *recordingSink) SetStatus(key string, st model.SaveStatus) {
	r.mu.Lock()
	r.history[key] = append(r.history[key], st)
	r.mu.Unlock()
	r.Store.SetStatus(key, st)
}

func (r *recordingSink) History(key string) []model.SaveStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SaveStatus(nil), r.history[key]...)
}

// fakeRemote records every value written per key.
type fakeRemote struct {
	mu     sync.Mutex
	writes map[string][]string
	fail   error
	delay  time.Duration
}

func (f *fakeRemote) job(key, statusKey, value string) Job {
	return Job{
		Key:       key,
		StatusKey: statusKey,
		Write: func(ctx context.Context) error {
			if f.delay > 0 {
				time.Sleep(f.delay)
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.fail != nil {
				return f.fail
			}
			if f.writes == nil {
				f.writes = map[string][]string{}
			}
			f.writes[key] = append(f.writes[key], value)
			return nil
		},
	}
}

func (f *fakeRemote) Writes(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes[key]...)
}

func testConfig() Config {
	return Config{Debounce: 40 * time.Millisecond, SavedDisplay: 60 * time.Millisecond, WriteTimeout: time.Second}
}

func TestRapidEditsCollapseToOneWrite(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	w := New(testConfig(), sink, nil)

	for _, v := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		require.NoError(t, w.Schedule(remote.job("row", "k", v)))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return len(remote.Writes("row")) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"abcde"}, remote.Writes("row"))
}

func TestIndependentKeysDoNotCoalesce(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	w := New(testConfig(), sink, nil)

	require.NoError(t, w.Schedule(remote.job("row-a", "a", "1")))
	require.NoError(t, w.Schedule(remote.job("row-b", "b", "2")))

	assert.Eventually(t, func() bool {
		return len(remote.Writes("row-a")) == 1 && len(remote.Writes("row-b")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1"}, remote.Writes("row-a"))
	assert.Equal(t, []string{"2"}, remote.Writes("row-b"))
}

func TestStatusTransitions(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	w := New(testConfig(), sink, nil)

	require.NoError(t, w.Schedule(remote.job("row", "k", "v")))
	assert.Equal(t, model.SaveSaving, sink.Status("k"))
	assert.True(t, sink.IsPending("k"))

	assert.Eventually(t, func() bool { return sink.Status("k") == model.SaveSaved }, time.Second, 5*time.Millisecond)
	assert.False(t, sink.IsPending("k"))
	assert.Eventually(t, func() bool { return sink.Status("k") == model.SaveIdle }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []model.SaveStatus{model.SaveSaving, model.SaveSaved, model.SaveIdle}, sink.History("k"))
}

func TestFailureReportedOnceAndNotRetried(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{fail: errors.New("connection refused")}

	var reports int32
	var last error
	var mu sync.Mutex
	w := New(testConfig(), sink, NotifierFunc(func(err error) {
		atomic.AddInt32(&reports, 1)
		mu.Lock()
		last = err
		mu.Unlock()
	}))

	require.NoError(t, w.Schedule(remote.job("row", "k", "v")))
	assert.Eventually(t, func() bool { return sink.Status("k") == model.SaveError }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&reports))
	assert.Equal(t, model.SaveError, sink.Status("k"), "error status does not revert on its own")
	assert.False(t, sink.IsPending("k"))
	mu.Lock()
	assert.Contains(t, last.Error(), "connection refused")
	mu.Unlock()
}

func TestImmediateSupersedesDebounced(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	w := New(testConfig(), sink, nil)

	require.NoError(t, w.Schedule(remote.job("row", "k", "typed")))
	require.NoError(t, w.Immediate(remote.job("row", "k", "clicked")))

	assert.Eventually(t, func() bool { return len(remote.Writes("row")) == 1 }, time.Second, time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"clicked"}, remote.Writes("row"))
}

func TestWritesForOneKeyNeverOverlap(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{delay: 30 * time.Millisecond}
	w := New(testConfig(), sink, nil)

	require.NoError(t, w.Immediate(remote.job("votes", "k", "1")))
	require.NoError(t, w.Immediate(remote.job("votes", "k", "2")))
	require.NoError(t, w.Immediate(remote.job("votes", "k", "3")))

	require.NoError(t, w.Flush(context.Background()))
	// The first write was in flight; of the two that waited only the newest is sent.
	assert.Equal(t, []string{"1", "3"}, remote.Writes("votes"))
	assert.False(t, sink.IsPending("k"))
}

func TestPendingHeldWhileAnyRowOfKeyWaits(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	cfg := testConfig()
	cfg.Debounce = 200 * time.Millisecond
	w := New(cfg, sink, nil)

	require.NoError(t, w.Schedule(remote.job("review-row", "k", "comment")))
	require.NoError(t, w.Immediate(remote.job("votes-row", "k", "vote")))

	assert.Eventually(t, func() bool { return len(remote.Writes("votes-row")) == 1 }, time.Second, time.Millisecond)
	assert.True(t, sink.IsPending("k"), "debounced comment is still unsent")

	require.NoError(t, w.Flush(context.Background()))
	assert.False(t, sink.IsPending("k"))
}

func TestStatusStaysSavingWhileAnotherRowOfKeyWaits(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	cfg := testConfig()
	cfg.Debounce = 300 * time.Millisecond
	cfg.SavedDisplay = 40 * time.Millisecond
	w := New(cfg, sink, nil)

	require.NoError(t, w.Schedule(remote.job("review-row", "k", "comment")))
	require.NoError(t, w.Immediate(remote.job("votes-row", "k", "vote")))

	assert.Eventually(t, func() bool { return len(remote.Writes("votes-row")) == 1 }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, remote.Writes("review-row"))
	assert.Equal(t, model.SaveSaving, sink.Status("k"))
	assert.NotContains(t, sink.History("k"), model.SaveSaved)

	assert.Eventually(t, func() bool { return sink.Status("k") == model.SaveSaved }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"comment"}, remote.Writes("review-row"))
	assert.Eventually(t, func() bool { return sink.Status("k") == model.SaveIdle }, time.Second, 5*time.Millisecond)
}

func TestFlushSendsWaitingWrites(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{}
	cfg := testConfig()
	cfg.Debounce = time.Hour
	w := New(cfg, sink, nil)

	require.NoError(t, w.Schedule(remote.job("a", "a", "1")))
	require.NoError(t, w.Schedule(remote.job("b", "b", "2")))
	assert.Equal(t, 2, w.Pending())

	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, []string{"1"}, remote.Writes("a"))
	assert.Equal(t, []string{"2"}, remote.Writes("b"))
	assert.Equal(t, 0, w.Pending())

	assert.ErrorIs(t, w.Schedule(remote.job("a", "a", "3")), ErrClosed)
}

func TestFlushHonoursContext(t *testing.T) {
	sink := newRecordingSink()
	remote := &fakeRemote{delay: 300 * time.Millisecond}
	w := New(testConfig(), sink, nil)

	require.NoError(t, w.Immediate(remote.job("a", "a", "1")))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, w.Flush(ctx))
}

func TestInvalidJob(t *testing.T) {
	w := New(testConfig(), newRecordingSink(), nil)
	assert.Error(t, w.Schedule(Job{Key: "x"}))
	assert.Error(t, w.Schedule(Job{Write: func(context.Context) error { return nil }}))
}
