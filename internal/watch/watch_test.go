package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// storeSource exposes a bare state store as a Source.
type storeSource struct{ *state.Store }

func (s storeSource) SaveStatus(key string) model.SaveStatus { return s.Status(key) }

func noColor(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestWriteEvent(t *testing.T) {
	noColor(t)
	at := time.Date(2025, 6, 28, 9, 5, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, Event{Time: at, Key: "k1", Source: "push"}, OutputFormatDefault))
	assert.Equal(t, "[09:05:00] push  k1\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEvent(&buf, Event{Time: at, Key: "k1", Status: "saved"}, OutputFormatDefault))
	assert.Equal(t, "[09:05:00] save  k1 saved\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEvent(&buf, Event{Time: at, Key: "k1", Source: "poll"}, OutputFormatJSON))
	assert.JSONEq(t, `{"time":"2025-06-28T09:05:00Z","key":"k1","source":"poll"}`, buf.String())
}

func TestStreamChanges(t *testing.T) {
	noColor(t)
	st := state.New()
	ctx, cancel := context.WithCancel(context.Background())

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- StreamChanges(ctx, storeSource{st}, OutputFormatJSON, &out) }()

	// The listener is registered asynchronously; keep writing until it is seen.
	require.Eventually(t, func() bool {
		st.PutDescription("desc-key", "Front of house", state.SourcePush)
		return strings.Contains(out.String(), `"key":"desc-key"`)
	}, 2*time.Second, 20*time.Millisecond)

	st.SetStatus("desc-key", model.SaveSaving)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"status":"saving"`)
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
