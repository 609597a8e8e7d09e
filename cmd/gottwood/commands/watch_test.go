package commands

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingWaker struct {
	n atomic.Int32
}

func (c *countingWaker) Wake() { c.n.Add(1) }

func TestWakeOnResume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	w := &countingWaker{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wakeOnResume(ctx, sigs, w)
	}()

	sigs <- syscall.SIGCONT
	sigs <- syscall.SIGCONT
	assert.Eventually(t, func() bool { return w.n.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wakeOnResume did not return after cancel")
	}
	assert.Equal(t, int32(2), w.n.Load())
}
