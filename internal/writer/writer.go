// Package writer is the only path from local edits to the remote store.
//
// Edits are scheduled per row key. A key's quiet timer restarts on every new
// edit, and when it expires exactly one write carrying the latest value is
// sent. Different keys never coalesce. Writes for the same key never overlap:
// an edit dispatched while a write is in flight waits for it and only the
// newest waiting edit is sent.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// ErrClosed is returned when scheduling on a closed writer.
var ErrClosed = errors.New("writer is closed")

// Notifier is told about failed writes. Each failure is reported exactly once.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }

// StatusSink receives save-status transitions and pending markers. The state
// store implements it.
type StatusSink interface {
	SetStatus(key string, st model.SaveStatus)
	MarkPending(key, row string)
	ClearPending(key, row string)
}

// Job is one remote write.
type Job struct {
	// Key identifies the remote row; it is the debounce unit.
	Key string

	// StatusKey is the local key whose save status and pending flag the
	// write drives. Several rows may share one status key.
	StatusKey string

	// Write performs the write. It must carry the value captured when the
	// job was scheduled, not read it back later.
	Write func(ctx context.Context) error
}

// Config holds the writer timings.
type Config struct {
	Debounce     time.Duration // quiet interval before a debounced write
	SavedDisplay time.Duration // how long "saved" shows before reverting to idle
	WriteTimeout time.Duration // bound on a single remote write
}

// DefaultConfig returns the timings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Debounce:     800 * time.Millisecond,
		SavedDisplay: 2 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

type slot struct {
	statusKey string

	timer   *time.Timer
	gen     uint64
	job     Job // waiting for the timer
	running bool
	queued  *Job // dispatched while a write was in flight
}

// Writer debounces and performs remote writes.
type Writer struct {
	cfg    Config
	sink   StatusSink
	notify Notifier

	mu       sync.Mutex
	slots    map[string]*slot
	seq      uint64
	statusAt map[string]uint64 // status key -> seq of its latest schedule
	closed   bool
	inflight sync.WaitGroup
}

// New creates a writer. A nil notifier logs failures.
func New(cfg Config, sink StatusSink, notify Notifier) *Writer {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.SavedDisplay <= 0 {
		cfg.SavedDisplay = def.SavedDisplay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if notify == nil {
		notify = NotifierFunc(func(err error) { log.Printf("[Writer] %v", err) })
	}
	return &Writer{
		cfg:      cfg,
		sink:     sink,
		notify:   notify,
		slots:    make(map[string]*slot),
		statusAt: make(map[string]uint64),
	}
}

// Schedule queues job behind the key's quiet timer, replacing any job still
// waiting for the same key.
func (w *Writer) Schedule(job Job) error {
	return w.enqueue(job, false)
}

// Immediate sends job without waiting for a quiet interval. Any debounced job
// still waiting for the same key is superseded.
func (w *Writer) Immediate(job Job) error {
	return w.enqueue(job, true)
}

func (w *Writer) enqueue(job Job, now bool) error {
	if job.Key == "" || job.Write == nil {
		return fmt.Errorf("invalid write job: key and write func are required")
	}
	if job.StatusKey == "" {
		job.StatusKey = job.Key
	}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}
	// Saving is announced before the write can possibly complete.
	w.sink.SetStatus(job.StatusKey, model.SaveSaving)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.sink.SetStatus(job.StatusKey, model.SaveIdle)
		return ErrClosed
	}
	// Pending markers change under w.mu so they stay ordered with the
	// clear in run.
	w.sink.MarkPending(job.StatusKey, job.Key)
	w.seq++
	gen := w.seq
	w.statusAt[job.StatusKey] = gen

	s, ok := w.slots[job.Key]
	if !ok {
		s = &slot{}
		w.slots[job.Key] = s
	}
	s.statusKey = job.StatusKey
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if now {
		w.dispatchLocked(job.Key, s, job)
	} else {
		s.gen = gen
		s.job = job
		s.timer = time.AfterFunc(w.cfg.Debounce, func() { w.fire(job.Key, gen) })
	}
	w.mu.Unlock()
	return nil
}

// fire runs when a quiet timer expires. Stale timers, whose job has been
// superseded or flushed, find a different generation and do nothing.
func (w *Writer) fire(key string, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.slots[key]
	if !ok || s.timer == nil || s.gen != gen {
		return
	}
	s.timer = nil
	w.dispatchLocked(key, s, s.job)
}

// dispatchLocked starts job now, or parks it behind the key's in-flight write.
func (w *Writer) dispatchLocked(key string, s *slot, job Job) {
	if s.running {
		s.queued = &job
		return
	}
	s.running = true
	w.inflight.Add(1)
	go w.run(key, job)
}

func (w *Writer) run(key string, job Job) {
	defer w.inflight.Done()
	for {
		ok := w.perform(job)

		w.mu.Lock()
		s := w.slots[key]
		if s.queued != nil {
			job = *s.queued
			s.queued = nil
			w.mu.Unlock()
			continue
		}
		s.running = false
		if s.timer == nil {
			delete(w.slots, key)
			w.sink.ClearPending(job.StatusKey, key)
		}
		// Rows sharing a status key report saved only once the last of
		// them has landed.
		settled := ok && !w.busyLocked(job.StatusKey)
		gen := w.statusAt[job.StatusKey]
		w.mu.Unlock()
		if settled {
			w.saved(job.StatusKey, gen)
		}
		return
	}
}

// perform sends one write and reports whether it succeeded.
func (w *Writer) perform(job Job) bool {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	err := job.Write(ctx)
	cancel()

	if err != nil {
		log.Printf("[Writer] Write of %s failed: %v", job.Key, err)
		w.sink.SetStatus(job.StatusKey, model.SaveError)
		w.notify.Notify(fmt.Errorf("could not save %s: %w", job.StatusKey, err))
		return false
	}
	return true
}

// saved shows the saved state for statusKey and reverts it to idle after
// SavedDisplay, unless another write for the key began in between.
func (w *Writer) saved(statusKey string, gen uint64) {
	w.sink.SetStatus(statusKey, model.SaveSaved)
	time.AfterFunc(w.cfg.SavedDisplay, func() {
		w.mu.Lock()
		current := w.statusAt[statusKey] == gen
		if current {
			delete(w.statusAt, statusKey)
		}
		w.mu.Unlock()
		if current {
			w.sink.SetStatus(statusKey, model.SaveIdle)
		}
	})
}

// busyLocked reports whether any row under statusKey still has a write
// waiting or in flight.
func (w *Writer) busyLocked(statusKey string) bool {
	for _, s := range w.slots {
		if s.statusKey == statusKey && (s.timer != nil || s.queued != nil || s.running) {
			return true
		}
	}
	return false
}

// Pending reports how many keys have a write waiting for its quiet timer.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, s := range w.slots {
		if s.timer != nil {
			n++
		}
	}
	return n
}

// Flush sends every waiting write now and waits until all writes in flight
// have finished or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	for key, s := range w.slots {
		if s.timer == nil {
			continue
		}
		s.timer.Stop()
		s.timer = nil
		w.dispatchLocked(key, s, s.job)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush interrupted: %w", ctx.Err())
	}
}

// Close flushes and stops accepting new writes.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.Flush(ctx)
}
