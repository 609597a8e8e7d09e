// Package watch streams local store changes to a terminal or a JSONL pipe.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Source is the part of a session the stream listens to.
type Source interface {
	OnChange(fn func(state.Change)) func()
	SaveStatus(key string) model.SaveStatus
}

// Event is one line of output.
type Event struct {
	Time   time.Time `json:"time"`
	Key    string    `json:"key"`
	Source string    `json:"source"`
	Status string    `json:"status,omitempty"` // set for save-status changes
}

// StreamChanges writes an event per change from src until ctx is cancelled.
// Events are dropped when w falls more than a buffer behind.
func StreamChanges(ctx context.Context, src Source, format OutputFormat, w io.Writer) error {
	events := make(chan Event, 64)
	stop := src.OnChange(func(c state.Change) {
		ev := Event{Time: time.Now(), Key: c.Key, Source: string(c.Source)}
		if c.Status {
			ev.Status = string(src.SaveStatus(c.Key))
		}
		select {
		case events <- ev:
		default:
		}
	})
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := WriteEvent(w, ev, format); err != nil {
				return err
			}
		}
	}
}

// WriteEvent writes a single event in the given format.
func WriteEvent(w io.Writer, ev Event, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	stamp := ev.Time.Format("15:04:05")
	if ev.Status != "" {
		_, err := fmt.Fprintf(w, "[%s] %-5s %s %s\n", stamp, "save", ev.Key, printer.StatusLabel(model.SaveStatus(ev.Status)))
		return err
	}
	_, err := fmt.Fprintf(w, "[%s] %-5s %s\n", stamp, ev.Source, ev.Key)
	return err
}
