package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a checklist task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not-started"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// Validate checks the status is one of the known values.
func (s TaskStatus) Validate() error {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskDone, TaskBlocked:
		return nil
	}
	return fmt.Errorf("invalid task status: %s (must be 'not-started', 'in-progress', 'done' or 'blocked')", s)
}

// displayRank orders statuses for the default checklist view.
func (s TaskStatus) displayRank() int {
	switch s {
	case TaskInProgress:
		return 0
	case TaskBlocked:
		return 1
	case TaskNotStarted:
		return 2
	case TaskDone:
		return 3
	}
	return 2
}

// DateLayout is the calendar-date format of Task.Due.
const DateLayout = "2006-01-02"

// Task is one entry of an area's checklist.
type Task struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Status    TaskStatus `json:"status"`
	Assignees []string   `json:"assignees,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Due       string     `json:"due,omitempty"` // YYYY-MM-DD, empty when unset
	Tags      []string   `json:"tags,omitempty"`
	Order     *int       `json:"order,omitempty"` // manual drag order, nil until reordered
	EditedBy  string     `json:"edited_by,omitempty"`
}

// NewTask creates a not-started task with a fresh id.
func NewTask(label, editor string) Task {
	return Task{
		ID:       uuid.New().String(),
		Label:    strings.TrimSpace(label),
		Status:   TaskNotStarted,
		EditedBy: editor,
	}
}

// Validate checks the task fields.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if strings.TrimSpace(t.Label) == "" {
		return fmt.Errorf("task %s: label cannot be empty", t.ID)
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	if t.Due != "" {
		if _, err := time.Parse(DateLayout, t.Due); err != nil {
			return fmt.Errorf("task %s: invalid due date %q (expected YYYY-MM-DD)", t.ID, t.Due)
		}
	}
	return nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.Assignees = append([]string(nil), t.Assignees...)
	out.Tags = append([]string(nil), t.Tags...)
	if t.Order != nil {
		o := *t.Order
		out.Order = &o
	}
	return out
}

// CloneTasks deep-copies a task list.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// ValidateTasks validates every task and checks ids are unique within the list.
func ValidateTasks(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// SortForDisplay returns tasks in checklist display order. Tasks that carry a
// manual order come first by that order; the rest follow by status rank
// (in-progress, blocked, not-started, done). The sort is stable.
func SortForDisplay(tasks []Task) []Task {
	out := CloneTasks(tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Order != nil && b.Order != nil:
			return *a.Order < *b.Order
		case a.Order != nil:
			return true
		case b.Order != nil:
			return false
		}
		return a.Status.displayRank() < b.Status.displayRank()
	})
	return out
}

// MoveTask moves the task with id to position index of the display order and
// stamps every task with its new manual order. Ids are never changed.
func MoveTask(tasks []Task, id string, index int) ([]Task, error) {
	ordered := SortForDisplay(tasks)
	from := -1
	for i, t := range ordered {
		if t.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if index < 0 {
		index = 0
	}
	if index >= len(ordered) {
		index = len(ordered) - 1
	}
	moved := ordered[from]
	ordered = append(ordered[:from], ordered[from+1:]...)
	ordered = append(ordered[:index], append([]Task{moved}, ordered[index:]...)...)
	for i := range ordered {
		o := i
		ordered[i].Order = &o
	}
	return ordered, nil
}

// FindTask returns the index of the task with id, or -1.
func FindTask(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
