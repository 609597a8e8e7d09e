package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/14tweny/Gottwood-Review-sub000/internal/roster"
	"github.com/14tweny/Gottwood-Review-sub000/internal/timespec"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// Criteria defines filtering criteria for tasks.
// All filters are ANDed together - a task must match ALL criteria to pass.
type Criteria struct {
	Status    model.TaskStatus // exact status, empty = no filter
	Tag       string           // case-insensitive tag, empty = no filter
	Person    string           // assignee, matched through the roster resolver, empty = no filter
	DueBefore string           // YYYY-MM-DD, tasks due on or before it, empty = no filter
	Where     *Expression      // expr-lang predicate, nil = no filter

	// Resolver matches Person against assignees. Nil falls back to a
	// case-insensitive exact comparison.
	Resolver *roster.Resolver
}

// Matches returns true if the task matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(task model.Task, now time.Time) (bool, error) {
	if c.Status != "" && task.Status != c.Status {
		return false, nil
	}

	if c.Tag != "" && !hasTag(task.Tags, c.Tag) {
		return false, nil
	}

	if c.Person != "" && !c.assignedTo(task) {
		return false, nil
	}

	// Tasks without a due date never match a due filter
	if c.DueBefore != "" && (task.Due == "" || task.Due > c.DueBefore) {
		return false, nil
	}

	if c.Where != nil {
		return c.Where.Match(task, now)
	}

	return true, nil
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.Status != "" ||
		c.Tag != "" ||
		c.Person != "" ||
		c.DueBefore != "" ||
		c.Where != nil
}

// Apply returns the tasks that match, in their original order.
func (c *Criteria) Apply(tasks []model.Task, now time.Time) ([]model.Task, error) {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		ok, err := c.Matches(t, now)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Criteria) assignedTo(task model.Task) bool {
	for _, a := range task.Assignees {
		if c.Resolver != nil {
			if c.Resolver.SamePerson(a, c.Person) {
				return true
			}
			continue
		}
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(c.Person)) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Expression is a compiled --where predicate over a task, for example
// `status == "blocked" && "bar" in tags` or `overdue && len(assignees) == 0`.
type Expression struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks a --where expression.
func Compile(source string) (*Expression, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", source, err)
	}
	return &Expression{source: source, program: program}, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}

// Match evaluates the expression against task. The expression must
// produce a boolean.
func (e *Expression) Match(task model.Task, now time.Time) (bool, error) {
	result, err := expr.Run(e.program, Environment(task, now))
	if err != nil {
		return false, fmt.Errorf("evaluate %q on task %s: %w", e.source, task.ID, err)
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("expression %q returned %T, expected bool", e.source, result)
}

// Environment exposes the task fields to expressions.
func Environment(task model.Task, now time.Time) map[string]any {
	order := -1
	if task.Order != nil {
		order = *task.Order
	}
	assignees := append([]string{}, task.Assignees...)
	tags := append([]string{}, task.Tags...)
	return map[string]any{
		"id":        task.ID,
		"label":     task.Label,
		"status":    string(task.Status),
		"assignees": assignees,
		"notes":     task.Notes,
		"due":       task.Due,
		"tags":      tags,
		"order":     order,
		"edited_by": task.EditedBy,
		"overdue":   task.Status != model.TaskDone && timespec.Overdue(task.Due, now),
		"today":     now.Format(model.DateLayout),
	}
}
