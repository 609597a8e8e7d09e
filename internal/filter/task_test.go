package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/internal/roster"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

var now = time.Date(2025, time.June, 28, 12, 0, 0, 0, time.UTC)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "a", Label: "Order ice", Status: model.TaskBlocked, Assignees: []string{"Sam Okafor"}, Tags: []string{"bar"}, Due: "2025-06-20"},
		{ID: "b", Label: "Hire staff", Status: model.TaskInProgress, Assignees: []string{"Ana"}, Due: "2025-07-10"},
		{ID: "c", Label: "Print menus", Status: model.TaskDone, Tags: []string{"Bar", "print"}, Due: "2025-06-01"},
		{ID: "d", Label: "Fix taps", Status: model.TaskNotStarted},
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestCriteria_NoFilters(t *testing.T) {
	c := &Criteria{}
	assert.False(t, c.HasFilters())

	got, err := c.Apply(sampleTasks(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
}

func TestCriteria_Fields(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"status", Criteria{Status: model.TaskBlocked}, []string{"a"}},
		{"tag case-insensitive", Criteria{Tag: "BAR"}, []string{"a", "c"}},
		{"person exact", Criteria{Person: "ana"}, []string{"b"}},
		{"due before", Criteria{DueBefore: "2025-06-20"}, []string{"a", "c"}},
		{"combined", Criteria{Tag: "bar", Status: model.TaskDone}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.c.HasFilters())
			got, err := tt.c.Apply(sampleTasks(), now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestCriteria_PersonThroughResolver(t *testing.T) {
	r := roster.NewResolver([]model.RosterMember{{ID: "sam", Name: "Sam Okafor"}})
	c := &Criteria{Person: "Sam", Resolver: r}

	got, err := c.Apply(sampleTasks(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestExpression(t *testing.T) {
	tests := []struct {
		source string
		want   []string
	}{
		{`status == "blocked"`, []string{"a"}},
		{`"print" in tags`, []string{"c"}},
		{`overdue`, []string{"a"}},
		{`len(assignees) == 0`, []string{"c", "d"}},
		{`due != "" && due < today`, []string{"a", "c"}},
		{`label contains "taps"`, []string{"d"}},
		{`missing_field == nil`, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e, err := Compile(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.source, e.String())

			got, err := (&Criteria{Where: e}).Apply(sampleTasks(), now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestExpression_Errors(t *testing.T) {
	_, err := Compile("  ")
	assert.Error(t, err)

	_, err = Compile(`status ==`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid expression")

	e, err := Compile(`label`)
	require.NoError(t, err)
	_, err = e.Match(sampleTasks()[0], now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected bool")
}
