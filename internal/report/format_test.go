package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

func TestFormatTasks(t *testing.T) {
	t.Run("empty tasks", func(t *testing.T) {
		var buf bytes.Buffer
		count := FormatTasks(&buf, nil, "Bar")

		assert.Contains(t, buf.String(), "No tasks found for area 'Bar'")
		assert.Equal(t, 0, count)
	})

	t.Run("rows and summary", func(t *testing.T) {
		tasks := []model.Task{
			{ID: "0f6c1e2a-aaaa", Label: "Order ice", Status: model.TaskInProgress, Assignees: []string{"Sam", "Ana"}, Due: "2025-07-01", Tags: []string{"bar"}},
			{ID: "b", Label: "Print menus\nsecond line", Status: model.TaskDone},
		}

		var buf bytes.Buffer
		count := FormatTasks(&buf, tasks, "Bar")

		output := buf.String()
		assert.Equal(t, 2, count)
		assert.Contains(t, output, "Tasks for area 'Bar'")
		assert.Contains(t, output, "0f6c1e2a ")
		assert.NotContains(t, output, "0f6c1e2a-aaaa")
		assert.Contains(t, output, "Sam, Ana")
		assert.Contains(t, output, "Order ice [bar]")
		assert.Contains(t, output, "Print menus")
		assert.NotContains(t, output, "second line")
		assert.Contains(t, output, "2 tasks, 1 done")
	})

	t.Run("single task summary", func(t *testing.T) {
		var buf bytes.Buffer
		FormatTasks(&buf, []model.Task{{ID: "a", Label: "x", Status: model.TaskBlocked}}, "Bar")
		assert.Contains(t, buf.String(), "1 task, 0 done")
	})
}

func TestFormatTasksJSONL(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Label: "One", Status: model.TaskDone},
		{ID: "b", Label: "Two", Status: model.TaskBlocked},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatTasksJSONL(&buf, tasks))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got model.Task
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "b", got.ID)
	assert.Equal(t, model.TaskBlocked, got.Status)
}

func TestFormatReview(t *testing.T) {
	r := model.ReviewRecord{
		Votes:            map[string]int{"sam": 4, "ana": 4, "lee": 2},
		Rating:           4,
		WorkedWell:       []model.ThreadEntry{{Text: "quick service", Author: "sam", Timestamp: time.Now().Add(-2 * time.Hour).UnixMilli()}},
		NeedsImprovement: []model.ThreadEntry{{Text: "legacy comment"}},
		Notes:            "check the taps",
		Tags:             []string{"bar", "staff"},
	}

	var buf bytes.Buffer
	FormatReview(&buf, "Service", r)

	output := buf.String()
	assert.Contains(t, output, "Service\n")
	assert.Contains(t, output, "Rating: ★★★★☆")
	assert.Contains(t, output, "Votes:  ana=4, lee=2, sam=4")
	assert.Contains(t, output, "- quick service (sam, 2h ago)")
	assert.Contains(t, output, "- legacy comment (-, -)")
	assert.Contains(t, output, "Notes:  check the taps")
	assert.Contains(t, output, "Tags:   bar, staff")
}

func TestFormatReview_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatReview(&buf, "Service", model.ReviewRecord{})

	output := buf.String()
	assert.Contains(t, output, "Rating: -")
	assert.Contains(t, output, "Votes:  -")
	assert.NotContains(t, output, "Worked well")
	assert.NotContains(t, output, "Notes")
}

func TestFormatReviewJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatReviewJSONL(&buf, "Service", model.ReviewRecord{Votes: map[string]int{"sam": 5}, Rating: 5}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Service", got["category"])
	assert.Equal(t, float64(5), got["rating"])
	assert.Equal(t, map[string]any{"sam": float64(5)}, got["votes"])
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "-", formatRating(0))
	assert.Equal(t, "★☆☆☆☆", formatRating(1))
	assert.Equal(t, "-", formatTimestamp(0))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "", firstLine("  \n "))
}
