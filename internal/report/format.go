// Package report renders tasks and reviews for the terminal, as aligned
// tables for people and as JSONL for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// FormatTasks writes tasks as a formatted table to the provided writer, in
// the order given. Returns the number of tasks formatted.
func FormatTasks(w io.Writer, tasks []model.Task, area string) int {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "No tasks found for area '%s'\n", area)
		return 0
	}

	fmt.Fprintf(w, "Tasks for area '%s':\n\n", area)

	fmt.Fprintf(w, "%-8s %-12s %-10s %-20s %s\n",
		"ID", "STATUS", "DUE", "ASSIGNEES", "LABEL")
	fmt.Fprintf(w, "%-8s %-12s %-10s %-20s %s\n",
		"--------", "------------", "----------", "--------------------", "----------------------------------------")

	for _, t := range tasks {
		fmt.Fprintf(w, "%-8s %-12s %-10s %-20s %s\n",
			formatID(t.ID),
			string(t.Status),
			orDash(t.Due),
			truncate(orDash(strings.Join(t.Assignees, ", ")), 20),
			formatLabel(t),
		)
	}

	countMsg := "task"
	if len(tasks) != 1 {
		countMsg = "tasks"
	}
	fmt.Fprintf(w, "\n%d %s, %d done\n", len(tasks), countMsg, countDone(tasks))

	return len(tasks)
}

// FormatTasksJSONL writes tasks as line-delimited JSON, one task per line.
func FormatTasksJSONL(w io.Writer, tasks []model.Task) error {
	for _, t := range tasks {
		if err := writeJSONLine(w, t); err != nil {
			return err
		}
	}
	return nil
}

// FormatReview writes a review record as a readable block: the rating and
// votes, both comment threads, then notes and tags.
func FormatReview(w io.Writer, category string, r model.ReviewRecord) {
	fmt.Fprintf(w, "%s\n", category)
	fmt.Fprintf(w, "  Rating: %s\n", formatRating(r.Rating))

	if len(r.Votes) == 0 {
		fmt.Fprintf(w, "  Votes:  -\n")
	} else {
		parts := make([]string, 0, len(r.Votes))
		for _, voter := range r.Voters() {
			parts = append(parts, fmt.Sprintf("%s=%d", voter, r.Votes[voter]))
		}
		fmt.Fprintf(w, "  Votes:  %s\n", strings.Join(parts, ", "))
	}

	formatThread(w, "Worked well", r.WorkedWell)
	formatThread(w, "Needs improvement", r.NeedsImprovement)

	if r.Notes != "" {
		fmt.Fprintf(w, "  Notes:  %s\n", firstLine(r.Notes))
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:   %s\n", strings.Join(r.Tags, ", "))
	}
}

// reviewLine is the JSONL shape of a review.
type reviewLine struct {
	Category string `json:"category"`
	model.ReviewRecord
}

// FormatReviewJSONL writes one review as a single JSON line tagged with its category.
func FormatReviewJSONL(w io.Writer, category string, r model.ReviewRecord) error {
	return writeJSONLine(w, reviewLine{Category: category, ReviewRecord: r})
}

func writeJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSONL output: %w", err)
	}
	return nil
}

func formatThread(w io.Writer, title string, entries []model.ThreadEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, e := range entries {
		fmt.Fprintf(w, "    - %s (%s, %s)\n", firstLine(e.Text), orDash(e.Author), formatTimestamp(e.Timestamp))
	}
}

// formatID truncates a task id to its first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatLabel is the label with its tags appended.
func formatLabel(t model.Task) string {
	label := truncate(firstLine(t.Label), 40)
	if len(t.Tags) > 0 {
		label += " [" + strings.Join(t.Tags, ", ") + "]"
	}
	return label
}

// formatRating shows a 1..5 rating as stars, or "-" when unrated.
func formatRating(rating int) string {
	if rating < model.MinVote || rating > model.MaxVote {
		return "-"
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", model.MaxVote-rating)
}

// formatTimestamp formats Unix milliseconds as relative time like "2m ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Since(time.UnixMilli(timestampMs))

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func countDone(tasks []model.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status == model.TaskDone {
			n++
		}
	}
	return n
}
