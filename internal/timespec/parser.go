package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// ParseDue parses a due-date specification into a calendar date (YYYY-MM-DD).
// Supports:
//   - calendar dates: "2025-07-04"
//   - RFC3339 timestamps: "2025-07-04T13:00:00Z" (the date part in now's location)
//   - Go durations: "72h", "36h30m"
//   - day counts: "3d"
//   - "today" and "tomorrow"
//
// Relative specifications are added to now. For example, "3d" means
// "three days from today".
func ParseDue(spec string, now time.Time) (string, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" {
		return "", fmt.Errorf("empty due date specification")
	}

	switch spec {
	case "today":
		return now.Format(model.DateLayout), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(model.DateLayout), nil
	}

	if t, err := time.Parse(model.DateLayout, spec); err == nil {
		return t.Format(model.DateLayout), nil
	}

	if t, err := time.Parse(time.RFC3339, strings.ToUpper(spec)); err == nil {
		return t.In(now.Location()).Format(model.DateLayout), nil
	}

	if days, ok := strings.CutSuffix(spec, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n >= 0 {
			return now.AddDate(0, 0, n).Format(model.DateLayout), nil
		}
	}

	if d, err := time.ParseDuration(spec); err == nil && d >= 0 {
		return now.Add(d).Format(model.DateLayout), nil
	}

	return "", fmt.Errorf("invalid due date: %s (use a date like '2025-07-04', a duration like '72h' or a day count like '3d')", spec)
}

// Overdue reports whether due lies strictly before now's calendar date.
// An empty or malformed due date is never overdue.
func Overdue(due string, now time.Time) bool {
	if due == "" {
		return false
	}
	if _, err := time.Parse(model.DateLayout, due); err != nil {
		return false
	}
	return due < now.Format(model.DateLayout)
}
