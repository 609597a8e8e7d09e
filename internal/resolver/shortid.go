// Package resolver expands the abbreviated task ids shown in listings.
package resolver

import (
	"fmt"
	"strings"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// MinShortIDLength is the minimum length of a task id prefix. Shorter input
// only matches ids that are exactly equal, which covers legacy numeric ids.
const MinShortIDLength = 4

// ResolveTaskID resolves a short id prefix to the full id of one task.
// Returns an error if zero or multiple tasks match.
func ResolveTaskID(tasks []model.Task, shortID string) (string, error) {
	shortID = strings.TrimSpace(shortID)
	for _, t := range tasks {
		if t.ID == shortID {
			return t.ID, nil
		}
	}

	if len(shortID) < MinShortIDLength {
		return "", &NotFoundError{ShortID: shortID}
	}

	var matches []string
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, shortID) {
			matches = append(matches, t.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no task matched the short id.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no task found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple tasks matched the short id.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d tasks", e.ShortID, len(e.Matches))
}

// FormatMatches lists the matching ids, up to 10, then "...and N more".
func FormatMatches(err *AmbiguousError) string {
	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}

	var b strings.Builder
	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(&b, "  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
