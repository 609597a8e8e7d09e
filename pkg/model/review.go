package model

import (
	"fmt"
	"sort"
	"strings"
)

// Vote bounds. A vote outside the range is rejected; zero clears a vote.
const (
	MinVote = 1
	MaxVote = 5
)

// ThreadEntry is one author's comment in a worked-well or needs-improvement thread.
// An entry with an empty author is a migrated legacy comment.
type ThreadEntry struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp int64  `json:"ts"` // Unix milliseconds of the last edit
}

// ReviewRecord is the rated review of one category within one area.
type ReviewRecord struct {
	Votes            map[string]int `json:"votes"`
	WorkedWell       []ThreadEntry  `json:"worked_well"`
	NeedsImprovement []ThreadEntry  `json:"needs_improvement"`
	Notes            string         `json:"notes"`
	Tags             []string       `json:"tags"`

	// Rating is the stored mode of Votes. It is informational only: the vote
	// map is authoritative and Rating is recomputed on every vote write.
	Rating int `json:"rating"`
}

// CommentField names one of the two threaded comment fields of a review.
type CommentField string

const (
	FieldWorkedWell       CommentField = "worked_well"
	FieldNeedsImprovement CommentField = "needs_improvement"
)

// Validate checks the comment field name.
func (f CommentField) Validate() error {
	switch f {
	case FieldWorkedWell, FieldNeedsImprovement:
		return nil
	}
	return fmt.Errorf("invalid comment field: %s (must be '%s' or '%s')", f, FieldWorkedWell, FieldNeedsImprovement)
}

// Clone returns a deep copy so callers can patch a record without mutating
// the value held by the store.
func (r ReviewRecord) Clone() ReviewRecord {
	out := r
	out.Votes = make(map[string]int, len(r.Votes))
	for k, v := range r.Votes {
		out.Votes[k] = v
	}
	out.WorkedWell = append([]ThreadEntry(nil), r.WorkedWell...)
	out.NeedsImprovement = append([]ThreadEntry(nil), r.NeedsImprovement...)
	out.Tags = append([]string(nil), r.Tags...)
	return out
}

// Thread returns the entries of the named comment field.
func (r ReviewRecord) Thread(field CommentField) []ThreadEntry {
	if field == FieldNeedsImprovement {
		return r.NeedsImprovement
	}
	return r.WorkedWell
}

// SetVote records person's vote, replacing any earlier vote by the same person.
// A value of zero removes the vote. Rating is recomputed.
func (r *ReviewRecord) SetVote(person string, value int) error {
	person = strings.TrimSpace(person)
	if person == "" {
		return fmt.Errorf("voter cannot be empty")
	}
	if value != 0 && (value < MinVote || value > MaxVote) {
		return fmt.Errorf("vote must be between %d and %d, got %d", MinVote, MaxVote, value)
	}
	if r.Votes == nil {
		r.Votes = map[string]int{}
	}
	if value == 0 {
		delete(r.Votes, person)
	} else {
		r.Votes[person] = value
	}
	r.Rating = ModeRating(r.Votes)
	return nil
}

// SetComment edits author's entry in the named thread in place, appending a new
// entry when the author has none yet. Empty text removes the author's entry.
func (r *ReviewRecord) SetComment(field CommentField, author, text string, nowMs int64) error {
	if err := field.Validate(); err != nil {
		return err
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return fmt.Errorf("comment author cannot be empty")
	}
	entries := UpsertEntry(r.Thread(field), author, text, nowMs)
	if field == FieldNeedsImprovement {
		r.NeedsImprovement = entries
	} else {
		r.WorkedWell = entries
	}
	return nil
}

// UpsertEntry returns a copy of entries where author holds at most one entry
// carrying text. Ordering of the remaining entries is preserved.
func UpsertEntry(entries []ThreadEntry, author, text string, nowMs int64) []ThreadEntry {
	text = strings.TrimSpace(text)
	out := make([]ThreadEntry, 0, len(entries)+1)
	replaced := false
	for _, e := range entries {
		if e.Author != author {
			out = append(out, e)
			continue
		}
		if replaced || text == "" {
			continue
		}
		out = append(out, ThreadEntry{Text: text, Author: author, Timestamp: nowMs})
		replaced = true
	}
	if !replaced && text != "" {
		out = append(out, ThreadEntry{Text: text, Author: author, Timestamp: nowMs})
	}
	return out
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ModeRating returns the most frequent vote value. Ties go to the value that
// reaches the maximum count first when scanning 1 through 5. No votes yields 0.
func ModeRating(votes map[string]int) int {
	var counts [MaxVote + 1]int
	for _, v := range votes {
		if v >= MinVote && v <= MaxVote {
			counts[v]++
		}
	}
	best, bestCount := 0, 0
	for v := MinVote; v <= MaxVote; v++ {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// Voters returns the voter identifiers in a stable order, for display.
func (r ReviewRecord) Voters() []string {
	out := make([]string, 0, len(r.Votes))
	for k := range r.Votes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
