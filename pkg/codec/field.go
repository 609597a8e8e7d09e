package codec

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// Field markers.
const (
	VotesMarker  = "@@votes:"
	ThreadMarker = "@@thread:"
	TagsMarker   = "@@tags:"
)

// FieldKind tags the shape of a decoded text column.
type FieldKind int

const (
	PlainText FieldKind = iota
	VoteMap
	ThreadEntries
	TagEnvelope
)

func (k FieldKind) String() string {
	switch k {
	case VoteMap:
		return "votes"
	case ThreadEntries:
		return "thread"
	case TagEnvelope:
		return "tags"
	}
	return "text"
}

// Field is the tagged union stored in a single text column. Only the members
// that belong to Kind are meaningful.
type Field struct {
	Kind    FieldKind
	Text    string              // PlainText; notes of a TagEnvelope
	Votes   map[string]int      // VoteMap
	Entries []model.ThreadEntry // ThreadEntries
	Tags    []string            // TagEnvelope
}

type tagEnvelope struct {
	Notes string   `json:"notes"`
	Tags  []string `json:"tags"`
}

// Decoder decodes columns and rows. Fallbacks from malformed payloads are
// reported through logf.
type Decoder struct {
	logf func(format string, args ...interface{})
}

// NewDecoder returns a decoder that reports fallbacks through logf, or through
// the standard logger when logf is nil.
func NewDecoder(logf func(format string, args ...interface{})) *Decoder {
	if logf == nil {
		logf = log.Printf
	}
	return &Decoder{logf: logf}
}

func (d *Decoder) fallback(what string, err error) {
	d.logf("[Codec] Malformed %s payload, using legacy reading: %v", what, err)
}

// DecodeField dispatches on the column's marker. Unmarked text that parses as
// a JSON array holding at least one non-empty thread entry is read as a
// thread; anything else unmarked is plain text.
func (d *Decoder) DecodeField(raw string) Field {
	switch {
	case strings.HasPrefix(raw, VotesMarker):
		votes := map[string]int{}
		if err := json.Unmarshal([]byte(raw[len(VotesMarker):]), &votes); err != nil {
			d.fallback("vote map", err)
			return Field{Kind: VoteMap, Votes: map[string]int{}}
		}
		return Field{Kind: VoteMap, Votes: votes}

	case strings.HasPrefix(raw, ThreadMarker):
		payload := raw[len(ThreadMarker):]
		var entries []model.ThreadEntry
		if err := json.Unmarshal([]byte(payload), &entries); err != nil {
			d.fallback("thread", err)
			return Field{Kind: PlainText, Text: payload}
		}
		return Field{Kind: ThreadEntries, Entries: entries}

	case strings.HasPrefix(raw, TagsMarker):
		payload := raw[len(TagsMarker):]
		var env tagEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			d.fallback("tag envelope", err)
			return Field{Kind: PlainText, Text: payload}
		}
		return Field{Kind: TagEnvelope, Text: env.Notes, Tags: env.Tags}
	}

	if trimmed := strings.TrimSpace(raw); strings.HasPrefix(trimmed, "[") {
		var entries []model.ThreadEntry
		if err := json.Unmarshal([]byte(trimmed), &entries); err == nil && len(cleanEntries(entries)) > 0 {
			return Field{Kind: ThreadEntries, Entries: entries}
		}
	}
	return Field{Kind: PlainText, Text: raw}
}

// EncodeThread renders a comment thread. An empty thread is "", a lone
// anonymous entry without timestamp keeps the legacy plain-text shape, and
// everything else is a marked JSON list.
func EncodeThread(entries []model.ThreadEntry) string {
	entries = cleanEntries(entries)
	if len(entries) == 0 {
		return ""
	}
	if len(entries) == 1 && entries[0].Author == "" && entries[0].Timestamp == 0 && !ambiguousText(entries[0].Text) {
		return entries[0].Text
	}
	b, _ := json.Marshal(entries)
	return ThreadMarker + string(b)
}

// ambiguousText reports whether plain text would be misread as a marked or
// array payload.
func ambiguousText(s string) bool {
	return strings.HasPrefix(s, "@@") || strings.HasPrefix(strings.TrimSpace(s), "[")
}

// DecodeThread reads a comment thread column in any of its historical shapes.
func (d *Decoder) DecodeThread(raw string) []model.ThreadEntry {
	f := d.DecodeField(raw)
	switch f.Kind {
	case ThreadEntries:
		return cleanEntries(f.Entries)
	case TagEnvelope:
		return cleanEntries([]model.ThreadEntry{{Text: f.Text}})
	case VoteMap:
		d.logf("[Codec] Vote map found in a comment column, ignoring")
		return []model.ThreadEntry{}
	}
	return cleanEntries([]model.ThreadEntry{{Text: f.Text}})
}

// cleanEntries drops empty entries and keeps at most one entry per author:
// the most recently edited one, at the position of the author's first entry.
func cleanEntries(entries []model.ThreadEntry) []model.ThreadEntry {
	out := make([]model.ThreadEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			continue
		}
		if e.Author == "" {
			out = append(out, e)
			continue
		}
		if i, ok := index[e.Author]; ok {
			if e.Timestamp >= out[i].Timestamp {
				out[i] = e
			}
			continue
		}
		index[e.Author] = len(out)
		out = append(out, e)
	}
	return out
}

// EncodeVotes renders a vote map. The map is always marked, even when empty,
// so a cleared vote map overwrites the previous one.
func EncodeVotes(votes map[string]int) string {
	clean := cleanVotes(votes)
	b, _ := json.Marshal(clean)
	return VotesMarker + string(b)
}

// DecodeVotes reads a vote map column. Out-of-range votes are dropped.
func (d *Decoder) DecodeVotes(raw string) map[string]int {
	if raw == "" {
		return map[string]int{}
	}
	f := d.DecodeField(raw)
	if f.Kind != VoteMap {
		d.logf("[Codec] Expected vote map, found %s; treating as no votes", f.Kind)
		return map[string]int{}
	}
	return cleanVotes(f.Votes)
}

func cleanVotes(votes map[string]int) map[string]int {
	out := make(map[string]int, len(votes))
	for person, v := range votes {
		person = strings.TrimSpace(person)
		if person == "" || v < model.MinVote || v > model.MaxVote {
			continue
		}
		out[person] = v
	}
	return out
}

// EncodeNotes renders notes with optional tags. Without tags the notes are
// stored as plain text.
func EncodeNotes(notes string, tags []string) string {
	tags = model.NormalizeTags(tags)
	if len(tags) == 0 && !strings.HasPrefix(notes, TagsMarker) {
		return notes
	}
	b, _ := json.Marshal(tagEnvelope{Notes: notes, Tags: tags})
	return TagsMarker + string(b)
}

// DecodeNotes reads a notes column into its text and tags.
func (d *Decoder) DecodeNotes(raw string) (string, []string) {
	if !strings.HasPrefix(raw, TagsMarker) {
		return raw, []string{}
	}
	f := d.DecodeField(raw)
	if f.Kind != TagEnvelope {
		return f.Text, []string{}
	}
	return f.Text, model.NormalizeTags(f.Tags)
}
