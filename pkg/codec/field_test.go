package codec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// recorder captures fallback reports instead of writing to the process log.
type recorder struct {
	lines []string
}

func (r *recorder) logf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func newTestDecoder(t *testing.T) (*Decoder, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewDecoder(rec.logf), rec
}

func TestDecodeField_Dispatch(t *testing.T) {
	d, rec := newTestDecoder(t)

	tests := []struct {
		name string
		raw  string
		kind FieldKind
	}{
		{"plain", "nice lights", PlainText},
		{"empty", "", PlainText},
		{"votes", `@@votes:{"Sam":4}`, VoteMap},
		{"thread", `@@thread:[{"text":"a","author":"Sam","ts":1}]`, ThreadEntries},
		{"unmarked array", `[{"text":"a","author":"Sam","ts":1}]`, ThreadEntries},
		{"tags", `@@tags:{"notes":"n","tags":["x"]}`, TagEnvelope},
		{"bracketed text", "[draft] check cables", PlainText},
		{"empty array", "[]", PlainText},
		{"array of blank entries", `[{"text":"  "}]`, PlainText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, d.DecodeField(tt.raw).Kind)
		})
	}
	assert.Empty(t, rec.lines, "well-formed payloads must not report fallbacks")
}

func TestDecodeField_MalformedFallsBack(t *testing.T) {
	d, rec := newTestDecoder(t)

	f := d.DecodeField(`@@thread:[{"text":`)
	assert.Equal(t, PlainText, f.Kind)
	assert.Equal(t, `[{"text":`, f.Text)

	f = d.DecodeField(`@@votes:not json`)
	assert.Equal(t, VoteMap, f.Kind)
	assert.Empty(t, f.Votes)

	f = d.DecodeField(`@@tags:{broken`)
	assert.Equal(t, PlainText, f.Kind)

	assert.Len(t, rec.lines, 3)
	assert.Contains(t, rec.lines[0], "[Codec]")
}

func TestThreadRoundTrip(t *testing.T) {
	d, _ := newTestDecoder(t)

	tests := []struct {
		name    string
		entries []model.ThreadEntry
		encoded string
	}{
		{"empty", []model.ThreadEntry{}, ""},
		{"legacy single", []model.ThreadEntry{{Text: "loud enough"}}, "loud enough"},
		{"authored", []model.ThreadEntry{{Text: "loud", Author: "Sam", Timestamp: 10}}, `@@thread:[{"text":"loud","author":"Sam","ts":10}]`},
		{"two authors", []model.ThreadEntry{
			{Text: "a", Author: "Sam", Timestamp: 1},
			{Text: "b", Author: "Ana", Timestamp: 2},
		}, `@@thread:[{"text":"a","author":"Sam","ts":1},{"text":"b","author":"Ana","ts":2}]`},
		{"ambiguous legacy text", []model.ThreadEntry{{Text: "[1] first"}}, `@@thread:[{"text":"[1] first","author":"","ts":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeThread(tt.entries)
			assert.Equal(t, tt.encoded, enc)
			assert.Equal(t, tt.entries, d.DecodeThread(enc))
		})
	}
}

func TestDecodeThread_LegacyShapes(t *testing.T) {
	d, _ := newTestDecoder(t)

	assert.Equal(t, []model.ThreadEntry{{Text: "old comment"}}, d.DecodeThread("old comment"))
	assert.Equal(t, []model.ThreadEntry{{Text: "[]"}}, d.DecodeThread("[]"), "text that only looks like an empty thread is kept")
	assert.Equal(t,
		[]model.ThreadEntry{{Text: "x", Author: "Sam", Timestamp: 5}},
		d.DecodeThread(`[{"text":"x","author":"Sam","ts":5}]`))
	assert.Equal(t,
		[]model.ThreadEntry{{Text: "x", Author: "Sam", Timestamp: 5}},
		d.DecodeThread(`@@thread:[{"text":"x","author":"Sam","ts":5}]`))
}

func TestDecodeThread_OneEntryPerAuthor(t *testing.T) {
	d, _ := newTestDecoder(t)

	got := d.DecodeThread(`@@thread:[{"text":"old","author":"Sam","ts":1},{"text":"b","author":"Ana","ts":2},{"text":"new","author":"Sam","ts":3},{"text":"  ","author":"Lee","ts":4}]`)
	assert.Equal(t, []model.ThreadEntry{
		{Text: "new", Author: "Sam", Timestamp: 3},
		{Text: "b", Author: "Ana", Timestamp: 2},
	}, got)
}

func TestVotesRoundTrip(t *testing.T) {
	d, rec := newTestDecoder(t)

	votes := map[string]int{"Sam": 2, "Ana": 5}
	enc := EncodeVotes(votes)
	assert.Equal(t, `@@votes:{"Ana":5,"Sam":2}`, enc)
	assert.Equal(t, votes, d.DecodeVotes(enc))

	assert.Equal(t, "@@votes:{}", EncodeVotes(nil))
	assert.Empty(t, d.DecodeVotes("@@votes:{}"))
	assert.Empty(t, d.DecodeVotes(""))
	assert.Empty(t, rec.lines)

	assert.Equal(t, map[string]int{"Sam": 3}, d.DecodeVotes(`@@votes:{"Sam":3,"Bad":9," ":2}`))

	assert.Empty(t, d.DecodeVotes("legacy text"))
	assert.Len(t, rec.lines, 1)
}

func TestNotesRoundTrip(t *testing.T) {
	d, _ := newTestDecoder(t)

	tests := []struct {
		name    string
		notes   string
		tags    []string
		encoded string
	}{
		{"plain", "bring ladders", []string{}, "bring ladders"},
		{"tagged", "bring ladders", []string{"crew", "safety"}, `@@tags:{"notes":"bring ladders","tags":["crew","safety"]}`},
		{"tags only", "", []string{"power"}, `@@tags:{"notes":"","tags":["power"]}`},
		{"marker-like text", "@@tags: literal", []string{}, `@@tags:{"notes":"@@tags: literal","tags":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeNotes(tt.notes, tt.tags)
			assert.Equal(t, tt.encoded, enc)
			notes, tags := d.DecodeNotes(enc)
			assert.Equal(t, tt.notes, notes)
			assert.Equal(t, tt.tags, tags)
		})
	}
}

func TestEncodeNotes_NormalizesTags(t *testing.T) {
	assert.Equal(t, `@@tags:{"notes":"n","tags":["crew"]}`, EncodeNotes("n", []string{" Crew ", "crew", ""}))
}
