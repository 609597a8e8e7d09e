package codec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/keys"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// Entity normalizers. Each one accepts every shape a record of its kind has
// ever been stored in and returns the canonical value. They are shared by
// bulk load, poll, push and the prefs cache.

// legacyTask is the widest task shape ever written. Early clients stored
// {"text": "...", "done": true} without ids.
type legacyTask struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Text      string          `json:"text"`
	Status    string          `json:"status"`
	Done      bool            `json:"done"`
	Assignees json.RawMessage `json:"assignees"`
	Assignee  string          `json:"assignee"`
	Notes     string          `json:"notes"`
	Due       string          `json:"due"`
	Tags      []string        `json:"tags"`
	Order     *int            `json:"order"`
	EditedBy  string          `json:"edited_by"`
}

// NormalizeTasks reads a task-list payload. Tasks without an id get one
// derived from seed and their position, so every client derives the same id
// for the same legacy task.
func (d *Decoder) NormalizeTasks(raw, seed string) []model.Task {
	if strings.TrimSpace(raw) == "" {
		return []model.Task{}
	}
	var items []legacyTask
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		d.fallback("task list", err)
		return []model.Task{}
	}

	out := make([]model.Task, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		label := strings.TrimSpace(it.Label)
		if label == "" {
			label = strings.TrimSpace(it.Text)
		}
		if label == "" {
			continue
		}

		id := it.ID
		if id == "" {
			id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d#%s", seed, i, label))).String()
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		status := model.TaskStatus(it.Status)
		if status.Validate() != nil {
			status = model.TaskNotStarted
			if it.Done {
				status = model.TaskDone
			}
		}

		due := it.Due
		if due != "" && (model.Task{ID: id, Label: label, Status: status, Due: due}).Validate() != nil {
			due = ""
		}

		out = append(out, model.Task{
			ID:        id,
			Label:     label,
			Status:    status,
			Assignees: d.assignees(it.Assignees, it.Assignee),
			Notes:     it.Notes,
			Due:       due,
			Tags:      model.NormalizeTags(it.Tags),
			Order:     it.Order,
			EditedBy:  it.EditedBy,
		})
	}
	return out
}

// assignees accepts a list of names or a single comma-separated string.
func (d *Decoder) assignees(raw json.RawMessage, single string) []string {
	var names []string
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &names); err != nil {
			var joined string
			if err := json.Unmarshal(raw, &joined); err != nil {
				d.fallback("assignees", err)
			}
			names = strings.Split(joined, ",")
		}
	} else if single != "" {
		names = strings.Split(single, ",")
	}
	return uniqueTrimmed(names)
}

// NormalizeAreas reads an area-list payload: a JSON list of names, or a list
// of {"name": ...} objects.
func (d *Decoder) NormalizeAreas(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err == nil {
		return uniqueTrimmed(names)
	}
	var objs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &objs); err != nil {
		d.fallback("area list", err)
		return []string{}
	}
	names = make([]string, 0, len(objs))
	for _, o := range objs {
		names = append(names, o.Name)
	}
	return uniqueTrimmed(names)
}

// NormalizeCategories reads a category-selection payload. A bare list is the
// legacy shape where every available category was selected.
func (d *Decoder) NormalizeCategories(raw string) model.CategorySelection {
	empty := model.CategorySelection{Available: []string{}, Selected: []string{}}
	if strings.TrimSpace(raw) == "" {
		return empty
	}
	var sel model.CategorySelection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		var names []string
		if err2 := json.Unmarshal([]byte(raw), &names); err2 != nil {
			d.fallback("category selection", err)
			return empty
		}
		names = uniqueTrimmed(names)
		return model.CategorySelection{Available: names, Selected: append([]string(nil), names...)}
	}
	sel.Available = uniqueTrimmed(sel.Available)
	sel.Selected = uniqueTrimmed(sel.Selected)
	// Anything selected must be on offer.
	for _, s := range sel.Selected {
		if !containsFold(sel.Available, s) {
			sel.Available = append(sel.Available, s)
		}
	}
	return sel
}

// NormalizeDescription reads a description payload. Descriptions are plain
// text; a stray tag envelope from a notes-shaped write is unwrapped.
func (d *Decoder) NormalizeDescription(raw string) string {
	text, _ := d.DecodeNotes(raw)
	return text
}

// NormalizeYears reads the period list: a JSON list of strings or numbers, or
// legacy comma-separated text. The result is de-duplicated and sorted.
func (d *Decoder) NormalizeYears(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var items []json.RawMessage
	var years []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		if strings.HasPrefix(strings.TrimSpace(raw), "[") {
			d.fallback("period list", err)
			return []string{}
		}
		years = strings.Split(raw, ",")
	} else {
		for _, it := range items {
			var s string
			if json.Unmarshal(it, &s) == nil {
				years = append(years, s)
				continue
			}
			var n json.Number
			if json.Unmarshal(it, &n) == nil {
				years = append(years, n.String())
			}
		}
	}
	years = uniqueTrimmed(years)
	sort.Slice(years, func(i, j int) bool {
		return model.Classify(years[i], years[j]) == model.PeriodReview
	})
	return years
}

// NormalizeDepartments reads the department list. Accepted shapes: a list of
// {"id","name"} objects, a list of names, or the legacy object keyed by period
// whose lists are flattened in period order.
func (d *Decoder) NormalizeDepartments(raw string) []model.Department {
	if strings.TrimSpace(raw) == "" {
		return []model.Department{}
	}
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return d.departmentList(list)
	}

	var byPeriod map[string][]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &byPeriod); err != nil {
		d.fallback("department list", err)
		return []model.Department{}
	}
	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	var flat []json.RawMessage
	for _, p := range periods {
		flat = append(flat, byPeriod[p]...)
	}
	return d.departmentList(flat)
}

func (d *Decoder) departmentList(items []json.RawMessage) []model.Department {
	out := make([]model.Department, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		var dept model.Department
		var name string
		if err := json.Unmarshal(it, &name); err == nil {
			dept = model.Department{ID: keys.Slug(name), Name: strings.TrimSpace(name)}
		} else if err := json.Unmarshal(it, &dept); err != nil {
			d.fallback("department", err)
			continue
		}
		if dept.Name == "" {
			dept.Name = dept.ID
		}
		if dept.Validate() != nil {
			continue
		}
		if _, dup := seen[dept.ID]; dup {
			continue
		}
		seen[dept.ID] = struct{}{}
		out = append(out, dept)
	}
	return out
}

// NormalizeRoster reads the roster. Legacy rosters were plain lists of names;
// those are promoted to members whose id is the slug of the name.
func (d *Decoder) NormalizeRoster(raw string) []model.RosterMember {
	if strings.TrimSpace(raw) == "" {
		return []model.RosterMember{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		d.fallback("roster", err)
		return []model.RosterMember{}
	}
	out := make([]model.RosterMember, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		var m model.RosterMember
		var name string
		if err := json.Unmarshal(it, &name); err == nil {
			m = model.RosterMember{ID: keys.Slug(name), Name: strings.TrimSpace(name)}
		} else if err := json.Unmarshal(it, &m); err != nil {
			d.fallback("roster member", err)
			continue
		}
		m.Name = strings.TrimSpace(m.Name)
		if m.ID == "" {
			m.ID = keys.Slug(m.Name)
		}
		if m.Validate() != nil {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func uniqueTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || containsFold(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
