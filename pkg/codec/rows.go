package codec

import (
	"encoding/json"
	"strings"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/keys"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/remote"
)

func areaRow(scope model.Scope, area, categoryID string) remote.Row {
	return remote.Row{
		Organization:  scope.Org,
		Period:        scope.Period,
		DepartmentTag: scope.Dept,
		AreaID:        keys.AreaID(scope.Dept, area),
		AreaName:      area,
		CategoryID:    categoryID,
	}
}

func configRow(org, sentinel string) remote.Row {
	return remote.Row{
		Organization: org,
		Period:       keys.ConfigPeriod,
		AreaID:       keys.ConfigAreaID,
		CategoryID:   sentinel,
	}
}

func toJSON(v interface{}) string {
	// The encoded types hold only strings, ints and slices of them.
	b, _ := json.Marshal(v)
	return string(b)
}

// ReviewRow encodes the comment threads, notes and tags of a review record.
// Votes travel in their own row, see VotesRow.
func ReviewRow(scope model.Scope, area, category string, r model.ReviewRecord) remote.Row {
	row := areaRow(scope, area, keys.CategoryID(scope.Dept, category))
	row.Rating = r.Rating
	row.WorkedWell = EncodeThread(r.WorkedWell)
	row.NeedsImprovement = EncodeThread(r.NeedsImprovement)
	row.Notes = EncodeNotes(r.Notes, r.Tags)
	return row
}

// VotesRow encodes the vote map of a review record along with its mode rating.
func VotesRow(scope model.Scope, area, category string, votes map[string]int) remote.Row {
	row := areaRow(scope, area, keys.VotesID(scope.Dept, category))
	row.WorkedWell = EncodeVotes(votes)
	row.Rating = model.ModeRating(cleanVotes(votes))
	return row
}

// TasksRow encodes an area's task list.
func TasksRow(scope model.Scope, area string, tasks []model.Task) remote.Row {
	if tasks == nil {
		tasks = []model.Task{}
	}
	row := areaRow(scope, area, keys.KindID(scope.Dept, keys.KindTasks))
	row.Notes = toJSON(tasks)
	return row
}

// DescriptionRow encodes an area's description.
func DescriptionRow(scope model.Scope, area, text string) remote.Row {
	row := areaRow(scope, area, keys.KindID(scope.Dept, keys.KindDescription))
	row.Notes = text
	return row
}

// CategoriesRow encodes an area's category selection.
func CategoriesRow(scope model.Scope, area string, sel model.CategorySelection) remote.Row {
	if sel.Available == nil {
		sel.Available = []string{}
	}
	if sel.Selected == nil {
		sel.Selected = []string{}
	}
	row := areaRow(scope, area, keys.KindID(scope.Dept, keys.KindCategories))
	row.Notes = toJSON(sel)
	return row
}

// AreasRow encodes a department's ordered area list.
func AreasRow(scope model.Scope, areas []string) remote.Row {
	if areas == nil {
		areas = []string{}
	}
	return remote.Row{
		Organization:  scope.Org,
		Period:        scope.Period,
		DepartmentTag: scope.Dept,
		AreaID:        keys.AreaListID(scope.Dept),
		CategoryID:    keys.AreasSentinel,
		Notes:         toJSON(areas),
	}
}

// YearsRow encodes the organization's period list.
func YearsRow(org string, years []string) remote.Row {
	if years == nil {
		years = []string{}
	}
	row := configRow(org, keys.YearsSentinel)
	row.Notes = toJSON(years)
	return row
}

// DepartmentsRow encodes the organization's department list.
func DepartmentsRow(org string, depts []model.Department) remote.Row {
	if depts == nil {
		depts = []model.Department{}
	}
	row := configRow(org, keys.DeptsSentinel)
	row.Notes = toJSON(depts)
	return row
}

// RosterRow encodes the organization's roster.
func RosterRow(org string, members []model.RosterMember) remote.Row {
	if members == nil {
		members = []model.RosterMember{}
	}
	row := configRow(org, keys.RosterSentinel)
	row.Notes = toJSON(members)
	return row
}

// UpdateKind names the record kind a row decodes to.
type UpdateKind int

const (
	UpdateReview UpdateKind = iota + 1
	UpdateVotes
	UpdateTasks
	UpdateDescription
	UpdateCategories
	UpdateAreas
	UpdateYears
	UpdateDepartments
	UpdateRoster
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateReview:
		return "review"
	case UpdateVotes:
		return "votes"
	case UpdateTasks:
		return "tasks"
	case UpdateDescription:
		return "description"
	case UpdateCategories:
		return "categories"
	case UpdateAreas:
		return "areas"
	case UpdateYears:
		return "years"
	case UpdateDepartments:
		return "departments"
	case UpdateRoster:
		return "roster"
	}
	return "unknown"
}

// Update is a decoded row: the local key it addresses and the value for that
// key. Only the value member matching Kind is set.
type Update struct {
	Kind   UpdateKind
	Key    string
	Org    string
	Period string // empty for config updates
	Dept   string
	Area   string // display name, for per-area kinds

	// Category is the category slug of review and votes updates.
	Category string

	Review      model.ReviewRecord
	Tasks       []model.Task
	Text        string
	Categories  model.CategorySelection
	Areas       []string
	Years       []string
	Departments []model.Department
	Roster      []model.RosterMember
}

// ApplyReview merges a review or votes update into the current record. A
// review row owns the comment threads, notes and tags; a votes row owns the
// vote map and rating. A scalar rating without any vote map is a legacy
// rating and is kept.
func (u Update) ApplyReview(cur model.ReviewRecord) model.ReviewRecord {
	out := cur.Clone()
	switch u.Kind {
	case UpdateReview:
		out.WorkedWell = u.Review.WorkedWell
		out.NeedsImprovement = u.Review.NeedsImprovement
		out.Notes = u.Review.Notes
		out.Tags = u.Review.Tags
		if len(out.Votes) == 0 && u.Review.Rating > 0 {
			out.Rating = u.Review.Rating
		}
	case UpdateVotes:
		out.Votes = u.Review.Votes
		if len(out.Votes) > 0 {
			out.Rating = model.ModeRating(out.Votes)
		} else if u.Review.Rating > 0 {
			out.Rating = u.Review.Rating
		} else {
			out.Rating = 0
		}
	}
	return out
}

// DecodeRow decodes a remote row into the update it carries. It reports false
// for rows it does not recognise, which callers skip.
func (d *Decoder) DecodeRow(row remote.Row) (Update, bool) {
	if row.Period == keys.ConfigPeriod {
		return d.decodeConfig(row)
	}

	dept := row.DepartmentTag
	if dept == "" {
		dept, _, _ = strings.Cut(row.AreaID, keys.Sep)
	}
	if dept == "" {
		return Update{}, false
	}
	u := Update{Org: row.Organization, Period: row.Period, Dept: dept}

	if row.CategoryID == keys.AreasSentinel {
		u.Kind = UpdateAreas
		u.Key = keys.AreaListKey(row.Organization, row.Period, dept)
		u.Areas = d.NormalizeAreas(row.Notes)
		return u, true
	}

	area := strings.TrimSpace(row.AreaName)
	if area == "" {
		slug, ok := keys.StripDept(dept, row.AreaID)
		if !ok || slug == "" {
			return Update{}, false
		}
		area = slug
	}
	u.Area = area

	kind, catSlug := keys.ParseCategory(dept, row.CategoryID)
	switch kind {
	case keys.CategoryReview:
		u.Kind = UpdateReview
		u.Category = catSlug
		u.Key = keys.ReviewKey(row.Organization, row.Period, dept, area, catSlug)
		notes, tags := d.DecodeNotes(row.Notes)
		u.Review = model.ReviewRecord{
			WorkedWell:       d.DecodeThread(row.WorkedWell),
			NeedsImprovement: d.DecodeThread(row.NeedsImprovement),
			Notes:            notes,
			Tags:             tags,
			Rating:           row.Rating,
		}
	case keys.CategoryVotes:
		u.Kind = UpdateVotes
		u.Category = catSlug
		u.Key = keys.ReviewKey(row.Organization, row.Period, dept, area, catSlug)
		u.Review = model.ReviewRecord{Votes: d.DecodeVotes(row.WorkedWell), Rating: row.Rating}
	case keys.CategoryTasks:
		u.Kind = UpdateTasks
		u.Key = keys.TaskKey(row.Organization, row.Period, dept, area)
		u.Tasks = d.NormalizeTasks(row.Notes, u.Key)
	case keys.CategoryDescription:
		u.Kind = UpdateDescription
		u.Key = keys.DescriptionKey(row.Organization, row.Period, dept, area)
		u.Text = d.NormalizeDescription(row.Notes)
	case keys.CategorySelection:
		u.Kind = UpdateCategories
		u.Key = keys.CategoriesKey(row.Organization, row.Period, dept, area)
		u.Categories = d.NormalizeCategories(row.Notes)
	default:
		return Update{}, false
	}
	return u, true
}

func (d *Decoder) decodeConfig(row remote.Row) (Update, bool) {
	u := Update{Org: row.Organization}
	switch row.CategoryID {
	case keys.YearsSentinel:
		u.Kind = UpdateYears
		u.Key = keys.ConfigKey(row.Organization, keys.ConfigYears)
		u.Years = d.NormalizeYears(row.Notes)
	case keys.DeptsSentinel:
		u.Kind = UpdateDepartments
		u.Key = keys.ConfigKey(row.Organization, keys.ConfigDepts)
		u.Departments = d.NormalizeDepartments(row.Notes)
	case keys.RosterSentinel:
		u.Kind = UpdateRoster
		u.Key = keys.ConfigKey(row.Organization, keys.ConfigRoster)
		u.Roster = d.NormalizeRoster(row.Notes)
	default:
		return Update{}, false
	}
	return u, true
}
