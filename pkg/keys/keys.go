// Package keys builds and parses the composite keys that address records.
//
// Two families of identifiers live here:
//
// Local keys address values in the in-memory state store. Each logical kind has
// its own namespace so the same (org, period, dept, area) tuple never collides
// across kinds:
//
//	review:{org}:{period}:{dept}:{area-slug}:{category-slug}
//	tasks:{org}:{period}:{dept}:{area-slug}
//	desc:{org}:{period}:{dept}:{area-slug}
//	cats:{org}:{period}:{dept}:{area-slug}
//	areas:{org}:{period}:{dept}
//	config:{org}:{years|depts|roster}
//
// Remote identifiers are the area_id / category_id columns of a remote row.
// They are prefixed with the department id and a double underscore. Slugs never
// contain underscores, so stripping a known "{dept}__" prefix is unambiguous even
// when an area name contains the slug separator.
package keys

import (
	"fmt"
	"strings"
	"unicode"
)

// Sep joins a department id to a slug inside remote identifiers.
const Sep = "__"

// ConfigPeriod is the reserved period under which organization-wide config
// records are stored.
const ConfigPeriod = "__config__"

// Config sentinels stored in the category_id column of config rows.
const (
	YearsSentinel  = "__years__"
	DeptsSentinel  = "__depts__"
	RosterSentinel = "__roster__"
	AreasSentinel  = "__areas__"
)

// ConfigAreaID is the placeholder area_id of config rows.
const ConfigAreaID = "__config__"

// Kind suffixes used in category_id for non-category rows of an area.
const (
	KindVotes       = "votes"
	KindTasks       = "tasks"
	KindDescription = "description"
	KindCategories  = "categories"
)

// Slug turns free text into a URL-safe identifier: lowercase, each run of
// whitespace to one hyphen, everything that is not a letter, digit or hyphen
// removed.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if r == '-' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReviewKey addresses a review record.
// Pattern: review:{org}:{period}:{dept}:{area-slug}:{category-slug}
func ReviewKey(org, period, dept, area, category string) string {
	return fmt.Sprintf("review:%s:%s:%s:%s:%s", org, period, dept, Slug(area), Slug(category))
}

// TaskKey addresses an area's task list.
// Pattern: tasks:{org}:{period}:{dept}:{area-slug}
func TaskKey(org, period, dept, area string) string {
	return fmt.Sprintf("tasks:%s:%s:%s:%s", org, period, dept, Slug(area))
}

// DescriptionKey addresses an area's free-text description.
// Pattern: desc:{org}:{period}:{dept}:{area-slug}
func DescriptionKey(org, period, dept, area string) string {
	return fmt.Sprintf("desc:%s:%s:%s:%s", org, period, dept, Slug(area))
}

// CategoriesKey addresses an area's category selection.
// Pattern: cats:{org}:{period}:{dept}:{area-slug}
func CategoriesKey(org, period, dept, area string) string {
	return fmt.Sprintf("cats:%s:%s:%s:%s", org, period, dept, Slug(area))
}

// AreaListKey addresses the ordered area list of a department in a period.
// Pattern: areas:{org}:{period}:{dept}
func AreaListKey(org, period, dept string) string {
	return fmt.Sprintf("areas:%s:%s:%s", org, period, dept)
}

// ConfigKey addresses one of an organization's config records.
// Pattern: config:{org}:{name}
func ConfigKey(org, name string) string {
	return fmt.Sprintf("config:%s:%s", org, name)
}

// Config record names used with ConfigKey.
const (
	ConfigYears  = "years"
	ConfigDepts  = "depts"
	ConfigRoster = "roster"
)

// AreaID builds the remote area_id of an area.
func AreaID(dept, area string) string {
	return dept + Sep + Slug(area)
}

// CategoryID builds the remote category_id of a review category.
func CategoryID(dept, category string) string {
	return dept + Sep + Slug(category)
}

// KindID builds the remote category_id of a per-area kind row such as the task
// list or the description. Kind ids use a double separator so they can never
// collide with a category slug.
func KindID(dept, kind string) string {
	return dept + Sep + Sep + kind
}

// VotesID builds the remote category_id of the votes row of a category.
func VotesID(dept, category string) string {
	return CategoryID(dept, category) + Sep + KindVotes
}

// AreaListID is the remote area_id of a department's area-list row.
func AreaListID(dept string) string {
	return dept + Sep + "areas"
}

// StripDept removes the "{dept}__" prefix from a raw identifier. It reports
// false when the identifier does not belong to dept.
func StripDept(dept, raw string) (string, bool) {
	prefix := dept + Sep
	if dept == "" || !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	return raw[len(prefix):], true
}

// CategoryKind classifies a raw category_id of a department row.
type CategoryKind int

const (
	CategoryUnknown CategoryKind = iota
	CategoryReview
	CategoryVotes
	CategoryTasks
	CategoryDescription
	CategorySelection
	CategoryAreas
)

// ParseCategory splits a raw category_id into its kind and, for review and
// votes rows, the category slug.
func ParseCategory(dept, raw string) (CategoryKind, string) {
	if raw == AreasSentinel {
		return CategoryAreas, ""
	}
	rest, ok := StripDept(dept, raw)
	if !ok || rest == "" {
		return CategoryUnknown, ""
	}
	if strings.HasPrefix(rest, Sep) {
		switch strings.TrimPrefix(rest, Sep) {
		case KindTasks:
			return CategoryTasks, ""
		case KindDescription:
			return CategoryDescription, ""
		case KindCategories:
			return CategorySelection, ""
		}
		return CategoryUnknown, ""
	}
	if slug, ok := strings.CutSuffix(rest, Sep+KindVotes); ok && slug != "" {
		return CategoryVotes, slug
	}
	if strings.Contains(rest, Sep) {
		return CategoryUnknown, ""
	}
	return CategoryReview, rest
}
