package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/14tweny/Gottwood-Review-sub000/internal/roster"
	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/codec"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/keys"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// ReviewPatch lists the review fields to change. Nil fields are left as they
// are. Comment fields edit the caller's own thread entry; empty text removes it.
type ReviewPatch struct {
	WorkedWell       *string
	NeedsImprovement *string
	Notes            *string
	Tags             *[]string
}

func (p ReviewPatch) touchesThreads() bool {
	return p.WorkedWell != nil || p.NeedsImprovement != nil
}

// areaName returns the display name under which area is listed, or the
// trimmed input when it is not listed.
func (s *Session) areaName(area string) (string, error) {
	area = strings.TrimSpace(area)
	slug := keys.Slug(area)
	if slug == "" {
		return "", fmt.Errorf("area name %q has no usable characters", area)
	}
	for _, a := range s.Areas() {
		if keys.Slug(a) == slug {
			return a, nil
		}
	}
	return area, nil
}

func categoryName(category string) (string, error) {
	category = strings.TrimSpace(category)
	if keys.Slug(category) == "" {
		return "", fmt.Errorf("category name %q has no usable characters", category)
	}
	return category, nil
}

// Reviews

// SaveReviewPatch applies patch to a review record and schedules the write
// of its review row.
func (s *Session) SaveReviewPatch(area, category string, patch ReviewPatch) (model.ReviewRecord, error) {
	if err := s.requireKind(model.PeriodReview); err != nil {
		return model.ReviewRecord{}, err
	}
	area, err := s.areaName(area)
	if err != nil {
		return model.ReviewRecord{}, err
	}
	category, err = categoryName(category)
	if err != nil {
		return model.ReviewRecord{}, err
	}
	var author string
	if patch.touchesThreads() {
		if author, err = s.author(); err != nil {
			return model.ReviewRecord{}, err
		}
	}

	key := s.ReviewKey(area, category)
	release := s.guard(key)
	defer release()

	nowMs := s.now().UnixMilli()
	rec, err := s.state.UpdateReview(key, func(r model.ReviewRecord) (model.ReviewRecord, error) {
		if patch.WorkedWell != nil {
			if err := r.SetComment(model.FieldWorkedWell, author, *patch.WorkedWell, nowMs); err != nil {
				return r, err
			}
		}
		if patch.NeedsImprovement != nil {
			if err := r.SetComment(model.FieldNeedsImprovement, author, *patch.NeedsImprovement, nowMs); err != nil {
				return r, err
			}
		}
		if patch.Notes != nil {
			r.Notes = strings.TrimSpace(*patch.Notes)
		}
		if patch.Tags != nil {
			r.Tags = model.NormalizeTags(*patch.Tags)
		}
		return r, nil
	})
	if err != nil {
		return model.ReviewRecord{}, err
	}
	return rec, s.save(key, codec.ReviewRow(s.scope, area, category, rec), false)
}

// CastVote records the caller's vote on a category, replacing any earlier
// vote of theirs. Zero withdraws the vote. Votes are written immediately.
func (s *Session) CastVote(area, category string, value int) (model.ReviewRecord, error) {
	if err := s.requireKind(model.PeriodReview); err != nil {
		return model.ReviewRecord{}, err
	}
	area, err := s.areaName(area)
	if err != nil {
		return model.ReviewRecord{}, err
	}
	category, err = categoryName(category)
	if err != nil {
		return model.ReviewRecord{}, err
	}
	voter, err := s.author()
	if err != nil {
		return model.ReviewRecord{}, err
	}

	key := s.ReviewKey(area, category)
	release := s.guard(key)
	defer release()

	rec, err := s.state.UpdateReview(key, func(r model.ReviewRecord) (model.ReviewRecord, error) {
		err := r.SetVote(voter, value)
		return r, err
	})
	if err != nil {
		return model.ReviewRecord{}, err
	}
	return rec, s.save(key, codec.VotesRow(s.scope, area, category, rec.Votes), true)
}

// Tasks

// updateTasks runs fn on an area's task list, validates the result and
// writes it, immediately when immediate is set.
func (s *Session) updateTasks(area string, immediate bool, fn func([]model.Task) ([]model.Task, error)) ([]model.Task, error) {
	if err := s.requireKind(model.PeriodTracker); err != nil {
		return nil, err
	}
	area, err := s.areaName(area)
	if err != nil {
		return nil, err
	}

	key := s.TaskKey(area)
	release := s.guard(key)
	defer release()

	tasks, err := s.state.UpdateTasks(key, func(cur []model.Task) ([]model.Task, error) {
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if err := model.ValidateTasks(next); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, s.save(key, codec.TasksRow(s.scope, area, tasks), immediate)
}

// SetTaskList replaces an area's task list.
func (s *Session) SetTaskList(area string, tasks []model.Task) error {
	_, err := s.updateTasks(area, false, func([]model.Task) ([]model.Task, error) {
		return model.CloneTasks(tasks), nil
	})
	return err
}

// AddTask appends draft to an area's task list. A missing id or status is
// filled in and the task is stamped with the caller's identity.
func (s *Session) AddTask(area string, draft model.Task) (model.Task, error) {
	task := draft.Clone()
	if task.ID == "" {
		task.ID = model.NewTask(task.Label, "").ID
	}
	if task.Status == "" {
		task.Status = model.TaskNotStarted
	}
	task.Label = strings.TrimSpace(task.Label)
	task.Tags = model.NormalizeTags(task.Tags)
	task.EditedBy = s.Identity()

	_, err := s.updateTasks(area, false, func(cur []model.Task) ([]model.Task, error) {
		if model.FindTask(cur, task.ID) >= 0 {
			return nil, fmt.Errorf("task %s already exists", task.ID)
		}
		return append(cur, task), nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// EditTask applies fn to one task of an area.
func (s *Session) EditTask(area, id string, fn func(t *model.Task) error) (model.Task, error) {
	var edited model.Task
	_, err := s.updateTasks(area, false, func(cur []model.Task) ([]model.Task, error) {
		i := model.FindTask(cur, id)
		if i < 0 {
			return nil, fmt.Errorf("task %s not found", id)
		}
		if err := fn(&cur[i]); err != nil {
			return nil, err
		}
		cur[i].ID = id
		cur[i].Tags = model.NormalizeTags(cur[i].Tags)
		cur[i].EditedBy = s.Identity()
		edited = cur[i].Clone()
		return cur, nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return edited, nil
}

// SetTaskStatus changes a task's status. Status changes are written immediately.
func (s *Session) SetTaskStatus(area, id string, status model.TaskStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	_, err := s.updateTasks(area, true, func(cur []model.Task) ([]model.Task, error) {
		i := model.FindTask(cur, id)
		if i < 0 {
			return nil, fmt.Errorf("task %s not found", id)
		}
		cur[i].Status = status
		cur[i].EditedBy = s.Identity()
		return cur, nil
	})
	return err
}

// MoveTask moves a task to index in the display order.
func (s *Session) MoveTask(area, id string, index int) error {
	_, err := s.updateTasks(area, false, func(cur []model.Task) ([]model.Task, error) {
		return model.MoveTask(cur, id, index)
	})
	return err
}

// Areas

// cleanAreas trims names and drops blanks and names whose slug repeats an
// earlier one, since they would address the same records.
func cleanAreas(areas []string) []string {
	out := make([]string, 0, len(areas))
	seen := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		a = strings.Join(strings.Fields(a), " ")
		slug := keys.Slug(a)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, a)
	}
	return out
}

func (s *Session) updateAreas(fn func([]string) ([]string, error)) ([]string, error) {
	key := s.AreasKey()
	release := s.guard(key)
	defer release()

	areas, err := s.state.UpdateAreas(key, func(cur []string) ([]string, error) {
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		return cleanAreas(next), nil
	})
	if err != nil {
		return nil, err
	}
	return areas, s.save(key, codec.AreasRow(s.scope, areas), false)
}

// SetAreas replaces the department's area list.
func (s *Session) SetAreas(areas []string) ([]string, error) {
	return s.updateAreas(func([]string) ([]string, error) {
		return append([]string(nil), areas...), nil
	})
}

// AddArea appends an area to the department's list.
func (s *Session) AddArea(name string) ([]string, error) {
	name = strings.Join(strings.Fields(name), " ")
	slug := keys.Slug(name)
	if slug == "" {
		return nil, fmt.Errorf("area name %q has no usable characters", name)
	}
	return s.updateAreas(func(cur []string) ([]string, error) {
		for _, a := range cur {
			if keys.Slug(a) == slug {
				return nil, fmt.Errorf("area '%s' already exists", a)
			}
		}
		return append(cur, name), nil
	})
}

// RemoveArea drops an area from the department's list. Its records stay in
// the remote store and reappear if the area is added again.
func (s *Session) RemoveArea(name string) ([]string, error) {
	slug := keys.Slug(name)
	return s.updateAreas(func(cur []string) ([]string, error) {
		out := make([]string, 0, len(cur))
		for _, a := range cur {
			if keys.Slug(a) != slug {
				out = append(out, a)
			}
		}
		if len(out) == len(cur) {
			return nil, fmt.Errorf("area '%s' not found", strings.TrimSpace(name))
		}
		return out, nil
	})
}

// SetDescription replaces an area's description.
func (s *Session) SetDescription(area, text string) error {
	area, err := s.areaName(area)
	if err != nil {
		return err
	}
	key := s.DescriptionKey(area)
	release := s.guard(key)
	defer release()

	text = strings.TrimSpace(text)
	s.state.PutDescription(key, text, state.SourceLocal)
	return s.save(key, codec.DescriptionRow(s.scope, area, text), false)
}

// SetCategories replaces an area's category selection. Selected categories
// missing from the available list are added to it.
func (s *Session) SetCategories(area string, sel model.CategorySelection) (model.CategorySelection, error) {
	area, err := s.areaName(area)
	if err != nil {
		return model.CategorySelection{}, err
	}
	row := codec.CategoriesRow(s.scope, area, sel)
	// Store exactly what readers of the row will decode.
	sel = s.decoder.NormalizeCategories(row.Notes)
	row = codec.CategoriesRow(s.scope, area, sel)

	key := s.CategoriesKey(area)
	release := s.guard(key)
	defer release()

	s.state.PutCategories(key, sel, state.SourceLocal)
	return sel, s.save(key, row, false)
}

// Organization config

// SetYears replaces the organization's period list.
func (s *Session) SetYears(years []string) ([]string, error) {
	years = s.decoder.NormalizeYears(codec.YearsRow(s.scope.Org, years).Notes)
	if len(years) == 0 {
		return nil, fmt.Errorf("period list cannot be empty")
	}
	key := s.ConfigKey(keys.ConfigYears)
	release := s.guard(key)
	defer release()

	s.state.PutYears(key, years, state.SourceLocal)
	return years, s.save(key, codec.YearsRow(s.scope.Org, years), false)
}

// SetDepartments replaces the organization's department list.
func (s *Session) SetDepartments(depts []model.Department) error {
	seen := make(map[string]struct{}, len(depts))
	for _, d := range depts {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate department id '%s'", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	depts = s.decoder.NormalizeDepartments(codec.DepartmentsRow(s.scope.Org, depts).Notes)

	key := s.ConfigKey(keys.ConfigDepts)
	release := s.guard(key)
	defer release()

	s.state.PutDepartments(key, depts, state.SourceLocal)
	return s.save(key, codec.DepartmentsRow(s.scope.Org, depts), false)
}

func (s *Session) updateRoster(fn func([]model.RosterMember) ([]model.RosterMember, error)) ([]model.RosterMember, error) {
	key := s.ConfigKey(keys.ConfigRoster)
	release := s.guard(key)
	defer release()

	members, err := s.state.UpdateRoster(key, func(cur []model.RosterMember) ([]model.RosterMember, error) {
		cur, _ = roster.FillColors(cur)
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		next, _ = roster.FillColors(next)
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return members, s.save(key, codec.RosterRow(s.scope.Org, members), false)
}

// AddRosterMember enrolls a new member with the next free palette color.
func (s *Session) AddRosterMember(name, role string) (model.RosterMember, error) {
	var added model.RosterMember
	_, err := s.updateRoster(func(cur []model.RosterMember) ([]model.RosterMember, error) {
		for _, m := range cur {
			if strings.EqualFold(m.Name, strings.Join(strings.Fields(name), " ")) {
				return nil, fmt.Errorf("'%s' is already on the roster", m.Name)
			}
		}
		m, err := roster.NewMember(cur, name, role)
		if err != nil {
			return nil, err
		}
		added = m
		return append(cur, m), nil
	})
	return added, err
}

// RemoveRosterMember removes the member with id. Remaining members keep
// their colors.
func (s *Session) RemoveRosterMember(id string) error {
	_, err := s.updateRoster(func(cur []model.RosterMember) ([]model.RosterMember, error) {
		out := make([]model.RosterMember, 0, len(cur))
		for _, m := range cur {
			if m.ID != id {
				out = append(out, m)
			}
		}
		if len(out) == len(cur) {
			return nil, fmt.Errorf("roster member %s not found", id)
		}
		return out, nil
	})
	return err
}

// Identify sets the name the session acts as. A name that resolves to no
// roster member enrolls a new member; otherwise the session acts as the
// matched member's full name.
func (s *Session) Identify(ctx context.Context, name string) (model.RosterMember, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return model.RosterMember{}, fmt.Errorf("name cannot be empty")
	}

	member, ok := s.Resolver().Resolve(name)
	if !ok {
		var err error
		_, err = s.updateRoster(func(cur []model.RosterMember) ([]model.RosterMember, error) {
			next, m, _, err := roster.Enroll(cur, name, "")
			member = m
			return next, err
		})
		if err != nil {
			return model.RosterMember{}, err
		}
	}

	s.mu.Lock()
	s.identity = member.Name
	s.mu.Unlock()
	s.rememberIdentity(ctx, member.Name)
	return member, nil
}
