// Package roster resolves typed names against an organization's roster and
// assigns the display colors people are drawn in.
package roster

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// Resolver matches free-text names against a roster snapshot.
// A Resolver is immutable; build a new one when the roster changes.
type Resolver struct {
	members []model.RosterMember
}

// NewResolver creates a resolver over a copy of members.
func NewResolver(members []model.RosterMember) *Resolver {
	return &Resolver{members: model.CloneRoster(members)}
}

// Members returns the roster the resolver was built from.
func (r *Resolver) Members() []model.RosterMember {
	return model.CloneRoster(r.members)
}

// Resolve finds the member a typed name refers to. Candidates are tried in
// priority order: the full name (case-insensitive), then a member whose first
// name equals the typed name, then one whose last name does. Within a tier
// the first member in roster order wins.
func (r *Resolver) Resolve(name string) (model.RosterMember, bool) {
	typed := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if typed == "" {
		return model.RosterMember{}, false
	}

	tiers := []func(tokens []string, full string) bool{
		func(_ []string, full string) bool { return full == typed },
		func(tokens []string, _ string) bool { return len(tokens) > 0 && tokens[0] == typed },
		func(tokens []string, _ string) bool { return len(tokens) > 0 && tokens[len(tokens)-1] == typed },
	}
	for _, match := range tiers {
		for _, m := range r.members {
			tokens := strings.Fields(strings.ToLower(m.Name))
			if match(tokens, strings.Join(tokens, " ")) {
				return m, true
			}
		}
	}
	return model.RosterMember{}, false
}

// ColorFor returns the display color of a typed name. Roster members are drawn
// in their assigned color; anyone else gets a hashed fallback color.
func (r *Resolver) ColorFor(name string) Color {
	m, ok := r.Resolve(name)
	if !ok {
		return HashColor(name, FallbackPalette)
	}
	if c, ok := PaletteColor(m.ColorID); ok {
		return c
	}
	return HashColor(m.Name, Palette)
}

// SamePerson reports whether two typed names refer to the same person.
// Names that resolve to no member only match themselves, case-insensitively.
func (r *Resolver) SamePerson(a, b string) bool {
	ma, okA := r.Resolve(a)
	mb, okB := r.Resolve(b)
	if okA && okB {
		return ma.ID == mb.ID
	}
	if okA != okB {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// AssignColor picks the color for a new member: the first palette entry not
// used by anyone in members, or a hashed palette entry once all are taken.
func AssignColor(members []model.RosterMember, name string) string {
	used := make(map[string]struct{}, len(members))
	for _, m := range members {
		used[m.ColorID] = struct{}{}
	}
	for _, c := range Palette {
		if _, taken := used[c.ID]; !taken {
			return c.ID
		}
	}
	return HashColor(name, Palette).ID
}

// NewMember builds a roster member with a fresh id and the next free color.
func NewMember(members []model.RosterMember, name, role string) (model.RosterMember, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return model.RosterMember{}, fmt.Errorf("member name cannot be empty")
	}
	return model.RosterMember{
		ID:      uuid.New().String(),
		Name:    name,
		Role:    strings.TrimSpace(role),
		ColorID: AssignColor(members, name),
	}, nil
}

// Enroll makes sure name is on the roster. When it already resolves to a
// member the roster is returned unchanged along with that member; otherwise a
// new member is appended. The returned bool reports whether the roster changed.
func Enroll(members []model.RosterMember, name, role string) ([]model.RosterMember, model.RosterMember, bool, error) {
	if m, ok := NewResolver(members).Resolve(name); ok {
		return members, m, false, nil
	}
	m, err := NewMember(members, name, role)
	if err != nil {
		return members, model.RosterMember{}, false, err
	}
	out := append(model.CloneRoster(members), m)
	return out, m, true, nil
}

// FillColors assigns colors to members that have none, in roster order.
// Members that already carry a color keep it.
func FillColors(members []model.RosterMember) ([]model.RosterMember, bool) {
	out := model.CloneRoster(members)
	changed := false
	for i := range out {
		if out[i].ColorID != "" {
			continue
		}
		out[i].ColorID = AssignColor(out, out[i].Name)
		changed = true
	}
	return out, changed
}
