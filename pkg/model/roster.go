package model

import (
	"fmt"
	"strings"
)

// RosterMember is a person enrolled in an organization's roster. Members are
// shared across every period of the organization.
type RosterMember struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	ColorID string `json:"color,omitempty"`
}

// Validate checks the member has an id and a name.
func (m RosterMember) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("roster member id cannot be empty")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("roster member %s: name cannot be empty", m.ID)
	}
	return nil
}

// CloneRoster copies a roster slice.
func CloneRoster(members []RosterMember) []RosterMember {
	return append([]RosterMember(nil), members...)
}
