// Package model defines the domain types shared by every layer of the Gottwood
// synchronization core: organizations, periods, departments, review records,
// task lists and the roster.
//
// The types are plain values. Every layer that stores them (the local state
// store, the remote store, the prefs cache) copies them in and out, so nothing
// in this package holds a lock or a reference to shared state.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Organization is a festival that owns a set of periods, departments and a roster.
// Organizations come from static configuration and never change at runtime.
type Organization struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Secret string `yaml:"secret" json:"-"`
}

// Validate checks that the organization can be used to build keys.
func (o Organization) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("organization id cannot be empty")
	}
	if strings.ContainsAny(o.ID, ": \t\n") {
		return fmt.Errorf("organization id %q must not contain ':' or whitespace", o.ID)
	}
	return nil
}

// PeriodKind selects the feature set that applies to every record in a period.
type PeriodKind string

const (
	// PeriodTracker periods use task checklists (the current and future editions).
	PeriodTracker PeriodKind = "tracker"

	// PeriodReview periods use rated reviews (past editions).
	PeriodReview PeriodKind = "review"
)

// Classify reports whether period is a tracker or a review period relative to
// the current-period threshold. Numeric labels compare numerically; anything
// else falls back to a lexical comparison.
func Classify(period, current string) PeriodKind {
	p, perr := strconv.Atoi(strings.TrimSpace(period))
	c, cerr := strconv.Atoi(strings.TrimSpace(current))
	if perr == nil && cerr == nil {
		if p >= c {
			return PeriodTracker
		}
		return PeriodReview
	}
	if period >= current {
		return PeriodTracker
	}
	return PeriodReview
}

// Department is a period-independent division of an organization.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks the department id is usable as a key component.
func (d Department) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("department id cannot be empty")
	}
	if strings.Contains(d.ID, "__") || strings.ContainsAny(d.ID, ": \t\n") {
		return fmt.Errorf("department id %q must not contain '__', ':' or whitespace", d.ID)
	}
	return nil
}

// Scope identifies the slice of records a session works on.
type Scope struct {
	Org    string
	Period string
	Dept   string
}

// Validate checks that all three scope components are present.
func (s Scope) Validate() error {
	if s.Org == "" {
		return fmt.Errorf("scope: organization is required")
	}
	if s.Period == "" {
		return fmt.Errorf("scope: period is required")
	}
	if s.Dept == "" {
		return fmt.Errorf("scope: department is required")
	}
	return nil
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Org, s.Period, s.Dept)
}

// CategorySelection holds the categories offered for an area and the subset
// that is currently selected for review.
type CategorySelection struct {
	Available []string `json:"available"`
	Selected  []string `json:"selected"`
}

// SaveStatus is the UI-facing persistence state of a single key.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)
