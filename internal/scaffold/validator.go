package scaffold

import (
	"fmt"
	"os"
	"strings"
)

// CheckExisting returns an error if a configuration already exists at path.
func CheckExisting(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("already initialized\n\nFound existing: %s\n\nUse 'gottwood init --force' to reinitialize (this will overwrite existing configuration)", path)
	}
	return nil
}

// CheckParams validates the values that go into the template.
func CheckParams(p Params) error {
	if p.OrgID == "" || strings.ContainsAny(p.OrgID, ": \t\n\"'") {
		return fmt.Errorf("organization id %q must be non-empty without spaces, quotes or ':'", p.OrgID)
	}
	if strings.TrimSpace(p.CurrentPeriod) == "" || strings.ContainsAny(p.CurrentPeriod, "\"\n") {
		return fmt.Errorf("current period %q is not usable", p.CurrentPeriod)
	}
	return nil
}

// DefaultParams are used when init is run without flags.
func DefaultParams(year int) Params {
	return Params{
		OrgID:         "my-festival",
		OrgName:       "My Festival",
		CurrentPeriod: fmt.Sprint(year),
	}
}
