package session

import (
	"context"
	"log"

	"github.com/14tweny/Gottwood-Review-sub000/internal/state"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/keys"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// identityKey is the prefs key of the name the user last identified as.
func identityKey(org string) string {
	return "identity:" + org
}

// restore seeds the store from the prefs cache so config and identity are
// available before the first load completes. Missing or corrupt entries are
// skipped.
func (s *Session) restore(ctx context.Context) {
	if s.prefs == nil {
		return
	}

	var name string
	if ok, err := s.prefs.GetJSON(ctx, identityKey(s.scope.Org), &name); err != nil {
		log.Printf("[Session] Failed to read cached identity: %v", err)
	} else if ok {
		s.mu.Lock()
		s.identity = name
		s.mu.Unlock()
	}

	var years []string
	if s.cached(ctx, keys.ConfigYears, &years) {
		s.state.MergeYears(s.ConfigKey(keys.ConfigYears), years, state.SourceLoad)
	}
	var depts []model.Department
	if s.cached(ctx, keys.ConfigDepts, &depts) {
		s.state.MergeDepartments(s.ConfigKey(keys.ConfigDepts), depts, state.SourceLoad)
	}
	var members []model.RosterMember
	if s.cached(ctx, keys.ConfigRoster, &members) {
		s.state.MergeRoster(s.ConfigKey(keys.ConfigRoster), members, state.SourceLoad)
	}
}

func (s *Session) cached(ctx context.Context, name string, v interface{}) bool {
	ok, err := s.prefs.GetJSON(ctx, s.ConfigKey(name), v)
	if err != nil {
		log.Printf("[Session] Failed to read cached %s: %v", name, err)
		return false
	}
	return ok
}

// persistConfig writes the organization's config records to the prefs
// cache. Nothing is written before a load has succeeded, so a cold cache is
// never replaced by empty defaults.
func (s *Session) persistConfig(ctx context.Context) {
	if s.prefs == nil || !s.state.Loaded(s.sync.ScopeID()) {
		return
	}
	entries := map[string]interface{}{
		keys.ConfigYears:  s.Years(),
		keys.ConfigDepts:  s.Departments(),
		keys.ConfigRoster: s.Roster(),
	}
	for name, v := range entries {
		if err := s.prefs.SetJSON(ctx, s.ConfigKey(name), v); err != nil {
			log.Printf("[Session] Failed to cache %s: %v", name, err)
		}
	}
}

// rememberIdentity stores name as the identity for the organization.
func (s *Session) rememberIdentity(ctx context.Context, name string) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.SetJSON(ctx, identityKey(s.scope.Org), name); err != nil {
		log.Printf("[Session] Failed to cache identity: %v", err)
	}
}
