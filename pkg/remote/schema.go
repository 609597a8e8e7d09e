package remote

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by organization so several
// festivals can share one Redis server without seeing each other's rows.
//
// Row hash:     gottwood:{org}:row:{period}:{area_id}:{category_id}
// Scope index:  gottwood:{org}:scope:{period}
// Row events:   gottwood:{org}:row_events

// RowKey returns the Redis key of a row hash.
// Pattern: gottwood:{org}:row:{period}:{area_id}:{category_id}
func RowKey(id RowID) string {
	return fmt.Sprintf("gottwood:%s:row:%s:%s:%s", id.Organization, id.Period, id.AreaID, id.CategoryID)
}

// ScopeKey returns the Redis key of the set indexing every row key of a period.
// Pattern: gottwood:{org}:scope:{period}
func ScopeKey(org, period string) string {
	return fmt.Sprintf("gottwood:%s:scope:%s", org, period)
}

// RowEventsChannel returns the Pub/Sub channel carrying an organization's row changes.
// Pattern: gottwood:{org}:row_events
func RowEventsChannel(org string) string {
	return fmt.Sprintf("gottwood:%s:row_events", org)
}
