// Package codec translates between domain records and remote rows.
//
// # Field encoding
//
// The remote schema only offers a few generic text columns, so several logical
// fields are multiplexed into them with a marker prefix:
//
//	@@votes:{"Sam":4,"Ana":2}                            vote map
//	@@thread:[{"text":"..","author":"Sam","ts":1700..}]  comment thread
//	@@tags:{"notes":"..","tags":["power","crew"]}        notes with tags
//
// Text without a marker is legacy plain text. Older clients also wrote
// unmarked JSON arrays of thread entries; both shapes are still accepted.
//
// # Row kinds
//
// Each area owns several rows distinguished by category_id (see package keys):
// one review row and one votes row per category, plus a task-list row, a
// description row and a category-selection row. A department's ordered area
// list and the organization's config records (years, departments, roster)
// are rows with sentinel identifiers.
//
// Decoding never fails. A malformed payload falls back to its legacy reading
// and the fallback is reported through the Decoder's log function.
package codec
