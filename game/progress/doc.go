// Package progress persists per-puzzle progress records.
//
// Store is the caller-facing API. It never returns errors: backend failures
// are logged and reported as an absent record or a false result, so a broken
// disk degrades to a puzzle that simply does not resume.
package progress
