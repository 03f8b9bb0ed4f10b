// Package dedupe provides a time-based cache of processed webhook event
// keys, used to short-circuit re-deliveries before they reach the database.
package dedupe
