// Package id issues run identifiers for journal records.
package id

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. ULIDs sort by creation time, so journal rows
// from successive runs stay in order in SQLite and Pebble key space.
func New() string {
	return ulid.Make().String()
}

// Time extracts the creation time encoded in a run id.
func Time(runID string) (time.Time, error) {
	u, err := ulid.ParseStrict(runID)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse run id %q: %w", runID, err)
	}
	return ulid.Time(u.Time()).UTC(), nil
}
