package journal

import (
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens (or creates) a sqlite journal at path. An empty runID
// starts a new run.
func NewSQLite(path, runID string) (*SQL, error) {
	return openSQL("sqlite3", path, SQLiteSchema, runID, false)
}
