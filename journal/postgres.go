package journal

import (
	_ "github.com/lib/pq"
)

// NewPostgres connects to dsn, e.g.
// "host=localhost port=5432 user=ledger password=ledger dbname=ledger sslmode=disable".
func NewPostgres(dsn, runID string) (*SQL, error) {
	return openSQL("postgres", dsn, PostgresSchema, runID, true)
}
