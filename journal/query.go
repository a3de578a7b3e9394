package journal

import (
	"fmt"
	"time"
)

// GetPosition returns the first record for a position id in this run.
// A partially closed position has several records; the earliest is
// returned.
func (j *SQL) GetPosition(positionID int64) (PositionRecord, error) {
	recs, err := j.queryPositions(`
		SELECT `+positionColumns+` FROM positions
		WHERE run_id = ? AND position_id = ?
		ORDER BY seq ASC LIMIT 1`, j.runID, positionID)
	if err != nil {
		return PositionRecord{}, err
	}
	if len(recs) == 0 {
		return PositionRecord{}, fmt.Errorf("position %d not found", positionID)
	}
	return recs[0], nil
}

// ListPositionsClosedBetween returns positions of any run whose
// close_time is within [start, end).
func (j *SQL) ListPositionsClosedBetween(start, end time.Time) ([]PositionRecord, error) {
	return j.queryPositions(`
		SELECT `+positionColumns+` FROM positions
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, seq ASC`, start.UTC(), end.UTC())
}

// Runs lists the distinct run ids present. Run ids are ULIDs, so the
// lexical order is also the start order.
func (j *SQL) Runs() ([]string, error) {
	rows, err := j.db.Query(`
		SELECT run_id FROM orders
		UNION SELECT run_id FROM positions
		UNION SELECT run_id FROM equity
		ORDER BY run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run id, or "" for an empty journal.
func (j *SQL) LatestRun() (string, error) {
	runs, err := j.Runs()
	if err != nil || len(runs) == 0 {
		return "", err
	}
	return runs[len(runs)-1], nil
}

// WithRun returns a view of the same database scoped to another run.
// The view shares the handle; closing either closes both.
func (j *SQL) WithRun(runID string) *SQL {
	return &SQL{db: j.db, runID: runID, numbered: j.numbered}
}
