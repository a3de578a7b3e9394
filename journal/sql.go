package journal

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradeledger/internal/id"
)

// SQL is a Journal backed by database/sql. NewSQLite and NewPostgres
// differ only in driver, schema and placeholder style.
type SQL struct {
	db       *sql.DB
	runID    string
	numbered bool
}

func openSQL(driver, dsn, schema, runID string, numbered bool) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect %s: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	if runID == "" {
		runID = id.New()
	}
	return &SQL{db: db, runID: runID, numbered: numbered}, nil
}

// rebind rewrites ? placeholders to $1..$n for drivers that need it.
func (j *SQL) rebind(q string) string {
	if !j.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (j *SQL) exec(q string, args ...any) error {
	_, err := j.db.Exec(j.rebind(q), args...)
	return err
}

func (j *SQL) RunID() string { return j.runID }

// DB exposes the handle for ad-hoc queries.
func (j *SQL) DB() *sql.DB { return j.db }

func (j *SQL) RecordOrder(o OrderRecord) error {
	return j.exec(`
		INSERT INTO orders
		(run_id, order_id, kind, status, symbol, price, quantity, stop_loss, take_profit, max_active, created_at, position_id, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, o.OrderID, o.Kind, o.Status, o.Symbol, o.Price, o.Quantity,
		o.StopLoss, o.TakeProfit, int64(o.MaxActive), o.CreatedAt.UTC(), o.PositionID, o.Reason,
	)
}

func (j *SQL) RecordPosition(p PositionRecord) error {
	return j.exec(`
		INSERT INTO positions
		(run_id, position_id, side, symbol, open_price, quantity, stop_loss, take_profit, open_time, close_price, close_time, profit_loss, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, p.PositionID, p.Side, p.Symbol, p.OpenPrice, p.Quantity,
		p.StopLoss, p.TakeProfit, p.OpenTime.UTC(), p.ClosePrice, p.CloseTime.UTC(), p.ProfitLoss, p.Reason,
	)
}

func (j *SQL) RecordEquity(e EquitySnapshot) error {
	return j.exec(`
		INSERT INTO equity
		(run_id, time, balance, equity, margin_used, free_margin, margin_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.runID, e.Time.UTC(), e.Balance, e.Equity, e.MarginUsed, e.FreeMargin, e.MarginLevel,
	)
}

const orderColumns = `run_id, order_id, kind, status, symbol, price, quantity, stop_loss, take_profit, max_active, created_at, position_id, reason`

const positionColumns = `run_id, position_id, side, symbol, open_price, quantity, stop_loss, take_profit, open_time, close_price, close_time, profit_loss, reason`

func (j *SQL) Orders() ([]OrderRecord, error) {
	rows, err := j.db.Query(j.rebind(`SELECT `+orderColumns+` FROM orders WHERE run_id = ? ORDER BY seq ASC`), j.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var (
			rec       OrderRecord
			maxActive int64
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.OrderID,
			&rec.Kind,
			&rec.Status,
			&rec.Symbol,
			&rec.Price,
			&rec.Quantity,
			&rec.StopLoss,
			&rec.TakeProfit,
			&maxActive,
			&rec.CreatedAt,
			&rec.PositionID,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.MaxActive = time.Duration(maxActive)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQL) Positions() ([]PositionRecord, error) {
	return j.queryPositions(`SELECT `+positionColumns+` FROM positions WHERE run_id = ? ORDER BY seq ASC`, j.runID)
}

func (j *SQL) queryPositions(q string, args ...any) ([]PositionRecord, error) {
	rows, err := j.db.Query(j.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		var rec PositionRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.PositionID,
			&rec.Side,
			&rec.Symbol,
			&rec.OpenPrice,
			&rec.Quantity,
			&rec.StopLoss,
			&rec.TakeProfit,
			&rec.OpenTime,
			&rec.ClosePrice,
			&rec.CloseTime,
			&rec.ProfitLoss,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQL) Equity() ([]EquitySnapshot, error) {
	rows, err := j.db.Query(j.rebind(`
		SELECT run_id, time, balance, equity, margin_used, free_margin, margin_level
		FROM equity WHERE run_id = ? ORDER BY seq ASC`), j.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(
			&rec.RunID,
			&rec.Time,
			&rec.Balance,
			&rec.Equity,
			&rec.MarginUsed,
			&rec.FreeMargin,
			&rec.MarginLevel,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Clear deletes this run's records. Other runs in the same database are
// left alone.
func (j *SQL) Clear() error {
	for _, table := range []string{"orders", "positions", "equity"} {
		if err := j.exec(`DELETE FROM `+table+` WHERE run_id = ?`, j.runID); err != nil {
			return fmt.Errorf("journal: clear %s: %w", table, err)
		}
	}
	return nil
}

func (j *SQL) Close() error {
	return j.db.Close()
}
