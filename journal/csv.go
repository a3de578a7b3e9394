package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/internal/id"
)

var (
	orderHeader    = []string{"run_id", "order_id", "kind", "status", "symbol", "price", "quantity", "stop_loss", "take_profit", "max_active", "created_at", "position_id", "reason"}
	positionHeader = []string{"run_id", "position_id", "side", "symbol", "open_price", "quantity", "stop_loss", "take_profit", "open_time", "close_price", "close_time", "profit_loss", "reason"}
	equityHeader   = []string{"run_id", "time", "balance", "equity", "margin_used", "free_margin", "margin_level"}
)

// CSV writes one file per record kind into a directory: orders.csv,
// positions.csv and equity.csv. Opening a directory truncates any files
// left by an earlier run.
type CSV struct {
	mu    sync.Mutex
	dir   string
	runID string

	files   map[string]*os.File
	writers map[string]*csv.Writer
}

func NewCSV(dir, runID string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if runID == "" {
		runID = id.New()
	}
	j := &CSV{
		dir:     dir,
		runID:   runID,
		files:   map[string]*os.File{},
		writers: map[string]*csv.Writer{},
	}
	if err := j.create(); err != nil {
		j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSV) create() error {
	for name, header := range map[string][]string{
		"orders.csv":    orderHeader,
		"positions.csv": positionHeader,
		"equity.csv":    equityHeader,
	} {
		f, err := os.Create(filepath.Join(j.dir, name))
		if err != nil {
			return err
		}
		w := csv.NewWriter(f)
		j.files[name] = f
		j.writers[name] = w
		if err := j.write(name, header); err != nil {
			return err
		}
	}
	return nil
}

func (j *CSV) write(name string, row []string) error {
	w := j.writers[name]
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RunID() string { return j.runID }

func (j *CSV) Dir() string { return j.dir }

func (j *CSV) RecordOrder(o OrderRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.write("orders.csv", []string{
		j.runID,
		strconv.FormatInt(o.OrderID, 10),
		o.Kind,
		o.Status,
		o.Symbol,
		o.Price.String(),
		o.Quantity.String(),
		nullString(o.StopLoss),
		nullString(o.TakeProfit),
		o.MaxActive.String(),
		o.CreatedAt.UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(o.PositionID, 10),
		o.Reason,
	})
}

func (j *CSV) RecordPosition(p PositionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.write("positions.csv", []string{
		j.runID,
		strconv.FormatInt(p.PositionID, 10),
		p.Side,
		p.Symbol,
		p.OpenPrice.String(),
		p.Quantity.String(),
		nullString(p.StopLoss),
		nullString(p.TakeProfit),
		p.OpenTime.UTC().Format(time.RFC3339Nano),
		p.ClosePrice.String(),
		p.CloseTime.UTC().Format(time.RFC3339Nano),
		p.ProfitLoss.String(),
		p.Reason,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.write("equity.csv", []string{
		j.runID,
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Balance.String(),
		e.Equity.String(),
		e.MarginUsed.String(),
		e.FreeMargin.String(),
		nullString(e.MarginLevel),
	})
}

func (j *CSV) Orders() ([]OrderRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows, err := j.read("orders.csv")
	if err != nil {
		return nil, err
	}
	out := make([]OrderRecord, 0, len(rows))
	for i, r := range rows {
		var rec OrderRecord
		p := fieldParser{row: r}
		rec.RunID = p.str(0)
		rec.OrderID = p.int64(1)
		rec.Kind = p.str(2)
		rec.Status = p.str(3)
		rec.Symbol = p.str(4)
		rec.Price = p.dec(5)
		rec.Quantity = p.dec(6)
		rec.StopLoss = p.nullDec(7)
		rec.TakeProfit = p.nullDec(8)
		rec.MaxActive = p.dur(9)
		rec.CreatedAt = p.timestamp(10)
		rec.PositionID = p.int64(11)
		rec.Reason = p.str(12)
		if p.err != nil {
			return nil, fmt.Errorf("orders.csv row %d: %w", i+2, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *CSV) Positions() ([]PositionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows, err := j.read("positions.csv")
	if err != nil {
		return nil, err
	}
	out := make([]PositionRecord, 0, len(rows))
	for i, r := range rows {
		var rec PositionRecord
		p := fieldParser{row: r}
		rec.RunID = p.str(0)
		rec.PositionID = p.int64(1)
		rec.Side = p.str(2)
		rec.Symbol = p.str(3)
		rec.OpenPrice = p.dec(4)
		rec.Quantity = p.dec(5)
		rec.StopLoss = p.nullDec(6)
		rec.TakeProfit = p.nullDec(7)
		rec.OpenTime = p.timestamp(8)
		rec.ClosePrice = p.dec(9)
		rec.CloseTime = p.timestamp(10)
		rec.ProfitLoss = p.dec(11)
		rec.Reason = p.str(12)
		if p.err != nil {
			return nil, fmt.Errorf("positions.csv row %d: %w", i+2, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *CSV) Equity() ([]EquitySnapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows, err := j.read("equity.csv")
	if err != nil {
		return nil, err
	}
	out := make([]EquitySnapshot, 0, len(rows))
	for i, r := range rows {
		var rec EquitySnapshot
		p := fieldParser{row: r}
		rec.RunID = p.str(0)
		rec.Time = p.timestamp(1)
		rec.Balance = p.dec(2)
		rec.Equity = p.dec(3)
		rec.MarginUsed = p.dec(4)
		rec.FreeMargin = p.dec(5)
		rec.MarginLevel = p.nullDec(6)
		if p.err != nil {
			return nil, fmt.Errorf("equity.csv row %d: %w", i+2, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// read returns every data row of a file, header skipped.
func (j *CSV) read(name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(j.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for first := true; ; first = false {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if first {
			continue
		}
		rows = append(rows, rec)
	}
}

// Clear truncates all three files back to their headers.
func (j *CSV) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.closeFiles(); err != nil {
		return err
	}
	return j.create()
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeFiles()
}

func (j *CSV) closeFiles() error {
	var first error
	for name, f := range j.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(j.files, name)
		delete(j.writers, name)
	}
	return first
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// fieldParser keeps the first conversion error so a row can be decoded
// without an if after every column.
type fieldParser struct {
	row []string
	err error
}

func (p *fieldParser) str(i int) string {
	if i >= len(p.row) {
		if p.err == nil {
			p.err = fmt.Errorf("missing column %d", i)
		}
		return ""
	}
	return p.row[i]
}

func (p *fieldParser) int64(i int) int64 {
	s := p.str(i)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *fieldParser) dec(i int) decimal.Decimal {
	s := p.str(i)
	v, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *fieldParser) nullDec(i int) decimal.NullDecimal {
	if p.str(i) == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.dec(i))
}

func (p *fieldParser) dur(i int) time.Duration {
	s := p.str(i)
	v, err := time.ParseDuration(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *fieldParser) timestamp(i int) time.Time {
	s := p.str(i)
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}
