package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CSVFeed reads quote rows:
//
//	time,symbol,bid,ask[,close]
//
// where time is RFC3339 or RFC3339Nano. Bid and ask may be left empty when
// a close is given.
//
// It optionally filters quotes to [From, To) if provided.
// A header row ("time,...") is allowed. Empty or short rows are skipped.
type CSVFeed struct {
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
}

func NewCSVFeed(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVFeed{f: f, r: r, from: from, to: to}, nil
}

func (f *CSVFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVFeed) Next() (Quote, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return Quote{}, false, nil
		}
		if err != nil {
			return Quote{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		q, ok, err := parseQuoteRow(row)
		if err != nil {
			return Quote{}, false, err
		}
		if !ok {
			continue
		}
		if !inRange(q.Time, f.from, f.to) {
			continue
		}
		return q, true, nil
	}
}

func parseQuoteRow(row []string) (Quote, bool, error) {
	if len(row) < 4 {
		return Quote{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return Quote{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return Quote{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return Quote{}, false, nil
	}

	q := Quote{Symbol: sym, Time: t}
	if q.Bid, err = parseOptional(row[2]); err != nil {
		return Quote{}, false, fmt.Errorf("bad bid %q: %w", row[2], err)
	}
	if q.Ask, err = parseOptional(row[3]); err != nil {
		return Quote{}, false, fmt.Errorf("bad ask %q: %w", row[3], err)
	}
	if len(row) > 4 {
		if q.Close, err = parseOptional(row[4]); err != nil {
			return Quote{}, false, fmt.Errorf("bad close %q: %w", row[4], err)
		}
	}
	if !q.Valid() {
		return Quote{}, false, fmt.Errorf("row for %s at %s has neither bid/ask nor close", sym, ts)
	}
	return q, true, nil
}

func parseOptional(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
