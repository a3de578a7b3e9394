package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/journal"
)

var t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func dur(x time.Duration) *time.Duration { return &x }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s got %s", want, got)
}

// testJournal is an in-memory journal that can be switched to fail.
type testJournal struct {
	*journal.Memory
	fail    bool
	cleared int
}

var errJournalDown = errors.New("journal down")

func newTestJournal() *testJournal {
	return &testJournal{Memory: journal.NewMemory()}
}

func (j *testJournal) RecordOrder(o journal.OrderRecord) error {
	if j.fail {
		return errJournalDown
	}
	return j.Memory.RecordOrder(o)
}

func (j *testJournal) RecordPosition(p journal.PositionRecord) error {
	if j.fail {
		return errJournalDown
	}
	return j.Memory.RecordPosition(p)
}

func (j *testJournal) RecordEquity(e journal.EquitySnapshot) error {
	if j.fail {
		return errJournalDown
	}
	return j.Memory.RecordEquity(e)
}

func (j *testJournal) Positions() ([]journal.PositionRecord, error) {
	if j.fail {
		return nil, errJournalDown
	}
	return j.Memory.Positions()
}

func (j *testJournal) Clear() error {
	j.cleared++
	return j.Memory.Clear()
}

func (j *testJournal) orders(t *testing.T) []journal.OrderRecord {
	t.Helper()
	recs, err := j.Memory.Orders()
	require.NoError(t, err)
	return recs
}

func (j *testJournal) positions(t *testing.T) []journal.PositionRecord {
	t.Helper()
	recs, err := j.Memory.Positions()
	require.NoError(t, err)
	return recs
}

func newLedger(t *testing.T, balance string, opts ...Option) (*Ledger, *testJournal) {
	t.Helper()
	j := newTestJournal()
	l, err := New(AccountConfig{ID: "acct-1", Currency: "USD", Balance: d(balance)}, j, opts...)
	require.NoError(t, err)
	return l, j
}

// openPosition places an order at price and ticks it into a position.
func openPosition(t *testing.T, l *Ledger, kind OrderKind, price, qty string, sl, tp *decimal.Decimal) Position {
	t.Helper()
	id, err := l.CreateOrder(OrderRequest{
		Kind:       kind,
		Price:      d(price),
		Quantity:   d(qty),
		Symbol:     "EUR_USD",
		StopLoss:   sl,
		TakeProfit: tp,
		CreatedAt:  t0,
	})
	require.NoError(t, err)
	l.Tick(d(price), t0)

	o, ok := l.Order(id)
	require.True(t, ok)
	require.Equal(t, OrderExecuted, o.Status)
	p, ok := l.Position(o.PositionID)
	require.True(t, ok)
	return p
}

