package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/market"
)

func TestProfitLoss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		kind  OrderKind
		close string
		want  string
	}{
		{"buy gains when price rises", KindBuy, "105", "50"},
		{"buy loses when price falls", KindBuy, "97", "-30"},
		{"sell gains when price falls", KindSell, "95", "50"},
		{"sell loses when price rises", KindSell, "102", "-20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, j := newLedger(t, "10000")
			p := openPosition(t, l, tt.kind, "100", "10", nil, nil)

			require.NoError(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d(tt.close), Quantity: d("10")}))

			p, _ = l.Position(p.ID)
			assert.Equal(t, PositionClosed, p.Status)
			assertDec(t, tt.want, p.ProfitLoss)
			assertDec(t, tt.close, p.ClosePrice)
			assert.Equal(t, ReasonManualClose, p.Reason)
			assert.Empty(t, l.ActivePositions())

			recs := j.positions(t)
			require.Len(t, recs, 1)
			assertDec(t, tt.want, recs[0].ProfitLoss)
			assert.True(t, d("10000").Add(d(tt.want)).Equal(l.Account().Balance))
		})
	}
}

func TestCloseMoreThanAvailable(t *testing.T) {
	t.Parallel()
	l, j := newLedger(t, "10000")
	p := openPosition(t, l, KindBuy, "100", "10", dp("90"), dp("120"))

	err := l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("105"), Quantity: d("10.5")})
	require.ErrorIs(t, err, ErrCapacity)

	after, _ := l.Position(p.ID)
	assert.Equal(t, p, after, "a rejected close must not touch the position")
	assert.Empty(t, j.positions(t))
	assertDec(t, "10000", l.Account().Balance)
}

func TestCloseValidation(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, "10000")
	p := openPosition(t, l, KindBuy, "100", "10", nil, nil)

	require.ErrorIs(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("0"), Quantity: d("1")}), ErrValidation)
	require.ErrorIs(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("100"), Quantity: d("-1")}), ErrValidation)
	require.ErrorIs(t, l.ClosePosition(CloseRequest{PositionID: 77, Price: d("100"), Quantity: d("1")}), ErrReference)

	require.NoError(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("100"), Quantity: d("10")}))
	// Closing a closed position is a logged no-op.
	require.NoError(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("101"), Quantity: d("10")}))
	p, _ = l.Position(p.ID)
	assertDec(t, "100", p.ClosePrice)
}

func TestPartialClosesConserveQuantity(t *testing.T) {
	t.Parallel()
	l, j := newLedger(t, "10000")
	p := openPosition(t, l, KindBuy, "100", "10", dp("90"), dp("120"))

	slices := []string{"1", "2.5", "0.5", "3"}
	closedSum := decimal.Zero
	for i, q := range slices {
		require.NoError(t, l.ClosePosition(CloseRequest{
			PositionID: p.ID,
			Price:      d("101"),
			Quantity:   d(q),
			Time:       t0.Add(time.Duration(i+1) * time.Minute),
			Reason:     "scale out",
		}))
		closedSum = closedSum.Add(d(q))

		cur, _ := l.Position(p.ID)
		assert.True(t, cur.Active())
		assert.True(t, closedSum.Add(cur.Quantity).Equal(cur.OriginalQuantity),
			"step %d: closed %s + remaining %s != %s", i, closedSum, cur.Quantity, cur.OriginalQuantity)
	}

	recs := j.positions(t)
	require.Len(t, recs, len(slices))
	for i, rec := range recs {
		assert.Equal(t, "scale out - Partial Close", rec.Reason)
		assertDec(t, slices[i], rec.Quantity)
		assert.False(t, rec.StopLoss.Valid)
		assert.False(t, rec.TakeProfit.Valid)
		assert.Equal(t, p.ID+int64(i)+1, rec.PositionID, "siblings take the next position ids")
	}

	// The remainder closes in place.
	require.NoError(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("101"), Quantity: d("3")}))
	cur, _ := l.Position(p.ID)
	assert.Equal(t, PositionClosed, cur.Status)
	assertDec(t, "3", cur.Quantity)
	assertDec(t, "10010", l.Account().Balance)
	assertDec(t, "10", l.Account().RealizedPnL)
}

func TestCloseWithoutIDTargetsOldestActive(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, "10000")
	first := openPosition(t, l, KindBuy, "100", "1", nil, nil)
	second := openPosition(t, l, KindBuy, "100", "1", nil, nil)

	require.NoError(t, l.ClosePosition(CloseRequest{Price: d("101"), Quantity: d("1")}))

	p, _ := l.Position(first.ID)
	assert.Equal(t, PositionClosed, p.Status)
	p, _ = l.Position(second.ID)
	assert.True(t, p.Active())

	require.NoError(t, l.ClosePosition(CloseRequest{Price: d("101"), Quantity: d("1")}))
	assert.Empty(t, l.ActivePositions())

	// Nothing left: logged no-op.
	require.NoError(t, l.ClosePosition(CloseRequest{Price: d("101"), Quantity: d("1")}))
}

func TestStopLossAndTakeProfitBuy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		price  string
		reason string
		close  string
	}{
		{"between levels stays active", "100", "", ""},
		{"touching stop loss", "95", ReasonStopLoss, "95"},
		{"gap through stop loss", "93", ReasonStopLoss, "95"},
		{"touching take profit", "110", ReasonTakeProfit, "110"},
		{"gap through take profit", "112", ReasonTakeProfit, "110"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, _ := newLedger(t, "10000")
			p := openPosition(t, l, KindBuy, "100", "10", dp("95"), dp("110"))

			l.Tick(d(tt.price), t0.Add(time.Minute))

			p, _ = l.Position(p.ID)
			if tt.reason == "" {
				assert.True(t, p.Active())
				assert.Empty(t, l.AutoOperations())
				return
			}
			assert.Equal(t, PositionClosed, p.Status)
			assert.Equal(t, tt.reason, p.Reason)
			assertDec(t, tt.close, p.ClosePrice)
			assert.Equal(t, t0.Add(time.Minute), p.CloseTime)
			require.Len(t, l.AutoOperations(), 1)
		})
	}
}

func TestStopLossAndTakeProfitSell(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, "10000")
	sl := openPosition(t, l, KindSell, "100", "10", dp("105"), dp("90"))
	tp := openPosition(t, l, KindSell, "100", "10", dp("120"), dp("95"))

	l.Tick(d("100"), t0.Add(time.Minute))
	assert.Len(t, l.ActivePositions(), 2)

	l.Tick(d("95"), t0.Add(2*time.Minute))
	p, _ := l.Position(tp.ID)
	assert.Equal(t, ReasonTakeProfit, p.Reason)
	assertDec(t, "50", p.ProfitLoss)

	l.Tick(d("106"), t0.Add(3*time.Minute))
	p, _ = l.Position(sl.ID)
	assert.Equal(t, ReasonStopLoss, p.Reason)
	assertDec(t, "-50", p.ProfitLoss)

	ops := l.AutoOperations()
	require.Len(t, ops, 2)
	assert.Equal(t, AutoTakeProfit, ops[0].Kind)
	assert.Equal(t, AutoStopLoss, ops[1].Kind)
}

func TestStopLossWinsWhenBothTrigger(t *testing.T) {
	t.Parallel()
	l, j := newLedger(t, "10000")
	p := openPosition(t, l, KindBuy, "100", "1", dp("95"), dp("110"))

	// Crossed levels can only come from a modify; stop loss still wins.
	require.NoError(t, l.ModifyPosition(p.ID, ModifyRequest{StopLoss: dp("105"), TakeProfit: dp("102")}))
	l.Tick(d("103"), t0.Add(time.Minute))

	p, _ = l.Position(p.ID)
	assert.Equal(t, ReasonStopLoss, p.Reason)
	assert.Len(t, j.positions(t), 1, "second rule must not close again")
}

func TestTickClosesEveryTriggeredPosition(t *testing.T) {
	t.Parallel()
	l, j := newLedger(t, "10000")
	for i := 0; i < 5; i++ {
		openPosition(t, l, KindBuy, "100", "1", dp("95"), nil)
	}

	l.Tick(d("94"), t0.Add(time.Minute))

	assert.Empty(t, l.ActivePositions())
	assert.Len(t, j.positions(t), 5)
	assertDec(t, "9975", l.Account().Balance)
}

func TestModifyPosition(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, "10000")
	a := openPosition(t, l, KindBuy, "100", "1", dp("95"), dp("110"))
	b := openPosition(t, l, KindBuy, "100", "1", nil, nil)

	require.NoError(t, l.ModifyPosition(a.ID, ModifyRequest{Price: dp("1"), TakeProfit: dp("115")}))
	p, _ := l.Position(a.ID)
	assertDec(t, "95", *p.StopLoss)
	assertDec(t, "115", *p.TakeProfit)
	assertDec(t, "100", p.OpenPrice)

	require.ErrorIs(t, l.ModifyPosition(a.ID, ModifyRequest{StopLoss: dp("-1")}), ErrValidation)
	require.ErrorIs(t, l.ModifyPosition(42, ModifyRequest{StopLoss: dp("90")}), ErrReference)

	// Zero id modifies every active position.
	require.NoError(t, l.ModifyPosition(0, ModifyRequest{StopLoss: dp("97")}))
	p, _ = l.Position(a.ID)
	assertDec(t, "97", *p.StopLoss)
	p, _ = l.Position(b.ID)
	assertDec(t, "97", *p.StopLoss)

	require.NoError(t, l.ClosePosition(CloseRequest{PositionID: b.ID, Price: d("100"), Quantity: d("1")}))
	require.NoError(t, l.ModifyPosition(b.ID, ModifyRequest{StopLoss: dp("99")}))
	p, _ = l.Position(b.ID)
	assertDec(t, "97", *p.StopLoss)
}

func TestJournalFailureKeepsLedgerState(t *testing.T) {
	t.Parallel()
	l, j := newLedger(t, "10000")
	p := openPosition(t, l, KindBuy, "100", "10", nil, nil)

	j.fail = true
	require.NoError(t, l.ClosePosition(CloseRequest{PositionID: p.ID, Price: d("105"), Quantity: d("4")}))
	require.NoError(t, l.Update(market.Quotes{"EUR_USD": {Symbol: "EUR_USD", Close: d("105")}}))

	p, _ = l.Position(p.ID)
	assertDec(t, "6", p.Quantity)
	assertDec(t, "10020", l.Account().Balance)
	assert.Len(t, l.Positions(), 2)
}
