package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalConstructors(t *testing.T) {
	t.Parallel()

	_, err := NewBuySignal("", d("1"), nil, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewBuySignal("X", d("0"), nil, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewBuySignal("X", d("1"), dp("110"), dp("100"))
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewSellSignal("X", d("1"), dp("90"), dp("100"))
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewSellSignal("X", d("1"), dp("-1"), nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewCloseSignal(-1, nil, "")
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewCloseSignal(1, dp("0"), "")
	require.ErrorIs(t, err, ErrValidation)

	buy, err := NewBuySignal("X", d("2"), dp("90"), dp("110"))
	require.NoError(t, err)
	assert.Equal(t, "X", buy.Symbol)
	assertDec(t, "90", *buy.StopLoss)

	sell, err := NewSellSignal("X", d("2"), dp("110"), dp("90"))
	require.NoError(t, err)
	assertDec(t, "90", *sell.TakeProfit)

	cl, err := NewCloseSignal(0, nil, "exit")
	require.NoError(t, err)
	assert.Nil(t, cl.Quantity)
}

func TestApplySignals(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, "10000")

	buy, err := NewBuySignal("EUR_USD", d("10"), dp("95"), dp("110"))
	require.NoError(t, err)
	orderID, err := l.Apply(buy, d("100"), t0)
	require.NoError(t, err)

	o, _ := l.Order(orderID)
	require.Equal(t, OrderExecuted, o.Status, "a signal without a limit fills at the given price")
	p, _ := l.Position(o.PositionID)
	assertDec(t, "100", p.OpenPrice)
	assertDec(t, "95", *p.StopLoss)

	// Stops are checked against the fill price.
	bad, err := NewBuySignal("EUR_USD", d("1"), dp("99"), nil)
	require.NoError(t, err)
	_, err = l.Apply(bad, d("98"), t0)
	require.ErrorIs(t, err, ErrValidation)

	half := d("4")
	cl, err := NewCloseSignal(p.ID, &half, "trim")
	require.NoError(t, err)
	posID, err := l.Apply(cl, d("103"), t0)
	require.NoError(t, err)
	assert.Equal(t, p.ID, posID)
	p, _ = l.Position(p.ID)
	assertDec(t, "6", p.Quantity)

	all, err := NewCloseSignal(0, nil, "")
	require.NoError(t, err)
	_, err = l.Apply(all, d("104"), t0)
	require.NoError(t, err)
	assert.Empty(t, l.ActivePositions())
	assertDec(t, "10036", l.Account().Balance)
}

func TestApplyLimitSignalRests(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t, "10000")

	sell, err := NewSellSignal("EUR_USD", d("1"), nil, nil)
	require.NoError(t, err)
	sell.Price = dp("105")

	id, err := l.Apply(sell, d("100"), t0)
	require.NoError(t, err)
	o, _ := l.Order(id)
	assert.Equal(t, OrderPending, o.Status)

	l.TickSymbol("EUR_USD", d("105"), t0.Add(1))
	o, _ = l.Order(id)
	assert.Equal(t, OrderExecuted, o.Status)
}
