package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/market"
)

func newAccount(t *testing.T, balance, leverage string, limits Limits) *Account {
	t.Helper()
	a, err := NewAccount(AccountConfig{ID: "acct-1", Balance: d(balance), Leverage: d(leverage), Limits: limits}, nil)
	require.NoError(t, err)
	return a
}

func active(side Side, symbol, open, qty string) Position {
	return Position{
		ID:               1,
		Side:             side,
		Symbol:           symbol,
		OpenPrice:        d(open),
		Quantity:         d(qty),
		OriginalQuantity: d(qty),
		Status:           PositionActive,
	}
}

func bidAsk(symbol, bid, ask string) market.Quote {
	return market.Quote{Symbol: symbol, Bid: d(bid), Ask: d(ask)}
}

func TestNewAccountDefaults(t *testing.T) {
	t.Parallel()

	a, err := NewAccount(AccountConfig{Balance: d("1000")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "USD", a.Currency)
	assertDec(t, "1", a.Leverage)
	assertDec(t, "1000", a.Equity)
	assertDec(t, "1000", a.FreeMargin)
	assert.Nil(t, a.MarginLevel)

	_, err = NewAccount(AccountConfig{Balance: d("-1")}, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewAccount(AccountConfig{Balance: d("1"), Leverage: d("-2")}, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestAccountUpdateMissingPrice(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "10000", "1", Limits{})
	positions := []Position{active(SideBuy, "EUR_USD", "100", "10"), active(SideBuy, "GBP_USD", "100", "10")}

	require.NoError(t, a.Update(positions[:1], market.Quotes{"EUR_USD": bidAsk("EUR_USD", "101", "102")}))
	before := a.Snapshot()

	err := a.Update(positions, market.Quotes{"EUR_USD": bidAsk("EUR_USD", "90", "91")})
	require.ErrorIs(t, err, ErrMissingPrice)
	assert.Equal(t, before, a.Snapshot(), "a failed update must not mutate the account")

	// A quote with only one side of the book is not usable either.
	err = a.Update(positions, market.Quotes{
		"EUR_USD": bidAsk("EUR_USD", "90", "91"),
		"GBP_USD": {Symbol: "GBP_USD", Bid: d("1.2")},
	})
	require.ErrorIs(t, err, ErrMissingPrice)
}

func TestAccountUpdateMarksToMarket(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "10000", "10", Limits{})

	long := active(SideBuy, "EUR_USD", "100", "10")
	short := active(SideSell, "GBP_USD", "200", "5")
	short.ID = 2
	closeOnly := active(SideBuy, "SPX", "50", "2")
	closeOnly.ID = 3

	quotes := market.Quotes{
		"EUR_USD": bidAsk("EUR_USD", "104", "106"),
		"GBP_USD": bidAsk("GBP_USD", "190", "192"),
		"SPX":     {Symbol: "SPX", Close: d("55")},
	}
	require.NoError(t, a.Update([]Position{long, short, closeOnly}, quotes))

	// long at bid: 4*10, short at ask: 8*5, close only: 5*2
	assertDec(t, "90", a.UnrealizedPnL)
	assertDec(t, "10090", a.Equity)
	assertDec(t, "2100", a.Exposure)
	// margin: long at ask 106*10/10, short at bid 190*5/10, close 55*2/10
	assertDec(t, "212", a.MarginUsed)
	assertDec(t, "9878", a.FreeMargin)
	require.NotNil(t, a.MarginLevel)
	assertDec(t, "4759.43396226", *a.MarginLevel)
	assert.False(t, a.MarginCall)
	assert.False(t, a.StopOut)
}

func TestAccountUnrealizedSumsEveryPosition(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})

	var positions []Position
	for i := int64(1); i <= 4; i++ {
		p := active(SideBuy, "EUR_USD", "10", "1")
		p.ID = i
		positions = append(positions, p)
	}
	require.NoError(t, a.Update(positions, market.Quotes{"EUR_USD": {Symbol: "EUR_USD", Close: d("12")}}))
	assertDec(t, "8", a.UnrealizedPnL)
}

func TestAccountExplicitMargin(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})
	p := active(SideBuy, "EUR_USD", "10", "1")
	p.Margin = dp("250")

	require.NoError(t, a.Update([]Position{p}, market.Quotes{"EUR_USD": bidAsk("EUR_USD", "10", "10")}))
	assertDec(t, "250", a.MarginUsed)
	assertDec(t, "400", *a.MarginLevel)
}

func TestAccountMarginFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		bid        string
		marginCall bool
		stopOut    bool
	}{
		{"healthy", "100", false, false},
		{"margin call", "94", true, false},
		{"stop out", "92", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// 100 units at 100 with leverage 20 needs 500 margin.
			a := newAccount(t, "1000", "20", Limits{})
			p := active(SideBuy, "X", "100", "100")
			quote := market.Quote{Symbol: "X", Bid: d(tt.bid), Ask: d("100")}

			require.NoError(t, a.Update([]Position{p}, market.Quotes{"X": quote}))
			assert.Equal(t, tt.marginCall, a.MarginCall)
			assert.Equal(t, tt.stopOut, a.StopOut)
		})
	}
}

func TestAccountMarginLevelUndefinedWithoutMargin(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})
	require.NoError(t, a.Update(nil, nil))
	assert.Nil(t, a.MarginLevel)
	assert.False(t, a.MarginCall)
	assertDec(t, "1000", a.FreeMargin)
}

func TestAccountRealizeAndMaxDrawdown(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})

	steps := []struct {
		pnl, balance, peak, maxDD string
	}{
		{"100", "1100", "1100", "0"},
		{"-300", "800", "1100", "300"},
		{"150", "950", "1100", "300"},
		{"-200", "750", "1100", "350"},
		{"500", "1250", "1250", "350"},
	}
	for _, s := range steps {
		a.Realize(d(s.pnl), nil, nil)
		assertDec(t, s.balance, a.Balance)
		assertDec(t, s.balance, a.Equity)
		assertDec(t, s.peak, a.PeakEquity)
		assertDec(t, s.maxDD, a.MaxDrawdown)
	}
	assertDec(t, "250", a.RealizedPnL)
}

func TestAccountRealizeWithoutQuoteKeepsPeak(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})
	require.NoError(t, a.Update([]Position{active(SideBuy, "X", "10", "10")}, market.Quotes{"X": bidAsk("X", "11", "11")}))
	assertDec(t, "1010", a.PeakEquity)

	a.Realize(d("5"), []Position{active(SideBuy, "Y", "10", "1")}, market.Quotes{})
	assertDec(t, "1005", a.Balance)
	assertDec(t, "1005", a.Equity)
	assert.True(t, a.UnrealizedPnL.IsZero())
	assertDec(t, "1010", a.PeakEquity)
	assert.True(t, a.MaxDrawdown.IsZero())
}

func TestAccountDailyDrawdownAndLimits(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{DailyLoss: d("100"), MaxDrawdownPercent: d("20")})

	a.Realize(d("-60"), nil, nil)
	assertDec(t, "60", a.DailyDrawdownFrom(d("1000")))
	assert.False(t, a.DailyLossBreached)

	a.Realize(d("-50"), nil, nil)
	assertDec(t, "110", a.DailyDrawdownFrom(d("1000")))
	assert.True(t, a.DailyLossBreached)
	assert.False(t, a.DrawdownBreached)

	a.ResetDaily()
	assert.False(t, a.DailyLossBreached)
	assert.True(t, a.DailyDrawdown.IsZero())

	a.Realize(d("-100"), nil, nil)
	assert.True(t, a.DrawdownBreached, "21 percent below peak")
}

func TestAccountSwapAndCommissionAccumulate(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})
	a.AddSwap(d("-1.5"))
	a.AddSwap(d("-0.5"))
	a.AddCommission(d("2"))

	assertDec(t, "-2", a.Swap)
	assertDec(t, "2", a.Commission)
	assertDec(t, "1000", a.Balance)
}

func TestSessionsAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour int
		want []Session
	}{
		{0, []Session{SessionSydney, SessionTokyo}},
		{7, []Session{SessionTokyo, SessionLondon}},
		{10, []Session{SessionLondon}},
		{13, []Session{SessionLondon, SessionNewYork}},
		{21, []Session{SessionSydney}},
	}
	for _, tt := range tests {
		at := time.Date(2024, 1, 2, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.want, SessionsAt(at), "hour %d", tt.hour)
	}
}

func TestAccountTrackSession(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "1", Limits{})

	a.TrackSession(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), d("5"))
	a.TrackSession(time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), d("-2"))

	st := a.Sessions[SessionLondon]
	assert.Equal(t, 2, st.Trades)
	assertDec(t, "5", st.Profit)
	assertDec(t, "2", st.Loss)
	_, ok := a.Sessions[SessionTokyo]
	assert.False(t, ok)
}

func TestAccountReset(t *testing.T) {
	t.Parallel()
	a := newAccount(t, "1000", "2", Limits{})
	require.NoError(t, a.Update([]Position{active(SideBuy, "X", "10", "10")}, market.Quotes{"X": bidAsk("X", "9", "11")}))
	a.Realize(d("-40"), nil, nil)
	a.AddCommission(d("1"))
	a.TrackSession(t0, decimal.NewFromInt(-40))

	a.Reset()
	assertDec(t, "1000", a.Balance)
	assertDec(t, "1000", a.Equity)
	assert.True(t, a.MaxDrawdown.IsZero())
	assert.True(t, a.Commission.IsZero())
	assert.Nil(t, a.MarginLevel)
	assert.Empty(t, a.Sessions)
	assertDec(t, "2", a.Leverage)
}
