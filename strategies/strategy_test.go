package strategies

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/market"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    any
		wantErr bool
	}{
		{"noop", Noop{}, false},
		{"None", Noop{}, false},
		{" open-once ", &OpenOnce{}, false},
		{"ema-cross", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := ByName(tt.name, Params{Symbol: "EUR_USD", Quantity: d("1000")})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "noop")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestNewOpenOnceValidation(t *testing.T) {
	t.Parallel()

	_, err := NewOpenOnce(Params{Quantity: d("1")})
	assert.Error(t, err)
	_, err = NewOpenOnce(Params{Symbol: "X"})
	assert.Error(t, err)
	_, err = NewOpenOnce(Params{Symbol: "X", Quantity: d("1"), Side: "sideways"})
	assert.Error(t, err)
	_, err = NewOpenOnce(Params{Symbol: "X", Quantity: d("1"), StopDistance: d("-1")})
	assert.Error(t, err)
}

func TestOpenOnceBuy(t *testing.T) {
	t.Parallel()
	s, err := NewOpenOnce(Params{Symbol: "EUR_USD", Quantity: d("1000"), StopDistance: d("0.002"), TargetDistance: d("0.004")})
	require.NoError(t, err)

	ctx := context.Background()
	sigs, err := s.OnQuote(ctx, market.Quote{Symbol: "GBP_USD", Close: d("1.25")}, nil)
	require.NoError(t, err)
	assert.Empty(t, sigs, "other symbols are ignored")

	sigs, err = s.OnQuote(ctx, market.Quote{Symbol: "EUR_USD", Bid: d("1.0850"), Ask: d("1.0852")}, nil)
	require.NoError(t, err)
	require.Len(t, sigs, 1)

	buy, ok := sigs[0].(ledger.BuySignal)
	require.True(t, ok)
	assert.True(t, buy.Quantity.Equal(d("1000")))
	assert.True(t, buy.StopLoss.Equal(d("1.0831")))
	assert.True(t, buy.TakeProfit.Equal(d("1.0891")))

	sigs, err = s.OnQuote(ctx, market.Quote{Symbol: "EUR_USD", Close: d("1.09")}, nil)
	require.NoError(t, err)
	assert.Empty(t, sigs, "opens only once")
}

func TestOpenOnceSell(t *testing.T) {
	t.Parallel()
	s, err := NewOpenOnce(Params{Symbol: "X", Side: "sell", Quantity: d("2"), StopDistance: d("5")})
	require.NoError(t, err)

	sigs, err := s.OnQuote(context.Background(), market.Quote{Symbol: "X", Close: d("100")}, nil)
	require.NoError(t, err)
	require.Len(t, sigs, 1)

	sell, ok := sigs[0].(ledger.SellSignal)
	require.True(t, ok)
	assert.True(t, sell.StopLoss.Equal(d("105")))
	assert.Nil(t, sell.TakeProfit)
}

func TestNoop(t *testing.T) {
	t.Parallel()
	sigs, err := Noop{}.OnQuote(context.Background(), market.Quote{Symbol: "X", Close: d("1")}, nil)
	require.NoError(t, err)
	assert.Nil(t, sigs)
}

func TestRegister(t *testing.T) {
	Register("Custom-Test", func(Params) (Strategy, error) { return Noop{}, nil })
	s, err := ByName("custom-test", Params{})
	require.NoError(t, err)
	assert.Equal(t, Noop{}, s)
	assert.Contains(t, Names(), "custom-test")
}

type fakeView struct{ equity decimal.Decimal }

func (fakeView) ActivePositions() []ledger.Position { return nil }
func (v fakeView) Account() ledger.Account         { return ledger.Account{Equity: v.equity} }

func TestOpenOnceRiskSizing(t *testing.T) {
	t.Parallel()

	_, err := NewOpenOnce(Params{Symbol: "EUR_USD", RiskPercent: d("0.01")})
	assert.ErrorContains(t, err, "stop distance")

	s, err := NewOpenOnce(Params{
		Symbol:       "EUR_USD",
		StopDistance: d("0.0020"),
		RiskPercent:  d("0.01"),
		QuantityStep: d("1000"),
	})
	require.NoError(t, err)

	sigs, err := s.OnQuote(context.Background(), market.Quote{Symbol: "EUR_USD", Close: d("1.1000")}, fakeView{equity: d("10000")})
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	buy := sigs[0].(ledger.BuySignal)
	assert.True(t, d("50000").Equal(buy.Quantity), "qty %s", buy.Quantity)
	assert.True(t, d("1.098").Equal(*buy.StopLoss))
}
