package market

import (
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Quote is one price update for a symbol. A quote carries either a bid/ask
// pair, a close price, or both.
type Quote struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Close  decimal.Decimal `json:"close"`
	Time   time.Time       `json:"time"`
}

// HasBidAsk reports whether both sides of the book are present.
func (q Quote) HasBidAsk() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive()
}

// HasClose reports whether a close price is present.
func (q Quote) HasClose() bool {
	return q.Close.IsPositive()
}

// Valid is true when the quote can price a position.
func (q Quote) Valid() bool {
	return q.HasBidAsk() || q.HasClose()
}

func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(two)
}

func (q Quote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// Last is the single price used to drive order and stop evaluation:
// the close when present, otherwise the mid.
func (q Quote) Last() decimal.Decimal {
	if q.HasClose() {
		return q.Close
	}
	return q.Mid()
}

// Quotes maps a symbol to its latest quote.
type Quotes map[string]Quote
