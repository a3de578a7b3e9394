package strategies

import (
	"context"

	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/market"
)

// Noop never trades.
type Noop struct{}

func (Noop) OnQuote(context.Context, market.Quote, View) ([]ledger.Signal, error) {
	return nil, nil
}
