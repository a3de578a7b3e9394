package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/journal"
)

type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

type PositionStatus int

const (
	PositionActive PositionStatus = iota
	PositionClosed
)

func (s PositionStatus) String() string {
	if s == PositionClosed {
		return "CLOSED"
	}
	return "ACTIVE"
}

// Position is an open or closed holding. Once Closed none of its fields
// change.
type Position struct {
	ID        int64
	Side      Side
	Symbol    string
	OpenPrice decimal.Decimal
	Quantity  decimal.Decimal

	// OriginalQuantity is the quantity at open. Partial closes reduce
	// Quantity but never this.
	OriginalQuantity decimal.Decimal

	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal

	// Margin overrides the computed margin requirement when set.
	Margin *decimal.Decimal

	OpenTime   time.Time
	Status     PositionStatus
	ClosePrice decimal.Decimal
	CloseTime  time.Time
	Reason     string
	ProfitLoss decimal.Decimal
}

func (p Position) Active() bool { return p.Status == PositionActive }

// PnLAt is the profit or loss of the position's current quantity at price.
func (p Position) PnLAt(price decimal.Decimal) decimal.Decimal {
	return profitLoss(p.Side, p.OpenPrice, price, p.Quantity)
}

func profitLoss(side Side, open, close, qty decimal.Decimal) decimal.Decimal {
	if side == SideSell {
		return open.Sub(close).Mul(qty)
	}
	return close.Sub(open).Mul(qty)
}

func (p Position) clone() Position {
	p.StopLoss = copyDec(p.StopLoss)
	p.TakeProfit = copyDec(p.TakeProfit)
	p.Margin = copyDec(p.Margin)
	return p
}

func (p Position) record() journal.PositionRecord {
	return journal.PositionRecord{
		PositionID: p.ID,
		Side:       p.Side.String(),
		Symbol:     p.Symbol,
		OpenPrice:  p.OpenPrice,
		Quantity:   p.Quantity,
		StopLoss:   nullDec(p.StopLoss),
		TakeProfit: nullDec(p.TakeProfit),
		OpenTime:   p.OpenTime,
		ClosePrice: p.ClosePrice,
		CloseTime:  p.CloseTime,
		ProfitLoss: p.ProfitLoss,
		Reason:     p.Reason,
	}
}
