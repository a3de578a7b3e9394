package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a trading decision produced by a strategy. The concrete types
// are BuySignal, SellSignal and CloseSignal; build them with the New
// functions so they are checked before reaching the ledger.
type Signal interface {
	signal()
}

// BuySignal opens a long position. A nil Price fills at the price passed
// to Ledger.Apply; otherwise it rests as a limit order.
type BuySignal struct {
	Symbol     string
	Quantity   decimal.Decimal
	Price      *decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	MaxActive  *time.Duration
}

// SellSignal opens a short position, with the same fill rules as
// BuySignal.
type SellSignal struct {
	Symbol     string
	Quantity   decimal.Decimal
	Price      *decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	MaxActive  *time.Duration
}

// CloseSignal closes a position. PositionID 0 targets the oldest active
// position; a nil Quantity closes everything it holds.
type CloseSignal struct {
	PositionID int64
	Quantity   *decimal.Decimal
	Reason     string
}

func (BuySignal) signal()   {}
func (SellSignal) signal()  {}
func (CloseSignal) signal() {}

func NewBuySignal(symbol string, qty decimal.Decimal, sl, tp *decimal.Decimal) (BuySignal, error) {
	if err := checkOpenSignal(SideBuy, symbol, qty, sl, tp); err != nil {
		return BuySignal{}, err
	}
	return BuySignal{Symbol: symbol, Quantity: qty, StopLoss: copyDec(sl), TakeProfit: copyDec(tp)}, nil
}

func NewSellSignal(symbol string, qty decimal.Decimal, sl, tp *decimal.Decimal) (SellSignal, error) {
	if err := checkOpenSignal(SideSell, symbol, qty, sl, tp); err != nil {
		return SellSignal{}, err
	}
	return SellSignal{Symbol: symbol, Quantity: qty, StopLoss: copyDec(sl), TakeProfit: copyDec(tp)}, nil
}

func NewCloseSignal(positionID int64, qty *decimal.Decimal, reason string) (CloseSignal, error) {
	if positionID < 0 {
		return CloseSignal{}, fmt.Errorf("%w: position id must not be negative, got %d", ErrValidation, positionID)
	}
	if qty != nil && !qty.IsPositive() {
		return CloseSignal{}, fmt.Errorf("%w: close quantity must be positive, got %s", ErrValidation, qty)
	}
	return CloseSignal{PositionID: positionID, Quantity: copyDec(qty), Reason: reason}, nil
}

// checkOpenSignal validates what can be known without a price. The stops
// are checked against the fill price when the signal is applied.
func checkOpenSignal(side Side, symbol string, qty decimal.Decimal, sl, tp *decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("%w: signal symbol is required", ErrValidation)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: signal quantity must be positive, got %s", ErrValidation, qty)
	}
	if sl != nil && !sl.IsPositive() {
		return fmt.Errorf("%w: stop loss must be positive, got %s", ErrValidation, sl)
	}
	if tp != nil && !tp.IsPositive() {
		return fmt.Errorf("%w: take profit must be positive, got %s", ErrValidation, tp)
	}
	if sl != nil && tp != nil {
		if side == SideBuy && !sl.LessThan(*tp) {
			return fmt.Errorf("%w: buy stop loss %s must be below take profit %s", ErrValidation, sl, tp)
		}
		if side == SideSell && !tp.LessThan(*sl) {
			return fmt.Errorf("%w: sell take profit %s must be below stop loss %s", ErrValidation, tp, sl)
		}
	}
	return nil
}
