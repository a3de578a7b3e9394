package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/journal"
)

type OrderKind int

const (
	KindBuy OrderKind = iota + 1
	KindSell
	KindModify
	KindClose
)

func (k OrderKind) String() string {
	switch k {
	case KindBuy:
		return "BUY"
	case KindSell:
		return "SELL"
	case KindModify:
		return "MODIFY"
	case KindClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("OrderKind(%d)", int(k))
	}
}

type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderExecuted
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "PENDING"
	case OrderExecuted:
		return "EXECUTED"
	case OrderCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
}

// Order is an instruction waiting for a price. Buy and Sell orders open a
// position when executed; Modify and Close orders act on the position
// named by PositionID.
type Order struct {
	ID         int64
	Kind       OrderKind
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Symbol     string
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Status     OrderStatus
	MaxActive  *time.Duration
	CreatedAt  time.Time
	PositionID int64
	Reason     string
}

// OrderRequest holds the fields for OrderBook.Create. A zero CreatedAt
// takes the ledger clock.
type OrderRequest struct {
	Kind       OrderKind
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Symbol     string
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	MaxActive  *time.Duration
	CreatedAt  time.Time
	PositionID int64
}

// OrderUpdate lists the fields to change on a pending order. Nil fields
// are left alone.
type OrderUpdate struct {
	Price      *decimal.Decimal
	Quantity   *decimal.Decimal
	Symbol     *string
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	MaxActive  *time.Duration
}

// Terminal reports whether the order has executed or been cancelled.
func (o Order) Terminal() bool {
	return o.Status != OrderPending
}

func (o Order) clone() Order {
	o.StopLoss = copyDec(o.StopLoss)
	o.TakeProfit = copyDec(o.TakeProfit)
	if o.MaxActive != nil {
		d := *o.MaxActive
		o.MaxActive = &d
	}
	return o
}

func (o Order) record() journal.OrderRecord {
	rec := journal.OrderRecord{
		OrderID:    o.ID,
		Kind:       o.Kind.String(),
		Status:     o.Status.String(),
		Symbol:     o.Symbol,
		Price:      o.Price,
		Quantity:   o.Quantity,
		StopLoss:   nullDec(o.StopLoss),
		TakeProfit: nullDec(o.TakeProfit),
		CreatedAt:  o.CreatedAt,
		PositionID: o.PositionID,
		Reason:     o.Reason,
	}
	if o.MaxActive != nil {
		rec.MaxActive = *o.MaxActive
	}
	return rec
}

// validateOrder applies the creation rules. Edit runs the same checks
// against the merged fields.
func validateOrder(kind OrderKind, price, qty decimal.Decimal, sl, tp *decimal.Decimal, maxActive *time.Duration) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", ErrValidation, price)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrValidation, qty)
	}
	if maxActive != nil && *maxActive <= 0 {
		return fmt.Errorf("%w: max active duration must be positive, got %s", ErrValidation, *maxActive)
	}
	switch kind {
	case KindBuy:
		return validateStops(SideBuy, price, sl, tp)
	case KindSell:
		return validateStops(SideSell, price, sl, tp)
	case KindModify, KindClose:
		if sl != nil && !sl.IsPositive() {
			return fmt.Errorf("%w: stop loss must be positive, got %s", ErrValidation, sl)
		}
		if tp != nil && !tp.IsPositive() {
			return fmt.Errorf("%w: take profit must be positive, got %s", ErrValidation, tp)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown order kind %d", ErrValidation, int(kind))
	}
}

// validateStops checks that stop loss and take profit bracket the price:
// SL < price < TP for a buy, TP < price < SL for a sell.
func validateStops(side Side, price decimal.Decimal, sl, tp *decimal.Decimal) error {
	switch side {
	case SideBuy:
		if sl != nil && sl.GreaterThanOrEqual(price) {
			return fmt.Errorf("%w: buy stop loss %s must be below price %s", ErrValidation, sl, price)
		}
		if tp != nil && tp.LessThanOrEqual(price) {
			return fmt.Errorf("%w: buy take profit %s must be above price %s", ErrValidation, tp, price)
		}
	case SideSell:
		if sl != nil && sl.LessThanOrEqual(price) {
			return fmt.Errorf("%w: sell stop loss %s must be above price %s", ErrValidation, sl, price)
		}
		if tp != nil && tp.GreaterThanOrEqual(price) {
			return fmt.Errorf("%w: sell take profit %s must be below price %s", ErrValidation, tp, price)
		}
	}
	if sl != nil && !sl.IsPositive() {
		return fmt.Errorf("%w: stop loss must be positive, got %s", ErrValidation, sl)
	}
	if tp != nil && !tp.IsPositive() {
		return fmt.Errorf("%w: take profit must be positive, got %s", ErrValidation, tp)
	}
	return nil
}

func copyDec(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func nullDec(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decField(key string, d *decimal.Decimal) zap.Field {
	if d == nil {
		return zap.Skip()
	}
	return zap.Stringer(key, *d)
}
