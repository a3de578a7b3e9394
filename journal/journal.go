// Package journal is the append-only store for terminal orders, closed
// positions and equity snapshots produced by a ledger run.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord is an order that reached a terminal status.
type OrderRecord struct {
	RunID      string              `json:"run_id"`
	OrderID    int64               `json:"order_id"`
	Kind       string              `json:"kind"`
	Status     string              `json:"status"`
	Symbol     string              `json:"symbol"`
	Price      decimal.Decimal     `json:"price"`
	Quantity   decimal.Decimal     `json:"quantity"`
	StopLoss   decimal.NullDecimal `json:"stop_loss"`
	TakeProfit decimal.NullDecimal `json:"take_profit"`
	MaxActive  time.Duration       `json:"max_active"`
	CreatedAt  time.Time           `json:"created_at"`
	PositionID int64               `json:"position_id"`
	Reason     string              `json:"reason"`
}

// PositionRecord is a closed position, including partial-close slices.
type PositionRecord struct {
	RunID      string              `json:"run_id"`
	PositionID int64               `json:"position_id"`
	Side       string              `json:"side"`
	Symbol     string              `json:"symbol"`
	OpenPrice  decimal.Decimal     `json:"open_price"`
	Quantity   decimal.Decimal     `json:"quantity"`
	StopLoss   decimal.NullDecimal `json:"stop_loss"`
	TakeProfit decimal.NullDecimal `json:"take_profit"`
	OpenTime   time.Time           `json:"open_time"`
	ClosePrice decimal.Decimal     `json:"close_price"`
	CloseTime  time.Time           `json:"close_time"`
	ProfitLoss decimal.Decimal     `json:"profit_loss"`
	Reason     string              `json:"reason"`
}

// EquitySnapshot is the account state after an update.
type EquitySnapshot struct {
	RunID       string              `json:"run_id"`
	Time        time.Time           `json:"time"`
	Balance     decimal.Decimal     `json:"balance"`
	Equity      decimal.Decimal     `json:"equity"`
	MarginUsed  decimal.Decimal     `json:"margin_used"`
	FreeMargin  decimal.Decimal     `json:"free_margin"`
	MarginLevel decimal.NullDecimal `json:"margin_level"`
}

// Journal is the persistence sink a ledger writes to. Appends carry no
// deduplication key: a retried append may store the same record twice.
// Reads and Clear are scoped to the journal's run id.
type Journal interface {
	RunID() string
	RecordOrder(OrderRecord) error
	RecordPosition(PositionRecord) error
	RecordEquity(EquitySnapshot) error
	Orders() ([]OrderRecord, error)
	Positions() ([]PositionRecord, error)
	Equity() ([]EquitySnapshot, error)
	Clear() error
	Close() error
}
