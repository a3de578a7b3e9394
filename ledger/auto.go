package ledger

import "time"

// Kinds of operation the ledger performs on its own.
const (
	AutoStopLoss   = "STOP_LOSS"
	AutoTakeProfit = "TAKE_PROFIT"
	AutoTimeout    = "TIMEOUT"
)

// AutoOperation records a close or cancel triggered by a tick rather than
// by a caller.
type AutoOperation struct {
	Time       time.Time
	Kind       string
	OrderID    int64
	PositionID int64
	Detail     string
}
