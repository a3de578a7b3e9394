package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/journal"
)

// Statistics summarizes a run. Closed counts include each partial-close
// slice as its own position.
type Statistics struct {
	TotalPositions  int             `json:"total_positions"`
	ClosedPositions int             `json:"closed_positions"`
	ActivePositions int             `json:"active_positions"`
	TotalProfitLoss decimal.Decimal `json:"total_profit_loss"`
	WinRate         float64         `json:"win_rate"`
	ProfitFactor    float64         `json:"profit_factor"`
	AverageProfit   decimal.Decimal `json:"average_profit"`
	AverageLoss     decimal.Decimal `json:"average_loss"`
	MaxDrawdown     decimal.Decimal `json:"max_drawdown"`
	InitialBalance  decimal.Decimal `json:"initial_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
}

// ComputeStatistics builds Statistics from closed position records, the
// number of positions still active and the account state.
func ComputeStatistics(closed []journal.PositionRecord, active int, acct Account) Statistics {
	st := Statistics{
		ClosedPositions: len(closed),
		ActivePositions: active,
		TotalPositions:  len(closed) + active,
		MaxDrawdown:     acct.MaxDrawdown,
		InitialBalance:  acct.InitialBalance,
		CurrentBalance:  acct.Balance,
	}

	var grossProfit, grossLoss decimal.Decimal
	wins, losses := 0, 0
	for _, p := range closed {
		st.TotalProfitLoss = st.TotalProfitLoss.Add(p.ProfitLoss)
		switch {
		case p.ProfitLoss.IsPositive():
			wins++
			grossProfit = grossProfit.Add(p.ProfitLoss)
		case p.ProfitLoss.IsNegative():
			losses++
			grossLoss = grossLoss.Add(p.ProfitLoss.Neg())
		}
	}

	if len(closed) > 0 {
		st.WinRate = float64(wins) / float64(len(closed))
	}
	if wins > 0 {
		st.AverageProfit = grossProfit.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		st.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(losses)))
	}
	if grossLoss.IsPositive() {
		st.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	}
	return st
}
