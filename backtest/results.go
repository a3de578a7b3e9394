package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/ledger"
)

// Result is a lightweight summary of a replay run.
type Result struct {
	RunID   string
	Balance decimal.Decimal
	Equity  decimal.Decimal

	Statistics ledger.Statistics

	Quotes         int
	AutoOperations int
	// Signals refused by the risk policy.
	Blocked int

	Start time.Time
	End   time.Time
}

func PrintResult(w io.Writer, r Result) {
	st := r.Statistics

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Replay Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	if !r.Start.IsZero() {
		fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Quotes:        %d\n", r.Quotes)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Position Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Positions:     %d\n", st.TotalPositions)
	fmt.Fprintf(w, "Closed:        %d\n", st.ClosedPositions)
	fmt.Fprintf(w, "Active:        %d\n", st.ActivePositions)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", st.WinRate*100)
	fmt.Fprintf(w, "Avg Profit:    %s\n", st.AverageProfit.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:      %s\n", st.AverageLoss.StringFixed(2))
	fmt.Fprintf(w, "Auto Ops:      %d\n", r.AutoOperations)
	if r.Blocked > 0 {
		fmt.Fprintf(w, "Blocked:       %d\n", r.Blocked)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", st.InitialBalance.StringFixed(2))
	fmt.Fprintf(w, "End Balance:   %s\n", r.Balance.StringFixed(2))
	fmt.Fprintf(w, "Equity:        %s\n", r.Equity.StringFixed(2))
	fmt.Fprintf(w, "Net P/L:       %s\n", st.TotalProfitLoss.StringFixed(2))
	if st.InitialBalance.IsPositive() {
		ret := r.Balance.Sub(st.InitialBalance).Div(st.InitialBalance).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(w, "Return:        %s%%\n", ret.StringFixed(2))
	}

	if st.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", st.ProfitFactor)
	}
	if st.MaxDrawdown.IsPositive() {
		fmt.Fprintf(w, "Max Drawdown:  %s\n", st.MaxDrawdown.StringFixed(2))
	}

	fmt.Fprintln(w)
}
