package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatPositionOrg renders a closed position as an Org-mode block. The
// structured facts go in a PROPERTIES drawer; the narrative headings are
// left empty for the reader to fill in.
func FormatPositionOrg(p PositionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Position: %s %s #%d (%s)\n", p.Side, p.Symbol, p.PositionID, shortID(p.RunID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", p.RunID)
	fmt.Fprintf(&b, ":POSITION_ID: %d\n", p.PositionID)
	fmt.Fprintf(&b, ":SIDE: %s\n", p.Side)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", p.Symbol)
	fmt.Fprintf(&b, ":QUANTITY: %s\n", p.Quantity)
	fmt.Fprintf(&b, ":OPEN_PRICE: %s\n", p.OpenPrice)
	fmt.Fprintf(&b, ":CLOSE_PRICE: %s\n", p.ClosePrice)
	if p.StopLoss.Valid {
		fmt.Fprintf(&b, ":STOP_LOSS: %s\n", p.StopLoss.Decimal)
	}
	if p.TakeProfit.Valid {
		fmt.Fprintf(&b, ":TAKE_PROFIT: %s\n", p.TakeProfit.Decimal)
	}
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", p.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", p.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":PROFIT_LOSS: %s\n", p.ProfitLoss.StringFixed(2))
	fmt.Fprintf(&b, ":REASON: %s\n", p.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatPositionsOrg renders multiple positions separated by blank lines.
func FormatPositionsOrg(positions []PositionRecord) string {
	var b strings.Builder
	for i, p := range positions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatPositionOrg(p))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
