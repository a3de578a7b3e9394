package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is a major forex trading session.
type Session string

const (
	SessionSydney  Session = "Sydney"
	SessionTokyo   Session = "Tokyo"
	SessionLondon  Session = "London"
	SessionNewYork Session = "NewYork"
)

// Session hours in UTC, [open, close). Sydney wraps midnight.
var sessionHours = []struct {
	session     Session
	open, close int
}{
	{SessionSydney, 21, 6},
	{SessionTokyo, 0, 9},
	{SessionLondon, 7, 16},
	{SessionNewYork, 12, 21},
}

// SessionStats accumulates closes that happened during a session.
type SessionStats struct {
	Trades int
	Profit decimal.Decimal
	Loss   decimal.Decimal
}

// SessionsAt returns the sessions open at t. Overlaps return more than one.
func SessionsAt(t time.Time) []Session {
	h := t.UTC().Hour()
	var out []Session
	for _, s := range sessionHours {
		in := h >= s.open && h < s.close
		if s.open > s.close {
			in = h >= s.open || h < s.close
		}
		if in {
			out = append(out, s.session)
		}
	}
	return out
}

// TrackSession adds a realized close to every session open at closeTime.
// Loss is kept as a positive amount.
func (a *Account) TrackSession(closeTime time.Time, pnl decimal.Decimal) {
	for _, s := range SessionsAt(closeTime) {
		st := a.Sessions[s]
		st.Trades++
		if pnl.IsPositive() {
			st.Profit = st.Profit.Add(pnl)
		} else if pnl.IsNegative() {
			st.Loss = st.Loss.Add(pnl.Neg())
		}
		a.Sessions[s] = st
	}
}
