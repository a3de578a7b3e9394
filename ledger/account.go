package ledger

import (
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/market"
)

const (
	defaultCurrency = "USD"
	levelPrecision  = 8
)

var (
	hundred         = decimal.NewFromInt(100)
	marginCallLevel = decimal.NewFromInt(100)
	stopOutLevel    = decimal.NewFromInt(50)
	defaultLeverage = decimal.NewFromInt(1)
)

// Limits are optional risk thresholds. A zero value disables the check.
// Breaches raise flags on the account; nothing is closed automatically.
type Limits struct {
	DailyLoss          decimal.Decimal `json:"daily_loss" yaml:"daily_loss"`
	DailyLossPercent   decimal.Decimal `json:"daily_loss_percent" yaml:"daily_loss_percent"`
	MaxDrawdown        decimal.Decimal `json:"max_drawdown" yaml:"max_drawdown"`
	MaxDrawdownPercent decimal.Decimal `json:"max_drawdown_percent" yaml:"max_drawdown_percent"`
}

// AccountConfig seeds a new account.
type AccountConfig struct {
	ID       string
	Currency string
	Balance  decimal.Decimal
	Leverage decimal.Decimal
	Limits   Limits
}

// Account holds the balance, equity and margin aggregates for one trading
// account. Historical orders and positions live in the journal.
type Account struct {
	ID       string
	Currency string
	Leverage decimal.Decimal

	InitialBalance decimal.Decimal
	Balance        decimal.Decimal
	Equity         decimal.Decimal
	RealizedPnL    decimal.Decimal
	UnrealizedPnL  decimal.Decimal
	Exposure       decimal.Decimal

	MarginUsed  decimal.Decimal
	FreeMargin  decimal.Decimal
	MarginLevel *decimal.Decimal // nil while no margin is used

	Swap       decimal.Decimal
	Commission decimal.Decimal

	DailyDrawdown decimal.Decimal
	MaxDrawdown   decimal.Decimal
	PeakEquity    decimal.Decimal

	MarginCall        bool
	StopOut           bool
	DailyLossBreached bool
	DrawdownBreached  bool

	Sessions map[Session]SessionStats

	limits Limits
	log    *zap.Logger
}

func NewAccount(cfg AccountConfig, log *zap.Logger) (*Account, error) {
	if cfg.Balance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance must not be negative, got %s", ErrValidation, cfg.Balance)
	}
	if cfg.Leverage.IsZero() {
		cfg.Leverage = defaultLeverage
	}
	if !cfg.Leverage.IsPositive() {
		return nil, fmt.Errorf("%w: leverage must be positive, got %s", ErrValidation, cfg.Leverage)
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &Account{
		ID:             cfg.ID,
		Currency:       cfg.Currency,
		Leverage:       cfg.Leverage,
		InitialBalance: cfg.Balance,
		limits:         cfg.Limits,
		log:            log,
	}
	a.Reset()
	return a, nil
}

// Reset restores the account to its initial balance with no history.
func (a *Account) Reset() {
	a.Balance = a.InitialBalance
	a.Equity = a.InitialBalance
	a.PeakEquity = a.InitialBalance
	a.FreeMargin = a.InitialBalance
	a.RealizedPnL = decimal.Zero
	a.UnrealizedPnL = decimal.Zero
	a.Exposure = decimal.Zero
	a.MarginUsed = decimal.Zero
	a.MarginLevel = nil
	a.Swap = decimal.Zero
	a.Commission = decimal.Zero
	a.DailyDrawdown = decimal.Zero
	a.MaxDrawdown = decimal.Zero
	a.MarginCall = false
	a.StopOut = false
	a.DailyLossBreached = false
	a.DrawdownBreached = false
	a.Sessions = make(map[Session]SessionStats)
}

// Snapshot returns a copy safe to hand out.
func (a *Account) Snapshot() Account {
	c := *a
	c.MarginLevel = copyDec(a.MarginLevel)
	c.Sessions = maps.Clone(a.Sessions)
	return c
}

func (a *Account) Limits() Limits { return a.limits }

// Update marks the active positions to market. Every held symbol needs a
// bid/ask pair or a close; otherwise nothing changes and ErrMissingPrice
// is returned.
func (a *Account) Update(active []Position, quotes market.Quotes) error {
	var unrealized, exposure, margin decimal.Decimal
	for _, p := range active {
		if !p.Active() {
			continue
		}
		q, ok := quotes[p.Symbol]
		if !ok || !q.Valid() {
			return fmt.Errorf("%w: no usable quote for %s", ErrMissingPrice, p.Symbol)
		}
		unrealized = unrealized.Add(p.PnLAt(markPrice(p.Side, q)))
		exposure = exposure.Add(p.Quantity.Mul(p.OpenPrice))
		margin = margin.Add(a.requiredMargin(p, q))
	}

	a.UnrealizedPnL = unrealized
	a.Exposure = exposure
	a.MarginUsed = margin
	a.recompute()
	return nil
}

// markPrice is the price a position would close at: bid for a buy, ask for
// a sell, or the close when the quote has no book.
func markPrice(side Side, q market.Quote) decimal.Decimal {
	if !q.HasBidAsk() {
		return q.Close
	}
	if side == SideSell {
		return q.Ask
	}
	return q.Bid
}

// marginPrice is the opening side of the book: ask for a buy, bid for a
// sell.
func marginPrice(side Side, q market.Quote) decimal.Decimal {
	if !q.HasBidAsk() {
		return q.Close
	}
	if side == SideSell {
		return q.Bid
	}
	return q.Ask
}

func (a *Account) requiredMargin(p Position, q market.Quote) decimal.Decimal {
	if p.Margin != nil {
		return *p.Margin
	}
	return p.Quantity.Mul(marginPrice(p.Side, q)).Div(a.Leverage)
}

// Realize books a closed position's profit or loss into the balance and
// marks the positions still active. If a quote is missing the equity falls
// back to the balance, and peak equity and max drawdown are left alone.
func (a *Account) Realize(pnl decimal.Decimal, active []Position, quotes market.Quotes) {
	a.RealizedPnL = a.RealizedPnL.Add(pnl)
	a.Balance = a.Balance.Add(pnl)
	if err := a.Update(active, quotes); err != nil {
		a.log.Debug("realized without a mark", zap.Error(err))
		a.UnrealizedPnL = decimal.Zero
		a.settle()
	}
}

// AddSwap accumulates overnight financing. It is tracked, not charged.
func (a *Account) AddSwap(amount decimal.Decimal) {
	a.Swap = a.Swap.Add(amount)
}

// AddCommission accumulates trading costs. It is tracked, not charged.
func (a *Account) AddCommission(amount decimal.Decimal) {
	a.Commission = a.Commission.Add(amount)
}

// DailyDrawdownFrom records and returns baseline minus the current balance.
func (a *Account) DailyDrawdownFrom(baseline decimal.Decimal) decimal.Decimal {
	a.DailyDrawdown = baseline.Sub(a.Balance)
	a.checkDailyLoss(baseline)
	return a.DailyDrawdown
}

// recompute derives equity and margin from a fresh mark and tracks the
// peak and drawdown.
func (a *Account) recompute() {
	a.settle()

	if a.Equity.GreaterThan(a.PeakEquity) {
		a.PeakEquity = a.Equity
	}
	if dd := a.PeakEquity.Sub(a.Equity); dd.GreaterThan(a.MaxDrawdown) {
		a.MaxDrawdown = dd
	}

	a.checkDrawdown()
}

func (a *Account) settle() {
	a.Equity = a.Balance.Add(a.UnrealizedPnL)
	a.FreeMargin = a.Equity.Sub(a.MarginUsed)

	if a.MarginUsed.IsPositive() {
		level := a.Equity.Mul(hundred).DivRound(a.MarginUsed, levelPrecision)
		a.MarginLevel = &level
	} else {
		a.MarginLevel = nil
	}
	a.checkMargin()
}

func (a *Account) checkMargin() {
	call, out := false, false
	if a.MarginLevel != nil {
		call = a.MarginLevel.LessThan(marginCallLevel)
		out = a.MarginLevel.LessThan(stopOutLevel)
	}
	if out && !a.StopOut {
		a.log.Error("stop out level reached", zap.Stringer("margin_level", *a.MarginLevel))
	} else if call && !a.MarginCall {
		a.log.Warn("margin call", zap.Stringer("margin_level", *a.MarginLevel))
	}
	a.MarginCall = call
	a.StopOut = out
}

func (a *Account) checkDrawdown() {
	breached := false
	if a.limits.MaxDrawdown.IsPositive() && a.MaxDrawdown.GreaterThanOrEqual(a.limits.MaxDrawdown) {
		breached = true
	}
	if a.limits.MaxDrawdownPercent.IsPositive() && a.PeakEquity.IsPositive() {
		pct := a.MaxDrawdown.Div(a.PeakEquity).Mul(hundred)
		if pct.GreaterThanOrEqual(a.limits.MaxDrawdownPercent) {
			breached = true
		}
	}
	if breached && !a.DrawdownBreached {
		a.log.Warn("max drawdown limit reached", zap.Stringer("max_drawdown", a.MaxDrawdown))
	}
	a.DrawdownBreached = a.DrawdownBreached || breached
}

func (a *Account) checkDailyLoss(baseline decimal.Decimal) {
	breached := false
	if a.limits.DailyLoss.IsPositive() && a.DailyDrawdown.GreaterThanOrEqual(a.limits.DailyLoss) {
		breached = true
	}
	if a.limits.DailyLossPercent.IsPositive() && baseline.IsPositive() {
		pct := a.DailyDrawdown.Div(baseline).Mul(hundred)
		if pct.GreaterThanOrEqual(a.limits.DailyLossPercent) {
			breached = true
		}
	}
	if breached && !a.DailyLossBreached {
		a.log.Warn("daily loss limit reached", zap.Stringer("daily_drawdown", a.DailyDrawdown))
	}
	a.DailyLossBreached = breached
}

// ResetDaily clears the daily loss flag at the start of a new day.
func (a *Account) ResetDaily() {
	a.DailyDrawdown = decimal.Zero
	a.DailyLossBreached = false
}
