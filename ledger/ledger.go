// Package ledger simulates order execution and position bookkeeping for a
// single trading account.
//
// A Ledger is driven by one goroutine. Each quote runs the order book,
// then stop loss and take profit on open positions, then marks the
// account to market. Terminal orders and closed positions go to the
// journal as they happen.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/journal"
	"github.com/rustyeddy/tradeledger/market"
)

type Ledger struct {
	orders    *OrderBook
	positions *PositionBook
	account   *Account
	journal   journal.Journal
	prices    *market.PriceStore
	log       *zap.Logger

	clock    func() time.Time
	lastTick time.Time

	day           time.Time
	dailyBaseline decimal.Decimal

	commission decimal.Decimal
	auto       []AutoOperation
}

type Option func(*Ledger)

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock sets the time source used before the first tick.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithCommission charges a flat amount per executed order to the
// account's commission total.
func WithCommission(perOrder decimal.Decimal) Option {
	return func(l *Ledger) { l.commission = perOrder }
}

// New builds a ledger for one account writing to j. A nil journal keeps
// records in memory. The caller owns j and closes it.
func New(cfg AccountConfig, j journal.Journal, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		journal: j,
		prices:  market.NewPriceStore(),
		log:     zap.NewNop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.journal == nil {
		l.journal = journal.NewMemory()
	}
	if l.commission.IsNegative() {
		return nil, fmt.Errorf("%w: commission must not be negative, got %s", ErrValidation, l.commission)
	}

	acct, err := NewAccount(cfg, l.log.Named("account"))
	if err != nil {
		return nil, err
	}
	l.account = acct
	l.dailyBaseline = acct.Balance

	l.positions = NewPositionBook(l.journal, l.log.Named("positions"))
	l.positions.now = l.now
	l.positions.onAuto = l.recordAuto
	l.positions.OnClose(func(p Position) {
		l.account.Realize(p.ProfitLoss, l.positions.Active(), l.prices.Snapshot())
		l.account.TrackSession(p.CloseTime, p.ProfitLoss)
	})

	l.orders = NewOrderBook(l.positions, l.journal, l.log.Named("orders"))
	l.orders.now = l.now
	l.orders.onAuto = l.recordAuto
	l.orders.OnExecute(func(Order) {
		if l.commission.IsPositive() {
			l.account.AddCommission(l.commission)
		}
	})
	return l, nil
}

// now is the last tick time, or the clock before any tick.
func (l *Ledger) now() time.Time {
	if !l.lastTick.IsZero() {
		return l.lastTick
	}
	return l.clock()
}

func (l *Ledger) recordAuto(op AutoOperation) {
	l.auto = append(l.auto, op)
	l.log.Info("automatic operation",
		zap.String("kind", op.Kind),
		zap.Int64("order_id", op.OrderID),
		zap.Int64("position_id", op.PositionID),
		zap.String("detail", op.Detail),
	)
}

func (l *Ledger) CreateOrder(req OrderRequest) (int64, error) {
	return l.orders.Create(req)
}

func (l *Ledger) EditOrder(id int64, u OrderUpdate) error {
	return l.orders.Edit(id, u)
}

func (l *Ledger) CancelOrder(id int64, reason string) error {
	return l.orders.Cancel(id, reason)
}

func (l *Ledger) ClosePosition(req CloseRequest) error {
	return l.positions.Close(req)
}

// ModifyPosition changes stop loss and take profit on one position, or on
// every active position when id is 0.
func (l *Ledger) ModifyPosition(id int64, req ModifyRequest) error {
	if id == 0 {
		return l.positions.ModifyAll(req)
	}
	return l.positions.Modify(id, req)
}

// Tick runs orders then positions against price for every symbol.
func (l *Ledger) Tick(price decimal.Decimal, at time.Time) {
	l.advance(at)
	l.orders.Tick(price, at)
	l.positions.Tick(price, at)
}

// TickSymbol is Tick restricted to one symbol.
func (l *Ledger) TickSymbol(symbol string, price decimal.Decimal, at time.Time) {
	l.advance(at)
	l.orders.TickSymbol(symbol, price, at)
	l.positions.TickSymbol(symbol, price, at)
}

// advance moves the ledger clock and rolls the daily baseline on the first
// tick of each UTC day.
func (l *Ledger) advance(at time.Time) {
	if at.IsZero() {
		return
	}
	l.lastTick = at
	day := at.UTC().Truncate(24 * time.Hour)
	if !day.Equal(l.day) {
		l.day = day
		l.dailyBaseline = l.account.Balance
		l.account.ResetDaily()
	}
}

// Update marks the account to market and records an equity snapshot.
func (l *Ledger) Update(quotes market.Quotes) error {
	if err := l.account.Update(l.positions.Active(), quotes); err != nil {
		l.log.Warn("account update failed", zap.Error(err))
		return err
	}
	l.account.DailyDrawdownFrom(l.dailyBaseline)

	a := l.account
	snap := journal.EquitySnapshot{
		Time:        l.now(),
		Balance:     a.Balance,
		Equity:      a.Equity,
		MarginUsed:  a.MarginUsed,
		FreeMargin:  a.FreeMargin,
		MarginLevel: nullDec(a.MarginLevel),
	}
	if err := l.journal.RecordEquity(snap); err != nil {
		l.log.Error("journal equity failed", zap.Error(err))
	}
	return nil
}

// OnQuote stores q, ticks its symbol at the quote's last price and marks
// the account with every stored quote. Tick effects stand even when the
// update fails for lack of a price on another symbol.
func (l *Ledger) OnQuote(q market.Quote) error {
	if q.Symbol == "" || !q.Valid() {
		return fmt.Errorf("%w: quote needs a symbol and a bid/ask or close", ErrValidation)
	}
	if q.Time.IsZero() {
		q.Time = l.now()
	}
	l.prices.Set(q)
	l.TickSymbol(q.Symbol, q.Last(), q.Time)
	return l.Update(l.prices.Snapshot())
}

// Apply turns a signal into ledger operations. Buy and sell signals
// without a limit price become orders at price and fill on the spot;
// the returned id is the order id. A close signal closes at price and
// returns the position id it acted on.
func (l *Ledger) Apply(sig Signal, price decimal.Decimal, at time.Time) (int64, error) {
	if at.IsZero() {
		at = l.now()
	}
	switch s := sig.(type) {
	case BuySignal:
		return l.applyOpen(KindBuy, s.Symbol, s.Quantity, s.Price, s.StopLoss, s.TakeProfit, s.MaxActive, price, at)
	case SellSignal:
		return l.applyOpen(KindSell, s.Symbol, s.Quantity, s.Price, s.StopLoss, s.TakeProfit, s.MaxActive, price, at)
	case CloseSignal:
		return l.applyClose(s, price, at)
	default:
		return 0, fmt.Errorf("%w: unsupported signal %T", ErrValidation, sig)
	}
}

func (l *Ledger) applyOpen(kind OrderKind, symbol string, qty decimal.Decimal, limit, sl, tp *decimal.Decimal, maxActive *time.Duration, price decimal.Decimal, at time.Time) (int64, error) {
	orderPrice := price
	if limit != nil {
		orderPrice = *limit
	}
	id, err := l.orders.Create(OrderRequest{
		Kind:       kind,
		Price:      orderPrice,
		Quantity:   qty,
		Symbol:     symbol,
		StopLoss:   sl,
		TakeProfit: tp,
		MaxActive:  maxActive,
		CreatedAt:  at,
	})
	if err != nil {
		return 0, err
	}
	if limit == nil {
		l.orders.fill(id, price, at)
	}
	return id, nil
}

func (l *Ledger) applyClose(s CloseSignal, price decimal.Decimal, at time.Time) (int64, error) {
	id := s.PositionID
	if id == 0 {
		active := l.positions.Active()
		if len(active) == 0 {
			l.log.Warn("close signal ignored: no active position")
			return 0, nil
		}
		id = active[0].ID
	}
	p, ok := l.positions.Get(id)
	if !ok {
		return 0, fmt.Errorf("%w: position %d", ErrReference, id)
	}
	qty := p.Quantity
	if s.Quantity != nil {
		qty = *s.Quantity
	}
	err := l.positions.Close(CloseRequest{
		PositionID: id,
		Price:      price,
		Quantity:   qty,
		Time:       at,
		Reason:     s.Reason,
	})
	return id, err
}

// CloseAll closes every active position at its symbol's latest mark
// price: bid for a buy, ask for a sell. Nothing is closed unless every
// held symbol has a usable quote.
func (l *Ledger) CloseAll(reason string) error {
	active := l.positions.Active()
	quotes := make(market.Quotes, len(active))
	for _, p := range active {
		q, err := l.prices.Get(p.Symbol)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMissingPrice, err)
		}
		if !q.Valid() {
			return fmt.Errorf("%w: no usable quote for %s", ErrMissingPrice, p.Symbol)
		}
		quotes[p.Symbol] = q
	}

	for _, p := range active {
		q := quotes[p.Symbol]
		err := l.positions.Close(CloseRequest{
			PositionID: p.ID,
			Price:      markPrice(p.Side, q),
			Quantity:   p.Quantity,
			Time:       l.now(),
			Reason:     reason,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Statistics reads closed positions from the journal. A read failure is
// logged and counted as an empty history.
func (l *Ledger) Statistics() Statistics {
	closed, err := l.journal.Positions()
	if err != nil {
		l.log.Error("journal read failed", zap.Error(err))
		closed = nil
	}
	st := ComputeStatistics(closed, len(l.positions.active), l.account.Snapshot())
	l.log.Info("statistics",
		zap.Int("total_positions", st.TotalPositions),
		zap.Int("closed_positions", st.ClosedPositions),
		zap.Stringer("total_profit_loss", st.TotalProfitLoss),
		zap.Float64("win_rate", st.WinRate),
	)
	return st
}

// Reset returns the ledger to its initial state and clears the journal's
// records for this run.
func (l *Ledger) Reset() {
	l.orders.Reset()
	l.positions.Reset()
	l.account.Reset()
	l.prices.Reset()
	l.auto = nil
	l.lastTick = time.Time{}
	l.day = time.Time{}
	l.dailyBaseline = l.account.Balance
	if err := l.journal.Clear(); err != nil {
		l.log.Error("journal clear failed", zap.Error(err))
	}
	l.log.Info("ledger reset", zap.Stringer("balance", l.account.Balance))
}

func (l *Ledger) Account() Account { return l.account.Snapshot() }

// AddSwap books overnight financing on the account.
func (l *Ledger) AddSwap(amount decimal.Decimal) { l.account.AddSwap(amount) }

// Orders returns every order, pending and terminal, by id.
func (l *Ledger) Orders() []Order { return l.orders.All() }

func (l *Ledger) PendingOrders() []Order { return l.orders.Pending() }

func (l *Ledger) Order(id int64) (Order, bool) { return l.orders.Get(id) }

// Positions returns every position, active and closed, by id.
func (l *Ledger) Positions() []Position { return l.positions.All() }

func (l *Ledger) ActivePositions() []Position { return l.positions.Active() }

func (l *Ledger) Position(id int64) (Position, bool) { return l.positions.Get(id) }

func (l *Ledger) AutoOperations() []AutoOperation {
	return append([]AutoOperation(nil), l.auto...)
}

func (l *Ledger) Journal() journal.Journal { return l.journal }

func (l *Ledger) Prices() *market.PriceStore { return l.prices }
