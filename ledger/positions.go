package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/journal"
)

const (
	ReasonStopLoss     = "Stop Loss triggered"
	ReasonTakeProfit   = "Take Profit triggered"
	ReasonManualClose  = "Manual Close"
	partialCloseSuffix = " - Partial Close"
)

// CloseRequest closes Quantity of a position at Price. PositionID 0
// targets the oldest active position. A zero Time takes the book clock and
// an empty Reason defaults to ReasonManualClose.
type CloseRequest struct {
	PositionID int64
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Time       time.Time
	Reason     string
}

// ModifyRequest changes the protective levels of an active position. Price
// is accepted for symmetry with orders and not used. Nil levels are kept.
type ModifyRequest struct {
	Price      *decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// PositionBook owns every position opened by the ledger. Positions are
// kept in an id-keyed arena; active holds the ids still open, in open
// order.
type PositionBook struct {
	positions map[int64]*Position
	active    []int64
	nextID    int64

	journal journal.Journal
	log     *zap.Logger
	now     func() time.Time

	onClose func(Position)
	onAuto  func(AutoOperation)
}

func NewPositionBook(j journal.Journal, log *zap.Logger) *PositionBook {
	if j == nil {
		j = journal.NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PositionBook{
		positions: make(map[int64]*Position),
		journal:   j,
		log:       log,
		now:       time.Now,
	}
}

// OnClose registers fn to run for every realized close, including each
// partial-close slice.
func (b *PositionBook) OnClose(fn func(Position)) { b.onClose = fn }

func (b *PositionBook) Get(id int64) (Position, bool) {
	p, ok := b.positions[id]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// Active returns copies of the open positions in open order.
func (b *PositionBook) Active() []Position {
	out := make([]Position, 0, len(b.active))
	for _, id := range b.active {
		out = append(out, b.positions[id].clone())
	}
	return out
}

// All returns copies of every position the book has seen, by id.
func (b *PositionBook) All() []Position {
	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p.clone())
	}
	slices.SortFunc(out, func(a, b Position) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (b *PositionBook) Reset() {
	b.positions = make(map[int64]*Position)
	b.active = nil
	b.nextID = 0
}

// open creates an active position. Only order execution calls it.
func (b *PositionBook) open(side Side, symbol string, price, qty decimal.Decimal, sl, tp, margin *decimal.Decimal, at time.Time) (Position, error) {
	if !price.IsPositive() {
		return Position{}, fmt.Errorf("%w: open price must be positive, got %s", ErrValidation, price)
	}
	if !qty.IsPositive() {
		return Position{}, fmt.Errorf("%w: open quantity must be positive, got %s", ErrValidation, qty)
	}
	if err := validateStops(side, price, sl, tp); err != nil {
		return Position{}, err
	}
	if margin != nil && margin.IsNegative() {
		return Position{}, fmt.Errorf("%w: margin must not be negative, got %s", ErrValidation, margin)
	}

	b.nextID++
	p := &Position{
		ID:               b.nextID,
		Side:             side,
		Symbol:           symbol,
		OpenPrice:        price,
		Quantity:         qty,
		OriginalQuantity: qty,
		StopLoss:         copyDec(sl),
		TakeProfit:       copyDec(tp),
		Margin:           copyDec(margin),
		OpenTime:         at,
		Status:           PositionActive,
	}
	b.positions[p.ID] = p
	b.active = append(b.active, p.ID)

	b.log.Info("position opened",
		zap.Int64("position_id", p.ID),
		zap.Stringer("side", side),
		zap.String("symbol", symbol),
		zap.Stringer("price", price),
		zap.Stringer("quantity", qty),
	)
	return p.clone(), nil
}

// Close closes all or part of a position. A partial close splits off a
// new, already closed position holding the closed slice; the original
// keeps the rest and stays active.
func (b *PositionBook) Close(req CloseRequest) error {
	if !req.Price.IsPositive() {
		return fmt.Errorf("%w: close price must be positive, got %s", ErrValidation, req.Price)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: close quantity must be positive, got %s", ErrValidation, req.Quantity)
	}

	var p *Position
	if req.PositionID == 0 {
		if len(b.active) == 0 {
			b.log.Warn("close ignored: no active position")
			return nil
		}
		p = b.positions[b.active[0]]
	} else {
		var ok bool
		p, ok = b.positions[req.PositionID]
		if !ok {
			return fmt.Errorf("%w: position %d", ErrReference, req.PositionID)
		}
	}

	if !p.Active() {
		b.log.Warn("close ignored: position already closed", zap.Int64("position_id", p.ID))
		return nil
	}
	if req.Quantity.GreaterThan(p.Quantity) {
		return fmt.Errorf("%w: close %s of position %d holding %s", ErrCapacity, req.Quantity, p.ID, p.Quantity)
	}

	at := req.Time
	if at.IsZero() {
		at = b.now()
	}
	reason := req.Reason
	if reason == "" {
		reason = ReasonManualClose
	}

	if req.Quantity.LessThan(p.Quantity) {
		b.closePartial(p, req.Price, req.Quantity, at, reason)
		return nil
	}
	b.closeFull(p, req.Price, at, reason)
	return nil
}

func (b *PositionBook) closePartial(p *Position, price, qty decimal.Decimal, at time.Time, reason string) {
	b.nextID++
	slice := &Position{
		ID:               b.nextID,
		Side:             p.Side,
		Symbol:           p.Symbol,
		OpenPrice:        p.OpenPrice,
		Quantity:         qty,
		OriginalQuantity: qty,
		OpenTime:         p.OpenTime,
		Status:           PositionClosed,
		ClosePrice:       price,
		CloseTime:        at,
		Reason:           reason + partialCloseSuffix,
		ProfitLoss:       profitLoss(p.Side, p.OpenPrice, price, qty),
	}
	b.positions[slice.ID] = slice
	p.Quantity = p.Quantity.Sub(qty)

	b.log.Info("position partially closed",
		zap.Int64("position_id", p.ID),
		zap.Int64("slice_id", slice.ID),
		zap.Stringer("quantity", qty),
		zap.Stringer("remaining", p.Quantity),
		zap.Stringer("price", price),
		zap.Stringer("pl", slice.ProfitLoss),
	)
	b.finish(*slice)
}

func (b *PositionBook) closeFull(p *Position, price decimal.Decimal, at time.Time, reason string) {
	p.Status = PositionClosed
	p.ClosePrice = price
	p.CloseTime = at
	p.Reason = reason
	p.ProfitLoss = profitLoss(p.Side, p.OpenPrice, price, p.Quantity)
	b.active = slices.DeleteFunc(b.active, func(id int64) bool { return id == p.ID })

	b.log.Info("position closed",
		zap.Int64("position_id", p.ID),
		zap.Stringer("price", price),
		zap.Stringer("pl", p.ProfitLoss),
		zap.String("reason", reason),
	)
	b.finish(*p)
}

// finish persists a closed position and reports it. A journal failure is
// logged; the book stays authoritative.
func (b *PositionBook) finish(p Position) {
	if err := b.journal.RecordPosition(p.record()); err != nil {
		b.log.Error("journal position failed", zap.Int64("position_id", p.ID), zap.Error(err))
	}
	if b.onClose != nil {
		b.onClose(p.clone())
	}
}

// Tick evaluates stop loss then take profit on every active position.
func (b *PositionBook) Tick(price decimal.Decimal, now time.Time) {
	b.tick("", price, now)
}

// TickSymbol is Tick restricted to positions on symbol.
func (b *PositionBook) TickSymbol(symbol string, price decimal.Decimal, now time.Time) {
	b.tick(symbol, price, now)
}

func (b *PositionBook) tick(symbol string, price decimal.Decimal, now time.Time) {
	if !price.IsPositive() {
		b.log.Warn("tick ignored: non-positive price", zap.Stringer("price", price))
		return
	}

	type decision struct {
		pre    Position
		reason string
		at     decimal.Decimal
		kind   string
	}

	// Decide from the pre-tick state, then apply.
	var decisions []decision
	for _, id := range slices.Clone(b.active) {
		pre := b.positions[id].clone()
		if symbol != "" && pre.Symbol != symbol {
			continue
		}
		if hitStopLoss(pre, price) {
			decisions = append(decisions, decision{pre, ReasonStopLoss, *pre.StopLoss, AutoStopLoss})
		}
		if hitTakeProfit(pre, price) {
			decisions = append(decisions, decision{pre, ReasonTakeProfit, *pre.TakeProfit, AutoTakeProfit})
		}
	}

	for _, d := range decisions {
		p := b.positions[d.pre.ID]
		if !p.Active() {
			continue
		}
		b.closeFull(p, d.at, now, d.reason)
		if b.onAuto != nil {
			b.onAuto(AutoOperation{
				Time:       now,
				Kind:       d.kind,
				PositionID: p.ID,
				Detail:     fmt.Sprintf("%s %s %s at %s", p.Side, p.Quantity, p.Symbol, d.at),
			})
		}
	}
}

// Modify updates stop loss and take profit on an active position.
func (b *PositionBook) Modify(id int64, req ModifyRequest) error {
	p, ok := b.positions[id]
	if !ok {
		return fmt.Errorf("%w: position %d", ErrReference, id)
	}
	if !p.Active() {
		b.log.Warn("modify ignored: position not active", zap.Int64("position_id", id))
		return nil
	}
	return b.modify(p, req)
}

// ModifyAll applies req to every active position. Positions whose levels
// would be invalid are skipped and reported in the returned error.
func (b *PositionBook) ModifyAll(req ModifyRequest) error {
	var firstErr error
	for _, id := range slices.Clone(b.active) {
		if err := b.modify(b.positions[id], req); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *PositionBook) modify(p *Position, req ModifyRequest) error {
	sl, tp := p.StopLoss, p.TakeProfit
	if req.StopLoss != nil {
		sl = req.StopLoss
	}
	if req.TakeProfit != nil {
		tp = req.TakeProfit
	}
	if sl != nil && !sl.IsPositive() {
		return fmt.Errorf("%w: stop loss must be positive, got %s", ErrValidation, sl)
	}
	if tp != nil && !tp.IsPositive() {
		return fmt.Errorf("%w: take profit must be positive, got %s", ErrValidation, tp)
	}
	p.StopLoss = copyDec(sl)
	p.TakeProfit = copyDec(tp)

	b.log.Info("position modified",
		zap.Int64("position_id", p.ID),
		decField("stop_loss", p.StopLoss),
		decField("take_profit", p.TakeProfit),
	)
	return nil
}
