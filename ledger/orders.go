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
	ReasonTimeout       = "Timeout reached"
	ReasonLinkedClose   = "Closed via linked order"
	ReasonCloseTooLarge = "Close quantity exceeds position"
	ReasonManualCancel  = "Cancelled"
)

// OrderBook owns orders from creation to their terminal state. Terminal
// orders stay readable through Get; pending holds the ids still waiting,
// in creation order.
type OrderBook struct {
	orders  map[int64]*Order
	pending []int64
	nextID  int64

	positions *PositionBook
	journal   journal.Journal
	log       *zap.Logger
	now       func() time.Time

	onExecute func(Order)
	onAuto    func(AutoOperation)
}

func NewOrderBook(positions *PositionBook, j journal.Journal, log *zap.Logger) *OrderBook {
	if j == nil {
		j = journal.NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if positions == nil {
		positions = NewPositionBook(j, log)
	}
	return &OrderBook{
		orders:    make(map[int64]*Order),
		positions: positions,
		journal:   j,
		log:       log,
		now:       time.Now,
	}
}

// OnExecute registers fn to run after each order executes.
func (b *OrderBook) OnExecute(fn func(Order)) { b.onExecute = fn }

func (b *OrderBook) Get(id int64) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

// Pending returns copies of the waiting orders in creation order.
func (b *OrderBook) Pending() []Order {
	out := make([]Order, 0, len(b.pending))
	for _, id := range b.pending {
		out = append(out, b.orders[id].clone())
	}
	return out
}

// All returns copies of every order, pending and terminal, by id.
func (b *OrderBook) All() []Order {
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o.clone())
	}
	slices.SortFunc(out, func(a, b Order) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (b *OrderBook) Reset() {
	b.orders = make(map[int64]*Order)
	b.pending = nil
	b.nextID = 0
}

// Create validates req and appends a pending order. Modify and Close
// orders must name an existing position and inherit its symbol when none
// is given.
func (b *OrderBook) Create(req OrderRequest) (int64, error) {
	if err := validateOrder(req.Kind, req.Price, req.Quantity, req.StopLoss, req.TakeProfit, req.MaxActive); err != nil {
		return 0, err
	}

	symbol := req.Symbol
	var positionID int64
	if req.Kind == KindModify || req.Kind == KindClose {
		target, ok := b.positions.Get(req.PositionID)
		if !ok {
			return 0, fmt.Errorf("%w: %s order targets position %d", ErrReference, req.Kind, req.PositionID)
		}
		if symbol == "" {
			symbol = target.Symbol
		}
		if symbol != target.Symbol {
			return 0, fmt.Errorf("%w: %s order symbol %s differs from position %d's %s", ErrValidation, req.Kind, symbol, target.ID, target.Symbol)
		}
		positionID = target.ID
	}
	if symbol == "" {
		return 0, fmt.Errorf("%w: symbol is required", ErrValidation)
	}

	created := req.CreatedAt
	if created.IsZero() {
		created = b.now()
	}

	b.nextID++
	o := &Order{
		ID:         b.nextID,
		Kind:       req.Kind,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Symbol:     symbol,
		StopLoss:   copyDec(req.StopLoss),
		TakeProfit: copyDec(req.TakeProfit),
		Status:     OrderPending,
		CreatedAt:  created,
		PositionID: positionID,
	}
	if req.MaxActive != nil {
		d := *req.MaxActive
		o.MaxActive = &d
	}
	b.orders[o.ID] = o
	b.pending = append(b.pending, o.ID)

	b.log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.Stringer("kind", o.Kind),
		zap.String("symbol", o.Symbol),
		zap.Stringer("price", o.Price),
		zap.Stringer("quantity", o.Quantity),
	)
	return o.ID, nil
}

// Edit changes a pending order. The merged fields are validated with the
// creation rules before anything is written.
func (b *OrderBook) Edit(id int64, u OrderUpdate) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d", ErrReference, id)
	}
	if o.Terminal() {
		b.log.Warn("edit rejected: order not pending", zap.Int64("order_id", id), zap.Stringer("status", o.Status))
		return fmt.Errorf("%w: order %d is %s", ErrState, id, o.Status)
	}

	merged := o.clone()
	if u.Price != nil {
		merged.Price = *u.Price
	}
	if u.Quantity != nil {
		merged.Quantity = *u.Quantity
	}
	if u.Symbol != nil {
		linked := o.Kind == KindModify || o.Kind == KindClose
		if linked && *u.Symbol != o.Symbol {
			return fmt.Errorf("%w: %s order %d trades position %d's symbol %s", ErrValidation, o.Kind, id, o.PositionID, o.Symbol)
		}
		merged.Symbol = *u.Symbol
	}
	if u.StopLoss != nil {
		merged.StopLoss = copyDec(u.StopLoss)
	}
	if u.TakeProfit != nil {
		merged.TakeProfit = copyDec(u.TakeProfit)
	}
	if u.MaxActive != nil {
		d := *u.MaxActive
		merged.MaxActive = &d
	}
	if err := validateOrder(merged.Kind, merged.Price, merged.Quantity, merged.StopLoss, merged.TakeProfit, merged.MaxActive); err != nil {
		return err
	}
	if merged.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}

	*o = merged
	b.log.Info("order edited", zap.Int64("order_id", id))
	return nil
}

// Cancel moves a pending order to Cancelled. Cancelling a terminal order
// is logged and ignored.
func (b *OrderBook) Cancel(id int64, reason string) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d", ErrReference, id)
	}
	if o.Terminal() {
		b.log.Warn("cancel ignored: order not pending", zap.Int64("order_id", id), zap.Stringer("status", o.Status))
		return nil
	}
	if reason == "" {
		reason = ReasonManualCancel
	}
	b.cancel(o, reason)
	return nil
}

func (b *OrderBook) cancel(o *Order, reason string) {
	o.Status = OrderCancelled
	o.Reason = reason
	b.finish(o)
	b.log.Info("order cancelled", zap.Int64("order_id", o.ID), zap.String("reason", reason))
}

// finish drops a terminal order from the pending set and persists it.
func (b *OrderBook) finish(o *Order) {
	b.pending = slices.DeleteFunc(b.pending, func(id int64) bool { return id == o.ID })
	if err := b.journal.RecordOrder(o.record()); err != nil {
		b.log.Error("journal order failed", zap.Int64("order_id", o.ID), zap.Error(err))
	}
}

// Tick times out and executes pending orders against price.
func (b *OrderBook) Tick(price decimal.Decimal, now time.Time) {
	b.tick("", price, now)
}

// TickSymbol is Tick restricted to orders on symbol.
func (b *OrderBook) TickSymbol(symbol string, price decimal.Decimal, now time.Time) {
	b.tick(symbol, price, now)
}

func (b *OrderBook) tick(symbol string, price decimal.Decimal, now time.Time) {
	if !price.IsPositive() {
		b.log.Warn("tick ignored: non-positive price", zap.Stringer("price", price))
		return
	}

	for _, id := range slices.Clone(b.pending) {
		o := b.orders[id]
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		b.evaluate(o, price, now)
	}
}

// fill evaluates one pending order, used for orders that should fill
// against the price they were created at.
func (b *OrderBook) fill(id int64, price decimal.Decimal, now time.Time) {
	if o, ok := b.orders[id]; ok {
		b.evaluate(o, price, now)
	}
}

// evaluate cancels o on timeout or executes it when price allows.
func (b *OrderBook) evaluate(o *Order, price decimal.Decimal, now time.Time) {
	if o.Terminal() {
		return
	}
	if o.MaxActive != nil && now.Sub(o.CreatedAt) > *o.MaxActive {
		b.cancel(o, ReasonTimeout)
		b.auto(AutoOperation{
			Time:    now,
			Kind:    AutoTimeout,
			OrderID: o.ID,
			Detail:  fmt.Sprintf("%s %s %s after %s", o.Kind, o.Quantity, o.Symbol, *o.MaxActive),
		})
		return
	}

	var target *Position
	if o.PositionID != 0 {
		target = b.positions.positions[o.PositionID]
	}
	if executes(*o, target, price) {
		b.execute(o, target, now)
	}
}

func (b *OrderBook) execute(o *Order, target *Position, now time.Time) {
	switch o.Kind {
	case KindBuy, KindSell:
		side := SideBuy
		if o.Kind == KindSell {
			side = SideSell
		}
		p, err := b.positions.open(side, o.Symbol, o.Price, o.Quantity, o.StopLoss, o.TakeProfit, nil, now)
		if err != nil {
			b.log.Error("order execution failed", zap.Int64("order_id", o.ID), zap.Error(err))
			b.cancel(o, err.Error())
			return
		}
		o.PositionID = p.ID

	case KindModify:
		if target == nil || !target.Active() {
			b.log.Warn("modify order has no active target", zap.Int64("order_id", o.ID), zap.Int64("position_id", o.PositionID))
			break
		}
		if err := b.positions.modify(target, ModifyRequest{StopLoss: o.StopLoss, TakeProfit: o.TakeProfit}); err != nil {
			b.log.Error("modify order failed", zap.Int64("order_id", o.ID), zap.Error(err))
			b.cancel(o, err.Error())
			return
		}

	case KindClose:
		if target == nil || !target.Active() {
			b.log.Warn("close order has no active target", zap.Int64("order_id", o.ID), zap.Int64("position_id", o.PositionID))
			break
		}
		if o.Quantity.GreaterThan(target.Quantity) {
			b.cancel(o, ReasonCloseTooLarge)
			return
		}
		err := b.positions.Close(CloseRequest{
			PositionID: target.ID,
			Price:      o.Price,
			Quantity:   o.Quantity,
			Time:       now,
			Reason:     ReasonLinkedClose,
		})
		if err != nil {
			b.log.Error("close order failed", zap.Int64("order_id", o.ID), zap.Error(err))
			b.cancel(o, err.Error())
			return
		}
	}

	o.Status = OrderExecuted
	b.finish(o)
	b.log.Info("order executed",
		zap.Int64("order_id", o.ID),
		zap.Stringer("kind", o.Kind),
		zap.Int64("position_id", o.PositionID),
	)
	if b.onExecute != nil {
		b.onExecute(o.clone())
	}
}

func (b *OrderBook) auto(op AutoOperation) {
	if b.onAuto != nil {
		b.onAuto(op)
	}
}
