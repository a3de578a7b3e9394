package ledger

import "github.com/shopspring/decimal"

// hitStopLoss reports whether price has reached the stop. A buy stops out
// at or below its stop loss; a sell mirrors it and stops out at or above.
func hitStopLoss(p Position, price decimal.Decimal) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == SideBuy {
		return price.LessThanOrEqual(*p.StopLoss)
	}
	return price.GreaterThanOrEqual(*p.StopLoss)
}

// hitTakeProfit is the mirror of hitStopLoss: at or above the target for a
// buy, at or below it for a sell.
func hitTakeProfit(p Position, price decimal.Decimal) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == SideBuy {
		return price.GreaterThanOrEqual(*p.TakeProfit)
	}
	return price.LessThanOrEqual(*p.TakeProfit)
}

// executes reports whether a pending order fills at price. Close orders
// are take-profit style exits on the target's side: a buy position is
// sold at or above the order price, a sell position bought back at or
// below it.
func executes(o Order, target *Position, price decimal.Decimal) bool {
	switch o.Kind {
	case KindBuy:
		return price.LessThanOrEqual(o.Price)
	case KindSell:
		return price.GreaterThanOrEqual(o.Price)
	case KindModify:
		return true
	case KindClose:
		if target == nil || target.Side == SideBuy {
			return price.GreaterThanOrEqual(o.Price)
		}
		return price.LessThanOrEqual(o.Price)
	}
	return false
}
