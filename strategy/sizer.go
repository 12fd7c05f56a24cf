package strategy

import "math"

// Sizer converts a BUY signal into a share quantity from risk fractions.
// All fields are fractions of capital except MinLotValue, which is a
// currency floor for the smallest order worth placing.
type Sizer struct {
	PerTradeRisk  float64 // max fraction of capital risked on one trade
	AggregateRisk float64 // ceiling on risk committed across open positions
	CashBuffer    float64 // fraction of capital spendable on a single order
	MinLotValue   float64 // minimum order value
	StrongKBoost  float64 // per-trade risk multiplier for strong-K entries
}

// NewSizer builds a Sizer from raw fractions
func NewSizer(perTrade, aggregate, cashBuffer, minLotValue, strongKBoost float64) Sizer {
	return Sizer{
		PerTradeRisk:  perTrade,
		AggregateRisk: aggregate,
		CashBuffer:    cashBuffer,
		MinLotValue:   minLotValue,
		StrongKBoost:  strongKBoost,
	}
}

// Size returns the share quantity for an entry at price with the given stop.
// The quantity is bounded by the per-trade risk amount, the remaining
// aggregate risk budget after the open positions, and available cash. A
// strong-K entry gets its per-trade budget scaled by StrongKBoost; the
// aggregate and cash bounds are unaffected. A zero or inverted
// risk-per-share yields zero: there is no valid sizing without a stop below
// the entry.
func (s Sizer) Size(capital, price, stopLoss float64, stage Stage, open []Position) int64 {
	if price <= 0 {
		return 0
	}
	riskPerShare := price - stopLoss
	if riskPerShare <= 0 {
		return 0
	}

	perTrade := capital * s.PerTradeRisk
	if stage == StageStrongK && s.StrongKBoost > 0 {
		perTrade *= s.StrongKBoost
	}
	qty := int64(math.Floor(perTrade / riskPerShare))

	remaining := capital*s.AggregateRisk - committedRisk(open)
	if remaining <= 0 {
		return 0
	}
	if byBudget := int64(math.Floor(remaining / riskPerShare)); byBudget < qty {
		qty = byBudget
	}

	if minLot := int64(math.Floor(s.MinLotValue / price)); minLot > 1 {
		if qty < minLot {
			qty = minLot
		}
	} else if qty < 1 {
		qty = 1
	}

	if byCash := int64(math.Floor(capital * s.CashBuffer / price)); byCash < qty {
		qty = byCash
	}
	if qty < 0 {
		return 0
	}
	return qty
}

// committedRisk sums the risk already on the table across open positions
func committedRisk(open []Position) float64 {
	total := 0.0
	for _, p := range open {
		perShare := p.EntryPrice - p.StopLoss
		if perShare > 0 {
			total += perShare * float64(p.Quantity)
		}
	}
	return total
}
