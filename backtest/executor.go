// Package backtest replays a sized signal stream against historical bars,
// maintaining a cash ledger and an equity curve, and derives the usual
// performance statistics from the result.
package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	models "strongk-quant/database/models_pkg"
	"strongk-quant/strategy"
)

// SizerFunc converts an entry/stop pair into a share quantity given the
// capital currently free, the signal's stage, and the positions already
// open. A zero return rejects the entry.
type SizerFunc func(capital, price, stopLoss float64, stage strategy.Stage, open []strategy.Position) int64

// Config holds the executor's ledger parameters
type Config struct {
	InitialCapital float64
	CommissionRate float64 // proportional, applied to both sides
}

// Executor applies BUY/SELL signals to a decimal cash ledger. Money is
// tracked in decimals so repeated commission arithmetic cannot drift.
type Executor struct {
	cfg  Config
	size SizerFunc
	log  *logrus.Logger
}

// NewExecutor builds an executor around a sizing function
func NewExecutor(cfg Config, size SizerFunc, log *logrus.Logger) *Executor {
	if log == nil {
		log = logrus.New()
	}
	return &Executor{cfg: cfg, size: size, log: log}
}

// Trade is one completed round trip
type Trade struct {
	Symbol      string         `json:"symbol"`
	Stage       strategy.Stage `json:"stage,omitempty"`
	EntryTime   time.Time      `json:"entry_time"`
	ExitTime    time.Time      `json:"exit_time"`
	EntryPrice  float64        `json:"entry_price"`
	ExitPrice   float64        `json:"exit_price"`
	Quantity    int64          `json:"quantity"`
	PnL         float64        `json:"pnl"`
	HoldingDays float64        `json:"holding_days"`
}

// EquityPoint is a portfolio-value sample taken after a signal was applied
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Result is the full outcome of one backtest run
type Result struct {
	RunID          string         `json:"run_id"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	InitialCapital float64        `json:"initial_capital"`
	FinalEquity    float64        `json:"final_equity"`
	Trades         []Trade        `json:"trades"`
	EquityCurve    []EquityPoint  `json:"equity_curve"`
	Stats          Stats          `json:"stats"`
}

type openPosition struct {
	strategy.Position
	entryCommission decimal.Decimal
}

// Run replays the signals in timestamp order against the per-symbol bars.
// Signals outside [start, end] are skipped when the bounds are non-zero.
// SELLs with no matching open position are ignored; BUYs the ledger cannot
// afford are rejected rather than partially filled.
func (e *Executor) Run(signals []strategy.Signal, bars map[string][]models.Bar, start, end time.Time) (*Result, error) {
	if e.size == nil {
		return nil, fmt.Errorf("Run: no sizer configured")
	}

	ordered := make([]strategy.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	cash := decimal.NewFromFloat(e.cfg.InitialCapital)
	rate := decimal.NewFromFloat(e.cfg.CommissionRate)
	open := make(map[string]*openPosition)

	res := &Result{
		RunID:          uuid.NewString(),
		StartDate:      start,
		EndDate:        end,
		InitialCapital: e.cfg.InitialCapital,
	}

	for _, sig := range ordered {
		if !start.IsZero() && sig.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && sig.Timestamp.After(end) {
			continue
		}

		switch sig.Action {
		case strategy.ActionBuy:
			cash = e.applyBuy(cash, rate, sig, open)
		case strategy.ActionSell:
			cash = e.applySell(cash, rate, sig, open, res)
		}

		equity, _ := e.markToMarket(cash, open, bars, sig.Timestamp).Float64()
		res.EquityCurve = append(res.EquityCurve, EquityPoint{
			Timestamp: sig.Timestamp,
			Value:     equity,
		})
	}

	res.FinalEquity, _ = e.markToMarket(cash, open, bars, end).Float64()
	res.Stats = computeStats(res)
	return res, nil
}

func (e *Executor) applyBuy(cash, rate decimal.Decimal, sig strategy.Signal, open map[string]*openPosition) decimal.Decimal {
	if _, held := open[sig.Symbol]; held {
		return cash
	}

	capital, _ := cash.Float64()
	qty := e.size(capital, sig.Price, sig.StopLoss, sig.Stage, openList(open))
	if qty <= 0 {
		return cash
	}

	price := decimal.NewFromFloat(sig.Price)
	cost := price.Mul(decimal.NewFromInt(qty))
	commission := cost.Mul(rate)
	total := cost.Add(commission)
	if cash.LessThan(total) {
		e.log.WithFields(logrus.Fields{
			"symbol": sig.Symbol,
			"needed": total.String(),
			"cash":   cash.String(),
		}).Debug("buy rejected: insufficient cash")
		return cash
	}

	open[sig.Symbol] = &openPosition{
		Position: strategy.Position{
			Symbol:       sig.Symbol,
			EntryPrice:   sig.Price,
			Quantity:     qty,
			EntryTime:    sig.Timestamp,
			StopLoss:     sig.StopLoss,
			TargetPrice:  sig.TargetPrice,
			HighestPrice: sig.Price,
			HighestHigh:  sig.Price,
			Stage:        sig.Stage,
		},
		entryCommission: commission,
	}
	return cash.Sub(total)
}

func (e *Executor) applySell(cash, rate decimal.Decimal, sig strategy.Signal, open map[string]*openPosition, res *Result) decimal.Decimal {
	pos, held := open[sig.Symbol]
	if !held {
		return cash
	}
	delete(open, sig.Symbol)

	qty := decimal.NewFromInt(pos.Quantity)
	proceeds := decimal.NewFromFloat(sig.Price).Mul(qty)
	exitCommission := proceeds.Mul(rate)

	gross := decimal.NewFromFloat(sig.Price - pos.EntryPrice).Mul(qty)
	pnl, _ := gross.Sub(pos.entryCommission).Sub(exitCommission).Float64()

	res.Trades = append(res.Trades, Trade{
		Symbol:      pos.Symbol,
		Stage:       pos.Stage,
		EntryTime:   pos.EntryTime,
		ExitTime:    sig.Timestamp,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   sig.Price,
		Quantity:    pos.Quantity,
		PnL:         pnl,
		HoldingDays: sig.Timestamp.Sub(pos.EntryTime).Hours() / 24,
	})
	return cash.Add(proceeds).Sub(exitCommission)
}

// markToMarket values the portfolio at ts: cash plus every open position at
// the last close known for its symbol at or before ts. A position with no
// usable bar falls back to its entry price.
func (e *Executor) markToMarket(cash decimal.Decimal, open map[string]*openPosition, bars map[string][]models.Bar, ts time.Time) decimal.Decimal {
	total := cash
	for symbol, pos := range open {
		price := lastCloseBefore(bars[symbol], ts)
		if price <= 0 {
			price = pos.EntryPrice
		}
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(pos.Quantity)))
	}
	return total
}

// lastCloseBefore returns the close of the last bar dated at or before ts.
// Bars must be in ascending date order. Zero when none qualify.
func lastCloseBefore(bars []models.Bar, ts time.Time) float64 {
	if len(bars) == 0 {
		return 0
	}
	if ts.IsZero() {
		return bars[len(bars)-1].Close
	}
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(ts)
	})
	if idx == 0 {
		return 0
	}
	return bars[idx-1].Close
}

func openList(open map[string]*openPosition) []strategy.Position {
	out := make([]strategy.Position, 0, len(open))
	for _, p := range open {
		out = append(out, p.Position)
	}
	return out
}
