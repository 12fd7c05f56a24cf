package backtest

import (
	"math"
	"time"

	"strongk-quant/strategy"
)

// tradingDaysPerYear scales the periodic Sharpe ratio
const tradingDaysPerYear = 252

// Stats are the derived performance numbers for one run
type Stats struct {
	TotalReturn        float64                  `json:"total_return"`
	AnnualizedReturn   float64                  `json:"annualized_return"`
	MaxDrawdown        float64                  `json:"max_drawdown"`
	SharpeRatio        float64                  `json:"sharpe_ratio"`
	TotalTrades        int                      `json:"total_trades"`
	WinRate            float64                  `json:"win_rate"`
	ProfitFactor       float64                  `json:"profit_factor"`
	AvgTradeReturn     float64                  `json:"avg_trade_return"`
	AvgHoldingDays     float64                  `json:"avg_holding_days"`
	StrongKSuccessRate float64                  `json:"strong_k_success_rate"`
	StageDistribution  map[strategy.Stage]int   `json:"stage_distribution,omitempty"`
}

func computeStats(res *Result) Stats {
	s := Stats{TotalTrades: len(res.Trades)}

	if res.InitialCapital > 0 {
		s.TotalReturn = res.FinalEquity/res.InitialCapital - 1
	}
	s.AnnualizedReturn = annualize(s.TotalReturn, res.StartDate, res.EndDate)
	s.MaxDrawdown = maxDrawdown(res.EquityCurve)
	s.SharpeRatio = sharpe(res.EquityCurve)

	wins, losses := 0, 0
	grossWin, grossLoss := 0.0, 0.0
	holding, tradeReturn := 0.0, 0.0
	strongK, strongKWins := 0, 0
	stages := make(map[strategy.Stage]int)

	for _, t := range res.Trades {
		if t.PnL > 0 {
			wins++
			grossWin += t.PnL
		} else {
			losses++
			grossLoss += -t.PnL
		}
		holding += t.HoldingDays
		if t.EntryPrice > 0 {
			tradeReturn += t.ExitPrice/t.EntryPrice - 1
		}
		if t.Stage != "" {
			stages[t.Stage]++
		}
		if t.Stage == strategy.StageStrongK {
			strongK++
			if t.PnL > 0 {
				strongKWins++
			}
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(wins) / float64(s.TotalTrades)
		s.AvgTradeReturn = tradeReturn / float64(s.TotalTrades)
		s.AvgHoldingDays = holding / float64(s.TotalTrades)
	}
	switch {
	case grossLoss > 0:
		s.ProfitFactor = grossWin / grossLoss
	case grossWin > 0:
		s.ProfitFactor = math.Inf(1)
	}
	if strongK > 0 {
		s.StrongKSuccessRate = float64(strongKWins) / float64(strongK)
	}
	if len(stages) > 0 {
		s.StageDistribution = stages
	}
	return s
}

// annualize converts a total return into a geometric annual rate over the
// elapsed calendar days. Returns the total unchanged when the span is
// degenerate.
func annualize(total float64, start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return total
	}
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, 365/days) - 1
}

// maxDrawdown is the largest peak-to-trough loss as a positive fraction of
// the running peak.
func maxDrawdown(curve []EquityPoint) float64 {
	peak := 0.0
	worst := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe is the annualized mean/stddev of point-to-point equity returns.
// Zero when there are too few samples or no variance.
func sharpe(curve []EquityPoint) float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Value > 0 {
			returns = append(returns, curve[i].Value/curve[i-1].Value-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance <= 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
