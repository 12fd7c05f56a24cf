package backtest

import (
	"math"
	"testing"
	"time"

	"strongk-quant/strategy"
)

func TestAnnualize(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		total float64
		start time.Time
		end   time.Time
		want  float64
	}{
		{"one year unchanged", 0.10, start, start.AddDate(1, 0, 0), 0.10},
		{"quarter compounds", 0.10, start, start.AddDate(0, 0, 91), math.Pow(1.10, 365.0/91) - 1},
		{"zero span passes through", 0.25, time.Time{}, time.Time{}, 0.25},
		{"total wipeout floors", -1, start, start.AddDate(1, 0, 0), -1},
	}
	for _, tt := range tests {
		got := annualize(tt.total, tt.start, tt.end)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := []EquityPoint{
		{Value: 100}, {Value: 120}, {Value: 90}, {Value: 110},
	}
	// 120 -> 90 is the worst fall: 30/120
	if got := maxDrawdown(curve); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("got drawdown %v, want 0.25", got)
	}
	if got := maxDrawdown(nil); got != 0 {
		t.Errorf("got drawdown %v for empty curve, want 0", got)
	}
	rising := []EquityPoint{{Value: 100}, {Value: 105}, {Value: 111}}
	if got := maxDrawdown(rising); got != 0 {
		t.Errorf("got drawdown %v for monotone curve, want 0", got)
	}
}

func TestSharpeDegenerateCases(t *testing.T) {
	if got := sharpe([]EquityPoint{{Value: 100}, {Value: 110}}); got != 0 {
		t.Errorf("got %v with a single return, want 0", got)
	}
	flat := []EquityPoint{{Value: 100}, {Value: 100}, {Value: 100}}
	if got := sharpe(flat); got != 0 {
		t.Errorf("got %v with no variance, want 0", got)
	}
}

func TestSharpeAnnualization(t *testing.T) {
	curve := []EquityPoint{{Value: 100}, {Value: 110}, {Value: 99}, {Value: 108.9}}
	returns := []float64{0.10, -0.10, 0.10}

	mean := (0.10 - 0.10 + 0.10) / 3
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= 2
	want := mean / math.Sqrt(variance) * math.Sqrt(252)

	if got := sharpe(curve); math.Abs(got-want) > 1e-6 {
		t.Errorf("got sharpe %v, want %v", got, want)
	}
}

func TestComputeStatsAggregates(t *testing.T) {
	res := &Result{
		InitialCapital: 10_000,
		FinalEquity:    11_000,
		Trades: []Trade{
			{Stage: strategy.StageStrongK, EntryPrice: 10, ExitPrice: 14, PnL: 800, HoldingDays: 4},
			{Stage: strategy.StageStrongK, EntryPrice: 10, ExitPrice: 9, PnL: -200, HoldingDays: 2},
			{Stage: strategy.StageRally, EntryPrice: 20, ExitPrice: 24, PnL: 400, HoldingDays: 6},
		},
	}
	s := computeStats(res)

	if math.Abs(s.TotalReturn-0.10) > 1e-9 {
		t.Errorf("got total return %v, want 0.10", s.TotalReturn)
	}
	if math.Abs(s.WinRate-2.0/3.0) > 1e-9 {
		t.Errorf("got win rate %v, want 2/3", s.WinRate)
	}
	if math.Abs(s.ProfitFactor-6.0) > 1e-9 {
		t.Errorf("got profit factor %v, want 6", s.ProfitFactor)
	}
	if math.Abs(s.AvgTradeReturn-0.5/3) > 1e-9 {
		t.Errorf("got avg trade return %v, want %v", s.AvgTradeReturn, 0.5/3)
	}
	if math.Abs(s.AvgHoldingDays-4.0) > 1e-9 {
		t.Errorf("got avg holding %v, want 4", s.AvgHoldingDays)
	}
	if math.Abs(s.StrongKSuccessRate-0.5) > 1e-9 {
		t.Errorf("got strong-K rate %v, want 0.5", s.StrongKSuccessRate)
	}
	if s.StageDistribution[strategy.StageStrongK] != 2 || s.StageDistribution[strategy.StageRally] != 1 {
		t.Errorf("got stage distribution %v", s.StageDistribution)
	}
}
