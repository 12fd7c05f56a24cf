package strategy

import (
	"math"
	"testing"
	"time"
)

// scoringFrame hand-builds a 25-bar frame whose last bar satisfies all
// seven entry conditions.
func scoringFrame() *frame {
	n := 25
	f := &frame{
		close:      make([]float64, n),
		shortMA:    nanFloats(n),
		mediumMA:   nanFloats(n),
		longMA:     nanFloats(n),
		volRatio:   nanFloats(n),
		rsi:        nanFloats(n),
		adx:        nanFloats(n),
		macdLine:   nanFloats(n),
		macdSignal: nanFloats(n),
	}
	for i := 0; i < n; i++ {
		// low-volatility closes around 100
		f.close[i] = 100 + 0.4*math.Sin(float64(i))
	}
	i := n - 1
	f.close[i] = 100.8
	f.shortMA[i] = 100.6
	f.mediumMA[i] = 100.2
	f.longMA[i] = 99.5
	// the close crossed the short MA within the last three bars
	f.close[i-1] = 100.4
	f.shortMA[i-1] = 100.3
	f.close[i-2] = 100.1
	f.shortMA[i-2] = 100.3
	f.close[i-3] = 100.2
	f.shortMA[i-3] = 100.3
	f.macdLine[i] = 0.5
	f.macdSignal[i] = 0.3
	f.adx[i] = 30
	f.volRatio[i] = 1.6
	f.volRatio[i-1] = 1.3
	f.rsi[i] = 60
	return f
}

func nanFloats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func TestEntryScoreAllConditions(t *testing.T) {
	f := scoringFrame()
	p := DefaultConfirmationParams()

	score, met := entryScore(f, f.len()-1, p)
	if score != 7 {
		t.Fatalf("got score %d (%v), want 7", score, met)
	}
}

func TestEntryScoreDegrades(t *testing.T) {
	p := DefaultConfirmationParams()

	tests := []struct {
		name  string
		spoil func(f *frame, i int)
	}{
		{"broken MA alignment", func(f *frame, i int) { f.longMA[i] = 101 }},
		{"no recent breakout", func(f *frame, i int) { f.close[i-1], f.close[i-2], f.close[i-3] = 101, 101, 101 }},
		{"MACD below zero", func(f *frame, i int) { f.macdLine[i], f.macdSignal[i] = -0.5, -0.7 }},
		{"weak trend", func(f *frame, i int) { f.adx[i] = 20 }},
		{"no volume expansion", func(f *frame, i int) { f.volRatio[i-1] = 1.0 }},
		{"overbought RSI", func(f *frame, i int) { f.rsi[i] = 75 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := scoringFrame()
			i := f.len() - 1
			tt.spoil(f, i)
			score, _ := entryScore(f, i, p)
			if score != 6 {
				t.Errorf("got score %d, want 6", score)
			}
		})
	}
}

func TestEntryScoreMinimumBoundary(t *testing.T) {
	p := DefaultConfirmationParams()

	f := scoringFrame()
	i := f.len() - 1
	f.adx[i] = 20
	f.rsi[i] = 75
	score, _ := entryScore(f, i, p)
	if score != 5 {
		t.Fatalf("got score %d, want 5", score)
	}
	if score < p.MinConditions {
		t.Errorf("score 5 must still clear the entry minimum %d", p.MinConditions)
	}

	f.volRatio[i-1] = 1.0
	score, _ = entryScore(f, i, p)
	if score != 4 {
		t.Fatalf("got score %d, want 4", score)
	}
	if score >= p.MinConditions {
		t.Errorf("score 4 must fall below the entry minimum %d", p.MinConditions)
	}
}

func TestEntryScoreVolatilityCeiling(t *testing.T) {
	f := scoringFrame()
	i := f.len() - 1
	// violent swings blow through the volatility ceiling
	for j := 0; j < i-3; j++ {
		f.close[j] = 100 + 20*math.Sin(float64(j))
	}
	score, _ := entryScore(f, i, DefaultConfirmationParams())
	if score != 6 {
		t.Errorf("got score %d, want 6 with volatility condition failed", score)
	}
}

func TestEntryScoreUndefinedIndicators(t *testing.T) {
	f := scoringFrame()
	i := f.len() - 1
	f.adx[i] = math.NaN()
	f.rsi[i] = math.NaN()
	f.macdLine[i] = math.NaN()
	score, _ := entryScore(f, i, DefaultConfirmationParams())
	if score != 4 {
		t.Errorf("got score %d, want 4 with undefined indicators skipped", score)
	}
}

func TestConfirmationExitPriority(t *testing.T) {
	r := NewRunner(DefaultConfig(KindConfirmation), testLogger())

	newFrame := func(close float64) *frame {
		f := &frame{
			dates:      []time.Time{barDate(0)},
			close:      []float64{close},
			shortMA:    nanFloats(1),
			mediumMA:   nanFloats(1),
			macdLine:   nanFloats(1),
			macdSignal: nanFloats(1),
		}
		return f
	}

	st := newState()
	st.Position = &Position{Symbol: "sh.600000", EntryPrice: 100, StopLoss: 92, TargetPrice: 120, HighestPrice: 100}

	// above the stop and inside the trailing band: no exit
	if _, ok := r.confirmationExit("sh.600000", newFrame(95), 0, st); ok {
		t.Fatal("no exit expected at 95")
	}

	// at the stop: hard stop fires
	sig, ok := r.confirmationExit("sh.600000", newFrame(92), 0, st)
	if !ok || sig.Reason != "stop loss hit" {
		t.Fatalf("got (%v, %v), want stop loss exit", sig.Reason, ok)
	}
	if st.Position != nil {
		t.Error("position should be closed after the exit")
	}

	// trailing stop: below 90% of entry but above the hard stop
	st.Position = &Position{Symbol: "sh.600000", EntryPrice: 104, StopLoss: 92, TargetPrice: 120, HighestPrice: 104}
	sig, ok = r.confirmationExit("sh.600000", newFrame(93), 0, st)
	if !ok || sig.Reason != "trailing stop" {
		t.Fatalf("got (%v, %v), want trailing stop exit", sig.Reason, ok)
	}

	// below the 20-day MA: exits even while still above the 50-day MA
	st.Position = &Position{Symbol: "sh.600000", EntryPrice: 100, StopLoss: 92, TargetPrice: 120, HighestPrice: 100}
	f := newFrame(99)
	f.shortMA[0] = 100
	f.mediumMA[0] = 98
	sig, ok = r.confirmationExit("sh.600000", f, 0, st)
	if !ok || sig.Reason != "close below short MA" {
		t.Fatalf("got (%v, %v), want short MA exit", sig.Reason, ok)
	}

	// MACD death cross
	st.Position = &Position{Symbol: "sh.600000", EntryPrice: 100, StopLoss: 92, TargetPrice: 120, HighestPrice: 100}
	f = newFrame(99)
	f.macdLine[0], f.macdSignal[0] = -0.2, 0.1
	sig, ok = r.confirmationExit("sh.600000", f, 0, st)
	if !ok || sig.Reason != "MACD death cross" {
		t.Fatalf("got (%v, %v), want MACD death cross exit", sig.Reason, ok)
	}
}
