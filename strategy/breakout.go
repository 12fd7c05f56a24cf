package strategy

import (
	"fmt"

	"strongk-quant/indicator"

	models "strongk-quant/database/models_pkg"
)

// evalBreakout walks the staged breakout-continuation machine:
// WATCHING → BOTTOM → ACCUMULATION → LEFT_PEAK → VOLUME_FIRST → STRONG_K
// (BUY) → RALLY → (SELL) → WATCHING. Partial progress that stops matching
// any stage condition is discarded rather than left to go stale.
func (r *Runner) evalBreakout(symbol string, bars []models.Bar, st *State) []Signal {
	p := r.cfg.Breakout
	f := newBreakoutFrame(bars, p)

	var signals []Signal
	for i := p.TrendWindow; i < f.len(); i++ {
		if st.Position != nil {
			if sig, ok := r.breakoutExit(symbol, f, i, st); ok {
				signals = append(signals, sig)
			}
			continue
		}

		bottom := isBottom(f, i, p)
		peak := detectLeftPeak(f, i, p)

		if st.Stage == StageWatching && bottom {
			st.Stage = StageBottom
			st.LeftPeak = nil
			st.VolumeFirst = nil
			continue
		}
		if st.Stage == StageBottom && isAccumulation(f, i, p) {
			st.Stage = StageAccumulation
		}
		if peak != nil && (st.Stage == StageBottom || st.Stage == StageAccumulation) {
			st.Stage = StageLeftPeak
			st.LeftPeak = peak
		}

		// volume-first is evaluated after the peak may have been marked
		// this same bar
		vf := volumeFirstMark(f, i, st.LeftPeak, p)
		if vf != nil && st.Stage == StageLeftPeak {
			st.Stage = StageVolumeFirst
			st.VolumeFirst = vf
		}

		if st.Stage == StageVolumeFirst && r.openCount() < r.cfg.MaxOpenPositions {
			if sig, pos, ok := strongKEntry(symbol, f, i, st, p); ok {
				signals = append(signals, sig)
				st.Position = pos
				st.Stage = StageRally
				continue
			}
		}

		if !bottom && peak == nil && vf == nil &&
			st.Stage != StageWatching && st.Stage != StageRally {
			st.resetProgress()
		}
	}
	return signals
}

// isBottom tests the bottom condition: close in the low percentile of the
// trailing window, a prior decline of sufficient depth, contracted volume
// over the near window relative to the far window, and a volume pickup on
// the current bar.
func isBottom(f *frame, i int, p BreakoutParams) bool {
	if i < p.TrendWindow {
		return false
	}

	lowPrice := f.close[i] < f.closeQuantile(i-p.BottomWindow, i, p.PricePercentile)
	decline := f.close[i] > 0 && f.maxClose(i-p.TrendWindow, i)/f.close[i] > p.DeclineRatio

	nearVol := f.meanVolume(i-p.BottomWindow, i)
	farVol := f.meanVolume(i-p.TrendWindow, i)
	contracted := nearVol < farVol*p.VolumeContraction
	recovering := f.volume[i] > nearVol*p.VolumeRecovery

	return lowPrice && decline && contracted && recovering
}

// isAccumulation tests for a quiet bullish run: at least ConsecutiveBullish
// bullish bars ending at the previous bar, with no volume spike anywhere in
// the trailing window.
func isAccumulation(f *frame, i int, p BreakoutParams) bool {
	if i < p.AccumulationWindow {
		return false
	}

	run := 0
	for j := i - p.AccumulationWindow; j < i; j++ {
		if f.bullish(j) {
			run++
		} else {
			run = 0
		}
	}
	if run < p.ConsecutiveBullish {
		return false
	}

	defined := 0
	maxRatio := 0.0
	for j := i - p.AccumulationWindow; j < i; j++ {
		if !indicator.Defined(f.volRatio[j]) {
			continue
		}
		defined++
		if f.volRatio[j] > maxRatio {
			maxRatio = f.volRatio[j]
		}
	}
	return defined > 0 && maxRatio < p.VolumeSpikeCap
}

// detectLeftPeak finds the highest high in the trailing window and requires
// a pullback of at least PullbackPct from it, with a few bars between the
// peak and the current bar.
func detectLeftPeak(f *frame, i int, p BreakoutParams) *PeakMark {
	if i < p.PeakWindow {
		return nil
	}

	peakIdx := f.argmaxHigh(i-p.PeakWindow, i)
	if i-peakIdx < p.MinAfterDip {
		return nil
	}

	peakHigh := f.high[peakIdx]
	if peakHigh <= 0 {
		return nil
	}
	pullback := (peakHigh - f.minLow(peakIdx+1, i+1)) / peakHigh
	if pullback <= p.PullbackPct {
		return nil
	}

	return &PeakMark{
		Price:  peakHigh,
		Volume: f.volume[peakIdx],
		Date:   f.dates[peakIdx],
	}
}

// volumeFirstMark tests the volume-first precondition: a high-volume bullish
// bar whose volume already exceeds the left peak's volume while its close is
// still below the left peak's price.
func volumeFirstMark(f *frame, i int, peak *PeakMark, p BreakoutParams) *VolumeFirstMark {
	if peak == nil {
		return nil
	}
	if !indicator.Defined(f.volRatio[i]) || f.volRatio[i] <= p.VolumeFirstRatio {
		return nil
	}
	if !f.bullish(i) || f.body(i) <= p.MinBodySize {
		return nil
	}
	if f.close[i] >= peak.Price || f.volume[i] <= peak.Volume {
		return nil
	}

	return &VolumeFirstMark{
		Price:        f.close[i],
		Volume:       f.volume[i],
		Date:         f.dates[i],
		RefPeakPrice: peak.Price,
	}
}

// strongKEntry tests the breakout bar itself: heavy volume, close above the
// left peak and above the discounted volume-first reference, close above the
// short moving average. On success it emits the BUY and the position to
// hold.
func strongKEntry(symbol string, f *frame, i int, st *State, p BreakoutParams) (Signal, *Position, bool) {
	if st.LeftPeak == nil || st.VolumeFirst == nil {
		return Signal{}, nil, false
	}
	if !indicator.Defined(f.volRatio[i]) || f.volRatio[i] < p.BreakoutVolumeRatio {
		return Signal{}, nil, false
	}
	if f.close[i] <= st.LeftPeak.Price {
		return Signal{}, nil, false
	}
	if f.close[i] <= st.VolumeFirst.RefPeakPrice*p.RefPeakDiscount {
		return Signal{}, nil, false
	}
	if !indicator.Defined(f.shortMA[i]) || f.close[i] <= f.shortMA[i] {
		return Signal{}, nil, false
	}

	stopLoss := f.low[i]
	amplitude := 0.0
	if f.open[i] > 0 {
		amplitude = (f.close[i] - f.open[i]) / f.open[i]
	}
	target := f.close[i] * (1 + amplitude*p.TargetAmplitude)

	sig := newSignal(symbol, ActionBuy, f.close[i], p.EntryConfidence, f.dates[i],
		fmt.Sprintf("strong-K breakout: %.1fx volume above left peak %.2f", f.volRatio[i], st.LeftPeak.Price))
	sig.Stage = StageStrongK
	sig.StopLoss = stopLoss
	sig.TargetPrice = target

	pos := &Position{
		Symbol:       symbol,
		EntryPrice:   f.close[i],
		EntryTime:    f.dates[i],
		StopLoss:     stopLoss,
		TargetPrice:  target,
		HighestPrice: f.close[i],
		HighestHigh:  f.high[i],
		Stage:        StageStrongK,
	}
	return sig, pos, true
}

// breakoutExit checks the rally exits in priority order: hard stop, trailing
// drawdown from the highest close, target, then trend weakness on the short
// MA or a MACD cross-down. A SELL clears the position and all stage
// progress.
func (r *Runner) breakoutExit(symbol string, f *frame, i int, st *State) (Signal, bool) {
	p := r.cfg.Breakout
	pos := st.Position

	if f.close[i] > pos.HighestPrice {
		pos.HighestPrice = f.close[i]
	}

	reason := ""
	switch {
	case f.close[i] <= pos.StopLoss:
		reason = "stop loss hit"
	case pos.HighestPrice > 0 && (pos.HighestPrice-f.close[i])/pos.HighestPrice > p.TrailingStopPct:
		reason = "trailing stop"
	case f.close[i] >= pos.TargetPrice:
		reason = "target reached"
	case indicator.Defined(f.shortMA[i]) && f.close[i] < f.shortMA[i]:
		reason = "close below short MA"
	case indicator.Defined(f.macdLine[i]) && indicator.Defined(f.macdSignal[i]) &&
		f.macdLine[i] < f.macdSignal[i]:
		reason = "MACD cross-down"
	}
	if reason == "" {
		return Signal{}, false
	}

	sig := newSignal(symbol, ActionSell, f.close[i], 1.0, f.dates[i], reason)
	sig.Stage = st.Stage
	sig.StopLoss = pos.StopLoss
	sig.TargetPrice = pos.TargetPrice

	st.Position = nil
	st.resetProgress()
	return sig, true
}
