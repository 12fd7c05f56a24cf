package strategy

import (
	"fmt"

	models "strongk-quant/database/models_pkg"
)

// reversalShortWindow is the trailing bar count for the reversal-bar volume
// baseline.
const reversalShortWindow = 10

// reversalConfirmWindow is the trailing bar count for the final volume
// confirmation.
const reversalConfirmWindow = 20

// evalReversal trades the pure price-volume bottom reversal. Entry requires
// three independent gates on the same bar: the symbol sits in a bottom zone,
// a bullish reversal just completed, and the current bar's volume confirms
// it. No derived indicators are consulted.
func (r *Runner) evalReversal(symbol string, bars []models.Bar, st *State) []Signal {
	p := r.cfg.Reversal
	f := newReversalFrame(bars)

	var signals []Signal
	for i := p.TrendWindow; i < f.len(); i++ {
		if st.Position != nil {
			if sig, ok := r.reversalExit(symbol, f, i, st); ok {
				signals = append(signals, sig)
			}
			continue
		}
		if r.openCount() >= r.cfg.MaxOpenPositions {
			continue
		}

		if !inBottomZone(f, i, p) || !isReversal(f, i, p) {
			continue
		}
		if f.volume[i] <= p.ConfirmVolumeRatio*f.meanVolume(i-reversalConfirmWindow, i) {
			continue
		}

		close := f.close[i]
		sig := newSignal(symbol, ActionBuy, close, p.EntryConfidence, f.dates[i],
			"bottom reversal confirmed on volume")
		sig.StopLoss = close * (1 - p.StopLossPct)
		sig.TargetPrice = close * (1 + p.TargetPct)
		signals = append(signals, sig)

		st.Position = &Position{
			Symbol:       symbol,
			EntryPrice:   close,
			EntryTime:    f.dates[i],
			StopLoss:     sig.StopLoss,
			TargetPrice:  sig.TargetPrice,
			HighestPrice: close,
			HighestHigh:  f.high[i],
		}
	}
	return signals
}

// inBottomZone mirrors the breakout variant's bottom test: depressed price,
// a deep prior decline, contracted volume, and a pickup on the current bar.
func inBottomZone(f *frame, i int, p ReversalParams) bool {
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

// isReversal requires a bullish run ending at the previous bar, heavy volume
// on the current bar relative to the short baseline, and a minimum
// cumulative gain over the gain window.
func isReversal(f *frame, i int, p ReversalParams) bool {
	run := 0
	for j := i - 1; j >= 0 && f.bullish(j); j-- {
		run++
	}
	if run < p.ConsecutiveBullish {
		return false
	}

	if f.volume[i] <= p.ReversalVolumeRatio*f.meanVolume(i-reversalShortWindow, i) {
		return false
	}

	if i < p.GainWindow || f.close[i-p.GainWindow] <= 0 {
		return false
	}
	gain := f.close[i]/f.close[i-p.GainWindow] - 1
	return gain > p.MinGain
}

// reversalExit checks the hard stop, a trailing drawdown from the highest
// high since entry, and a heavy-volume bearish bar.
func (r *Runner) reversalExit(symbol string, f *frame, i int, st *State) (Signal, bool) {
	p := r.cfg.Reversal
	pos := st.Position

	if f.high[i] > pos.HighestHigh {
		pos.HighestHigh = f.high[i]
	}
	if f.close[i] > pos.HighestPrice {
		pos.HighestPrice = f.close[i]
	}

	reason := ""
	switch {
	case f.close[i] <= pos.StopLoss:
		reason = "stop loss hit"
	case f.close[i] <= pos.HighestHigh*(1-p.TrailingStopPct):
		reason = "trailing stop"
	case f.bearish(i) && f.volume[i] >= p.BearishVolumeRatio*f.meanVolume(i-reversalShortWindow, i):
		reason = fmt.Sprintf("bearish bar on %.1fx volume", p.BearishVolumeRatio)
	}
	if reason == "" {
		return Signal{}, false
	}

	sig := newSignal(symbol, ActionSell, f.close[i], 1.0, f.dates[i], reason)
	sig.StopLoss = pos.StopLoss
	sig.TargetPrice = pos.TargetPrice

	st.Position = nil
	return sig, true
}
