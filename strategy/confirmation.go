package strategy

import (
	"fmt"
	"strings"

	"strongk-quant/indicator"

	models "strongk-quant/database/models_pkg"
)

// volatilityWindow is the trailing bar count for the volatility ceiling
// condition.
const volatilityWindow = 20

// evalConfirmation scores each bar against seven independent trend
// conditions and buys when enough of them line up at once. There is no
// stage ladder here, only flat versus in-position.
func (r *Runner) evalConfirmation(symbol string, bars []models.Bar, st *State) []Signal {
	p := r.cfg.Confirmation
	f := newConfirmationFrame(bars, p)

	var signals []Signal
	for i := p.Warmup; i < f.len(); i++ {
		if st.Position != nil {
			if sig, ok := r.confirmationExit(symbol, f, i, st); ok {
				signals = append(signals, sig)
			}
			continue
		}
		if r.openCount() >= r.cfg.MaxOpenPositions {
			continue
		}

		score, met := entryScore(f, i, p)
		if score < p.MinConditions {
			continue
		}

		close := f.close[i]
		sig := newSignal(symbol, ActionBuy, close, p.EntryConfidence, f.dates[i],
			fmt.Sprintf("%d/7 conditions: %s", score, strings.Join(met, ", ")))
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

// entryScore counts how many of the seven entry conditions hold on bar i
// and names the ones that do.
func entryScore(f *frame, i int, p ConfirmationParams) (int, []string) {
	var met []string

	if indicator.Defined(f.shortMA[i]) && indicator.Defined(f.mediumMA[i]) && indicator.Defined(f.longMA[i]) &&
		f.shortMA[i] > f.mediumMA[i] && f.mediumMA[i] > f.longMA[i] {
		met = append(met, "MA alignment")
	}

	if recentBreakout(f, i, p.BreakoutLookback) {
		met = append(met, "MA breakout")
	}

	if indicator.Defined(f.macdLine[i]) && indicator.Defined(f.macdSignal[i]) &&
		f.macdLine[i] > f.macdSignal[i] && f.macdLine[i] > 0 {
		met = append(met, "MACD bullish")
	}

	if indicator.Defined(f.adx[i]) && f.adx[i] > p.ADXThreshold {
		met = append(met, "strong trend")
	}

	if i > 0 && indicator.Defined(f.volRatio[i]) && indicator.Defined(f.volRatio[i-1]) &&
		f.volRatio[i] >= p.VolumeRatio && f.volRatio[i-1] >= p.PrevVolumeRatio {
		met = append(met, "volume expansion")
	}

	if indicator.Defined(f.rsi[i]) && f.rsi[i] > p.RSILow && f.rsi[i] < p.RSIHigh {
		met = append(met, "RSI mid-range")
	}

	if v := f.closeVolatility(i-volatilityWindow, i+1); v > 0 && v < p.MaxVolatility {
		met = append(met, "low volatility")
	}

	return len(met), met
}

// recentBreakout reports whether the close sits above the short MA now but
// was at or below it within the last lookback bars.
func recentBreakout(f *frame, i, lookback int) bool {
	if !indicator.Defined(f.shortMA[i]) || f.close[i] <= f.shortMA[i] {
		return false
	}
	for j := i - lookback; j < i; j++ {
		if j < 0 || !indicator.Defined(f.shortMA[j]) {
			continue
		}
		if f.close[j] <= f.shortMA[j] {
			return true
		}
	}
	return false
}

func (r *Runner) confirmationExit(symbol string, f *frame, i int, st *State) (Signal, bool) {
	p := r.cfg.Confirmation
	pos := st.Position

	if f.close[i] > pos.HighestPrice {
		pos.HighestPrice = f.close[i]
	}

	reason := ""
	switch {
	case f.close[i] <= pos.StopLoss:
		reason = "stop loss hit"
	case f.close[i] < pos.EntryPrice*(1-p.TrailingStopPct):
		reason = "trailing stop"
	case indicator.Defined(f.shortMA[i]) && f.close[i] < f.shortMA[i]:
		reason = "close below short MA"
	case indicator.Defined(f.macdLine[i]) && indicator.Defined(f.macdSignal[i]) &&
		f.macdLine[i] < f.macdSignal[i]:
		reason = "MACD death cross"
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
