package strategy

import "fmt"

// Kind selects a strategy variant
type Kind int

const (
	// KindBreakout is the staged breakout-continuation machine
	// (strong-K pattern).
	KindBreakout Kind = iota
	// KindConfirmation is trend-confirmation scoring over indicator
	// conditions.
	KindConfirmation
	// KindReversal is the pure price-volume bottom reversal, no indicator
	// dependency.
	KindReversal
)

// String returns the persisted strategy name
func (k Kind) String() string {
	switch k {
	case KindBreakout:
		return "STRONG_K_BREAKOUT"
	case KindConfirmation:
		return "TREND_CONFIRMATION"
	case KindReversal:
		return "BOTTOM_REVERSAL"
	default:
		return "UNKNOWN"
	}
}

// ParseKind resolves a configured strategy name
func ParseKind(s string) (Kind, error) {
	switch s {
	case "STRONG_K_BREAKOUT":
		return KindBreakout, nil
	case "TREND_CONFIRMATION":
		return KindConfirmation, nil
	case "BOTTOM_REVERSAL":
		return KindReversal, nil
	default:
		return 0, fmt.Errorf("unknown strategy variant %q", s)
	}
}

// BreakoutParams tunes the breakout-continuation variant. The thresholds are
// heuristics, not invariants; defaults follow DefaultBreakoutParams.
type BreakoutParams struct {
	// Bottom detection
	BottomWindow      int     // trailing window for the price percentile
	TrendWindow       int     // trailing window for the prior-decline test
	PricePercentile   float64 // close must sit below this percentile of the bottom window
	DeclineRatio      float64 // trailing max close / current close must exceed this
	VolumeContraction float64 // bottom-window avg volume vs trend-window avg volume
	VolumeRecovery    float64 // current volume vs bottom-window avg volume

	// Accumulation
	AccumulationWindow int     // trailing window scanned for the bullish run
	ConsecutiveBullish int     // minimum bullish run length
	VolumeSpikeCap     float64 // max volume ratio tolerated during accumulation

	// Left peak
	PeakWindow  int     // trailing window scanned for the peak high
	PullbackPct float64 // minimum pullback from the peak high
	MinAfterDip int     // minimum bars between peak and current

	// Volume-first
	VolumeFirstRatio float64 // volume ratio floor for the volume-first bar
	MinBodySize      float64 // minimum bullish body, fraction of open

	// Strong-K entry
	BreakoutVolumeRatio float64 // volume vs 20-bar average on the breakout bar
	RefPeakDiscount     float64 // close must exceed this fraction of the reference peak
	TargetAmplitude     float64 // target = close×(1 + TargetAmplitude×body amplitude)
	EntryConfidence     float64

	// Rally exits
	TrailingStopPct float64 // exit when close falls this far from the highest close

	ShortMAPeriod  int
	VolumeMAPeriod int
}

// DefaultBreakoutParams returns the stock thresholds for the breakout variant
func DefaultBreakoutParams() BreakoutParams {
	return BreakoutParams{
		BottomWindow:        30,
		TrendWindow:         60,
		PricePercentile:     0.3,
		DeclineRatio:        1.15,
		VolumeContraction:   0.7,
		VolumeRecovery:      1.5,
		AccumulationWindow:  10,
		ConsecutiveBullish:  3,
		VolumeSpikeCap:      2.5,
		PeakWindow:          20,
		PullbackPct:         0.08,
		MinAfterDip:         3,
		VolumeFirstRatio:    1.5,
		MinBodySize:         0.015,
		BreakoutVolumeRatio: 1.5,
		RefPeakDiscount:     0.95,
		TargetAmplitude:     3.0,
		EntryConfidence:     0.9,
		TrailingStopPct:     0.15,
		ShortMAPeriod:       20,
		VolumeMAPeriod:      20,
	}
}

// ConfirmationParams tunes the trend-confirmation variant
type ConfirmationParams struct {
	ShortMA  int
	MediumMA int
	LongMA   int

	MinConditions   int     // entry requires at least this many of the 7 conditions
	ADXThreshold    float64 // trend-strength floor
	VolumeRatio     float64 // current bar volume ratio floor
	PrevVolumeRatio float64 // previous bar volume ratio floor
	RSILow          float64
	RSIHigh         float64
	MaxVolatility   float64 // 20-bar close stddev / mean ceiling
	BreakoutLookback int    // bars scanned for a recent MA crossover

	StopLossPct     float64 // stop = close×(1 − StopLossPct)
	TargetPct       float64 // target = close×(1 + TargetPct)
	TrailingStopPct float64 // exit when close falls this far below entry
	EntryConfidence float64

	Warmup int // bars required before evaluation starts
}

// DefaultConfirmationParams returns the stock thresholds for the
// trend-confirmation variant
func DefaultConfirmationParams() ConfirmationParams {
	return ConfirmationParams{
		ShortMA:          20,
		MediumMA:         50,
		LongMA:           200,
		MinConditions:    5,
		ADXThreshold:     25,
		VolumeRatio:      1.5,
		PrevVolumeRatio:  1.2,
		RSILow:           50,
		RSIHigh:          70,
		MaxVolatility:    0.03,
		BreakoutLookback: 3,
		StopLossPct:      0.08,
		TargetPct:        0.2,
		TrailingStopPct:  0.10,
		EntryConfidence:  0.8,
		Warmup:           200,
	}
}

// ReversalParams tunes the bottom-reversal variant
type ReversalParams struct {
	// Bottom zone
	BottomWindow      int
	TrendWindow       int
	PricePercentile   float64
	DeclineRatio      float64
	VolumeContraction float64
	VolumeRecovery    float64

	// Reversal
	ConsecutiveBullish  int
	ReversalVolumeRatio float64 // volume vs 10-bar average on the reversal bar
	GainWindow          int
	MinGain             float64 // cumulative gain over the gain window

	// Confirmation
	ConfirmVolumeRatio float64 // volume vs 20-bar average

	StopLossPct        float64
	TargetPct          float64
	TrailingStopPct    float64 // exit when close falls this far from the highest high
	BearishVolumeRatio float64 // bearish bar with volume this far above the 10-bar average exits
	EntryConfidence    float64
}

// DefaultReversalParams returns the stock thresholds for the bottom-reversal
// variant
func DefaultReversalParams() ReversalParams {
	return ReversalParams{
		BottomWindow:        30,
		TrendWindow:         60,
		PricePercentile:     0.3,
		DeclineRatio:        1.15,
		VolumeContraction:   0.7,
		VolumeRecovery:      1.5,
		ConsecutiveBullish:  3,
		ReversalVolumeRatio: 2.0,
		GainWindow:          5,
		MinGain:             0.05,
		ConfirmVolumeRatio:  1.8,
		StopLossPct:         0.08,
		TargetPct:           0.3,
		TrailingStopPct:     0.10,
		BearishVolumeRatio:  2.0,
		EntryConfidence:     0.85,
	}
}
