// Package strategy implements the per-symbol stage state machines that turn
// ordered daily bars into BUY/SELL signals, and the risk-budgeted position
// sizer applied to entries.
package strategy

import (
	"time"

	"github.com/google/uuid"

	models "strongk-quant/database/models_pkg"
)

// Action is the direction of a signal
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Stage is the market stage a symbol is in. The breakout variant walks the
// full ladder; the other variants only use Watching (flat) and Rally
// (holding a position).
type Stage string

const (
	StageWatching     Stage = "WATCHING"
	StageBottom       Stage = "BOTTOM"
	StageAccumulation Stage = "ACCUMULATION"
	StageLeftPeak     Stage = "LEFT_PEAK"
	StageVolumeFirst  Stage = "VOLUME_FIRST"
	StageStrongK      Stage = "STRONG_K"
	StageRally        Stage = "RALLY"
)

// Signal is a single trading decision emitted by a strategy run. Signals are
// immutable and ordered by timestamp. Stage, StopLoss and TargetPrice are
// only populated where the variant defines them.
type Signal struct {
	ID          string
	Symbol      string
	Action      Action
	Price       float64
	Confidence  float64
	Timestamp   time.Time
	Reason      string
	Stage       Stage
	StopLoss    float64
	TargetPrice float64
}

// Record converts a signal into its persistence model
func (s Signal) Record(strategy string) models.StrategySignal {
	rec := models.StrategySignal{
		SignalID:    s.ID,
		GeneratedAt: s.Timestamp,
		Symbol:      s.Symbol,
		Strategy:    strategy,
		Action:      string(s.Action),
		Price:       s.Price,
		Confidence:  s.Confidence,
		Reason:      s.Reason,
	}
	if s.Stage != "" {
		stage := string(s.Stage)
		rec.Stage = &stage
	}
	if s.StopLoss > 0 {
		sl := s.StopLoss
		rec.StopLoss = &sl
	}
	if s.TargetPrice > 0 {
		tp := s.TargetPrice
		rec.TargetPrice = &tp
	}
	return rec
}

// SignalFromRecord rebuilds a signal from its persistence model, for
// replaying stored signals through the backtest executor.
func SignalFromRecord(rec models.StrategySignal) Signal {
	s := Signal{
		ID:         rec.SignalID,
		Symbol:     rec.Symbol,
		Action:     Action(rec.Action),
		Price:      rec.Price,
		Confidence: rec.Confidence,
		Timestamp:  rec.GeneratedAt,
		Reason:     rec.Reason,
	}
	if rec.Stage != nil {
		s.Stage = Stage(*rec.Stage)
	}
	if rec.StopLoss != nil {
		s.StopLoss = *rec.StopLoss
	}
	if rec.TargetPrice != nil {
		s.TargetPrice = *rec.TargetPrice
	}
	return s
}

// PeakMark records a left peak: the breakout reference level
type PeakMark struct {
	Price  float64
	Volume float64
	Date   time.Time
}

// VolumeFirstMark records a volume-first bar: volume broke the left peak's
// volume before price broke its price.
type VolumeFirstMark struct {
	Price        float64
	Volume       float64
	Date         time.Time
	RefPeakPrice float64 // left-peak price at mark time
}

// Position is an open holding tracked by a strategy run
type Position struct {
	Symbol       string
	EntryPrice   float64
	Quantity     int64
	EntryTime    time.Time
	StopLoss     float64
	TargetPrice  float64
	HighestPrice float64 // highest close since entry
	HighestHigh  float64 // highest high since entry
	Stage        Stage   // stage at entry time
}

// State is the mutable per-symbol strategy state. It is created on first
// evaluation of a symbol and cleared back to Watching on SELL or on stage
// regression.
type State struct {
	Stage       Stage
	LeftPeak    *PeakMark
	VolumeFirst *VolumeFirstMark
	Position    *Position
}

func newState() *State {
	return &State{Stage: StageWatching}
}

// resetProgress discards partial stage progress
func (s *State) resetProgress() {
	s.Stage = StageWatching
	s.LeftPeak = nil
	s.VolumeFirst = nil
}

func newSignal(symbol string, action Action, price, confidence float64, ts time.Time, reason string) Signal {
	return Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Action:     action,
		Price:      price,
		Confidence: confidence,
		Timestamp:  ts,
		Reason:     reason,
	}
}
