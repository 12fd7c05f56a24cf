package strategy

import (
	"testing"
	"time"
)

func TestSignalRecordRoundTrip(t *testing.T) {
	orig := Signal{
		ID:          "sig-1",
		Symbol:      "sh.600519",
		Action:      ActionBuy,
		Price:       1820.5,
		Confidence:  0.8,
		Timestamp:   time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		Reason:      "strong K breakout",
		Stage:       StageStrongK,
		StopLoss:    1700,
		TargetPrice: 2000,
	}

	rec := orig.Record("breakout")
	if rec.Strategy != "breakout" {
		t.Errorf("got strategy %s, want breakout", rec.Strategy)
	}
	got := SignalFromRecord(rec)
	if got != orig {
		t.Errorf("round trip changed the signal:\n got %+v\nwant %+v", got, orig)
	}
}

func TestSignalFromRecordNilOptionals(t *testing.T) {
	sell := Signal{
		ID:        "sig-2",
		Symbol:    "sz.000001",
		Action:    ActionSell,
		Price:     11.2,
		Timestamp: time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC),
		Reason:    "stop loss hit",
	}

	got := SignalFromRecord(sell.Record("breakout"))
	if got.Stage != "" || got.StopLoss != 0 || got.TargetPrice != 0 {
		t.Errorf("expected zero optionals, got %+v", got)
	}
	if got != sell {
		t.Errorf("round trip changed the signal:\n got %+v\nwant %+v", got, sell)
	}
}
