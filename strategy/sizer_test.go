package strategy

import "testing"

func defaultSizer() Sizer {
	return NewSizer(0.02, 0.10, 0.95, 100, 1.2)
}

func TestSizeRiskBounded(t *testing.T) {
	s := defaultSizer()
	// risk per share 4, max risk 2000 -> 500; cash allows 1900
	got := s.Size(100_000, 50, 46, StageWatching, nil)
	if got != 500 {
		t.Errorf("got %d, want 500", got)
	}
}

func TestSizeZeroRiskPerShare(t *testing.T) {
	s := defaultSizer()
	if got := s.Size(100_000, 50, 50, StageWatching, nil); got != 0 {
		t.Errorf("stop at entry: got %d, want 0", got)
	}
	if got := s.Size(100_000, 50, 55, StageWatching, nil); got != 0 {
		t.Errorf("stop above entry: got %d, want 0", got)
	}
	if got := s.Size(100_000, 0, -1, StageWatching, nil); got != 0 {
		t.Errorf("zero price: got %d, want 0", got)
	}
}

func TestSizeCashBounded(t *testing.T) {
	s := defaultSizer()
	// max risk 2000, risk per share 0.5 -> 4000 by risk, but cash caps at
	// floor(100000*0.95/100) = 950
	got := s.Size(100_000, 100, 99.5, StageWatching, nil)
	if got != 950 {
		t.Errorf("got %d, want 950", got)
	}
}

func TestSizeAggregateBudget(t *testing.T) {
	s := defaultSizer()
	open := []Position{
		{Symbol: "sh.600000", EntryPrice: 20, StopLoss: 18, Quantity: 3000}, // 6000 at risk
		{Symbol: "sz.000001", EntryPrice: 10, StopLoss: 9, Quantity: 3000},  // 3000 at risk
	}
	// ceiling 10000, committed 9000, remaining 1000 -> floor(1000/4) = 250
	got := s.Size(100_000, 50, 46, StageWatching, open)
	if got != 250 {
		t.Errorf("got %d, want 250", got)
	}

	// budget exhausted
	open = append(open, Position{Symbol: "sh.600519", EntryPrice: 30, StopLoss: 29, Quantity: 1000})
	if got := s.Size(100_000, 50, 46, StageWatching, open); got != 0 {
		t.Errorf("exhausted budget: got %d, want 0", got)
	}
}

func TestSizeMinimumLot(t *testing.T) {
	s := defaultSizer()
	// risk-based size floor(2000/400)=5 for a 500-priced stock, lot floor
	// is max(1, floor(100/500)) = 1, so the risk size stands
	if got := s.Size(100_000, 500, 100, StageWatching, nil); got != 5 {
		t.Errorf("got %d, want 5", got)
	}

	// a tiny risk budget on a cheap stock is raised to the minimum lot:
	// risk size floor(1/1)=1, lot floor max(1, floor(100/2)) = 50
	tiny := NewSizer(0.00001, 0.10, 0.95, 100, 1.2)
	if got := tiny.Size(100_000, 2, 1, StageWatching, nil); got != 50 {
		t.Errorf("min lot: got %d, want 50", got)
	}
}

func TestSizeStrongKBoost(t *testing.T) {
	s := defaultSizer()
	// strong-K entries scale the per-trade budget: floor(2000*1.2/4) = 600
	if got := s.Size(100_000, 50, 46, StageStrongK, nil); got != 600 {
		t.Errorf("boosted: got %d, want 600", got)
	}
	// any other stage sizes at the base budget
	if got := s.Size(100_000, 50, 46, StageRally, nil); got != 500 {
		t.Errorf("unboosted: got %d, want 500", got)
	}

	// a zero boost leaves strong-K entries at the base budget
	flat := NewSizer(0.02, 0.10, 0.95, 100, 0)
	if got := flat.Size(100_000, 50, 46, StageStrongK, nil); got != 500 {
		t.Errorf("zero boost: got %d, want 500", got)
	}
}
