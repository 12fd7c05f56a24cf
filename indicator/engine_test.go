package indicator

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"strongk-quant/database/bars"
	models "strongk-quant/database/models_pkg"
)

// fakeStore backs the engine with in-memory bars and records, mirroring the
// repository query semantics.
type fakeStore struct {
	bars    []models.Bar // ascending by date
	records map[time.Time]models.IndicatorRecord
	info    *models.SymbolInfo
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[time.Time]models.IndicatorRecord)}
}

func (f *fakeStore) GetBars(_ context.Context, _ string, q bars.Query) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range f.bars {
		if !q.Start.IsZero() && b.Date.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && b.Date.After(q.End) {
			continue
		}
		out = append(out, b)
	}
	if q.Order == bars.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetSymbolInfo(_ context.Context, _ string) (*models.SymbolInfo, error) {
	if f.info == nil {
		return nil, errors.New("record not found")
	}
	return f.info, nil
}

func (f *fakeStore) UpsertRecords(_ context.Context, recs []models.IndicatorRecord) error {
	f.upserts++
	for _, r := range recs {
		f.records[r.Date] = r
	}
	return nil
}

func (f *fakeStore) LatestDate(_ context.Context, _ string) (time.Time, bool, error) {
	var latest time.Time
	for d := range f.records {
		if d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero(), nil
}

func (f *fakeStore) LatestCompleteDate(_ context.Context, _ string) (time.Time, bool, error) {
	var latest time.Time
	for d, r := range f.records {
		if !recordComplete(r) {
			continue
		}
		if d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero(), nil
}

func recordComplete(r models.IndicatorRecord) bool {
	for _, p := range []*float64{
		r.CCI, r.RSI, r.MACDLine, r.MACDSignal, r.MACDHist,
		r.KDJK, r.KDJD, r.KDJJ, r.BollUpper, r.BollMiddle, r.BollLower,
	} {
		if p == nil {
			return false
		}
	}
	return true
}

func testConfig() Config {
	return Config{
		CCIPeriod:      14,
		CCIConstant:    0.015,
		CCIPeriodST:    20,
		CCIConstantST:  0.02,
		RSIPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		KDJPeriod:      9,
		KDJKSmooth:     3,
		KDJDSmooth:     3,
		BollPeriod:     20,
		BollMultiplier: 2.0,
		LookbackFactor: 3,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func makeBars(n int) []models.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	close := wave(n)
	out := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = models.Bar{
			Symbol: "sh.600000",
			Date:   base.AddDate(0, 0, i),
			Open:   close[i] - 0.5,
			High:   close[i] + 1.5,
			Low:    close[i] - 1.5,
			Close:  close[i],
			Volume: 1_000_000,
		}
	}
	return out
}

func TestComputeIncrementalIdempotent(t *testing.T) {
	store := newFakeStore()
	store.bars = makeBars(80)
	eng := NewEngine(testConfig(), store, store, store, quietLogger())
	ctx := context.Background()

	n, err := eng.ComputeIncremental(ctx, "sh.600000")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if n != 80 {
		t.Errorf("first run: got %d new records, want 80", n)
	}
	if len(store.records) != 80 {
		t.Errorf("stored %d records, want 80", len(store.records))
	}

	last := store.bars[79].Date
	if !recordComplete(store.records[last]) {
		t.Error("latest record should have every indicator column set")
	}
	first := store.bars[0].Date
	if recordComplete(store.records[first]) {
		t.Error("warmup record should have null indicator columns")
	}

	// re-running with no new bars writes nothing new
	n, err = eng.ComputeIncremental(ctx, "sh.600000")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Errorf("second run: got %d new records, want 0", n)
	}
}

func TestComputeIncrementalPicksUpNewBars(t *testing.T) {
	store := newFakeStore()
	store.bars = makeBars(85)[:80]
	eng := NewEngine(testConfig(), store, store, store, quietLogger())
	ctx := context.Background()

	if _, err := eng.ComputeIncremental(ctx, "sh.600000"); err != nil {
		t.Fatal(err)
	}

	store.bars = makeBars(85)
	n, err := eng.ComputeIncremental(ctx, "sh.600000")
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("got %d new records, want 5", n)
	}

	// values for the new dates must match a from-scratch computation
	fresh := newFakeStore()
	fresh.bars = makeBars(85)
	if _, err := NewEngine(testConfig(), fresh, fresh, fresh, quietLogger()).ComputeIncremental(ctx, "sh.600000"); err != nil {
		t.Fatal(err)
	}
	for i := 80; i < 85; i++ {
		d := fresh.bars[i].Date
		a, b := store.records[d], fresh.records[d]
		if (a.CCI == nil) != (b.CCI == nil) {
			t.Fatalf("date %v: CCI definedness diverged", d)
		}
		if a.CCI != nil && *a.CCI != *b.CCI {
			t.Errorf("date %v: incremental CCI %v, full %v", d, *a.CCI, *b.CCI)
		}
		if a.MACDSignal != nil && *a.MACDSignal != *b.MACDSignal {
			t.Errorf("date %v: incremental MACD signal %v, full %v", d, *a.MACDSignal, *b.MACDSignal)
		}
	}
}

func TestComputeIncrementalNoBars(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(testConfig(), store, store, store, quietLogger())

	n, err := eng.ComputeIncremental(context.Background(), "sh.600000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d, want 0", n)
	}
}

func TestComputeIncrementalShortHistoryStoresPartial(t *testing.T) {
	store := newFakeStore()
	store.bars = makeBars(10)
	eng := NewEngine(testConfig(), store, store, store, quietLogger())

	n, err := eng.ComputeIncremental(context.Background(), "sh.600000")
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("got %d new records, want 10", n)
	}
	for d, r := range store.records {
		if recordComplete(r) {
			t.Errorf("date %v: no indicator can be defined on 10 bars", d)
		}
	}
}

func TestSpecialTreatmentUsesWiderCCIWindow(t *testing.T) {
	ctx := context.Background()

	normal := newFakeStore()
	normal.bars = makeBars(18)
	if _, err := NewEngine(testConfig(), normal, normal, normal, quietLogger()).ComputeIncremental(ctx, "sh.600000"); err != nil {
		t.Fatal(err)
	}

	st := newFakeStore()
	st.bars = makeBars(18)
	st.info = &models.SymbolInfo{Symbol: "sh.600000", IsST: true}
	if _, err := NewEngine(testConfig(), st, st, st, quietLogger()).ComputeIncremental(ctx, "sh.600000"); err != nil {
		t.Fatal(err)
	}

	// bar 14 satisfies the 14-day window but not the 20-day ST window
	d := normal.bars[13].Date
	if normal.records[d].CCI == nil {
		t.Error("normal symbol: CCI should be defined at the 14th bar")
	}
	if st.records[d].CCI != nil {
		t.Error("ST symbol: CCI should still be undefined at the 14th bar")
	}
	if got := normal.records[d].CCIPeriod; got != 14 {
		t.Errorf("normal symbol: got cci_period %d, want 14", got)
	}
	if got := st.records[d].CCIPeriod; got != 20 {
		t.Errorf("ST symbol: got cci_period %d, want 20", got)
	}
}
