package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"strongk-quant/database/bars"
	models "strongk-quant/database/models_pkg"
)

// queryFetcher records the query each GetBars call receives
type queryFetcher struct {
	fakeFetcher
	queries []bars.Query
}

func (f *queryFetcher) GetBars(ctx context.Context, symbol string, q bars.Query) ([]models.Bar, error) {
	f.queries = append(f.queries, q)
	return f.fakeFetcher.GetBars(ctx, symbol, q)
}

func TestLoadBacktestBarsProjection(t *testing.T) {
	fetcher := &queryFetcher{fakeFetcher: fakeFetcher{bars: map[string][]models.Bar{
		"sh.600000": testBars("sh.600000", 3),
		"sz.000001": testBars("sz.000001", 2),
	}}}

	got, err := loadBacktestBars(context.Background(), fetcher, []string{"sh.600000", "sz.000001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got["sh.600000"]) != 3 || len(got["sz.000001"]) != 2 {
		t.Errorf("unexpected bar counts: %d, %d", len(got["sh.600000"]), len(got["sz.000001"]))
	}

	if len(fetcher.queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(fetcher.queries))
	}
	for _, q := range fetcher.queries {
		if q.Order != bars.Asc {
			t.Errorf("expected ascending order, got %v", q.Order)
		}
		if !reflect.DeepEqual(q.Fields, []string{"symbol", "date", "close"}) {
			t.Errorf("unexpected column projection: %v", q.Fields)
		}
	}
}

func TestLoadBacktestBarsFetchError(t *testing.T) {
	boom := errors.New("connection reset")
	fetcher := &queryFetcher{fakeFetcher: fakeFetcher{
		bars: map[string][]models.Bar{"sh.600000": testBars("sh.600000", 3)},
		errs: map[string]error{"sz.000001": boom},
	}}

	if _, err := loadBacktestBars(context.Background(), fetcher, []string{"sh.600000", "sz.000001"}); !errors.Is(err, boom) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestLoadBacktestBarsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &queryFetcher{}
	if _, err := loadBacktestBars(ctx, fetcher, []string{"sh.600000"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(fetcher.queries) != 0 {
		t.Errorf("expected no queries after cancellation, got %d", len(fetcher.queries))
	}
}
