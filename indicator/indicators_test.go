package indicator

import (
	"testing"

	talib "github.com/markcheno/go-talib"
)

func ohlcWave(n int) (high, low, close []float64) {
	close = wave(n)
	high = make([]float64, n)
	low = make([]float64, n)
	for i := range close {
		high[i] = close[i] + 1.5
		low[i] = close[i] - 1.5
	}
	return high, low, close
}

func TestCCIFlatWindowUndefined(t *testing.T) {
	n := 30
	flat := make([]float64, n)
	for i := range flat {
		flat[i] = 42.0
	}
	out := CCI(flat, flat, flat, 14, 0.015)
	for i, v := range out {
		if Defined(v) {
			t.Errorf("index %d: flat window should leave CCI undefined, got %v", i, v)
		}
	}
}

func TestCCIMatchesReference(t *testing.T) {
	high, low, close := ohlcWave(80)
	got := CCI(high, low, close, 14, 0.015)
	want := talib.Cci(high, low, close, 14)
	for i := 13; i < len(close); i++ {
		within(t, "cci", got[i], want[i], 1e-6)
	}
}

func TestRSIMatchesReference(t *testing.T) {
	values := wave(100)
	got := RSI(values, 14)
	want := talib.Rsi(values, 14)
	for i := 14; i < len(values); i++ {
		within(t, "rsi", got[i], want[i], 1e-9)
	}
}

func TestRSIBounds(t *testing.T) {
	out := RSI(wave(120), 14)
	for i, v := range out {
		if !Defined(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("index %d: RSI %v out of [0,100]", i, v)
		}
	}
}

func TestRSIFlatSeriesNeutral(t *testing.T) {
	n := 40
	flat := make([]float64, n)
	for i := range flat {
		flat[i] = 100.0
	}
	out := RSI(flat, 14)
	for i := 14; i < n; i++ {
		within(t, "rsi flat", out[i], 50, 0)
	}
}

func TestMACDStructure(t *testing.T) {
	values := wave(120)
	line, sig, hist := MACD(values, 12, 26, 9)

	fast := EMA(values, 12)
	slow := EMA(values, 26)
	for i := 25; i < len(values); i++ {
		within(t, "macd line", line[i], fast[i]-slow[i], 1e-12)
	}

	// signal warms up over the first defined MACD values
	firstSig := 26 + 9 - 2
	for i := 0; i < firstSig; i++ {
		if Defined(sig[i]) {
			t.Errorf("index %d: signal defined before warmup", i)
		}
	}
	for i := firstSig; i < len(values); i++ {
		if !Defined(sig[i]) {
			t.Fatalf("index %d: signal undefined after warmup", i)
		}
		within(t, "macd hist", hist[i], line[i]-sig[i], 1e-12)
	}
}

func TestKDJHandComputed(t *testing.T) {
	high := []float64{10, 11, 12, 13}
	low := []float64{8, 9, 10, 11}
	close := []float64{9, 10.5, 11.5, 12.5}

	k, d, j := KDJ(high, low, close, 3, 3, 3)

	if Defined(k[0]) || Defined(k[1]) {
		t.Error("warmup K values should be undefined")
	}
	// rsv[2] = (11.5-8)/4*100 = 87.5, smoothed from the 50/50 seed
	within(t, "k[2]", k[2], 62.5, 1e-9)
	within(t, "d[2]", d[2], 54.166666666666664, 1e-9)
	within(t, "j[2]", j[2], 79.16666666666667, 1e-9)
	// rsv[3] = (12.5-9)/4*100 = 87.5
	within(t, "k[3]", k[3], 70.83333333333333, 1e-9)
	within(t, "d[3]", d[3], 59.72222222222222, 1e-9)
	within(t, "j[3]", j[3], 93.05555555555556, 1e-9)
}

func TestKDJFlatWindowSkips(t *testing.T) {
	high := []float64{10, 10, 10, 12, 13}
	low := []float64{10, 10, 10, 10, 11}
	close := []float64{10, 10, 10, 11, 12}

	k, d, j := KDJ(high, low, close, 3, 3, 3)

	// bars 0-2 form a zero-range window
	if Defined(k[2]) || Defined(d[2]) || Defined(j[2]) {
		t.Error("zero-range window should leave KDJ undefined")
	}
	// the recursion resumes from the seed on the next usable bar
	if !Defined(k[3]) || !Defined(k[4]) {
		t.Error("KDJ should be defined once the range opens up")
	}
}

func TestBollingerMatchesReference(t *testing.T) {
	values := wave(90)
	upper, middle, lower := Bollinger(values, 20, 2.0)
	wantUpper, wantMiddle, wantLower := talib.BBands(values, 20, 2.0, 2.0, talib.SMA)
	for i := 19; i < len(values); i++ {
		within(t, "boll upper", upper[i], wantUpper[i], 1e-9)
		within(t, "boll middle", middle[i], wantMiddle[i], 1e-9)
		within(t, "boll lower", lower[i], wantLower[i], 1e-9)
	}
}

func TestADXWarmupAndRange(t *testing.T) {
	high, low, close := ohlcWave(90)
	out := ADX(high, low, close, 14)

	for i := 0; i < 27; i++ {
		if Defined(out[i]) {
			t.Errorf("index %d: ADX defined before warmup", i)
		}
	}
	for i := 27; i < len(out); i++ {
		if !Defined(out[i]) {
			t.Fatalf("index %d: ADX undefined after warmup", i)
		}
		if out[i] < 0 || out[i] > 100 {
			t.Errorf("index %d: ADX %v out of [0,100]", i, out[i])
		}
	}
}

func TestADXMonotonicTrendSaturates(t *testing.T) {
	n := 60
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		close[i] = 100 + float64(i)
		high[i] = close[i] + 1
		low[i] = close[i] - 1
	}
	out := ADX(high, low, close, 14)
	// every bar moves up, so DX is 100 throughout
	for i := 27; i < n; i++ {
		within(t, "adx", out[i], 100, 1e-9)
	}
}

func TestADXShortInput(t *testing.T) {
	high, low, close := ohlcWave(20)
	out := ADX(high, low, close, 14)
	for i, v := range out {
		if Defined(v) {
			t.Errorf("index %d: expected undefined on short input, got %v", i, v)
		}
	}
}
