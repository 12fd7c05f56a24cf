package strategy

import (
	"math"
	"sort"
	"time"

	models "strongk-quant/database/models_pkg"

	"strongk-quant/indicator"
)

// frame holds the per-bar series a variant evaluates against. Building it
// once per GenerateSignals call keeps the bar walk itself allocation-free.
type frame struct {
	dates  []time.Time
	open   []float64
	high   []float64
	low    []float64
	close  []float64
	volume []float64

	shortMA  []float64
	mediumMA []float64
	longMA   []float64

	volMA20  []float64
	volRatio []float64 // volume / 20-bar volume average

	rsi        []float64
	adx        []float64
	macdLine   []float64
	macdSignal []float64
	macdHist   []float64
}

func baseFrame(bars []models.Bar) *frame {
	n := len(bars)
	f := &frame{
		dates:  make([]time.Time, n),
		open:   make([]float64, n),
		high:   make([]float64, n),
		low:    make([]float64, n),
		close:  make([]float64, n),
		volume: make([]float64, n),
	}
	for i, b := range bars {
		f.dates[i] = b.Date
		f.open[i] = b.Open
		f.high[i] = b.High
		f.low[i] = b.Low
		f.close[i] = b.Close
		f.volume[i] = b.Volume
	}
	return f
}

func (f *frame) withVolumeRatio(period int) {
	f.volMA20 = indicator.SMA(f.volume, period)
	f.volRatio = make([]float64, len(f.volume))
	for i := range f.volume {
		if indicator.Defined(f.volMA20[i]) && f.volMA20[i] > 0 {
			f.volRatio[i] = f.volume[i] / f.volMA20[i]
		} else {
			f.volRatio[i] = math.NaN()
		}
	}
}

func newBreakoutFrame(bars []models.Bar, p BreakoutParams) *frame {
	f := baseFrame(bars)
	f.shortMA = indicator.SMA(f.close, p.ShortMAPeriod)
	f.withVolumeRatio(p.VolumeMAPeriod)
	f.macdLine, f.macdSignal, f.macdHist = indicator.MACD(f.close, 12, 26, 9)
	return f
}

func newConfirmationFrame(bars []models.Bar, p ConfirmationParams) *frame {
	f := baseFrame(bars)
	f.shortMA = indicator.SMA(f.close, p.ShortMA)
	f.mediumMA = indicator.SMA(f.close, p.MediumMA)
	f.longMA = indicator.SMA(f.close, p.LongMA)
	f.withVolumeRatio(20)
	f.rsi = indicator.RSI(f.close, 14)
	f.adx = indicator.ADX(f.high, f.low, f.close, 14)
	f.macdLine, f.macdSignal, f.macdHist = indicator.MACD(f.close, 12, 26, 9)
	return f
}

func newReversalFrame(bars []models.Bar) *frame {
	// price-volume only, no derived indicators
	return baseFrame(bars)
}

func (f *frame) len() int { return len(f.close) }

func (f *frame) bullish(i int) bool { return f.close[i] > f.open[i] }
func (f *frame) bearish(i int) bool { return f.close[i] < f.open[i] }

// body returns the bar's body size as a fraction of its open
func (f *frame) body(i int) float64 {
	if f.open[i] == 0 {
		return 0
	}
	return math.Abs(f.close[i]-f.open[i]) / f.open[i]
}

// meanVolume averages volume over [from, to), clamping from at zero
func (f *frame) meanVolume(from, to int) float64 {
	if from < 0 {
		from = 0
	}
	if to <= from {
		return math.NaN()
	}
	var sum float64
	for i := from; i < to; i++ {
		sum += f.volume[i]
	}
	return sum / float64(to-from)
}

// maxClose returns the highest close over [from, to)
func (f *frame) maxClose(from, to int) float64 {
	hi := f.close[from]
	for i := from + 1; i < to; i++ {
		if f.close[i] > hi {
			hi = f.close[i]
		}
	}
	return hi
}

// minLow returns the lowest low over [from, to)
func (f *frame) minLow(from, to int) float64 {
	lo := f.low[from]
	for i := from + 1; i < to; i++ {
		if f.low[i] < lo {
			lo = f.low[i]
		}
	}
	return lo
}

// argmaxHigh returns the index of the highest high over [from, to)
func (f *frame) argmaxHigh(from, to int) int {
	best := from
	for i := from + 1; i < to; i++ {
		if f.high[i] > f.high[best] {
			best = i
		}
	}
	return best
}

// closeQuantile returns the q-quantile of closes over [from, to) with
// linear interpolation between order statistics.
func (f *frame) closeQuantile(from, to int, q float64) float64 {
	window := make([]float64, to-from)
	copy(window, f.close[from:to])
	sort.Float64s(window)

	h := q * float64(len(window)-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return window[lo]
	}
	return window[lo] + (h-float64(lo))*(window[hi]-window[lo])
}

// closeVolatility returns stddev/mean of closes over [from, to) using the
// sample standard deviation.
func (f *frame) closeVolatility(from, to int) float64 {
	n := to - from
	if n < 2 {
		return 0
	}
	var sum float64
	for i := from; i < to; i++ {
		sum += f.close[i]
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0
	}

	var sq float64
	for i := from; i < to; i++ {
		d := f.close[i] - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(n-1)) / mean
}
