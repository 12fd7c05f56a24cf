package indicator

import "math"

// madEpsilon guards the CCI divisor: a mean absolute deviation at or below
// this threshold marks the window as flat and the CCI value as undefined.
const madEpsilon = 1e-10

// CCI computes the Commodity Channel Index from typical price deviation
// scaled by the mean absolute deviation. Flat windows yield NaN instead of
// a division blow-up.
func CCI(high, low, close []float64, period int, constant float64) []float64 {
	n := len(close)
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (high[i] + low[i] + close[i]) / 3.0
	}

	sma := SMA(tp, period)
	mad := RollingMAD(tp, period)

	out := nanSlice(n)
	for i := period - 1; i < n; i++ {
		if !Defined(sma[i]) || !Defined(mad[i]) || mad[i] <= madEpsilon {
			continue
		}
		out[i] = (tp[i] - sma[i]) / (constant * mad[i])
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder smoothing. The first
// defined value, at index period, seeds the average gain and loss with the
// simple mean of the first period price changes.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		d := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	denom := avgGain + avgLoss
	if denom == 0 {
		return 50.0 // flat series, neutral by convention
	}
	return 100.0 * avgGain / denom
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal line,
// and the histogram. The signal line is an EMA over the defined portion of
// the MACD line, so its first defined index is slow+signal-2.
func MACD(close []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(close)
	line = nanSlice(n)
	sig = nanSlice(n)
	hist = nanSlice(n)

	fastEMA := EMA(close, fast)
	slowEMA := EMA(close, slow)
	for i := 0; i < n; i++ {
		if Defined(fastEMA[i]) && Defined(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	if n < slow {
		return line, sig, hist
	}
	sigPart := EMA(line[slow-1:], signal)
	for i, v := range sigPart {
		if Defined(v) {
			sig[slow-1+i] = v
			hist[slow-1+i] = line[slow-1+i] - v
		}
	}
	return line, sig, hist
}

// KDJ computes the stochastic KDJ oscillator. The raw stochastic value is
// the close position inside the trailing high-low range; K and D apply
// recursive smoothing seeded at the neutral value 50, and J = 3K - 2D.
// A flat window leaves that day undefined without breaking the recursion.
func KDJ(high, low, close []float64, period, kSmooth, dSmooth int) (k, d, j []float64) {
	n := len(close)
	k = nanSlice(n)
	d = nanSlice(n)
	j = nanSlice(n)
	if period <= 0 || kSmooth <= 0 || dSmooth <= 0 || n < period {
		return k, d, j
	}

	hh := RollingMax(high, period)
	ll := RollingMin(low, period)

	prevK, prevD := 50.0, 50.0
	for i := period - 1; i < n; i++ {
		rng := hh[i] - ll[i]
		if rng <= 0 {
			continue
		}
		rsv := (close[i] - ll[i]) / rng * 100.0

		prevK = (prevK*float64(kSmooth-1) + rsv) / float64(kSmooth)
		prevD = (prevD*float64(dSmooth-1) + prevK) / float64(dSmooth)
		k[i] = prevK
		d[i] = prevD
		j[i] = 3.0*prevK - 2.0*prevD
	}
	return k, d, j
}

// Bollinger computes Bollinger bands: a simple moving average middle band
// with upper and lower bands at mult population standard deviations.
func Bollinger(close []float64, period int, mult float64) (upper, middle, lower []float64) {
	n := len(close)
	upper = nanSlice(n)
	lower = nanSlice(n)

	middle = SMA(close, period)
	sd := RollingStd(close, period)
	for i := 0; i < n; i++ {
		if Defined(middle[i]) && Defined(sd[i]) {
			upper[i] = middle[i] + mult*sd[i]
			lower[i] = middle[i] - mult*sd[i]
		}
	}
	return upper, middle, lower
}

// ADX computes Wilder's Average Directional Index. Directional movement and
// true range are Wilder-smoothed; the first defined ADX value, at index
// 2*period-1, is the simple average of the first period DX values.
func ADX(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if period <= 0 || n < 2*period {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		hiDiff := high[i] - high[i-1]
		loDiff := low[i-1] - low[i]
		if hiDiff > loDiff && hiDiff > 0 {
			plusDM[i] = hiDiff
		}
		if loDiff > hiDiff && loDiff > 0 {
			minusDM[i] = loDiff
		}
		tr[i] = math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}

	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := func() float64 {
		if smTR == 0 {
			return 0
		}
		plusDI := 100.0 * smPlus / smTR
		minusDI := 100.0 * smMinus / smTR
		sum := plusDI + minusDI
		if sum == 0 {
			return 0
		}
		return 100.0 * math.Abs(plusDI-minusDI) / sum
	}

	dxSum := dx()
	for i := period + 1; i < 2*period; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dxSum += dx()
	}
	adx := dxSum / float64(period)
	out[2*period-1] = adx

	for i := 2 * period; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		adx = (adx*float64(period-1) + dx()) / float64(period)
		out[i] = adx
	}
	return out
}
