// Package indicator computes technical indicators over ordered daily bars
// and maintains incremental per-symbol indicator records.
//
// All series functions operate on ascending-ordered values and return a
// slice of the same length as the input. Positions where the value is not
// yet computable (fewer than one full window of history) hold NaN; callers
// map NaN to a null column when persisting.
package indicator

import "math"

// SMA computes the simple moving average over a trailing window.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with multiplier 2/(period+1).
// The first defined value, at index period-1, is seeded with the simple
// average of the first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[period-1] = prev

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// RollingStd computes the population standard deviation over a trailing
// window.
func RollingStd(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var sq float64
		for _, v := range window {
			d := v - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(period))
	}
	return out
}

// RollingMAD computes the mean absolute deviation from the window mean over
// a trailing window.
func RollingMAD(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var dev float64
		for _, v := range window {
			dev += math.Abs(v - mean)
		}
		out[i] = dev / float64(period)
	}
	return out
}

// RollingMax computes the highest value over a trailing window.
func RollingMax(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		hi := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v > hi {
				hi = v
			}
		}
		out[i] = hi
	}
	return out
}

// RollingMin computes the lowest value over a trailing window.
func RollingMin(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		lo := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v < lo {
				lo = v
			}
		}
		out[i] = lo
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Defined reports whether a series value is computable (not NaN).
func Defined(v float64) bool {
	return !math.IsNaN(v)
}
