package ta

import "math"

// SMA is the simple moving average of the last n values.
func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

// RSI uses simple averages of gains and losses over the last period changes.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// Mean of all values.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return SMA(vals, len(vals))
}

// PctChange is the percent move from vals[len-back] to the last value.
// back=len(vals) measures from the first value.
func PctChange(vals []float64, back int) float64 {
	if back <= 0 || len(vals) < back {
		return math.NaN()
	}
	from := vals[len(vals)-back]
	if from == 0 {
		return math.NaN()
	}
	return (vals[len(vals)-1] - from) / from * 100
}

// VolumeRatio compares the mean of the last recent values with the mean of the last base values.
func VolumeRatio(vols []float64, recent, base int) float64 {
	avg := SMA(vols, base)
	if math.IsNaN(avg) || avg == 0 {
		return math.NaN()
	}
	return SMA(vols, recent) / avg
}

// Last returns the final value.
func Last(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}
