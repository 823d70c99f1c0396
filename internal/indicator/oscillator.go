package indicator

// RSI uses Wilder smoothing. The first value lands at index period.
func RSI(closes []float64, period int) []float64 {
	rsi := make([]float64, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return rsi
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}
	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

type MACDSeries struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
	// Start is the first index where Signal and Histogram are defined.
	Start int
}

// MACDMinBars is the shortest input MACD(fast, slow, signal) accepts.
func MACDMinBars(slow, signal int) int {
	return slow + signal - 1
}

// MACD returns ok=false when closes is shorter than MACDMinBars.
func MACD(closes []float64, fast, slow, signal int) (MACDSeries, bool) {
	n := len(closes)
	out := MACDSeries{
		Line:      make([]float64, n),
		Signal:    make([]float64, n),
		Histogram: make([]float64, n),
	}
	if fast <= 0 || slow <= fast || signal <= 0 || n < MACDMinBars(slow, signal) {
		return out, false
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	for i := slow - 1; i < n; i++ {
		out.Line[i] = fastEMA[i] - slowEMA[i]
	}

	signalEMA := EMA(out.Line[slow-1:], signal)
	out.Start = slow - 1 + signal - 1
	for i := out.Start; i < n; i++ {
		out.Signal[i] = signalEMA[i-(slow-1)]
		out.Histogram[i] = out.Line[i] - out.Signal[i]
	}
	return out, true
}
