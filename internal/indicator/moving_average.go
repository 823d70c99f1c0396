package indicator

// SMA returns the simple moving average series. Values before the first
// full window are zero.
func SMA(data []float64, period int) []float64 {
	sma := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		return sma
	}

	sum := 0.0
	for i := 0; i < len(data); i++ {
		sum += data[i]
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma
}

// EMA seeds with the SMA of the first period values.
func EMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		return ema
	}

	k := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(data); i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}
	return ema
}
