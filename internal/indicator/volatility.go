package indicator

import (
	"golang-autotrade/internal/dto"
	"math"
)

type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger uses the population standard deviation over the window.
func Bollinger(closes []float64, period int, multiplier float64) BollingerBands {
	length := len(closes)
	bb := BollingerBands{
		Upper:  make([]float64, length),
		Middle: make([]float64, length),
		Lower:  make([]float64, length),
	}
	if period <= 0 || length < period {
		return bb
	}

	middle := SMA(closes, period)
	for i := period - 1; i < length; i++ {
		ma := middle[i]
		sumSqDiff := 0.0
		for j := 0; j < period; j++ {
			diff := closes[i-j] - ma
			sumSqDiff += diff * diff
		}
		stdDev := math.Sqrt(sumSqDiff / float64(period))

		bb.Middle[i] = ma
		bb.Upper[i] = ma + multiplier*stdDev
		bb.Lower[i] = ma - multiplier*stdDev
	}
	return bb
}

func TrueRange(bars []dto.StockOHLCV) []float64 {
	trs := make([]float64, len(bars))
	if len(bars) == 0 {
		return trs
	}
	trs[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		trs[i] = math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
	}
	return trs
}

// ATR with Wilder smoothing. The first value lands at index period, seeded by
// the mean true range of bars 1..period.
func ATR(bars []dto.StockOHLCV, period int) []float64 {
	length := len(bars)
	atr := make([]float64, length)
	if period <= 0 || length < period+1 {
		return atr
	}

	trs := TrueRange(bars)
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trs[i]
	}
	atr[period] = sum / float64(period)

	for i := period + 1; i < length; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + trs[i]) / float64(period)
	}
	return atr
}
