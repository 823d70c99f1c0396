// Package indicator computes technical indicators from chronological OHLCV
// bars. Every function is pure.
package indicator

import (
	"golang-autotrade/internal/dto"
)

const (
	RSIPeriod        = 14
	ATRPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignal       = 9
	BollingerPeriod  = 20
	BollingerStdDevs = 2.0

	RSIOversold   = 30.0
	RSIOverbought = 70.0

	StopLossATRMultiple   = 1.5
	TakeProfitATRMultiple = 2.0
)

func Closes(bars []dto.StockOHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func last(series []float64) *float64 {
	v := series[len(series)-1]
	return &v
}

// Compute returns the latest value of each indicator, leaving a field nil
// when there are not enough bars for it.
func Compute(bars []dto.StockOHLCV) dto.IndicatorSnapshot {
	var snap dto.IndicatorSnapshot
	n := len(bars)
	if n == 0 {
		return snap
	}
	closes := Closes(bars)

	if n >= 5 {
		snap.SMA5 = last(SMA(closes, 5))
	}
	if n >= 10 {
		snap.SMA10 = last(SMA(closes, 10))
	}
	if n >= 20 {
		snap.SMA20 = last(SMA(closes, 20))
	}
	if n >= RSIPeriod+1 {
		snap.RSI = last(RSI(closes, RSIPeriod))
	}
	if macd, ok := MACD(closes, MACDFast, MACDSlow, MACDSignal); ok {
		snap.MACD = &dto.MACDValue{
			Line:      macd.Line[n-1],
			Signal:    macd.Signal[n-1],
			Histogram: macd.Histogram[n-1],
		}
	}
	if n >= BollingerPeriod {
		bb := Bollinger(closes, BollingerPeriod, BollingerStdDevs)
		snap.Bollinger = &dto.BollingerValue{
			Upper:  bb.Upper[n-1],
			Middle: bb.Middle[n-1],
			Lower:  bb.Lower[n-1],
		}
	}
	if n >= ATRPeriod+1 {
		snap.ATR = last(ATR(bars, ATRPeriod))
	}
	return snap
}

// Signals derives discrete trading signals from a snapshot at price.
func Signals(snap dto.IndicatorSnapshot, price float64) []dto.Signal {
	signals := make([]dto.Signal, 0, 4)

	if m := snap.MACD; m != nil {
		switch {
		case m.Histogram > 0 && m.Line > 0:
			signals = append(signals, dto.SignalMACDBullish)
		case m.Histogram > 0:
			signals = append(signals, dto.SignalMACDReversal)
		case m.Histogram < 0:
			signals = append(signals, dto.SignalMACDBearish)
		}
	}

	if bb := snap.Bollinger; bb != nil && price > 0 {
		if price > bb.Upper {
			signals = append(signals, dto.SignalBBOverbought)
		} else if price < bb.Lower {
			signals = append(signals, dto.SignalBBOversold)
		}
	}

	if snap.RSI != nil {
		if *snap.RSI < RSIOversold {
			signals = append(signals, dto.SignalRSIOversold)
		} else if *snap.RSI > RSIOverbought {
			signals = append(signals, dto.SignalRSIOverbought)
		}
	}

	if snap.SMA5 != nil && snap.SMA10 != nil && snap.SMA20 != nil &&
		*snap.SMA5 > *snap.SMA10 && *snap.SMA10 > *snap.SMA20 {
		signals = append(signals, dto.SignalMAUptrend)
	}

	return signals
}

// SuggestStops returns ATR-based stop-loss and take-profit prices.
func SuggestStops(entry, atr float64) (stopLoss, takeProfit float64) {
	return entry - StopLossATRMultiple*atr, entry + TakeProfitATRMultiple*atr
}

// Analyze bundles Compute, Signals and SuggestStops at the last close.
func Analyze(bars []dto.StockOHLCV) dto.TechnicalAnalysis {
	ta := dto.TechnicalAnalysis{Signals: []dto.Signal{}}
	if len(bars) == 0 {
		return ta
	}
	ta.Price = bars[len(bars)-1].Close
	ta.Indicators = Compute(bars)
	ta.Signals = Signals(ta.Indicators, ta.Price)
	if ta.Indicators.ATR != nil {
		sl, tp := SuggestStops(ta.Price, *ta.Indicators.ATR)
		ta.StopLoss = &sl
		ta.TakeProfit = &tp
	}
	return ta
}
