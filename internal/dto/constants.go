package dto

type Signal string

const (
	SignalMACDBullish   Signal = "MACD_BULLISH"
	SignalMACDReversal  Signal = "MACD_REVERSAL"
	SignalMACDBearish   Signal = "MACD_BEARISH"
	SignalBBOverbought  Signal = "BB_OVERBOUGHT"
	SignalBBOversold    Signal = "BB_OVERSOLD"
	SignalRSIOversold   Signal = "RSI_OVERSOLD"
	SignalRSIOverbought Signal = "RSI_OVERBOUGHT"
	SignalMAUptrend     Signal = "MA_UPTREND"
)

// IsBullish reports whether the signal argues for a long entry.
func (s Signal) IsBullish() bool {
	switch s {
	case SignalMACDBullish, SignalMACDReversal, SignalBBOversold, SignalRSIOversold, SignalMAUptrend:
		return true
	}
	return false
}

func (s Signal) IsBearish() bool {
	switch s {
	case SignalMACDBearish, SignalBBOverbought, SignalRSIOverbought:
		return true
	}
	return false
}

type Recommendation string

const (
	RecommendationStrongBuy  Recommendation = "STRONG_BUY"
	RecommendationBuy        Recommendation = "BUY"
	RecommendationHold       Recommendation = "HOLD"
	RecommendationSell       Recommendation = "SELL"
	RecommendationStrongSell Recommendation = "STRONG_SELL"
)

func (r Recommendation) IsBuy() bool {
	return r == RecommendationStrongBuy || r == RecommendationBuy
}

func (r Recommendation) IsSell() bool {
	return r == RecommendationStrongSell || r == RecommendationSell
}

type Regime string

const (
	RegimeExtremeFear Regime = "EXTREME_FEAR"
	RegimeFear        Regime = "FEAR"
	RegimeCautious    Regime = "CAUTIOUS"
	RegimeNeutral     Regime = "NEUTRAL"
	RegimeGreed       Regime = "GREED"
	RegimeUnknown     Regime = "UNKNOWN"
)

type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

type Session string

const (
	SessionPremarket   Session = "PREMARKET"
	SessionOpening     Session = "OPENING"
	SessionCore        Session = "CORE"
	SessionPowerHour   Session = "POWER_HOUR"
	SessionAftermarket Session = "AFTERMARKET"
	SessionClosed      Session = "CLOSED"
)

type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "LOW"
	VolatilityMedium VolatilityLevel = "MEDIUM"
	VolatilityHigh   VolatilityLevel = "HIGH"
)

type VolumeSignal string

const (
	VolumeNormal       VolumeSignal = "NORMAL"
	VolumeSpike        VolumeSignal = "SPIKE"
	VolumeExtremeSpike VolumeSignal = "EXTREME_SPIKE"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

type PositionAction string

const (
	PositionActionHold       PositionAction = "HOLD"
	PositionActionStopLoss   PositionAction = "STOP_LOSS"
	PositionActionTrailing   PositionAction = "TRAILING_STOP"
	PositionActionTakeProfit PositionAction = "TAKE_PROFIT"
	PositionActionSignalSell PositionAction = "SIGNAL_SELL"
)

const (
	IntervalDaily = "1d"
)
