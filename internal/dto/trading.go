package dto

import "time"

type MACDValue struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type BollingerValue struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot holds the latest indicator values. A nil field means
// the series was too short for that indicator.
type IndicatorSnapshot struct {
	SMA5      *float64        `json:"sma5,omitempty"`
	SMA10     *float64        `json:"sma10,omitempty"`
	SMA20     *float64        `json:"sma20,omitempty"`
	RSI       *float64        `json:"rsi,omitempty"`
	MACD      *MACDValue      `json:"macd,omitempty"`
	Bollinger *BollingerValue `json:"bollinger,omitempty"`
	ATR       *float64        `json:"atr,omitempty"`
}

type TechnicalAnalysis struct {
	Price      float64           `json:"price"`
	Indicators IndicatorSnapshot `json:"indicators"`
	Signals    []Signal          `json:"signals"`
	StopLoss   *float64          `json:"stop_loss,omitempty"`
	TakeProfit *float64          `json:"take_profit,omitempty"`
}

func (t *TechnicalAnalysis) HasSignal(signal Signal) bool {
	for _, s := range t.Signals {
		if s == signal {
			return true
		}
	}
	return false
}

type Fundamentals struct {
	PERatio  *float64 `json:"pe_ratio,omitempty"`
	PEGRatio *float64 `json:"peg_ratio,omitempty"`
}

type NewsSentiment struct {
	Sentiment     Sentiment `json:"sentiment"`
	Score         float64   `json:"score"`
	HeadlineCount int       `json:"headline_count"`
	Headlines     []string  `json:"headlines,omitempty"`
	Source        string    `json:"source"`
}

type VolatilityData struct {
	Symbol           string          `json:"symbol"`
	Price            float64         `json:"price"`
	ATR              float64         `json:"atr"`
	ATRPercent       float64         `json:"atr_percent"`
	AvgVolume20      float64         `json:"avg_volume_20"`
	VolumeRatio      float64         `json:"volume_ratio"`
	IntradayRangePct float64         `json:"intraday_range_pct"`
	ATRTrendPct      float64         `json:"atr_trend_pct"`
	Level            VolatilityLevel `json:"level"`
	VolumeSignal     VolumeSignal    `json:"volume_signal"`
	Score            float64         `json:"score"`
	Insufficient     bool            `json:"insufficient"`
}

type MultiTimeframeTrend struct {
	ShortTerm Trend `json:"short_term"`
	LongTerm  Trend `json:"long_term"`
}

// ScoreInput carries every factor the scorer understands. Nil factors
// contribute nothing to the score.
type ScoreInput struct {
	Symbol         string               `json:"symbol"`
	Technical      TechnicalAnalysis    `json:"technical"`
	Fundamentals   *Fundamentals        `json:"fundamentals,omitempty"`
	Sentiment      *NewsSentiment       `json:"sentiment,omitempty"`
	Volatility     *VolatilityData      `json:"volatility,omitempty"`
	MultiTimeframe *MultiTimeframeTrend `json:"multi_timeframe,omitempty"`
}

type ScoreBreakdown struct {
	Technical   float64 `json:"technical"`
	Momentum    float64 `json:"momentum"`
	Fundamental float64 `json:"fundamental"`
	Sentiment   float64 `json:"sentiment"`
	Volatility  float64 `json:"volatility"`
}

type ScoringResult struct {
	Symbol         string         `json:"symbol"`
	TotalScore     float64        `json:"total_score"`
	RawScore       float64        `json:"raw_score"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Signals        []Signal       `json:"signals"`
}

type MarketRegime struct {
	Regime                 Regime    `json:"regime"`
	FearIndex              float64   `json:"fear_index"`
	BenchmarkTrend         Trend     `json:"benchmark_trend"`
	Session                Session   `json:"session"`
	AllowBuy               bool      `json:"allow_buy"`
	AllowSell              bool      `json:"allow_sell"`
	PositionSizeMultiplier float64   `json:"position_size_multiplier"`
	IsFallback             bool      `json:"is_fallback"`
	Reasons                []string  `json:"reasons,omitempty"`
	EvaluatedAt            time.Time `json:"evaluated_at"`
}

type Candidate struct {
	Symbol     string         `json:"symbol"`
	Exchange   string         `json:"exchange"`
	Price      float64        `json:"price"`
	Volatility VolatilityData `json:"volatility"`
	Quote      *Quote         `json:"quote,omitempty"`
}

type RankedCandidate struct {
	Candidate Candidate         `json:"candidate"`
	Analysis  TechnicalAnalysis `json:"analysis"`
	Result    ScoringResult     `json:"result"`
}

type PositionSize struct {
	Quantity    int     `json:"quantity"`
	PositionPct float64 `json:"position_pct"`
	Amount      float64 `json:"amount"`
}

type PositionDecision struct {
	Symbol        string         `json:"symbol"`
	Action        PositionAction `json:"action"`
	Price         float64        `json:"price"`
	ReturnPct     float64        `json:"return_pct"`
	SellQuantity  int            `json:"sell_quantity"`
	FullExit      bool           `json:"full_exit"`
	LevelsHit     []int          `json:"levels_hit,omitempty"`
	StopLoss      float64        `json:"stop_loss"`
	TrailingArmed bool           `json:"trailing_armed"`
	Reason        string         `json:"reason"`
}

func (d PositionDecision) IsExit() bool {
	return d.Action != PositionActionHold && d.SellQuantity > 0
}

type TradeRecord struct {
	Symbol   string         `json:"symbol"`
	Side     OrderSide      `json:"side"`
	Quantity int            `json:"quantity"`
	Price    float64        `json:"price"`
	Reason   string         `json:"reason"`
	Success  bool           `json:"success"`
	OrderID  string         `json:"order_id,omitempty"`
	Error    string         `json:"error,omitempty"`
	Action   PositionAction `json:"action,omitempty"`
}

type CycleReport struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Regime         MarketRegime  `json:"regime"`
	PositionsSeen  int           `json:"positions_seen"`
	CandidatesSeen int           `json:"candidates_seen"`
	Passes         int           `json:"passes"`
	Trades         []TradeRecord `json:"trades"`
	Skipped        []string      `json:"skipped,omitempty"`
}

func (r *CycleReport) Executed() int {
	n := 0
	for _, t := range r.Trades {
		if t.Success {
			n++
		}
	}
	return n
}
