package service

import (
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/utils"
	"sort"
)

const (
	maxTechnicalScore   = 25.0
	maxMomentumScore    = 40.0
	maxFundamentalScore = 10.0
	maxSentimentScore   = 15.0
	maxVolatilityScore  = 10.0

	scoreOffset = 50.0
)

type Scorer interface {
	Score(input dto.ScoreInput) dto.ScoringResult
	Rank(candidates []dto.RankedCandidate) []dto.RankedCandidate
}

type scorer struct{}

func NewScorer() Scorer {
	return &scorer{}
}

func (s *scorer) Score(input dto.ScoreInput) dto.ScoringResult {
	breakdown := dto.ScoreBreakdown{
		Technical:   technicalScore(&input.Technical),
		Momentum:    momentumScore(&input.Technical, input.MultiTimeframe),
		Fundamental: fundamentalScore(input.Fundamentals),
		Sentiment:   sentimentScore(input.Sentiment),
		Volatility:  volatilityScore(input.Volatility),
	}
	raw := breakdown.Technical + breakdown.Momentum + breakdown.Fundamental + breakdown.Sentiment + breakdown.Volatility
	total := utils.Clamp(raw+scoreOffset, 0, 100)

	return dto.ScoringResult{
		Symbol:         input.Symbol,
		TotalScore:     total,
		RawScore:       raw,
		Breakdown:      breakdown,
		Recommendation: recommendation(total),
		Confidence:     confidence(total, input.Technical.Signals, input.Sentiment),
		Signals:        input.Technical.Signals,
	}
}

func technicalScore(ta *dto.TechnicalAnalysis) float64 {
	score := 0.0
	switch {
	case ta.HasSignal(dto.SignalMACDBullish):
		score += 10
	case ta.HasSignal(dto.SignalMACDReversal):
		score += 5
	case ta.HasSignal(dto.SignalMACDBearish):
		score -= 10
	}
	if ta.HasSignal(dto.SignalBBOversold) {
		score += 8
	} else if ta.HasSignal(dto.SignalBBOverbought) {
		score -= 8
	}
	if ta.HasSignal(dto.SignalRSIOversold) {
		score += 7
	} else if ta.HasSignal(dto.SignalRSIOverbought) {
		score -= 7
	}
	return utils.Clamp(score, -maxTechnicalScore, maxTechnicalScore)
}

func momentumScore(ta *dto.TechnicalAnalysis, mtf *dto.MultiTimeframeTrend) float64 {
	score := 0.0
	ind := ta.Indicators

	// MA alignment
	if ta.HasSignal(dto.SignalMAUptrend) {
		score += 20
	} else if ind.SMA5 != nil && ind.SMA10 != nil && ind.SMA20 != nil {
		if *ind.SMA5 > *ind.SMA10 && *ind.SMA10 > *ind.SMA20 {
			score += 20
		} else {
			if *ind.SMA5 > *ind.SMA10 {
				score += 8
			}
			if *ind.SMA10 > *ind.SMA20 {
				score += 7
			}
		}
	}

	// MACD histogram, falling back to the derived signal when values are absent
	if ind.MACD != nil {
		if ind.MACD.Histogram > 0 {
			score += 10
		} else if ind.MACD.Histogram < 0 {
			score -= 10
		}
	} else if ta.HasSignal(dto.SignalMACDBullish) || ta.HasSignal(dto.SignalMACDReversal) {
		score += 10
	} else if ta.HasSignal(dto.SignalMACDBearish) {
		score -= 10
	}

	if ind.SMA20 != nil && ta.Price > 0 {
		if ta.Price > *ind.SMA20 {
			score += 10
		} else if ta.Price < *ind.SMA20 {
			score -= 10
		}
	}

	if mtf != nil && mtf.ShortTerm == mtf.LongTerm {
		switch mtf.ShortTerm {
		case dto.TrendBullish:
			score += 10
		case dto.TrendBearish:
			score -= 10
		}
	}

	return utils.Clamp(score, -maxMomentumScore, maxMomentumScore)
}

func fundamentalScore(f *dto.Fundamentals) float64 {
	if f == nil {
		return 0
	}
	score := 0.0
	if f.PERatio != nil && *f.PERatio > 0 {
		if *f.PERatio < 20 {
			score += 5
		} else if *f.PERatio < 35 {
			score += 3
		}
	}
	if f.PEGRatio != nil && *f.PEGRatio > 0 {
		if *f.PEGRatio < 1 {
			score += 5
		} else if *f.PEGRatio < 2 {
			score += 3
		}
	}
	return utils.Clamp(score, 0, maxFundamentalScore)
}

func sentimentScore(ns *dto.NewsSentiment) float64 {
	if ns == nil {
		return 0
	}
	score := 0.0
	switch ns.Sentiment {
	case dto.SentimentPositive:
		score = maxSentimentScore
	case dto.SentimentNegative:
		score = -maxSentimentScore
	}
	if ns.HeadlineCount >= 5 {
		score *= 1.2
	} else if ns.HeadlineCount <= 1 {
		score *= 0.5
	}
	return utils.Clamp(score, -maxSentimentScore, maxSentimentScore)
}

func volatilityScore(v *dto.VolatilityData) float64 {
	if v == nil || v.Insufficient {
		return 0
	}
	score := 0.0
	switch {
	case v.ATRPercent >= 3:
		score = 10
	case v.ATRPercent >= 2:
		score = 7
	case v.ATRPercent >= 1:
		score = 4
	}
	if v.VolumeRatio > 2 {
		score += 5
	}
	return utils.Clamp(score, 0, maxVolatilityScore)
}

func recommendation(total float64) dto.Recommendation {
	switch {
	case total >= 75:
		return dto.RecommendationStrongBuy
	case total >= 60:
		return dto.RecommendationBuy
	case total <= 10:
		return dto.RecommendationStrongSell
	case total <= 25:
		return dto.RecommendationSell
	default:
		return dto.RecommendationHold
	}
}

func confidence(total float64, signals []dto.Signal, ns *dto.NewsSentiment) float64 {
	c := 50.0
	if total >= 85 || total <= 15 {
		c += 20
	} else if total >= 75 || total <= 25 {
		c += 10
	}

	bullish, bearish := 0, 0
	for _, s := range signals {
		if s.IsBullish() {
			bullish++
		} else if s.IsBearish() {
			bearish++
		}
	}

	direction := dto.TrendNeutral
	concordant := 0
	if bullish > bearish {
		direction, concordant = dto.TrendBullish, bullish
	} else if bearish > bullish {
		direction, concordant = dto.TrendBearish, bearish
	}
	if concordant >= 3 {
		c += 15
	} else if concordant >= 2 {
		c += 10
	}

	if ns != nil {
		if (direction == dto.TrendBullish && ns.Sentiment == dto.SentimentPositive) ||
			(direction == dto.TrendBearish && ns.Sentiment == dto.SentimentNegative) {
			c += 10
		}
	}
	return utils.Clamp(c, 0, 100)
}

// Rank orders candidates by score, confidence, volatility sub-score and
// finally symbol, so equal inputs always produce the same order.
func (s *scorer) Rank(candidates []dto.RankedCandidate) []dto.RankedCandidate {
	ranked := make([]dto.RankedCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Result, ranked[j].Result
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Breakdown.Volatility != b.Breakdown.Volatility {
			return a.Breakdown.Volatility > b.Breakdown.Volatility
		}
		return ranked[i].Candidate.Symbol < ranked[j].Candidate.Symbol
	})
	return ranked
}
