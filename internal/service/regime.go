package service

import (
	"context"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/indicator"
	"golang-autotrade/pkg/cache"
	"golang-autotrade/pkg/common"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/utils"
	"time"
)

const (
	minRegimeMultiplier = 0.2
	maxRegimeMultiplier = 2.0

	benchmarkLookbackDays = 45
	benchmarkShortPeriod  = 5
	benchmarkLongPeriod   = 20
)

// RegimeClassifier decides whether buying and selling are allowed right now
// and how aggressively to size new positions.
type RegimeClassifier interface {
	Current(ctx context.Context) dto.MarketRegime
	Invalidate()
}

type regimeClassifier struct {
	cfg        config.Regime
	log        *logger.Logger
	marketData contract.MarketDataClient
	cache      cache.Cache
	loc        *time.Location
	now        func() time.Time
}

func NewRegimeClassifier(cfg config.Regime, log *logger.Logger, marketData contract.MarketDataClient, c cache.Cache) RegimeClassifier {
	return &regimeClassifier{
		cfg:        cfg,
		log:        log,
		marketData: marketData,
		cache:      c,
		loc:        utils.LoadLocation(cfg.VenueTimezone),
		now:        time.Now,
	}
}

// marketInputs are the slow-moving parts of the regime. Only these are
// cached; the session is re-evaluated on every call.
type marketInputs struct {
	FearIndex float64
	Trend     dto.Trend
}

func (r *regimeClassifier) Current(ctx context.Context) dto.MarketRegime {
	now := r.now().In(r.loc)
	if inputs, ok := cache.GetFromCache[marketInputs](r.cache, common.KEY_MARKET_REGIME); ok {
		return BuildRegime(inputs.FearIndex, inputs.Trend, now)
	}

	inputs, err := r.fetchInputs(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "Market regime unavailable, using fail-safe", logger.ErrorField(err))
		return failSafeRegime(now, err)
	}
	r.cache.Set(common.KEY_MARKET_REGIME, inputs, r.cfg.CacheDuration)

	regime := BuildRegime(inputs.FearIndex, inputs.Trend, now)
	r.log.InfoContext(ctx, "Market regime classified",
		logger.StringField("regime", string(regime.Regime)),
		logger.FloatField("fear_index", regime.FearIndex),
		logger.StringField("benchmark_trend", string(regime.BenchmarkTrend)),
		logger.StringField("session", string(regime.Session)),
		logger.Field("allow_buy", regime.AllowBuy),
		logger.FloatField("multiplier", regime.PositionSizeMultiplier),
	)
	return regime
}

func (r *regimeClassifier) Invalidate() {
	r.cache.Delete(common.KEY_MARKET_REGIME)
}

func (r *regimeClassifier) fetchInputs(ctx context.Context) (marketInputs, error) {
	quote, err := r.marketData.FetchQuote(ctx, r.cfg.FearIndexSymbol)
	if err != nil {
		return marketInputs{}, fmt.Errorf("failed to fetch fear index: %w", err)
	}
	if quote.Price <= 0 {
		return marketInputs{}, fmt.Errorf("invalid fear index value %.2f", quote.Price)
	}

	bars, err := r.marketData.FetchMarketData(ctx, r.cfg.BenchmarkSymbol, dto.IntervalDaily, benchmarkLookbackDays)
	if err != nil {
		return marketInputs{}, fmt.Errorf("failed to fetch benchmark: %w", err)
	}
	if len(bars) < benchmarkLongPeriod {
		return marketInputs{}, fmt.Errorf("insufficient benchmark history: %d bars", len(bars))
	}

	return marketInputs{FearIndex: quote.Price, Trend: BenchmarkTrend(indicator.Closes(bars))}, nil
}

// BuildRegime combines fear index, benchmark trend and trading session into a
// regime. now must already be in the venue timezone.
func BuildRegime(fearIndex float64, trend dto.Trend, now time.Time) dto.MarketRegime {
	regime := dto.MarketRegime{
		FearIndex:      fearIndex,
		BenchmarkTrend: trend,
		AllowBuy:       true,
		AllowSell:      true,
		EvaluatedAt:    now,
	}

	multiplier := 1.0
	switch {
	case fearIndex >= 30:
		regime.Regime = dto.RegimeExtremeFear
		regime.AllowBuy = false
		multiplier = 0.3
		regime.Reasons = append(regime.Reasons, fmt.Sprintf("extreme fear index %.1f", fearIndex))
	case fearIndex >= 25:
		regime.Regime = dto.RegimeFear
		multiplier = 0.5
	case fearIndex >= 20:
		regime.Regime = dto.RegimeCautious
		multiplier = 0.75
	case fearIndex < 15:
		regime.Regime = dto.RegimeGreed
		multiplier = 1.2
	default:
		regime.Regime = dto.RegimeNeutral
	}

	switch trend {
	case dto.TrendBearish:
		regime.AllowBuy = false
		multiplier *= 0.5
		regime.Reasons = append(regime.Reasons, "benchmark in downtrend")
	case dto.TrendBullish:
		multiplier *= 1.2
	}

	session, canBuy, canSell := SessionAt(now)
	regime.Session = session
	if !canBuy {
		regime.AllowBuy = false
		regime.Reasons = append(regime.Reasons, fmt.Sprintf("buying closed during %s", session))
	}
	if !canSell {
		regime.AllowSell = false
		regime.Reasons = append(regime.Reasons, fmt.Sprintf("selling closed during %s", session))
	}

	regime.PositionSizeMultiplier = utils.Clamp(multiplier, minRegimeMultiplier, maxRegimeMultiplier)
	return regime
}

func failSafeRegime(now time.Time, cause error) dto.MarketRegime {
	session, _, _ := SessionAt(now)
	return dto.MarketRegime{
		Regime:                 dto.RegimeUnknown,
		BenchmarkTrend:         dto.TrendNeutral,
		Session:                session,
		AllowBuy:               false,
		AllowSell:              true,
		PositionSizeMultiplier: 0.5,
		IsFallback:             true,
		Reasons:                []string{cause.Error()},
		EvaluatedAt:            now,
	}
}

// BenchmarkTrend compares the 5 and 20 bar simple moving averages of closes.
func BenchmarkTrend(closes []float64) dto.Trend {
	return crossoverTrend(closes, benchmarkShortPeriod, benchmarkLongPeriod)
}

func crossoverTrend(closes []float64, short, long int) dto.Trend {
	if len(closes) < long {
		return dto.TrendNeutral
	}
	fast := indicator.SMA(closes, short)
	slow := indicator.SMA(closes, long)
	f, s := fast[len(fast)-1], slow[len(slow)-1]
	switch {
	case f > s:
		return dto.TrendBullish
	case f < s:
		return dto.TrendBearish
	default:
		return dto.TrendNeutral
	}
}

// SessionAt maps a venue-local time to its trading session and whether
// buying and selling are allowed in it.
func SessionAt(t time.Time) (dto.Session, bool, bool) {
	if utils.IsWeekend(t) {
		return dto.SessionClosed, false, false
	}
	minutes := utils.MinutesOfDay(t)
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return dto.SessionPremarket, false, false
	case minutes >= 9*60+30 && minutes < 10*60:
		return dto.SessionOpening, false, true
	case minutes >= 10*60 && minutes < 15*60:
		return dto.SessionCore, true, true
	case minutes >= 15*60 && minutes < 16*60:
		return dto.SessionPowerHour, false, true
	case minutes >= 16*60 && minutes < 20*60:
		return dto.SessionAftermarket, false, true
	default:
		return dto.SessionClosed, false, false
	}
}
