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

	"golang.org/x/sync/errgroup"
)

const (
	volumeAveragePeriod = 20
	atrTrendLookback    = 5
)

// VolatilityAnalyzer measures how much a symbol moves and filters the
// universe down to candidates worth a full analysis.
type VolatilityAnalyzer interface {
	Analyze(ctx context.Context, symbol string) dto.VolatilityData
	FilterCandidates(ctx context.Context, symbols []string) []dto.Candidate
}

type volatilityAnalyzer struct {
	cfg        config.Volatility
	trading    config.Trading
	log        *logger.Logger
	marketData contract.MarketDataClient
	cache      cache.Cache
}

func NewVolatilityAnalyzer(cfg config.Volatility, trading config.Trading, log *logger.Logger, marketData contract.MarketDataClient, c cache.Cache) VolatilityAnalyzer {
	return &volatilityAnalyzer{
		cfg:        cfg,
		trading:    trading,
		log:        log,
		marketData: marketData,
		cache:      c,
	}
}

func (v *volatilityAnalyzer) Analyze(ctx context.Context, symbol string) dto.VolatilityData {
	key := fmt.Sprintf(common.KEY_VOLATILITY, symbol)
	if cached, ok := cache.GetFromCache[dto.VolatilityData](v.cache, key); ok {
		return cached
	}

	bars, err := v.marketData.FetchMarketData(ctx, symbol, dto.IntervalDaily, v.cfg.LookbackDays)
	if err != nil {
		v.log.WarnContext(ctx, "Failed to fetch bars for volatility", logger.SymbolField(symbol), logger.ErrorField(err))
		return DefaultVolatility(symbol)
	}

	data := ComputeVolatility(symbol, bars)
	if !data.Insufficient {
		v.cache.Set(key, data, v.cfg.CacheDuration)
	}
	return data
}

// FilterCandidates analyzes symbols in batches and keeps those whose
// volatility score reaches the configured minimum and whose quote resolves.
// Order of the input is preserved.
func (v *volatilityAnalyzer) FilterCandidates(ctx context.Context, symbols []string) []dto.Candidate {
	batchSize := v.trading.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	results := make([]*dto.Candidate, len(symbols))
	for start := 0; start < len(symbols); start += batchSize {
		if !utils.ShouldContinue(ctx, v.log) {
			break
		}
		if start > 0 && v.trading.RequestDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(v.trading.RequestDelay):
			}
		}

		end := min(start+batchSize, len(symbols))
		var g errgroup.Group
		g.SetLimit(batchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = v.candidate(ctx, symbols[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	candidates := make([]dto.Candidate, 0, len(symbols))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	v.log.InfoContext(ctx, "Volatility filter finished",
		logger.IntField("symbols", len(symbols)),
		logger.IntField("candidates", len(candidates)),
	)
	return candidates
}

func (v *volatilityAnalyzer) candidate(ctx context.Context, symbol string) *dto.Candidate {
	vol := v.Analyze(ctx, symbol)
	if vol.Insufficient || vol.Score < v.trading.MinVolatilityScore {
		v.log.DebugContext(ctx, "Symbol filtered by volatility",
			logger.SymbolField(symbol),
			logger.FloatField("score", vol.Score),
		)
		return nil
	}

	quote, err := v.marketData.FetchQuote(ctx, symbol)
	if err != nil {
		v.log.WarnContext(ctx, "Failed to fetch quote", logger.SymbolField(symbol), logger.ErrorField(err))
		return nil
	}

	exchange := common.ExchangeFromYahoo(quote.Exchange)
	if exchange == "" {
		exchange = v.trading.Exchange
	}
	return &dto.Candidate{
		Symbol:     symbol,
		Exchange:   exchange,
		Price:      quote.Price,
		Volatility: vol,
		Quote:      quote,
	}
}

func DefaultVolatility(symbol string) dto.VolatilityData {
	return dto.VolatilityData{
		Symbol:       symbol,
		Level:        dto.VolatilityLow,
		VolumeSignal: dto.VolumeNormal,
		Insufficient: true,
	}
}

// ComputeVolatility derives ATR, volume and range metrics from daily bars.
// Fewer than ATRPeriod bars yields the default result.
func ComputeVolatility(symbol string, bars []dto.StockOHLCV) dto.VolatilityData {
	n := len(bars)
	if n < indicator.ATRPeriod {
		return DefaultVolatility(symbol)
	}

	latest := bars[n-1]
	if latest.Close <= 0 {
		return DefaultVolatility(symbol)
	}

	atr := indicator.ATR(bars, indicator.ATRPeriod)
	latestATR := atr[n-1]
	if n == indicator.ATRPeriod {
		// one bar short of a Wilder seed: bar 0 contributes its high-low range
		latestATR = mean(indicator.TrueRange(bars))
	}
	data := dto.VolatilityData{
		Symbol:     symbol,
		Price:      latest.Close,
		ATR:        latestATR,
		ATRPercent: latestATR / latest.Close * 100,
	}

	window := bars[max(0, n-volumeAveragePeriod):]
	var volumeSum int64
	for _, b := range window {
		volumeSum += b.Volume
	}
	data.AvgVolume20 = float64(volumeSum) / float64(len(window))
	if data.AvgVolume20 > 0 {
		data.VolumeRatio = float64(latest.Volume) / data.AvgVolume20
	}

	data.IntradayRangePct = (latest.High - latest.Low) / latest.Close * 100

	prev := n - 1 - atrTrendLookback
	if prev >= indicator.ATRPeriod && atr[prev] > 0 {
		data.ATRTrendPct = (atr[n-1] - atr[prev]) / atr[prev] * 100
	}

	switch {
	case data.ATRPercent < 1:
		data.Level = dto.VolatilityLow
	case data.ATRPercent < 2:
		data.Level = dto.VolatilityMedium
	default:
		data.Level = dto.VolatilityHigh
	}

	switch {
	case data.VolumeRatio >= 5:
		data.VolumeSignal = dto.VolumeExtremeSpike
	case data.VolumeRatio >= 2:
		data.VolumeSignal = dto.VolumeSpike
	default:
		data.VolumeSignal = dto.VolumeNormal
	}

	data.Score = volatilityRating(data)
	return data
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func volatilityRating(d dto.VolatilityData) float64 {
	score := 0.0
	switch {
	case d.ATRPercent >= 3:
		score += 30
	case d.ATRPercent >= 2:
		score += 20
	case d.ATRPercent >= 1:
		score += 10
	}

	switch {
	case d.VolumeRatio >= 5:
		score += 25
	case d.VolumeRatio >= 2:
		score += 20
	case d.VolumeRatio >= 1.5:
		score += 10
	case d.VolumeRatio >= 1:
		score += 5
	}

	if d.ATRTrendPct > 10 {
		score += 10
	} else if d.ATRTrendPct < -10 {
		score -= 10
	}
	return utils.Clamp(score, 0, 100)
}
