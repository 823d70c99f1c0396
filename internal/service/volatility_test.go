package service

import (
	"context"
	"testing"
	"time"

	"golang-autotrade/config"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/cache"
	"golang-autotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVolatilityAnalyzer(md *fakeMarketData) VolatilityAnalyzer {
	return NewVolatilityAnalyzer(
		config.Volatility{LookbackDays: 30, CacheDuration: 2 * time.Minute},
		config.Trading{BatchSize: 2, MinVolatilityScore: 20, Exchange: "NASD"},
		logger.NewNop(),
		md,
		cache.NewCache(2*time.Minute, time.Minute),
	)
}

func spikyBars() []dto.StockOHLCV {
	bars := trendingBars(25, 100, 1, 4, 1000)
	bars[len(bars)-1].Volume = 10000
	return bars
}

func TestComputeVolatility(t *testing.T) {
	v := ComputeVolatility("AAPL", spikyBars())

	require.False(t, v.Insufficient)
	assert.Equal(t, 124.0, v.Price)
	assert.InDelta(t, 4.0, v.ATR, 1e-9)
	assert.InDelta(t, 4.0/124*100, v.ATRPercent, 1e-9)
	assert.InDelta(t, 1450.0, v.AvgVolume20, 1e-9)
	assert.Equal(t, dto.VolatilityHigh, v.Level)
	assert.Equal(t, dto.VolumeExtremeSpike, v.VolumeSignal)
	assert.InDelta(t, 0.0, v.ATRTrendPct, 1e-9)
	assert.Equal(t, 55.0, v.Score)
}

func TestComputeVolatilityNeedsHistory(t *testing.T) {
	v := ComputeVolatility("AAPL", trendingBars(10, 100, 1, 4, 1000))
	assert.True(t, v.Insufficient)
	assert.Equal(t, dto.VolatilityLow, v.Level)
	assert.Zero(t, v.Score)
}

func TestComputeVolatilityFourteenBars(t *testing.T) {
	assert.True(t, ComputeVolatility("AAPL", trendingBars(13, 100, 1, 4, 1000)).Insufficient)

	v := ComputeVolatility("AAPL", trendingBars(14, 100, 1, 4, 1000))
	require.False(t, v.Insufficient)
	assert.InDelta(t, 4.0, v.ATR, 1e-9)
	assert.InDelta(t, 4.0/113*100, v.ATRPercent, 1e-9)
	assert.Equal(t, dto.VolatilityHigh, v.Level)
	assert.Zero(t, v.ATRTrendPct)
	// ATR% tier 30 plus volume ratio 1.0 tier 5
	assert.Equal(t, 35.0, v.Score)
}

func TestVolatilityRating(t *testing.T) {
	assert.Equal(t, 40.0, volatilityRating(dto.VolatilityData{ATRPercent: 2.5, VolumeRatio: 2, ATRTrendPct: 0}))
	assert.Equal(t, 30.0, volatilityRating(dto.VolatilityData{ATRPercent: 1.2, VolumeRatio: 1.6, ATRTrendPct: 12}))
	assert.Equal(t, 0.0, volatilityRating(dto.VolatilityData{ATRPercent: 0.5, VolumeRatio: 0.5, ATRTrendPct: -20}))
}

func TestAnalyzeCachesSuccessOnly(t *testing.T) {
	md := newFakeMarketData()
	md.bars["AAPL"] = spikyBars()
	va := newTestVolatilityAnalyzer(md)

	first := va.Analyze(context.Background(), "AAPL")
	second := va.Analyze(context.Background(), "AAPL")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, md.barCalls)

	missing := va.Analyze(context.Background(), "MSFT")
	assert.True(t, missing.Insufficient)
	va.Analyze(context.Background(), "MSFT")
	assert.Equal(t, 3, md.barCalls)
}

func TestFilterCandidates(t *testing.T) {
	md := newFakeMarketData()
	md.bars["AAPL"] = spikyBars()
	md.bars["NVDA"] = spikyBars()
	md.bars["KO"] = trendingBars(25, 100, 1, 0.5, 1000)
	md.bars["AMD"] = spikyBars()
	md.quotes["AAPL"] = &dto.Quote{Symbol: "AAPL", Price: 124.5, Exchange: "NMS"}
	md.quotes["NVDA"] = &dto.Quote{Symbol: "NVDA", Price: 124, Exchange: "XYZ"}
	md.quotes["KO"] = &dto.Quote{Symbol: "KO", Price: 124, Exchange: "NYQ"}

	candidates := newTestVolatilityAnalyzer(md).FilterCandidates(context.Background(), []string{"AAPL", "KO", "MSFT", "NVDA", "AMD"})

	require.Len(t, candidates, 2)
	assert.Equal(t, "AAPL", candidates[0].Symbol)
	assert.Equal(t, "NASD", candidates[0].Exchange)
	assert.Equal(t, 124.5, candidates[0].Price)
	assert.NotNil(t, candidates[0].Quote)
	assert.Equal(t, "NVDA", candidates[1].Symbol)
	assert.Equal(t, "NASD", candidates[1].Exchange, "unknown exchange falls back to default")
}
