package repository

import (
	"context"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/common"
	"golang-autotrade/pkg/httpclient"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/ratelimit"
	"golang-autotrade/pkg/utils"
	"net/http"
	"strings"
	"time"
)

const (
	limiterKeyChart = "chart"
	limiterKeyQuote = "quote"
)

var yahooHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://finance.yahoo.com/",
}

type marketDataRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	logger     *logger.Logger
	limiters   *ratelimit.LimiterStore
	now        func() time.Time
}

// NewMarketDataRepository builds the Yahoo Finance backed market data client.
func NewMarketDataRepository(cfg *config.Config, log *logger.Logger) contract.MarketDataClient {
	return &marketDataRepository{
		httpClient: httpclient.New(log, cfg.MarketData.BaseURL, cfg.MarketData.Timeout, "", httpclient.WithHeaders(yahooHeaders)),
		cfg:        cfg,
		logger:     log,
		limiters:   ratelimit.NewLimiterStore(ratelimit.PerMinute(cfg.MarketData.MaxRequestPerMinute), 1),
		now:        time.Now,
	}
}

func (r *marketDataRepository) fetchChart(ctx context.Context, symbol string, queryParams map[string]string) (*dto.YahooChartResponse, error) {
	if err := r.limiters.GetLimiter(limiterKeyChart).Wait(ctx); err != nil {
		return nil, err
	}

	var chartResp dto.YahooChartResponse
	resp, err := r.httpClient.Get(ctx, "/v8/finance/chart/"+symbol, queryParams, nil, &chartResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.WarnContext(ctx, "Yahoo chart API returned non-OK status",
			logger.SymbolField(symbol),
			logger.IntField("status_code", resp.StatusCode))
		return nil, fmt.Errorf("yahoo chart api returned status: %d", resp.StatusCode)
	}
	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart api error: %v", chartResp.Chart.Error)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data returned for symbol: %s", symbol)
	}
	return &chartResp, nil
}

func (r *marketDataRepository) FetchMarketData(ctx context.Context, symbol string, interval string, lookbackDays int) ([]dto.StockOHLCV, error) {
	if interval == "" {
		interval = dto.IntervalDaily
	}
	now := r.now()
	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", utils.DaysAgo(now, lookbackDays)),
		"period2":        fmt.Sprintf("%d", now.Unix()),
		"interval":       interval,
		"includePrePost": "false",
		"events":         "div,split",
	}

	chartResp, err := r.fetchChart(ctx, symbol, queryParams)
	if err != nil {
		return nil, err
	}
	return ParseChartBars(chartResp)
}

// ParseChartBars converts a chart response to bars, skipping incomplete rows.
func ParseChartBars(chartResp *dto.YahooChartResponse) ([]dto.StockOHLCV, error) {
	result := chartResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", result.Meta.Symbol)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]dto.StockOHLCV, 0, len(result.Timestamp))
	for i, timestamp := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}
		if quote.Open[i] == 0 || quote.High[i] == 0 || quote.Low[i] == 0 || quote.Close[i] == 0 {
			continue
		}
		bars = append(bars, dto.StockOHLCV{
			Timestamp: timestamp,
			Open:      quote.Open[i],
			High:      quote.High[i],
			Low:       quote.Low[i],
			Close:     quote.Close[i],
			Volume:    quote.Volume[i],
		})
	}
	return bars, nil
}

func (r *marketDataRepository) FetchQuote(ctx context.Context, symbol string) (*dto.Quote, error) {
	quote, err := r.fetchQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	// quote endpoint is often gated; chart meta still carries the last price
	r.logger.DebugContext(ctx, "Quote endpoint failed, falling back to chart meta",
		logger.SymbolField(symbol), logger.ErrorField(err))
	chartResp, chartErr := r.fetchChart(ctx, symbol, map[string]string{"range": "1d", "interval": "1d"})
	if chartErr != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, chartErr)
	}
	meta := chartResp.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("no market price for symbol: %s", symbol)
	}
	return &dto.Quote{
		Symbol:   symbol,
		Price:    meta.RegularMarketPrice,
		Exchange: common.ExchangeFromYahoo(meta.ExchangeName),
	}, nil
}

func (r *marketDataRepository) fetchQuote(ctx context.Context, symbol string) (*dto.Quote, error) {
	if err := r.limiters.GetLimiter(limiterKeyQuote).Wait(ctx); err != nil {
		return nil, err
	}

	var quoteResp dto.YahooQuoteResponse
	resp, err := r.httpClient.Get(ctx, "/v7/finance/quote", map[string]string{"symbols": symbol}, nil, &quoteResp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo quote api returned status: %d", resp.StatusCode)
	}
	for _, q := range quoteResp.QuoteResponse.Result {
		if !strings.EqualFold(q.Symbol, symbol) || q.RegularMarketPrice <= 0 {
			continue
		}
		return &dto.Quote{
			Symbol:    symbol,
			Price:     q.RegularMarketPrice,
			Exchange:  common.ExchangeFromYahoo(q.Exchange),
			PERatio:   q.TrailingPE,
			PEGRatio:  q.PEGRatio,
			MarketCap: q.MarketCap,
		}, nil
	}
	return nil, fmt.Errorf("no quote returned for symbol: %s", symbol)
}
