package service

import (
	"context"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/indicator"
	"golang-autotrade/pkg/common"
	"golang-autotrade/pkg/logger"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	trendShortPeriod = 5
	trendMidPeriod   = 20
	trendLongPeriod  = 50
)

// StockAnalyzer gathers every factor for a symbol and scores it.
type StockAnalyzer interface {
	Analyze(ctx context.Context, candidate dto.Candidate) (*dto.RankedCandidate, error)
	AnalyzeSymbol(ctx context.Context, symbol string) (*dto.RankedCandidate, error)
	AnalyzeCandidates(ctx context.Context, candidates []dto.Candidate) []dto.RankedCandidate
}

type stockAnalyzer struct {
	cfg        config.Trading
	log        *logger.Logger
	marketData contract.MarketDataClient
	sentiment  contract.SentimentClient
	volatility VolatilityAnalyzer
	scorer     Scorer
}

func NewStockAnalyzer(cfg config.Trading, log *logger.Logger, marketData contract.MarketDataClient, sentiment contract.SentimentClient, volatility VolatilityAnalyzer, scorer Scorer) StockAnalyzer {
	return &stockAnalyzer{
		cfg:        cfg,
		log:        log,
		marketData: marketData,
		sentiment:  sentiment,
		volatility: volatility,
		scorer:     scorer,
	}
}

func (a *stockAnalyzer) Analyze(ctx context.Context, candidate dto.Candidate) (*dto.RankedCandidate, error) {
	bars, err := a.marketData.FetchMarketData(ctx, candidate.Symbol, dto.IntervalDaily, a.cfg.AnalysisLookback)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", candidate.Symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s", candidate.Symbol)
	}

	ta := indicator.Analyze(bars)
	if candidate.Price > 0 {
		ta.Price = candidate.Price
		ta.Signals = indicator.Signals(ta.Indicators, candidate.Price)
	}

	input := dto.ScoreInput{
		Symbol:         candidate.Symbol,
		Technical:      ta,
		Fundamentals:   fundamentalsFromQuote(candidate.Quote),
		MultiTimeframe: MultiTimeframe(indicator.Closes(bars)),
	}
	if !candidate.Volatility.Insufficient {
		vol := candidate.Volatility
		input.Volatility = &vol
	}
	if a.sentiment != nil {
		ns, err := a.sentiment.AnalyzeNews(ctx, candidate.Symbol)
		if err != nil {
			a.log.WarnContext(ctx, "Sentiment unavailable", logger.SymbolField(candidate.Symbol), logger.ErrorField(err))
		} else {
			input.Sentiment = ns
		}
	}

	result := a.scorer.Score(input)
	a.log.DebugContext(ctx, "Symbol scored",
		logger.SymbolField(candidate.Symbol),
		logger.FloatField("score", result.TotalScore),
		logger.StringField("recommendation", string(result.Recommendation)),
	)
	return &dto.RankedCandidate{
		Candidate: candidate,
		Analysis:  ta,
		Result:    result,
	}, nil
}

// AnalyzeSymbol resolves the live quote and volatility before analyzing.
func (a *stockAnalyzer) AnalyzeSymbol(ctx context.Context, symbol string) (*dto.RankedCandidate, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	quote, err := a.marketData.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	exchange := common.ExchangeFromYahoo(quote.Exchange)
	if exchange == "" {
		exchange = a.cfg.Exchange
	}
	return a.Analyze(ctx, dto.Candidate{
		Symbol:     symbol,
		Exchange:   exchange,
		Price:      quote.Price,
		Volatility: a.volatility.Analyze(ctx, symbol),
		Quote:      quote,
	})
}

// AnalyzeCandidates scores candidates concurrently and returns them ranked.
// Symbols that fail analysis are skipped.
func (a *stockAnalyzer) AnalyzeCandidates(ctx context.Context, candidates []dto.Candidate) []dto.RankedCandidate {
	results := make([]*dto.RankedCandidate, len(candidates))

	var g errgroup.Group
	g.SetLimit(max(1, a.cfg.BatchSize))
	for i, c := range candidates {
		g.Go(func() error {
			ranked, err := a.Analyze(ctx, c)
			if err != nil {
				a.log.WarnContext(ctx, "Failed to analyze candidate", logger.SymbolField(c.Symbol), logger.ErrorField(err))
				return nil
			}
			results[i] = ranked
			return nil
		})
	}
	_ = g.Wait()

	ranked := make([]dto.RankedCandidate, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}
	return a.scorer.Rank(ranked)
}

func fundamentalsFromQuote(q *dto.Quote) *dto.Fundamentals {
	if q == nil || (q.PERatio == nil && q.PEGRatio == nil) {
		return nil
	}
	return &dto.Fundamentals{PERatio: q.PERatio, PEGRatio: q.PEGRatio}
}

// MultiTimeframe derives short (SMA5 vs SMA20) and long (SMA20 vs SMA50)
// trends. It returns nil when there are fewer than 50 closes.
func MultiTimeframe(closes []float64) *dto.MultiTimeframeTrend {
	if len(closes) < trendLongPeriod {
		return nil
	}
	return &dto.MultiTimeframeTrend{
		ShortTerm: crossoverTrend(closes, trendShortPeriod, trendMidPeriod),
		LongTerm:  crossoverTrend(closes, trendMidPeriod, trendLongPeriod),
	}
}
