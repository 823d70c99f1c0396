package repository

import (
	"context"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/httpclient"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/ratelimit"
	"golang-autotrade/pkg/utils"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

type newsRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	logger     *logger.Logger
	classifier HeadlineClassifier
	fallback   HeadlineClassifier
}

// NewNewsRepository fetches headlines from Yahoo search and classifies them
// with classifier, using the lexicon when classifier is nil or fails.
func NewNewsRepository(cfg *config.Config, log *logger.Logger, classifier HeadlineClassifier) contract.SentimentClient {
	limiter := rate.NewLimiter(ratelimit.PerMinute(cfg.News.MaxRequestPerMinute), 1)
	return &newsRepository{
		httpClient: httpclient.New(log, cfg.News.BaseURL, cfg.News.Timeout, "",
			httpclient.WithHeaders(yahooHeaders), httpclient.WithLimiter(limiter)),
		cfg:        cfg,
		logger:     log,
		classifier: classifier,
		fallback:   NewLexiconClassifier(),
	}
}

func (r *newsRepository) fetchHeadlines(ctx context.Context, symbol string) ([]string, error) {
	params := map[string]string{
		"q":           symbol,
		"quotesCount": "0",
		"newsCount":   strconv.Itoa(r.cfg.News.MaxHeadlines),
	}

	var searchResp dto.YahooSearchResponse
	resp, err := r.httpClient.Get(ctx, "/v1/finance/search", params, nil, &searchResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo search api returned status: %d", resp.StatusCode)
	}

	headlines := make([]string, 0, len(searchResp.News))
	for _, n := range searchResp.News {
		title := utils.SafeText(n.Title)
		if title == "" {
			continue
		}
		headlines = append(headlines, title)
		if len(headlines) >= r.cfg.News.MaxHeadlines {
			break
		}
	}
	return headlines, nil
}

func (r *newsRepository) AnalyzeNews(ctx context.Context, symbol string) (*dto.NewsSentiment, error) {
	headlines, err := r.fetchHeadlines(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(headlines) == 0 {
		return &dto.NewsSentiment{Sentiment: dto.SentimentNeutral, Source: "none"}, nil
	}

	if r.classifier != nil {
		result, err := r.classifier.ClassifyHeadlines(ctx, symbol, headlines)
		if err == nil {
			return result, nil
		}
		r.logger.WarnContext(ctx, "Headline classifier failed, using lexicon",
			logger.SymbolField(symbol), logger.ErrorField(err))
	}
	return r.fallback.ClassifyHeadlines(ctx, symbol, headlines)
}
