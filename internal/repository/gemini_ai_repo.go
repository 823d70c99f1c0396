package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/ratelimit"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// HeadlineClassifier turns a batch of headlines into one sentiment call.
type HeadlineClassifier interface {
	ClassifyHeadlines(ctx context.Context, symbol string, headlines []string) (*dto.NewsSentiment, error)
}

type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

type geminiSentimentResponse struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

func NewGeminiAIRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (HeadlineClassifier, error) {
	genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(ratelimit.PerMinute(cfg.Gemini.MaxRequestPerMinute), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiAIRepository) ClassifyHeadlines(ctx context.Context, symbol string, headlines []string) (*dto.NewsSentiment, error) {
	if len(headlines) == 0 {
		return &dto.NewsSentiment{Sentiment: dto.SentimentNeutral, Source: "gemini"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Gemini.Timeout)
	defer cancel()

	prompt := promptClassifyHeadlines(symbol, headlines)
	text, err := r.sendRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed geminiSentimentResponse
	if err := parseJSONText(text, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response from gemini: %w", err)
	}

	return &dto.NewsSentiment{
		Sentiment:     normalizeSentiment(parsed.Sentiment),
		Score:         parsed.Score,
		HeadlineCount: len(headlines),
		Headlines:     headlines,
		Source:        "gemini",
	}, nil
}

func (r *geminiAIRepository) sendRequest(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.DebugContext(ctx, "Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for token gemini limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request gemini limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.BaseModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send request to gemini: %w", err)
	}
	return resp.Text(), nil
}

func parseJSONText(text string, dest interface{}) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty response")
	}
	return json.Unmarshal([]byte(strings.TrimSpace(text)), dest)
}

func normalizeSentiment(s string) dto.Sentiment {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(dto.SentimentPositive), "BULLISH":
		return dto.SentimentPositive
	case string(dto.SentimentNegative), "BEARISH":
		return dto.SentimentNegative
	default:
		return dto.SentimentNeutral
	}
}
