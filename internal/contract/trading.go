package contract

import (
	"context"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/model"
)

// OrderClient is the brokerage account/order surface. Implementations fail
// closed: any auth or network problem is returned as an error.
type OrderClient interface {
	GetBalance(ctx context.Context) (*dto.Balance, error)
	PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResult, error)
}

type MarketDataClient interface {
	FetchMarketData(ctx context.Context, symbol string, interval string, lookbackDays int) ([]dto.StockOHLCV, error)
	FetchQuote(ctx context.Context, symbol string) (*dto.Quote, error)
}

type SentimentClient interface {
	AnalyzeNews(ctx context.Context, symbol string) (*dto.NewsSentiment, error)
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// PositionStore persists the position map keyed by symbol.
type PositionStore interface {
	Load(ctx context.Context) (map[string]*model.Position, error)
	Save(ctx context.Context, positions map[string]*model.Position) error
	Sync(ctx context.Context) error
	Close() error
}
