package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang-autotrade/config"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/model"
)

var errStoreDown = errors.New("store unavailable")

type memStore struct {
	mu       sync.Mutex
	saved    map[string]*model.Position
	saves    int
	failSave bool
	loadErr  error
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]*model.Position{}}
}

func (s *memStore) Load(ctx context.Context) (map[string]*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return clonePositions(s.saved), nil
}

func (s *memStore) Save(ctx context.Context, positions map[string]*model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStoreDown
	}
	s.saves++
	s.saved = clonePositions(positions)
	return nil
}

func (s *memStore) Sync(ctx context.Context) error { return nil }
func (s *memStore) Close() error                   { return nil }

func (s *memStore) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = fail
}

func (s *memStore) snapshot() map[string]*model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePositions(s.saved)
}

func clonePositions(in map[string]*model.Position) map[string]*model.Position {
	out := make(map[string]*model.Position, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

type fakeMarketData struct {
	mu        sync.Mutex
	bars      map[string][]dto.StockOHLCV
	quotes    map[string]*dto.Quote
	barErr    error
	quoteErr  error
	barCalls  int
	quoteHits map[string]int
}

func newFakeMarketData() *fakeMarketData {
	return &fakeMarketData{
		bars:      map[string][]dto.StockOHLCV{},
		quotes:    map[string]*dto.Quote{},
		quoteHits: map[string]int{},
	}
}

func (f *fakeMarketData) FetchMarketData(ctx context.Context, symbol, interval string, lookbackDays int) ([]dto.StockOHLCV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barCalls++
	if f.barErr != nil {
		return nil, f.barErr
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}
	return bars, nil
}

func (f *fakeMarketData) FetchQuote(ctx context.Context, symbol string) (*dto.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteHits[symbol]++
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	copied := *q
	return &copied, nil
}

type fakeBroker struct {
	mu       sync.Mutex
	balance  dto.Balance
	orders   []dto.OrderRequest
	failSide dto.OrderSide
	balErr   error
}

func (b *fakeBroker) GetBalance(ctx context.Context) (*dto.Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balErr != nil {
		return nil, b.balErr
	}
	copied := b.balance
	return &copied, nil
}

func (b *fakeBroker) PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, req)
	if b.failSide == req.Side {
		return &dto.OrderResult{Success: false, Message: "rejected by broker"}, nil
	}
	return &dto.OrderResult{Success: true, OrderID: fmt.Sprintf("ORD-%d", len(b.orders)), Simulated: true}, nil
}

func (b *fakeBroker) ordersBySide(side dto.OrderSide) []dto.OrderRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []dto.OrderRequest
	for _, o := range b.orders {
		if o.Side == side {
			out = append(out, o)
		}
	}
	return out
}

type fakeSentiment struct {
	result *dto.NewsSentiment
	err    error
}

func (f *fakeSentiment) AnalyzeNews(ctx context.Context, symbol string) (*dto.NewsSentiment, error) {
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.result
	return &copied, nil
}

type fakeRegime struct {
	regime dto.MarketRegime
}

func (f *fakeRegime) Current(ctx context.Context) dto.MarketRegime { return f.regime }
func (f *fakeRegime) Invalidate()                                  {}

func testRisk() config.Risk {
	return config.Risk{
		StopLossPct:           -3,
		BreakEvenTriggerPct:   1,
		BreakEvenBufferPct:    0.1,
		TrailingActivationPct: 2,
		TrailingPct:           1.5,
		TakeProfitLevels:      []float64{3, 5, 10},
		TakeProfitSellRatios:  []float64{0.3, 0.3, 0.4},
		MinPositionPct:        2,
		MaxPositionPct:        10,
		MaxPositions:          20,
		MaxExposurePct:        80,
	}
}

// trendingBars builds n daily bars closing at start, start+step, ...
// with a fixed high/low spread and volume.
func trendingBars(n int, start, step, spread float64, volume int64) []dto.StockOHLCV {
	bars := make([]dto.StockOHLCV, n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = dto.StockOHLCV{
			Open:      c - step/2,
			High:      c + spread/2,
			Low:       c - spread/2,
			Close:     c,
			Volume:    volume,
			Timestamp: int64(1717000000 + i*86400),
		}
	}
	return bars
}
