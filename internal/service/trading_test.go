package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVolatility struct{}

func (stubVolatility) Analyze(ctx context.Context, symbol string) dto.VolatilityData {
	return dto.VolatilityData{Symbol: symbol, ATRPercent: 2, Score: 40}
}

func (s stubVolatility) FilterCandidates(ctx context.Context, symbols []string) []dto.Candidate {
	out := make([]dto.Candidate, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, dto.Candidate{Symbol: symbol, Exchange: "NASD", Price: 100, Volatility: s.Analyze(ctx, symbol)})
	}
	return out
}

type stubAnalyzer struct {
	scores  map[string]float64
	signals map[string]dto.Recommendation
	panics  bool
}

func (a *stubAnalyzer) Analyze(ctx context.Context, c dto.Candidate) (*dto.RankedCandidate, error) {
	if a.panics {
		panic("indicator blew up")
	}
	score := a.scores[c.Symbol]
	return &dto.RankedCandidate{
		Candidate: c,
		Result:    dto.ScoringResult{Symbol: c.Symbol, TotalScore: score, Recommendation: recommendation(score)},
	}, nil
}

func (a *stubAnalyzer) AnalyzeSymbol(ctx context.Context, symbol string) (*dto.RankedCandidate, error) {
	rec, ok := a.signals[symbol]
	if !ok {
		rec = dto.RecommendationHold
	}
	return &dto.RankedCandidate{
		Candidate: dto.Candidate{Symbol: symbol},
		Result:    dto.ScoringResult{Symbol: symbol, TotalScore: 20, Recommendation: rec},
	}, nil
}

func (a *stubAnalyzer) AnalyzeCandidates(ctx context.Context, candidates []dto.Candidate) []dto.RankedCandidate {
	var out []dto.RankedCandidate
	for _, c := range candidates {
		r, _ := a.Analyze(ctx, c)
		out = append(out, *r)
	}
	return NewScorer().Rank(out)
}

// blockingBroker parks GetBalance until released.
type blockingBroker struct {
	*fakeBroker
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBroker) GetBalance(ctx context.Context) (*dto.Balance, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.fakeBroker.GetBalance(ctx)
}

type tradingFixture struct {
	cfg       *config.Config
	broker    *fakeBroker
	md        *fakeMarketData
	regime    *fakeRegime
	analyzer  *stubAnalyzer
	positions *positionManager
	store     *memStore
}

func newTradingFixture(t *testing.T) *tradingFixture {
	t.Helper()
	pm, store := newTestPositionManager(t)
	return &tradingFixture{
		cfg: &config.Config{
			Broker: config.Broker{TradingMode: config.TradingModePaper},
			Trading: config.Trading{
				Universe:           []string{"AAPL", "MSFT"},
				MinBuyScore:        60,
				MaxScreeningPasses: 3,
			},
			Risk: testRisk(),
		},
		broker:    &fakeBroker{balance: dto.Balance{BuyingPower: 100000}},
		md:        newFakeMarketData(),
		regime:    &fakeRegime{regime: dto.MarketRegime{Regime: dto.RegimeNeutral, AllowBuy: true, AllowSell: true, PositionSizeMultiplier: 1}},
		analyzer:  &stubAnalyzer{scores: map[string]float64{}, signals: map[string]dto.Recommendation{}},
		positions: pm,
		store:     store,
	}
}

func (f *tradingFixture) service() *tradingService {
	return f.serviceWithBroker(f.broker)
}

func (f *tradingFixture) serviceWithBroker(broker contract.OrderClient) *tradingService {
	return NewTradingService(f.cfg, logger.NewNop(), broker, f.md, nil, f.regime, stubVolatility{}, f.analyzer, f.positions).(*tradingService)
}

func TestRunCycleBuysTopCandidate(t *testing.T) {
	f := newTradingFixture(t)
	f.analyzer.scores["AAPL"] = 90
	f.analyzer.scores["MSFT"] = 50

	report, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)

	buys := f.broker.ordersBySide(dto.OrderSideBuy)
	require.Len(t, buys, 1)
	assert.Equal(t, "AAPL", buys[0].Symbol)
	assert.Equal(t, 100, buys[0].Quantity)
	assert.Equal(t, 1, report.Executed())
	assert.Equal(t, 2, report.Passes, "second pass finds nothing and ends the loop")

	p, ok := f.positions.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 100, p.Quantity)
	assert.Contains(t, f.store.snapshot(), "AAPL")
}

func TestRunCycleRespectsBuyBlock(t *testing.T) {
	f := newTradingFixture(t)
	f.analyzer.scores["AAPL"] = 95
	f.regime.regime.AllowBuy = false

	report, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.broker.orders)
	assert.Zero(t, report.Passes)
}

func TestRunCycleStopLossSellsPosition(t *testing.T) {
	f := newTradingFixture(t)
	openAt(t, f.positions, "AAPL", 100, 10)
	f.md.quotes["AAPL"] = &dto.Quote{Symbol: "AAPL", Price: 96}
	f.regime.regime.AllowBuy = false

	report, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)

	sells := f.broker.ordersBySide(dto.OrderSideSell)
	require.Len(t, sells, 1)
	assert.Equal(t, 10, sells[0].Quantity)
	assert.Equal(t, dto.PositionActionStopLoss, report.Trades[0].Action)
	assert.Zero(t, f.positions.Count())
}

func TestFailedTakeProfitReleasesLevels(t *testing.T) {
	f := newTradingFixture(t)
	openAt(t, f.positions, "AAPL", 100, 10)
	f.md.quotes["AAPL"] = &dto.Quote{Symbol: "AAPL", Price: 103}
	f.regime.regime.AllowBuy = false
	f.broker.failSide = dto.OrderSideSell

	report, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	assert.False(t, report.Trades[0].Success)
	p, _ := f.positions.Get("AAPL")
	assert.Empty(t, p.TakeProfitLevelsHit)
	assert.Equal(t, 10, p.Quantity)

	f.broker.failSide = ""
	_, err = f.service().RunCycle(context.Background())
	require.NoError(t, err)
	p, _ = f.positions.Get("AAPL")
	assert.Equal(t, 7, p.Quantity)
	assert.Equal(t, []int{1}, []int(p.TakeProfitLevelsHit))
}

func TestExitDeferredWhenSellingClosed(t *testing.T) {
	f := newTradingFixture(t)
	openAt(t, f.positions, "AAPL", 100, 10)
	f.md.quotes["AAPL"] = &dto.Quote{Symbol: "AAPL", Price: 103}
	f.regime.regime = dto.MarketRegime{Session: dto.SessionAftermarket, PositionSizeMultiplier: 1}

	_, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.broker.orders)
	p, _ := f.positions.Get("AAPL")
	assert.Empty(t, p.TakeProfitLevelsHit)
}

func TestSignalSellOnlyWhenHolding(t *testing.T) {
	f := newTradingFixture(t)
	f.cfg.Trading.SignalSellEnabled = true
	f.regime.regime.AllowBuy = false
	openAt(t, f.positions, "AAPL", 100, 10)
	openAt(t, f.positions, "MSFT", 100, 4)
	f.md.quotes["AAPL"] = &dto.Quote{Symbol: "AAPL", Price: 100.5}
	f.md.quotes["MSFT"] = &dto.Quote{Symbol: "MSFT", Price: 100.5}
	f.analyzer.signals["AAPL"] = dto.RecommendationStrongSell

	report, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)

	sells := f.broker.ordersBySide(dto.OrderSideSell)
	require.Len(t, sells, 1)
	assert.Equal(t, "AAPL", sells[0].Symbol)
	assert.Equal(t, 10, sells[0].Quantity)
	assert.Equal(t, dto.PositionActionSignalSell, report.Trades[0].Action)
	assert.Equal(t, 1, f.positions.Count())
}

func TestRunCycleIsNotReentrant(t *testing.T) {
	f := newTradingFixture(t)
	broker := &blockingBroker{fakeBroker: f.broker, entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := f.serviceWithBroker(broker)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunCycle(context.Background())
		done <- err
	}()

	select {
	case <-broker.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never started")
	}
	assert.True(t, svc.IsRunning())

	_, err := svc.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(broker.release)
	require.NoError(t, <-done)
	assert.False(t, svc.IsRunning())
}

func TestRunCycleRecoversFromPanic(t *testing.T) {
	f := newTradingFixture(t)
	f.analyzer.panics = true
	svc := f.service()

	report, err := svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	require.NotNil(t, report)
	assert.False(t, report.FinishedAt.IsZero())
	assert.False(t, svc.IsRunning())

	f.analyzer.panics = false
	_, err = svc.RunCycle(context.Background())
	assert.NoError(t, err, "guard is released after a panic")
}

func TestRunCycleStopsOnBalanceFailure(t *testing.T) {
	f := newTradingFixture(t)
	f.broker.balErr = errors.New("token expired")

	_, err := f.service().RunCycle(context.Background())
	assert.Error(t, err)
	assert.Empty(t, f.broker.orders)
}

func TestRealModeReconcilesHoldings(t *testing.T) {
	f := newTradingFixture(t)
	f.cfg.Broker.TradingMode = config.TradingModeReal
	f.regime.regime.AllowBuy = false
	f.broker.balance.Holdings = []dto.Holding{
		{Symbol: "NVDA", Exchange: "NASD", Quantity: 5, AvgPrice: 120, CurrentPrice: 121},
	}

	report, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.PositionsSeen)
	p, ok := f.positions.Get("NVDA")
	require.True(t, ok)
	assert.Equal(t, 5, p.Quantity)
	assert.Empty(t, f.broker.orders)
}

func TestRiskLimitsBlockEntry(t *testing.T) {
	f := newTradingFixture(t)
	f.cfg.Risk.MaxPositions = 1
	f.positions.cfg.MaxPositions = 1
	openAt(t, f.positions, "TSLA", 100, 1)
	f.md.quotes["TSLA"] = &dto.Quote{Symbol: "TSLA", Price: 100.2}
	f.analyzer.scores["AAPL"] = 95

	_, err := f.service().RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.broker.ordersBySide(dto.OrderSideBuy))
}
