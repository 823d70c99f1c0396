package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang-autotrade/internal/dto"
	"golang-autotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPositionManager(t *testing.T) (*positionManager, *memStore) {
	t.Helper()
	store := newMemStore()
	pm := NewPositionManager(testRisk(), logger.NewNop(), store).(*positionManager)
	pm.now = func() time.Time { return time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC) }
	return pm, store
}

func openAt(t *testing.T, pm PositionManager, symbol string, price float64, qty int) {
	t.Helper()
	_, err := pm.Open(context.Background(), symbol, "NASD", price, qty, 80)
	require.NoError(t, err)
}

func TestOpenSetsInitialState(t *testing.T) {
	pm, store := newTestPositionManager(t)

	p, err := pm.Open(context.Background(), "AAPL", "NASD", 100, 10, 85)
	require.NoError(t, err)

	assert.InDelta(t, 97.0, p.CurrentStopLoss, 1e-9)
	assert.Equal(t, 10, p.OriginalQuantity)
	assert.Equal(t, 100.0, p.HighestPrice)
	assert.False(t, p.TrailingStopActive)
	assert.Contains(t, store.snapshot(), "AAPL")

	_, err = pm.Open(context.Background(), "AAPL", "NASD", 101, 5, 85)
	assert.ErrorIs(t, err, ErrPositionExists)
}

func TestUpdateUnknownPosition(t *testing.T) {
	pm, _ := newTestPositionManager(t)
	_, err := pm.Update(context.Background(), "AAPL", 100)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestTrailingStopScenario(t *testing.T) {
	ctx := context.Background()
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(ctx, "AAPL", 100)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionHold, d.Action)

	d, err = pm.Update(ctx, "AAPL", 102)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionHold, d.Action)
	assert.True(t, d.TrailingArmed)
	assert.InDelta(t, 100.47, d.StopLoss, 1e-9)

	d, err = pm.Update(ctx, "AAPL", 101)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionHold, d.Action)
	assert.InDelta(t, 100.47, d.StopLoss, 1e-9)

	d, err = pm.Update(ctx, "AAPL", 98)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionTrailing, d.Action)
	assert.Equal(t, 10, d.SellQuantity)
	assert.True(t, d.FullExit)
	assert.InDelta(t, 100.47, d.StopLoss, 1e-9)
}

func TestStopLossExitsWholePosition(t *testing.T) {
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(context.Background(), "AAPL", 96.9)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionStopLoss, d.Action)
	assert.Equal(t, 10, d.SellQuantity)
	assert.True(t, d.IsExit())
	assert.True(t, strings.HasPrefix(d.Reason, "stop loss hit"), d.Reason)
}

func TestBreakEvenStopIsEnforced(t *testing.T) {
	ctx := context.Background()
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(ctx, "AAPL", 101)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionHold, d.Action)
	assert.False(t, d.TrailingArmed)
	assert.InDelta(t, 100.1, d.StopLoss, 1e-9)

	d, err = pm.Update(ctx, "AAPL", 100)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionStopLoss, d.Action)
	assert.True(t, strings.HasPrefix(d.Reason, "break-even stop hit"), d.Reason)
}

func TestTakeProfitFiresOncePerLevel(t *testing.T) {
	ctx := context.Background()
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(ctx, "AAPL", 103)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionTakeProfit, d.Action)
	assert.Equal(t, []int{1}, d.LevelsHit)
	assert.Equal(t, 3, d.SellQuantity)
	assert.False(t, d.FullExit)

	remaining, err := pm.ApplySell(ctx, "AAPL", d.SellQuantity)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)

	d, err = pm.Update(ctx, "AAPL", 103)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionHold, d.Action)

	// the second tier is sized from the original quantity
	d, err = pm.Update(ctx, "AAPL", 105)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionTakeProfit, d.Action)
	assert.Equal(t, []int{2}, d.LevelsHit)
	assert.Equal(t, 3, d.SellQuantity)
}

func TestTakeProfitGapFiresAllCrossedLevels(t *testing.T) {
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(context.Background(), "AAPL", 106)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, d.LevelsHit)
	assert.Equal(t, 6, d.SellQuantity)
	assert.False(t, d.FullExit)

	p, ok := pm.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, []int(p.TakeProfitLevelsHit))
}

func TestFinalTakeProfitLevelExitsFully(t *testing.T) {
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(context.Background(), "AAPL", 111)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionTakeProfit, d.Action)
	assert.Equal(t, []int{1, 2, 3}, d.LevelsHit)
	assert.Equal(t, 10, d.SellQuantity)
	assert.True(t, d.FullExit)
}

func TestSingleSharePartialTakeProfitSellsWhole(t *testing.T) {
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 1)

	d, err := pm.Update(context.Background(), "AAPL", 103)
	require.NoError(t, err)
	assert.Equal(t, 1, d.SellQuantity)
	assert.True(t, d.FullExit)
}

func TestStopNeverMovesDown(t *testing.T) {
	ctx := context.Background()
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 100)

	prev := 97.0
	for _, price := range []float64{100.5, 101.2, 102.4, 101.9, 102.8, 102.1, 101.5, 102.0} {
		d, err := pm.Update(ctx, "AAPL", price)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d.StopLoss, prev, "price %.2f", price)
		prev = d.StopLoss
	}
}

func TestReleaseTakeProfitLevelsAllowsRefire(t *testing.T) {
	ctx := context.Background()
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	d, err := pm.Update(ctx, "AAPL", 103)
	require.NoError(t, err)
	require.Equal(t, []int{1}, d.LevelsHit)

	require.NoError(t, pm.ReleaseTakeProfitLevels(ctx, "AAPL", d.LevelsHit))

	d, err = pm.Update(ctx, "AAPL", 103.5)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionTakeProfit, d.Action)
	assert.Equal(t, []int{1}, d.LevelsHit)
}

func TestPersistFailureKeepsMemoryAndRetries(t *testing.T) {
	ctx := context.Background()
	pm, store := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	store.setFail(true)
	_, err := pm.Update(ctx, "AAPL", 102)
	assert.ErrorIs(t, err, ErrPersistFailed)

	p, _ := pm.Get("AAPL")
	assert.True(t, p.TrailingStopActive, "memory stays authoritative")
	assert.False(t, store.snapshot()["AAPL"].TrailingStopActive)

	store.setFail(false)
	require.NoError(t, pm.Sync(ctx))
	assert.True(t, store.snapshot()["AAPL"].TrailingStopActive)
}

func TestApplySellRemovesEmptyPosition(t *testing.T) {
	ctx := context.Background()
	pm, store := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)

	remaining, err := pm.ApplySell(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Zero(t, pm.Count())
	assert.NotContains(t, store.snapshot(), "AAPL")
}

func TestLoadRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	pm, store := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)
	_, err := pm.Update(ctx, "AAPL", 103)
	require.NoError(t, err)

	restarted := NewPositionManager(testRisk(), logger.NewNop(), store)
	require.NoError(t, restarted.Load(ctx))

	d, err := restarted.Update(ctx, "AAPL", 103)
	require.NoError(t, err)
	assert.Equal(t, dto.PositionActionHold, d.Action, "a level hit before restart must not fire again")
}

func TestReconcileWithHoldings(t *testing.T) {
	ctx := context.Background()
	pm, _ := newTestPositionManager(t)
	openAt(t, pm, "AAPL", 100, 10)
	openAt(t, pm, "MSFT", 400, 2)

	result, err := pm.Reconcile(ctx, []dto.Holding{
		{Symbol: "AAPL", Exchange: "NASD", Quantity: 7, AvgPrice: 100, CurrentPrice: 101},
		{Symbol: "NVDA", Exchange: "NASD", Quantity: 4, AvgPrice: 120, CurrentPrice: 125},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"NVDA"}, result.Adopted)
	assert.Equal(t, []string{"AAPL"}, result.Adjusted)
	assert.Equal(t, []string{"MSFT"}, result.Dropped)

	aapl, _ := pm.Get("AAPL")
	assert.Equal(t, 7, aapl.Quantity)
	assert.Equal(t, 10, aapl.OriginalQuantity)

	nvda, ok := pm.Get("NVDA")
	require.True(t, ok)
	assert.Equal(t, 120.0, nvda.EntryPrice)
	assert.Equal(t, 125.0, nvda.HighestPrice)
	assert.InDelta(t, 116.4, nvda.CurrentStopLoss, 1e-9)
}

func TestCalculatePositionSize(t *testing.T) {
	pm, _ := newTestPositionManager(t)

	tests := []struct {
		name       string
		score      float64
		price      float64
		capital    float64
		multiplier float64
		atrPct     float64
		wantQty    int
	}{
		{"top score uses max", 95, 100, 100000, 1, 1, 100},
		{"score 85", 85, 100, 100000, 1, 1, 80},
		{"score 72", 72, 100, 100000, 1, 1, 60},
		{"score 65", 65, 100, 100000, 1, 1, 40},
		{"low score uses min", 50, 100, 100000, 1, 1, 20},
		{"fearful regime clamps to min", 95, 100, 100000, 0.2, 1, 20},
		{"greedy regime clamps to max", 95, 100, 100000, 2, 1, 100},
		{"very high atr halves", 95, 100, 100000, 1, 6, 50},
		{"high atr trims", 95, 100, 100000, 1, 4, 75},
		{"expensive share still buys one", 95, 5000, 1000, 1, 1, 1},
		{"no price", 95, 0, 100000, 1, 1, 0},
		{"no capital", 95, 100, 0, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := pm.CalculatePositionSize(tt.score, tt.price, tt.capital, tt.multiplier, tt.atrPct)
			assert.Equal(t, tt.wantQty, size.Quantity)
			if tt.wantQty > 0 {
				assert.GreaterOrEqual(t, size.PositionPct, 2.0)
				assert.LessOrEqual(t, size.PositionPct, 10.0)
			}
		})
	}
}

func TestCanAddPosition(t *testing.T) {
	pm, _ := newTestPositionManager(t)

	ok, reason := pm.CanAddPosition(20, 0, 1000, 100000)
	assert.False(t, ok)
	assert.Contains(t, reason, "max positions")

	ok, reason = pm.CanAddPosition(5, 70000, 15000, 100000)
	assert.False(t, ok)
	assert.Contains(t, reason, "exposure")

	ok, _ = pm.CanAddPosition(5, 70000, 10000, 100000)
	assert.True(t, ok)

	ok, _ = pm.CanAddPosition(0, 0, 1000, 0)
	assert.False(t, ok)
}
