package service

import (
	"context"
	"errors"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/model"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/utils"
	"math"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
)

// PositionManager owns the lifecycle of every open position. All mutations
// are persisted through the store before the resulting decision is returned.
type PositionManager interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, symbol, exchange string, price float64, quantity int, score float64) (*model.Position, error)
	Update(ctx context.Context, symbol string, price float64) (dto.PositionDecision, error)
	ApplySell(ctx context.Context, symbol string, quantity int) (int, error)
	ReleaseTakeProfitLevels(ctx context.Context, symbol string, levels []int) error
	Remove(ctx context.Context, symbol string) error
	Reconcile(ctx context.Context, holdings []dto.Holding) (*ReconcileResult, error)
	Sync(ctx context.Context) error

	Get(symbol string) (*model.Position, bool)
	List() []*model.Position
	Count() int
	Exposure() float64

	CalculatePositionSize(score, price, totalCapital, multiplier, atrPct float64) dto.PositionSize
	CanAddPosition(currentCount int, currentExposure, proposedAmount, totalCapital float64) (bool, string)
}

type ReconcileResult struct {
	Adopted  []string `json:"adopted"`
	Adjusted []string `json:"adjusted"`
	Dropped  []string `json:"dropped"`
}

func (r *ReconcileResult) Changed() bool {
	return len(r.Adopted)+len(r.Adjusted)+len(r.Dropped) > 0
}

type positionManager struct {
	cfg   config.Risk
	log   *logger.Logger
	store contract.PositionStore
	now   func() time.Time

	mu        sync.Mutex
	positions map[string]*model.Position
	dirty     bool
}

func NewPositionManager(cfg config.Risk, log *logger.Logger, store contract.PositionStore) PositionManager {
	return &positionManager{
		cfg:       cfg,
		log:       log,
		store:     store,
		now:       time.Now,
		positions: make(map[string]*model.Position),
	}
}

func (m *positionManager) Load(ctx context.Context) error {
	positions, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
	m.dirty = false
	m.log.InfoContext(ctx, "Positions loaded", logger.IntField("count", len(positions)))
	return nil
}

func (m *positionManager) Open(ctx context.Context, symbol, exchange string, price float64, quantity int, score float64) (*model.Position, error) {
	if price <= 0 || quantity <= 0 {
		return nil, fmt.Errorf("invalid position %s: price %.4f quantity %d", symbol, price, quantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.positions[symbol]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionExists, symbol)
	}

	p := &model.Position{
		Symbol:              symbol,
		Exchange:            exchange,
		EntryPrice:          price,
		Quantity:            quantity,
		OriginalQuantity:    quantity,
		Score:               score,
		EntryTime:           m.now(),
		HighestPrice:        price,
		LowestPrice:         price,
		CurrentStopLoss:     price * (1 + m.cfg.StopLossPct/100),
		TakeProfitLevelsHit: datatypes.JSONSlice[int]{},
	}

	next := m.withPosition(p)
	err := m.commit(ctx, next)
	return p.Clone(), err
}

// Update evaluates the exit state machine for one position at price. Causes
// are checked in a fixed order and the first match wins.
func (m *positionManager) Update(ctx context.Context, symbol string, price float64) (dto.PositionDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.positions[symbol]
	if !ok {
		return dto.PositionDecision{}, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	if price <= 0 {
		return dto.PositionDecision{}, fmt.Errorf("invalid price %.4f for %s", price, symbol)
	}

	p := current.Clone()
	decision := m.evaluate(p, price)

	next := m.withPosition(p)
	err := m.commit(ctx, next)
	return decision, err
}

func (m *positionManager) evaluate(p *model.Position, price float64) dto.PositionDecision {
	if price > p.HighestPrice {
		p.HighestPrice = price
	}
	if p.LowestPrice <= 0 || price < p.LowestPrice {
		p.LowestPrice = price
	}

	ret := p.ReturnPct(price)
	decision := dto.PositionDecision{
		Symbol:    p.Symbol,
		Action:    dto.PositionActionHold,
		Price:     price,
		ReturnPct: ret,
	}
	defer func() {
		decision.StopLoss = p.CurrentStopLoss
		decision.TrailingArmed = p.TrailingStopActive
	}()

	// A raised stop below the trailing range (break-even) is enforced here too.
	if ret <= m.cfg.StopLossPct || (!p.TrailingStopActive && price <= p.CurrentStopLoss) {
		decision.Action = dto.PositionActionStopLoss
		decision.SellQuantity = p.Quantity
		decision.FullExit = true
		decision.Reason = fmt.Sprintf("stop loss hit at %s (stop %s)", utils.FormatPercentage(ret), utils.FormatUSD(p.CurrentStopLoss))
		if ret > m.cfg.StopLossPct && p.CurrentStopLoss >= p.EntryPrice {
			decision.Reason = fmt.Sprintf("break-even stop hit at %s (stop %s)", utils.FormatPercentage(ret), utils.FormatUSD(p.CurrentStopLoss))
		}
		return decision
	}

	if ret >= m.cfg.BreakEvenTriggerPct && p.CurrentStopLoss < p.EntryPrice {
		p.CurrentStopLoss = p.EntryPrice * (1 + m.cfg.BreakEvenBufferPct/100)
	}

	if ret >= m.cfg.TrailingActivationPct {
		p.TrailingStopActive = true
	}
	if p.TrailingStopActive {
		floor := p.HighestPrice * (1 - m.cfg.TrailingPct/100)
		if floor > p.CurrentStopLoss {
			p.CurrentStopLoss = floor
		}
		if price <= p.CurrentStopLoss {
			decision.Action = dto.PositionActionTrailing
			decision.SellQuantity = p.Quantity
			decision.FullExit = true
			decision.Reason = fmt.Sprintf("trailing stop hit at %s (high %s)", utils.FormatUSD(price), utils.FormatUSD(p.HighestPrice))
			return decision
		}
	}

	var levels []int
	sellQty := 0
	lastHit := false
	for i, threshold := range m.cfg.TakeProfitLevels {
		level := i + 1
		if ret < threshold || p.HasLevel(level) {
			continue
		}
		levels = append(levels, level)
		sellQty += int(math.Floor(float64(p.OriginalQuantity) * m.cfg.TakeProfitSellRatios[i]))
		if level == len(m.cfg.TakeProfitLevels) {
			lastHit = true
		}
	}
	if len(levels) == 0 {
		return decision
	}

	if sellQty < 1 {
		sellQty = 1
	}
	if lastHit || sellQty >= p.Quantity {
		sellQty = p.Quantity
	}
	for _, level := range levels {
		p.MarkLevel(level)
	}

	decision.Action = dto.PositionActionTakeProfit
	decision.SellQuantity = sellQty
	decision.FullExit = sellQty == p.Quantity
	decision.LevelsHit = levels
	decision.Reason = fmt.Sprintf("take profit level %v at %s", levels, utils.FormatPercentage(ret))
	return decision
}

// ApplySell reduces the tracked quantity after a fill and removes the
// position once nothing remains. It returns the remaining quantity.
func (m *positionManager) ApplySell(ctx context.Context, symbol string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.positions[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}

	p := current.Clone()
	p.Quantity -= quantity
	if p.Quantity <= 0 {
		return 0, m.commit(ctx, m.withoutPosition(symbol))
	}
	return p.Quantity, m.commit(ctx, m.withPosition(p))
}

// ReleaseTakeProfitLevels clears levels marked by an Update whose order was
// never filled, so they can fire again.
func (m *positionManager) ReleaseTakeProfitLevels(ctx context.Context, symbol string, levels []int) error {
	if len(levels) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.positions[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}

	p := current.Clone()
	kept := datatypes.JSONSlice[int]{}
	for _, l := range p.TakeProfitLevelsHit {
		release := false
		for _, r := range levels {
			if l == r {
				release = true
				break
			}
		}
		if !release {
			kept = append(kept, l)
		}
	}
	p.TakeProfitLevelsHit = kept
	return m.commit(ctx, m.withPosition(p))
}

func (m *positionManager) Remove(ctx context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.positions[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	return m.commit(ctx, m.withoutPosition(symbol))
}

// Reconcile aligns records with broker holdings: unknown holdings are
// adopted at their average price, quantity drift is corrected and records
// the broker no longer holds are dropped.
func (m *positionManager) Reconcile(ctx context.Context, holdings []dto.Holding) (*ReconcileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &ReconcileResult{}
	next := make(map[string]*model.Position, len(holdings))
	seen := make(map[string]bool, len(holdings))

	for _, h := range holdings {
		if h.Quantity <= 0 || h.Symbol == "" {
			continue
		}
		seen[h.Symbol] = true

		existing, ok := m.positions[h.Symbol]
		if !ok {
			price := h.AvgPrice
			if price <= 0 {
				price = h.CurrentPrice
			}
			next[h.Symbol] = &model.Position{
				Symbol:              h.Symbol,
				Exchange:            h.Exchange,
				EntryPrice:          price,
				Quantity:            h.Quantity,
				OriginalQuantity:    h.Quantity,
				EntryTime:           m.now(),
				HighestPrice:        math.Max(price, h.CurrentPrice),
				LowestPrice:         price,
				CurrentStopLoss:     price * (1 + m.cfg.StopLossPct/100),
				TakeProfitLevelsHit: datatypes.JSONSlice[int]{},
			}
			result.Adopted = append(result.Adopted, h.Symbol)
			continue
		}

		p := existing.Clone()
		if p.Quantity != h.Quantity {
			p.Quantity = h.Quantity
			if p.OriginalQuantity < h.Quantity {
				p.OriginalQuantity = h.Quantity
			}
			result.Adjusted = append(result.Adjusted, h.Symbol)
		}
		next[h.Symbol] = p
	}

	for symbol := range m.positions {
		if !seen[symbol] {
			result.Dropped = append(result.Dropped, symbol)
		}
	}
	sort.Strings(result.Adopted)
	sort.Strings(result.Adjusted)
	sort.Strings(result.Dropped)

	if !result.Changed() {
		return result, m.flushDirty(ctx)
	}

	m.log.InfoContext(ctx, "Positions reconciled with broker",
		logger.Field("adopted", result.Adopted),
		logger.Field("adjusted", result.Adjusted),
		logger.Field("dropped", result.Dropped),
	)
	return result, m.commit(ctx, next)
}

// Sync flushes pending state and forces the store to durable storage.
func (m *positionManager) Sync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flushDirty(ctx); err != nil {
		return err
	}
	return m.store.Sync(ctx)
}

func (m *positionManager) Get(symbol string) (*model.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (m *positionManager) List() []*model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (m *positionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// Exposure is the cost basis of all tracked positions.
func (m *positionManager) Exposure() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0.0
	for _, p := range m.positions {
		total += p.CostBasis()
	}
	return total
}

func (m *positionManager) CalculatePositionSize(score, price, totalCapital, multiplier, atrPct float64) dto.PositionSize {
	if price <= 0 || totalCapital <= 0 {
		return dto.PositionSize{}
	}

	maxPct, minPct := m.cfg.MaxPositionPct, m.cfg.MinPositionPct
	var pct float64
	switch {
	case score >= 90:
		pct = maxPct
	case score >= 80:
		pct = maxPct * 0.8
	case score >= 70:
		pct = maxPct * 0.6
	case score >= 60:
		pct = maxPct * 0.4
	default:
		pct = minPct
	}

	pct *= multiplier
	if atrPct > 5 {
		pct *= 0.5
	} else if atrPct > 3 {
		pct *= 0.75
	}
	pct = utils.Clamp(pct, minPct, maxPct)

	quantity := int(math.Floor(totalCapital * pct / 100 / price))
	if quantity < 1 {
		quantity = 1
	}
	return dto.PositionSize{
		Quantity:    quantity,
		PositionPct: pct,
		Amount:      float64(quantity) * price,
	}
}

func (m *positionManager) CanAddPosition(currentCount int, currentExposure, proposedAmount, totalCapital float64) (bool, string) {
	if currentCount >= m.cfg.MaxPositions {
		return false, fmt.Sprintf("max positions reached (%d)", m.cfg.MaxPositions)
	}
	if totalCapital <= 0 {
		return false, "no capital available"
	}
	exposurePct := (currentExposure + proposedAmount) / totalCapital * 100
	if exposurePct > m.cfg.MaxExposurePct {
		return false, fmt.Sprintf("exposure %.1f%% would exceed %.1f%%", exposurePct, m.cfg.MaxExposurePct)
	}
	return true, ""
}

// withPosition returns a shallow copy of the map with p set. Callers hold mu.
func (m *positionManager) withPosition(p *model.Position) map[string]*model.Position {
	next := make(map[string]*model.Position, len(m.positions)+1)
	for k, v := range m.positions {
		next[k] = v
	}
	next[p.Symbol] = p
	return next
}

func (m *positionManager) withoutPosition(symbol string) map[string]*model.Position {
	next := make(map[string]*model.Position, len(m.positions))
	for k, v := range m.positions {
		if k != symbol {
			next[k] = v
		}
	}
	return next
}

// commit persists next and makes it the in-memory state. Memory stays
// authoritative when the write fails; the dirty flag makes the next
// operation retry the flush. Callers hold mu.
func (m *positionManager) commit(ctx context.Context, next map[string]*model.Position) error {
	m.positions = next
	if err := m.store.Save(ctx, next); err != nil {
		m.dirty = true
		m.log.ErrorContextWithAlert(ctx, "Failed to persist positions", logger.ErrorField(err))
		return errors.Join(ErrPersistFailed, err)
	}
	m.dirty = false
	return nil
}

func (m *positionManager) flushDirty(ctx context.Context) error {
	if !m.dirty {
		return nil
	}
	if err := m.store.Save(ctx, m.positions); err != nil {
		m.log.ErrorContext(ctx, "Failed to flush pending positions", logger.ErrorField(err))
		return errors.Join(ErrPersistFailed, err)
	}
	m.dirty = false
	return nil
}
