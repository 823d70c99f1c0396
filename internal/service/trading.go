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
	"golang-autotrade/pkg/telegram"
	"golang-autotrade/pkg/utils"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TradingService runs one full trading cycle: manage open positions, then
// screen the universe for new entries.
type TradingService interface {
	RunCycle(ctx context.Context) (*dto.CycleReport, error)
	IsRunning() bool
}

type tradingService struct {
	cfg        *config.Config
	log        *logger.Logger
	broker     contract.OrderClient
	marketData contract.MarketDataClient
	notifier   contract.Notifier
	regime     RegimeClassifier
	volatility VolatilityAnalyzer
	analyzer   StockAnalyzer
	positions  PositionManager
	now        func() time.Time

	running atomic.Bool
}

func NewTradingService(
	cfg *config.Config,
	log *logger.Logger,
	broker contract.OrderClient,
	marketData contract.MarketDataClient,
	notifier contract.Notifier,
	regime RegimeClassifier,
	volatility VolatilityAnalyzer,
	analyzer StockAnalyzer,
	positions PositionManager,
) TradingService {
	return &tradingService{
		cfg:        cfg,
		log:        log,
		broker:     broker,
		marketData: marketData,
		notifier:   notifier,
		regime:     regime,
		volatility: volatility,
		analyzer:   analyzer,
		positions:  positions,
		now:        time.Now,
	}
}

func (s *tradingService) IsRunning() bool {
	return s.running.Load()
}

// RunCycle never runs concurrently with itself. A second caller gets
// ErrCycleInProgress immediately. The cycle is detached from the caller's
// cancellation so an order is never abandoned halfway.
func (s *tradingService) RunCycle(ctx context.Context) (report *dto.CycleReport, err error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.WarnContext(ctx, "Trading cycle skipped, previous cycle still running")
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	report = &dto.CycleReport{ID: uuid.NewString(), StartedAt: s.now()}
	ctx = logger.NewContext(context.WithoutCancel(ctx), s.log.With(logger.StringField("cycle_id", report.ID)))

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContextWithAlert(ctx, "Trading cycle panicked", logger.Field("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("trading cycle panicked: %v", r)
		}
		report.FinishedAt = s.now()
	}()

	regime := s.regime.Current(ctx)
	report.Regime = regime

	balance, err := s.broker.GetBalance(ctx)
	if err != nil {
		s.log.ErrorContextWithAlert(ctx, "Failed to get account balance", logger.ErrorField(err))
		return report, fmt.Errorf("failed to get balance: %w", err)
	}

	if !s.cfg.Broker.IsPaper() {
		if _, err := s.positions.Reconcile(ctx, balance.Holdings); err != nil {
			s.log.WarnContext(ctx, "Reconcile finished with persistence error", logger.ErrorField(err))
		}
	}

	s.managePositions(ctx, regime, balance, report)

	if regime.AllowBuy {
		s.screen(ctx, regime, report)
	} else {
		s.log.InfoContext(ctx, "Buying disabled by market regime",
			logger.StringField("regime", string(regime.Regime)),
			logger.StringField("session", string(regime.Session)),
			logger.Field("reasons", regime.Reasons),
		)
	}

	if err := s.positions.Sync(ctx); err != nil {
		s.log.WarnContext(ctx, "Failed to sync positions", logger.ErrorField(err))
	}

	report.FinishedAt = s.now()
	s.log.InfoContext(ctx, "Trading cycle finished",
		logger.IntField("positions", report.PositionsSeen),
		logger.IntField("candidates", report.CandidatesSeen),
		logger.IntField("passes", report.Passes),
		logger.IntField("executed", report.Executed()),
		logger.Field("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	if len(report.Trades) > 0 {
		s.notify(ctx, telegram.FormatCycleSummary(
			report.StartedAt,
			report.FinishedAt.Sub(report.StartedAt),
			string(regime.Regime),
			report.Executed(),
			len(report.Trades)-report.Executed(),
		))
	}
	return report, nil
}

func (s *tradingService) managePositions(ctx context.Context, regime dto.MarketRegime, balance *dto.Balance, report *dto.CycleReport) {
	prices := make(map[string]float64, len(balance.Holdings))
	for _, h := range balance.Holdings {
		if h.CurrentPrice > 0 {
			prices[h.Symbol] = h.CurrentPrice
		}
	}

	for _, p := range s.positions.List() {
		report.PositionsSeen++

		price, ok := prices[p.Symbol]
		if !ok {
			quote, err := s.marketData.FetchQuote(ctx, p.Symbol)
			if err != nil {
				s.log.WarnContext(ctx, "No price for position, skipping", logger.SymbolField(p.Symbol), logger.ErrorField(err))
				report.Skipped = append(report.Skipped, p.Symbol)
				continue
			}
			price = quote.Price
		}

		decision, err := s.positions.Update(ctx, p.Symbol, price)
		if err != nil {
			// The decision is only acted upon once it is durable.
			if errors.Is(err, ErrPersistFailed) {
				s.releaseLevels(ctx, decision)
			}
			s.log.WarnContext(ctx, "Failed to update position", logger.SymbolField(p.Symbol), logger.ErrorField(err))
			report.Skipped = append(report.Skipped, p.Symbol)
			continue
		}

		if decision.IsExit() {
			if !regime.AllowSell {
				s.log.InfoContext(ctx, "Exit deferred, selling closed",
					logger.SymbolField(p.Symbol),
					logger.StringField("action", string(decision.Action)),
					logger.StringField("session", string(regime.Session)),
				)
				s.releaseLevels(ctx, decision)
				continue
			}
			s.executeSell(ctx, p, decision, report)
			continue
		}

		if s.cfg.Trading.SignalSellEnabled && regime.AllowSell {
			s.checkSignalSell(ctx, p, decision, report)
		}
	}
}

func (s *tradingService) checkSignalSell(ctx context.Context, p *model.Position, decision dto.PositionDecision, report *dto.CycleReport) {
	ranked, err := s.analyzer.AnalyzeSymbol(ctx, p.Symbol)
	if err != nil {
		s.log.DebugContext(ctx, "Signal check unavailable", logger.SymbolField(p.Symbol), logger.ErrorField(err))
		return
	}
	if !ranked.Result.Recommendation.IsSell() {
		return
	}

	current, ok := s.positions.Get(p.Symbol)
	if !ok {
		return
	}
	decision.Action = dto.PositionActionSignalSell
	decision.SellQuantity = current.Quantity
	decision.FullExit = true
	decision.Reason = fmt.Sprintf("%s signal (score %.1f)", ranked.Result.Recommendation, ranked.Result.TotalScore)
	s.executeSell(ctx, current, decision, report)
}

func (s *tradingService) executeSell(ctx context.Context, p *model.Position, decision dto.PositionDecision, report *dto.CycleReport) {
	record := dto.TradeRecord{
		Symbol:   p.Symbol,
		Side:     dto.OrderSideSell,
		Quantity: decision.SellQuantity,
		Price:    decision.Price,
		Reason:   decision.Reason,
		Action:   decision.Action,
	}

	result, err := s.broker.PlaceOrder(ctx, dto.OrderRequest{
		Symbol:   p.Symbol,
		Exchange: p.Exchange,
		Side:     dto.OrderSideSell,
		Quantity: decision.SellQuantity,
		Price:    decision.Price,
	})
	if err != nil || !result.Success {
		record.Error = orderFailure(result, err)
		report.Trades = append(report.Trades, record)
		s.releaseLevels(ctx, decision)
		s.log.ErrorContextWithAlert(ctx, "Sell order failed",
			logger.SymbolField(p.Symbol),
			logger.StringField("action", string(decision.Action)),
			logger.StringField("error", record.Error),
		)
		return
	}

	record.Success = true
	record.OrderID = result.OrderID
	report.Trades = append(report.Trades, record)

	remaining, err := s.positions.ApplySell(ctx, p.Symbol, decision.SellQuantity)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to apply sell to position", logger.SymbolField(p.Symbol), logger.ErrorField(err))
	}
	s.log.InfoContext(ctx, "Sell order executed",
		logger.SymbolField(p.Symbol),
		logger.StringField("action", string(decision.Action)),
		logger.IntField("quantity", decision.SellQuantity),
		logger.IntField("remaining", remaining),
		logger.FloatField("return_pct", decision.ReturnPct),
	)

	s.notify(ctx, telegram.FormatTradeAlert(telegram.TradeAlert{
		Type:      alertTypeFor(decision.Action),
		Symbol:    p.Symbol,
		Quantity:  decision.SellQuantity,
		Price:     decision.Price,
		ReturnPct: utils.ToPointer(decision.ReturnPct),
		OrderID:   result.OrderID,
		Simulated: result.Simulated,
		Success:   true,
		Message:   decision.Reason,
		Time:      s.now(),
	}))
}

// screen runs bounded screening passes. Each pass re-reads the balance; a
// pass that executes nothing ends the loop.
func (s *tradingService) screen(ctx context.Context, regime dto.MarketRegime, report *dto.CycleReport) {
	for pass := 1; pass <= s.cfg.Trading.MaxScreeningPasses; pass++ {
		report.Passes = pass

		balance, err := s.broker.GetBalance(ctx)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to refresh balance for screening", logger.ErrorField(err))
			return
		}

		universe := s.screeningUniverse(balance)
		if len(universe) == 0 {
			s.log.InfoContext(ctx, "Nothing left to screen")
			return
		}

		candidates := s.volatility.FilterCandidates(ctx, universe)
		report.CandidatesSeen += len(candidates)
		if len(candidates) == 0 {
			return
		}

		ranked := s.analyzer.AnalyzeCandidates(ctx, candidates)
		if s.buyRanked(ctx, regime, balance, ranked, report) == 0 {
			return
		}
	}
}

func (s *tradingService) screeningUniverse(balance *dto.Balance) []string {
	held := make(map[string]bool)
	for _, h := range balance.Holdings {
		held[h.Symbol] = true
	}
	for _, p := range s.positions.List() {
		held[p.Symbol] = true
	}

	var universe []string
	for _, symbol := range utils.NormalizeSymbols(s.cfg.Trading.Universe) {
		if !held[symbol] {
			universe = append(universe, symbol)
		}
	}
	return universe
}

func (s *tradingService) buyRanked(ctx context.Context, regime dto.MarketRegime, balance *dto.Balance, ranked []dto.RankedCandidate, report *dto.CycleReport) int {
	totalCapital := balance.TotalCapital()
	remaining := balance.BuyingPower
	executed := 0

	for _, rc := range ranked {
		symbol := rc.Candidate.Symbol
		price := rc.Candidate.Price
		if rc.Result.TotalScore < s.cfg.Trading.MinBuyScore || !rc.Result.Recommendation.IsBuy() {
			continue
		}

		size := s.positions.CalculatePositionSize(rc.Result.TotalScore, price, totalCapital, regime.PositionSizeMultiplier, rc.Candidate.Volatility.ATRPercent)
		quantity := size.Quantity
		if quantity < 1 {
			continue
		}
		if float64(quantity)*price > remaining {
			quantity = int(remaining / price)
			if quantity < 1 {
				s.log.DebugContext(ctx, "Insufficient buying power", logger.SymbolField(symbol))
				continue
			}
		}
		amount := float64(quantity) * price

		ok, reason := s.positions.CanAddPosition(s.positions.Count(), s.positions.Exposure(), amount, totalCapital)
		if !ok {
			s.log.InfoContext(ctx, "Entry rejected by risk limits", logger.SymbolField(symbol), logger.StringField("reason", reason))
			if s.positions.Count() >= s.cfg.Risk.MaxPositions {
				break
			}
			continue
		}

		if s.executeBuy(ctx, rc, quantity, report) {
			remaining -= amount
			executed++
		}
	}
	return executed
}

func (s *tradingService) executeBuy(ctx context.Context, rc dto.RankedCandidate, quantity int, report *dto.CycleReport) bool {
	symbol, price := rc.Candidate.Symbol, rc.Candidate.Price
	record := dto.TradeRecord{
		Symbol:   symbol,
		Side:     dto.OrderSideBuy,
		Quantity: quantity,
		Price:    price,
		Reason:   fmt.Sprintf("%s score %.1f", rc.Result.Recommendation, rc.Result.TotalScore),
	}

	result, err := s.broker.PlaceOrder(ctx, dto.OrderRequest{
		Symbol:   symbol,
		Exchange: rc.Candidate.Exchange,
		Side:     dto.OrderSideBuy,
		Quantity: quantity,
		Price:    price,
	})
	if err != nil || !result.Success {
		record.Error = orderFailure(result, err)
		report.Trades = append(report.Trades, record)
		s.log.ErrorContextWithAlert(ctx, "Buy order failed", logger.SymbolField(symbol), logger.StringField("error", record.Error))
		return false
	}

	record.Success = true
	record.OrderID = result.OrderID
	report.Trades = append(report.Trades, record)

	if _, err := s.positions.Open(ctx, symbol, rc.Candidate.Exchange, price, quantity, rc.Result.TotalScore); err != nil {
		s.log.ErrorContextWithAlert(ctx, "Failed to record opened position", logger.SymbolField(symbol), logger.ErrorField(err))
	}
	s.log.InfoContext(ctx, "Buy order executed",
		logger.SymbolField(symbol),
		logger.IntField("quantity", quantity),
		logger.FloatField("price", price),
		logger.FloatField("score", rc.Result.TotalScore),
	)

	s.notify(ctx, telegram.FormatTradeAlert(telegram.TradeAlert{
		Type:      telegram.Buy,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Score:     utils.ToPointer(rc.Result.TotalScore),
		OrderID:   result.OrderID,
		Simulated: result.Simulated,
		Success:   true,
		Message:   record.Reason,
		Time:      s.now(),
	}))
	return true
}

func (s *tradingService) releaseLevels(ctx context.Context, decision dto.PositionDecision) {
	if len(decision.LevelsHit) == 0 {
		return
	}
	if err := s.positions.ReleaseTakeProfitLevels(ctx, decision.Symbol, decision.LevelsHit); err != nil {
		s.log.ErrorContext(ctx, "Failed to release take-profit levels", logger.SymbolField(decision.Symbol), logger.ErrorField(err))
	}
}

func (s *tradingService) notify(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	utils.GoSafe(func() {
		if err := s.notifier.Notify(ctx, message); err != nil {
			s.log.WarnContext(ctx, "Failed to send notification", logger.ErrorField(err))
		}
	})
}

func orderFailure(result *dto.OrderResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if result == nil {
		return "empty order result"
	}
	return result.Message
}

func alertTypeFor(action dto.PositionAction) telegram.AlertType {
	switch action {
	case dto.PositionActionStopLoss:
		return telegram.StopLoss
	case dto.PositionActionTrailing:
		return telegram.TrailingStop
	case dto.PositionActionTakeProfit:
		return telegram.TakeProfit
	default:
		return telegram.SignalSell
	}
}
