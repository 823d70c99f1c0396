package service

import (
	"golang-autotrade/config"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/repository"
	"golang-autotrade/pkg/cache"
	"golang-autotrade/pkg/logger"
)

type Service struct {
	SchedulerService   SchedulerService
	TradingService     TradingService
	PositionManager    PositionManager
	RegimeClassifier   RegimeClassifier
	VolatilityAnalyzer VolatilityAnalyzer
	StockAnalyzer      StockAnalyzer
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	notifier contract.Notifier,
) *Service {
	volatilityCache := cache.NewCache(cfg.Volatility.CacheDuration, cfg.Cache.CleanupInterval)
	regimeCache := cache.NewCache(cfg.Regime.CacheDuration, cfg.Cache.CleanupInterval)

	positionManager := NewPositionManager(cfg.Risk, log, repo.PositionStore)
	regimeClassifier := NewRegimeClassifier(cfg.Regime, log, repo.MarketData, regimeCache)
	volatilityAnalyzer := NewVolatilityAnalyzer(cfg.Volatility, cfg.Trading, log, repo.MarketData, volatilityCache)
	stockAnalyzer := NewStockAnalyzer(cfg.Trading, log, repo.MarketData, repo.Sentiment, volatilityAnalyzer, NewScorer())

	tradingService := NewTradingService(cfg, log, repo.Broker, repo.MarketData, notifier, regimeClassifier, volatilityAnalyzer, stockAnalyzer, positionManager)
	schedulerService := NewSchedulerService(cfg.Scheduler, log, tradingService)

	return &Service{
		SchedulerService:   schedulerService,
		TradingService:     tradingService,
		PositionManager:    positionManager,
		RegimeClassifier:   regimeClassifier,
		VolatilityAnalyzer: volatilityAnalyzer,
		StockAnalyzer:      stockAnalyzer,
	}
}
