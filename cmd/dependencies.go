package cmd

import (
	"context"
	"golang-autotrade/config"
	"golang-autotrade/internal/repository"
	"golang-autotrade/internal/service"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/postgres"
	pkgRedis "golang-autotrade/pkg/redis"
	"golang-autotrade/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/telebot.v3"
	"gorm.io/gorm"
)

type AppDependency struct {
	db        *postgres.DB
	rdb       *redis.Client
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	bot       *telebot.Bot
	notifier  *telegram.TelegramNotifier
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	bot, err := telegram.NewBot(&cfg.Telegram, log)
	if err != nil {
		log.Error("Failed to create telegram bot", zap.Error(err))
		return nil, err
	}
	notifier := telegram.NewTelegramNotifier(&cfg.Telegram, log, bot)
	if notifier.Enabled() {
		log = log.WithAlert(zapcore.ErrorLevel, notifier.SendAlert)
	}

	dep := &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      echo.New(),
		bot:       bot,
		notifier:  notifier,
	}

	switch cfg.PositionStore.Driver {
	case config.StoreDriverPostgres:
		dep.db, err = postgres.NewDB(cfg.DB, log)
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return nil, err
		}
	case config.StoreDriverRedis:
		dep.rdb, err = pkgRedis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Error("Failed to connect to redis", zap.Error(err))
			return nil, err
		}
	}

	log.Info("Dependencies ready",
		zap.String("trading_mode", cfg.Broker.TradingMode),
		zap.String("position_store", cfg.PositionStore.Driver),
		zap.Bool("telegram", notifier.Enabled()),
		zap.Bool("gemini", cfg.Gemini.Enabled()),
	)
	return dep, nil
}

func (d *AppDependency) gormDB() *gorm.DB {
	if d.db == nil {
		return nil
	}
	return d.db.DB
}

// buildServices wires repositories and services and restores persisted
// positions.
func (d *AppDependency) buildServices(ctx context.Context) (*repository.Repository, *service.Service, error) {
	repo, err := repository.NewRepository(ctx, d.cfg, d.log, d.gormDB(), d.rdb)
	if err != nil {
		return nil, nil, err
	}

	services := service.NewService(d.cfg, d.log, repo, d.notifier)
	if err := services.PositionManager.Load(ctx); err != nil {
		return nil, nil, err
	}
	return repo, services, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.rdb != nil {
		if err := d.rdb.Close(); err != nil {
			d.log.Error("Failed to close redis", zap.Error(err))
		}
	}
	var err error
	if d.db != nil {
		err = d.db.Close()
	}
	_ = d.log.Sync()
	return err
}
