package config

import (
	"fmt"
	"strings"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TradingModeReal  = "REAL"
	TradingModePaper = "PAPER"

	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

type Config struct {
	Log           Logger         `mapstructure:"logger"`
	API           API            `mapstructure:"api"`
	Scheduler     Scheduler      `mapstructure:"scheduler"`
	Cache         Cache          `mapstructure:"cache"`
	Broker        Broker         `mapstructure:"broker"`
	MarketData    MarketData     `mapstructure:"market_data"`
	News          News           `mapstructure:"news"`
	Gemini        Gemini         `mapstructure:"gemini"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
	Trading       Trading        `mapstructure:"trading"`
	Risk          Risk           `mapstructure:"risk"`
	Regime        Regime         `mapstructure:"regime"`
	Volatility    Volatility     `mapstructure:"volatility"`
	PositionStore PositionStore  `mapstructure:"position_store"`
	DB            Database       `mapstructure:"database"`
	Redis         Redis          `mapstructure:"redis"`
}

type Logger struct {
	Level    string `mapstructure:"level" validate:"required"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type API struct {
	Enabled   bool    `mapstructure:"enabled"`
	Port      int     `mapstructure:"port"`
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

type Scheduler struct {
	CycleCron string `mapstructure:"cycle_cron" validate:"required"`
	Location  string `mapstructure:"location"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Broker struct {
	BaseURL            string        `mapstructure:"base_url" validate:"required,url"`
	AppKey             string        `mapstructure:"app_key"`
	AppSecret          string        `mapstructure:"app_secret"`
	AccountNumber      string        `mapstructure:"account_number"`
	AccountProductCode string        `mapstructure:"account_product_code"`
	TradingMode        string        `mapstructure:"trading_mode" validate:"oneof=REAL PAPER"`
	Currency           string        `mapstructure:"currency"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRequestPerSec   int           `mapstructure:"max_request_per_sec" validate:"gt=0"`
	TokenCacheFile     string        `mapstructure:"token_cache_file"`
	TokenRefreshBuffer time.Duration `mapstructure:"token_refresh_buffer"`
}

func (b Broker) IsPaper() bool {
	return b.TradingMode != TradingModeReal
}

type MarketData struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gt=0"`
}

type News struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxHeadlines        int           `mapstructure:"max_headlines"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gt=0"`
}

type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

func (g Gemini) Enabled() bool {
	return g.APIKey != ""
}

type TelegramConfig struct {
	BotToken                  string `mapstructure:"bot_token"`
	ChatID                    int64  `mapstructure:"chat_id"`
	MaxGlobalRequestPerSecond int    `mapstructure:"max_global_request_per_second"`
	WebhookURL                string `mapstructure:"webhook_url"`
	WebhookSecret             string `mapstructure:"webhook_secret"`
}

type Trading struct {
	Universe           []string      `mapstructure:"universe" validate:"min=1"`
	Exchange           string        `mapstructure:"exchange"`
	BatchSize          int           `mapstructure:"batch_size" validate:"gt=0"`
	RequestDelay       time.Duration `mapstructure:"request_delay"`
	MinVolatilityScore float64       `mapstructure:"min_volatility_score"`
	MinBuyScore        float64       `mapstructure:"min_buy_score"`
	MaxScreeningPasses int           `mapstructure:"max_screening_passes" validate:"gt=0"`
	AnalysisLookback   int           `mapstructure:"analysis_lookback_days"`
	SignalSellEnabled  bool          `mapstructure:"signal_sell_enabled"`
}

type Risk struct {
	StopLossPct           float64   `mapstructure:"stop_loss_pct" validate:"lt=0"`
	BreakEvenTriggerPct   float64   `mapstructure:"break_even_trigger_pct"`
	BreakEvenBufferPct    float64   `mapstructure:"break_even_buffer_pct"`
	TrailingActivationPct float64   `mapstructure:"trailing_activation_pct"`
	TrailingPct           float64   `mapstructure:"trailing_pct" validate:"gt=0"`
	TakeProfitLevels      []float64 `mapstructure:"take_profit_levels" validate:"len=3"`
	TakeProfitSellRatios  []float64 `mapstructure:"take_profit_sell_ratios" validate:"len=3"`
	MinPositionPct        float64   `mapstructure:"min_position_pct" validate:"gt=0"`
	MaxPositionPct        float64   `mapstructure:"max_position_pct" validate:"gtefield=MinPositionPct"`
	MaxPositions          int       `mapstructure:"max_positions" validate:"gt=0"`
	MaxExposurePct        float64   `mapstructure:"max_exposure_pct" validate:"gt=0,lte=100"`
}

type Regime struct {
	FearIndexSymbol string        `mapstructure:"fear_index_symbol"`
	BenchmarkSymbol string        `mapstructure:"benchmark_symbol"`
	VenueTimezone   string        `mapstructure:"venue_timezone"`
	CacheDuration   time.Duration `mapstructure:"cache_duration"`
}

type Volatility struct {
	LookbackDays  int           `mapstructure:"lookback_days"`
	CacheDuration time.Duration `mapstructure:"cache_duration"`
}

type PositionStore struct {
	Driver   string `mapstructure:"driver" validate:"oneof=file postgres redis"`
	FilePath string `mapstructure:"file_path"`
	RedisKey string `mapstructure:"redis_key"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit", 10)
	v.SetDefault("api.rate_burst", 30)

	v.SetDefault("scheduler.cycle_cron", "*/10 * * * 1-5")
	v.SetDefault("scheduler.location", "America/New_York")

	v.SetDefault("cache.default_expiration", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("broker.base_url", "https://openapivts.koreainvestment.com:29443")
	v.SetDefault("broker.trading_mode", TradingModePaper)
	v.SetDefault("broker.currency", "USD")
	v.SetDefault("broker.timeout", 10*time.Second)
	v.SetDefault("broker.max_request_per_sec", 2)
	v.SetDefault("broker.token_cache_file", "data/token.json")
	v.SetDefault("broker.token_refresh_buffer", 10*time.Minute)

	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.timeout", 10*time.Second)
	v.SetDefault("market_data.max_request_per_minute", 120)

	v.SetDefault("news.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("news.timeout", 10*time.Second)
	v.SetDefault("news.max_headlines", 10)
	v.SetDefault("news.max_request_per_minute", 60)

	v.SetDefault("gemini.base_model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", 20*time.Second)
	v.SetDefault("gemini.max_request_per_minute", 10)
	v.SetDefault("gemini.max_token_per_minute", 200000)

	v.SetDefault("telegram.max_global_request_per_second", 20)

	v.SetDefault("trading.universe", []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AMD"})
	v.SetDefault("trading.exchange", "NASD")
	v.SetDefault("trading.batch_size", 5)
	v.SetDefault("trading.request_delay", 500*time.Millisecond)
	v.SetDefault("trading.min_volatility_score", 20)
	v.SetDefault("trading.min_buy_score", 60)
	v.SetDefault("trading.max_screening_passes", 3)
	v.SetDefault("trading.analysis_lookback_days", 90)
	v.SetDefault("trading.signal_sell_enabled", true)

	v.SetDefault("risk.stop_loss_pct", -3.0)
	v.SetDefault("risk.break_even_trigger_pct", 1.0)
	v.SetDefault("risk.break_even_buffer_pct", 0.1)
	v.SetDefault("risk.trailing_activation_pct", 2.0)
	v.SetDefault("risk.trailing_pct", 1.5)
	v.SetDefault("risk.take_profit_levels", []float64{3, 5, 10})
	v.SetDefault("risk.take_profit_sell_ratios", []float64{0.3, 0.3, 0.4})
	v.SetDefault("risk.min_position_pct", 2.0)
	v.SetDefault("risk.max_position_pct", 10.0)
	v.SetDefault("risk.max_positions", 20)
	v.SetDefault("risk.max_exposure_pct", 80.0)

	v.SetDefault("regime.fear_index_symbol", "^VIX")
	v.SetDefault("regime.benchmark_symbol", "SPY")
	v.SetDefault("regime.venue_timezone", "America/New_York")
	v.SetDefault("regime.cache_duration", 5*time.Minute)

	v.SetDefault("volatility.lookback_days", 30)
	v.SetDefault("volatility.cache_duration", 2*time.Minute)

	v.SetDefault("position_store.driver", StoreDriverFile)
	v.SetDefault("position_store.file_path", "data/positions.json")
	v.SetDefault("position_store.redis_key", "autotrade:positions")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := goValidator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
