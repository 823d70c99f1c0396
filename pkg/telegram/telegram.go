package telegram

import (
	"context"
	"golang-autotrade/config"
	"golang-autotrade/pkg/logger"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// NewBot creates an offline bot used only for outbound messages. It returns
// nil without error when no token is configured.
func NewBot(cfg *config.TelegramConfig, log *logger.Logger) (*telebot.Bot, error) {
	if cfg.BotToken == "" {
		log.Info("Telegram bot token empty, notifications disabled")
		return nil, nil
	}
	return telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: true,
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram bot error", logger.ErrorField(err))
		},
	})
}

// TelegramNotifier pushes plain-text messages to a single chat, throttled by
// a global limiter.
type TelegramNotifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
}

func NewTelegramNotifier(cfg *config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *TelegramNotifier {
	perSecond := cfg.MaxGlobalRequestPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &TelegramNotifier{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

func (t *TelegramNotifier) Enabled() bool {
	return t != nil && t.bot != nil && t.cfg.ChatID != 0
}

func (t *TelegramNotifier) Notify(ctx context.Context, message string) error {
	if !t.Enabled() {
		return nil
	}
	if err := t.globalLimiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	if _, err := t.bot.Send(&telebot.Chat{ID: t.cfg.ChatID}, message, telebot.NoPreview); err != nil {
		t.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
		return err
	}
	return nil
}

// SendAlert matches logger.AlertSender so error logs tagged for alerting are
// forwarded to the chat.
func (t *TelegramNotifier) SendAlert(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = t.Notify(ctx, message)
}
