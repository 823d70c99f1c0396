package telegram

import (
	"context"
	"golang-autotrade/config"
	"golang-autotrade/internal/service"
	"golang-autotrade/pkg/logger"
	"time"

	"github.com/labstack/echo/v4"
	"gopkg.in/telebot.v3"
)

// TelegramBotHandler serves operator commands received through the webhook.
// Outbound notifications go through pkg/telegram and do not need it.
type TelegramBotHandler struct {
	ctx     context.Context
	cfg     *config.Config
	bot     *telebot.Bot
	log     *logger.Logger
	echo    *echo.Echo
	service *service.Service
}

func NewTelegramBotHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	bot *telebot.Bot,
	echo *echo.Echo,
	service *service.Service) *TelegramBotHandler {
	return &TelegramBotHandler{
		ctx:     ctx,
		cfg:     cfg,
		log:     log,
		bot:     bot,
		echo:    echo,
		service: service,
	}
}

func (t *TelegramBotHandler) Enabled() bool {
	return t.bot != nil && t.cfg.Telegram.WebhookURL != "" && t.cfg.Telegram.ChatID != 0
}

func (t *TelegramBotHandler) Start() error {
	if !t.Enabled() {
		t.log.Info("Telegram commands are disabled")
		return nil
	}

	t.log.Info("Setting webhook URL", logger.StringField("webhook_url", t.cfg.Telegram.WebhookURL))
	err := t.bot.SetWebhook(&telebot.Webhook{
		SecretToken: t.cfg.Telegram.WebhookSecret,
		Endpoint: &telebot.WebhookEndpoint{
			PublicURL: t.cfg.Telegram.WebhookURL,
		},
	})
	if err != nil {
		t.log.Error("Failed to set telegram webhook", logger.ErrorField(err))
		return err
	}

	t.RegisterHandlers()
	return nil
}

func (t *TelegramBotHandler) Stop() {
	if !t.Enabled() {
		return
	}
	t.log.Info("Removing telegram webhook...")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), 10*time.Second)
	defer cancel()

	stopDone := make(chan error, 1)
	go func() {
		stopDone <- t.bot.RemoveWebhook()
	}()

	select {
	case err := <-stopDone:
		if err != nil {
			t.log.Warn("Failed to remove telegram webhook", logger.ErrorField(err))
			return
		}
		t.log.Info("Telegram webhook removed")
	case <-ctx.Done():
		t.log.Warn("Timeout while removing telegram webhook")
	}
}
