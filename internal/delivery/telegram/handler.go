package telegram

import (
	"context"
	"errors"
	"fmt"
	"golang-autotrade/internal/dto"
	"golang-autotrade/internal/service"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/middleware"
	"golang-autotrade/pkg/utils"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gopkg.in/telebot.v3"
)

const (
	commandTimeout = 5 * time.Minute
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
)

func (t *TelegramBotHandler) RegisterHandlers() {
	t.echo.POST("/api/v1/telegram/webhook", t.Webhook)

	t.bot.Use(middleware.OnlyChat(t.cfg.Telegram.ChatID))
	t.bot.Handle("/start", t.handle(t.handleHelp))
	t.bot.Handle("/help", t.handle(t.handleHelp))
	t.bot.Handle("/status", t.handle(t.handleStatus))
	t.bot.Handle("/positions", t.handle(t.handlePositions))
	t.bot.Handle("/regime", t.handle(t.handleRegime))
	t.bot.Handle("/run", t.handle(t.handleRun))
	t.bot.Handle(telebot.OnText, t.handle(t.handleUnknown))
}

func (t *TelegramBotHandler) handle(handler func(ctx context.Context, c telebot.Context) error) telebot.HandlerFunc {
	return middleware.WithContext(t.ctx, commandTimeout, handler)
}

func (t *TelegramBotHandler) Webhook(c echo.Context) error {
	if secret := t.cfg.Telegram.WebhookSecret; secret != "" && c.Request().Header.Get(secretHeader) != secret {
		return c.JSON(http.StatusUnauthorized, dto.NewBaseResponse(http.StatusUnauthorized, "invalid secret token", nil))
	}

	var update telebot.Update
	if err := c.Bind(&update); err != nil {
		t.log.ErrorContext(t.ctx, "Cannot bind telegram update", logger.ErrorField(err))
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	// commands like /run take minutes; telegram retries slow webhooks
	utils.GoSafe(func() { t.bot.ProcessUpdate(update) })
	return c.JSON(http.StatusOK, dto.NewBaseResponse(http.StatusOK, "ok", nil))
}

func (t *TelegramBotHandler) handleHelp(ctx context.Context, c telebot.Context) error {
	return c.Send(helpMessage, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (t *TelegramBotHandler) handleUnknown(ctx context.Context, c telebot.Context) error {
	return c.Send("Unknown command. Use /help to see what I can do.")
}

func (t *TelegramBotHandler) handleStatus(ctx context.Context, c telebot.Context) error {
	return c.Send(formatStatus(statusView{
		TradingMode:  t.cfg.Broker.TradingMode,
		CycleRunning: t.service.TradingService.IsRunning(),
		Positions:    t.service.PositionManager.Count(),
		Exposure:     t.service.PositionManager.Exposure(),
		NextRun:      t.service.SchedulerService.NextRun(),
	}))
}

func (t *TelegramBotHandler) handlePositions(ctx context.Context, c telebot.Context) error {
	return c.Send(formatPositions(t.service.PositionManager.List()))
}

func (t *TelegramBotHandler) handleRegime(ctx context.Context, c telebot.Context) error {
	return c.Send(formatRegime(t.service.RegimeClassifier.Current(ctx)))
}

func (t *TelegramBotHandler) handleRun(ctx context.Context, c telebot.Context) error {
	if t.service.TradingService.IsRunning() {
		return c.Send("⏳ A cycle is already running.")
	}
	if err := c.Send("🚀 Running trading cycle..."); err != nil {
		t.log.WarnContext(ctx, "Failed to acknowledge /run", logger.ErrorField(err))
	}

	report, err := t.service.TradingService.RunCycle(ctx)
	switch {
	case errors.Is(err, service.ErrCycleInProgress):
		return c.Send("⏳ A cycle is already running.")
	case err != nil:
		return c.Send(fmt.Sprintf("❌ Cycle failed: %s", err.Error()))
	}
	return c.Send(fmt.Sprintf("✅ Cycle finished: %d executed, %d failed, %d passes",
		report.Executed(), len(report.Trades)-report.Executed(), report.Passes))
}
