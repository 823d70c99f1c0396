package cmd

import (
	"context"
	"errors"
	"golang-autotrade/internal/delivery/http"
	"golang-autotrade/internal/delivery/telegram"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduled trading loop and the HTTP API",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo, services, err := appDep.buildServices(ctx)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}

	if err := services.SchedulerService.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	var apiServer *HTTPServer
	var botHandler *telegram.TelegramBotHandler
	if appDep.cfg.API.Enabled {
		// the command webhook is served by the API server
		botHandler = telegram.NewTelegramBotHandler(ctx, appDep.cfg, appDep.log, appDep.bot, appDep.echo, services)
		if err := botHandler.Start(); err != nil {
			appDep.log.Error("Telegram commands unavailable", zap.Error(err))
		}

		apiServer = NewHTTPServer(ctx, appDep, http.NewHttpAPIHandler(ctx, appDep.cfg, appDep.echo, appDep.validator, services))
		go func() {
			if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
				log.Fatalf("Failed to start HTTP server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	appDep.log.Info("Shutting down gracefully...")

	// A running cycle is allowed to finish its orders.
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	services.SchedulerService.Stop(stopCtx)

	if botHandler != nil {
		botHandler.Stop()
	}
	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			appDep.log.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}

	if err := services.PositionManager.Sync(stopCtx); err != nil {
		appDep.log.Error("Failed to sync positions on shutdown", zap.Error(err))
	}
	if err := repo.PositionStore.Close(); err != nil {
		appDep.log.Error("Failed to close position store", zap.Error(err))
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
