package service

import (
	"context"
	"errors"
	"fmt"
	"golang-autotrade/config"
	"golang-autotrade/pkg/logger"
	"golang-autotrade/pkg/utils"
	"time"

	"github.com/robfig/cron/v3"
)

type SchedulerService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	NextRun() time.Time
}

type schedulerService struct {
	cfg     config.Scheduler
	log     *logger.Logger
	trading TradingService
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewSchedulerService(cfg config.Scheduler, log *logger.Logger, trading TradingService) SchedulerService {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &schedulerService{
		cfg:     cfg,
		log:     log,
		trading: trading,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(utils.LoadLocation(cfg.Location)),
			cron.WithChain(cron.Recover(cronLogger{log: log})),
		),
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.cfg.CycleCron, func() {
		s.runCycle(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule trading cycle %q: %w", s.cfg.CycleCron, err)
	}
	s.entryID = id
	s.cron.Start()

	s.log.InfoContext(ctx, "Scheduler started",
		logger.StringField("cron", s.cfg.CycleCron),
		logger.StringField("location", s.cfg.Location),
		logger.Field("next_run", s.NextRun()),
	)
	return nil
}

// Stop prevents new runs and waits for a running cycle until ctx expires.
func (s *schedulerService) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.InfoContext(ctx, "Scheduler stopped")
	case <-ctx.Done():
		s.log.WarnContext(ctx, "Scheduler stop timed out while a cycle was running")
	}
}

func (s *schedulerService) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *schedulerService) runCycle(ctx context.Context) {
	report, err := s.trading.RunCycle(ctx)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		s.log.InfoContext(ctx, "Scheduled cycle skipped, previous cycle still running")
	case err != nil:
		s.log.ErrorContextWithAlert(ctx, "Scheduled trading cycle failed", logger.ErrorField(err))
	default:
		s.log.InfoContext(ctx, "Scheduled trading cycle completed",
			logger.IntField("executed", report.Executed()),
			logger.Field("next_run", s.NextRun()),
		)
	}
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, logger.Field("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.ErrorContextWithAlert(context.Background(), msg, logger.ErrorField(err), logger.Field("details", keysAndValues))
}
