package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/activity"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/config"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/db"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/logging"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/metrics"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/upstream"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/workflow"
)

const taskQueue = "dcv-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	up := upstream.NewHTTPClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIToken, 10*time.Second)
	services := core.NewServices(pool, tc, up, logger, core.Options{
		CNAMETarget:    cfg.CNAMETarget,
		JobMaxAttempts: cfg.JobMaxAttempts,
	})

	w := worker.New(tc, taskQueue, worker.Options{})

	// Register activities
	w.RegisterActivity(activity.NewJobs(pool))
	w.RegisterActivity(activity.NewReconcile(services.Domain))
	w.RegisterActivity(activity.NewScheduler(pool))

	var email activity.EmailSender
	if cfg.PostmarkServerToken != "" {
		email = activity.NewPostmarkSender(cfg.PostmarkServerToken, cfg.EmailFrom)
	}
	w.RegisterActivity(activity.NewNotify(pool, services.Webhook, email))
	w.RegisterActivity(activity.NewDeadLetter(cfg.AlertWebhookURL))

	// Register workflows
	w.RegisterWorkflow(workflow.ProcessJobWorkflow)
	w.RegisterWorkflow(workflow.DomainSweepWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register the sweep schedule. An already-existing schedule is fine so
	// that re-deploys do not fail.
	registerSweepSchedule(ctx, tc, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

func registerSweepSchedule(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	const scheduleID = "domain-sweep-cron"

	_, err := tc.ScheduleClient().Create(ctx, temporalclient.ScheduleOptions{
		ID: scheduleID,
		Spec: temporalclient.ScheduleSpec{
			CronExpressions: []string{"0 * * * *"},
		},
		Action: &temporalclient.ScheduleWorkflowAction{
			ID:       scheduleID,
			Workflow: workflow.DomainSweepWorkflow,
			Args: []interface{}{workflow.SweepParams{
				BatchSize:         cfg.SweepBatchSize,
				StalenessHours:    cfg.SyncStalenessHours,
				RenewalWindowDays: cfg.RenewalWindowDays,
				JobMaxAttempts:    cfg.JobMaxAttempts,
			}},
			TaskQueue: taskQueue,
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
			logger.Info().Str("id", scheduleID).Msg("sweep schedule already exists, skipping")
		} else {
			logger.Fatal().Err(err).Str("id", scheduleID).Msg("failed to create sweep schedule")
		}
	} else {
		logger.Info().Str("id", scheduleID).Msg("created sweep schedule")
	}
}
