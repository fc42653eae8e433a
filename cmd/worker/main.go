// Command worker runs the notification delivery engine. On every cron tick it
// drains the pending-notification outbox of each tenant through the bulk
// dispatcher and records the per-channel outcome.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"notify-engine/internal/config"
	"notify-engine/internal/infra/adapter/persistence/postgres"
	"notify-engine/internal/infra/channelfile"
	"notify-engine/internal/infra/db"
	"notify-engine/internal/infra/notifier"
	"notify-engine/internal/infra/worker"
	"notify-engine/internal/observability/logging"
	"notify-engine/internal/observability/requestid"
	"notify-engine/internal/observability/tracing"
	"notify-engine/internal/repository"
	"notify-engine/internal/resilience/circuitbreaker"
	"notify-engine/internal/resilience/retry"
	"notify-engine/internal/usecase/notify"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := config.LoadEngineConfig()
	if err != nil {
		return err
	}

	workerMetrics := worker.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerCfg := worker.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerCfg.CronSchedule),
		slog.String("timezone", workerCfg.Timezone),
		slog.Int("batch_limit", workerCfg.BatchLimit),
		slog.Duration("tick_timeout", workerCfg.TickTimeout),
		slog.Int("health_port", workerCfg.HealthPort))

	if engineCfg.TracingEnabled {
		shutdown := tracing.InitProvider()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down tracer provider", slog.Any("error", err))
			}
		}()
	}

	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"), db.ConnectionConfigFromEnv())
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(ctx, database); err != nil {
		return err
	}

	resolver, err := newChannelResolver(engineCfg, database)
	if err != nil {
		return err
	}

	httpClient := createHTTPClient(engineCfg.HTTP.Timeout)
	registry := notify.NewRegistry(buildAdapters(logger, engineCfg, httpClient, postgres.NewEmailTemplateRepo(database))...)
	logger.Info("channel adapters registered", slog.Any("channels", registry.Types()))

	service := notify.NewService(resolver, registry, newStatusRecorder(database), notify.Options{
		AttemptTimeout: engineCfg.Delivery.AttemptTimeout,
		BatchSize:      engineCfg.Delivery.BatchSize,
		BatchDelay:     engineCfg.Delivery.BatchDelay,
	})

	drainer := worker.NewOutboxDrainer(postgres.NewPendingNotificationRepo(database), service, workerCfg.BatchLimit, workerMetrics, logger)

	startMetricsServer(ctx, logger, engineCfg.MetricsPort, database)

	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)
	healthServer.AddCheck("database", database.PingContext)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	return startCronWorker(ctx, logger, drainer, workerCfg, healthServer)
}

// newChannelResolver selects the channel store configured by NOTIFY_CHANNEL_SOURCE.
func newChannelResolver(cfg *config.EngineConfig, database *sql.DB) (repository.ChannelRepository, error) {
	if cfg.ChannelSource == config.ChannelSourceFile {
		resolver, err := channelfile.Load(cfg.ChannelFile)
		if err != nil {
			return nil, err
		}
		slog.Info("channels loaded from file",
			slog.String("path", cfg.ChannelFile),
			slog.Int("channels", resolver.Len()))
		return resolver, nil
	}
	return postgres.NewChannelRepo(database), nil
}

// newStatusRecorder writes the audit trail through a circuit breaker. A
// missing status table is expected in some deployments and does not count
// as a store failure.
func newStatusRecorder(database *sql.DB) *notify.StatusRecorder {
	cbCfg := circuitbreaker.AuditStoreConfig()
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || postgres.IsUndefinedTable(err)
	}
	auditDB := circuitbreaker.NewDBCircuitBreaker(database, cbCfg)
	return notify.NewStatusRecorder(postgres.NewDeliveryStatusRepo(auditDB))
}

// buildAdapters creates one adapter per supported channel type. Provider
// clients are shared by all tenants.
func buildAdapters(logger *slog.Logger, cfg *config.EngineConfig, httpClient *http.Client, templates repository.EmailTemplateRepository) []notify.Adapter {
	var sender notifier.EmailSender = notifier.NewNoOpEmailSender()
	smtpCfg := notifier.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if smtpCfg.Enabled() {
		sender = notifier.NewSMTPSender(smtpCfg)
		logger.Info("email relay configured", slog.String("host", smtpCfg.Host), slog.Int("port", smtpCfg.Port))
	} else {
		logger.Warn("SMTP_HOST not set, email deliveries will fail")
	}

	twilioCfg := notifier.TwilioConfig{
		AccountSID:        cfg.Twilio.AccountSID,
		AuthToken:         cfg.Twilio.AuthToken,
		FromNumber:        cfg.Twilio.FromNumber,
		BaseURL:           cfg.Twilio.BaseURL,
		RequestsPerSecond: cfg.Twilio.RequestsPerSecond,
		Burst:             cfg.Twilio.Burst,
	}
	if !twilioCfg.Enabled() {
		logger.Warn("twilio credentials missing, sms delivery disabled")
	}

	pdRetry := retry.PagerDutyConfig()
	pdRetry.MaxAttempts = cfg.PagerDuty.MaxAttempts

	return []notify.Adapter{
		notifier.NewEmailAdapter(sender, templates),
		notifier.NewSlackAdapter(notifier.SlackConfig{
			APIURL:            cfg.Slack.APIURL,
			RequestsPerSecond: cfg.Slack.RequestsPerSecond,
			Burst:             cfg.Slack.Burst,
		}, httpClient),
		notifier.NewTeamsAdapter(httpClient, cfg.HTTP.BlockPrivateNetworks),
		notifier.NewPagerDutyAdapter(notifier.PagerDutyConfig{
			EventsURL:         cfg.PagerDuty.EventsURL,
			Retry:             pdRetry,
			RequestsPerSecond: cfg.PagerDuty.RequestsPerSecond,
			Burst:             cfg.PagerDuty.Burst,
		}, httpClient),
		notifier.NewWebhookAdapter(notifier.WebhookConfig{
			SignatureHeader:      cfg.Webhook.SignatureHeader,
			BlockPrivateNetworks: cfg.HTTP.BlockPrivateNetworks,
		}, httpClient),
		notifier.NewSMSAdapter(twilioCfg, httpClient),
		notifier.NewInAppAdapter(),
	}
}

// createHTTPClient creates the shared provider client with connection
// pooling. TLS 1.2+ is enforced.
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// startCronWorker schedules the outbox drain and blocks until ctx is canceled.
// Overlapping ticks are skipped rather than queued.
func startCronWorker(ctx context.Context, logger *slog.Logger, drainer *worker.OutboxDrainer, cfg *worker.WorkerConfig, health *worker.HealthServer) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		tickCtx, cancel := context.WithTimeout(ctx, cfg.TickTimeout)
		defer cancel()
		tickCtx, reqID := requestid.Ensure(tickCtx)

		logger.Info("outbox drain started", slog.String("request_id", reqID))
		if _, err := drainer.Run(tickCtx); err != nil {
			logger.Error("outbox drain failed",
				slog.String("request_id", reqID),
				slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule outbox drain: %w", err)
	}

	c.Start()
	health.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule))

	<-ctx.Done()
	health.SetReady(false)
	logger.Info("shutdown signal received, waiting for running drain")
	<-c.Stop().Done()
	logger.Info("worker stopped")
	return nil
}
