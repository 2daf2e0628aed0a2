package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/simplebiz/concierge/cmd/mainconfig"
	"github.com/simplebiz/concierge/internal/availability"
	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/calendar"
	appconfig "github.com/simplebiz/concierge/internal/config"
	"github.com/simplebiz/concierge/internal/conversation"
	"github.com/simplebiz/concierge/internal/messaging"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/internal/reminders"
	"github.com/simplebiz/concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting concierge worker",
		"env", cfg.Env,
		"workers", cfg.WorkerCount,
	)

	if cfg.UseMemoryQueue {
		logger.Error("worker requires SQS; USE_MEMORY_QUEUE is only valid for the single-process API")
		os.Exit(1)
	}

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	m := metrics.NewConciergeMetrics(registry)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	businessStore := business.NewStore(pool)
	bookingStore := booking.NewStore(pool)
	reminderStore := reminders.NewStore(pool)
	conversationStore := conversation.NewStore(pool)

	googleCalendar := calendar.NewGoogleClient(logger)
	availabilitySvc := availability.NewService(businessStore, googleCalendar, logger, m)
	bookingSvc := booking.NewService(businessStore, bookingStore, googleCalendar, reminderStore, logger, m)
	scheduler := reminders.NewScheduler(reminderStore, logger, m)

	classifier, err := conversation.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Error("failed to create classifier", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	snapshots := conversation.NewSnapshotStore(redis.NewClient(redisOpts), cfg.SlotSnapshotTTL)

	sender := messaging.NewGatewaySender(cfg.WhatsAppGatewayURL, logger)

	engine := conversation.NewEngine(
		conversationStore,
		businessStore,
		availabilitySvc,
		bookingSvc,
		scheduler,
		snapshots,
		classifier,
		logger,
		m,
	)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)
	consumer := conversation.NewConsumer(queue, engine, sender, businessStore, cfg.WorkerCount, logger)

	reminderWorker := reminders.NewWorker(
		reminderStore,
		bookingStore,
		businessStore,
		sender,
		cfg.ReminderPollInterval,
		logger,
		m,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consumer.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		reminderWorker.Run(runCtx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("worker stopped")
	case <-doneCtx.Done():
		logger.Error("worker shutdown timed out", "error", doneCtx.Err())
	}
}
