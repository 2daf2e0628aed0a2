package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/simplebiz/concierge/cmd/mainconfig"
	"github.com/simplebiz/concierge/internal/api/router"
	"github.com/simplebiz/concierge/internal/availability"
	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/calendar"
	appconfig "github.com/simplebiz/concierge/internal/config"
	"github.com/simplebiz/concierge/internal/conversation"
	"github.com/simplebiz/concierge/internal/http/handlers"
	"github.com/simplebiz/concierge/internal/messaging"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/internal/reminders"
	"github.com/simplebiz/concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
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

	sender := messaging.NewGatewaySender(cfg.WhatsAppGatewayURL, logger)

	var publisher *conversation.Publisher
	var memoryQueue *conversation.MemoryQueue
	if cfg.UseMemoryQueue {
		// Single-process mode: the API drains its own queue, no SQS needed.
		memoryQueue = conversation.NewMemoryQueue(64)
		publisher = conversation.NewPublisher(memoryQueue, logger)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sqsClient := sqs.NewFromConfig(awsCfg)
		publisher = conversation.NewPublisher(conversation.NewSQSQueue(sqsClient, cfg.InboundQueueURL), logger)
	}

	webhookHandler := handlers.NewWhatsAppWebhookHandler(publisher, sender, logger)
	appointmentsHandler := handlers.NewAppointmentsHandler(bookingSvc, bookingStore, scheduler, logger)
	slotsHandler := handlers.NewSlotsHandler(availabilitySvc, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		Webhook:         webhookHandler,
		Appointments:    appointmentsHandler,
		Slots:           slotsHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if memoryQueue != nil {
		consumer, err := buildInlineConsumer(runCtx, cfg, memoryQueue, logger, m,
			conversationStore, businessStore, availabilitySvc, bookingSvc, scheduler, sender)
		if err != nil {
			logger.Error("failed to build inline consumer", "error", err)
			os.Exit(1)
		}
		go consumer.Run(runCtx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildInlineConsumer assembles the dialogue pipeline that the worker binary
// normally runs, for USE_MEMORY_QUEUE development mode.
func buildInlineConsumer(
	ctx context.Context,
	cfg *appconfig.Config,
	queue *conversation.MemoryQueue,
	logger *logging.Logger,
	m *metrics.ConciergeMetrics,
	conversations *conversation.Store,
	businesses *business.Store,
	slots *availability.Service,
	bookings *booking.Service,
	scheduler *reminders.Scheduler,
	sender *messaging.GatewaySender,
) (*conversation.Consumer, error) {
	classifier, err := conversation.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return nil, err
	}

	snapshots := conversation.NewSnapshotStore(newRedisClient(cfg), cfg.SlotSnapshotTTL)
	engine := conversation.NewEngine(conversations, businesses, slots, bookings, scheduler, snapshots, classifier, logger, m)
	return conversation.NewConsumer(queue, engine, sender, businesses, cfg.WorkerCount, logger), nil
}

func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}
