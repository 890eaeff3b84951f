package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brightpath/lms-platform/payment-core/internal/api"
	"github.com/brightpath/lms-platform/payment-core/internal/config"
	"github.com/brightpath/lms-platform/payment-core/internal/events"
	"github.com/brightpath/lms-platform/payment-core/internal/provider"
	"github.com/brightpath/lms-platform/payment-core/internal/repository"
	"github.com/brightpath/lms-platform/payment-core/internal/service"
	"github.com/brightpath/lms-platform/payment-core/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("payment-core"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting payment core")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.InitDB(db); err != nil {
		telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	paymentRepo := repository.NewPaymentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	referralRepo := repository.NewReferralRepository(db)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	// Kafka publisher for payment.state.changed
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers)
	defer publisher.Close()

	// Provider adapter
	providerClient := provider.NewClient(provider.ClientConfig{
		BaseURL:         cfg.ProviderBaseURL,
		Token:           cfg.ProviderToken,
		WebhookSecret:   cfg.ProviderWebhookSecret,
		InitiateTimeout: cfg.ProviderInitiateTimeout,
		StatusTimeout:   cfg.ProviderStatusTimeout,
	})

	payout := service.NewPayoutService(referralRepo, cfg.ReferralAmount)
	orchestrator := service.NewOrchestrator(
		paymentRepo,
		courseRepo,
		providerClient,
		publisher,
		payout,
		redisClient,
		cfg.PendingPaymentWindow,
		cfg.PaymentRedirectURL,
	)

	r := api.NewRouter(orchestrator, providerClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Payment core starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
