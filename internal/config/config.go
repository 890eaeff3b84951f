package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
	Port         string

	ProviderBaseURL         string
	ProviderToken           string
	ProviderWebhookSecret   string
	ProviderInitiateTimeout time.Duration
	ProviderStatusTimeout   time.Duration
	PaymentRedirectURL      string

	// PendingPaymentWindow bounds how long a stale pending intent blocks a
	// fresh one for the same learner/course pair.
	PendingPaymentWindow time.Duration

	// ReferralAmount is the fixed credit paid per referred purchase, in minor
	// currency units.
	ReferralAmount int64
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	providerBaseURL := os.Getenv("PROVIDER_BASE_URL")
	if providerBaseURL == "" {
		providerBaseURL = "https://demo.campay.net/api"
	}

	return &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		Port:         port,

		ProviderBaseURL:         providerBaseURL,
		ProviderToken:           os.Getenv("PROVIDER_TOKEN"),
		ProviderWebhookSecret:   os.Getenv("PROVIDER_WEBHOOK_SECRET"),
		ProviderInitiateTimeout: durationEnv("PROVIDER_INITIATE_TIMEOUT", 500*time.Second),
		ProviderStatusTimeout:   durationEnv("PROVIDER_STATUS_TIMEOUT", 10*time.Second),
		PaymentRedirectURL:      os.Getenv("PAYMENT_REDIRECT_URL"),

		PendingPaymentWindow: durationEnv("PENDING_PAYMENT_WINDOW", 30*time.Minute),
		ReferralAmount:       int64Env("REFERRAL_AMOUNT", 500),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func int64Env(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
