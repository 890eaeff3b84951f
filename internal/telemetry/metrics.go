package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters for the payment lifecycle. Duplicate completion signals are
// expected (webhook redelivery, poll racing webhook) and tracked separately
// from first-time completions.
var (
	PaymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Payments transitioned pending to completed",
	})

	PaymentsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Payments transitioned pending to failed",
	})

	PaymentsRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_refunded_total",
		Help: "Payments transitioned completed to refunded",
	})

	DuplicateCompletionSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_duplicate_completion_signals_total",
		Help: "Completion signals observed after the payment was already completed",
	})

	ReferralPayouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "referral_payouts_total",
		Help: "Referral balances credited",
	})

	WebhooksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provider_webhooks_received_total",
		Help: "Webhook deliveries received from the payment provider",
	})
)
