package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightpath/lms-platform/payment-core/internal/handlers"
	"github.com/brightpath/lms-platform/payment-core/internal/service"
	"github.com/brightpath/lms-platform/payment-core/internal/telemetry"
)

func NewRouter(orchestrator *service.Orchestrator, verifier handlers.WebhookVerifier) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "payment-core"})
	})

	paymentHandler := handlers.NewPaymentHandler(orchestrator)
	webhookHandler := handlers.NewWebhookHandler(orchestrator, verifier)

	r.POST("/payments/intents", paymentHandler.CreateIntent)
	r.GET("/payments/:transaction_id", paymentHandler.GetPayment)
	r.GET("/payments/:transaction_id/status", paymentHandler.PollStatus)
	r.POST("/payments/:transaction_id/confirm", paymentHandler.ConfirmDirect)
	r.POST("/payments/:transaction_id/refund", paymentHandler.Refund)
	r.POST("/payments/webhook", webhookHandler.Handle)

	return r
}
