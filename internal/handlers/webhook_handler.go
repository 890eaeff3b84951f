package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
	"github.com/brightpath/lms-platform/payment-core/internal/service"
	"github.com/brightpath/lms-platform/payment-core/internal/telemetry"
)

// WebhookVerifier checks the provider's signature on a webhook delivery.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) bool
}

// WebhookHandler receives provider push notifications. The payload is a
// wake-up signal only: the transaction reference is the single field acted
// on, and the status is re-fetched from the provider before anything is
// applied. A forged or stale delivery therefore cannot move the ledger.
type WebhookHandler struct {
	orchestrator *service.Orchestrator
	verifier     WebhookVerifier
}

func NewWebhookHandler(orchestrator *service.Orchestrator, verifier WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{orchestrator: orchestrator, verifier: verifier}
}

type webhookPayload struct {
	Reference         string `json:"reference"`
	ExternalReference string `json:"external_reference"`
	Status            string `json:"status"` // ignored: re-verified via GetStatus
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	telemetry.WebhooksReceived.Inc()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.verifier != nil && !h.verifier.VerifyWebhook(body, c.GetHeader("X-Signature")) {
		telemetry.Logger.Warn("Webhook signature rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	reference := payload.Reference
	if reference == "" {
		reference = payload.ExternalReference
	}
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing transaction reference"})
		return
	}

	payment, err := h.orchestrator.Reconcile(c.Request.Context(), reference)
	switch {
	case errors.Is(err, models.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown transaction"})
		return
	case err != nil:
		// Anything transient: non-200 so the provider redelivers.
		telemetry.Logger.Warn("Webhook reconciliation failed",
			zap.String("transaction_id", reference),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "retry later"})
		return
	}

	// 200 even when the payment was already completed, so the provider
	// stops redelivering.
	c.JSON(http.StatusOK, gin.H{
		"transaction_id": reference,
		"status":         payment.Status,
	})
}
