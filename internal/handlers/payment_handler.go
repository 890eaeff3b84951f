package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
	"github.com/brightpath/lms-platform/payment-core/internal/service"
	"github.com/brightpath/lms-platform/payment-core/internal/telemetry"
)

type PaymentHandler struct {
	orchestrator *service.Orchestrator
}

func NewPaymentHandler(orchestrator *service.Orchestrator) *PaymentHandler {
	return &PaymentHandler{orchestrator: orchestrator}
}

type createIntentRequest struct {
	LearnerID string `json:"learner_id" binding:"required"`
	CourseID  string `json:"course_id" binding:"required"`
	Method    string `json:"method" binding:"required,oneof=direct provider"`
}

func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	intent, err := h.orchestrator.CreateIntent(c.Request.Context(), req.LearnerID, req.CourseID, models.PaymentMethod(req.Method))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment":      intent.Payment,
		"payment_link": intent.PaymentLink,
		"ussd_code":    intent.USSDCode,
	})
}

type confirmRequest struct {
	ProviderReference string `json:"provider_reference"`
}

// ConfirmDirect handles the trusted client-side confirmation trigger.
func (h *PaymentHandler) ConfirmDirect(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.orchestrator.ConfirmDirect(c.Request.Context(), transactionID, req.ProviderReference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id":    transactionID,
		"status":            models.PaymentCompleted,
		"already_completed": result.AlreadyCompleted,
		"enrollment_id":     result.EnrollmentID,
	})
}

// PollStatus handles the client's "is my payment done yet" trigger. A
// provider outage during the check surfaces as "still processing", never as
// a failure.
func (h *PaymentHandler) PollStatus(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	payment, err := h.orchestrator.Reconcile(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, models.ErrProviderUnavailable) {
			c.JSON(http.StatusOK, gin.H{
				"transaction_id": transactionID,
				"status":         models.PaymentPending,
				"message":        "status unknown, retry later",
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": transactionID,
		"status":         payment.Status,
		"payment":        payment,
	})
}

type refundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason"`
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	payment, err := h.orchestrator.Refund(c.Request.Context(), transactionID, req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": transactionID,
		"status":         payment.Status,
		"payment":        payment,
	})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.orchestrator.GetPayment(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// respondError maps the orchestrator's typed failures onto HTTP codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrPaymentNotFound), errors.Is(err, models.ErrCourseNotAvailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyEnrolled),
		errors.Is(err, models.ErrDuplicatePendingPayment),
		errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrRefundExceedsOriginal):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		telemetry.Logger.Error("Unhandled payment error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
