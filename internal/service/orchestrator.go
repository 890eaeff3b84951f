package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brightpath/lms-platform/payment-core/internal/interfaces"
	"github.com/brightpath/lms-platform/payment-core/internal/models"
	"github.com/brightpath/lms-platform/payment-core/internal/provider"
	"github.com/brightpath/lms-platform/payment-core/internal/telemetry"
)

// Orchestrator owns every Payment and Enrollment mutation. The three
// reconciliation triggers (direct confirm, status poll, webhook) never write
// state themselves; they all funnel into CompleteIfNotAlready / MarkFailed.
type Orchestrator struct {
	payments    interfaces.PaymentRepository
	courses     interfaces.CourseRepository
	provider    provider.Provider
	publisher   interfaces.EventPublisher
	payout      *PayoutService
	redisClient *redis.Client

	pendingWindow time.Duration
	redirectURL   string
}

func NewOrchestrator(
	payments interfaces.PaymentRepository,
	courses interfaces.CourseRepository,
	prov provider.Provider,
	publisher interfaces.EventPublisher,
	payout *PayoutService,
	redisClient *redis.Client,
	pendingWindow time.Duration,
	redirectURL string,
) *Orchestrator {
	return &Orchestrator{
		payments:      payments,
		courses:       courses,
		provider:      prov,
		publisher:     publisher,
		payout:        payout,
		redisClient:   redisClient,
		pendingWindow: pendingWindow,
		redirectURL:   redirectURL,
	}
}

// CreateIntent validates eligibility and persists a pending payment. For
// provider-based methods it also initiates the external charge and hands the
// provider's redirect handle back to the client.
func (o *Orchestrator) CreateIntent(ctx context.Context, learnerID, courseID string, method models.PaymentMethod) (*models.PaymentIntent, error) {
	course, err := o.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Purchasable() {
		return nil, models.ErrCourseNotAvailable
	}

	enrollment, err := o.courses.GetEnrollment(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment != nil && enrollment.Status != models.EnrollmentCancelled {
		return nil, models.ErrAlreadyEnrolled
	}

	pending, err := o.payments.HasRecentPending(ctx, learnerID, courseID, o.pendingWindow)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.ErrDuplicatePendingPayment
	}

	transactionID := uuid.NewString()
	intent := &models.PaymentIntent{}

	if method == models.MethodProvider {
		resp, err := o.provider.Initiate(ctx, provider.InitiateRequest{
			Amount:            course.EffectivePrice(),
			Currency:          course.Currency,
			ExternalReference: transactionID,
			RedirectURL:       o.redirectURL,
			Description:       "Course enrollment " + courseID,
		})
		if err != nil {
			return nil, err
		}
		// The provider's own reference, when present, becomes the
		// transaction id so webhooks and polls correlate directly.
		if resp.Reference != "" {
			transactionID = resp.Reference
		}
		intent.PaymentLink = resp.PaymentLink
		intent.USSDCode = resp.USSDCode
	}

	payment := &models.Payment{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		LearnerID:     learnerID,
		CourseID:      courseID,
		Amount:        course.EffectivePrice(),
		Currency:      course.Currency,
		Method:        method,
		Status:        models.PaymentPending,
		CreatedAt:     time.Now(),
	}
	if err := o.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	telemetry.Logger.Info("Payment intent created",
		zap.String("transaction_id", payment.TransactionID),
		zap.String("learner_id", learnerID),
		zap.String("course_id", courseID),
		zap.Int64("amount", payment.Amount),
		zap.String("method", string(method)),
	)

	intent.Payment = payment
	return intent, nil
}

// CompleteIfNotAlready is the single idempotent completion entry point. Any
// number of concurrent or repeated calls for the same transaction produce
// exactly one enrollment, one counter increment and one referral payout;
// every call after the first winner returns AlreadyCompleted=true.
func (o *Orchestrator) CompleteIfNotAlready(ctx context.Context, transactionID, providerPaymentID string) (*models.CompletionResult, error) {
	// Advisory lock only: it trims wasted duplicate transactions when two
	// triggers race, but the conditional update inside payments.Complete is
	// what guarantees a single winner.
	if o.redisClient != nil {
		lockKey := fmt.Sprintf("payment_lock:%s", transactionID)
		if o.redisClient.SetNX(ctx, lockKey, "1", 10*time.Second).Val() {
			defer o.redisClient.Del(ctx, lockKey)
		}
	}

	payment, err := o.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case models.PaymentCompleted:
		telemetry.DuplicateCompletionSignals.Inc()
		return &models.CompletionResult{AlreadyCompleted: true, EnrollmentID: derefString(payment.EnrollmentID)}, nil
	case models.PaymentFailed, models.PaymentRefunded:
		return nil, models.ErrInvalidTransition
	}

	enrollmentID, won, err := o.payments.Complete(ctx, transactionID, providerPaymentID, time.Now())
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race: re-read and converge on whatever the winner did.
		payment, err = o.payments.GetByTransactionID(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if payment.Status == models.PaymentCompleted {
			telemetry.DuplicateCompletionSignals.Inc()
			return &models.CompletionResult{AlreadyCompleted: true, EnrollmentID: derefString(payment.EnrollmentID)}, nil
		}
		return nil, models.ErrInvalidTransition
	}

	telemetry.PaymentsCompleted.Inc()
	telemetry.Logger.Info("Payment completed",
		zap.String("transaction_id", transactionID),
		zap.String("enrollment_id", enrollmentID),
	)
	o.publishStateChanged(ctx, payment, models.PaymentCompleted, models.PaymentPending)

	// The payout carries its own exactly-once guard (the registration status
	// compare-and-set), so a crash-and-retry of the completion path cannot
	// double-credit. A payout failure does not undo the committed
	// completion; it is logged and left to the next reconciliation signal.
	if o.payout != nil {
		if err := o.payout.PayoutForPayment(ctx, payment.LearnerID, payment.CourseID); err != nil {
			telemetry.Logger.Error("Referral payout failed",
				zap.String("transaction_id", transactionID),
				zap.Error(err),
			)
		}
	}

	return &models.CompletionResult{AlreadyCompleted: false, EnrollmentID: enrollmentID}, nil
}

// ConfirmDirect is the trusted client-side confirmation trigger. It is only
// honored for the direct payment method; provider-based payments must
// reconcile through the poll or webhook path.
func (o *Orchestrator) ConfirmDirect(ctx context.Context, transactionID, providerReference string) (*models.CompletionResult, error) {
	payment, err := o.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Method != models.MethodDirect {
		return nil, models.ErrInvalidTransition
	}
	return o.CompleteIfNotAlready(ctx, transactionID, providerReference)
}

// Reconcile asks the provider for the transaction's current status and
// applies the mapped result. It backs both the status-poll and webhook
// triggers. A provider error leaves the payment untouched and is surfaced as
// ErrProviderUnavailable; "the status check failed" is never "the payment
// failed".
func (o *Orchestrator) Reconcile(ctx context.Context, transactionID string) (*models.Payment, error) {
	payment, err := o.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return payment, nil
	}

	status, err := o.provider.GetStatus(ctx, transactionID)
	if err != nil {
		return payment, err
	}

	switch provider.MapStatus(status.Status) {
	case models.PaymentCompleted:
		if _, err := o.CompleteIfNotAlready(ctx, transactionID, status.OperatorReference); err != nil {
			return payment, err
		}
	case models.PaymentFailed:
		if err := o.MarkFailed(ctx, transactionID); err != nil {
			return payment, err
		}
	default:
		// Still pending at the provider; nothing to apply.
		return payment, nil
	}

	return o.payments.GetByTransactionID(ctx, transactionID)
}

// MarkFailed flips a pending payment to failed. It is idempotent on
// already-failed payments and never downgrades a completed or refunded one —
// a failure signal that lost a race against a completion is discarded.
func (o *Orchestrator) MarkFailed(ctx context.Context, transactionID string) error {
	changed, err := o.payments.MarkFailed(ctx, transactionID)
	if err != nil {
		return err
	}
	if !changed {
		payment, err := o.payments.GetByTransactionID(ctx, transactionID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentFailed {
			telemetry.Logger.Warn("Discarding failure signal for non-pending payment",
				zap.String("transaction_id", transactionID),
				zap.String("status", string(payment.Status)),
			)
		}
		return nil
	}

	telemetry.PaymentsFailed.Inc()
	telemetry.Logger.Info("Payment failed", zap.String("transaction_id", transactionID))
	o.publishStateChangedByID(ctx, transactionID, models.PaymentFailed, models.PaymentPending)
	return nil
}

// Refund reverses a completed payment: records the refund, cancels the
// associated enrollment and decrements the course counter, atomically.
func (o *Orchestrator) Refund(ctx context.Context, transactionID string, amount int64, reason string) (*models.Payment, error) {
	payment, err := o.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentCompleted {
		return nil, models.ErrInvalidTransition
	}
	if amount <= 0 || amount > payment.Amount {
		return nil, models.ErrRefundExceedsOriginal
	}

	won, err := o.payments.Refund(ctx, transactionID, amount, reason, time.Now())
	if err != nil {
		return nil, err
	}
	if !won {
		// Someone moved the payment out of completed between the read and
		// the conditional update.
		return nil, models.ErrInvalidTransition
	}

	telemetry.PaymentsRefunded.Inc()
	telemetry.Logger.Info("Payment refunded",
		zap.String("transaction_id", transactionID),
		zap.Int64("refund_amount", amount),
	)
	o.publishStateChanged(ctx, payment, models.PaymentRefunded, models.PaymentCompleted)

	return o.payments.GetByTransactionID(ctx, transactionID)
}

// GetPayment reads back the ledger record.
func (o *Orchestrator) GetPayment(ctx context.Context, transactionID string) (*models.Payment, error) {
	return o.payments.GetByTransactionID(ctx, transactionID)
}

func (o *Orchestrator) publishStateChanged(ctx context.Context, payment *models.Payment, to, from models.PaymentStatus) {
	if o.publisher == nil {
		return
	}
	event := models.StateChangedEvent{
		TransactionID: payment.TransactionID,
		Status:        to,
		PreviousState: from,
		LearnerID:     payment.LearnerID,
		CourseID:      payment.CourseID,
		Timestamp:     time.Now(),
	}
	if err := o.publisher.PublishStateChanged(ctx, event); err != nil {
		// The transition is already committed; the event stream catches up
		// on the next transition or via reconciliation tooling.
		telemetry.Logger.Error("Failed to publish state change",
			zap.String("transaction_id", payment.TransactionID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) publishStateChangedByID(ctx context.Context, transactionID string, to, from models.PaymentStatus) {
	payment, err := o.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, models.ErrPaymentNotFound) {
			telemetry.Logger.Error("Failed to load payment for event", zap.Error(err))
		}
		return
	}
	o.publishStateChanged(ctx, payment, to, from)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
