package interfaces

import (
	"context"
	"time"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
)

// PaymentRepository is the ledger store: durable payment records and their
// status transitions. It is the source of truth for idempotency decisions.
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error

	// GetByTransactionID returns models.ErrPaymentNotFound when no ledger
	// record exists for the transaction.
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)

	// HasRecentPending reports whether a pending payment younger than window
	// exists for the learner/course pair.
	HasRecentPending(ctx context.Context, learnerID, courseID string, window time.Duration) (bool, error)

	// Complete performs the pending->completed transition in a single
	// transaction: a conditional update keyed on "status was still pending",
	// the enrollment upsert, the course counter increment and the enrollment
	// id write-back. won is false when the conditional update matched no row,
	// meaning another caller committed first (or the payment left pending);
	// the caller re-reads and converges.
	Complete(ctx context.Context, transactionID, providerPaymentID string, paidAt time.Time) (enrollmentID string, won bool, err error)

	// MarkFailed flips pending->failed. Returns false without error when the
	// payment was not pending, which callers treat as a no-op.
	MarkFailed(ctx context.Context, transactionID string) (bool, error)

	// Refund performs the completed->refunded transition atomically with the
	// enrollment cancellation and counter decrement (floored at zero).
	// won mirrors Complete: false when the payment was not completed.
	Refund(ctx context.Context, transactionID string, amount int64, reason string, refundedAt time.Time) (won bool, err error)
}

// CourseRepository covers the read-only eligibility lookups against the CRUD
// layer's tables.
type CourseRepository interface {
	// GetByID returns models.ErrCourseNotAvailable when the course does not
	// exist.
	GetByID(ctx context.Context, courseID string) (*models.Course, error)

	// GetEnrollment returns the enrollment for the pair, or nil when none
	// exists.
	GetEnrollment(ctx context.Context, learnerID, courseID string) (*models.Enrollment, error)
}

// ReferralRepository backs the referral payout: registrations plus referrer
// balances.
type ReferralRepository interface {
	// GetRegistration returns the registration a payment originated from, or
	// nil when the learner has none for the course.
	GetRegistration(ctx context.Context, learnerID, courseID string) (*models.Registration, error)

	// FindApprovedReferrer resolves a recommendation code for one role.
	// Returns nil when the code matches nobody approved in that role.
	FindApprovedReferrer(ctx context.Context, role models.ReferrerRole, code string) (*models.Referrer, error)

	// CompleteAndCredit flips the registration pending->completed and, when
	// referrerID is non-empty, credits amount to that referrer's balance, all
	// in one transaction. done is false when the registration was already
	// completed, in which case nothing is credited — this is the exactly-once
	// guard for the payout.
	CompleteAndCredit(ctx context.Context, registrationID string, role models.ReferrerRole, referrerID string, amount int64) (done bool, err error)
}

// EventPublisher emits payment state-change events to the message bus.
type EventPublisher interface {
	PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error
}
