package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	// MethodDirect is a card-like method charged out of band by the client;
	// its confirmation comes straight from the client and is trusted.
	MethodDirect PaymentMethod = "direct"
	// MethodProvider is an external mobile-money flow reconciled through
	// status polling and provider webhooks.
	MethodProvider PaymentMethod = "provider"
)

// Terminal reports whether no further automatic transition is possible.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentRefunded
}

// Payment is the ledger record for a single purchase attempt. Rows are
// append-only: status moves pending->completed, pending->failed or
// completed->refunded and nothing is ever deleted.
type Payment struct {
	ID            string        `json:"id"`
	TransactionID string        `json:"transaction_id"`
	LearnerID     string        `json:"learner_id"`
	CourseID      string        `json:"course_id"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`

	ProviderPaymentID *string `json:"provider_payment_id,omitempty"`
	EnrollmentID      *string `json:"enrollment_id,omitempty"`

	RefundAmount *int64  `json:"refund_amount,omitempty"`
	RefundReason *string `json:"refund_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}

// PaymentIntent is what createIntent hands back to the client: the pending
// ledger record plus whatever redirect handle the provider supplied.
type PaymentIntent struct {
	Payment     *Payment `json:"payment"`
	PaymentLink string   `json:"payment_link,omitempty"`
	USSDCode    string   `json:"ussd_code,omitempty"`
}

// CompletionResult is returned by the idempotent completion entry point.
// AlreadyCompleted is true for every caller after the first winner.
type CompletionResult struct {
	AlreadyCompleted bool   `json:"already_completed"`
	EnrollmentID     string `json:"enrollment_id"`
}

// StateChangedEvent is published to Kafka whenever a transition commits.
type StateChangedEvent struct {
	TransactionID string        `json:"transaction_id"`
	Status        PaymentStatus `json:"status"`
	PreviousState PaymentStatus `json:"previous_state"`
	LearnerID     string        `json:"learner_id"`
	CourseID      string        `json:"course_id"`
	Timestamp     time.Time     `json:"timestamp"`
}
