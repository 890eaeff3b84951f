package models

import "errors"

// Typed failures surfaced by the orchestrator. Handlers map these to HTTP
// status codes; none of them is ever coerced to a success response.
var (
	ErrCourseNotAvailable      = errors.New("course not available for purchase")
	ErrAlreadyEnrolled         = errors.New("learner already enrolled in course")
	ErrDuplicatePendingPayment = errors.New("a pending payment already exists for this course")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrInvalidTransition       = errors.New("invalid payment state transition")
	ErrRefundExceedsOriginal   = errors.New("refund amount exceeds original payment amount")

	// ErrProviderUnavailable marks a transient failure talking to the payment
	// provider. A status check that errors leaves the payment pending; it is
	// never grounds for marking the payment failed.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)
