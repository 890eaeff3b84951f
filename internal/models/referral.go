package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationCompleted RegistrationStatus = "completed"
)

// Registration is the sign-up record a payment originates from. Its status
// field is the exactly-once guard for the referral payout: only the caller
// that flips it pending->completed credits the referrer.
type Registration struct {
	ID                 string             `json:"id"`
	LearnerID          string             `json:"learner_id"`
	CourseID           string             `json:"course_id"`
	RecommendationCode *string            `json:"recommendation_code,omitempty"`
	Status             RegistrationStatus `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
}

type ReferrerRole string

const (
	RoleAmbassador ReferrerRole = "ambassador"
	RoleTutor      ReferrerRole = "tutor"
)

// Referrer is an ambassador or tutor whose code can be attached to a
// registration. Only approved referrers are eligible for payouts.
type Referrer struct {
	ID       string       `json:"id"`
	Role     ReferrerRole `json:"role"`
	Code     string       `json:"code"`
	Approved bool         `json:"approved"`
	Balance  int64        `json:"balance"`
}
