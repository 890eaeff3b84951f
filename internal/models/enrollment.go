package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment links a learner to a course. At most one row exists per
// (learner, course) pair; completion upserts it, refund cancels it.
type Enrollment struct {
	ID         string           `json:"id"`
	LearnerID  string           `json:"learner_id"`
	CourseID   string           `json:"course_id"`
	Status     EnrollmentStatus `json:"status"`
	EnrolledAt time.Time        `json:"enrolled_at"`
}

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

// Course carries the pricing and availability fields the payment core reads,
// plus the denormalized enrollment counter it maintains. The rest of the
// course record belongs to the CRUD layer.
type Course struct {
	ID              string       `json:"id"`
	Status          CourseStatus `json:"status"`
	Price           int64        `json:"price"`
	DiscountPrice   *int64       `json:"discount_price,omitempty"`
	Currency        string       `json:"currency"`
	EnrollmentCount int64        `json:"enrollment_count"`
}

// Purchasable reports whether an intent may be created for the course.
func (c *Course) Purchasable() bool {
	return c.Status == CoursePublished
}

// EffectivePrice is the discounted price when one is set, else the list price.
func (c *Course) EffectivePrice() int64 {
	if c.DiscountPrice != nil {
		return *c.DiscountPrice
	}
	return c.Price
}
