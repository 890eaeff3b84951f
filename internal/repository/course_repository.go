package repository

import (
	"context"
	"database/sql"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
)

type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) GetByID(ctx context.Context, courseID string) (*models.Course, error) {
	var c models.Course
	var discount sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, price, discount_price, currency, enrollment_count
		FROM courses WHERE id = $1
	`, courseID).Scan(&c.ID, &c.Status, &c.Price, &discount, &c.Currency, &c.EnrollmentCount)
	if err == sql.ErrNoRows {
		return nil, models.ErrCourseNotAvailable
	}
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		c.DiscountPrice = &discount.Int64
	}
	return &c, nil
}

func (r *CourseRepository) GetEnrollment(ctx context.Context, learnerID, courseID string) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, learner_id, course_id, status, enrolled_at
		FROM enrollments WHERE learner_id = $1 AND course_id = $2
	`, learnerID, courseID).Scan(&e.ID, &e.LearnerID, &e.CourseID, &e.Status, &e.EnrolledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
