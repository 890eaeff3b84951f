package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, transaction_id, learner_id, course_id, amount, currency, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.TransactionID, p.LearnerID, p.CourseID, p.Amount, p.Currency, p.Method, p.Status, p.CreatedAt)
	return err
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, learner_id, course_id, amount, currency, method, status,
		       provider_payment_id, enrollment_id, refund_amount, refund_reason,
		       created_at, paid_at, refunded_at
		FROM payments WHERE transaction_id = $1
	`, transactionID))
}

func (r *PaymentRepository) HasRecentPending(ctx context.Context, learnerID, courseID string, window time.Duration) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE learner_id = $1 AND course_id = $2 AND status = $3 AND created_at > $4
		)
	`, learnerID, courseID, models.PaymentPending, time.Now().Add(-window)).Scan(&exists)
	return exists, err
}

// Complete is the first-committer-wins transition. The conditional UPDATE is
// scoped by "status was still pending", so of any number of concurrent
// callers exactly one observes rows=1 and performs the enrollment writes;
// the rest see rows=0 and re-read outside this method.
func (r *PaymentRepository) Complete(ctx context.Context, transactionID, providerPaymentID string, paidAt time.Time) (string, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, provider_payment_id = $2, paid_at = $3
		WHERE transaction_id = $4 AND status = $5
	`, models.PaymentCompleted, providerPaymentID, paidAt, transactionID, models.PaymentPending)
	if err != nil {
		return "", false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if rows == 0 {
		return "", false, nil
	}

	var learnerID, courseID string
	err = tx.QueryRowContext(ctx,
		`SELECT learner_id, course_id FROM payments WHERE transaction_id = $1`,
		transactionID,
	).Scan(&learnerID, &courseID)
	if err != nil {
		return "", false, err
	}

	enrollmentID, countDelta, err := upsertEnrollment(ctx, tx, learnerID, courseID, paidAt)
	if err != nil {
		return "", false, err
	}
	if countDelta > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE courses SET enrollment_count = enrollment_count + 1 WHERE id = $1`,
			courseID,
		); err != nil {
			return "", false, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET enrollment_id = $1 WHERE transaction_id = $2`,
		enrollmentID, transactionID,
	); err != nil {
		return "", false, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return enrollmentID, true, nil
}

// upsertEnrollment creates or re-activates the enrollment for the pair and
// reports whether the course counter must move: 1 when the row entered the
// active set, 0 when it was already active or completed.
func upsertEnrollment(ctx context.Context, tx *sql.Tx, learnerID, courseID string, at time.Time) (string, int, error) {
	var id string
	var status models.EnrollmentStatus
	err := tx.QueryRowContext(ctx,
		`SELECT id, status FROM enrollments WHERE learner_id = $1 AND course_id = $2 FOR UPDATE`,
		learnerID, courseID,
	).Scan(&id, &status)

	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO enrollments (id, learner_id, course_id, status, enrolled_at)
			VALUES ($1, $2, $3, $4, $5)
		`, id, learnerID, courseID, models.EnrollmentActive, at); err != nil {
			return "", 0, err
		}
		return id, 1, nil
	case err != nil:
		return "", 0, err
	}

	if status == models.EnrollmentCancelled {
		if _, err := tx.ExecContext(ctx,
			`UPDATE enrollments SET status = $1, enrolled_at = $2 WHERE id = $3`,
			models.EnrollmentActive, at, id,
		); err != nil {
			return "", 0, err
		}
		return id, 1, nil
	}

	// Already active or completed: keep it, counter untouched.
	return id, 0, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, transactionID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $1 WHERE transaction_id = $2 AND status = $3
	`, models.PaymentFailed, transactionID, models.PaymentPending)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

// Refund mirrors Complete: a conditional UPDATE keyed on completed, with the
// enrollment cancellation and counter decrement in the same transaction.
func (r *PaymentRepository) Refund(ctx context.Context, transactionID string, amount int64, reason string, refundedAt time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var enrollmentID sql.NullString
	var courseID string
	err = tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $1, refund_amount = $2, refund_reason = $3, refunded_at = $4
		WHERE transaction_id = $5 AND status = $6
		RETURNING enrollment_id, course_id
	`, models.PaymentRefunded, amount, reason, refundedAt, transactionID, models.PaymentCompleted).Scan(&enrollmentID, &courseID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if enrollmentID.Valid {
		result, err := tx.ExecContext(ctx, `
			UPDATE enrollments SET status = $1 WHERE id = $2 AND status IN ($3, $4)
		`, models.EnrollmentCancelled, enrollmentID.String, models.EnrollmentActive, models.EnrollmentCompleted)
		if err != nil {
			return false, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, err
		}
		if rows > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE courses SET enrollment_count = GREATEST(enrollment_count - 1, 0) WHERE id = $1`,
				courseID,
			); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	var p models.Payment
	var providerPaymentID, enrollmentID, refundReason sql.NullString
	var refundAmount sql.NullInt64
	var paidAt, refundedAt sql.NullTime

	err := row.Scan(&p.ID, &p.TransactionID, &p.LearnerID, &p.CourseID, &p.Amount, &p.Currency,
		&p.Method, &p.Status, &providerPaymentID, &enrollmentID, &refundAmount, &refundReason,
		&p.CreatedAt, &paidAt, &refundedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	if providerPaymentID.Valid {
		p.ProviderPaymentID = &providerPaymentID.String
	}
	if enrollmentID.Valid {
		p.EnrollmentID = &enrollmentID.String
	}
	if refundAmount.Valid {
		p.RefundAmount = &refundAmount.Int64
	}
	if refundReason.Valid {
		p.RefundReason = &refundReason.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	if refundedAt.Valid {
		t := refundedAt.Time
		p.RefundedAt = &t
	}
	return &p, nil
}
