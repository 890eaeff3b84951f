package repository

import (
	"context"
	"database/sql"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
)

type ReferralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) GetRegistration(ctx context.Context, learnerID, courseID string) (*models.Registration, error) {
	var reg models.Registration
	var code sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, learner_id, course_id, recommendation_code, status, created_at
		FROM registrations
		WHERE learner_id = $1 AND course_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, learnerID, courseID).Scan(&reg.ID, &reg.LearnerID, &reg.CourseID, &code, &reg.Status, &reg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if code.Valid {
		reg.RecommendationCode = &code.String
	}
	return &reg, nil
}

func (r *ReferralRepository) FindApprovedReferrer(ctx context.Context, role models.ReferrerRole, code string) (*models.Referrer, error) {
	var ref models.Referrer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, role, code, approved, balance
		FROM referrers WHERE role = $1 AND code = $2 AND approved = TRUE
	`, role, code).Scan(&ref.ID, &ref.Role, &ref.Code, &ref.Approved, &ref.Balance)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CompleteAndCredit flips the registration to completed with a conditional
// UPDATE; only the caller whose UPDATE matched a row performs the balance
// credit, so a retried payout can never pay twice.
func (r *ReferralRepository) CompleteAndCredit(ctx context.Context, registrationID string, role models.ReferrerRole, referrerID string, amount int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE registrations SET status = $1 WHERE id = $2 AND status <> $1
	`, models.RegistrationCompleted, registrationID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if referrerID != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE referrers SET balance = balance + $1 WHERE id = $2 AND role = $3
		`, amount, referrerID, role); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
