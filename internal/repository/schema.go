package repository

import "database/sql"

// InitDB creates the tables the payment core owns (payments, enrollments)
// and the collaborator tables it reads (courses, registrations, referrers).
// In deployments where the CRUD layer already migrated the collaborator
// tables these statements are no-ops.
func InitDB(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payments (
			id VARCHAR(36) PRIMARY KEY,
			transaction_id VARCHAR(64) NOT NULL UNIQUE,
			learner_id VARCHAR(36) NOT NULL,
			course_id VARCHAR(36) NOT NULL,
			amount BIGINT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			method VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			provider_payment_id VARCHAR(128),
			enrollment_id VARCHAR(36),
			refund_amount BIGINT,
			refund_reason VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			paid_at TIMESTAMP,
			refunded_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_learner_course_status
			ON payments(learner_id, course_id, status)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			id VARCHAR(36) PRIMARY KEY,
			learner_id VARCHAR(36) NOT NULL,
			course_id VARCHAR(36) NOT NULL,
			status VARCHAR(16) NOT NULL,
			enrolled_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (learner_id, course_id)
		)`,
		`CREATE TABLE IF NOT EXISTS courses (
			id VARCHAR(36) PRIMARY KEY,
			status VARCHAR(16) NOT NULL,
			price BIGINT NOT NULL,
			discount_price BIGINT,
			currency VARCHAR(8) NOT NULL,
			enrollment_count BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id VARCHAR(36) PRIMARY KEY,
			learner_id VARCHAR(36) NOT NULL,
			course_id VARCHAR(36) NOT NULL,
			recommendation_code VARCHAR(64),
			status VARCHAR(16) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_learner_course
			ON registrations(learner_id, course_id)`,
		`CREATE TABLE IF NOT EXISTS referrers (
			id VARCHAR(36) PRIMARY KEY,
			role VARCHAR(16) NOT NULL,
			code VARCHAR(64) NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			balance BIGINT NOT NULL DEFAULT 0,
			UNIQUE (role, code)
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
