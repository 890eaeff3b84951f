package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/brightpath/lms-platform/payment-core/internal/interfaces"
	"github.com/brightpath/lms-platform/payment-core/internal/models"
	"github.com/brightpath/lms-platform/payment-core/internal/telemetry"
)

// payoutRoles is the resolution order for recommendation codes; the first
// approved match wins.
var payoutRoles = []models.ReferrerRole{models.RoleAmbassador, models.RoleTutor}

// PayoutService credits a referrer's balance once per successfully completed
// payment. The registration's own status transition is the idempotency
// guard: whoever flips it pending->completed pays, everyone else no-ops.
type PayoutService struct {
	referrals interfaces.ReferralRepository
	amount    int64
}

func NewPayoutService(referrals interfaces.ReferralRepository, amount int64) *PayoutService {
	return &PayoutService{referrals: referrals, amount: amount}
}

// PayoutForPayment resolves the registration a payment originated from and
// runs the payout. Payments without a registration (e.g. purchases made long
// after sign-up flows were retired) are not an error.
func (s *PayoutService) PayoutForPayment(ctx context.Context, learnerID, courseID string) error {
	registration, err := s.referrals.GetRegistration(ctx, learnerID, courseID)
	if err != nil {
		return err
	}
	if registration == nil {
		return nil
	}
	return s.Payout(ctx, registration)
}

// Payout applies the referral credit for one registration, exactly once.
func (s *PayoutService) Payout(ctx context.Context, registration *models.Registration) error {
	if registration.Status == models.RegistrationCompleted {
		return nil
	}

	if registration.RecommendationCode == nil || *registration.RecommendationCode == "" {
		_, err := s.referrals.CompleteAndCredit(ctx, registration.ID, "", "", 0)
		return err
	}

	code := *registration.RecommendationCode
	for _, role := range payoutRoles {
		referrer, err := s.referrals.FindApprovedReferrer(ctx, role, code)
		if err != nil {
			return err
		}
		if referrer == nil {
			continue
		}

		done, err := s.referrals.CompleteAndCredit(ctx, registration.ID, role, referrer.ID, s.amount)
		if err != nil {
			return err
		}
		if done {
			telemetry.ReferralPayouts.Inc()
			telemetry.Logger.Info("Referral payout credited",
				zap.String("registration_id", registration.ID),
				zap.String("referrer_id", referrer.ID),
				zap.String("role", string(role)),
				zap.Int64("amount", s.amount),
			)
		}
		return nil
	}

	// The code referenced nobody eligible; close out the registration so the
	// guard still fires exactly once.
	_, err := s.referrals.CompleteAndCredit(ctx, registration.ID, "", "", 0)
	return err
}
