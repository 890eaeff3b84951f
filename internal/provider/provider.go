package provider

import (
	"context"
	"strings"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
)

// Provider is the boundary to the external mobile-money/card processor.
// No retries live here; retry policy belongs to the reconciliation triggers
// (client poll loops and provider webhook redelivery).
type Provider interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	GetStatus(ctx context.Context, reference string) (*StatusResponse, error)
}

type InitiateRequest struct {
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	ExternalReference string `json:"external_reference"`
	RedirectURL       string `json:"redirect_url"`
	Description       string `json:"description"`
}

type InitiateResponse struct {
	Reference   string `json:"reference"`
	PaymentLink string `json:"link"`
	USSDCode    string `json:"ussd_code"`
}

type StatusResponse struct {
	Reference         string `json:"reference"`
	Status            string `json:"status"`
	OperatorReference string `json:"operator_reference"`
}

// MapStatus translates the provider's vocabulary into the ledger's. Anything
// unrecognized stays pending: an unknown status is never grounds for a
// terminal transition.
func MapStatus(providerStatus string) models.PaymentStatus {
	switch strings.ToUpper(providerStatus) {
	case "SUCCESSFUL", "SUCCESS":
		return models.PaymentCompleted
	case "FAILED", "EXPIRED":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
