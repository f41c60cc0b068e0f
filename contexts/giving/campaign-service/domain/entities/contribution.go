package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
)

type ContributionStatus string

const (
	ContributionStatusPending   ContributionStatus = "pending"
	ContributionStatusSucceeded ContributionStatus = "succeeded"
	ContributionStatusFailed    ContributionStatus = "failed"
	ContributionStatusRefunded  ContributionStatus = "refunded"
)

// Contribution is a single monetary gift, optionally attributed to a
// campaign. Only succeeded contributions count toward a raised total.
type Contribution struct {
	ContributionID string
	OrganizationID string
	CampaignID     string
	DonorName      string
	Message        string
	Amount         decimal.Decimal
	Status         ContributionStatus
	OrderID        string
	CreatedAt      time.Time
	PaidAt         *time.Time
}

const (
	CodeAmountNotPositive = "amount_not_positive"
	CodeAmountScale       = "amount_scale"
)

// ValidateContributionAmount mirrors the goal-amount rules: positive, at
// most two fractional digits.
func ValidateContributionAmount(amount decimal.Decimal) domainerrors.FieldErrors {
	violations := domainerrors.FieldErrors{}
	if !amount.IsPositive() {
		violations["amount"] = CodeAmountNotPositive
	} else if !amount.Equal(amount.Round(2)) {
		violations["amount"] = CodeAmountScale
	}
	return violations
}

// StatusFromProcessor maps a payment processor transaction status onto the
// contribution status enum. Anything unrecognized stays pending.
func StatusFromProcessor(raw string) ContributionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "settlement", "success", "succeeded", "capture", "paid":
		return ContributionStatusSucceeded
	case "failed", "failure", "cancelled", "cancel", "deny", "expire", "expired":
		return ContributionStatusFailed
	case "refund", "refunded", "partial_refund", "chargeback":
		return ContributionStatusRefunded
	default:
		return ContributionStatusPending
	}
}
