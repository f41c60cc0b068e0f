package http

import "github.com/shopspring/decimal"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrorResponse carries per-field rule codes alongside the generic
// error code so the edit form can highlight every violated field at once.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// CampaignPayload is the request body shared by create and update. Dates are
// plain calendar dates; the datetime tags check shape only, the business
// rules live in the domain layer.
type CampaignPayload struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	GoalAmount  *decimal.Decimal `json:"goal_amount"`
	NoGoal      bool             `json:"no_goal"`
	StartDate   string           `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string           `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type StatusActionRequest struct {
	Reason string `json:"reason"`
}

type ContributionRequest struct {
	CampaignID string          `json:"campaign_id"`
	DonorName  string          `json:"donor_name"`
	Message    string          `json:"message"`
	Amount     decimal.Decimal `json:"amount"`
}

// WebhookRequest is the payment processor callback body. It carries no
// organization header; the order id alone identifies the contribution.
type WebhookRequest struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

type CampaignDTO struct {
	CampaignID     string           `json:"campaign_id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	GoalAmount     *decimal.Decimal `json:"goal_amount,omitempty"`
	NoGoal         bool             `json:"no_goal"`
	StartDate      string           `json:"start_date"`
	EndDate        string           `json:"end_date,omitempty"`
	IsActive       bool             `json:"is_active"`
	RaisedTotal    decimal.Decimal  `json:"raised_total"`
	Status         string           `json:"status"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

type CreateCampaignResponse struct {
	Campaign CampaignDTO `json:"campaign"`
	Replayed bool        `json:"replayed"`
}

type GetCampaignResponse struct {
	Campaign CampaignDTO `json:"campaign"`
}

type ListCampaignsResponse struct {
	Items []CampaignDTO `json:"items"`
}

type ContributionDTO struct {
	ContributionID string          `json:"contribution_id"`
	OrganizationID string          `json:"organization_id"`
	CampaignID     string          `json:"campaign_id,omitempty"`
	DonorName      string          `json:"donor_name"`
	Message        string          `json:"message,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	OrderID        string          `json:"order_id"`
	CreatedAt      string          `json:"created_at"`
	PaidAt         string          `json:"paid_at,omitempty"`
}

type RecordContributionResponse struct {
	Contribution ContributionDTO `json:"contribution"`
	Replayed     bool            `json:"replayed"`
}

type ListContributionsResponse struct {
	Items []ContributionDTO `json:"items"`
}

type WebhookResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}
