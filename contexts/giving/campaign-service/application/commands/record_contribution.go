package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "shepherd/contexts/giving/campaign-service/application"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

type RecordContributionCommand struct {
	OrganizationID string
	IdempotencyKey string
	CampaignID     string
	DonorName      string
	Message        string
	Amount         decimal.Decimal
}

// RecordContributionUseCase creates a pending contribution and hands back
// the order id the payment processor will echo in its webhook.
type RecordContributionUseCase struct {
	Contributions  ports.ContributionRepository
	Campaigns      ports.CampaignRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

type RecordContributionResult struct {
	Contribution entities.Contribution
	Replayed     bool
}

type recordContributionReplayPayload struct {
	ContributionID string          `json:"contribution_id"`
	OrganizationID string          `json:"organization_id"`
	CampaignID     string          `json:"campaign_id"`
	DonorName      string          `json:"donor_name"`
	Message        string          `json:"message"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	OrderID        string          `json:"order_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (uc RecordContributionUseCase) Execute(ctx context.Context, cmd RecordContributionCommand) (RecordContributionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.OrganizationID) == "" {
		return RecordContributionResult{}, domainerrors.ErrOrganizationRequired
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return RecordContributionResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.Clock.Now().UTC()
	requestHash := hashRecordContributionCommand(cmd)
	if record, found, err := uc.Idempotency.GetRecord(ctx, cmd.IdempotencyKey, now); err != nil {
		return RecordContributionResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return RecordContributionResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		var payload recordContributionReplayPayload
		if err := json.Unmarshal(record.ResponsePayload, &payload); err != nil {
			return RecordContributionResult{}, err
		}
		return RecordContributionResult{
			Contribution: entities.Contribution{
				ContributionID: payload.ContributionID,
				OrganizationID: payload.OrganizationID,
				CampaignID:     payload.CampaignID,
				DonorName:      payload.DonorName,
				Message:        payload.Message,
				Amount:         payload.Amount,
				Status:         entities.ContributionStatus(payload.Status),
				OrderID:        payload.OrderID,
				CreatedAt:      payload.CreatedAt,
			},
			Replayed: true,
		}, nil
	}

	violations := entities.ValidateContributionAmount(cmd.Amount)
	if strings.TrimSpace(cmd.DonorName) == "" {
		violations["donor_name"] = entities.CodeRequired
	}
	if violations.Any() {
		return RecordContributionResult{}, violations
	}

	campaignID := strings.TrimSpace(cmd.CampaignID)
	if campaignID != "" {
		if _, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(cmd.OrganizationID), campaignID); err != nil {
			return RecordContributionResult{}, err
		}
	}

	contributionID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return RecordContributionResult{}, err
	}

	contribution := entities.Contribution{
		ContributionID: contributionID,
		OrganizationID: strings.TrimSpace(cmd.OrganizationID),
		CampaignID:     campaignID,
		DonorName:      strings.TrimSpace(cmd.DonorName),
		Message:        strings.TrimSpace(cmd.Message),
		Amount:         cmd.Amount,
		Status:         entities.ContributionStatusPending,
		OrderID:        fmt.Sprintf("GIVE-%d", now.UnixNano()),
		CreatedAt:      now,
	}
	if err := uc.Contributions.CreateContribution(ctx, contribution); err != nil {
		return RecordContributionResult{}, err
	}

	serialized, err := json.Marshal(recordContributionReplayPayload{
		ContributionID: contribution.ContributionID,
		OrganizationID: contribution.OrganizationID,
		CampaignID:     contribution.CampaignID,
		DonorName:      contribution.DonorName,
		Message:        contribution.Message,
		Amount:         contribution.Amount,
		Status:         string(contribution.Status),
		OrderID:        contribution.OrderID,
		CreatedAt:      contribution.CreatedAt,
	})
	if err != nil {
		return RecordContributionResult{}, err
	}
	if err := uc.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             cmd.IdempotencyKey,
		RequestHash:     requestHash,
		ResponsePayload: serialized,
		ExpiresAt:       now.Add(uc.IdempotencyTTL),
	}); err != nil {
		return RecordContributionResult{}, err
	}

	logger.Info("contribution recorded",
		"event", "contribution_recorded",
		"module", "giving/campaign-service",
		"layer", "application",
		"contribution_id", contribution.ContributionID,
		"organization_id", contribution.OrganizationID,
		"campaign_id", contribution.CampaignID,
		"order_id", contribution.OrderID,
	)
	return RecordContributionResult{Contribution: contribution}, nil
}

func hashRecordContributionCommand(cmd RecordContributionCommand) string {
	payload := map[string]any{
		"organization_id": strings.TrimSpace(cmd.OrganizationID),
		"campaign_id":     strings.TrimSpace(cmd.CampaignID),
		"donor_name":      strings.TrimSpace(cmd.DonorName),
		"message":         strings.TrimSpace(cmd.Message),
		"amount":          cmd.Amount.String(),
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
