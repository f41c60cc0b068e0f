package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "shepherd/contexts/giving/campaign-service/application"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

type CreateCampaignCommand struct {
	OrganizationID string
	IdempotencyKey string
	Name           string
	Description    string
	GoalAmount     *decimal.Decimal
	NoGoal         bool
	StartDate      *time.Time
	EndDate        *time.Time
}

type CreateCampaignUseCase struct {
	Campaigns      ports.CampaignRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

type CreateCampaignResult struct {
	Campaign entities.Campaign
	Replayed bool
}

type createCampaignReplayPayload struct {
	CampaignID     string           `json:"campaign_id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	GoalAmount     *decimal.Decimal `json:"goal_amount"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (uc CreateCampaignUseCase) Execute(ctx context.Context, cmd CreateCampaignCommand) (CreateCampaignResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.OrganizationID) == "" {
		return CreateCampaignResult{}, domainerrors.ErrOrganizationRequired
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CreateCampaignResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.Clock.Now().UTC()
	requestHash := hashCreateCampaignCommand(cmd)
	if record, found, err := uc.Idempotency.GetRecord(ctx, cmd.IdempotencyKey, now); err != nil {
		return CreateCampaignResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return CreateCampaignResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		var payload createCampaignReplayPayload
		if err := json.Unmarshal(record.ResponsePayload, &payload); err != nil {
			return CreateCampaignResult{}, err
		}
		return CreateCampaignResult{
			Campaign: entities.Campaign{
				CampaignID:     payload.CampaignID,
				OrganizationID: payload.OrganizationID,
				Name:           payload.Name,
				Description:    payload.Description,
				GoalAmount:     payload.GoalAmount,
				StartDate:      payload.StartDate,
				EndDate:        payload.EndDate,
				IsActive:       payload.IsActive,
				CreatedAt:      payload.CreatedAt,
				UpdatedAt:      payload.UpdatedAt,
			},
			Replayed: true,
		}, nil
	}

	// A brand new campaign has no contributions, so it validates against a
	// zero raised total and nothing is locked.
	violations := entities.ValidateCampaignInput(entities.CampaignInput{
		Name:        cmd.Name,
		Description: cmd.Description,
		GoalAmount:  cmd.GoalAmount,
		NoGoal:      cmd.NoGoal,
		StartDate:   cmd.StartDate,
		EndDate:     cmd.EndDate,
	}, entities.CampaignRules{
		Raised:       decimal.Zero,
		Locked:       false,
		Today:        now,
		StartChanged: true,
		EndChanged:   cmd.EndDate != nil,
	})
	if violations.Any() {
		return CreateCampaignResult{}, violations
	}

	campaignID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return CreateCampaignResult{}, err
	}

	campaign := entities.Campaign{
		CampaignID:     campaignID,
		OrganizationID: strings.TrimSpace(cmd.OrganizationID),
		Name:           strings.TrimSpace(cmd.Name),
		Description:    strings.TrimSpace(cmd.Description),
		GoalAmount:     cmd.GoalAmount,
		StartDate:      entities.DateOnly(*cmd.StartDate),
		EndDate:        normalizeDate(cmd.EndDate),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.Campaigns.CreateCampaign(ctx, campaign); err != nil {
		return CreateCampaignResult{}, err
	}

	serialized, err := json.Marshal(createCampaignReplayPayload{
		CampaignID:     campaign.CampaignID,
		OrganizationID: campaign.OrganizationID,
		Name:           campaign.Name,
		Description:    campaign.Description,
		GoalAmount:     campaign.GoalAmount,
		StartDate:      campaign.StartDate,
		EndDate:        campaign.EndDate,
		IsActive:       campaign.IsActive,
		CreatedAt:      campaign.CreatedAt,
		UpdatedAt:      campaign.UpdatedAt,
	})
	if err != nil {
		return CreateCampaignResult{}, err
	}
	if err := uc.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             cmd.IdempotencyKey,
		RequestHash:     requestHash,
		ResponsePayload: serialized,
		ExpiresAt:       now.Add(uc.IdempotencyTTL),
	}); err != nil {
		return CreateCampaignResult{}, err
	}

	if uc.Outbox != nil {
		eventID, err := uc.IDGenerator.NewID(ctx)
		if err != nil {
			return CreateCampaignResult{}, err
		}
		envelope, err := newGivingEnvelope(
			eventID,
			"campaign.created",
			campaign.CampaignID,
			now,
			map[string]any{
				"campaign_id":     campaign.CampaignID,
				"organization_id": campaign.OrganizationID,
				"name":            campaign.Name,
			},
		)
		if err != nil {
			return CreateCampaignResult{}, err
		}
		if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
			return CreateCampaignResult{}, err
		}
	}

	logger.Info("campaign created",
		"event", "campaign_created",
		"module", "giving/campaign-service",
		"layer", "application",
		"campaign_id", campaign.CampaignID,
		"organization_id", campaign.OrganizationID,
	)
	return CreateCampaignResult{Campaign: campaign}, nil
}

func hashCreateCampaignCommand(cmd CreateCampaignCommand) string {
	payload := map[string]any{
		"organization_id": strings.TrimSpace(cmd.OrganizationID),
		"name":            strings.TrimSpace(cmd.Name),
		"description":     strings.TrimSpace(cmd.Description),
		"no_goal":         cmd.NoGoal,
	}
	if cmd.GoalAmount != nil {
		payload["goal_amount"] = cmd.GoalAmount.String()
	}
	if cmd.StartDate != nil {
		payload["start_date"] = entities.FormatDate(*cmd.StartDate)
	}
	if cmd.EndDate != nil {
		payload["end_date"] = entities.FormatDate(*cmd.EndDate)
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func normalizeDate(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	date := entities.DateOnly(*value)
	return &date
}
