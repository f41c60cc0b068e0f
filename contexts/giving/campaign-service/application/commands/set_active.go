package commands

import (
	"context"
	"log/slog"
	"strings"

	application "shepherd/contexts/giving/campaign-service/application"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

type SetActiveCommand struct {
	OrganizationID string
	CampaignID     string
	ActorID        string
	Active         bool
	Reason         string
}

// SetActiveUseCase flips the stored active flag. Always permitted after the
// existence check, regardless of how much has been raised; deactivation is
// the lifecycle exit for funded campaigns.
type SetActiveUseCase struct {
	Campaigns   ports.CampaignRepository
	Activations ports.ActivationLogRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc SetActiveUseCase) Execute(ctx context.Context, cmd SetActiveCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.OrganizationID) == "" {
		return domainerrors.ErrOrganizationRequired
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(cmd.OrganizationID), strings.TrimSpace(cmd.CampaignID))
	if err != nil {
		return err
	}
	if campaign.IsActive == cmd.Active {
		return nil
	}

	now := uc.Clock.Now().UTC()
	from := campaign.IsActive
	campaign.IsActive = cmd.Active
	campaign.UpdatedAt = now
	if err := uc.Campaigns.UpdateCampaign(ctx, campaign); err != nil {
		return err
	}

	logID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return err
	}
	if err := uc.Activations.AppendActivation(ctx, entities.ActivationLog{
		LogID:          logID,
		OrganizationID: campaign.OrganizationID,
		CampaignID:     campaign.CampaignID,
		FromActive:     from,
		ToActive:       cmd.Active,
		ChangedBy:      strings.TrimSpace(cmd.ActorID),
		Reason:         strings.TrimSpace(cmd.Reason),
		CreatedAt:      now,
	}); err != nil {
		return err
	}

	if uc.Outbox != nil {
		eventType := "campaign.deactivated"
		if cmd.Active {
			eventType = "campaign.activated"
		}
		eventID, err := uc.IDGenerator.NewID(ctx)
		if err != nil {
			return err
		}
		envelope, err := newGivingEnvelope(
			eventID,
			eventType,
			campaign.CampaignID,
			now,
			map[string]any{
				"campaign_id":     campaign.CampaignID,
				"organization_id": campaign.OrganizationID,
				"is_active":       campaign.IsActive,
			},
		)
		if err != nil {
			return err
		}
		if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
			return err
		}
	}

	logger.Info("campaign activation changed",
		"event", "campaign_activation_changed",
		"module", "giving/campaign-service",
		"layer", "application",
		"campaign_id", campaign.CampaignID,
		"organization_id", campaign.OrganizationID,
		"from_active", from,
		"to_active", cmd.Active,
	)
	return nil
}
