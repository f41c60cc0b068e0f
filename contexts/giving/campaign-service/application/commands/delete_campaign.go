package commands

import (
	"context"
	"log/slog"
	"strings"

	application "shepherd/contexts/giving/campaign-service/application"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

type DeleteCampaignCommand struct {
	OrganizationID string
	CampaignID     string
}

// DeleteCampaignUseCase hard-deletes a campaign that never received money.
// The raised-total guard runs inside the repository so the check and the
// delete share one transaction.
type DeleteCampaignUseCase struct {
	Campaigns ports.CampaignRepository
	Logger    *slog.Logger
}

func (uc DeleteCampaignUseCase) Execute(ctx context.Context, cmd DeleteCampaignCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.OrganizationID) == "" {
		return domainerrors.ErrOrganizationRequired
	}

	if err := uc.Campaigns.DeleteCampaign(ctx, strings.TrimSpace(cmd.OrganizationID), strings.TrimSpace(cmd.CampaignID)); err != nil {
		return err
	}

	logger.Info("campaign deleted",
		"event", "campaign_deleted",
		"module", "giving/campaign-service",
		"layer", "application",
		"campaign_id", strings.TrimSpace(cmd.CampaignID),
		"organization_id", strings.TrimSpace(cmd.OrganizationID),
	)
	return nil
}
