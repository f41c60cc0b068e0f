package queries

import (
	"context"
	"log/slog"
	"strings"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

type ListContributionsUseCase struct {
	Campaigns     ports.CampaignRepository
	Contributions ports.ContributionRepository
	Logger        *slog.Logger
}

func (uc ListContributionsUseCase) Execute(ctx context.Context, organizationID string, campaignID string) ([]entities.Contribution, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domainerrors.ErrOrganizationRequired
	}
	if _, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(organizationID), strings.TrimSpace(campaignID)); err != nil {
		return nil, err
	}
	return uc.Contributions.ListContributionsByCampaign(ctx, strings.TrimSpace(organizationID), strings.TrimSpace(campaignID))
}
