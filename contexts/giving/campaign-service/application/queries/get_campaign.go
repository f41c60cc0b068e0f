package queries

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

// CampaignView is a campaign plus its two derived read-model fields: the
// raised total aggregated from succeeded contributions and the display
// status computed against today's date.
type CampaignView struct {
	Campaign entities.Campaign
	Raised   decimal.Decimal
	Status   entities.DisplayStatus
}

type GetCampaignUseCase struct {
	Campaigns     ports.CampaignRepository
	Contributions ports.ContributionRepository
	Clock         ports.Clock
	Logger        *slog.Logger
}

func (uc GetCampaignUseCase) Execute(ctx context.Context, organizationID string, campaignID string) (CampaignView, error) {
	if strings.TrimSpace(organizationID) == "" {
		return CampaignView{}, domainerrors.ErrOrganizationRequired
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(organizationID), strings.TrimSpace(campaignID))
	if err != nil {
		return CampaignView{}, err
	}
	raised, err := uc.Contributions.SumSucceeded(ctx, campaign.OrganizationID, campaign.CampaignID)
	if err != nil {
		return CampaignView{}, err
	}
	return CampaignView{
		Campaign: campaign,
		Raised:   raised,
		Status:   entities.StatusAt(campaign.IsActive, campaign.EndDate, uc.Clock.Now().UTC()),
	}, nil
}
