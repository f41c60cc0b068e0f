package queries

import (
	"context"
	"log/slog"
	"strings"

	application "shepherd/contexts/giving/campaign-service/application"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

type ListCampaignsQuery struct {
	OrganizationID string
	// Status filters on the derived display status, so it is applied after
	// aggregation rather than pushed into the store.
	Status string
}

type ListCampaignsUseCase struct {
	Campaigns     ports.CampaignRepository
	Contributions ports.ContributionRepository
	Clock         ports.Clock
	Logger        *slog.Logger
}

func (uc ListCampaignsUseCase) Execute(ctx context.Context, query ListCampaignsQuery) ([]CampaignView, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(query.OrganizationID) == "" {
		return nil, domainerrors.ErrOrganizationRequired
	}

	campaigns, err := uc.Campaigns.ListCampaigns(ctx, ports.CampaignFilter{
		OrganizationID: strings.TrimSpace(query.OrganizationID),
	})
	if err != nil {
		return nil, err
	}

	now := uc.Clock.Now().UTC()
	statusFilter := entities.DisplayStatus(strings.TrimSpace(query.Status))

	views := make([]CampaignView, 0, len(campaigns))
	for _, campaign := range campaigns {
		raised, err := uc.Contributions.SumSucceeded(ctx, campaign.OrganizationID, campaign.CampaignID)
		if err != nil {
			return nil, err
		}
		view := CampaignView{
			Campaign: campaign,
			Raised:   raised,
			Status:   entities.StatusAt(campaign.IsActive, campaign.EndDate, now),
		}
		if statusFilter != "" && view.Status != statusFilter {
			continue
		}
		views = append(views, view)
	}

	logger.Info("campaigns listed",
		"event", "campaigns_listed",
		"module", "giving/campaign-service",
		"layer", "application",
		"organization_id", strings.TrimSpace(query.OrganizationID),
		"count", len(views),
	)
	return views, nil
}
