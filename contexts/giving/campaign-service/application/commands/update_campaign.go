package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "shepherd/contexts/giving/campaign-service/application"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

// UpdateCampaignCommand carries the full proposed field set, the way the
// edit form submits it. Once a campaign is funded, the submitted name and
// start date are silently retained from storage rather than rejected.
type UpdateCampaignCommand struct {
	OrganizationID string
	CampaignID     string
	Name           string
	Description    string
	GoalAmount     *decimal.Decimal
	NoGoal         bool
	StartDate      *time.Time
	EndDate        *time.Time
}

type UpdateCampaignUseCase struct {
	Campaigns     ports.CampaignRepository
	Contributions ports.ContributionRepository
	Clock         ports.Clock
	Logger        *slog.Logger
}

func (uc UpdateCampaignUseCase) Execute(ctx context.Context, cmd UpdateCampaignCommand) (entities.Campaign, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.OrganizationID) == "" {
		return entities.Campaign{}, domainerrors.ErrOrganizationRequired
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(cmd.OrganizationID), strings.TrimSpace(cmd.CampaignID))
	if err != nil {
		return entities.Campaign{}, err
	}

	raised, err := uc.Contributions.SumSucceeded(ctx, campaign.OrganizationID, campaign.CampaignID)
	if err != nil {
		return entities.Campaign{}, err
	}
	locked := entities.Funded(raised)

	now := uc.Clock.Now().UTC()

	input := entities.CampaignInput{
		Name:        cmd.Name,
		Description: cmd.Description,
		GoalAmount:  cmd.GoalAmount,
		NoGoal:      cmd.NoGoal,
		StartDate:   cmd.StartDate,
		EndDate:     cmd.EndDate,
	}
	if locked {
		// Frozen fields: validate and persist the stored values, not the
		// submitted ones.
		input.Name = campaign.Name
		start := campaign.StartDate
		input.StartDate = &start
	} else if cmd.StartDate == nil {
		// An omitted start date carries the stored one over.
		start := campaign.StartDate
		input.StartDate = &start
	}

	violations := entities.ValidateCampaignInput(input, entities.CampaignRules{
		Raised:       raised,
		Locked:       locked,
		Today:        now,
		StartChanged: startDateChanged(campaign.StartDate, cmd.StartDate),
		EndChanged:   endDateChanged(campaign.EndDate, cmd.EndDate),
	})
	if violations.Any() {
		return entities.Campaign{}, violations
	}

	campaign.Name = strings.TrimSpace(input.Name)
	campaign.Description = strings.TrimSpace(cmd.Description)
	campaign.GoalAmount = cmd.GoalAmount
	if cmd.NoGoal {
		campaign.GoalAmount = nil
	}
	if !locked && cmd.StartDate != nil {
		campaign.StartDate = entities.DateOnly(*cmd.StartDate)
	}
	campaign.EndDate = normalizeDate(cmd.EndDate)
	campaign.UpdatedAt = now

	if err := uc.Campaigns.UpdateCampaign(ctx, campaign); err != nil {
		return entities.Campaign{}, err
	}

	logger.Info("campaign updated",
		"event", "campaign_updated",
		"module", "giving/campaign-service",
		"layer", "application",
		"campaign_id", campaign.CampaignID,
		"organization_id", campaign.OrganizationID,
		"locked_fields", locked,
	)
	return campaign, nil
}

func startDateChanged(current time.Time, proposed *time.Time) bool {
	if proposed == nil {
		return false
	}
	return !entities.DateOnly(current).Equal(entities.DateOnly(*proposed))
}

func endDateChanged(current *time.Time, proposed *time.Time) bool {
	if proposed == nil {
		return false
	}
	if current == nil {
		return true
	}
	return !entities.DateOnly(*current).Equal(entities.DateOnly(*proposed))
}
