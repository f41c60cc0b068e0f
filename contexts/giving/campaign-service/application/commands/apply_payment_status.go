package commands

import (
	"context"
	"log/slog"
	"strings"

	application "shepherd/contexts/giving/campaign-service/application"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	"shepherd/contexts/giving/campaign-service/ports"
)

type ApplyPaymentStatusCommand struct {
	OrderID         string
	ProcessorStatus string
}

// ApplyPaymentStatusUseCase reconciles a payment-processor callback with the
// stored contribution. The campaign row is untouched: raised totals pick the
// new status up on the next read.
type ApplyPaymentStatusUseCase struct {
	Contributions ports.ContributionRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Logger        *slog.Logger
}

type ApplyPaymentStatusResult struct {
	Contribution entities.Contribution
	Changed      bool
}

func (uc ApplyPaymentStatusUseCase) Execute(ctx context.Context, cmd ApplyPaymentStatusCommand) (ApplyPaymentStatusResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	contribution, err := uc.Contributions.GetContributionByOrderID(ctx, strings.TrimSpace(cmd.OrderID))
	if err != nil {
		return ApplyPaymentStatusResult{}, err
	}

	next := entities.StatusFromProcessor(cmd.ProcessorStatus)
	if next == contribution.Status {
		return ApplyPaymentStatusResult{Contribution: contribution}, nil
	}

	now := uc.Clock.Now().UTC()
	from := contribution.Status
	contribution.Status = next
	if next == entities.ContributionStatusSucceeded {
		contribution.PaidAt = &now
	}
	if err := uc.Contributions.UpdateContribution(ctx, contribution); err != nil {
		return ApplyPaymentStatusResult{}, err
	}

	if uc.Outbox != nil && next == entities.ContributionStatusSucceeded {
		eventID, err := uc.IDGenerator.NewID(ctx)
		if err != nil {
			return ApplyPaymentStatusResult{}, err
		}
		envelope, err := newGivingEnvelope(
			eventID,
			"contribution.succeeded",
			contribution.CampaignID,
			now,
			map[string]any{
				"contribution_id": contribution.ContributionID,
				"organization_id": contribution.OrganizationID,
				"campaign_id":     contribution.CampaignID,
				"amount":          contribution.Amount.String(),
				"order_id":        contribution.OrderID,
			},
		)
		if err != nil {
			return ApplyPaymentStatusResult{}, err
		}
		if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
			return ApplyPaymentStatusResult{}, err
		}
	}

	logger.Info("contribution payment status applied",
		"event", "contribution_status_applied",
		"module", "giving/campaign-service",
		"layer", "application",
		"contribution_id", contribution.ContributionID,
		"order_id", contribution.OrderID,
		"from_status", string(from),
		"to_status", string(next),
	)
	return ApplyPaymentStatusResult{Contribution: contribution, Changed: true}, nil
}
