package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"shepherd/contexts/giving/campaign-service/application/commands"
	"shepherd/contexts/giving/campaign-service/application/queries"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	httptransport "shepherd/contexts/giving/campaign-service/transport/http"
)

var validate = validator.New()

type Handler struct {
	CreateCampaign     commands.CreateCampaignUseCase
	UpdateCampaign     commands.UpdateCampaignUseCase
	SetActive          commands.SetActiveUseCase
	DeleteCampaign     commands.DeleteCampaignUseCase
	RecordContribution commands.RecordContributionUseCase
	ApplyPaymentStatus commands.ApplyPaymentStatusUseCase
	ListCampaigns      queries.ListCampaignsUseCase
	GetCampaign        queries.GetCampaignUseCase
	ListContributions  queries.ListContributionsUseCase
	Logger             *slog.Logger
}

func (h Handler) CreateCampaignHandler(
	ctx context.Context,
	organizationID string,
	idempotencyKey string,
	req httptransport.CampaignPayload,
) (httptransport.CreateCampaignResponse, error) {
	if violations := checkPayloadShape(req); violations.Any() {
		return httptransport.CreateCampaignResponse{}, violations
	}
	result, err := h.CreateCampaign.Execute(ctx, commands.CreateCampaignCommand{
		OrganizationID: organizationID,
		IdempotencyKey: idempotencyKey,
		Name:           req.Name,
		Description:    req.Description,
		GoalAmount:     req.GoalAmount,
		NoGoal:         req.NoGoal,
		StartDate:      parseDate(req.StartDate),
		EndDate:        parseDate(req.EndDate),
	})
	if err != nil {
		return httptransport.CreateCampaignResponse{}, err
	}

	view, err := h.GetCampaign.Execute(ctx, organizationID, result.Campaign.CampaignID)
	if err != nil {
		return httptransport.CreateCampaignResponse{}, err
	}
	return httptransport.CreateCampaignResponse{
		Campaign: mapCampaignView(view),
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) ListCampaignsHandler(ctx context.Context, organizationID string, status string) (httptransport.ListCampaignsResponse, error) {
	items, err := h.ListCampaigns.Execute(ctx, queries.ListCampaignsQuery{
		OrganizationID: organizationID,
		Status:         status,
	})
	if err != nil {
		return httptransport.ListCampaignsResponse{}, err
	}
	result := make([]httptransport.CampaignDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapCampaignView(item))
	}
	return httptransport.ListCampaignsResponse{Items: result}, nil
}

func (h Handler) GetCampaignHandler(ctx context.Context, organizationID string, campaignID string) (httptransport.GetCampaignResponse, error) {
	view, err := h.GetCampaign.Execute(ctx, organizationID, campaignID)
	if err != nil {
		return httptransport.GetCampaignResponse{}, err
	}
	return httptransport.GetCampaignResponse{Campaign: mapCampaignView(view)}, nil
}

func (h Handler) UpdateCampaignHandler(
	ctx context.Context,
	organizationID string,
	campaignID string,
	req httptransport.CampaignPayload,
) (httptransport.GetCampaignResponse, error) {
	if violations := checkPayloadShape(req); violations.Any() {
		return httptransport.GetCampaignResponse{}, violations
	}
	if _, err := h.UpdateCampaign.Execute(ctx, commands.UpdateCampaignCommand{
		OrganizationID: organizationID,
		CampaignID:     campaignID,
		Name:           req.Name,
		Description:    req.Description,
		GoalAmount:     req.GoalAmount,
		NoGoal:         req.NoGoal,
		StartDate:      parseDate(req.StartDate),
		EndDate:        parseDate(req.EndDate),
	}); err != nil {
		return httptransport.GetCampaignResponse{}, err
	}

	view, err := h.GetCampaign.Execute(ctx, organizationID, campaignID)
	if err != nil {
		return httptransport.GetCampaignResponse{}, err
	}
	return httptransport.GetCampaignResponse{Campaign: mapCampaignView(view)}, nil
}

func (h Handler) ActivateCampaignHandler(ctx context.Context, organizationID string, actorID string, campaignID string, reason string) error {
	return h.SetActive.Execute(ctx, commands.SetActiveCommand{
		OrganizationID: organizationID,
		CampaignID:     campaignID,
		ActorID:        actorID,
		Active:         true,
		Reason:         reason,
	})
}

func (h Handler) DeactivateCampaignHandler(ctx context.Context, organizationID string, actorID string, campaignID string, reason string) error {
	return h.SetActive.Execute(ctx, commands.SetActiveCommand{
		OrganizationID: organizationID,
		CampaignID:     campaignID,
		ActorID:        actorID,
		Active:         false,
		Reason:         reason,
	})
}

func (h Handler) DeleteCampaignHandler(ctx context.Context, organizationID string, campaignID string) error {
	return h.DeleteCampaign.Execute(ctx, commands.DeleteCampaignCommand{
		OrganizationID: organizationID,
		CampaignID:     campaignID,
	})
}

func (h Handler) RecordContributionHandler(
	ctx context.Context,
	organizationID string,
	idempotencyKey string,
	req httptransport.ContributionRequest,
) (httptransport.RecordContributionResponse, error) {
	result, err := h.RecordContribution.Execute(ctx, commands.RecordContributionCommand{
		OrganizationID: organizationID,
		IdempotencyKey: idempotencyKey,
		CampaignID:     req.CampaignID,
		DonorName:      req.DonorName,
		Message:        req.Message,
		Amount:         req.Amount,
	})
	if err != nil {
		return httptransport.RecordContributionResponse{}, err
	}
	return httptransport.RecordContributionResponse{
		Contribution: mapContribution(result.Contribution),
		Replayed:     result.Replayed,
	}, nil
}

func (h Handler) ListContributionsHandler(ctx context.Context, organizationID string, campaignID string) (httptransport.ListContributionsResponse, error) {
	items, err := h.ListContributions.Execute(ctx, organizationID, campaignID)
	if err != nil {
		return httptransport.ListContributionsResponse{}, err
	}
	result := make([]httptransport.ContributionDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapContribution(item))
	}
	return httptransport.ListContributionsResponse{Items: result}, nil
}

func (h Handler) PaymentWebhookHandler(ctx context.Context, req httptransport.WebhookRequest) (httptransport.WebhookResponse, error) {
	result, err := h.ApplyPaymentStatus.Execute(ctx, commands.ApplyPaymentStatusCommand{
		OrderID:         req.OrderID,
		ProcessorStatus: req.TransactionStatus,
	})
	if err != nil {
		return httptransport.WebhookResponse{}, err
	}
	return httptransport.WebhookResponse{
		OrderID: result.Contribution.OrderID,
		Status:  string(result.Contribution.Status),
		Changed: result.Changed,
	}, nil
}

// checkPayloadShape runs the transport-level format tags. Rule violations on
// the same fields are reported by the domain validator under different codes;
// a field that does not even parse never reaches it.
func checkPayloadShape(req httptransport.CampaignPayload) domainerrors.FieldErrors {
	violations := domainerrors.FieldErrors{}
	err := validate.Struct(req)
	if err == nil {
		return violations
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		violations["payload"] = "invalid"
		return violations
	}
	for _, item := range fieldErrs {
		violations[jsonFieldName(item.StructField())] = "invalid_date"
	}
	return violations
}

func jsonFieldName(structField string) string {
	switch structField {
	case "StartDate":
		return "start_date"
	case "EndDate":
		return "end_date"
	default:
		return strings.ToLower(structField)
	}
}

func parseDate(raw string) *time.Time {
	parsed, ok := entities.ParseDate(raw)
	if !ok {
		return nil
	}
	return &parsed
}

func mapCampaignView(view queries.CampaignView) httptransport.CampaignDTO {
	item := view.Campaign
	result := httptransport.CampaignDTO{
		CampaignID:     item.CampaignID,
		OrganizationID: item.OrganizationID,
		Name:           item.Name,
		Description:    item.Description,
		GoalAmount:     item.GoalAmount,
		NoGoal:         item.GoalAmount == nil,
		StartDate:      entities.FormatDate(item.StartDate),
		IsActive:       item.IsActive,
		RaisedTotal:    view.Raised,
		Status:         string(view.Status),
		CreatedAt:      item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      item.UpdatedAt.Format(time.RFC3339),
	}
	if item.EndDate != nil {
		result.EndDate = entities.FormatDate(*item.EndDate)
	}
	return result
}

func mapContribution(item entities.Contribution) httptransport.ContributionDTO {
	result := httptransport.ContributionDTO{
		ContributionID: item.ContributionID,
		OrganizationID: item.OrganizationID,
		CampaignID:     item.CampaignID,
		DonorName:      item.DonorName,
		Message:        item.Message,
		Amount:         item.Amount,
		Status:         string(item.Status),
		OrderID:        item.OrderID,
		CreatedAt:      item.CreatedAt.Format(time.RFC3339),
	}
	if item.PaidAt != nil {
		result.PaidAt = item.PaidAt.UTC().Format(time.RFC3339)
	}
	return result
}
