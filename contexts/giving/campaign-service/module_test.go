package campaignservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	httptransport "shepherd/contexts/giving/campaign-service/transport/http"
)

func newTestModule() Module {
	return NewInMemoryModule(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testDates() (string, string) {
	today := time.Now().UTC()
	return entities.FormatDate(today), entities.FormatDate(today.AddDate(0, 1, 0))
}

func goalPtr(value int64) *decimal.Decimal {
	goal := decimal.NewFromInt(value)
	return &goal
}

func createRoofFund(t *testing.T, module Module) httptransport.CampaignDTO {
	t.Helper()
	start, end := testDates()
	resp, err := module.Handler.CreateCampaignHandler(context.Background(), "org-1", "create-key-1", httptransport.CampaignPayload{
		Name:       "Roof Fund",
		GoalAmount: goalPtr(10000),
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return resp.Campaign
}

func contributeAndSettle(t *testing.T, module Module, campaignID string, key string, amount string) {
	t.Helper()
	resp, err := module.Handler.RecordContributionHandler(context.Background(), "org-1", key, httptransport.ContributionRequest{
		CampaignID: campaignID,
		DonorName:  "Dorcas",
		Amount:     decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("record contribution: %v", err)
	}
	if resp.Contribution.Status != string(entities.ContributionStatusPending) {
		t.Fatalf("expected pending, got %s", resp.Contribution.Status)
	}

	webhook, err := module.Handler.PaymentWebhookHandler(context.Background(), httptransport.WebhookRequest{
		OrderID:           resp.Contribution.OrderID,
		TransactionStatus: "settlement",
	})
	if err != nil {
		t.Fatalf("payment webhook: %v", err)
	}
	if webhook.Status != string(entities.ContributionStatusSucceeded) || !webhook.Changed {
		t.Fatalf("expected succeeded transition, got %+v", webhook)
	}
}

func TestCampaignLifecycleWithContributions(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)

	if campaign.Status != string(entities.DisplayStatusActive) {
		t.Fatalf("new campaign should be active, got %s", campaign.Status)
	}
	if !campaign.RaisedTotal.IsZero() {
		t.Fatalf("new campaign should have zero raised, got %s", campaign.RaisedTotal)
	}

	contributeAndSettle(t, module, campaign.CampaignID, "gift-1", "100")
	contributeAndSettle(t, module, campaign.CampaignID, "gift-2", "25")

	got, err := module.Handler.GetCampaignHandler(context.Background(), "org-1", campaign.CampaignID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if !got.Campaign.RaisedTotal.Equal(decimal.NewFromInt(125)) {
		t.Fatalf("expected raised 125, got %s", got.Campaign.RaisedTotal)
	}
}

func TestFundedCampaignRetainsFrozenFields(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)
	contributeAndSettle(t, module, campaign.CampaignID, "gift-1", "100")

	_, end := testDates()
	differentStart := entities.FormatDate(time.Now().UTC().AddDate(0, 0, 7))

	updated, err := module.Handler.UpdateCampaignHandler(context.Background(), "org-1", campaign.CampaignID, httptransport.CampaignPayload{
		Name:        "Renamed Fund",
		Description: "new roof for the fellowship hall",
		GoalAmount:  goalPtr(20000),
		StartDate:   differentStart,
		EndDate:     end,
	})
	if err != nil {
		t.Fatalf("update funded campaign: %v", err)
	}
	if updated.Campaign.Name != "Roof Fund" {
		t.Fatalf("funded campaign name must be retained, got %s", updated.Campaign.Name)
	}
	if updated.Campaign.StartDate != campaign.StartDate {
		t.Fatalf("funded campaign start date must be retained, got %s", updated.Campaign.StartDate)
	}
	if updated.Campaign.Description != "new roof for the fellowship hall" {
		t.Fatalf("description must still be editable, got %s", updated.Campaign.Description)
	}
	if updated.Campaign.GoalAmount == nil || !updated.Campaign.GoalAmount.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("goal raise must apply, got %v", updated.Campaign.GoalAmount)
	}
}

func TestUnfundedCampaignStaysEditableAfterStartPasses(t *testing.T) {
	pastStart := entities.DateOnly(time.Now().UTC().AddDate(0, 0, -10))
	module := NewInMemoryModule([]entities.Campaign{{
		CampaignID:     "camp-1",
		OrganizationID: "org-1",
		Name:           "Spring Gala",
		StartDate:      pastStart,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, end := testDates()

	// Resubmitting the stored start unchanged must not trip the past check;
	// extending the end date is the remediation for an expired campaign.
	updated, err := module.Handler.UpdateCampaignHandler(context.Background(), "org-1", "camp-1", httptransport.CampaignPayload{
		Name:        "Spring Gala",
		Description: "extended through the season",
		NoGoal:      true,
		StartDate:   entities.FormatDate(pastStart),
		EndDate:     end,
	})
	if err != nil {
		t.Fatalf("update with unchanged past start: %v", err)
	}
	if updated.Campaign.StartDate != entities.FormatDate(pastStart) {
		t.Fatalf("start date must be retained, got %s", updated.Campaign.StartDate)
	}
	if updated.Campaign.EndDate != end {
		t.Fatalf("end date extension must apply, got %s", updated.Campaign.EndDate)
	}
	if updated.Campaign.Description != "extended through the season" {
		t.Fatalf("description edit must apply, got %s", updated.Campaign.Description)
	}

	// An omitted start date carries the stored one over.
	updated, err = module.Handler.UpdateCampaignHandler(context.Background(), "org-1", "camp-1", httptransport.CampaignPayload{
		Name:    "Spring Gala",
		NoGoal:  true,
		EndDate: end,
	})
	if err != nil {
		t.Fatalf("update with omitted start: %v", err)
	}
	if updated.Campaign.StartDate != entities.FormatDate(pastStart) {
		t.Fatalf("omitted start must keep the stored date, got %s", updated.Campaign.StartDate)
	}

	// Moving the start to a different past date is still rejected.
	earlier := entities.FormatDate(pastStart.AddDate(0, 0, -5))
	_, err = module.Handler.UpdateCampaignHandler(context.Background(), "org-1", "camp-1", httptransport.CampaignPayload{
		Name:      "Spring Gala",
		NoGoal:    true,
		StartDate: earlier,
		EndDate:   end,
	})
	var fieldErrs domainerrors.FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if fieldErrs["start_date"] != entities.CodeStartInPast {
		t.Fatalf("expected %q, got %q", entities.CodeStartInPast, fieldErrs["start_date"])
	}
}

func TestGoalCannotDropBelowRaised(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)
	contributeAndSettle(t, module, campaign.CampaignID, "gift-1", "100")

	_, end := testDates()
	_, err := module.Handler.UpdateCampaignHandler(context.Background(), "org-1", campaign.CampaignID, httptransport.CampaignPayload{
		Name:       "Roof Fund",
		GoalAmount: goalPtr(50),
		EndDate:    end,
	})
	var fieldErrs domainerrors.FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if fieldErrs["goal_amount"] != entities.CodeGoalBelowRaised {
		t.Fatalf("expected %q, got %q", entities.CodeGoalBelowRaised, fieldErrs["goal_amount"])
	}
}

func TestDeleteRefusedForFundedCampaign(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)
	contributeAndSettle(t, module, campaign.CampaignID, "gift-1", "100")

	err := module.Handler.DeleteCampaignHandler(context.Background(), "org-1", campaign.CampaignID)
	if !errors.Is(err, domainerrors.ErrCampaignHasContributions) {
		t.Fatalf("expected ErrCampaignHasContributions, got %v", err)
	}

	// Deactivation is the lifecycle exit for funded campaigns.
	if err := module.Handler.DeactivateCampaignHandler(context.Background(), "org-1", "user-1", campaign.CampaignID, "season over"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := module.Handler.GetCampaignHandler(context.Background(), "org-1", campaign.CampaignID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Campaign.Status != string(entities.DisplayStatusInactive) {
		t.Fatalf("expected inactive, got %s", got.Campaign.Status)
	}

	logs := module.Store.Activations()
	if len(logs) != 1 || logs[0].ToActive {
		t.Fatalf("expected one deactivation log entry, got %+v", logs)
	}
}

func TestDeleteAllowedForUnfundedCampaign(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)

	// A pending contribution has not raised money yet.
	if _, err := module.Handler.RecordContributionHandler(context.Background(), "org-1", "gift-1", httptransport.ContributionRequest{
		CampaignID: campaign.CampaignID,
		DonorName:  "Dorcas",
		Amount:     decimal.NewFromInt(40),
	}); err != nil {
		t.Fatalf("record contribution: %v", err)
	}

	if err := module.Handler.DeleteCampaignHandler(context.Background(), "org-1", campaign.CampaignID); err != nil {
		t.Fatalf("delete unfunded campaign: %v", err)
	}
	if _, err := module.Handler.GetCampaignHandler(context.Background(), "org-1", campaign.CampaignID); !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestCreateCampaignIdempotencyReplay(t *testing.T) {
	module := newTestModule()
	start, end := testDates()
	payload := httptransport.CampaignPayload{
		Name:       "Roof Fund",
		GoalAmount: goalPtr(10000),
		StartDate:  start,
		EndDate:    end,
	}

	first, err := module.Handler.CreateCampaignHandler(context.Background(), "org-1", "same-key", payload)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := module.Handler.CreateCampaignHandler(context.Background(), "org-1", "same-key", payload)
	if err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if !second.Replayed {
		t.Fatal("expected replayed response")
	}
	if second.Campaign.CampaignID != first.Campaign.CampaignID {
		t.Fatalf("replay must return the original campaign, got %s vs %s", second.Campaign.CampaignID, first.Campaign.CampaignID)
	}

	payload.Name = "Different Fund"
	if _, err := module.Handler.CreateCampaignHandler(context.Background(), "org-1", "same-key", payload); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected ErrIdempotencyKeyConflict, got %v", err)
	}
}

func TestWebhookIsIdempotentPerStatus(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)

	resp, err := module.Handler.RecordContributionHandler(context.Background(), "org-1", "gift-1", httptransport.ContributionRequest{
		CampaignID: campaign.CampaignID,
		DonorName:  "Dorcas",
		Amount:     decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("record contribution: %v", err)
	}

	webhook := httptransport.WebhookRequest{OrderID: resp.Contribution.OrderID, TransactionStatus: "settlement"}
	first, err := module.Handler.PaymentWebhookHandler(context.Background(), webhook)
	if err != nil || !first.Changed {
		t.Fatalf("first webhook: changed=%v err=%v", first.Changed, err)
	}
	second, err := module.Handler.PaymentWebhookHandler(context.Background(), webhook)
	if err != nil {
		t.Fatalf("repeated webhook: %v", err)
	}
	if second.Changed {
		t.Fatal("repeated webhook with same status must be a no-op")
	}

	got, err := module.Handler.GetCampaignHandler(context.Background(), "org-1", campaign.CampaignID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if !got.Campaign.RaisedTotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected raised 100 after duplicate webhook, got %s", got.Campaign.RaisedTotal)
	}
}

func TestContributionToUnknownCampaignRejected(t *testing.T) {
	module := newTestModule()

	_, err := module.Handler.RecordContributionHandler(context.Background(), "org-1", "gift-1", httptransport.ContributionRequest{
		CampaignID: "missing",
		DonorName:  "Dorcas",
		Amount:     decimal.NewFromInt(10),
	})
	if !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestListContributionsForCampaign(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)
	contributeAndSettle(t, module, campaign.CampaignID, "gift-1", "100")
	contributeAndSettle(t, module, campaign.CampaignID, "gift-2", "25")

	resp, err := module.Handler.ListContributionsHandler(context.Background(), "org-1", campaign.CampaignID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 contributions, got %d", len(resp.Items))
	}
	for _, item := range resp.Items {
		if item.Status != string(entities.ContributionStatusSucceeded) {
			t.Fatalf("expected succeeded, got %s", item.Status)
		}
		if item.PaidAt == "" {
			t.Fatal("settled contribution must carry paid_at")
		}
	}

	if _, err := module.Handler.ListContributionsHandler(context.Background(), "org-1", "missing"); !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestStatusFilterUsesDerivedStatus(t *testing.T) {
	module := newTestModule()
	campaign := createRoofFund(t, module)

	if err := module.Handler.DeactivateCampaignHandler(context.Background(), "org-1", "user-1", campaign.CampaignID, ""); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := module.Handler.ListCampaignsHandler(context.Background(), "org-1", "active")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active.Items) != 0 {
		t.Fatalf("expected no active campaigns, got %d", len(active.Items))
	}

	inactive, err := module.Handler.ListCampaignsHandler(context.Background(), "org-1", "inactive")
	if err != nil {
		t.Fatalf("list inactive: %v", err)
	}
	if len(inactive.Items) != 1 {
		t.Fatalf("expected one inactive campaign, got %d", len(inactive.Items))
	}
}
