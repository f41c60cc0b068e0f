package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"
)

func seedCampaign(id string, orgID string) entities.Campaign {
	start, _ := entities.ParseDate("2026-09-01")
	return entities.Campaign{
		CampaignID:     id,
		OrganizationID: orgID,
		Name:           "Roof Fund",
		StartDate:      start,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
}

func addContribution(t *testing.T, store *Store, id string, campaignID string, amount string, status entities.ContributionStatus) {
	t.Helper()
	err := store.CreateContribution(context.Background(), entities.Contribution{
		ContributionID: id,
		OrganizationID: "org-1",
		CampaignID:     campaignID,
		DonorName:      "Donor",
		Amount:         decimal.RequireFromString(amount),
		Status:         status,
		OrderID:        "GIVE-" + id,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create contribution %s: %v", id, err)
	}
}

func TestSumSucceededCountsOnlySucceeded(t *testing.T) {
	store := NewStore([]entities.Campaign{seedCampaign("camp-1", "org-1")})

	addContribution(t, store, "c1", "camp-1", "100", entities.ContributionStatusSucceeded)
	addContribution(t, store, "c2", "camp-1", "25", entities.ContributionStatusSucceeded)
	addContribution(t, store, "c3", "camp-1", "50", entities.ContributionStatusRefunded)
	addContribution(t, store, "c4", "camp-1", "40", entities.ContributionStatusPending)
	addContribution(t, store, "c5", "camp-1", "30", entities.ContributionStatusFailed)

	total, err := store.SumSucceeded(context.Background(), "org-1", "camp-1")
	if err != nil {
		t.Fatalf("sum succeeded: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(125)) {
		t.Fatalf("expected 125, got %s", total)
	}
}

func TestSumSucceededEmptyIsZero(t *testing.T) {
	store := NewStore([]entities.Campaign{seedCampaign("camp-1", "org-1")})

	total, err := store.SumSucceeded(context.Background(), "org-1", "camp-1")
	if err != nil {
		t.Fatalf("sum succeeded: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("expected zero, got %s", total)
	}
}

func TestDeleteCampaignGuard(t *testing.T) {
	store := NewStore([]entities.Campaign{seedCampaign("camp-1", "org-1")})
	addContribution(t, store, "c1", "camp-1", "100", entities.ContributionStatusSucceeded)

	err := store.DeleteCampaign(context.Background(), "org-1", "camp-1")
	if !errors.Is(err, domainerrors.ErrCampaignHasContributions) {
		t.Fatalf("expected ErrCampaignHasContributions, got %v", err)
	}
	if _, err := store.GetCampaign(context.Background(), "org-1", "camp-1"); err != nil {
		t.Fatalf("campaign must survive a refused delete: %v", err)
	}
}

func TestDeleteCampaignAllowsUnfunded(t *testing.T) {
	store := NewStore([]entities.Campaign{seedCampaign("camp-1", "org-1")})
	addContribution(t, store, "c1", "camp-1", "100", entities.ContributionStatusPending)
	addContribution(t, store, "c2", "camp-1", "50", entities.ContributionStatusFailed)

	if err := store.DeleteCampaign(context.Background(), "org-1", "camp-1"); err != nil {
		t.Fatalf("delete with no succeeded contributions: %v", err)
	}
	if _, err := store.GetCampaign(context.Background(), "org-1", "camp-1"); !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound after delete, got %v", err)
	}
}

func TestOrganizationScoping(t *testing.T) {
	store := NewStore([]entities.Campaign{seedCampaign("camp-1", "org-1")})

	if _, err := store.GetCampaign(context.Background(), "org-2", "camp-1"); !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound for foreign org, got %v", err)
	}
	if err := store.DeleteCampaign(context.Background(), "org-2", "camp-1"); !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound for foreign org delete, got %v", err)
	}

	items, err := store.ListCampaigns(context.Background(), ports.CampaignFilter{OrganizationID: "org-2"})
	if err != nil {
		t.Fatalf("list campaigns: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no campaigns for org-2, got %d", len(items))
	}
}

func TestGetContributionByOrderID(t *testing.T) {
	store := NewStore([]entities.Campaign{seedCampaign("camp-1", "org-1")})
	addContribution(t, store, "c1", "camp-1", "75", entities.ContributionStatusPending)

	item, err := store.GetContributionByOrderID(context.Background(), "GIVE-c1")
	if err != nil {
		t.Fatalf("get by order id: %v", err)
	}
	if item.ContributionID != "c1" {
		t.Fatalf("expected c1, got %s", item.ContributionID)
	}

	if _, err := store.GetContributionByOrderID(context.Background(), "GIVE-missing"); !errors.Is(err, domainerrors.ErrContributionNotFound) {
		t.Fatalf("expected ErrContributionNotFound, got %v", err)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore(nil)

	envelope := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "campaign.created",
		OccurredAt:   time.Now().UTC(),
		PartitionKey: "camp-1",
		Data:         []byte(`{"campaign_id":"camp-1"}`),
	}
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append outbox: %v", err)
	}
	// Same envelope appended twice collapses into one row.
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append outbox replay: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending row, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(context.Background(), "evt-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending after publish: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(context.Background(), "evt-missing", time.Now().UTC()); !errors.Is(err, domainerrors.ErrOutboxRowNotFound) {
		t.Fatalf("expected ErrOutboxRowNotFound, got %v", err)
	}
}

func TestIdempotencyRecordConflict(t *testing.T) {
	store := NewStore(nil)
	now := time.Now().UTC()

	record := ports.IdempotencyRecord{
		Key:             "key-1",
		RequestHash:     "hash-a",
		ResponsePayload: []byte(`{"ok":true}`),
		ExpiresAt:       now.Add(time.Hour),
	}
	if err := store.PutRecord(context.Background(), record); err != nil {
		t.Fatalf("put record: %v", err)
	}

	record.RequestHash = "hash-b"
	if err := store.PutRecord(context.Background(), record); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected ErrIdempotencyKeyConflict, got %v", err)
	}

	if _, found, err := store.GetRecord(context.Background(), "key-1", now.Add(2*time.Hour)); err != nil || found {
		t.Fatalf("expired record must not be returned: found=%v err=%v", found, err)
	}
}

func TestIdempotencyRecordExpiryBoundary(t *testing.T) {
	store := NewStore(nil)
	now := time.Now().UTC()
	expires := now.Add(time.Hour)

	if err := store.PutRecord(context.Background(), ports.IdempotencyRecord{
		Key:             "key-1",
		RequestHash:     "hash-a",
		ResponsePayload: []byte(`{"ok":true}`),
		ExpiresAt:       expires,
	}); err != nil {
		t.Fatalf("put record: %v", err)
	}

	if _, found, err := store.GetRecord(context.Background(), "key-1", expires.Add(-time.Second)); err != nil || !found {
		t.Fatalf("record before expiry must be returned: found=%v err=%v", found, err)
	}
	// A record is expired at the exact ExpiresAt instant.
	if _, found, err := store.GetRecord(context.Background(), "key-1", expires); err != nil || found {
		t.Fatalf("record at the expiry instant must not be returned: found=%v err=%v", found, err)
	}
}
