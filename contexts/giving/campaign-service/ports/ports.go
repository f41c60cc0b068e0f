package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	"shepherd/internal/shared/events"
)

type CampaignFilter struct {
	OrganizationID string
}

type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign entities.Campaign) error
	UpdateCampaign(ctx context.Context, campaign entities.Campaign) error
	GetCampaign(ctx context.Context, organizationID string, campaignID string) (entities.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]entities.Campaign, error)

	// DeleteCampaign removes the campaign only if no succeeded contribution
	// is attributed to it, re-checking the raised total atomically with the
	// delete. Returns ErrCampaignHasContributions otherwise.
	DeleteCampaign(ctx context.Context, organizationID string, campaignID string) error
}

type ContributionRepository interface {
	CreateContribution(ctx context.Context, contribution entities.Contribution) error
	UpdateContribution(ctx context.Context, contribution entities.Contribution) error
	GetContributionByOrderID(ctx context.Context, orderID string) (entities.Contribution, error)
	ListContributionsByCampaign(ctx context.Context, organizationID string, campaignID string) ([]entities.Contribution, error)

	// SumSucceeded is the contribution aggregator: the sum of amounts over
	// succeeded contributions attributed to the campaign. Empty set sums to
	// zero. Always recomputed, never cached.
	SumSucceeded(ctx context.Context, organizationID string, campaignID string) (decimal.Decimal, error)
}

type ActivationLogRepository interface {
	AppendActivation(ctx context.Context, item entities.ActivationLog) error
}

type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

type IdempotencyStore interface {
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutRecord(ctx context.Context, record IdempotencyRecord) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
