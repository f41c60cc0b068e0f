package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type outboxRow struct {
	message     ports.OutboxMessage
	published   bool
	publishedAt time.Time
}

// Store backs every port with in-process maps. It is the development and test
// double for the postgres repository and must honor the same invariants,
// including the delete guard and the succeeded-only aggregation.
type Store struct {
	mu sync.RWMutex

	campaigns     map[string]entities.Campaign
	contributions map[string]entities.Contribution
	activationLog []entities.ActivationLog
	outbox        []outboxRow

	idempotency map[string]ports.IdempotencyRecord
}

func NewStore(seed []entities.Campaign) *Store {
	campaigns := make(map[string]entities.Campaign, len(seed))
	for _, item := range seed {
		campaigns[item.CampaignID] = item
	}
	return &Store{
		campaigns:     campaigns,
		contributions: make(map[string]entities.Contribution),
		activationLog: make([]entities.ActivationLog, 0),
		outbox:        make([]outboxRow, 0),
		idempotency:   make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Store) CreateCampaign(_ context.Context, campaign entities.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.campaigns[campaign.CampaignID]; exists {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	s.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (s *Store) UpdateCampaign(_ context.Context, campaign entities.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.campaigns[campaign.CampaignID]
	if !exists || current.OrganizationID != campaign.OrganizationID {
		return domainerrors.ErrCampaignNotFound
	}
	s.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (s *Store) GetCampaign(_ context.Context, organizationID string, campaignID string) (entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.campaigns[strings.TrimSpace(campaignID)]
	if !exists || item.OrganizationID != strings.TrimSpace(organizationID) {
		return entities.Campaign{}, domainerrors.ErrCampaignNotFound
	}
	return item, nil
}

func (s *Store) ListCampaigns(_ context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		if strings.TrimSpace(filter.OrganizationID) != "" && campaign.OrganizationID != strings.TrimSpace(filter.OrganizationID) {
			continue
		}
		items = append(items, campaign)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// DeleteCampaign checks the raised total and removes the row under the same
// lock, matching the transactional guard of the postgres adapter.
func (s *Store) DeleteCampaign(_ context.Context, organizationID string, campaignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(campaignID)
	item, exists := s.campaigns[id]
	if !exists || item.OrganizationID != strings.TrimSpace(organizationID) {
		return domainerrors.ErrCampaignNotFound
	}
	if s.sumSucceededLocked(item.OrganizationID, id).IsPositive() {
		return domainerrors.ErrCampaignHasContributions
	}
	delete(s.campaigns, id)
	return nil
}

func (s *Store) CreateContribution(_ context.Context, contribution entities.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contributions[contribution.ContributionID]; exists {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	for _, existing := range s.contributions {
		if existing.OrderID == contribution.OrderID {
			return domainerrors.ErrIdempotencyKeyConflict
		}
	}
	s.contributions[contribution.ContributionID] = contribution
	return nil
}

func (s *Store) UpdateContribution(_ context.Context, contribution entities.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contributions[contribution.ContributionID]; !exists {
		return domainerrors.ErrContributionNotFound
	}
	s.contributions[contribution.ContributionID] = contribution
	return nil
}

func (s *Store) GetContributionByOrderID(_ context.Context, orderID string) (entities.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.contributions {
		if item.OrderID == strings.TrimSpace(orderID) {
			return item, nil
		}
	}
	return entities.Contribution{}, domainerrors.ErrContributionNotFound
}

func (s *Store) ListContributionsByCampaign(_ context.Context, organizationID string, campaignID string) ([]entities.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Contribution, 0)
	for _, item := range s.contributions {
		if item.OrganizationID == strings.TrimSpace(organizationID) && item.CampaignID == strings.TrimSpace(campaignID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) SumSucceeded(_ context.Context, organizationID string, campaignID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumSucceededLocked(strings.TrimSpace(organizationID), strings.TrimSpace(campaignID)), nil
}

func (s *Store) sumSucceededLocked(organizationID string, campaignID string) decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.contributions {
		if item.OrganizationID != organizationID || item.CampaignID != campaignID {
			continue
		}
		if item.Status != entities.ContributionStatusSucceeded {
			continue
		}
		total = total.Add(item.Amount)
	}
	return total
}

func (s *Store) AppendActivation(_ context.Context, item entities.ActivationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activationLog = append(s.activationLog, item)
	return nil
}

// Activations returns a copy of the activation log, newest last.
func (s *Store) Activations() []entities.ActivationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entities.ActivationLog(nil), s.activationLog...)
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.idempotency[record.Key]
	if exists {
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		if !bytes.Equal(existing.ResponsePayload, record.ResponsePayload) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	for _, row := range s.outbox {
		if row.message.OutboxID == outboxID {
			if !bytes.Equal(row.message.Payload, payload) {
				return domainerrors.ErrIdempotencyKeyConflict
			}
			return nil
		}
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox = append(s.outbox, outboxRow{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for index := range s.outbox {
		if s.outbox[index].message.OutboxID == strings.TrimSpace(outboxID) {
			s.outbox[index].published = true
			s.outbox[index].publishedAt = publishedAt.UTC()
			return nil
		}
	}
	return domainerrors.ErrOutboxRowNotFound
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
