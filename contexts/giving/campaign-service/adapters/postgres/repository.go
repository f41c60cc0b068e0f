package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"shepherd/contexts/giving/campaign-service/domain/entities"
	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	"shepherd/contexts/giving/campaign-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateCampaign(ctx context.Context, campaign entities.Campaign) error {
	row := campaignModelFromEntity(campaign)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateCampaign(ctx context.Context, campaign entities.Campaign) error {
	result := r.db.WithContext(ctx).
		Model(&campaignModel{}).
		Where("organization_id = ? AND campaign_id = ?",
			strings.TrimSpace(campaign.OrganizationID),
			strings.TrimSpace(campaign.CampaignID),
		).
		Updates(campaignUpdatesFromEntity(campaign))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCampaignNotFound
	}
	return nil
}

func (r *Repository) GetCampaign(ctx context.Context, organizationID string, campaignID string) (entities.Campaign, error) {
	var row campaignModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND campaign_id = ?",
			strings.TrimSpace(organizationID),
			strings.TrimSpace(campaignID),
		).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Campaign{}, domainerrors.ErrCampaignNotFound
		}
		return entities.Campaign{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCampaigns(ctx context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	tx := r.db.WithContext(ctx).Model(&campaignModel{})
	if strings.TrimSpace(filter.OrganizationID) != "" {
		tx = tx.Where("organization_id = ?", strings.TrimSpace(filter.OrganizationID))
	}

	var rows []campaignModel
	if err := tx.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]entities.Campaign, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// DeleteCampaign re-checks the raised total inside the same transaction that
// removes the row, under a row lock, so a contribution succeeding between the
// check and the delete cannot orphan money.
func (r *Repository) DeleteCampaign(ctx context.Context, organizationID string, campaignID string) error {
	orgID := strings.TrimSpace(organizationID)
	id := strings.TrimSpace(campaignID)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row campaignModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND campaign_id = ?", orgID, id).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrCampaignNotFound
			}
			return err
		}

		var raised decimal.Decimal
		if err := tx.Model(&contributionModel{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("organization_id = ? AND campaign_id = ? AND status = ?",
				orgID, id, string(entities.ContributionStatusSucceeded)).
			Scan(&raised).
			Error; err != nil {
			return err
		}
		if raised.IsPositive() {
			return domainerrors.ErrCampaignHasContributions
		}

		return tx.
			Where("organization_id = ? AND campaign_id = ?", orgID, id).
			Delete(&campaignModel{}).
			Error
	})
}

func (r *Repository) CreateContribution(ctx context.Context, contribution entities.Contribution) error {
	row := contributionModelFromEntity(contribution)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateContribution(ctx context.Context, contribution entities.Contribution) error {
	result := r.db.WithContext(ctx).
		Model(&contributionModel{}).
		Where("contribution_id = ?", strings.TrimSpace(contribution.ContributionID)).
		Updates(map[string]any{
			"status":  string(contribution.Status),
			"paid_at": normalizeOptionalTime(contribution.PaidAt),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrContributionNotFound
	}
	return nil
}

func (r *Repository) GetContributionByOrderID(ctx context.Context, orderID string) (entities.Contribution, error) {
	var row contributionModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", strings.TrimSpace(orderID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Contribution{}, domainerrors.ErrContributionNotFound
		}
		return entities.Contribution{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListContributionsByCampaign(ctx context.Context, organizationID string, campaignID string) ([]entities.Contribution, error) {
	var rows []contributionModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND campaign_id = ?",
			strings.TrimSpace(organizationID),
			strings.TrimSpace(campaignID),
		).
		Order("created_at DESC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Contribution, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SumSucceeded(ctx context.Context, organizationID string, campaignID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&contributionModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("organization_id = ? AND campaign_id = ? AND status = ?",
			strings.TrimSpace(organizationID),
			strings.TrimSpace(campaignID),
			string(entities.ContributionStatusSucceeded),
		).
		Scan(&total).
		Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *Repository) AppendActivation(ctx context.Context, item entities.ActivationLog) error {
	row := activationLogModel{
		LogID:          strings.TrimSpace(item.LogID),
		OrganizationID: strings.TrimSpace(item.OrganizationID),
		CampaignID:     strings.TrimSpace(item.CampaignID),
		FromActive:     item.FromActive,
		ToActive:       item.ToActive,
		ChangedBy:      strings.TrimSpace(item.ChangedBy),
		Reason:         strings.TrimSpace(item.Reason),
		CreatedAt:      item.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	// Expired at the exact ExpiresAt instant, same boundary as the memory store.
	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.UTC().After(now.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}

	return ports.IdempotencyRecord{
		Key:             row.Key,
		RequestHash:     row.RequestHash,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) PutRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		RequestHash:     record.RequestHash,
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != row.RequestHash || !bytes.Equal(existing.ResponsePayload, row.ResponsePayload) {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).
		Error; err != nil {
		return err
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxRowNotFound
	}
	return nil
}

type campaignModel struct {
	CampaignID     string           `gorm:"column:campaign_id;primaryKey"`
	OrganizationID string           `gorm:"column:organization_id"`
	Name           string           `gorm:"column:name"`
	Description    string           `gorm:"column:description"`
	GoalAmount     *decimal.Decimal `gorm:"column:goal_amount;type:numeric(14,2)"`
	StartDate      time.Time        `gorm:"column:start_date;type:date"`
	EndDate        *time.Time       `gorm:"column:end_date;type:date"`
	IsActive       bool             `gorm:"column:is_active"`
	CreatedAt      time.Time        `gorm:"column:created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at"`
}

func (campaignModel) TableName() string {
	return "campaigns"
}

func campaignModelFromEntity(item entities.Campaign) campaignModel {
	return campaignModel{
		CampaignID:     strings.TrimSpace(item.CampaignID),
		OrganizationID: strings.TrimSpace(item.OrganizationID),
		Name:           strings.TrimSpace(item.Name),
		Description:    strings.TrimSpace(item.Description),
		GoalAmount:     copyOptionalDecimal(item.GoalAmount),
		StartDate:      entities.DateOnly(item.StartDate),
		EndDate:        normalizeOptionalDate(item.EndDate),
		IsActive:       item.IsActive,
		CreatedAt:      item.CreatedAt.UTC(),
		UpdatedAt:      item.UpdatedAt.UTC(),
	}
}

func campaignUpdatesFromEntity(item entities.Campaign) map[string]any {
	row := campaignModelFromEntity(item)
	return map[string]any{
		"name":        row.Name,
		"description": row.Description,
		"goal_amount": row.GoalAmount,
		"start_date":  row.StartDate,
		"end_date":    row.EndDate,
		"is_active":   row.IsActive,
		"updated_at":  row.UpdatedAt,
	}
}

func (m campaignModel) toEntity() entities.Campaign {
	return entities.Campaign{
		CampaignID:     m.CampaignID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		Description:    m.Description,
		GoalAmount:     copyOptionalDecimal(m.GoalAmount),
		StartDate:      entities.DateOnly(m.StartDate),
		EndDate:        normalizeOptionalDate(m.EndDate),
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type contributionModel struct {
	ContributionID string          `gorm:"column:contribution_id;primaryKey"`
	OrganizationID string          `gorm:"column:organization_id"`
	CampaignID     string          `gorm:"column:campaign_id"`
	DonorName      string          `gorm:"column:donor_name"`
	Message        string          `gorm:"column:message"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(14,2)"`
	Status         string          `gorm:"column:status"`
	OrderID        string          `gorm:"column:order_id;uniqueIndex"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	PaidAt         *time.Time      `gorm:"column:paid_at"`
}

func (contributionModel) TableName() string {
	return "contributions"
}

func contributionModelFromEntity(item entities.Contribution) contributionModel {
	return contributionModel{
		ContributionID: strings.TrimSpace(item.ContributionID),
		OrganizationID: strings.TrimSpace(item.OrganizationID),
		CampaignID:     strings.TrimSpace(item.CampaignID),
		DonorName:      strings.TrimSpace(item.DonorName),
		Message:        strings.TrimSpace(item.Message),
		Amount:         item.Amount,
		Status:         string(item.Status),
		OrderID:        strings.TrimSpace(item.OrderID),
		CreatedAt:      item.CreatedAt.UTC(),
		PaidAt:         normalizeOptionalTime(item.PaidAt),
	}
}

func (m contributionModel) toEntity() entities.Contribution {
	return entities.Contribution{
		ContributionID: m.ContributionID,
		OrganizationID: m.OrganizationID,
		CampaignID:     m.CampaignID,
		DonorName:      m.DonorName,
		Message:        m.Message,
		Amount:         m.Amount,
		Status:         entities.ContributionStatus(m.Status),
		OrderID:        m.OrderID,
		CreatedAt:      m.CreatedAt.UTC(),
		PaidAt:         normalizeOptionalTime(m.PaidAt),
	}
}

type activationLogModel struct {
	LogID          string    `gorm:"column:log_id;primaryKey"`
	OrganizationID string    `gorm:"column:organization_id"`
	CampaignID     string    `gorm:"column:campaign_id"`
	FromActive     bool      `gorm:"column:from_active"`
	ToActive       bool      `gorm:"column:to_active"`
	ChangedBy      string    `gorm:"column:changed_by"`
	Reason         string    `gorm:"column:reason"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (activationLogModel) TableName() string {
	return "campaign_activation_log"
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "giving_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "giving_outbox"
}

func copyOptionalDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func normalizeOptionalDate(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	date := entities.DateOnly(*value)
	return &date
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
