package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WebhookEventStore is the idempotency guard. Uniqueness of event_id is
// enforced by the webhook_events_event_id_key index, never by a prior read.
type WebhookEventStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookEventRecord]
	now  func() time.Time
}

func NewWebhookEventStore(db *bun.DB) (*WebhookEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, webhookEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook event repository wiring: %w", err)
		}
	}
	return &WebhookEventStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *WebhookEventStore) EnsureUnique(ctx context.Context, eventID string, rawPayload string) (core.WebhookEvent, error) {
	if s == nil || s.db == nil {
		return core.WebhookEvent{}, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return core.WebhookEvent{}, core.BadInputError("event id is required")
	}

	now := s.now()
	record := &webhookEventRecord{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Payload:    rawPayload,
		Status:     string(core.EventStatusReceived),
		Attempts:   1,
		ReceivedAt: now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.WebhookEvent{}, core.DuplicateEventError(eventID)
		}
		return core.WebhookEvent{}, core.StorageFailureError(err, "record webhook event")
	}
	return record.toDomain(), nil
}

func (s *WebhookEventStore) Get(ctx context.Context, eventID string) (core.WebhookEvent, error) {
	if s == nil || s.db == nil {
		return core.WebhookEvent{}, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	record := &webhookEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.WebhookEvent{}, core.NotFoundError(fmt.Sprintf("webhook event %q not found", eventID))
		}
		return core.WebhookEvent{}, core.StorageFailureError(err, "load webhook event")
	}
	return record.toDomain(), nil
}

// List returns events newest first, optionally filtered by status.
func (s *WebhookEventStore) List(ctx context.Context, filter core.WebhookEventFilter) (core.WebhookEventPage, error) {
	if s == nil || s.repo == nil {
		return core.WebhookEventPage{}, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 || perPage > 200 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("received_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", strings.ToUpper(status)))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.WebhookEventPage{}, core.StorageFailureError(err, "list webhook events")
	}
	items := make([]core.WebhookEvent, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.WebhookEventPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

// MarkFailed records reason on a RECEIVED event and moves it to FAILED.
// Events already in a terminal state are left untouched.
func (s *WebhookEventStore) MarkFailed(ctx context.Context, eventID string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	return markEventFailed(ctx, s.db, strings.TrimSpace(eventID), reason, s.now())
}

func markEventFailed(ctx context.Context, db bun.IDB, eventID string, reason string, now time.Time) error {
	result, err := db.NewUpdate().
		Model((*webhookEventRecord)(nil)).
		Set("status = ?", string(core.EventStatusFailed)).
		Set("last_error = ?", truncateReason(reason)).
		Set("updated_at = ?", now).
		Where("event_id = ?", eventID).
		Where("status = ?", string(core.EventStatusReceived)).
		Exec(ctx)
	if err != nil {
		return core.StorageFailureError(err, "mark webhook event failed")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return core.StorageFailureError(err, "mark webhook event failed")
	}
	if affected == 0 {
		return core.NotFoundError(fmt.Sprintf("webhook event %q is not awaiting processing", eventID))
	}
	return nil
}

const maxReasonLength = 2000

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLength {
		return reason
	}
	return reason[:maxReasonLength]
}
