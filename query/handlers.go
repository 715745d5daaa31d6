package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-webhook-ingest/core"
)

type WebhookEventLister interface {
	List(ctx context.Context, filter core.WebhookEventFilter) (core.WebhookEventPage, error)
}

type GetTransactionQuery struct {
	reader core.TransactionReader
}

func NewGetTransactionQuery(reader core.TransactionReader) *GetTransactionQuery {
	return &GetTransactionQuery{reader: reader}
}

func (q *GetTransactionQuery) Query(ctx context.Context, msg GetTransactionMessage) (core.Transaction, error) {
	if q == nil || q.reader == nil {
		return core.Transaction{}, queryDependencyError("query: transaction reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if eventID := strings.TrimSpace(msg.EventID); eventID != "" {
		return q.reader.GetByEventID(ctx, eventID)
	}
	return q.reader.GetByTransactionID(ctx, strings.TrimSpace(msg.TransactionID))
}

type GetWebhookEventQuery struct {
	reader core.WebhookEventReader
}

func NewGetWebhookEventQuery(reader core.WebhookEventReader) *GetWebhookEventQuery {
	return &GetWebhookEventQuery{reader: reader}
}

func (q *GetWebhookEventQuery) Query(ctx context.Context, msg GetWebhookEventMessage) (core.WebhookEvent, error) {
	if q == nil || q.reader == nil {
		return core.WebhookEvent{}, queryDependencyError("query: webhook event reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.WebhookEvent{}, err
	}
	return q.reader.Get(ctx, strings.TrimSpace(msg.EventID))
}

type ListWebhookEventsQuery struct {
	lister WebhookEventLister
}

func NewListWebhookEventsQuery(lister WebhookEventLister) *ListWebhookEventsQuery {
	return &ListWebhookEventsQuery{lister: lister}
}

func (q *ListWebhookEventsQuery) Query(
	ctx context.Context,
	msg ListWebhookEventsMessage,
) (core.WebhookEventPage, error) {
	if q == nil || q.lister == nil {
		return core.WebhookEventPage{}, queryDependencyError("query: webhook event lister is required")
	}
	if err := msg.Validate(); err != nil {
		return core.WebhookEventPage{}, err
	}
	return q.lister.List(ctx, msg.Filter)
}
