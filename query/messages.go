package query

import (
	"strings"

	"github.com/goliatone/go-webhook-ingest/core"
)

const (
	TypeGetTransaction    = "ingest.query.transaction.get"
	TypeGetWebhookEvent   = "ingest.query.webhook_event.get"
	TypeListWebhookEvents = "ingest.query.webhook_event.list"
)

// GetTransactionMessage looks a transaction up by EventID, or by
// TransactionID when EventID is blank.
type GetTransactionMessage struct {
	EventID       string
	TransactionID string
}

func (GetTransactionMessage) Type() string { return TypeGetTransaction }

func (m GetTransactionMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" && strings.TrimSpace(m.TransactionID) == "" {
		return queryValidationError("event_id", "event id or transaction id is required")
	}
	return nil
}

type GetWebhookEventMessage struct {
	EventID string
}

func (GetWebhookEventMessage) Type() string { return TypeGetWebhookEvent }

func (m GetWebhookEventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return queryValidationError("event_id", "event id is required")
	}
	return nil
}

type ListWebhookEventsMessage struct {
	Filter core.WebhookEventFilter
}

func (ListWebhookEventsMessage) Type() string { return TypeListWebhookEvents }

func (m ListWebhookEventsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	if status := strings.TrimSpace(string(m.Filter.Status)); status != "" {
		switch core.EventStatus(strings.ToUpper(status)) {
		case core.EventStatusReceived, core.EventStatusProcessed, core.EventStatusFailed, core.EventStatusDeadLetter:
		default:
			return queryValidationError("status", "unknown event status "+status)
		}
	}
	return nil
}
