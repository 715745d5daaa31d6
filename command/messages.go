package command

import "strings"

const (
	TypeIngestWebhook   = "ingest.command.webhook.ingest"
	TypeMarkEventFailed = "ingest.command.event.mark_failed"
)

// IngestWebhookMessage carries one delivery exactly as received. Missing
// signatures and malformed bodies are rejected by the pipeline so they keep
// their authentication and bad-input statuses.
type IngestWebhookMessage struct {
	Body      []byte
	Signature string
}

func (IngestWebhookMessage) Type() string { return TypeIngestWebhook }

func (IngestWebhookMessage) Validate() error {
	return nil
}

type MarkEventFailedMessage struct {
	EventID string
	Reason  string
}

func (MarkEventFailedMessage) Type() string { return TypeMarkEventFailed }

func (m MarkEventFailedMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return commandValidationError("event_id", "event id is required")
	}
	if strings.TrimSpace(m.Reason) == "" {
		return commandValidationError("reason", "reason is required")
	}
	return nil
}
