package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventStatusReceived   EventStatus = "RECEIVED"
	EventStatusProcessed  EventStatus = "PROCESSED"
	EventStatusFailed     EventStatus = "FAILED"
	EventStatusDeadLetter EventStatus = "DEAD_LETTER"
)

func (s EventStatus) Terminal() bool {
	return s == EventStatusProcessed || s == EventStatusFailed || s == EventStatusDeadLetter
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// ParseTransactionStatus maps an external status string onto the internal
// enum, ignoring case and surrounding whitespace. Unknown values are never
// defaulted.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	switch TransactionStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case TransactionStatusPending:
		return TransactionStatusPending, nil
	case TransactionStatusCompleted:
		return TransactionStatusCompleted, nil
	case TransactionStatusFailed:
		return TransactionStatusFailed, nil
	default:
		return "", InvalidStatusError(value)
	}
}

// WebhookEvent is the record of one delivery. EventID is unique across all
// events and is the idempotency key.
type WebhookEvent struct {
	ID          string
	EventID     string
	Payload     string
	Status      EventStatus
	Attempts    int
	LastError   string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	UpdatedAt   time.Time
}

type Party struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Country string `json:"country"`
}

type Metadata struct {
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Transaction is derived from exactly one WebhookEvent.
// ProcessingFee + NetAmount always equals Amount.
type Transaction struct {
	ID            string
	EventID       string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Sender        Party
	Receiver      Party
	PaymentMethod string
	Reference     string
	Notes         string
	Status        TransactionStatus
	ProcessingFee decimal.Decimal
	NetAmount     decimal.Decimal
	ExchangeRate  decimal.Decimal
	ProcessedAt   time.Time
	CreatedAt     time.Time
}

// WebhookPayload is the decoded notification body.
type WebhookPayload struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"-"`
	Data      TransactionData `json:"data"`
}

type TransactionData struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Sender        Party           `json:"sender"`
	Receiver      Party           `json:"receiver"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Metadata      *Metadata       `json:"metadata,omitempty"`
}

type WebhookEventFilter struct {
	Status  EventStatus
	Page    int
	PerPage int
}

type WebhookEventPage struct {
	Items   []WebhookEvent
	Page    int
	PerPage int
	Total   int
	HasNext bool
}
