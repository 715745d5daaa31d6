package sqlstore

import (
	"time"

	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:wev"`

	ID          string     `bun:"id,pk"`
	EventID     string     `bun:"event_id,notnull"`
	Payload     string     `bun:"payload,notnull"`
	Status      string     `bun:"status,notnull"`
	Attempts    int        `bun:"attempts,notnull"`
	LastError   string     `bun:"last_error,nullzero"`
	ReceivedAt  time.Time  `bun:"received_at,nullzero,notnull,default:current_timestamp"`
	ProcessedAt *time.Time `bun:"processed_at,nullzero"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *webhookEventRecord) toDomain() core.WebhookEvent {
	if r == nil {
		return core.WebhookEvent{}
	}
	event := core.WebhookEvent{
		ID:         r.ID,
		EventID:    r.EventID,
		Payload:    r.Payload,
		Status:     core.EventStatus(r.Status),
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		ReceivedAt: r.ReceivedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ProcessedAt != nil {
		value := *r.ProcessedAt
		event.ProcessedAt = &value
	}
	return event
}

type transactionRecord struct {
	bun.BaseModel `bun:"table:transactions,alias:txn"`

	ID              string          `bun:"id,pk"`
	EventID         string          `bun:"event_id,notnull"`
	TransactionID   string          `bun:"transaction_id,notnull"`
	Amount          decimal.Decimal `bun:"amount,notnull"`
	Currency        string          `bun:"currency,notnull"`
	SenderID        string          `bun:"sender_id,notnull"`
	SenderName      string          `bun:"sender_name,notnull"`
	SenderEmail     string          `bun:"sender_email,nullzero"`
	SenderCountry   string          `bun:"sender_country,nullzero"`
	ReceiverID      string          `bun:"receiver_id,notnull"`
	ReceiverName    string          `bun:"receiver_name,notnull"`
	ReceiverEmail   string          `bun:"receiver_email,nullzero"`
	ReceiverCountry string          `bun:"receiver_country,nullzero"`
	PaymentMethod   string          `bun:"payment_method,nullzero"`
	Reference       string          `bun:"reference,nullzero"`
	Notes           string          `bun:"notes,nullzero"`
	Status          string          `bun:"status,notnull"`
	ProcessingFee   decimal.Decimal `bun:"processing_fee,notnull"`
	NetAmount       decimal.Decimal `bun:"net_amount,notnull"`
	ExchangeRate    decimal.Decimal `bun:"exchange_rate,notnull"`
	ProcessedAt     time.Time       `bun:"processed_at,notnull"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newTransactionRecord(txn core.Transaction) *transactionRecord {
	return &transactionRecord{
		ID:              txn.ID,
		EventID:         txn.EventID,
		TransactionID:   txn.TransactionID,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		SenderID:        txn.Sender.ID,
		SenderName:      txn.Sender.Name,
		SenderEmail:     txn.Sender.Email,
		SenderCountry:   txn.Sender.Country,
		ReceiverID:      txn.Receiver.ID,
		ReceiverName:    txn.Receiver.Name,
		ReceiverEmail:   txn.Receiver.Email,
		ReceiverCountry: txn.Receiver.Country,
		PaymentMethod:   txn.PaymentMethod,
		Reference:       txn.Reference,
		Notes:           txn.Notes,
		Status:          string(txn.Status),
		ProcessingFee:   txn.ProcessingFee,
		NetAmount:       txn.NetAmount,
		ExchangeRate:    txn.ExchangeRate,
		ProcessedAt:     txn.ProcessedAt.UTC(),
		CreatedAt:       txn.CreatedAt.UTC(),
	}
}

func (r *transactionRecord) toDomain() core.Transaction {
	if r == nil {
		return core.Transaction{}
	}
	return core.Transaction{
		ID:            r.ID,
		EventID:       r.EventID,
		TransactionID: r.TransactionID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Sender: core.Party{
			ID:      r.SenderID,
			Name:    r.SenderName,
			Email:   r.SenderEmail,
			Country: r.SenderCountry,
		},
		Receiver: core.Party{
			ID:      r.ReceiverID,
			Name:    r.ReceiverName,
			Email:   r.ReceiverEmail,
			Country: r.ReceiverCountry,
		},
		PaymentMethod: r.PaymentMethod,
		Reference:     r.Reference,
		Notes:         r.Notes,
		Status:        core.TransactionStatus(r.Status),
		ProcessingFee: r.ProcessingFee,
		NetAmount:     r.NetAmount,
		ExchangeRate:  r.ExchangeRate,
		ProcessedAt:   r.ProcessedAt,
		CreatedAt:     r.CreatedAt,
	}
}
