package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// IdempotencyGuard records that an event has started processing. The
// storage uniqueness constraint decides; a second call with the same id fails
// with a DuplicateEvent error.
type IdempotencyGuard interface {
	EnsureUnique(ctx context.Context, eventID string, rawPayload string) (WebhookEvent, error)
}

// IngestionCommitter persists the outcome of an ingestion attempt.
type IngestionCommitter interface {
	// Commit flips the event to PROCESSED and inserts txn in one unit of work.
	Commit(ctx context.Context, event WebhookEvent, txn Transaction) (Transaction, error)
	MarkFailed(ctx context.Context, eventID string, reason string) error
}

type WebhookEventReader interface {
	Get(ctx context.Context, eventID string) (WebhookEvent, error)
}

type TransactionReader interface {
	GetByEventID(ctx context.Context, eventID string) (Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (Transaction, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
