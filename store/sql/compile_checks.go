package sqlstore

import "github.com/goliatone/go-webhook-ingest/core"

var (
	_ core.IdempotencyGuard   = (*WebhookEventStore)(nil)
	_ core.WebhookEventReader = (*WebhookEventStore)(nil)
	_ core.IngestionCommitter = (*TransactionStore)(nil)
	_ core.TransactionReader  = (*TransactionStore)(nil)
	_ core.TransactionReader  = (*CachedTransactionReader)(nil)
)
