package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhook-ingest/core"
)

var (
	_ gocmd.Querier[GetTransactionMessage, core.Transaction]         = (*GetTransactionQuery)(nil)
	_ gocmd.Querier[GetWebhookEventMessage, core.WebhookEvent]       = (*GetWebhookEventQuery)(nil)
	_ gocmd.Querier[ListWebhookEventsMessage, core.WebhookEventPage] = (*ListWebhookEventsQuery)(nil)
)
