package ingest

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-webhook-ingest/adapters/gocommand"
	ingestcommand "github.com/goliatone/go-webhook-ingest/command"
	"github.com/goliatone/go-webhook-ingest/core"
	ingestquery "github.com/goliatone/go-webhook-ingest/query"
)

type Commands struct {
	IngestWebhook   *ingestcommand.IngestWebhookCommand
	MarkEventFailed *ingestcommand.MarkEventFailedCommand
}

type Queries struct {
	GetTransaction    *ingestquery.GetTransactionQuery
	GetWebhookEvent   *ingestquery.GetWebhookEventQuery
	ListWebhookEvents *ingestquery.ListWebhookEventsQuery
}

// FacadeDependencies lists the collaborators behind each handler. Only
// Ingester is required; handlers whose dependency is nil are left unset.
type FacadeDependencies struct {
	Ingester      ingestcommand.Ingester
	FailureMarker ingestcommand.EventFailureMarker
	Transactions  core.TransactionReader
	Events        core.WebhookEventReader
	EventLister   ingestquery.WebhookEventLister
}

type Facade struct {
	commands Commands
	queries  Queries
}

func NewFacade(deps FacadeDependencies) (*Facade, error) {
	if deps.Ingester == nil {
		return nil, fmt.Errorf("ingest: webhook ingester is required")
	}
	lister := deps.EventLister
	if lister == nil {
		if candidate, ok := deps.Events.(ingestquery.WebhookEventLister); ok {
			lister = candidate
		}
	}

	facade := &Facade{}
	facade.commands.IngestWebhook = ingestcommand.NewIngestWebhookCommand(deps.Ingester)
	if deps.FailureMarker != nil {
		facade.commands.MarkEventFailed = ingestcommand.NewMarkEventFailedCommand(deps.FailureMarker)
	}
	if deps.Transactions != nil {
		facade.queries.GetTransaction = ingestquery.NewGetTransactionQuery(deps.Transactions)
	}
	if deps.Events != nil {
		facade.queries.GetWebhookEvent = ingestquery.NewGetWebhookEventQuery(deps.Events)
	}
	if lister != nil {
		facade.queries.ListWebhookEvents = ingestquery.NewListWebhookEventsQuery(lister)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

// Register adds every wired handler to the registry and subscribes it on the
// go-command dispatcher.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("ingest: facade is nil")
	}
	return gocommand.RegisterIngestion(adapter, gocommand.IngestionHandlers{
		IngestWebhook:     f.commands.IngestWebhook,
		MarkEventFailed:   f.commands.MarkEventFailed,
		GetTransaction:    f.queries.GetTransaction,
		GetWebhookEvent:   f.queries.GetWebhookEvent,
		ListWebhookEvents: f.queries.ListWebhookEvents,
	})
}
