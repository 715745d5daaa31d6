package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	ingestcommand "github.com/goliatone/go-webhook-ingest/command"
	"github.com/goliatone/go-webhook-ingest/core"
	ingestquery "github.com/goliatone/go-webhook-ingest/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// IngestionHandlers is the set of command and query handlers exposed by the
// ingestion facade. Nil handlers are skipped.
type IngestionHandlers struct {
	IngestWebhook     *ingestcommand.IngestWebhookCommand
	MarkEventFailed   *ingestcommand.MarkEventFailedCommand
	GetTransaction    *ingestquery.GetTransactionQuery
	GetWebhookEvent   *ingestquery.GetWebhookEventQuery
	ListWebhookEvents *ingestquery.ListWebhookEventsQuery
}

// RegisterIngestion registers and subscribes every configured handler. On
// failure the subscriptions made so far are released.
func RegisterIngestion(
	adapter *RegistryAdapter,
	handlers IngestionHandlers,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	subscriptions := make([]commanddispatcher.Subscription, 0, 5)
	track := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			Unsubscribe(subscriptions...)
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	if handlers.IngestWebhook != nil {
		if err := track(RegisterAndSubscribe[ingestcommand.IngestWebhookMessage](adapter, handlers.IngestWebhook, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.MarkEventFailed != nil {
		if err := track(RegisterAndSubscribe[ingestcommand.MarkEventFailedMessage](adapter, handlers.MarkEventFailed, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.GetTransaction != nil {
		if err := track(RegisterAndSubscribeQuery[ingestquery.GetTransactionMessage, core.Transaction](adapter, handlers.GetTransaction, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.GetWebhookEvent != nil {
		if err := track(RegisterAndSubscribeQuery[ingestquery.GetWebhookEventMessage, core.WebhookEvent](adapter, handlers.GetWebhookEvent, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.ListWebhookEvents != nil {
		if err := track(RegisterAndSubscribeQuery[ingestquery.ListWebhookEventsMessage, core.WebhookEventPage](adapter, handlers.ListWebhookEvents, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return subscriptions, nil
}

func Unsubscribe(subscriptions ...commanddispatcher.Subscription) {
	for _, subscription := range subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}
