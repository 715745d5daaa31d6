package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhook-ingest/webhooks"
)

type Ingester interface {
	Process(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error)
}

type EventFailureMarker interface {
	MarkFailed(ctx context.Context, eventID string, reason string) error
}

type IngestWebhookCommand struct {
	ingester Ingester
}

func NewIngestWebhookCommand(ingester Ingester) *IngestWebhookCommand {
	return &IngestWebhookCommand{ingester: ingester}
}

// Execute runs the delivery through the pipeline. The Result is stored in the
// context collector for rejected deliveries too, so callers can read the
// stage and status code alongside the error.
func (c *IngestWebhookCommand) Execute(ctx context.Context, msg IngestWebhookMessage) error {
	if c == nil || c.ingester == nil {
		return commandDependencyError("command: webhook ingester is required")
	}
	result, err := c.ingester.Process(ctx, webhooks.Delivery{
		Body:      msg.Body,
		Signature: msg.Signature,
	})
	storeResult(ctx, result)
	return err
}

// MarkEventFailedCommand moves an event stuck in RECEIVED to FAILED.
type MarkEventFailedCommand struct {
	marker EventFailureMarker
}

func NewMarkEventFailedCommand(marker EventFailureMarker) *MarkEventFailedCommand {
	return &MarkEventFailedCommand{marker: marker}
}

func (c *MarkEventFailedCommand) Execute(ctx context.Context, msg MarkEventFailedMessage) error {
	if c == nil || c.marker == nil {
		return commandDependencyError("command: event failure marker is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.marker.MarkFailed(ctx, strings.TrimSpace(msg.EventID), strings.TrimSpace(msg.Reason))
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
