package command

import (
	"context"
	"net/http"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/goliatone/go-webhook-ingest/webhooks"
)

type stubIngester struct {
	processFn func(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error)
}

func (s stubIngester) Process(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error) {
	return s.processFn(ctx, delivery)
}

type stubFailureMarker struct {
	eventID string
	reason  string
	err     error
}

func (s *stubFailureMarker) MarkFailed(_ context.Context, eventID string, reason string) error {
	s.eventID = eventID
	s.reason = reason
	return s.err
}

func TestIngestWebhookCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	ingester := stubIngester{
		processFn: func(_ context.Context, delivery webhooks.Delivery) (webhooks.Result, error) {
			called = true
			if string(delivery.Body) != `{"event_id":"evt_1"}` || delivery.Signature != "sha256=abc" {
				t.Fatalf("unexpected delivery: %q %q", delivery.Body, delivery.Signature)
			}
			return webhooks.Result{
				Stage:      webhooks.StageCommitted,
				Reached:    webhooks.StageCommitted,
				EventID:    "evt_1",
				StatusCode: http.StatusOK,
			}, nil
		},
	}

	cmd := NewIngestWebhookCommand(ingester)
	collector := gocmd.NewResult[webhooks.Result]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, IngestWebhookMessage{Body: []byte(`{"event_id":"evt_1"}`), Signature: "sha256=abc"})
	if err != nil {
		t.Fatalf("execute ingest: %v", err)
	}
	if !called {
		t.Fatalf("expected ingester invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if !result.Committed() || result.EventID != "evt_1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestIngestWebhookCommand_StoresRejectedResultAndReturnsError(t *testing.T) {
	ingester := stubIngester{
		processFn: func(context.Context, webhooks.Delivery) (webhooks.Result, error) {
			return webhooks.Result{
				Stage:      webhooks.StageRejected,
				Reached:    webhooks.StageSignatureChecked,
				EventID:    "evt_dup",
				StatusCode: http.StatusConflict,
				TextCode:   core.IngestErrorDuplicateEvent,
			}, core.DuplicateEventError("evt_dup")
		},
	}

	collector := gocmd.NewResult[webhooks.Result]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewIngestWebhookCommand(ingester).Execute(ctx, IngestWebhookMessage{Body: []byte("{}"), Signature: "sig"})
	if !core.IsDuplicateEvent(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	result, ok := collector.Load()
	if !ok || result.StatusCode != http.StatusConflict {
		t.Fatalf("expected rejected result to be stored, got %#v ok=%t", result, ok)
	}
}

func TestIngestWebhookCommand_NilIngesterReturnsRichError(t *testing.T) {
	var cmd *IngestWebhookCommand
	err := cmd.Execute(context.Background(), IngestWebhookMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}

func TestMarkEventFailedCommand_TrimsAndDelegates(t *testing.T) {
	marker := &stubFailureMarker{}
	err := NewMarkEventFailedCommand(marker).Execute(context.Background(), MarkEventFailedMessage{
		EventID: " evt_stuck ",
		Reason:  " worker crashed ",
	})
	if err != nil {
		t.Fatalf("execute mark failed: %v", err)
	}
	if marker.eventID != "evt_stuck" || marker.reason != "worker crashed" {
		t.Fatalf("unexpected marker input: %q %q", marker.eventID, marker.reason)
	}
}

func TestMarkEventFailedMessage_ValidateReturnsRichError(t *testing.T) {
	err := (MarkEventFailedMessage{Reason: "x"}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.IngestErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.IngestErrorBadInput, rich.TextCode)
	}

	if err := (MarkEventFailedMessage{EventID: "evt_1"}).Validate(); err == nil {
		t.Fatalf("expected missing reason to fail validation")
	}
}

func TestMessages_ExposeStableTypes(t *testing.T) {
	if (IngestWebhookMessage{}).Type() != "ingest.command.webhook.ingest" {
		t.Fatalf("unexpected ingest message type")
	}
	if (MarkEventFailedMessage{}).Type() != "ingest.command.event.mark_failed" {
		t.Fatalf("unexpected mark failed message type")
	}
	if err := (IngestWebhookMessage{}).Validate(); err != nil {
		t.Fatalf("expected ingest message validation to defer to the pipeline, got %v", err)
	}
}
