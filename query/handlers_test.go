package query

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhook-ingest/core"
)

type stubTransactionReader struct {
	byEvent       string
	byTransaction string
}

func (s *stubTransactionReader) GetByEventID(_ context.Context, eventID string) (core.Transaction, error) {
	s.byEvent = eventID
	return core.Transaction{EventID: eventID}, nil
}

func (s *stubTransactionReader) GetByTransactionID(_ context.Context, transactionID string) (core.Transaction, error) {
	s.byTransaction = transactionID
	return core.Transaction{TransactionID: transactionID}, nil
}

type stubEventReader struct {
	events map[string]core.WebhookEvent
}

func (s stubEventReader) Get(_ context.Context, eventID string) (core.WebhookEvent, error) {
	event, ok := s.events[eventID]
	if !ok {
		return core.WebhookEvent{}, core.NotFoundError("webhook event not found")
	}
	return event, nil
}

type stubEventLister struct {
	filter core.WebhookEventFilter
}

func (s *stubEventLister) List(_ context.Context, filter core.WebhookEventFilter) (core.WebhookEventPage, error) {
	s.filter = filter
	return core.WebhookEventPage{Page: 1, PerPage: 25, Total: 1, Items: []core.WebhookEvent{{EventID: "evt_1"}}}, nil
}

func TestGetTransactionQuery_PrefersEventID(t *testing.T) {
	reader := &stubTransactionReader{}
	qry := NewGetTransactionQuery(reader)

	txn, err := qry.Query(context.Background(), GetTransactionMessage{EventID: " evt_1 ", TransactionID: "txn_1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if txn.EventID != "evt_1" || reader.byEvent != "evt_1" || reader.byTransaction != "" {
		t.Fatalf("expected event id lookup, got %#v reader=%#v", txn, reader)
	}
}

func TestGetTransactionQuery_FallsBackToTransactionID(t *testing.T) {
	reader := &stubTransactionReader{}
	txn, err := NewGetTransactionQuery(reader).Query(context.Background(), GetTransactionMessage{TransactionID: "txn_9"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if txn.TransactionID != "txn_9" || reader.byTransaction != "txn_9" {
		t.Fatalf("expected transaction id lookup, got %#v", txn)
	}
}

func TestGetTransactionQuery_RequiresLookupKey(t *testing.T) {
	_, err := NewGetTransactionQuery(&stubTransactionReader{}).Query(context.Background(), GetTransactionMessage{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.IngestErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.IngestErrorBadInput, rich.TextCode)
	}
}

func TestGetWebhookEventQuery_ReturnsNotFound(t *testing.T) {
	qry := NewGetWebhookEventQuery(stubEventReader{events: map[string]core.WebhookEvent{
		"evt_1": {EventID: "evt_1", Status: core.EventStatusProcessed},
	}})

	event, err := qry.Query(context.Background(), GetWebhookEventMessage{EventID: "evt_1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if event.Status != core.EventStatusProcessed {
		t.Fatalf("unexpected event: %#v", event)
	}

	if _, err := qry.Query(context.Background(), GetWebhookEventMessage{EventID: "evt_2"}); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListWebhookEventsQuery_ValidatesFilter(t *testing.T) {
	lister := &stubEventLister{}
	qry := NewListWebhookEventsQuery(lister)

	page, err := qry.Query(context.Background(), ListWebhookEventsMessage{
		Filter: core.WebhookEventFilter{Status: "failed", Page: 1, PerPage: 10},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 1 || lister.filter.PerPage != 10 {
		t.Fatalf("expected lister to receive filter, got page=%#v filter=%#v", page, lister.filter)
	}

	if _, err := qry.Query(context.Background(), ListWebhookEventsMessage{
		Filter: core.WebhookEventFilter{Status: "archived"},
	}); err == nil {
		t.Fatalf("expected unknown status to fail validation")
	}
	if _, err := qry.Query(context.Background(), ListWebhookEventsMessage{
		Filter: core.WebhookEventFilter{Page: -1},
	}); err == nil {
		t.Fatalf("expected negative page to fail validation")
	}
}

func TestQueries_NilReaderReturnsRichError(t *testing.T) {
	var qry *GetTransactionQuery
	_, err := qry.Query(context.Background(), GetTransactionMessage{EventID: "evt_1"})
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
