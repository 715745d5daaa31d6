package webhooks

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/shopspring/decimal"
)

type memoryLedger struct {
	mu           sync.Mutex
	events       map[string]core.WebhookEvent
	transactions map[string]core.Transaction
	commitErr    error
	markErr      error
	commitCtxErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		events:       map[string]core.WebhookEvent{},
		transactions: map[string]core.Transaction{},
	}
}

func (l *memoryLedger) EnsureUnique(_ context.Context, eventID string, rawPayload string) (core.WebhookEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.events[eventID]; exists {
		return core.WebhookEvent{}, core.DuplicateEventError(eventID)
	}
	event := core.WebhookEvent{
		ID:         "row_" + eventID,
		EventID:    eventID,
		Payload:    rawPayload,
		Status:     core.EventStatusReceived,
		Attempts:   1,
		ReceivedAt: time.Now().UTC(),
	}
	l.events[eventID] = event
	return event, nil
}

func (l *memoryLedger) Commit(ctx context.Context, event core.WebhookEvent, txn core.Transaction) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitCtxErr = ctx.Err()
	if l.commitErr != nil {
		return core.Transaction{}, l.commitErr
	}
	stored := l.events[event.EventID]
	if stored.Status != core.EventStatusReceived {
		return core.Transaction{}, errors.New("event is not in RECEIVED state")
	}
	now := time.Now().UTC()
	stored.Status = core.EventStatusProcessed
	stored.ProcessedAt = &now
	l.events[event.EventID] = stored
	txn.CreatedAt = now
	l.transactions[event.EventID] = txn
	return txn, nil
}

func (l *memoryLedger) MarkFailed(_ context.Context, eventID string, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.markErr != nil {
		return l.markErr
	}
	stored, ok := l.events[eventID]
	if !ok {
		return errors.New("event not found")
	}
	stored.Status = core.EventStatusFailed
	stored.LastError = reason
	l.events[eventID] = stored
	return nil
}

func (l *memoryLedger) event(eventID string) (core.WebhookEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event, ok := l.events[eventID]
	return event, ok
}

func (l *memoryLedger) transactionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.transactions)
}

func newTestPipeline(t *testing.T, ledger *memoryLedger) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(testVerifier(), ledger, ledger)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline
}

func signedDelivery(body []byte) Delivery {
	return Delivery{Body: body, Signature: Sign(testSecret, body)}
}

func TestPipeline_CommitsValidDelivery(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)

	result, err := pipeline.Process(context.Background(), signedDelivery(paymentBody("evt_1", testNow.Unix(), "Completed")))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Committed() || result.StatusCode != http.StatusOK {
		t.Fatalf("expected committed 200 result, got %+v", result)
	}
	if result.Transaction == nil || result.Transaction.Status != core.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED transaction, got %+v", result.Transaction)
	}
	if !result.Transaction.ProcessingFee.Equal(decimal.RequireFromString("2.00")) ||
		!result.Transaction.NetAmount.Equal(decimal.RequireFromString("98.00")) {
		t.Fatalf("expected fee 2 and net 98, got %s %s", result.Transaction.ProcessingFee, result.Transaction.NetAmount)
	}
	event, ok := ledger.event("evt_1")
	if !ok || event.Status != core.EventStatusProcessed || event.ProcessedAt == nil {
		t.Fatalf("expected PROCESSED event, got %+v", event)
	}
}

func TestPipeline_DuplicateDeliveryIsRejectedWithoutSecondTransaction(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)
	delivery := signedDelivery(paymentBody("evt_dup", testNow.Unix(), "pending"))

	if _, err := pipeline.Process(context.Background(), delivery); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := pipeline.Process(context.Background(), delivery)
	if !core.IsDuplicateEvent(err) {
		t.Fatalf("expected duplicate event error, got %v", err)
	}
	if result.Stage != StageRejected || result.StatusCode != http.StatusConflict {
		t.Fatalf("expected rejected 409 result, got %+v", result)
	}
	if result.Reached != StageSignatureChecked {
		t.Fatalf("expected rejection after signature check, got %s", result.Reached)
	}
	if ledger.transactionCount() != 1 {
		t.Fatalf("expected one transaction, got %d", ledger.transactionCount())
	}
}

func TestPipeline_StaleTimestampPersistsNothing(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)

	result, err := pipeline.Process(context.Background(), signedDelivery(paymentBody("evt_old", testNow.Unix()-400, "pending")))
	if !core.HasTextCode(err, core.IngestErrorStaleTimestamp) {
		t.Fatalf("expected stale timestamp, got %v", err)
	}
	if result.StatusCode != http.StatusUnauthorized || result.Reached != StageStart {
		t.Fatalf("expected 401 rejected at start, got %+v", result)
	}
	if _, ok := ledger.event("evt_old"); ok {
		t.Fatalf("expected no event persisted")
	}
}

func TestPipeline_SignatureFailuresPersistNothing(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)
	body := paymentBody("evt_sig", testNow.Unix(), "pending")

	result, err := pipeline.Process(context.Background(), Delivery{Body: body})
	if !core.HasTextCode(err, core.IngestErrorMissingSignature) || result.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected missing signature 401, got %v %+v", err, result)
	}

	result, err = pipeline.Process(context.Background(), Delivery{Body: body, Signature: Sign([]byte("wrong"), body)})
	if !core.HasTextCode(err, core.IngestErrorInvalidSignature) || result.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected invalid signature 401, got %v %+v", err, result)
	}
	if _, ok := ledger.event("evt_sig"); ok {
		t.Fatalf("expected no event persisted")
	}
}

func TestPipeline_ForgedSignatureIsRejectedBeforeDecoding(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)

	bodies := map[string][]byte{
		"empty":        nil,
		"malformed":    []byte(`{"event_id":"evt_x",`),
		"no_timestamp": []byte(`{"event_id":"evt_x","data":{}}`),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			result, err := pipeline.Process(context.Background(), Delivery{Body: body, Signature: "sha256=Zm9v"})
			if !core.HasTextCode(err, core.IngestErrorInvalidSignature) {
				t.Fatalf("expected invalid signature, got %v", err)
			}
			if result.StatusCode != http.StatusUnauthorized || result.Reached != StageStart || result.EventID != "" {
				t.Fatalf("expected anonymous 401 rejected at start, got %+v", result)
			}
		})
	}
	if _, ok := ledger.event("evt_x"); ok {
		t.Fatalf("expected no event persisted")
	}
}

func TestPipeline_AuthenticatedMalformedBodyIsBadInput(t *testing.T) {
	pipeline := newTestPipeline(t, newMemoryLedger())

	for _, body := range [][]byte{
		[]byte(`{"event_id":"evt_x",`),
		[]byte(`{"event_id":"evt_x","data":{}}`),
	} {
		result, err := pipeline.Process(context.Background(), signedDelivery(body))
		if !core.HasTextCode(err, core.IngestErrorBadInput) || result.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 bad input for signed body %q, got %v %+v", body, err, result)
		}
	}
}

func TestPipeline_UnknownStatusMarksEventFailed(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)

	result, err := pipeline.Process(context.Background(), signedDelivery(paymentBody("evt_bad", testNow.Unix(), "unknown")))
	if !core.IsInvalidStatus(err) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
	if result.StatusCode != http.StatusInternalServerError || result.Reached != StageEventRecorded {
		t.Fatalf("expected 500 rejected after recording, got %+v", result)
	}
	event, ok := ledger.event("evt_bad")
	if !ok || event.Status != core.EventStatusFailed || event.LastError == "" {
		t.Fatalf("expected FAILED event with last error, got %+v", event)
	}
	if ledger.transactionCount() != 0 {
		t.Fatalf("expected no transaction")
	}

	_, err = pipeline.Process(context.Background(), signedDelivery(paymentBody("evt_bad", testNow.Unix(), "unknown")))
	if !core.IsDuplicateEvent(err) {
		t.Fatalf("expected redelivery of failed event to be duplicate, got %v", err)
	}
}

func TestPipeline_CommitFailureMarksEventFailed(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.commitErr = errors.New("connection reset")
	pipeline := newTestPipeline(t, ledger)

	result, err := pipeline.Process(context.Background(), signedDelivery(paymentBody("evt_store", testNow.Unix(), "pending")))
	if !core.HasTextCode(err, core.IngestErrorStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if result.StatusCode != http.StatusInternalServerError || result.Reached != StageTransactionDerived {
		t.Fatalf("expected 500 after derivation, got %+v", result)
	}
	event, _ := ledger.event("evt_store")
	if event.Status != core.EventStatusFailed {
		t.Fatalf("expected FAILED event, got %s", event.Status)
	}
}

func TestPipeline_CommitSurvivesCallerCancellation(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)
	guard := &cancelOnRecordGuard{memoryLedger: ledger}
	pipeline.Guard = guard

	ctx, cancel := context.WithCancel(context.Background())
	guard.cancel = cancel
	result, err := pipeline.Process(ctx, signedDelivery(paymentBody("evt_cancel", testNow.Unix(), "pending")))
	if err != nil {
		t.Fatalf("expected commit despite cancellation, got %v", err)
	}
	if !result.Committed() {
		t.Fatalf("expected committed result, got %+v", result)
	}
	if ledger.commitCtxErr != nil {
		t.Fatalf("expected commit context to be detached from cancellation, got %v", ledger.commitCtxErr)
	}
}

type cancelOnRecordGuard struct {
	*memoryLedger
	cancel context.CancelFunc
}

func (g *cancelOnRecordGuard) EnsureUnique(ctx context.Context, eventID string, rawPayload string) (core.WebhookEvent, error) {
	event, err := g.memoryLedger.EnsureUnique(ctx, eventID, rawPayload)
	g.cancel()
	return event, err
}

func TestPipeline_ValidationFailurePersistsNothing(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)
	body := []byte(`{"event_id":"evt_shape","event_type":"payment","timestamp":` +
		strconv.FormatInt(testNow.Unix(), 10) + `,"data":{"amount":"0.00","currency":"USD","status":"pending"}}`)

	result, err := pipeline.Process(context.Background(), signedDelivery(body))
	if err == nil || result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 validation rejection, got %v %+v", err, result)
	}
	if _, ok := ledger.event("evt_shape"); ok {
		t.Fatalf("expected no event persisted")
	}
}

func TestPipeline_ConcurrentDuplicatesCommitOnce(t *testing.T) {
	ledger := newMemoryLedger()
	pipeline := newTestPipeline(t, ledger)
	delivery := signedDelivery(paymentBody("evt_race", testNow.Unix(), "pending"))

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed, duplicates := 0, 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pipeline.Process(context.Background(), delivery)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				committed++
			case core.IsDuplicateEvent(err):
				duplicates++
			}
		}()
	}
	wg.Wait()
	if committed != 1 || duplicates != workers-1 {
		t.Fatalf("expected 1 commit and %d duplicates, got %d and %d", workers-1, committed, duplicates)
	}
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	ledger := newMemoryLedger()
	if _, err := NewPipeline(nil, ledger, ledger); err == nil {
		t.Fatalf("expected verifier requirement")
	}
	if _, err := NewPipeline(testVerifier(), nil, ledger); err == nil {
		t.Fatalf("expected guard requirement")
	}
	if _, err := NewPipeline(testVerifier(), ledger, nil); err == nil {
		t.Fatalf("expected committer requirement")
	}
	var pipeline *Pipeline
	if _, err := pipeline.Process(context.Background(), Delivery{}); err == nil {
		t.Fatalf("expected nil pipeline error")
	}
}
