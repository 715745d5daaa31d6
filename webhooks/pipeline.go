package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-webhook-ingest/core"
)

type Stage string

const (
	StageStart              Stage = "START"
	StageSignatureChecked   Stage = "SIGNATURE_CHECKED"
	StageEventRecorded      Stage = "EVENT_RECORDED"
	StageTransactionDerived Stage = "TRANSACTION_DERIVED"
	StageCommitted          Stage = "COMMITTED"
	StageRejected           Stage = "REJECTED"
)

// Verifier authenticates the raw body before anything is decoded, then checks
// the declared timestamp once the payload has been read.
type Verifier interface {
	VerifySignature(rawBody []byte, signatureHeader string) error
	VerifyTimestamp(declaredTimestamp int64) error
}

type Deriver interface {
	Derive(eventID string, payload core.WebhookPayload) (core.Transaction, error)
}

type PayloadValidator func(payload core.WebhookPayload) ValidationResult

// Delivery is one inbound notification: the raw body exactly as received and
// the signature header value.
type Delivery struct {
	Body      []byte
	Signature string
}

// Result describes where a delivery ended. Reached is the last stage passed
// before a rejection; for committed deliveries it equals Stage.
type Result struct {
	Stage       Stage
	Reached     Stage
	EventID     string
	StatusCode  int
	TextCode    string
	Transaction *core.Transaction
}

func (r Result) Committed() bool {
	return r.Stage == StageCommitted
}

type Pipeline struct {
	Verifier  Verifier
	Guard     core.IdempotencyGuard
	Deriver   Deriver
	Committer core.IngestionCommitter
	Validate  PayloadValidator
	Observer  core.Observer
}

type PipelineOption func(*Pipeline)

func WithLogger(logger core.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.Observer.Logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) PipelineOption {
	return func(p *Pipeline) {
		if provider == nil {
			return
		}
		if named := provider.GetLogger("ingest"); named != nil {
			p.Observer.Logger = named
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) PipelineOption {
	return func(p *Pipeline) {
		p.Observer.Metrics = recorder
	}
}

func WithDeriver(deriver Deriver) PipelineOption {
	return func(p *Pipeline) {
		p.Deriver = deriver
	}
}

func WithPayloadValidator(validate PayloadValidator) PipelineOption {
	return func(p *Pipeline) {
		p.Validate = validate
	}
}

func NewPipeline(
	verifier Verifier,
	guard core.IdempotencyGuard,
	committer core.IngestionCommitter,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if verifier == nil {
		return nil, fmt.Errorf("webhooks: signature verifier is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("webhooks: idempotency guard is required")
	}
	if committer == nil {
		return nil, fmt.Errorf("webhooks: ingestion committer is required")
	}
	_, logger := glog.Resolve("ingest", nil, nil)
	pipeline := &Pipeline{
		Verifier:  verifier,
		Guard:     guard,
		Committer: committer,
		Deriver:   core.NewTransactionDeriver(),
		Validate:  ValidatePayload,
		Observer: core.Observer{
			Logger:  logger,
			Metrics: core.NopMetricsRecorder{},
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(pipeline)
	}
	pipeline.Observer.Logger = glog.Ensure(pipeline.Observer.Logger)
	if pipeline.Deriver == nil {
		pipeline.Deriver = core.NewTransactionDeriver()
	}
	if pipeline.Validate == nil {
		pipeline.Validate = ValidatePayload
	}
	return pipeline, nil
}

// Process authenticates, records, derives and commits one delivery. The
// returned error is nil only when the delivery was committed.
func (p *Pipeline) Process(ctx context.Context, delivery Delivery) (Result, error) {
	startedAt := time.Now()
	result, err := p.process(ctx, delivery)
	if p != nil {
		p.Observer.Observe(ctx, startedAt, "ingest_webhook", err, map[string]any{
			"event_id":    result.EventID,
			"stage":       string(result.Stage),
			"reached":     string(result.Reached),
			"status_code": result.StatusCode,
		})
	}
	return result, err
}

func (p *Pipeline) process(ctx context.Context, delivery Delivery) (Result, error) {
	if p == nil || p.Verifier == nil || p.Guard == nil || p.Committer == nil || p.Deriver == nil {
		return reject(StageStart, "", goerrors.New("webhooks: pipeline is not configured", goerrors.CategoryInternal).
			WithTextCode(core.IngestErrorInternal))
	}
	if strings.TrimSpace(delivery.Signature) == "" {
		return reject(StageStart, "", core.MissingSignatureError())
	}

	if err := p.Verifier.VerifySignature(delivery.Body, delivery.Signature); err != nil {
		return reject(StageStart, "", err)
	}

	payload, err := DecodePayload(delivery.Body)
	if err != nil {
		return reject(StageStart, "", err)
	}
	eventID := payload.EventID

	if err := p.Verifier.VerifyTimestamp(payload.Timestamp.Unix()); err != nil {
		return reject(StageStart, eventID, err)
	}

	if err := p.validate(payload).Err(); err != nil {
		return reject(StageSignatureChecked, eventID, err)
	}

	event, err := p.Guard.EnsureUnique(ctx, eventID, string(delivery.Body))
	if err != nil {
		return reject(StageSignatureChecked, eventID, asStorageFailure(err, "record event"))
	}

	// The event row exists from here on; later writes must not be abandoned
	// when the caller goes away.
	persistCtx := context.WithoutCancel(ctx)

	txn, err := p.Deriver.Derive(event.EventID, payload)
	if err != nil {
		p.markFailed(persistCtx, event.EventID, err)
		return reject(StageEventRecorded, eventID, err)
	}

	committed, err := p.Committer.Commit(persistCtx, event, txn)
	if err != nil {
		err = asStorageFailure(err, "commit transaction")
		p.markFailed(persistCtx, event.EventID, err)
		return reject(StageTransactionDerived, eventID, err)
	}

	return Result{
		Stage:       StageCommitted,
		Reached:     StageCommitted,
		EventID:     eventID,
		StatusCode:  http.StatusOK,
		Transaction: &committed,
	}, nil
}

func (p *Pipeline) validate(payload core.WebhookPayload) ValidationResult {
	if p.Validate == nil {
		return ValidatePayload(payload)
	}
	return p.Validate(payload)
}

func (p *Pipeline) markFailed(ctx context.Context, eventID string, cause error) {
	startedAt := time.Now()
	err := p.Committer.MarkFailed(ctx, eventID, cause.Error())
	if err != nil {
		p.Observer.Observe(ctx, startedAt, "mark_event_failed", asStorageFailure(err, "mark event failed"), map[string]any{
			"event_id": eventID,
			"cause":    cause.Error(),
		})
	}
}

func reject(reached Stage, eventID string, err error) (Result, error) {
	mapped := core.MapError(err)
	return Result{
		Stage:      StageRejected,
		Reached:    reached,
		EventID:    eventID,
		StatusCode: mapped.Code,
		TextCode:   mapped.TextCode,
	}, mapped
}

func asStorageFailure(err error, operation string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return core.StorageFailureError(err, operation)
}
