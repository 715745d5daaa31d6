package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TransactionStore commits derived transactions together with the status
// flip of their originating event.
type TransactionStore struct {
	db   *bun.DB
	repo repository.Repository[*transactionRecord]
	now  func() time.Time
}

func NewTransactionStore(db *bun.DB) (*TransactionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*transactionRecord](db, transactionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid transaction repository wiring: %w", err)
		}
	}
	return &TransactionStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Commit flips the event from RECEIVED to PROCESSED and inserts txn in one
// database transaction. Either both writes land or neither does.
func (s *TransactionStore) Commit(ctx context.Context, event core.WebhookEvent, txn core.Transaction) (core.Transaction, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	eventID := strings.TrimSpace(event.EventID)
	if eventID == "" {
		return core.Transaction{}, core.BadInputError("event id is required")
	}
	if strings.TrimSpace(txn.EventID) != eventID {
		return core.Transaction{}, core.BadInputError(
			fmt.Sprintf("transaction event %q does not match event %q", txn.EventID, eventID),
		)
	}
	if !txn.ProcessingFee.Add(txn.NetAmount).Equal(txn.Amount) {
		return core.Transaction{}, core.BadInputError("processing fee and net amount do not sum to amount")
	}
	if strings.TrimSpace(txn.ID) == "" {
		txn.ID = uuid.NewString()
	}

	now := s.now()
	txn.CreatedAt = now
	var committed core.Transaction
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, updateErr := tx.NewUpdate().
			Model((*webhookEventRecord)(nil)).
			Set("status = ?", string(core.EventStatusProcessed)).
			Set("processed_at = ?", now).
			Set("updated_at = ?", now).
			Where("event_id = ?", eventID).
			Where("status = ?", string(core.EventStatusReceived)).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			return rowsErr
		}
		if affected != 1 {
			return fmt.Errorf("sqlstore: event %q is not awaiting processing", eventID)
		}

		inserted, createErr := s.repo.CreateTx(ctx, tx, newTransactionRecord(txn))
		if createErr != nil {
			return createErr
		}
		committed = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.StorageFailureError(err, "commit transaction")
	}
	return committed, nil
}

// MarkFailed delegates to the shared event update so the pipeline can use a
// single committer for both outcomes.
func (s *TransactionStore) MarkFailed(ctx context.Context, eventID string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: transaction store is not configured")
	}
	return markEventFailed(ctx, s.db, strings.TrimSpace(eventID), reason, s.now())
}

func (s *TransactionStore) GetByEventID(ctx context.Context, eventID string) (core.Transaction, error) {
	return s.getBy(ctx, "event_id", eventID)
}

func (s *TransactionStore) GetByTransactionID(ctx context.Context, transactionID string) (core.Transaction, error) {
	return s.getBy(ctx, "transaction_id", transactionID)
}

func (s *TransactionStore) getBy(ctx context.Context, column string, value string) (core.Transaction, error) {
	if s == nil || s.db == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return core.Transaction{}, core.BadInputError(column + " is required")
	}
	record := &transactionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.Transaction{}, core.NotFoundError(fmt.Sprintf("transaction with %s %q not found", column, value))
		}
		return core.Transaction{}, core.StorageFailureError(err, "load transaction")
	}
	return record.toDomain(), nil
}
