package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeRate is the processing fee charged on every transaction.
var FeeRate = decimal.RequireFromString("0.02")

var placeholderExchangeRate = decimal.NewFromInt(1)

// TransactionDeriver maps a validated payload into a Transaction. It performs
// no I/O.
type TransactionDeriver struct {
	Now func() time.Time
}

func NewTransactionDeriver() TransactionDeriver {
	return TransactionDeriver{Now: time.Now}
}

func (d TransactionDeriver) Derive(eventID string, payload WebhookPayload) (Transaction, error) {
	status, err := ParseTransactionStatus(payload.Data.Status)
	if err != nil {
		return Transaction{}, err
	}
	amount := payload.Data.Amount
	if !amount.IsPositive() {
		return Transaction{}, BadInputError("transaction amount must be positive")
	}

	fee, net := ComputeFee(amount)
	txn := Transaction{
		ID:            uuid.NewString(),
		EventID:       strings.TrimSpace(eventID),
		TransactionID: payload.Data.TransactionID,
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(payload.Data.Currency)),
		Sender:        payload.Data.Sender,
		Receiver:      payload.Data.Receiver,
		PaymentMethod: payload.Data.PaymentMethod,
		Status:        status,
		ProcessingFee: fee,
		NetAmount:     net,
		ExchangeRate:  placeholderExchangeRate,
		ProcessedAt:   d.now(),
	}
	if payload.Data.Metadata != nil {
		txn.Reference = payload.Data.Metadata.Reference
		txn.Notes = payload.Data.Metadata.Notes
	}
	return txn, nil
}

// ComputeFee returns the fee rounded half-up to cents and the remaining net
// amount. fee + net == amount.
func ComputeFee(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	fee := amount.Mul(FeeRate).Round(2)
	return fee, amount.Sub(fee)
}

func (d TransactionDeriver) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}
