package webhooks

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/shopspring/decimal"
)

var (
	payloadValidator = validator.New()
	minimumAmount    = decimal.RequireFromString("0.01")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationResult collects every field error in a payload, in field order.
type ValidationResult struct {
	Errors []FieldError
}

func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err converts the result into a go-errors validation error, nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	fields := make([]goerrors.FieldError, 0, len(r.Errors))
	for _, item := range r.Errors {
		fields = append(fields, goerrors.FieldError{Field: item.Field, Message: item.Message})
	}
	return goerrors.NewValidation("webhook payload validation failed", fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.IngestErrorBadInput)
}

func (r *ValidationResult) check(field string, value any, tag string, message string) {
	if err := payloadValidator.Var(value, tag); err != nil {
		r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
	}
}

// ValidatePayload checks the payload shape. The status value is only
// required to be present; mapping it is the deriver's concern.
func ValidatePayload(payload core.WebhookPayload) ValidationResult {
	result := ValidationResult{}
	result.check("event_id", payload.EventID, "required", "must not be blank")
	result.check("event_type", payload.EventType, "required", "must not be blank")
	if payload.Timestamp.IsZero() {
		result.Errors = append(result.Errors, FieldError{Field: "timestamp", Message: "must not be null"})
	}

	data := payload.Data
	result.check("data.transaction_id", strings.TrimSpace(data.TransactionID), "required", "must not be blank")
	if data.Amount.LessThan(minimumAmount) {
		result.Errors = append(result.Errors, FieldError{Field: "data.amount", Message: "must be greater than or equal to 0.01"})
	} else if !data.Amount.Equal(data.Amount.Truncate(2)) {
		// Amounts are stored and split into fee and net in whole cents.
		result.Errors = append(result.Errors, FieldError{Field: "data.amount", Message: "must have at most 2 decimal places"})
	}
	result.check("data.currency", strings.ToUpper(strings.TrimSpace(data.Currency)), "required,iso4217", "must be an ISO 4217 currency code")
	validateParty(&result, "data.sender", data.Sender)
	validateParty(&result, "data.receiver", data.Receiver)
	result.check("data.status", strings.TrimSpace(data.Status), "required", "must not be blank")
	return result
}

func validateParty(result *ValidationResult, prefix string, party core.Party) {
	if party == (core.Party{}) {
		result.Errors = append(result.Errors, FieldError{Field: prefix, Message: "must not be null"})
		return
	}
	result.check(prefix+".id", strings.TrimSpace(party.ID), "required", "must not be blank")
	result.check(prefix+".name", strings.TrimSpace(party.Name), "required", "must not be blank")
	result.check(prefix+".email", strings.TrimSpace(party.Email), "omitempty,email", "must be a well-formed email address")
	result.check(prefix+".country", strings.TrimSpace(party.Country), "omitempty,len=2", "size must be 2")
}
