package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	IngestErrorMissingSignature = "INGEST_MISSING_SIGNATURE"
	IngestErrorInvalidSignature = "INGEST_INVALID_SIGNATURE"
	IngestErrorStaleTimestamp   = "INGEST_STALE_TIMESTAMP"
	IngestErrorDuplicateEvent   = "INGEST_DUPLICATE_EVENT"
	IngestErrorInvalidStatus    = "INGEST_INVALID_STATUS"
	IngestErrorStorageFailure   = "INGEST_STORAGE_FAILURE"
	IngestErrorBadInput         = "INGEST_BAD_INPUT"
	IngestErrorNotFound         = "INGEST_NOT_FOUND"
	IngestErrorInternal         = "INGEST_INTERNAL_ERROR"

	ingestTextCodePrefix = "INGEST_"
)

func MissingSignatureError() *goerrors.Error {
	return newIngestError("missing webhook signature", goerrors.CategoryAuth, IngestErrorMissingSignature)
}

func InvalidSignatureError(reason string) *goerrors.Error {
	message := "invalid webhook signature"
	if reason = strings.TrimSpace(reason); reason != "" {
		message += ": " + reason
	}
	return newIngestError(message, goerrors.CategoryAuth, IngestErrorInvalidSignature)
}

func StaleTimestampError(declared int64, now int64, toleranceSeconds int64) *goerrors.Error {
	return newIngestError(
		"webhook timestamp outside tolerance window",
		goerrors.CategoryAuth,
		IngestErrorStaleTimestamp,
	).WithMetadata(map[string]any{
		"declared_timestamp": declared,
		"now":                now,
		"tolerance_seconds":  toleranceSeconds,
	})
}

func DuplicateEventError(eventID string) *goerrors.Error {
	return newIngestError(
		fmt.Sprintf("event %q already received", eventID),
		goerrors.CategoryConflict,
		IngestErrorDuplicateEvent,
	).WithMetadata(map[string]any{"event_id": eventID})
}

func InvalidStatusError(value string) *goerrors.Error {
	return newIngestError(
		fmt.Sprintf("invalid transaction status %q", value),
		goerrors.CategoryOperation,
		IngestErrorInvalidStatus,
	).WithMetadata(map[string]any{"status": value})
}

func StorageFailureError(err error, operation string) *goerrors.Error {
	message := "storage failure"
	if operation = strings.TrimSpace(operation); operation != "" {
		message = operation + ": " + message
	}
	if err == nil {
		return newIngestError(message, goerrors.CategoryInternal, IngestErrorStorageFailure)
	}
	return ensureIngestErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryInternal, message).
			WithTextCode(IngestErrorStorageFailure),
	)
}

func BadInputError(message string) *goerrors.Error {
	return newIngestError(message, goerrors.CategoryBadInput, IngestErrorBadInput)
}

func NotFoundError(message string) *goerrors.Error {
	return newIngestError(message, goerrors.CategoryNotFound, IngestErrorNotFound)
}

func HasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func IsAuthError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth
}

// IsClientError reports a delivery rejected for its own content: malformed
// JSON, a missing field or a value outside its allowed shape.
func IsClientError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryBadInput || richErr.Category == goerrors.CategoryValidation
}

func IsDuplicateEvent(err error) bool {
	return HasTextCode(err, IngestErrorDuplicateEvent)
}

func IsInvalidStatus(err error) bool {
	return HasTextCode(err, IngestErrorInvalidStatus)
}

func IsNotFound(err error) bool {
	return HasTextCode(err, IngestErrorNotFound)
}

// MapError normalizes any error into a go-errors envelope with an HTTP code
// and a stable text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureIngestErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureIngestErrorEnvelope(mapped)
}

// HTTPStatus returns the response status for err, 200 when err is nil.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return MapError(err).Code
}

func newIngestError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureIngestErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureIngestErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = ingestHTTPStatus(err.Category)
	}
	if !strings.HasPrefix(strings.TrimSpace(err.TextCode), ingestTextCodePrefix) {
		err.TextCode = defaultIngestTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultIngestTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return IngestErrorBadInput
	case goerrors.CategoryNotFound:
		return IngestErrorNotFound
	case goerrors.CategoryAuth:
		return IngestErrorInvalidSignature
	case goerrors.CategoryConflict:
		return IngestErrorDuplicateEvent
	default:
		return IngestErrorInternal
	}
}

func ingestHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
