package inbound

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhook-ingest/core"
)

const internalErrorMessage = "Internal server error"

type fieldErrorBody struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorBody renders err as {error, status, text_code, timestamp} plus
// fields for validation failures. Server errors never echo their cause.
func errorBody(err error, now time.Time) (int, gin.H) {
	mapped := core.MapError(err)
	if mapped == nil {
		mapped = goerrors.New(internalErrorMessage, goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.IngestErrorInternal)
	}
	status := mapped.Code
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	message := mapped.Message
	if status >= http.StatusInternalServerError {
		message = internalErrorMessage
	}
	body := gin.H{
		"error":     message,
		"status":    status,
		"text_code": mapped.TextCode,
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if fieldErrs := mapped.AllValidationErrors(); len(fieldErrs) > 0 {
		fields := make([]fieldErrorBody, 0, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			fields = append(fields, fieldErrorBody{Field: fieldErr.Field, Message: fieldErr.Message})
		}
		body["fields"] = fields
	}
	return status, body
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := errorBody(err, h.now())
	c.AbortWithStatusJSON(status, body)
}
