package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Observer emits one log line plus counter/histogram samples per operation.
type Observer struct {
	Logger  Logger
	Metrics MetricsRecorder
}

// Observe records the outcome of operation. Rejections (auth failures,
// duplicates and bad client input) log at info, all other failures at error.
func (o Observer) Observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	switch {
	case err == nil:
	case IsAuthError(err) || IsDuplicateEvent(err) || IsClientError(err):
		status = "rejected"
	default:
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["operation"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
		if mapped := MapError(err); mapped != nil {
			contextFields["text_code"] = mapped.TextCode
		}
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	if value := strings.TrimSpace(fmt.Sprint(contextFields["text_code"])); value != "" && value != "<nil>" {
		tags["text_code"] = value
	}

	o.recordCounter(ctx, "ingest."+operation+".total", 1, tags)
	o.recordHistogram(ctx, "ingest."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	switch status {
	case "failure":
		o.log(ctx, "error", operation+" failed", contextFields)
	case "rejected":
		o.log(ctx, "info", operation+" rejected", contextFields)
	default:
		o.log(ctx, "info", operation+" succeeded", contextFields)
	}
}

func (o Observer) log(ctx context.Context, level string, message string, fields map[string]any) {
	if o.Logger == nil {
		return
	}
	logger := o.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (o Observer) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (o Observer) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
