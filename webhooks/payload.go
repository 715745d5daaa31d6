package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-webhook-ingest/core"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type payloadEnvelope struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Timestamp json.RawMessage      `json:"timestamp"`
	Data      core.TransactionData `json:"data"`
}

// DecodePayload parses a notification body. The timestamp may be epoch
// seconds (number or numeric string) or an ISO-8601 instant; zone-less
// instants are read as UTC.
func DecodePayload(body []byte) (core.WebhookPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return core.WebhookPayload{}, core.BadInputError("webhook body is empty")
	}
	var envelope payloadEnvelope
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&envelope); err != nil {
		return core.WebhookPayload{}, core.BadInputError(fmt.Sprintf("malformed webhook body: %v", err))
	}
	timestamp, err := parseTimestamp(envelope.Timestamp)
	if err != nil {
		return core.WebhookPayload{}, core.BadInputError(err.Error())
	}
	return core.WebhookPayload{
		EventID:   strings.TrimSpace(envelope.EventID),
		EventType: strings.TrimSpace(envelope.EventType),
		Timestamp: timestamp,
		Data:      envelope.Data,
	}, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, fmt.Errorf("webhook timestamp is required")
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return time.Time{}, fmt.Errorf("webhook timestamp is malformed")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return time.Time{}, fmt.Errorf("webhook timestamp is required")
		}
		if seconds, err := strconv.ParseFloat(text, 64); err == nil {
			return epochSeconds(seconds)
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, text); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("webhook timestamp %q is not an ISO-8601 instant", text)
	}
	seconds, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("webhook timestamp is malformed")
	}
	return epochSeconds(seconds)
}

func epochSeconds(seconds float64) (time.Time, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}, fmt.Errorf("webhook timestamp is malformed")
	}
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC(), nil
}
