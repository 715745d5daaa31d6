package core

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestIngestErrors_AssignStableCodesAndStatuses(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		textCode string
		status   int
	}{
		{name: "missing signature", err: MissingSignatureError(), textCode: IngestErrorMissingSignature, status: http.StatusUnauthorized},
		{name: "invalid signature", err: InvalidSignatureError("digest mismatch"), textCode: IngestErrorInvalidSignature, status: http.StatusUnauthorized},
		{name: "stale timestamp", err: StaleTimestampError(1, 1000, 300), textCode: IngestErrorStaleTimestamp, status: http.StatusUnauthorized},
		{name: "duplicate", err: DuplicateEventError("evt_1"), textCode: IngestErrorDuplicateEvent, status: http.StatusConflict},
		{name: "invalid status", err: InvalidStatusError("unknown"), textCode: IngestErrorInvalidStatus, status: http.StatusInternalServerError},
		{name: "storage", err: StorageFailureError(stderrors.New("disk full"), "commit"), textCode: IngestErrorStorageFailure, status: http.StatusInternalServerError},
		{name: "bad input", err: BadInputError("bad json"), textCode: IngestErrorBadInput, status: http.StatusBadRequest},
		{name: "not found", err: NotFoundError("missing"), textCode: IngestErrorNotFound, status: http.StatusNotFound},
	}
	for _, tc := range cases {
		var richErr *goerrors.Error
		if !goerrors.As(tc.err, &richErr) {
			t.Fatalf("%s: expected go-errors type, got %T", tc.name, tc.err)
		}
		if richErr.TextCode != tc.textCode {
			t.Fatalf("%s: expected text code %q, got %q", tc.name, tc.textCode, richErr.TextCode)
		}
		if got := HTTPStatus(tc.err); got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.status, got)
		}
	}
}

func TestIngestErrors_ClassificationHelpers(t *testing.T) {
	if !IsAuthError(MissingSignatureError()) || !IsAuthError(StaleTimestampError(0, 500, 300)) {
		t.Fatalf("expected auth classification for signature and timestamp errors")
	}
	if IsAuthError(DuplicateEventError("evt_1")) {
		t.Fatalf("expected duplicate not to be an auth error")
	}
	wrapped := fmt.Errorf("outer: %w", DuplicateEventError("evt_1"))
	if !IsDuplicateEvent(wrapped) {
		t.Fatalf("expected duplicate classification through wrapping")
	}
	if IsDuplicateEvent(stderrors.New("plain")) {
		t.Fatalf("expected plain error not to classify as duplicate")
	}
	if !IsClientError(fmt.Errorf("decode: %w", BadInputError("malformed JSON body"))) {
		t.Fatalf("expected wrapped bad input to classify as a client error")
	}
	if IsClientError(StorageFailureError(nil, "commit")) || IsClientError(stderrors.New("plain")) {
		t.Fatalf("expected server and plain errors not to classify as client errors")
	}
}

func TestMapError_ReplacesForeignTextCodes(t *testing.T) {
	foreign := goerrors.New("upstream rejected", goerrors.CategoryBadInput).WithTextCode("UPSTREAM_BAD")
	if mapped := MapError(foreign); mapped.TextCode != IngestErrorBadInput || mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected foreign bad input to map to 400 %s, got %d %q", IngestErrorBadInput, mapped.Code, mapped.TextCode)
	}
	if mapped := MapError(DuplicateEventError("evt_1")); mapped.TextCode != IngestErrorDuplicateEvent {
		t.Fatalf("expected ingest text code to survive mapping, got %q", mapped.TextCode)
	}
}

func TestMapError_WrapsPlainErrors(t *testing.T) {
	mapped := MapError(stderrors.New("boom"))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.Code != http.StatusInternalServerError || mapped.TextCode != IngestErrorInternal {
		t.Fatalf("expected 500 %s on mapped error, got %d %q", IngestErrorInternal, mapped.Code, mapped.TextCode)
	}
	if HTTPStatus(nil) != http.StatusOK {
		t.Fatalf("expected 200 for nil error")
	}
}
