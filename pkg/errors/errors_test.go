package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:       http.StatusBadRequest,
		CodeInvalidSignature: http.StatusBadRequest,
		CodeNotFound:         http.StatusNotFound,
		CodeStateConflict:    http.StatusUnprocessableEntity,
		CodeDependency:       http.StatusServiceUnavailable,
		CodeInternal:         http.StatusInternalServerError,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s: expected status %d, got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestDependencyErrorsAreRetryable(t *testing.T) {
	if !MetadataFor(CodeDependency).Retryable {
		t.Fatal("dependency errors must be retryable so webhook senders redeliver")
	}
	if MetadataFor(CodeInvalidSignature).Retryable {
		t.Fatal("signature failures must not be marked retryable")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "create payment session")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	typed := As(err)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected typed dependency error, got %v", typed)
	}
}

func TestAsReturnsNilForForeignErrors(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for non-coded error")
	}
}
