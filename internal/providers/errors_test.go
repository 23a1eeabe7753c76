package providers

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":           ErrorQuota,
		"429 rate":                     ErrorRate,
		"maximum context length is 8k": ErrorContext,
		"context_length_exceeded":      ErrorContext,
		"prompt too long":              ErrorContext,
		"timeout":                      ErrorTransient,
		"bad request":                  ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
	// An expired per-attempt deadline is a transient attempt failure,
	// never a context-length error.
	if got := ClassifyError(context.DeadlineExceeded); got != ErrorTransient {
		t.Fatalf("classify deadline exceeded: got %s want %s", got, ErrorTransient)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(ErrorQuota) || Retryable(ErrorPermanent) {
		t.Fatalf("quota/permanent must not be retryable")
	}
	if !Retryable(ErrorRate) || !Retryable(ErrorTransient) {
		t.Fatalf("rate/transient must be retryable")
	}
}
