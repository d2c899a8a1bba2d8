package llmerrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPolicyTableRetriesTransportClass(t *testing.T) {
	for _, et := range []ErrorType{ErrorTypeTimeout, ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeEmptyResponse} {
		if PolicyTable[et] != DecisionRetry {
			t.Errorf("expected retry for %s, got %s", et, PolicyTable[et])
		}
	}
}

func TestPolicyTableFallsBackOnValidation(t *testing.T) {
	for _, et := range []ErrorType{ErrorTypeParse, ErrorTypeSchema, ErrorTypeCooldown} {
		if PolicyTable[et] != DecisionFallback {
			t.Errorf("expected fallback for %s, got %s", et, PolicyTable[et])
		}
	}
}

func TestPolicyTableSessionStateFatal(t *testing.T) {
	if PolicyTable[ErrorTypeSessionState] != DecisionFatal {
		t.Error("session state violations must be fatal")
	}
}

func TestDecideForUnclassifiedError(t *testing.T) {
	if got := DecideFor(errors.New("something else")); got != DecisionFallback {
		t.Errorf("unclassified errors must fall back, got %s", got)
	}
}

func TestDecideForWrappedError(t *testing.T) {
	err := fmt.Errorf("observer call: %w", New(ErrorTypeTimeout, "deadline exceeded"))
	if got := DecideFor(err); got != DecisionRetry {
		t.Errorf("expected retry for wrapped timeout, got %s", got)
	}
}

func TestSchemaErrorNamesField(t *testing.T) {
	err := NewSchemaError("scores.correctness", "value 1.4 outside [0,1]")
	if !Is(err, ErrorTypeSchema) {
		t.Fatal("expected schema error type")
	}
	if err.Field != "scores.correctness" {
		t.Errorf("expected field name preserved, got %q", err.Field)
	}
	msg := err.Error()
	if !strings.Contains(msg, "scores.correctness") {
		t.Errorf("error string should name the violated field: %q", msg)
	}
}

func TestIsRetryable(t *testing.T) {
	if New(ErrorTypeSchema, "bad field").IsRetryable() {
		t.Error("schema errors must not be retryable")
	}
	if !New(ErrorTypeTransport, "connection reset").IsRetryable() {
		t.Error("transport errors must be retryable")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(ErrorTypeTransport, cause, "chat call failed")
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}
