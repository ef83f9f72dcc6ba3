package dbprobe

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_Valid(t *testing.T) {
	for _, k := range AllErrorKinds {
		if !k.Valid() {
			t.Errorf("%q: expected valid", k)
		}
	}
	if ErrorKind("Nope").Valid() {
		t.Error("unknown kind reported as valid")
	}
	if len(AllErrorKinds) != 10 {
		t.Errorf("expected 10 error kinds, got %d", len(AllErrorKinds))
	}
}

func TestProbeError_Error(t *testing.T) {
	err := &ProbeError{Kind: Timeout, Op: "ping", Cause: errors.New("i/o timeout")}
	if got := err.Error(); got != "ping: i/o timeout" {
		t.Errorf("Error() = %q, expected %q", got, "ping: i/o timeout")
	}

	bare := &ProbeError{Kind: ProtocolError}
	if got := bare.Error(); got != "ProtocolError" {
		t.Errorf("Error() without cause = %q, expected %q", got, "ProtocolError")
	}
}

func TestProbeError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial: %w", ErrConnectionRefused)
	err := Classified(ConnectionRefused, "connect", cause)

	if !errors.Is(err, ErrConnectionRefused) {
		t.Error("expected errors.Is to reach the sentinel through ProbeError")
	}

	var ce ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatal("expected ProbeError to implement ClassifiedError")
	}
	if ce.ErrorKind() != ConnectionRefused {
		t.Errorf("ErrorKind() = %s, expected %s", ce.ErrorKind(), ConnectionRefused)
	}
}
