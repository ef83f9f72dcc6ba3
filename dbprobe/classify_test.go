package dbprobe

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil); got != "" {
		t.Errorf("nil error: expected empty kind, got %q", got)
	}
}

func TestClassify_ClassifiedError(t *testing.T) {
	err := Classified(AuthenticationFailed, "postgres connect", errors.New("password authentication failed"))
	if got := Classify(err); got != AuthenticationFailed {
		t.Errorf("expected %s, got %s", AuthenticationFailed, got)
	}
}

func TestClassify_WrappedClassifiedError(t *testing.T) {
	inner := &ProbeError{Kind: DatabaseNotFound}
	err := fmt.Errorf("probe failed: %w", inner)
	if got := Classify(err); got != DatabaseNotFound {
		t.Errorf("expected %s, got %s", DatabaseNotFound, got)
	}
}

func TestClassify_ClassifiedWinsOverHeuristic(t *testing.T) {
	// The message alone would read as a timeout.
	err := Classified(ConnectionRefused, "dial", errors.New("i/o timeout"))
	if got := Classify(err); got != ConnectionRefused {
		t.Errorf("expected typed kind %s to win, got %s", ConnectionRefused, got)
	}
}

func TestClassify_Sentinels(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrInvalidConfig, ConfigurationError},
		{ErrTransportUnavailable, ExtensionUnavailable},
		{ErrTimeout, Timeout},
		{ErrConnectionRefused, ConnectionRefused},
		{ErrUnexpectedResponse, ProtocolError},
		{fmt.Errorf("postgres: %w", ErrConnectionRefused), ConnectionRefused},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %s, expected %s", tt.err, got, tt.want)
		}
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	if got := Classify(fmt.Errorf("query: %w", context.DeadlineExceeded)); got != Timeout {
		t.Errorf("expected %s, got %s", Timeout, got)
	}
}

func TestClassify_DNSError(t *testing.T) {
	err := &net.DNSError{Err: "no such host", Name: "db.invalid", IsNotFound: true}
	if got := Classify(err); got != HostUnreachable {
		t.Errorf("expected %s, got %s", HostUnreachable, got)
	}

	err = &net.DNSError{Err: "i/o timeout", Name: "db.example", IsTimeout: true}
	if got := Classify(err); got != Timeout {
		t.Errorf("DNS timeout: expected %s, got %s", Timeout, got)
	}
}

func TestClassify_ConnectionRefused(t *testing.T) {
	err := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}
	if got := Classify(err); got != ConnectionRefused {
		t.Errorf("expected %s, got %s", ConnectionRefused, got)
	}
}

func TestClassify_HostUnreachable(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EHOSTUNREACH, syscall.ENETUNREACH} {
		err := &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: errno}}
		if got := Classify(err); got != HostUnreachable {
			t.Errorf("%v: expected %s, got %s", errno, HostUnreachable, got)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_OpErrorTimeout(t *testing.T) {
	err := &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}
	if got := Classify(err); got != Timeout {
		t.Errorf("expected %s, got %s", Timeout, got)
	}
}

func TestClassify_X509(t *testing.T) {
	err := fmt.Errorf("handshake: %w", x509.UnknownAuthorityError{})
	if got := Classify(err); got != TLSFailure {
		t.Errorf("expected %s, got %s", TLSFailure, got)
	}
}

func TestClassify_Fallback(t *testing.T) {
	if got := Classify(errors.New("something odd happened")); got != GeneralError {
		t.Errorf("expected %s, got %s", GeneralError, got)
	}
}

func TestClassifyMessage_Keywords(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorKind
	}{
		{"pgsql extension is not loaded", ExtensionUnavailable},
		{`sql: unknown driver "pgx" (forgotten import?)`, ExtensionUnavailable},
		{"dial tcp 10.0.0.1:5432: connection refused", ConnectionRefused},
		{"could not connect to server", ConnectionRefused},
		{"No connection could be made because the target machine actively refused it", ConnectionRefused},
		{"Authentication failed.", AuthenticationFailed},
		{"FATAL: password authentication failed for user \"app\"", AuthenticationFailed},
		{"Error 1045: Access denied for user 'root'", AuthenticationFailed},
		{"NOAUTH Authentication required.", AuthenticationFailed},
		{"WRONGPASS invalid username-password pair", AuthenticationFailed},
		{"command find requires authentication: unauthorized", AuthenticationFailed},
		{"FATAL: database \"shop\" does not exist", DatabaseNotFound},
		{"Error 1049: Unknown database 'shop'", DatabaseNotFound},
		{"remote error: tls: handshake failure", TLSFailure},
		{"x509: certificate has expired", TLSFailure},
		{"certificate is not valid for this name", TLSFailure},
		{"SSL is not enabled on the server", TLSFailure},
		{"i/o timeout", Timeout},
		{"operation timed out", Timeout},
		{"context deadline exceeded", Timeout},
		{"lookup db.internal: no such host", HostUnreachable},
		{"network is unreachable", HostUnreachable},
		{"connect: no route to host", HostUnreachable},
		{"unknown host db.internal", HostUnreachable},
	}
	for _, tt := range tests {
		got, ok := ClassifyMessage(tt.msg)
		if !ok || got != tt.want {
			t.Errorf("ClassifyMessage(%q) = %s/%v, expected %s", tt.msg, got, ok, tt.want)
		}
	}
}

func TestClassifyMessage_NoMatch(t *testing.T) {
	if kind, ok := ClassifyMessage("unexpected EOF"); ok {
		t.Errorf("expected no match, got %s", kind)
	}
}

func TestClassifyMessage_OrderMatters(t *testing.T) {
	// Refused beats the generic "host" rule.
	got, _ := ClassifyMessage("failed to connect to host=db: connection refused")
	if got != ConnectionRefused {
		t.Errorf("expected %s, got %s", ConnectionRefused, got)
	}
}

func TestClassifyMessage_ExtensionFirst(t *testing.T) {
	// A missing driver wins over the host/password words in the same message.
	got, _ := ClassifyMessage("pg_connect(): extension missing, cannot reach host with password")
	if got != ExtensionUnavailable {
		t.Errorf("expected %s, got %s", ExtensionUnavailable, got)
	}
}
