package dbprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Classify determines the ErrorKind for a failed probe stage.
// Classification chain, first match wins:
//  1. ClassifiedError interface
//  2. Sentinel errors
//  3. Platform error detection (context, net, tls, x509)
//  4. Keyword heuristic over the error text
//  5. Fallback → GeneralError
//
// Classify(nil) returns "".
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	// 1. ClassifiedError interface, highest priority.
	var ce ClassifiedError
	if errors.As(err, &ce) {
		return ce.ErrorKind()
	}

	// 2. Sentinel errors.
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ConfigurationError
	case errors.Is(err, ErrTransportUnavailable):
		return ExtensionUnavailable
	case errors.Is(err, ErrTimeout):
		return Timeout
	case errors.Is(err, ErrConnectionRefused):
		return ConnectionRefused
	case errors.Is(err, ErrUnexpectedResponse):
		return ProtocolError
	}

	// 3. Platform error detection.
	if kind, ok := classifyPlatform(err); ok {
		return kind
	}

	// 4. Heuristic.
	if kind, ok := ClassifyMessage(err.Error()); ok {
		return kind
	}

	// 5. Fallback.
	return GeneralError
}

func classifyPlatform(err error) (ErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return Timeout, true
		}
		return HostUnreachable, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectionRefused, true
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return HostUnreachable, true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Timeout() {
		return Timeout, true
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return TLSFailure, true
	}
	var authorityErr x509.UnknownAuthorityError
	if errors.As(err, &authorityErr) {
		return TLSFailure, true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return TLSFailure, true
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return TLSFailure, true
	}

	return "", false
}

// keywordRule matches when every word in all is present in the message.
type keywordRule struct {
	kind ErrorKind
	all  []string
}

// keywordRules is the ordered heuristic table. It is inherently fragile:
// driver messages change between versions, and the order matters because a
// message can contain keywords of several kinds. Typed errors (step 1-3 of
// Classify) always take precedence.
var keywordRules = []keywordRule{
	{ExtensionUnavailable, []string{"extension"}},
	{ExtensionUnavailable, []string{"unknown driver"}},
	{ConnectionRefused, []string{"connection refused"}},
	{ConnectionRefused, []string{"could not connect"}},
	{ConnectionRefused, []string{"actively refused"}},
	{AuthenticationFailed, []string{"authentication"}},
	{AuthenticationFailed, []string{"password"}},
	{AuthenticationFailed, []string{"access denied"}},
	{AuthenticationFailed, []string{"noauth"}},
	{AuthenticationFailed, []string{"wrongpass"}},
	{AuthenticationFailed, []string{"unauthorized"}},
	{DatabaseNotFound, []string{"database", "does not exist"}},
	{DatabaseNotFound, []string{"unknown database"}},
	{TLSFailure, []string{"tls"}},
	{TLSFailure, []string{"x509"}},
	{TLSFailure, []string{"certificate"}},
	{TLSFailure, []string{"ssl"}},
	{Timeout, []string{"timeout"}},
	{Timeout, []string{"timed out"}},
	{Timeout, []string{"deadline exceeded"}},
	{HostUnreachable, []string{"no such host"}},
	{HostUnreachable, []string{"unreachable"}},
	{HostUnreachable, []string{"no route to host"}},
	{HostUnreachable, []string{"host"}},
}

// ClassifyMessage applies the keyword heuristic to a free-text driver
// message. It reports false when no rule matches.
func ClassifyMessage(msg string) (ErrorKind, bool) {
	lower := strings.ToLower(msg)
	for _, r := range keywordRules {
		if containsAll(lower, r.all) {
			return r.kind, true
		}
	}
	return "", false
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}
