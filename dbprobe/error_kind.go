package dbprobe

// ErrorKind classifies why a probe failed.
// It is empty on a successful HealthReport.
type ErrorKind string

const (
	// ConfigurationError means the endpoint configuration is incomplete or malformed.
	// No connection attempt is made.
	ConfigurationError ErrorKind = "ConfigurationError"
	// ExtensionUnavailable means no transport (driver) is registered for the endpoint kind.
	ExtensionUnavailable ErrorKind = "ExtensionUnavailable"
	// Timeout means a connect, server-selection or socket bound was exceeded.
	Timeout ErrorKind = "Timeout"
	// ConnectionRefused means the server actively refused the connection.
	ConnectionRefused ErrorKind = "ConnectionRefused"
	// AuthenticationFailed means the server rejected the credentials.
	AuthenticationFailed ErrorKind = "AuthenticationFailed"
	// TLSFailure means the TLS handshake or certificate verification failed.
	TLSFailure ErrorKind = "TLSFailure"
	// HostUnreachable means the host could not be resolved or routed to.
	HostUnreachable ErrorKind = "HostUnreachable"
	// DatabaseNotFound means the configured database does not exist.
	DatabaseNotFound ErrorKind = "DatabaseNotFound"
	// ProtocolError means the server answered the liveness command with a
	// non-affirmative or malformed response.
	ProtocolError ErrorKind = "ProtocolError"
	// GeneralError is the fallback for anything not matched above.
	GeneralError ErrorKind = "GeneralError"
)

// AllErrorKinds lists every member of the taxonomy in a stable order.
var AllErrorKinds = []ErrorKind{
	ConfigurationError,
	ExtensionUnavailable,
	Timeout,
	ConnectionRefused,
	AuthenticationFailed,
	TLSFailure,
	HostUnreachable,
	DatabaseNotFound,
	ProtocolError,
	GeneralError,
}

// Valid reports whether k is a member of the taxonomy.
func (k ErrorKind) Valid() bool {
	for _, v := range AllErrorKinds {
		if k == v {
			return true
		}
	}
	return false
}

// ClassifiedError is implemented by errors that already know their ErrorKind.
// Transports return such errors when the driver exposes typed failures
// (SQLSTATE codes, server error codes) so the classifier does not have to
// guess from the message text.
type ClassifiedError interface {
	error
	ErrorKind() ErrorKind
}

// ProbeError is the concrete ClassifiedError used by transports.
type ProbeError struct {
	Kind  ErrorKind
	Op    string // stage or driver operation, e.g. "connect", "ping"
	Cause error
}

// Error returns the error message, prefixed with Op when present.
func (e *ProbeError) Error() string {
	msg := string(e.Kind)
	if e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause for use with errors.Is/As.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// ErrorKind returns the classification carried by the error.
func (e *ProbeError) ErrorKind() ErrorKind {
	return e.Kind
}

// Classified wraps cause with an explicit ErrorKind.
func Classified(kind ErrorKind, op string, cause error) error {
	return &ProbeError{Kind: kind, Op: op, Cause: cause}
}
