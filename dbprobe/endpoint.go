// Package dbprobe attempts a single connection to a database endpoint,
// runs a liveness command and reports the outcome as a HealthReport with a
// classified error kind and remediation hints.
package dbprobe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the database flavour of an endpoint.
type Kind string

const (
	KindMongo    Kind = "mongo"
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindRedis    Kind = "redis"
)

// ValidKinds contains all supported endpoint kinds.
var ValidKinds = map[Kind]bool{
	KindMongo:    true,
	KindPostgres: true,
	KindMySQL:    true,
	KindRedis:    true,
}

// ParseKind normalizes user input ("mongodb", "PostgreSQL", "pg") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mongo", "mongodb":
		return KindMongo, nil
	case "postgres", "postgresql", "pg":
		return KindPostgres, nil
	case "mysql", "mariadb":
		return KindMySQL, nil
	case "redis":
		return KindRedis, nil
	}
	return "", fmt.Errorf("unknown endpoint kind %q", s)
}

// Default timeouts applied when the options do not override them.
const (
	DefaultConnectTimeout         = 5 * time.Second
	DefaultServerSelectionTimeout = 5 * time.Second
	DefaultSocketTimeout          = 10 * time.Second

	MinTimeout = 1 * time.Millisecond
	MaxTimeout = 5 * time.Minute
)

// Option keys recognized in EndpointConfig.Options.
const (
	OptConnectTimeout         = "connectTimeoutMS"
	OptServerSelectionTimeout = "serverSelectionTimeoutMS"
	OptSocketTimeout          = "socketTimeoutMS"
	OptDiagnose               = "diagnose"
)

// EndpointConfig describes one database endpoint to probe.
// Either URI or the Host/Port pair identifies the server.
type EndpointConfig struct {
	Name     string
	Kind     Kind
	URI      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Options  map[string]any
}

// Timeouts holds the three independently configurable bounds of a probe.
type Timeouts struct {
	Connect         time.Duration
	ServerSelection time.Duration
	Socket          time.Duration
}

// DefaultTimeouts returns 5s/5s/10s.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:         DefaultConnectTimeout,
		ServerSelection: DefaultServerSelectionTimeout,
		Socket:          DefaultSocketTimeout,
	}
}

// Liveness is the bound for the liveness stage: selecting a server and
// completing one round-trip on it.
func (t Timeouts) Liveness() time.Duration {
	return t.ServerSelection + t.Socket
}

// Total is the sum of all three bounds.
func (t Timeouts) Total() time.Duration {
	return t.Connect + t.ServerSelection + t.Socket
}

// CapTo lowers every bound to at most remaining. A non-positive remaining
// leaves the bounds unchanged.
func (t Timeouts) CapTo(remaining time.Duration) Timeouts {
	if remaining <= 0 {
		return t
	}
	return Timeouts{
		Connect:         min(t.Connect, remaining),
		ServerSelection: min(t.ServerSelection, remaining),
		Socket:          min(t.Socket, remaining),
	}
}

// Timeouts parses the timeout options, falling back to defaults.
func (c EndpointConfig) Timeouts() (Timeouts, error) {
	t := DefaultTimeouts()
	var err error
	if t.Connect, err = durationOption(c.Options, OptConnectTimeout, t.Connect); err != nil {
		return Timeouts{}, err
	}
	if t.ServerSelection, err = durationOption(c.Options, OptServerSelectionTimeout, t.ServerSelection); err != nil {
		return Timeouts{}, err
	}
	if t.Socket, err = durationOption(c.Options, OptSocketTimeout, t.Socket); err != nil {
		return Timeouts{}, err
	}
	return t, nil
}

// durationOption reads a timeout option. Integers and numeric strings are
// milliseconds; other strings are parsed as Go durations.
func durationOption(opts map[string]any, key string, def time.Duration) (time.Duration, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return def, nil
	}

	var d time.Duration
	switch v := raw.(type) {
	case time.Duration:
		d = v
	case int:
		d = time.Duration(v) * time.Millisecond
	case int64:
		d = time.Duration(v) * time.Millisecond
	case float64:
		d = time.Duration(v * float64(time.Millisecond))
	case string:
		s := strings.TrimSpace(v)
		if ms, err := strconv.Atoi(s); err == nil {
			d = time.Duration(ms) * time.Millisecond
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("option %s: invalid duration %q", key, v)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("option %s: unsupported value type %T", key, raw)
	}

	if d < MinTimeout || d > MaxTimeout {
		return 0, fmt.Errorf("option %s: %s out of range [%s, %s]", key, d, MinTimeout, MaxTimeout)
	}
	return d, nil
}

// BoolOption reads a boolean option, accepting bools and the usual string
// spellings. Unknown values return def.
func (c EndpointConfig) BoolOption(key string, def bool) bool {
	raw, ok := c.Options[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return def
}

// StringOption returns the option as a string, or "" when absent.
func (c EndpointConfig) StringOption(key string) string {
	raw, ok := c.Options[key]
	if !ok || raw == nil {
		return ""
	}
	return fmt.Sprint(raw)
}

// Validate checks that the configuration is complete for its kind.
// The returned error wraps ErrInvalidConfig.
func (c EndpointConfig) Validate() error {
	if !ValidKinds[c.Kind] {
		return configErrorf("unknown endpoint kind %q", c.Kind)
	}

	switch c.Kind {
	case KindMongo:
		if strings.TrimSpace(c.URI) == "" {
			return configErrorf("MongoDB URI is not configured or empty")
		}
		if !hasScheme(c.URI, "mongodb", "mongodb+srv") {
			return configErrorf("invalid MongoDB URI format: scheme must be mongodb:// or mongodb+srv://")
		}
		if _, err := ParseURI(c.URI); err != nil {
			return configErrorf("invalid MongoDB URI: %v", err)
		}
	case KindPostgres:
		if err := c.validateAddressed("postgres", "postgresql"); err != nil {
			return err
		}
		if c.resolvedDatabase() == "" {
			return configErrorf("missing database name for postgres endpoint")
		}
	case KindMySQL:
		if err := c.validateAddressed("mysql"); err != nil {
			return err
		}
	case KindRedis:
		if err := c.validateAddressed("redis", "rediss"); err != nil {
			return err
		}
	}

	if _, err := c.Timeouts(); err != nil {
		return configErrorf("%v", err)
	}
	return nil
}

// validateAddressed accepts either a URI with one of the schemes or an
// explicit host + port pair.
func (c EndpointConfig) validateAddressed(schemes ...string) error {
	if c.URI != "" {
		if !hasScheme(c.URI, schemes...) {
			return configErrorf("invalid %s URI: scheme must be one of %s", c.Kind, strings.Join(schemes, ", "))
		}
		if _, err := ParseURI(c.URI); err != nil {
			return configErrorf("invalid %s URI: %v", c.Kind, err)
		}
		return nil
	}
	if strings.TrimSpace(c.Host) == "" {
		return configErrorf("missing host for %s endpoint", c.Kind)
	}
	if strings.TrimSpace(c.Port) == "" {
		return configErrorf("missing port for %s endpoint", c.Kind)
	}
	if err := validatePort(c.Port); err != nil {
		return configErrorf("%v", err)
	}
	return nil
}

// resolvedDatabase returns Database, or the path component of the URI.
func (c EndpointConfig) resolvedDatabase() string {
	if c.Database != "" {
		return c.Database
	}
	if c.URI != "" {
		if p, err := ParseURI(c.URI); err == nil {
			return p.Database
		}
	}
	return ""
}

// DatabaseOr returns the database the endpoint targets, or def.
func (c EndpointConfig) DatabaseOr(def string) string {
	if db := c.resolvedDatabase(); db != "" {
		return db
	}
	return def
}

// Field is one line of the debug summary attached to failed reports.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Summary returns the non-secret configuration fields in display order.
// The password is reported only as [SET], [EMPTY] or [NOT SET].
func (c EndpointConfig) Summary() []Field {
	orNotSet := func(s string) string {
		if s == "" {
			return "Not set"
		}
		return s
	}

	host, port, user, pass := c.Host, c.Port, c.User, c.Password
	passSet := c.Password != ""
	if c.URI != "" {
		if p, err := ParseURI(c.URI); err == nil {
			host, port = p.HostList(), p.Port
			if user == "" {
				user = p.User
			}
			if pass == "" {
				pass, passSet = p.Password, p.HasPassword
			}
		}
	}

	passState := "[NOT SET]"
	switch {
	case pass != "":
		passState = "[SET]"
	case passSet:
		passState = "[EMPTY]"
	}

	return []Field{
		{Name: "Kind", Value: string(c.Kind)},
		{Name: "Host", Value: orNotSet(host)},
		{Name: "Port", Value: orNotSet(port)},
		{Name: "Database", Value: orNotSet(c.resolvedDatabase())},
		{Name: "Username", Value: orNotSet(user)},
		{Name: "Password", Value: passState},
	}
}

func hasScheme(uri string, schemes ...string) bool {
	lower := strings.ToLower(strings.TrimSpace(uri))
	for _, s := range schemes {
		if strings.HasPrefix(lower, s+"://") {
			return true
		}
	}
	return false
}
