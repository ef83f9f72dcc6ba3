package dbprobe

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPorts per URI scheme.
var DefaultPorts = map[string]string{
	"mongodb":    "27017",
	"postgres":   "5432",
	"postgresql": "5432",
	"mysql":      "3306",
	"redis":      "6379",
	"rediss":     "6379",
}

// schemeToKind maps URI schemes to Kind.
var schemeToKind = map[string]Kind{
	"mongodb":     KindMongo,
	"mongodb+srv": KindMongo,
	"postgres":    KindPostgres,
	"postgresql":  KindPostgres,
	"mysql":       KindMySQL,
	"redis":       KindRedis,
	"rediss":      KindRedis,
}

// HostPort is one host of a (possibly multi-host) connection URI.
type HostPort struct {
	Host string
	Port string
}

// ParsedURI holds the components of a database connection URI.
type ParsedURI struct {
	Scheme      string
	Kind        Kind
	User        string
	Password    string
	HasPassword bool
	Hosts       []HostPort
	Port        string // port of the first host
	Database    string
	Query       url.Values
}

// HostList joins all hosts as "a,b,c" (ports omitted).
func (p ParsedURI) HostList() string {
	hosts := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		hosts = append(hosts, h.Host)
	}
	return strings.Join(hosts, ",")
}

// ParseURI splits scheme://[user[:pass]@]host[:port][,host[:port]...][/db][?query].
// url.Parse is not used because it rejects valid MongoDB seed lists such as
// "a,b:27017".
func ParseURI(raw string) (ParsedURI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedURI{}, fmt.Errorf("empty URI")
	}

	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return ParsedURI{}, fmt.Errorf("missing scheme")
	}
	scheme := strings.ToLower(raw[:idx])
	kind, ok := schemeToKind[scheme]
	if !ok {
		return ParsedURI{}, fmt.Errorf("unsupported scheme %q", scheme)
	}
	rest := raw[idx+3:]

	var rawQuery string
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		rest, rawQuery = rest[:q], rest[q+1:]
	}
	var path string
	if s := strings.IndexByte(rest, '/'); s >= 0 {
		rest, path = rest[:s], rest[s+1:]
	}

	p := ParsedURI{Scheme: scheme, Kind: kind}

	authority := rest
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		userinfo := authority[:at]
		authority = authority[at+1:]
		user, pass, hasPass := strings.Cut(userinfo, ":")
		var err error
		if p.User, err = url.PathUnescape(user); err != nil {
			return ParsedURI{}, fmt.Errorf("invalid user: %w", err)
		}
		if p.Password, err = url.PathUnescape(pass); err != nil {
			return ParsedURI{}, fmt.Errorf("invalid password encoding")
		}
		p.HasPassword = hasPass
	}

	if authority == "" {
		return ParsedURI{}, fmt.Errorf("empty host")
	}

	defaultPort := DefaultPorts[scheme]
	for _, part := range strings.Split(authority, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		host, port, err := extractHostPort(part, defaultPort)
		if err != nil {
			return ParsedURI{}, fmt.Errorf("invalid host %q: %w", part, err)
		}
		p.Hosts = append(p.Hosts, HostPort{Host: host, Port: port})
	}
	if len(p.Hosts) == 0 {
		return ParsedURI{}, fmt.Errorf("no hosts found in %q", authority)
	}
	if scheme == "mongodb+srv" && len(p.Hosts) > 1 {
		return ParsedURI{}, fmt.Errorf("mongodb+srv URI must have exactly one host")
	}
	p.Port = p.Hosts[0].Port

	db, err := url.PathUnescape(path)
	if err != nil {
		return ParsedURI{}, fmt.Errorf("invalid database name: %w", err)
	}
	p.Database = db

	if rawQuery != "" {
		if p.Query, err = url.ParseQuery(rawQuery); err != nil {
			return ParsedURI{}, fmt.Errorf("invalid query: %w", err)
		}
	}

	return p, nil
}

// extractHostPort splits a host:port string, applying default port if missing.
// Handles IPv6 addresses in brackets: [::1]:5432 → host=::1, port=5432.
func extractHostPort(hostPort, defaultPort string) (string, string, error) {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		// No port specified, use default
		host = hostPort
		port = defaultPort

		if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	}

	if host == "" {
		return "", "", fmt.Errorf("empty host")
	}

	if port == "" {
		port = defaultPort
	}

	// mongodb+srv has no port at all.
	if port == "" {
		return host, "", nil
	}

	if err := validatePort(port); err != nil {
		return "", "", err
	}

	return host, port, nil
}

// validatePort checks that port is a valid number in 1-65535.
func validatePort(port string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", p)
	}
	return nil
}
