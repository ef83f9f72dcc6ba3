// Package pgcheck provides the PostgreSQL transport for dbprobe.
//
// Import this package to register the PostgreSQL transport:
//
//	import _ "github.com/BigKAA/dbprobe/dbprobe/checks/pgcheck"
package pgcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/BigKAA/dbprobe/dbprobe"
)

func init() {
	dbprobe.RegisterTransport(dbprobe.KindPostgres, func() dbprobe.Transport { return New() })
}

// SQLSTATE codes with a dedicated classification.
const (
	codeInvalidAuthorization = "28000"
	codeInvalidPassword      = "28P01"
	codeInvalidCatalog       = "3D000"
)

// Options copied verbatim from EndpointConfig.Options into the DSN.
var passthroughOptions = []string{"sslmode", "application_name", "search_path"}

const (
	defaultQuery = "SELECT version()"
	schemaQuery  = `SELECT schema_name FROM information_schema.schemata
WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
  AND schema_name NOT LIKE 'pg_toast%'
  AND schema_name NOT LIKE 'pg_temp%'
ORDER BY schema_name`
)

// Option configures the Transport.
type Option func(*Transport)

// Transport opens PostgreSQL sessions. Supports two modes:
//   - Standalone: opens a dedicated connection per probe using a DSN built from the endpoint
//   - Pool: borrows an existing *sql.DB, which is never closed by the probe
type Transport struct {
	db    *sql.DB // nil = standalone, non-nil = pool mode
	dsn   string  // custom DSN for standalone mode (overrides endpoint-based DSN)
	query string  // liveness query
}

// WithDB sets an existing connection pool for pool mode.
func WithDB(db *sql.DB) Option {
	return func(t *Transport) {
		t.db = db
	}
}

// WithDSN sets a custom DSN for standalone mode.
// If set, the endpoint host/port/URI are ignored.
func WithDSN(dsn string) Option {
	return func(t *Transport) {
		t.dsn = dsn
	}
}

// WithQuery sets the liveness query (default "SELECT version()").
// The query must return one text column.
func WithQuery(query string) Option {
	return func(t *Transport) {
		t.query = query
	}
}

// New creates a PostgreSQL transport with the given options.
func New(opts ...Option) *Transport {
	t := &Transport{
		query: defaultQuery,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Kind returns dbprobe.KindPostgres.
func (t *Transport) Kind() dbprobe.Kind {
	return dbprobe.KindPostgres
}

// Open connects to the server. In pool mode the pool is only pinged.
func (t *Transport) Open(ctx context.Context, cfg dbprobe.EndpointConfig, timeouts dbprobe.Timeouts) (dbprobe.Session, error) {
	if t.db != nil {
		if err := t.db.PingContext(ctx); err != nil {
			return nil, classifyError(err, "connect")
		}
		return &session{db: t.db, query: t.query}, nil
	}

	dsn := t.dsn
	if dsn == "" {
		dsn = BuildDSN(cfg, timeouts)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, classifyError(err, "connect")
	}
	return &session{db: db, query: t.query, owned: true}, nil
}

type session struct {
	db    *sql.DB
	query string
	owned bool
}

func (s *session) Ping(ctx context.Context) (dbprobe.ServerInfo, error) {
	var version sql.NullString
	if err := s.db.QueryRowContext(ctx, s.query).Scan(&version); err != nil {
		return dbprobe.ServerInfo{}, classifyError(err, "query")
	}
	if !version.Valid || strings.TrimSpace(version.String) == "" {
		return dbprobe.ServerInfo{}, dbprobe.Classified(dbprobe.ProtocolError, "query",
			fmt.Errorf("%w: empty result from %q", dbprobe.ErrUnexpectedResponse, s.query))
	}
	return dbprobe.ServerInfo{Version: version.String, Response: "1 row"}, nil
}

// Diagnose lists the user schemas of the connected database. The session
// is already bound to a database, so the argument only labels the result.
func (s *session) Diagnose(ctx context.Context, _ string) (string, error) {
	rows, err := s.db.QueryContext(ctx, schemaQuery)
	if err != nil {
		return "", classifyError(err, "list schemas")
	}
	defer func() { _ = rows.Close() }()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("postgres list schemas: %w", err)
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return "", classifyError(err, "list schemas")
	}
	return describeSchemas(schemas), nil
}

func (s *session) Close(_ context.Context) error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func describeSchemas(schemas []string) string {
	if len(schemas) == 0 {
		return "no user schemas"
	}
	return fmt.Sprintf("%d schemas: %s", len(schemas), strings.Join(schemas, ", "))
}

// BuildDSN returns the connection string for cfg. URIs are used as given,
// with connect_timeout appended when missing; host/port endpoints become a
// key/value DSN.
func BuildDSN(cfg dbprobe.EndpointConfig, timeouts dbprobe.Timeouts) string {
	connectTimeout := strconv.Itoa(timeoutSeconds(timeouts))

	if cfg.URI != "" {
		dsn := cfg.URI
		if !strings.Contains(dsn, "connect_timeout=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "connect_timeout=" + connectTimeout
		}
		return dsn
	}

	params := map[string]string{
		"host":            cfg.Host,
		"port":            cfg.Port,
		"dbname":          cfg.Database,
		"connect_timeout": connectTimeout,
	}
	if cfg.User != "" {
		params["user"] = cfg.User
	}
	if cfg.Password != "" {
		params["password"] = cfg.Password
	}
	for _, key := range passthroughOptions {
		if v := cfg.StringOption(key); v != "" {
			params[key] = v
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(params[k]))
	}
	return strings.Join(parts, " ")
}

// timeoutSeconds converts the connect timeout to libpq's whole seconds,
// rounding up so sub-second values do not become "no timeout".
func timeoutSeconds(t dbprobe.Timeouts) int {
	secs := int(math.Ceil(t.Connect.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// quoteValue quotes a key/value DSN value when needed.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// classifyError wraps PostgreSQL errors with appropriate classification.
// Detects auth errors via SQLSTATE codes 28000/28P01 and missing databases
// via 3D000. Anything else is left to dbprobe.Classify.
func classifyError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidAuthorization, codeInvalidPassword:
			return dbprobe.Classified(dbprobe.AuthenticationFailed, "postgres "+op, err)
		case codeInvalidCatalog:
			return dbprobe.Classified(dbprobe.DatabaseNotFound, "postgres "+op, err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, codeInvalidAuthorization) || strings.Contains(msg, codeInvalidPassword) ||
		strings.Contains(msg, "password authentication failed") {
		return dbprobe.Classified(dbprobe.AuthenticationFailed, "postgres "+op, err)
	}
	if strings.Contains(msg, codeInvalidCatalog) {
		return dbprobe.Classified(dbprobe.DatabaseNotFound, "postgres "+op, err)
	}
	if pgconn.Timeout(err) {
		return dbprobe.Classified(dbprobe.Timeout, "postgres "+op, err)
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}
