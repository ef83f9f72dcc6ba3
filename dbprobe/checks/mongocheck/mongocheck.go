// Package mongocheck provides the MongoDB transport for dbprobe.
//
// Import this package to register the MongoDB transport:
//
//	import _ "github.com/BigKAA/dbprobe/dbprobe/checks/mongocheck"
package mongocheck

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/BigKAA/dbprobe/dbprobe"
)

func init() {
	dbprobe.RegisterTransport(dbprobe.KindMongo, func() dbprobe.Transport { return New() })
}

// MongoDB server error codes with a dedicated classification.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// Options copied from EndpointConfig.Options into the URI query when the
// URI does not set them already.
var passthroughOptions = []string{"appName", "authSource", "replicaSet", "tls", "directConnection"}

// Option configures the Transport.
type Option func(*Transport)

// Transport opens MongoDB sessions. Supports two modes:
//   - Standalone: creates a new client per probe from the endpoint URI
//   - Shared: uses an existing *mongo.Client, never disconnected by the probe
type Transport struct {
	client *mongo.Client
}

// WithClient sets an existing client for shared mode.
func WithClient(client *mongo.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

// New creates a MongoDB transport with the given options.
func New(opts ...Option) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Kind returns dbprobe.KindMongo.
func (t *Transport) Kind() dbprobe.Kind {
	return dbprobe.KindMongo
}

// Open creates the client. The driver connects lazily: server selection
// happens on the first command, which runs in the liveness stage.
func (t *Transport) Open(_ context.Context, cfg dbprobe.EndpointConfig, timeouts dbprobe.Timeouts) (dbprobe.Session, error) {
	if t.client != nil {
		return &session{client: t.client}, nil
	}

	client, err := mongo.Connect(ClientOptions(cfg, timeouts))
	if err != nil {
		return nil, classifyError(err, "connect")
	}
	return &session{client: client, owned: true}, nil
}

// ClientOptions builds the driver options for cfg: the URI with the
// pass-through options merged in, the three probe timeouts, and explicit
// credentials when the URI carries none.
func ClientOptions(cfg dbprobe.EndpointConfig, timeouts dbprobe.Timeouts) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(MergeOptions(cfg)).
		SetConnectTimeout(timeouts.Connect).
		SetServerSelectionTimeout(timeouts.ServerSelection).
		SetTimeout(timeouts.Socket).
		SetRetryReads(false).
		SetRetryWrites(false)

	if cfg.User != "" {
		if p, err := dbprobe.ParseURI(cfg.URI); err == nil && p.User == "" {
			cred := options.Credential{
				Username:   cfg.User,
				Password:   cfg.Password,
				AuthSource: cfg.StringOption("authSource"),
			}
			opts.SetAuth(cred)
		}
	}
	return opts
}

// MergeOptions returns the endpoint URI with the pass-through options
// appended to its query string. Keys already present in the URI win.
func MergeOptions(cfg dbprobe.EndpointConfig) string {
	uri := cfg.URI
	var existing url.Values
	if p, err := dbprobe.ParseURI(uri); err == nil {
		existing = p.Query
	}

	var extra []string
	for _, key := range passthroughOptions {
		v := cfg.StringOption(key)
		if v == "" || existing.Has(key) {
			continue
		}
		extra = append(extra, key+"="+url.QueryEscape(v))
	}
	if len(extra) == 0 {
		return uri
	}

	switch {
	case strings.Contains(uri, "?"):
		uri += "&"
	case hasPath(uri):
		uri += "?"
	default:
		uri += "/?"
	}
	return uri + strings.Join(extra, "&")
}

// hasPath reports whether the URI has a "/" after its authority.
func hasPath(uri string) bool {
	_, rest, ok := strings.Cut(uri, "://")
	return ok && strings.Contains(rest, "/")
}

type session struct {
	client *mongo.Client
	owned  bool
}

// Ping runs {ping: 1} against admin, then buildInfo for the version.
func (s *session) Ping(ctx context.Context) (dbprobe.ServerInfo, error) {
	var reply bson.M
	err := s.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&reply)
	if err != nil {
		return dbprobe.ServerInfo{}, classifyError(err, "ping")
	}
	if !isOK(reply["ok"]) {
		return dbprobe.ServerInfo{}, dbprobe.Classified(dbprobe.ProtocolError, "ping",
			fmt.Errorf("%w: ping returned ok=%v", dbprobe.ErrUnexpectedResponse, reply["ok"]))
	}

	info := dbprobe.ServerInfo{Response: "ok: 1"}
	var build struct {
		Version string `bson:"version"`
	}
	// buildInfo is best effort; some restricted users may not run it.
	if err := s.client.Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&build); err == nil {
		info.Version = build.Version
	}
	return info, nil
}

// Diagnose lists the collections of database.
func (s *session) Diagnose(ctx context.Context, database string) (string, error) {
	names, err := s.client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return "", classifyError(err, "listCollections")
	}
	return fmt.Sprintf("%d collections", len(names)), nil
}

func (s *session) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// isOK accepts the numeric types the server uses for "ok".
func isOK(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 1
	case int32:
		return n == 1
	case int64:
		return n == 1
	case int:
		return n == 1
	case bool:
		return n
	}
	return false
}

// classifyError wraps MongoDB errors with appropriate classification.
// Server selection errors embed the last heartbeat failure, so the message
// is checked for a refused connection before the timeout check.
func classifyError(err error, op string) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) &&
		(serverErr.HasErrorCode(codeAuthenticationFailed) || serverErr.HasErrorCode(codeUnauthorized)) {
		return dbprobe.Classified(dbprobe.AuthenticationFailed, "mongo "+op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "auth error") || strings.Contains(msg, "authentication failed"):
		return dbprobe.Classified(dbprobe.AuthenticationFailed, "mongo "+op, err)
	case strings.Contains(msg, "connection refused"):
		return dbprobe.Classified(dbprobe.ConnectionRefused, "mongo "+op, err)
	case strings.Contains(msg, "no such host"):
		return dbprobe.Classified(dbprobe.HostUnreachable, "mongo "+op, err)
	case strings.Contains(msg, "x509") || strings.Contains(msg, "tls:") || strings.Contains(msg, "certificate"):
		return dbprobe.Classified(dbprobe.TLSFailure, "mongo "+op, err)
	}

	if mongo.IsTimeout(err) {
		return dbprobe.Classified(dbprobe.Timeout, "mongo "+op, err)
	}
	return fmt.Errorf("mongo %s: %w", op, err)
}
