// Package redischeck provides the Redis transport for dbprobe.
//
// Import this package to register the Redis transport:
//
//	import _ "github.com/BigKAA/dbprobe/dbprobe/checks/redischeck"
package redischeck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/BigKAA/dbprobe/dbprobe"
)

func init() {
	dbprobe.RegisterTransport(dbprobe.KindRedis, func() dbprobe.Transport { return New() })
}

// Option configures the Transport.
type Option func(*Transport)

// Transport opens Redis sessions and probes them with PING. Supports two modes:
//   - Standalone: creates a new redis client per probe
//   - Pool: uses an existing redis.Cmdable (Client, ClusterClient, etc.), never closed by the probe
type Transport struct {
	client redis.Cmdable // nil = standalone, non-nil = pool mode
}

// WithClient sets an existing Redis client for pool mode.
func WithClient(client redis.Cmdable) Option {
	return func(t *Transport) {
		t.client = client
	}
}

// New creates a Redis transport with the given options.
func New(opts ...Option) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Kind returns dbprobe.KindRedis.
func (t *Transport) Kind() dbprobe.Kind {
	return dbprobe.KindRedis
}

// Open dials the server. The first round-trip performs the handshake
// (AUTH, SELECT), so a bad password or database fails here.
func (t *Transport) Open(ctx context.Context, cfg dbprobe.EndpointConfig, timeouts dbprobe.Timeouts) (dbprobe.Session, error) {
	if t.client != nil {
		if err := t.client.Ping(ctx).Err(); err != nil {
			return nil, classifyError(err, "connect")
		}
		return &session{cmd: t.client}, nil
	}

	opts, err := ClientOptions(cfg, timeouts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dbprobe.ErrInvalidConfig, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, classifyError(err, "connect")
	}
	return &session{cmd: client, client: client}, nil
}

// ClientOptions builds go-redis options for cfg. Explicit Password and
// Database override the values embedded in the URI.
func ClientOptions(cfg dbprobe.EndpointConfig, timeouts dbprobe.Timeouts) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.URI != "" {
		parsed, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse redis URI: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: net.JoinHostPort(cfg.Host, cfg.Port)}
		if cfg.User != "" {
			opts.Username = cfg.User
		}
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.Database != "" {
		db, err := strconv.Atoi(cfg.Database)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("invalid redis database %q: must be a non-negative integer", cfg.Database)
		}
		opts.DB = db
	}

	// Single attempt; a probe never retries.
	opts.MaxRetries = -1
	opts.PoolSize = 1
	opts.DialTimeout = timeouts.Connect
	opts.ReadTimeout = timeouts.Socket
	opts.WriteTimeout = timeouts.Socket
	opts.ContextTimeoutEnabled = true
	return opts, nil
}

type session struct {
	cmd    redis.Cmdable
	client *redis.Client // nil in pool mode
}

func (s *session) Ping(ctx context.Context) (dbprobe.ServerInfo, error) {
	pong, err := s.cmd.Ping(ctx).Result()
	if err != nil {
		return dbprobe.ServerInfo{}, classifyError(err, "ping")
	}
	if !strings.EqualFold(pong, "PONG") {
		return dbprobe.ServerInfo{}, dbprobe.Classified(dbprobe.ProtocolError, "ping",
			fmt.Errorf("%w: PING returned %q", dbprobe.ErrUnexpectedResponse, pong))
	}

	info := dbprobe.ServerInfo{Response: pong}
	// INFO is best effort: some proxies and managed services disable it.
	if raw, err := s.cmd.Info(ctx, "server").Result(); err == nil {
		info.Version = infoField(raw, "redis_version")
	}
	return info, nil
}

// Diagnose reports the key count of the selected database.
func (s *session) Diagnose(ctx context.Context, _ string) (string, error) {
	n, err := s.cmd.DBSize(ctx).Result()
	if err != nil {
		return "", classifyError(err, "dbsize")
	}
	return fmt.Sprintf("%d keys", n), nil
}

func (s *session) Close(_ context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// infoField extracts one "key:value" line from an INFO reply.
func infoField(info, key string) string {
	for _, line := range strings.Split(info, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && k == key {
			return v
		}
	}
	return ""
}

// classifyError wraps Redis errors with appropriate classification.
func classifyError(err error, op string) error {
	msg := err.Error()

	// Auth errors.
	if strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "WRONGPASS") ||
		strings.Contains(msg, "invalid password") || strings.Contains(msg, "invalid username-password pair") {
		return dbprobe.Classified(dbprobe.AuthenticationFailed, "redis "+op, err)
	}

	// go-redis wraps net.OpError; detect refusal via the error chain.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return dbprobe.Classified(dbprobe.ConnectionRefused, "redis "+op, err)
		}
		if opErr.Timeout() {
			return dbprobe.Classified(dbprobe.Timeout, "redis "+op, err)
		}
	}

	// Message-based fallback for connection refused.
	if strings.Contains(msg, "connection refused") {
		return dbprobe.Classified(dbprobe.ConnectionRefused, "redis "+op, err)
	}

	// SELECT of a database index the server does not have.
	if strings.Contains(msg, "DB index is out of range") {
		return dbprobe.Classified(dbprobe.DatabaseNotFound, "redis "+op, err)
	}

	return fmt.Errorf("redis %s: %w", op, err)
}
