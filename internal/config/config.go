// Package config loads the dbprobe CLI configuration.
// It uses koanf to merge an optional YAML file with environment variables;
// environment variables take precedence over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/BigKAA/dbprobe/dbprobe"
)

// Config holds everything the CLI needs to run probes.
type Config struct {
	Log       LogConfig
	Timeout   time.Duration // bound for one whole probe; 0 disables it
	Diagnose  bool          // run the secondary read-only diagnostic
	Endpoints []dbprobe.EndpointConfig
}

// LogConfig selects the zap level and encoding. File, when set, sends logs
// to a rotated file instead of stderr.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// endpointEntry is one element of the endpoints list in the YAML file.
type endpointEntry struct {
	Name    string         `koanf:"name"`
	Kind    string         `koanf:"kind"`
	URI     string         `koanf:"uri"`
	Host    string         `koanf:"host"`
	Port    string         `koanf:"port"`
	User    string         `koanf:"user"`
	Pass    string         `koanf:"pass"`
	DB      string         `koanf:"db"`
	Options map[string]any `koanf:"options"`
}

// Configuration validation errors.
var (
	ErrNoEndpoints      = errors.New("no endpoints configured: set endpoints in the config file or MONGO_URI / PG_HOST / MYSQL_URL / REDIS_URL")
	ErrInvalidLogLevel  = errors.New("log.level must be one of debug, info, warn, error")
	ErrInvalidLogFormat = errors.New("log.format must be json or console")
	ErrInvalidTimeout   = errors.New("timeout must be a non-negative duration")
	ErrDuplicateName    = errors.New("duplicate endpoint name")
)

// Default values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultTimeout   = 30 * time.Second
)

// EnvConfigPath names the config file when no path is passed to Load.
const EnvConfigPath = "DBPROBE_CONFIG"

// Load reads configuration from an optional YAML file and the environment.
// An empty path falls back to $DBPROBE_CONFIG; no path at all means
// environment only. Returns the loaded config and every validation error
// found (empty if valid). A file that cannot be read is a single error.
func Load(path string) (*Config, []error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", path, err)}
		}
	}

	var errs []error

	timeout, err := getEnvDurationOrKoanf("DBPROBE_TIMEOUT", k, "timeout", DefaultTimeout)
	if err != nil {
		errs = append(errs, err)
	}

	diagnose := true
	if k.Exists("diagnose") {
		diagnose = k.Bool("diagnose")
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  strings.ToLower(getEnvOrDefault("DBPROBE_LOG_LEVEL", k.String("log.level"), DefaultLogLevel)),
			Format: strings.ToLower(getEnvOrDefault("DBPROBE_LOG_FORMAT", k.String("log.format"), DefaultLogFormat)),
			File:   getEnvOrDefault("DBPROBE_LOG_FILE", k.String("log.file"), ""),
		},
		Timeout:  timeout,
		Diagnose: diagnose,
	}

	var entries []endpointEntry
	if k.Exists("endpoints") {
		if err := k.Unmarshal("endpoints", &entries); err != nil {
			errs = append(errs, fmt.Errorf("endpoints: %w", err))
		}
	}
	for i, e := range entries {
		ep, err := e.toEndpoint()
		if err != nil {
			errs = append(errs, fmt.Errorf("endpoints[%d]: %w", i, err))
			continue
		}
		cfg.Endpoints = append(cfg.Endpoints, ep)
	}
	cfg.Endpoints = applyEnvEndpoints(cfg.Endpoints)

	errs = append(errs, cfg.Validate()...)
	return cfg, errs
}

// Validate checks the CLI-level settings. Endpoint completeness is left to
// the prober, which reports it as a ConfigurationError per endpoint.
func (c *Config) Validate() []error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w, got %q", ErrInvalidLogLevel, c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w, got %q", ErrInvalidLogFormat, c.Log.Format))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w, got %s", ErrInvalidTimeout, c.Timeout))
	}

	if len(c.Endpoints) == 0 {
		errs = append(errs, ErrNoEndpoints)
	}
	seen := make(map[string]bool, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if seen[ep.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateName, ep.Name))
		}
		seen[ep.Name] = true
	}
	return errs
}

// Endpoint returns the endpoint with the given name.
func (c *Config) Endpoint(name string) (dbprobe.EndpointConfig, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return dbprobe.EndpointConfig{}, false
}

func (e endpointEntry) toEndpoint() (dbprobe.EndpointConfig, error) {
	kind, err := dbprobe.ParseKind(e.Kind)
	if err != nil {
		return dbprobe.EndpointConfig{}, err
	}
	name := e.Name
	if name == "" {
		name = string(kind)
	}
	return dbprobe.EndpointConfig{
		Name:     name,
		Kind:     kind,
		URI:      e.URI,
		Host:     e.Host,
		Port:     e.Port,
		User:     e.User,
		Password: e.Pass,
		Database: e.DB,
		Options:  e.Options,
	}, nil
}

// envEndpoint describes the environment variables for one kind. The values
// override the endpoint named after the kind, which is created if absent.
type envEndpoint struct {
	kind dbprobe.Kind
	vars map[string]func(*dbprobe.EndpointConfig, string)
	// keys that are enough on their own to create the endpoint
	creating []string
}

var envEndpoints = []envEndpoint{
	{
		kind: dbprobe.KindMongo,
		vars: map[string]func(*dbprobe.EndpointConfig, string){
			"MONGO_URI": func(ep *dbprobe.EndpointConfig, v string) { ep.URI = v },
			"MONGO_DB":  func(ep *dbprobe.EndpointConfig, v string) { ep.Database = v },
		},
		creating: []string{"MONGO_URI"},
	},
	{
		kind: dbprobe.KindPostgres,
		vars: map[string]func(*dbprobe.EndpointConfig, string){
			"PG_HOST": func(ep *dbprobe.EndpointConfig, v string) { ep.Host = v },
			"PG_PORT": func(ep *dbprobe.EndpointConfig, v string) { ep.Port = v },
			"PG_USER": func(ep *dbprobe.EndpointConfig, v string) { ep.User = v },
			"PG_PASS": func(ep *dbprobe.EndpointConfig, v string) { ep.Password = v },
			"PG_DB":   func(ep *dbprobe.EndpointConfig, v string) { ep.Database = v },
		},
		creating: []string{"PG_HOST"},
	},
	{
		kind: dbprobe.KindMySQL,
		vars: map[string]func(*dbprobe.EndpointConfig, string){
			"MYSQL_URL": func(ep *dbprobe.EndpointConfig, v string) { ep.URI = v },
		},
		creating: []string{"MYSQL_URL"},
	},
	{
		kind: dbprobe.KindRedis,
		vars: map[string]func(*dbprobe.EndpointConfig, string){
			"REDIS_URL": func(ep *dbprobe.EndpointConfig, v string) { ep.URI = v },
		},
		creating: []string{"REDIS_URL"},
	},
}

func applyEnvEndpoints(eps []dbprobe.EndpointConfig) []dbprobe.EndpointConfig {
	for _, env := range envEndpoints {
		idx := -1
		for i, ep := range eps {
			if ep.Name == string(env.kind) && ep.Kind == env.kind {
				idx = i
				break
			}
		}

		if idx < 0 {
			create := false
			for _, key := range env.creating {
				if os.Getenv(key) != "" {
					create = true
				}
			}
			if !create {
				continue
			}
			ep := dbprobe.EndpointConfig{Name: string(env.kind), Kind: env.kind}
			if env.kind == dbprobe.KindPostgres {
				ep.Port = dbprobe.DefaultPorts["postgres"]
			}
			eps = append(eps, ep)
			idx = len(eps) - 1
		}

		for key, set := range env.vars {
			if v := os.Getenv(key); v != "" {
				set(&eps[idx], v)
			}
		}
	}
	return eps
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvDurationOrKoanf parses a duration from the environment, then koanf,
// then falls back to def.
func getEnvDurationOrKoanf(envKey string, k *koanf.Koanf, koanfKey string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	source := envKey
	if raw == "" {
		raw = k.String(koanfKey)
		source = koanfKey
	}
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidTimeout, source, raw)
	}
	return d, nil
}
