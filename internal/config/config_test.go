package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BigKAA/dbprobe/dbprobe"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigPath, "DBPROBE_TIMEOUT", "DBPROBE_LOG_LEVEL", "DBPROBE_LOG_FORMAT", "DBPROBE_LOG_FILE",
		"MONGO_URI", "MONGO_DB",
		"PG_HOST", "PG_PORT", "PG_USER", "PG_PASS", "PG_DB",
		"MYSQL_URL", "REDIS_URL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleConfig = `
log:
  level: debug
  format: console
  file: /var/log/dbprobe.log
timeout: 10s
diagnose: false
endpoints:
  - name: orders
    kind: postgres
    host: pg.local
    port: "5432"
    user: app
    pass: secret
    db: orders
    options:
      connect_timeout: 3s
  - kind: redis
    uri: redis://cache:6379/0
`

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	cfg, errs := Load(writeConfig(t, sampleConfig))
	require.Empty(t, errs)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/var/log/dbprobe.log", cfg.Log.File)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.Diagnose)
	require.Len(t, cfg.Endpoints, 2)

	pg := cfg.Endpoints[0]
	assert.Equal(t, "orders", pg.Name)
	assert.Equal(t, dbprobe.KindPostgres, pg.Kind)
	assert.Equal(t, "pg.local", pg.Host)
	assert.Equal(t, "5432", pg.Port)
	assert.Equal(t, "secret", pg.Password)
	assert.Equal(t, "orders", pg.Database)
	assert.Equal(t, "3s", pg.Options["connect_timeout"])

	redis := cfg.Endpoints[1]
	assert.Equal(t, "redis", redis.Name, "name defaults to the kind")
	assert.Equal(t, "redis://cache:6379/0", redis.URI)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, errs := Load("")
	require.Empty(t, errs)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.True(t, cfg.Diagnose)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log:
  level: info
timeout: 10s
endpoints:
  - kind: postgres
    host: pg.file
    user: file-user
`)
	t.Setenv("DBPROBE_LOG_LEVEL", "WARN")
	t.Setenv("DBPROBE_TIMEOUT", "2s")
	t.Setenv("PG_HOST", "pg.env")
	t.Setenv("PG_PASS", "env-pass")

	cfg, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	require.Len(t, cfg.Endpoints, 1)
	ep := cfg.Endpoints[0]
	assert.Equal(t, "pg.env", ep.Host)
	assert.Equal(t, "file-user", ep.User, "unset env vars keep file values")
	assert.Equal(t, "env-pass", ep.Password)
	assert.Empty(t, ep.Port, "file-defined endpoints keep their own port")
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, writeConfig(t, sampleConfig))

	cfg, errs := Load("")
	require.Empty(t, errs)
	assert.Len(t, cfg.Endpoints, 2)
}

func TestLoad_EnvCreatesEndpoints(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("MONGO_DB", "orders")
	t.Setenv("PG_HOST", "pg")
	t.Setenv("MYSQL_URL", "mysql://root@db:3306/app")

	cfg, errs := Load("")
	require.Empty(t, errs)
	require.Len(t, cfg.Endpoints, 3)

	mongo, ok := cfg.Endpoint("mongo")
	require.True(t, ok)
	assert.Equal(t, dbprobe.KindMongo, mongo.Kind)
	assert.Equal(t, "mongodb://mongo:27017", mongo.URI)
	assert.Equal(t, "orders", mongo.Database)

	pg, ok := cfg.Endpoint("postgres")
	require.True(t, ok)
	assert.Equal(t, "pg", pg.Host)
	assert.Equal(t, "5432", pg.Port)

	_, ok = cfg.Endpoint("redis")
	assert.False(t, ok, "redis is not created without REDIS_URL")
}

func TestLoad_PartialEnvDoesNotCreate(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("PG_USER", "app")

	cfg, errs := Load("")
	require.Empty(t, errs)
	_, ok := cfg.Endpoint("postgres")
	assert.False(t, ok, "PG_USER alone must not create a postgres endpoint")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, errs := Load(path)
	assert.Nil(t, cfg)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), path)
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log:
  level: loud
  format: xml
timeout: soon
endpoints:
  - kind: oracle
    host: db
  - name: dup
    kind: redis
    uri: redis://a
  - name: dup
    kind: redis
    uri: redis://b
`)

	_, errs := Load(path)
	require.Len(t, errs, 5)
	assert.ErrorIs(t, errs[0], ErrInvalidTimeout)
	assert.Contains(t, errs[1].Error(), "endpoints[0]")
	assert.ErrorIs(t, errs[2], ErrInvalidLogLevel)
	assert.ErrorIs(t, errs[3], ErrInvalidLogFormat)
	assert.ErrorIs(t, errs[4], ErrDuplicateName)
}

func TestLoad_NoEndpoints(t *testing.T) {
	clearEnv(t)
	_, errs := Load("")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNoEndpoints)
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := &Config{
		Log:       LogConfig{Level: "info", Format: "json"},
		Timeout:   -time.Second,
		Endpoints: []dbprobe.EndpointConfig{{Name: "redis", Kind: dbprobe.KindRedis}},
	}
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrInvalidTimeout)
}
