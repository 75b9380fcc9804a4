package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "http://localhost:8080", c.Server.BaseURL)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, "paperauth", c.JWT.Issuer)
	require.Equal(t, 15*time.Minute, c.JWT.AccessTTL.Std())
	require.Equal(t, 10*time.Minute, c.OTP.TTL.Std())
	require.Equal(t, time.Hour, c.Reset.TTL.Std())
	require.Equal(t, 587, c.SMTP.Port)
	require.Equal(t, "auto", c.SMTP.TLS)
	require.Equal(t, "memory", c.Rate.Backend)
	require.Equal(t, 10, c.Rate.Limit)
	require.Equal(t, time.Minute, c.Rate.Window.Std())
}

func TestLoad_FromYAML(t *testing.T) {
	path := writeConfig(t, `
app:
  app_env: prod
server:
  addr: ":9000"
  base_url: "https://docs.example.com"
storage:
  driver: pg
  dsn: "postgres://auth:auth@db:5432/auth"
  default_scopes: ["docs:read"]
jwt:
  issuer: "https://auth.example.com"
  access_ttl: 30m
otp:
  ttl: 5m
smtp:
  host: smtp.example.com
  port: 465
  tls: ssl
rate:
  enabled: true
  backend: redis
  redis:
    addr: "redis:6379"
  limit: 5
  window: 2m
`)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "prod", c.App.Env)
	require.Equal(t, ":9000", c.Server.Addr)
	require.Equal(t, "pg", c.Storage.Driver)
	require.Equal(t, []string{"docs:read"}, c.Storage.DefaultScopes)
	require.Equal(t, 30*time.Minute, c.JWT.AccessTTL.Std())
	require.Equal(t, 5*time.Minute, c.OTP.TTL.Std())
	require.Equal(t, 465, c.SMTP.Port)
	require.Equal(t, "ssl", c.SMTP.TLS)
	require.True(t, c.Rate.Enabled)
	require.Equal(t, "redis:6379", c.Rate.Redis.Addr)
	require.Equal(t, 5, c.Rate.Limit)
	require.Equal(t, 2*time.Minute, c.Rate.Window.Std())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7777")
	t.Setenv("STORAGE_DRIVER", "pg")
	t.Setenv("STORAGE_DSN", "postgres://env-override")
	t.Setenv("JWT_ACCESS_TTL", "45m")
	t.Setenv("SMTP_PORT", "2525")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":7777", c.Server.Addr)
	require.Equal(t, "pg", c.Storage.Driver)
	require.Equal(t, "postgres://env-override", c.Storage.DSN)
	require.Equal(t, 45*time.Minute, c.JWT.AccessTTL.Std())
	require.Equal(t, 2525, c.SMTP.Port)
}

func TestLoad_EnvOverridesBeatYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
`)
	t.Setenv("SERVER_ADDR", ":7777")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7777", c.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_PgRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: pg
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "storage.dsn")
}

func TestValidate_UnknownDriver(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: cassandra
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown storage driver")
}

func TestValidate_RedisBackendRequiresAddr(t *testing.T) {
	path := writeConfig(t, `
rate:
  enabled: true
  backend: redis
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "rate.redis.addr")
}

func TestValidate_OIDCRequiresIssuerAndClient(t *testing.T) {
	path := writeConfig(t, `
oidc:
  enabled: true
  client_id: "paperdocs"
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "oidc.issuer_url")
}
