package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Тесты используют t.Setenv/os.Chdir, поэтому t.Parallel() только там, где окружение не трогается.

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// clearEnv обнуляет переменные, которые могут протечь из окружения CI.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_PATH", "ENV", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET",
		"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "STORAGE_DRIVER", "MONGO_URL",
		"DATABASE_URL", "S3_ENDPOINT", "S3_ROOT_USER", "S3_ROOT_PASSWORD", "S3_BUCKET",
		"REDIS_URL", "HTTP_PORT", "DEFAULT_LIMIT", "MAX_LIMIT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "9090"
  base_path: "/api/v1"
auth:
  access_secret: "access-secret"
  refresh_secret: "refresh-secret"
  access_token_ttl: 10m
  refresh_token_ttl: 72h
  issuer: "test-hub"
storage:
  driver: "postgres"
mongo:
  url: "mongodb://localhost:27017/videohub"
postgres:
  url: "postgres://u:p@localhost:5432/videohub?sslmode=disable"
s3:
  endpoint: "http://localhost:9000"
  root_user: "minio"
  root_password: "minio123"
  bucket: "media"
redis:
  url: "redis://localhost:6379/0"
  login_attempts: 3
  login_window: 1m
limits:
  default: 20
  max: 50
timeouts:
  service: 3s
`

const minimalYAML = `
auth:
  access_secret: "a"
  refresh_secret: "r"
mongo:
  url: "mongodb://localhost:27017/videohub"
s3:
  endpoint: "localhost:9000"
  root_user: "minio"
  root_password: "minio123"
`

func TestHTTPConfig_Addr(t *testing.T) {
	t.Parallel()
	cfg := HTTPConfig{Host: "0.0.0.0", Port: "8080"}
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "cfg.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr())
	require.Equal(t, 10*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 72*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, "test-hub", cfg.Auth.Issuer)
	require.Equal(t, DriverPostgres, cfg.Storage.Driver)
	require.Equal(t, int64(3), cfg.Redis.LoginAttempts)
	require.Equal(t, 20, cfg.Limits.Default)
	require.Equal(t, 3*time.Second, cfg.Timeouts.Service)
}

func TestLoad_MinimalYAML_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "cfg.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 240*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, DriverMongo, cfg.Storage.Driver)
	require.Equal(t, "media", cfg.S3.Bucket)
	require.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, cfg.Media.ImageContentTypes)
	require.Equal(t, 10, cfg.Limits.Default)
	require.Equal(t, 100, cfg.Limits.Max)
	require.False(t, cfg.Auth.CookieInsecure)
	require.Empty(t, cfg.Redis.URL)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "cfg.yaml", sampleYAML)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.HTTP.Port)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "cfg.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

func TestLoad_LocalYAMLFromWorkdir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "local.yaml", minimalYAML)
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/videohub", cfg.Mongo.URL)
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("ACCESS_TOKEN_SECRET", "a")
	t.Setenv("REFRESH_TOKEN_SECRET", "r")
	t.Setenv("MONGO_URL", "mongodb://mongo:27017/videohub")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("S3_ROOT_USER", "minio")
	t.Setenv("S3_ROOT_PASSWORD", "minio123")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "mongodb://mongo:27017/videohub", cfg.Mongo.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "cfg.yaml", "env: local\n")
	require.Panics(t, func() { _ = MustLoad(path) })
}

func TestValidate_Table(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Auth: AuthConfig{
				AccessSecret:    "a",
				RefreshSecret:   "r",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 240 * time.Hour,
			},
			Storage: StorageConfig{Driver: DriverMongo},
			Mongo:   MongoConfig{URL: "mongodb://localhost"},
			S3:      S3Config{Endpoint: "localhost:9000", RootUser: "u", RootPassword: "p", Bucket: "media"},
			Media: MediaConfig{
				MaxImageBytes:     1,
				MaxVideoBytes:     1,
				ImageContentTypes: []string{"image/png"},
				VideoContentTypes: []string{"video/mp4"},
			},
			Limits: LimitsConfig{Default: 10, Max: 100},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "missing_access_secret", mutate: func(c *Config) { c.Auth.AccessSecret = "" }, wantErr: true},
		{name: "same_secrets", mutate: func(c *Config) { c.Auth.RefreshSecret = "a" }, wantErr: true},
		{name: "access_ttl_not_less_than_refresh", mutate: func(c *Config) { c.Auth.AccessTokenTTL = c.Auth.RefreshTokenTTL }, wantErr: true},
		{name: "unknown_driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "postgres_without_url", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: true},
		{name: "postgres_with_url", mutate: func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Postgres.URL = "postgres://localhost"
		}},
		{name: "missing_mongo", mutate: func(c *Config) { c.Mongo.URL = "" }, wantErr: true},
		{name: "missing_bucket", mutate: func(c *Config) { c.S3.Bucket = "" }, wantErr: true},
		{name: "redis_without_attempts", mutate: func(c *Config) { c.Redis.URL = "redis://localhost" }, wantErr: true},
		{name: "default_gt_max", mutate: func(c *Config) { c.Limits.Default = 500 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			tt.mutate(&c)
			err := c.validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
