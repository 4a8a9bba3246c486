package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"TASKOVERFLOW_CONFIG", "PORT", "TASKOVERFLOW_ADDR", "TASKOVERFLOW_STATIC_DIR",
	"TASKOVERFLOW_STORE", "TASKOVERFLOW_DB_PATH", "MONGODB_URI", "MONGODB_DATABASE",
	"JWT_SECRET", "LOG_LEVEL", "LOG_FILE", "SMTP_HOST", "SMTP_PORT", "EMAIL_USER",
	"EMAIL_PASS", "EMAIL_FROM", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.False(t, cfg.MailEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "taskoverflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":7000"

[store]
driver = "mongo"
mongo_uri = "mongodb://file:27017"

[auth]
jwt_secret = "from-file"

[smtp]
host = "smtp.example.com"
port = 2525

[http]
cors_origins = ["https://app.example.com"]
rate_limit_rps = 5.5
`), 0o644))

	t.Setenv("MONGODB_URI", "mongodb://env:27017")
	t.Setenv("PORT", "9000")
	t.Setenv("RATE_LIMIT_BURST", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, "mongodb://env:27017", cfg.Store.MongoURI)
	assert.Equal(t, "taskoverflow", cfg.Store.MongoDatabase)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.True(t, cfg.MailEnabled())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 5.5, cfg.HTTP.RateLimitRPS)
	assert.Equal(t, 7, cfg.HTTP.RateLimitBurst)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte("static_dir = \"public\"\n"), 0o644))
	t.Setenv("TASKOVERFLOW_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.StaticDir)
}

func TestLoadAddrOverridesPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("TASKOVERFLOW_ADDR", "127.0.0.1:8081")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr)
}

func TestLoadCORSOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ORIGINS", " https://a.test, ,https://b.test ")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.HTTP.CORSOrigins)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("bad toml", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("addr = "), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad number", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMTP_PORT", "twenty")
		_, err := Load("")
		assert.ErrorContains(t, err, "SMTP_PORT")
	})

	t.Run("bad rate", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RATE_LIMIT_RPS", "fast")
		_, err := Load("")
		assert.ErrorContains(t, err, "RATE_LIMIT_RPS")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok sqlite", mutate: func(*Config) {}},
		{name: "ok memory", mutate: func(c *Config) { c.Store.Driver = StoreMemory }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "unknown store driver"},
		{name: "no secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.SQLitePath = "" }, wantErr: "database path"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Driver = StoreMongo }, wantErr: "MONGODB_URI"},
		{name: "negative rate", mutate: func(c *Config) { c.HTTP.RateLimitRPS = -1 }, wantErr: "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = "secret"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateStoreIgnoresAuth(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.ValidateStore())
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}
