package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskoverflow/internal/config"
	"taskoverflow/internal/mail"
	"taskoverflow/internal/storage/memory"
	"taskoverflow/internal/storage/sqlite"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Driver = config.StoreMemory

		store, err := OpenStore(ctx, cfg, quietLogger())
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, store)
		assert.NoError(t, store.Close(ctx))
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "db", "tasks.db")

		store, err := OpenStore(ctx, cfg, quietLogger())
		require.NoError(t, err)
		assert.IsType(t, &sqlite.Store{}, store)
		assert.NoError(t, store.Close(ctx))
	})

	t.Run("sqlite failure returns nil store", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.SQLitePath = ""

		store, err := OpenStore(ctx, cfg, quietLogger())
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Driver = "postgres"

		_, err := OpenStore(ctx, cfg, quietLogger())
		assert.ErrorContains(t, err, "postgres")
	})
}

func TestNewMailer(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, mail.NopSender{}, NewMailer(cfg, quietLogger()))

	cfg.SMTP.Host = "smtp.example.com"
	assert.IsType(t, &mail.BreakerSender{}, NewMailer(cfg, quietLogger()))
}

func TestNewServerServesAPI(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "secret"
	cfg.StaticDir = ""

	srv := NewServer(cfg, memory.Open(), quietLogger())

	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
