// Package app assembles the service from its configuration.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"taskoverflow/internal/auth"
	"taskoverflow/internal/config"
	"taskoverflow/internal/mail"
	"taskoverflow/internal/server"
	"taskoverflow/internal/storage"
	"taskoverflow/internal/storage/memory"
	"taskoverflow/internal/storage/mongo"
	"taskoverflow/internal/storage/sqlite"
	"taskoverflow/internal/tracker"
)

// OpenStore opens the store selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.Open(), nil
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreMongo:
		store, err := mongo.Open(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NewMailer returns an SMTP sender behind a circuit breaker, or a no-op
// sender when SMTP is not configured.
func NewMailer(cfg *config.Config, logger logrus.FieldLogger) mail.Sender {
	if !cfg.MailEnabled() {
		logger.Info("SMTP not configured; invitation emails disabled")
		return mail.NopSender{}
	}
	smtp := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	return mail.NewBreakerSender(smtp, logger)
}

// NewServer builds the tracker service and its HTTP server on top of store.
func NewServer(cfg *config.Config, store storage.Store, logger *logrus.Logger) *server.Server {
	svc := tracker.New(store,
		tracker.WithMailer(NewMailer(cfg, logger)),
		tracker.WithLogger(logger),
	)
	return server.New(svc, auth.NewJWTVerifier(cfg.Auth.JWTSecret), logger, server.Options{
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RateLimit:   rate.Limit(cfg.HTTP.RateLimitRPS),
		RateBurst:   cfg.HTTP.RateLimitBurst,
	})
}
