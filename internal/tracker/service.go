// Package tracker keeps projects, tasks and the activity feed consistent.
// Every operation checks access first, then mutates the store, then
// recounts the project's task counters and appends to the activity feed.
package tracker

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"taskoverflow/internal/mail"
	"taskoverflow/internal/storage"
)

// Clock supplies timestamps for created/updated/completed stamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service implements the project and task operations over a store.
type Service struct {
	store  storage.Store
	mailer mail.Sender
	logger logrus.FieldLogger
	clock  Clock
}

// Option configures a Service.
type Option func(*Service)

// WithMailer sets the sender used for collaborator invitations.
func WithMailer(m mail.Sender) Option {
	return func(s *Service) { s.mailer = m }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New returns a Service backed by store.
func New(store storage.Store, opts ...Option) *Service {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Service{
		store:  store,
		mailer: mail.NopSender{},
		logger: discard,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
