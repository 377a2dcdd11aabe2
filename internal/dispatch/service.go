// Package dispatch implements the job lifecycle and every mutation the
// admin dashboard and driver portal can trigger.
package dispatch

import (
	"context"
	"time"

	"qgo-dispatch/internal/events"
	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// Mirror exposes the latest mirrored collections
type Mirror interface {
	State() *mirror.State
}

// Notifier tells a driver about a newly assigned job
type Notifier interface {
	NotifyJobAssigned(ctx context.Context, job models.Job) error
}

type Service struct {
	store     store.Store
	mirror    Mirror
	validate  *validator.Validate
	notifier  Notifier
	publisher events.Publisher
	now       func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService mutates st and resolves records through m. A nil st means no
// remote store is configured and every mutation fails with store.ErrUnconfigured.
func NewService(st store.Store, m Mirror, opts ...Option) *Service {
	s := &Service{
		store:     st,
		mirror:    m,
		validate:  validator.New(),
		publisher: events.Noop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ready() error {
	if s.store == nil {
		return store.ErrUnconfigured
	}
	return nil
}

func (s *Service) check(req interface{}) error {
	if err := s.validate.Struct(req); err != nil {
		return newValidationError(err)
	}
	return nil
}

// publish is best effort; the mutation already happened
func (s *Service) publish(ctx context.Context, ev events.JobEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.WithField("job_id", ev.JobID).Printf("⚠️  Failed to publish %s: %v", ev.Type, err)
	}
}
