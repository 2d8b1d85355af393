// Package service contains business logic that sits between HTTP handlers and
// the repository layer. Every operation that changes an event runs inside a
// store transaction that locks the event row, checks the caller, consults the
// lifecycle table, and writes the result.
package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/notify"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"go.uber.org/zap"
)

// EventService orchestrates event, registration, feedback and resource workflows.
type EventService struct {
	store       repository.Store
	publisher   notify.Publisher
	log         *zap.Logger
	now         func() time.Time
	autoPromote bool
}

// Option configures an EventService.
type Option func(*EventService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *EventService) { s.now = now }
}

// WithAutoPromote makes CancelRegistration run waitlist promotion after a
// registered seat is freed. Off by default: promotion is explicit.
func WithAutoPromote(on bool) Option {
	return func(s *EventService) { s.autoPromote = on }
}

// NewEventService constructs an EventService.
func NewEventService(store repository.Store, publisher notify.Publisher, log *zap.Logger, opts ...Option) *EventService {
	s := &EventService{
		store:     store,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutation edits a locked event inside the transition's transaction. The
// event already carries its new status.
type mutation func(ctx context.Context, tx repository.Store, e *model.Event) error

// transition applies action to the event and persists it atomically. On any
// error nothing is written.
func (s *EventService) transition(ctx context.Context, actor model.Actor, eventID string, action lifecycle.Action, mutate mutation) (*model.Event, error) {
	var (
		out  *model.Event
		from model.EventStatus
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, actor, e.OrganizedBy, lifecycle.Parties(action)); err != nil {
			return err
		}
		to, err := lifecycle.Next(e.Status, action)
		if err != nil {
			return err
		}

		from = e.Status
		e.Status = to
		e.UpdatedAt = s.now()
		if mutate != nil {
			if err := mutate(ctx, tx, e); err != nil {
				return err
			}
		}
		if err := tx.Events().Update(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event transitioned",
		zap.String("event_id", out.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(out.Status)),
		zap.String("actor_id", actor.UserID),
	)
	if from != out.Status {
		s.publish(ctx, notify.Transitioned(out.ID, actor.UserID, string(action), from, out.Status, out.UpdatedAt))
	}
	return out, nil
}

// publish sends msg after the state change has committed. Failures are
// logged; they never undo the change.
func (s *EventService) publish(ctx context.Context, msg notify.Message) {
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Warn("publish notification failed",
			zap.String("type", string(msg.Type)),
			zap.String("event_id", msg.EventID),
			zap.Error(err),
		)
	}
}
