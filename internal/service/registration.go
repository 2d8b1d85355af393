package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Shivanand-hulikatti/club-events/internal/capacity"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/notify"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Register performs a concurrency-safe registration of the actor.
//
// The event row is locked for the whole check-and-write, so two concurrent
// registrations cannot both observe a free seat: the second blocks until the
// first commits and then counts it. Overflow is not an error; the registrant
// is waitlisted.
func (s *EventService) Register(ctx context.Context, actor model.Actor, eventID string) (*model.RegistrationResult, error) {
	var reg *model.Registration
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if e.Status != model.StatusRegistrationOpen {
			return fmt.Errorf("%w: event is %s", model.ErrRegistrationClosed, e.Status)
		}

		if _, err := tx.Registrations().FindActive(ctx, eventID, actor.UserID); err == nil {
			return model.ErrAlreadyRegistered
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		registered, err := tx.Registrations().CountByStatus(ctx, eventID, model.RegistrationRegistered)
		if err != nil {
			return err
		}

		now := s.now()
		ledger := capacity.Ledger{Capacity: e.Capacity, Registered: registered}
		reg = &model.Registration{
			ID:           uuid.New().String(),
			EventID:      eventID,
			UserID:       actor.UserID,
			Status:       ledger.Admit(),
			RegisteredAt: now,
			UpdatedAt:    now,
		}
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			return err
		}

		if reg.Status == model.RegistrationRegistered {
			registered++
		}
		e.TotalRegistrations = registered
		e.UpdatedAt = now
		return tx.Events().Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("registration created",
		zap.String("event_id", eventID),
		zap.String("user_id", actor.UserID),
		zap.String("status", string(reg.Status)),
	)
	s.publish(ctx, notify.RegistrationChanged(notify.TypeRegistrationCreated, reg, actor.UserID, reg.RegisteredAt))

	msg := "Successfully registered for the event"
	if reg.Status == model.RegistrationWaitlisted {
		msg = "Event is at capacity; added to the waitlist"
	}
	return &model.RegistrationResult{Status: reg.Status, Message: msg, Registration: reg}, nil
}

// CancelRegistration withdraws the actor's registered or waitlisted entry.
// Freed seats are only refilled by PromoteWaitlist unless auto-promotion is on.
func (s *EventService) CancelRegistration(ctx context.Context, actor model.Actor, eventID string) (*model.Registration, error) {
	var (
		reg       *model.Registration
		freedSeat bool
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if e.Status == model.StatusOngoing || e.Status.IsTerminal() {
			return fmt.Errorf("%w: cannot deregister from an event in status %s", model.ErrInvalidTransition, e.Status)
		}

		reg, err = tx.Registrations().FindActive(ctx, eventID, actor.UserID)
		if err != nil {
			return err
		}
		if reg.Status != model.RegistrationRegistered && reg.Status != model.RegistrationWaitlisted {
			return fmt.Errorf("%w: registration is %s", model.ErrInvalidTransition, reg.Status)
		}

		freedSeat = reg.Status == model.RegistrationRegistered
		now := s.now()
		reg.Status = model.RegistrationCancelled
		reg.UpdatedAt = now
		if err := tx.Registrations().Update(ctx, reg); err != nil {
			return err
		}

		registered, err := tx.Registrations().CountByStatus(ctx, eventID, model.RegistrationRegistered)
		if err != nil {
			return err
		}
		e.TotalRegistrations = registered
		e.UpdatedAt = now
		return tx.Events().Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("registration cancelled",
		zap.String("event_id", eventID),
		zap.String("user_id", actor.UserID),
		zap.Bool("freed_seat", freedSeat),
	)
	s.publish(ctx, notify.RegistrationChanged(notify.TypeRegistrationCanceled, reg, actor.UserID, reg.UpdatedAt))

	if freedSeat && s.autoPromote {
		if _, err := s.promote(ctx, eventID, actor.UserID); err != nil {
			// The cancellation stands; a later explicit promotion catches up.
			s.log.Warn("auto promotion failed", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return reg, nil
}

// PromoteWaitlist moves the earliest waitlisted registrations into freed
// seats. Safe to call repeatedly. Ongoing and finished events are refused.
func (s *EventService) PromoteWaitlist(ctx context.Context, actor model.Actor, eventID string) (*model.PromotionResult, error) {
	e, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.store, actor, e.OrganizedBy, clubOrAdmin); err != nil {
		return nil, err
	}
	return s.promote(ctx, eventID, actor.UserID)
}

// promote fills free seats one registration at a time. Each promotion is its
// own transaction that recounts registered entries under the event lock and
// rewrites the counter from that count, so a failure part way leaves every
// completed promotion durable and a rerun only promotes what is still
// eligible.
func (s *EventService) promote(ctx context.Context, eventID, actorID string) (*model.PromotionResult, error) {
	result := &model.PromotionResult{Promoted: []model.Registration{}}
	for {
		var promoted *model.Registration
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			e, err := tx.Events().GetForUpdate(ctx, eventID)
			if err != nil {
				return err
			}
			// Once the event runs, admitted seats are consumed by attendance
			// and no longer show up as registered.
			if e.Status == model.StatusOngoing || e.Status.IsTerminal() {
				return fmt.Errorf("%w: cannot promote the waitlist of an event in status %s",
					model.ErrInvalidTransition, e.Status)
			}
			registered, err := tx.Registrations().CountByStatus(ctx, eventID, model.RegistrationRegistered)
			if err != nil {
				return err
			}
			result.TotalRegistrations = registered

			ledger := capacity.Ledger{Capacity: e.Capacity, Registered: registered}
			if ledger.FreeSlots() == 0 {
				return s.syncRegistered(ctx, tx, e, registered)
			}
			next, err := tx.Registrations().ListWaitlisted(ctx, eventID, 1)
			if err != nil {
				return err
			}
			if len(next) == 0 {
				return s.syncRegistered(ctx, tx, e, registered)
			}

			now := s.now()
			reg := next[0]
			reg.Status = model.RegistrationRegistered
			reg.UpdatedAt = now
			if err := tx.Registrations().Update(ctx, &reg); err != nil {
				return err
			}
			e.TotalRegistrations = registered + 1
			e.UpdatedAt = now
			if err := tx.Events().Update(ctx, e); err != nil {
				return err
			}
			result.TotalRegistrations = e.TotalRegistrations
			promoted = &reg
			return nil
		})
		if err != nil {
			if len(result.Promoted) > 0 {
				return result, fmt.Errorf("promoted %d before failing: %w", len(result.Promoted), err)
			}
			return nil, err
		}
		if promoted == nil {
			break
		}

		result.Promoted = append(result.Promoted, *promoted)
		s.log.Info("registration promoted",
			zap.String("event_id", eventID),
			zap.String("user_id", promoted.UserID),
		)
		s.publish(ctx, notify.RegistrationChanged(notify.TypeRegistrationPromoted, promoted, actorID, promoted.UpdatedAt))
	}
	return result, nil
}

// syncRegistered repairs a drifted counter without touching anything else.
func (s *EventService) syncRegistered(ctx context.Context, tx repository.Store, e *model.Event, registered int) error {
	if e.TotalRegistrations == registered {
		return nil
	}
	s.log.Warn("registration counter drift repaired",
		zap.String("event_id", e.ID),
		zap.Int("stored", e.TotalRegistrations),
		zap.Int("counted", registered),
	)
	e.TotalRegistrations = registered
	e.UpdatedAt = s.now()
	return tx.Events().Update(ctx, e)
}

// ListRegistrations returns every registration for the event in registration order.
func (s *EventService) ListRegistrations(ctx context.Context, actor model.Actor, eventID string) ([]model.Registration, error) {
	e, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.store, actor, e.OrganizedBy, clubOrAdmin); err != nil {
		return nil, err
	}
	return s.store.Registrations().ListByEvent(ctx, eventID)
}

// MarkAttendance records who turned up. Listed users become attended and
// every other admitted registrant becomes no_show. Registered entries are
// consumed, so totalRegistrations drops with them and stays equal to the
// number still registered.
func (s *EventService) MarkAttendance(ctx context.Context, actor model.Actor, eventID string, req model.AttendanceRequest) (*model.EventStats, error) {
	var stats *model.EventStats
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, actor, e.OrganizedBy, clubOrAdmin); err != nil {
			return err
		}
		if e.Status != model.StatusOngoing && e.Status != model.StatusCompleted {
			return fmt.Errorf("%w: attendance can only be marked for ongoing or completed events, event is %s",
				model.ErrInvalidTransition, e.Status)
		}

		regs, err := tx.Registrations().ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		admitted := map[string]bool{}
		for _, r := range regs {
			if admittedStatus(r.Status) {
				admitted[r.UserID] = true
			}
		}
		for _, id := range req.AttendedUserIDs {
			if !admitted[id] {
				return fmt.Errorf("%w: user %s holds no admitted registration", model.ErrValidation, id)
			}
		}

		now := s.now()
		for i := range regs {
			r := &regs[i]
			if !admittedStatus(r.Status) {
				continue
			}
			want := model.RegistrationNoShow
			if slices.Contains(req.AttendedUserIDs, r.UserID) {
				want = model.RegistrationAttended
			}
			if r.Status == want {
				continue
			}
			r.Status = want
			r.UpdatedAt = now
			if err := tx.Registrations().Update(ctx, r); err != nil {
				return err
			}
		}

		stats, err = s.reconcile(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("attendance marked",
		zap.String("event_id", eventID),
		zap.Int("attended", stats.Attended),
		zap.Int("no_show", stats.NoShow),
	)
	return stats, nil
}

// EventStats counts registrations per status and repairs the event's
// denormalized counters if they disagree with the counts.
func (s *EventService) EventStats(ctx context.Context, actor model.Actor, eventID string) (*model.EventStats, error) {
	var stats *model.EventStats
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, actor, e.OrganizedBy, clubOrAdmin); err != nil {
			return err
		}
		stats, err = s.reconcile(ctx, tx, e)
		return err
	})
	return stats, err
}

// reconcile rewrites the event counters from the registration collection.
func (s *EventService) reconcile(ctx context.Context, tx repository.Store, e *model.Event) (*model.EventStats, error) {
	counts, err := tx.Registrations().StatusCounts(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	stats := &model.EventStats{
		Registered: counts[model.RegistrationRegistered],
		Waitlisted: counts[model.RegistrationWaitlisted],
		Cancelled:  counts[model.RegistrationCancelled],
		Attended:   counts[model.RegistrationAttended],
		NoShow:     counts[model.RegistrationNoShow],
	}
	stats.Total = stats.Registered + stats.Waitlisted + stats.Cancelled + stats.Attended + stats.NoShow

	if e.TotalRegistrations != stats.Registered || e.TotalAttendance != stats.Attended {
		e.TotalRegistrations = stats.Registered
		e.TotalAttendance = stats.Attended
		e.UpdatedAt = s.now()
		if err := tx.Events().Update(ctx, e); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func admittedStatus(st model.RegistrationStatus) bool {
	return st == model.RegistrationRegistered || st == model.RegistrationAttended || st == model.RegistrationNoShow
}
