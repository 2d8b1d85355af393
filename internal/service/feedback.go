package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"go.uber.org/zap"
)

// SubmitFeedback attaches the actor's rating to their attended registration
// and recomputes the event's feedback summary. Feedback is accepted once.
func (s *EventService) SubmitFeedback(ctx context.Context, actor model.Actor, eventID string, req model.FeedbackRequest) (*model.FeedbackSummary, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", model.ErrValidation)
	}

	var summary model.FeedbackSummary
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if e.Status != model.StatusCompleted {
			return fmt.Errorf("%w: feedback opens once the event is completed", model.ErrInvalidTransition)
		}
		if !e.FeedbackEnabled {
			return fmt.Errorf("%w: feedback is disabled for this event", model.ErrUnauthorized)
		}

		reg, err := tx.Registrations().FindActive(ctx, eventID, actor.UserID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if reg == nil || reg.Status != model.RegistrationAttended {
			return fmt.Errorf("%w: only attendees can leave feedback", model.ErrUnauthorized)
		}
		if reg.Feedback != nil {
			return fmt.Errorf("%w: feedback already submitted", model.ErrInvalidTransition)
		}

		now := s.now()
		reg.Feedback = &model.Feedback{
			Rating:      req.Rating,
			Comments:    strings.TrimSpace(req.Comments),
			SubmittedAt: now,
		}
		reg.UpdatedAt = now
		if err := tx.Registrations().Update(ctx, reg); err != nil {
			return err
		}

		regs, err := tx.Registrations().ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		summary = summarize(regs)
		e.FeedbackSummary = summary
		e.UpdatedAt = now
		return tx.Events().Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("feedback submitted",
		zap.String("event_id", eventID),
		zap.String("user_id", actor.UserID),
		zap.Int("rating", req.Rating),
	)
	return &summary, nil
}

// ListFeedback returns every submitted feedback entry for the event.
func (s *EventService) ListFeedback(ctx context.Context, actor model.Actor, eventID string) (*model.EventFeedback, error) {
	e, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.store, actor, e.OrganizedBy, clubOrAdmin); err != nil {
		return nil, err
	}
	regs, err := s.store.Registrations().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := &model.EventFeedback{
		EventID:   e.ID,
		EventName: e.Name,
		Summary:   e.FeedbackSummary,
		Feedbacks: []model.FeedbackEntry{},
	}
	for _, r := range regs {
		if r.Feedback != nil {
			out.Feedbacks = append(out.Feedbacks, model.FeedbackEntry{UserID: r.UserID, Feedback: *r.Feedback})
		}
	}
	return out, nil
}

// ToggleFeedback enables or disables feedback collection for an event.
func (s *EventService) ToggleFeedback(ctx context.Context, actor model.Actor, eventID string, enabled bool) (*model.Event, error) {
	var out *model.Event
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, actor, e.OrganizedBy, adminOnly); err != nil {
			return err
		}
		e.FeedbackEnabled = enabled
		e.UpdatedAt = s.now()
		if err := tx.Events().Update(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("feedback toggled", zap.String("event_id", eventID), zap.Bool("enabled", enabled))
	return out, nil
}

// ClubFeedbackAnalytics aggregates feedback over a club's completed events.
// The club average weights each event by its number of responses and is nil
// when nobody has responded.
func (s *EventService) ClubFeedbackAnalytics(ctx context.Context, actor model.Actor, clubID string) (*model.ClubFeedback, error) {
	if _, err := s.store.Clubs().Get(ctx, clubID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.store, actor, model.Organizer{ClubID: clubID}, clubOrAdmin); err != nil {
		return nil, err
	}

	events, err := s.store.Events().List(ctx, repository.EventFilter{ClubID: clubID, Status: model.StatusCompleted})
	if err != nil {
		return nil, err
	}

	out := &model.ClubFeedback{ClubID: clubID, TotalEvents: len(events), Events: []model.EventFeedback{}}
	var weighted float64
	for _, e := range events {
		out.Events = append(out.Events, model.EventFeedback{EventID: e.ID, EventName: e.Name, Summary: e.FeedbackSummary})
		out.TotalFeedbackResponses += e.FeedbackSummary.TotalResponses
		weighted += e.FeedbackSummary.AverageRating * float64(e.FeedbackSummary.TotalResponses)
	}
	if out.TotalFeedbackResponses > 0 {
		avg := round2(weighted / float64(out.TotalFeedbackResponses))
		out.ClubAverageRating = &avg
	}
	return out, nil
}

func summarize(regs []model.Registration) model.FeedbackSummary {
	var sum, n int
	for _, r := range regs {
		if r.Feedback != nil {
			sum += r.Feedback.Rating
			n++
		}
	}
	if n == 0 {
		return model.FeedbackSummary{}
	}
	return model.FeedbackSummary{AverageRating: round2(float64(sum) / float64(n)), TotalResponses: n}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
