package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ─── Authoring ────────────────────────────────────────────────────────────────

// CreateEvent validates input and stores a new draft event owned by clubID.
// The caller becomes the primary coordinator.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Actor, clubID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", model.ErrValidation)
	}
	if req.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must be zero (unlimited) or positive", model.ErrValidation)
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	org := model.Organizer{ClubID: clubID, PrimaryCoordinatorID: actor.UserID}
	var event *model.Event
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Clubs().Get(ctx, clubID); err != nil {
			return err
		}
		// The creator is not yet a coordinator of anything, so only
		// membership grants the club party here.
		if err := s.authorize(ctx, tx, actor, model.Organizer{ClubID: clubID}, clubOnly); err != nil {
			return err
		}

		now := s.now()
		event = &model.Event{
			ID:                  uuid.New().String(),
			Name:                req.Name,
			Description:         strings.TrimSpace(req.Description),
			OrganizedBy:         org,
			CoOrganizerIDs:      coOrganizers(req.CoOrganizerIDs, actor.UserID),
			StartDate:           req.StartDate.UTC(),
			EndDate:             req.EndDate.UTC(),
			Status:              model.StatusDraft,
			Capacity:            req.Capacity,
			ResourcesAllocated:  []model.Allocation{},
			SpecialInstructions: []string{},
			FeedbackEnabled:     true,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		return tx.Events().Create(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("club_id", clubID),
		zap.String("actor_id", actor.UserID),
	)
	return event, nil
}

// GetEvent fetches an event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.store.Events().Get(ctx, id)
}

// AvailableActions lists the lifecycle actions actor may take on the event
// in its current status, sorted by name.
func (s *EventService) AvailableActions(ctx context.Context, actor model.Actor, id string) (*model.EventActions, error) {
	e, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &model.EventActions{EventID: e.ID, Status: e.Status, Actions: []string{}}
	for _, a := range lifecycle.Actions() {
		if !lifecycle.Allowed(e.Status, a) {
			continue
		}
		err := s.authorize(ctx, s.store, actor, e.OrganizedBy, lifecycle.Parties(a))
		if errors.Is(err, model.ErrUnauthorized) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Actions = append(out.Actions, string(a))
	}
	return out, nil
}

// ListEvents returns events matching f, newest first.
func (s *EventService) ListEvents(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, f.Status)
	}
	return s.store.Events().List(ctx, f)
}

// UpdateEvent edits descriptive fields while the event is draft or changes_requested.
func (s *EventService) UpdateEvent(ctx context.Context, actor model.Actor, id string, req model.UpdateEventRequest) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.Edit, func(_ context.Context, _ repository.Store, e *model.Event) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: event name is required", model.ErrValidation)
			}
			e.Name = name
		}
		if req.Description != nil {
			e.Description = strings.TrimSpace(*req.Description)
		}
		if req.Capacity != nil {
			if *req.Capacity < 0 {
				return fmt.Errorf("%w: capacity must be zero (unlimited) or positive", model.ErrValidation)
			}
			e.Capacity = *req.Capacity
		}
		if req.CoOrganizerIDs != nil {
			e.CoOrganizerIDs = coOrganizers(*req.CoOrganizerIDs, e.OrganizedBy.PrimaryCoordinatorID)
		}
		return nil
	})
}

// RescheduleEvent moves the event to new dates. Any prior approval is void,
// so the event returns to changes_requested from whatever state it was in.
func (s *EventService) RescheduleEvent(ctx context.Context, actor model.Actor, id string, req model.RescheduleRequest) (*model.Event, error) {
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, lifecycle.Reschedule, func(_ context.Context, _ repository.Store, e *model.Event) error {
		e.StartDate = req.StartDate.UTC()
		e.EndDate = req.EndDate.UTC()
		return nil
	})
}

// ─── Approval chain ───────────────────────────────────────────────────────────

// SubmitEvent sends a draft for faculty review.
func (s *EventService) SubmitEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.Submit, nil)
}

// FacultyApproveEvent forwards an event to the admins.
func (s *EventService) FacultyApproveEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.FacultyApprove, nil)
}

// AdminApproveEvent records the admin's decision: approved or rejected.
func (s *EventService) AdminApproveEvent(ctx context.Context, actor model.Actor, id, decision string) (*model.Event, error) {
	switch decision {
	case model.DecisionApproved:
		return s.transition(ctx, actor, id, lifecycle.AdminApprove, nil)
	case model.DecisionRejected:
		return s.transition(ctx, actor, id, lifecycle.AdminReject, nil)
	}
	return nil, fmt.Errorf("%w: decision must be %q or %q", model.ErrValidation, model.DecisionApproved, model.DecisionRejected)
}

// RequestChanges sends a pending or approved event back to the organizers.
// A non-empty reason is appended to the special instructions.
func (s *EventService) RequestChanges(ctx context.Context, actor model.Actor, id, reason string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.RequestChanges, func(_ context.Context, _ repository.Store, e *model.Event) error {
		if reason = strings.TrimSpace(reason); reason != "" {
			e.SpecialInstructions = append(e.SpecialInstructions, "Changes requested: "+reason)
		}
		return nil
	})
}

// PublishEvent makes an approved event visible.
func (s *EventService) PublishEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.Publish, func(_ context.Context, _ repository.Store, e *model.Event) error {
		at := s.now()
		e.PublishedAt = &at
		return nil
	})
}

// ─── Running the event ────────────────────────────────────────────────────────

// OpenRegistration starts accepting registrations.
func (s *EventService) OpenRegistration(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.OpenRegistration, nil)
}

// CloseRegistration stops accepting registrations.
func (s *EventService) CloseRegistration(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.CloseRegistration, nil)
}

// StartEvent marks the event as under way.
func (s *EventService) StartEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.Start, nil)
}

// CompleteEvent finishes an ongoing event, bumps the club's event count and
// records the event in each organizer's history.
func (s *EventService) CompleteEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.Complete, func(ctx context.Context, tx repository.Store, e *model.Event) error {
		if err := tx.Clubs().IncrementTotalEvents(ctx, e.OrganizedBy.ClubID); err != nil {
			return fmt.Errorf("update club statistics: %w", err)
		}
		if err := tx.Users().AppendOrganizedEvent(ctx, e.OrganizerIDs(), e.ID); err != nil {
			return fmt.Errorf("update organizer history: %w", err)
		}
		return nil
	})
}

// CancelEvent cancels a non-terminal event and logs the reason.
func (s *EventService) CancelEvent(ctx context.Context, actor model.Actor, id, reason string) (*model.Event, error) {
	return s.transition(ctx, actor, id, lifecycle.Cancel, func(_ context.Context, _ repository.Store, e *model.Event) error {
		note := "Cancelled"
		if reason = strings.TrimSpace(reason); reason != "" {
			note += ": " + reason
		}
		e.SpecialInstructions = append(e.SpecialInstructions, note)
		return nil
	})
}

func validateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", model.ErrValidation)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end_date must not be before start_date", model.ErrValidation)
	}
	return nil
}

// coOrganizers trims, deduplicates and drops the primary coordinator.
func coOrganizers(ids []string, primary string) []string {
	out := []string{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == primary || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
