// Package notify publishes lifecycle and registration events for an external
// notifier. Delivery to users (email, push) happens elsewhere.
package notify

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	TypeEventTransitioned    Type = "event.transitioned"
	TypeRegistrationCreated  Type = "registration.created"
	TypeRegistrationCanceled Type = "registration.cancelled"
	TypeRegistrationPromoted Type = "registration.promoted"
)

// Message is the published payload.
type Message struct {
	ID                 string                   `json:"id"`
	Type               Type                     `json:"type"`
	EventID            string                   `json:"event_id"`
	ActorID            string                   `json:"actor_id,omitempty"`
	Action             string                   `json:"action,omitempty"`
	From               model.EventStatus        `json:"from,omitempty"`
	To                 model.EventStatus        `json:"to,omitempty"`
	UserID             string                   `json:"user_id,omitempty"`
	RegistrationID     string                   `json:"registration_id,omitempty"`
	RegistrationStatus model.RegistrationStatus `json:"registration_status,omitempty"`
	OccurredAt         time.Time                `json:"occurred_at"`
}

// Publisher sends messages. Publish errors never undo the state change that
// produced the message; callers log and continue.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Transitioned builds the message for an event status change.
func Transitioned(eventID, actorID, action string, from, to model.EventStatus, at time.Time) Message {
	return Message{
		ID:         uuid.New().String(),
		Type:       TypeEventTransitioned,
		EventID:    eventID,
		ActorID:    actorID,
		Action:     action,
		From:       from,
		To:         to,
		OccurredAt: at,
	}
}

// RegistrationChanged builds the message for a registration event.
func RegistrationChanged(t Type, reg *model.Registration, actorID string, at time.Time) Message {
	return Message{
		ID:                 uuid.New().String(),
		Type:               t,
		EventID:            reg.EventID,
		ActorID:            actorID,
		UserID:             reg.UserID,
		RegistrationID:     reg.ID,
		RegistrationStatus: reg.Status,
		OccurredAt:         at,
	}
}
