// Package repository defines persistence for events, registrations,
// resources, clubs and users. Two implementations exist: PostgresStore uses
// pgx directly (no ORM) and MemoryStore keeps everything in process for
// development and tests.
package repository

import (
	"context"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
)

// EventFilter narrows List results. Zero fields match everything.
type EventFilter struct {
	ClubID string
	Status model.EventStatus
}

// EventRepository handles persistence for events and their resource allocations.
type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	// Get returns the event or model.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Event, error)
	// GetForUpdate is Get that also locks the event row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*model.Event, error)
	// List returns events ordered by creation time descending.
	List(ctx context.Context, f EventFilter) ([]model.Event, error)
	// Update persists every mutable field, including the allocation list.
	Update(ctx context.Context, e *model.Event) error
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository interface {
	// Create fails with model.ErrAlreadyRegistered when the user already
	// holds a non-cancelled registration for the event.
	Create(ctx context.Context, r *model.Registration) error
	// FindActive returns the user's non-cancelled registration or model.ErrNotFound.
	FindActive(ctx context.Context, eventID, userID string) (*model.Registration, error)
	CountByStatus(ctx context.Context, eventID string, status model.RegistrationStatus) (int, error)
	StatusCounts(ctx context.Context, eventID string) (map[model.RegistrationStatus]int, error)
	// ListWaitlisted returns waitlisted registrations oldest first. A limit
	// of zero or less returns all of them.
	ListWaitlisted(ctx context.Context, eventID string, limit int) ([]model.Registration, error)
	// ListByEvent returns all registrations for an event in registration order.
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	Update(ctx context.Context, r *model.Registration) error
}

// ResourceRepository handles persistence for bookable resources.
type ResourceRepository interface {
	// Create fails with model.ErrValidation when the hall number is taken.
	Create(ctx context.Context, r *model.Resource) error
	Get(ctx context.Context, id string) (*model.Resource, error)
	List(ctx context.Context, availableOnly bool) ([]model.Resource, error)
	Update(ctx context.Context, r *model.Resource) error
}

// ClubRepository reads clubs and memberships.
type ClubRepository interface {
	Get(ctx context.Context, id string) (*model.Club, error)
	// GetMembership returns the user's membership or model.ErrNotFound.
	GetMembership(ctx context.Context, clubID, userID string) (*model.Membership, error)
	IncrementTotalEvents(ctx context.Context, clubID string) error
	Put(ctx context.Context, c *model.Club) error
	PutMembership(ctx context.Context, m *model.Membership) error
}

// UserRepository reads user profiles and records organizer history.
type UserRepository interface {
	Get(ctx context.Context, id string) (*model.User, error)
	// AppendOrganizedEvent adds eventID to each user's organizer history,
	// skipping users who already have it.
	AppendOrganizedEvent(ctx context.Context, userIDs []string, eventID string) error
	Put(ctx context.Context, u *model.User) error
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Events() EventRepository
	Registrations() RegistrationRepository
	Resources() ResourceRepository
	Clubs() ClubRepository
	Users() UserRepository

	// InTx runs fn against a transactional view of the store. If fn returns
	// an error nothing it wrote is persisted. Calling InTx on a view that is
	// already transactional joins the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
