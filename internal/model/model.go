// Package model defines the core domain types for the club event system.
package model

import (
	"slices"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusDraft                   EventStatus = "draft"
	StatusPendingInternalApproval EventStatus = "pending_internal_approval"
	StatusPendingAdminApproval    EventStatus = "pending_admin_approval"
	StatusChangesRequested        EventStatus = "changes_requested"
	StatusApproved                EventStatus = "approved"
	StatusPublished               EventStatus = "published"
	StatusRegistrationOpen        EventStatus = "registration_open"
	StatusRegistrationClosed      EventStatus = "registration_closed"
	StatusOngoing                 EventStatus = "ongoing"
	StatusCompleted               EventStatus = "completed"
	StatusCancelled               EventStatus = "cancelled"
	StatusRejected                EventStatus = "rejected"
)

// EventStatuses lists every status in lifecycle order.
var EventStatuses = []EventStatus{
	StatusDraft,
	StatusPendingInternalApproval,
	StatusPendingAdminApproval,
	StatusChangesRequested,
	StatusApproved,
	StatusPublished,
	StatusRegistrationOpen,
	StatusRegistrationClosed,
	StatusOngoing,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	return slices.Contains(EventStatuses, s)
}

// IsTerminal returns true for statuses no transition leaves.
func (s EventStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// Role is a platform-wide user role.
type Role string

const (
	RoleParticipant        Role = "participant"
	RoleOrganizer          Role = "organizer"
	RoleFacultyCoordinator Role = "faculty_coordinator"
	RoleAdmin              Role = "admin"
	RoleSuperAdmin         Role = "super_admin"
)

// ClubRole is a member's position inside a club.
type ClubRole string

const (
	ClubRolePresident          ClubRole = "president"
	ClubRoleVicePresident      ClubRole = "vice_president"
	ClubRoleFacultyCoordinator ClubRole = "faculty_coordinator"
	ClubRoleSecretary          ClubRole = "secretary"
	ClubRoleTreasurer          ClubRole = "treasurer"
	ClubRoleEventCoordinator   ClubRole = "event_coordinator"
	ClubRoleMarketingHead      ClubRole = "marketing_head"
	ClubRoleTechnicalLead      ClubRole = "technical_lead"
	ClubRoleCoreCommittee      ClubRole = "core_committee"
	ClubRoleGeneralMember      ClubRole = "general_member"
)

// IsOfficer reports whether the club role may manage the club's events.
func (r ClubRole) IsOfficer() bool {
	switch r {
	case ClubRolePresident, ClubRoleVicePresident, ClubRoleSecretary,
		ClubRoleEventCoordinator, ClubRoleCoreCommittee:
		return true
	}
	return false
}

// RegistrationStatus is the state of a single user's registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationNoShow     RegistrationStatus = "no_show"
	RegistrationAttended   RegistrationStatus = "attended"
)

// Organizer identifies the owning club and the coordinator who created the event.
type Organizer struct {
	ClubID               string `json:"club_id"`
	PrimaryCoordinatorID string `json:"primary_coordinator_id"`
}

// Allocation binds a resource to an event. A nil AllocatedAt means the
// request is still pending admin approval.
type Allocation struct {
	ResourceID  string     `json:"resource_id"`
	Quantity    int        `json:"quantity"`
	AllocatedAt *time.Time `json:"allocated_at"`
}

// FeedbackSummary is derived from submitted feedback and recomputed on each submission.
type FeedbackSummary struct {
	AverageRating  float64 `json:"average_rating"`
	TotalResponses int     `json:"total_responses"`
}

// Event represents a club event moving through the approval lifecycle.
type Event struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	OrganizedBy         Organizer       `json:"organized_by"`
	CoOrganizerIDs      []string        `json:"co_organizer_ids"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	Status              EventStatus     `json:"status"`
	Capacity            int             `json:"capacity"`
	TotalRegistrations  int             `json:"total_registrations"`
	TotalAttendance     int             `json:"total_attendance"`
	ResourcesAllocated  []Allocation    `json:"resources_allocated"`
	SpecialInstructions []string        `json:"special_instructions"`
	FeedbackEnabled     bool            `json:"feedback_enabled"`
	FeedbackSummary     FeedbackSummary `json:"feedback_summary"`
	PublishedAt         *time.Time      `json:"published_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	c.CoOrganizerIDs = slices.Clone(e.CoOrganizerIDs)
	c.SpecialInstructions = slices.Clone(e.SpecialInstructions)
	c.ResourcesAllocated = make([]Allocation, len(e.ResourcesAllocated))
	for i, a := range e.ResourcesAllocated {
		if a.AllocatedAt != nil {
			t := *a.AllocatedAt
			a.AllocatedAt = &t
		}
		c.ResourcesAllocated[i] = a
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// AllocationIndex returns the position of the allocation entry for
// resourceID, or -1 when the resource was never requested.
func (e *Event) AllocationIndex(resourceID string) int {
	return slices.IndexFunc(e.ResourcesAllocated, func(a Allocation) bool {
		return a.ResourceID == resourceID
	})
}

// OrganizerIDs returns the primary coordinator followed by co-organizers, deduplicated.
func (e *Event) OrganizerIDs() []string {
	ids := []string{e.OrganizedBy.PrimaryCoordinatorID}
	for _, id := range e.CoOrganizerIDs {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Feedback is the optional post-event rating attached to a registration.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comments    string    `json:"comments"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Registration represents a user's registration for an event.
type Registration struct {
	ID           string             `json:"id"`
	EventID      string             `json:"event_id"`
	UserID       string             `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
	Feedback     *Feedback          `json:"feedback,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the registration.
func (r *Registration) Clone() *Registration {
	c := *r
	if r.Feedback != nil {
		f := *r.Feedback
		c.Feedback = &f
	}
	return &c
}

// Resource is a bookable hall or room.
type Resource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	HallNo      string    `json:"hall_no"`
	Building    string    `json:"building"`
	Capacity    int       `json:"capacity"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Club is the organizing body of events.
type Club struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalEvents  int    `json:"total_events"`
	TotalMembers int    `json:"total_members"`
}

// Membership is a user's role within a club.
type Membership struct {
	ClubID   string    `json:"club_id"`
	UserID   string    `json:"user_id"`
	Role     ClubRole  `json:"role"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}

// User is the subset of the user profile the event core needs.
type User struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Role            Role     `json:"role"`
	IsActive        bool     `json:"is_active"`
	EventsOrganized []string `json:"events_organized"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
