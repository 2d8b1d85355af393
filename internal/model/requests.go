package model

import "time"

// CreateEventRequest is the payload for creating a new event in draft.
type CreateEventRequest struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Capacity       int       `json:"capacity"`
	CoOrganizerIDs []string  `json:"co_organizer_ids"`
}

// UpdateEventRequest carries the editable fields of an event. Nil fields are left unchanged.
type UpdateEventRequest struct {
	Name           *string   `json:"name"`
	Description    *string   `json:"description"`
	Capacity       *int      `json:"capacity"`
	CoOrganizerIDs *[]string `json:"co_organizer_ids"`
}

// RescheduleRequest moves an event to new dates.
type RescheduleRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Approval decisions accepted by the admin approval endpoint.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ApprovalRequest is the admin's decision on a pending event.
type ApprovalRequest struct {
	Decision string `json:"decision"`
}

// ReasonRequest carries an optional free-text reason (cancellation, allocation removal).
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ResourceRequest asks for a resource to be allocated to an event.
type ResourceRequest struct {
	ResourceID string `json:"resource_id"`
	Quantity   int    `json:"quantity"`
}

// AttendanceRequest lists the users who attended; every other admitted registrant is a no-show.
type AttendanceRequest struct {
	AttendedUserIDs []string `json:"attended_user_ids"`
}

// FeedbackRequest is an attendee's rating of a completed event.
type FeedbackRequest struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// ToggleRequest enables or disables a boolean setting.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// CreateResourceRequest is the payload for adding a resource to the catalogue.
type CreateResourceRequest struct {
	Name     string `json:"name"`
	HallNo   string `json:"hall_no"`
	Building string `json:"building"`
	Capacity int    `json:"capacity"`
}

// UpdateResourceRequest carries editable resource fields. Nil fields are left unchanged.
type UpdateResourceRequest struct {
	Name     *string `json:"name"`
	Building *string `json:"building"`
	Capacity *int    `json:"capacity"`
}

// AvailabilityRequest toggles whether a resource can be requested.
type AvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// RegistrationResult reports the outcome of a registration attempt.
type RegistrationResult struct {
	Status       RegistrationStatus `json:"status"`
	Message      string             `json:"message"`
	Registration *Registration      `json:"registration"`
}

// PromotionResult reports the registrations moved off the waitlist.
type PromotionResult struct {
	Promoted           []Registration `json:"promoted"`
	TotalRegistrations int            `json:"total_registrations"`
}

// EventStats counts registrations per status.
type EventStats struct {
	Registered int `json:"registered"`
	Waitlisted int `json:"waitlisted"`
	Cancelled  int `json:"cancelled"`
	Attended   int `json:"attended"`
	NoShow     int `json:"no_show"`
	Total      int `json:"total"`
}

// FeedbackEntry is one attendee's submitted feedback.
type FeedbackEntry struct {
	UserID string `json:"user_id"`
	Feedback
}

// EventFeedback is the feedback view of a single event.
type EventFeedback struct {
	EventID   string          `json:"event_id"`
	EventName string          `json:"event_name"`
	Summary   FeedbackSummary `json:"summary"`
	Feedbacks []FeedbackEntry `json:"feedbacks,omitempty"`
}

// ClubFeedback aggregates feedback across a club's completed events.
type ClubFeedback struct {
	ClubID                 string          `json:"club_id"`
	TotalEvents            int             `json:"total_events"`
	TotalFeedbackResponses int             `json:"total_feedback_responses"`
	ClubAverageRating      *float64        `json:"club_average_rating"`
	Events                 []EventFeedback `json:"events"`
}

// EventActions lists the lifecycle actions a caller may take on an event.
type EventActions struct {
	EventID string      `json:"event_id"`
	Status  EventStatus `json:"status"`
	Actions []string    `json:"actions"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Kind  Kind   `json:"kind"`
	Error string `json:"error"`
}
