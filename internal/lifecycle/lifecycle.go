// Package lifecycle holds the event status transition table. Every service
// operation that changes an event consults Next before writing, so no code
// path can move an event outside the edges listed here.
package lifecycle

import (
	"fmt"
	"slices"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
)

// Action names an edge (or family of edges) in the lifecycle graph.
type Action string

const (
	Submit            Action = "submit"
	FacultyApprove    Action = "faculty_approve"
	AdminApprove      Action = "admin_approve"
	AdminReject       Action = "admin_reject"
	RequestChanges    Action = "request_changes"
	Publish           Action = "publish"
	OpenRegistration  Action = "open_registration"
	CloseRegistration Action = "close_registration"
	Start             Action = "start"
	Complete          Action = "complete"
	Cancel            Action = "cancel"
	Edit              Action = "edit"
	Reschedule        Action = "reschedule"
	RequestResource   Action = "request_resource"
	ReleaseResource   Action = "release_resource"
)

// Party is a class of actor allowed to take an action.
type Party int

const (
	// Club is an officer of the organizing club or the event's primary coordinator.
	Club Party = iota + 1
	// Faculty is a faculty coordinator.
	Faculty
	// Admin is a platform administrator.
	Admin
)

func (p Party) String() string {
	switch p {
	case Club:
		return "club"
	case Faculty:
		return "faculty"
	case Admin:
		return "admin"
	}
	return "unknown"
}

type rule struct {
	// from lists legal source states; nil means any non-terminal state.
	from []model.EventStatus
	// to is the destination; empty leaves the status unchanged.
	to model.EventStatus
	// remap overrides to for specific source states.
	remap   map[model.EventStatus]model.EventStatus
	parties []Party
}

var editable = []model.EventStatus{model.StatusDraft, model.StatusChangesRequested}

var rules = map[Action]rule{
	Submit: {
		from:    []model.EventStatus{model.StatusDraft},
		to:      model.StatusPendingInternalApproval,
		parties: []Party{Club},
	},
	FacultyApprove: {
		from:    []model.EventStatus{model.StatusPendingInternalApproval},
		to:      model.StatusPendingAdminApproval,
		parties: []Party{Faculty},
	},
	AdminApprove: {
		from:    []model.EventStatus{model.StatusPendingAdminApproval},
		to:      model.StatusApproved,
		parties: []Party{Admin},
	},
	AdminReject: {
		from:    []model.EventStatus{model.StatusPendingAdminApproval},
		to:      model.StatusRejected,
		parties: []Party{Admin},
	},
	RequestChanges: {
		from:    []model.EventStatus{model.StatusPendingAdminApproval, model.StatusApproved},
		to:      model.StatusChangesRequested,
		parties: []Party{Admin},
	},
	Publish: {
		from:    []model.EventStatus{model.StatusApproved},
		to:      model.StatusPublished,
		parties: []Party{Club},
	},
	OpenRegistration: {
		from:    []model.EventStatus{model.StatusPublished},
		to:      model.StatusRegistrationOpen,
		parties: []Party{Club, Admin},
	},
	CloseRegistration: {
		from:    []model.EventStatus{model.StatusRegistrationOpen},
		to:      model.StatusRegistrationClosed,
		parties: []Party{Club, Admin},
	},
	Start: {
		from:    []model.EventStatus{model.StatusPublished, model.StatusRegistrationOpen, model.StatusRegistrationClosed},
		to:      model.StatusOngoing,
		parties: []Party{Club, Admin},
	},
	Complete: {
		from:    []model.EventStatus{model.StatusOngoing},
		to:      model.StatusCompleted,
		parties: []Party{Club, Admin},
	},
	Cancel: {
		to:      model.StatusCancelled,
		parties: []Party{Club, Admin},
	},
	Edit: {
		from:    editable,
		parties: []Party{Club},
	},
	// A date change invalidates any prior approval.
	Reschedule: {
		to:      model.StatusChangesRequested,
		parties: []Party{Club},
	},
	RequestResource: {
		from:    editable,
		to:      model.StatusPendingInternalApproval,
		parties: []Party{Club},
	},
	// An approved event whose resource is pulled is no longer valid.
	ReleaseResource: {
		remap:   map[model.EventStatus]model.EventStatus{model.StatusApproved: model.StatusChangesRequested},
		parties: []Party{Admin},
	},
}

// Next returns the status an event in current moves to when action is
// applied. It fails with model.ErrInvalidTransition when current is not a
// legal source state for action.
func Next(current model.EventStatus, action Action) (model.EventStatus, error) {
	r, ok := rules[action]
	if !ok {
		return current, fmt.Errorf("%w: unknown action %q", model.ErrInvalidTransition, action)
	}
	if !r.allows(current) {
		return current, fmt.Errorf("%w: cannot %s an event in status %s", model.ErrInvalidTransition, action, current)
	}
	if to, ok := r.remap[current]; ok {
		return to, nil
	}
	if r.to == "" {
		return current, nil
	}
	return r.to, nil
}

// Allowed reports whether action may be applied to an event in current.
func Allowed(current model.EventStatus, action Action) bool {
	r, ok := rules[action]
	return ok && r.allows(current)
}

// Parties returns the actor classes permitted to take action.
func Parties(action Action) []Party {
	return slices.Clone(rules[action].parties)
}

// Actions returns every known action.
func Actions() []Action {
	out := make([]Action, 0, len(rules))
	for a := range rules {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

func (r rule) allows(current model.EventStatus) bool {
	if r.from == nil {
		return current.Valid() && !current.IsTerminal()
	}
	return slices.Contains(r.from, current)
}
