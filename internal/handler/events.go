package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/go-chi/chi/v5"
)

// CreateEvent handles POST /clubs/{clubID}/events
// Creates a draft event owned by the club, coordinated by the caller.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "clubID"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events?club=&status=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.svc.ListEvents(r.Context(), repository.EventFilter{
		ClubID: q.Get("club"),
		Status: model.EventStatus(q.Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// AvailableActions handles GET /events/{id}/actions
// Lists what the caller can do to the event right now.
func (h *EventHandler) AvailableActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.svc.AvailableActions(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, actions)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(h.svc.UpdateEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req))
}

// RescheduleEvent handles POST /events/{id}/reschedule
func (h *EventHandler) RescheduleEvent(w http.ResponseWriter, r *http.Request) {
	var req model.RescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(h.svc.RescheduleEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req))
}

// AdminDecision handles POST /events/{id}/approval
// Body: {"decision": "approved" | "rejected"}
func (h *EventHandler) AdminDecision(w http.ResponseWriter, r *http.Request) {
	var req model.ApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(h.svc.AdminApproveEvent(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Decision))
}

// RequestChanges handles POST /events/{id}/request-changes
func (h *EventHandler) RequestChanges(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, h.svc.RequestChanges)
}

// CancelEvent handles POST /events/{id}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, h.svc.CancelEvent)
}

// transitionFunc is the shape of every body-less lifecycle operation.
type transitionFunc func(ctx context.Context, actor model.Actor, id string) (*model.Event, error)

// Transition adapts a body-less lifecycle operation (submit, publish, start...)
// into a handler for POST /events/{id}/<action>.
func (h *EventHandler) Transition(op transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respondEvent(w, r)(op(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")))
	}
}

func (h *EventHandler) withReason(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor model.Actor, id, reason string) (*model.Event, error)) {
	var req model.ReasonRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(op(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Reason))
}

// respondEvent writes the event returned by a mutating operation.
func (h *EventHandler) respondEvent(w http.ResponseWriter, r *http.Request) func(*model.Event, error) {
	return func(event *model.Event, err error) {
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	}
}
