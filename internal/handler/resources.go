package handler

import (
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/go-chi/chi/v5"
)

// ListResources handles GET /resources?available=true
func (h *EventHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	availableOnly := false
	if v := r.URL.Query().Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.KindValidation, "available must be a boolean")
			return
		}
		availableOnly = b
	}

	res, err := h.svc.ListResources(r.Context(), availableOnly)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if res == nil {
		res = []model.Resource{}
	}

	writeJSON(w, http.StatusOK, res)
}

// CreateResource handles POST /resources
func (h *EventHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req model.CreateResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.svc.CreateResource(r.Context(), actorFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// UpdateResource handles PUT /resources/{resourceID}
func (h *EventHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.svc.UpdateResource(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "resourceID"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// SetResourceAvailability handles PATCH /resources/{resourceID}/availability
func (h *EventHandler) SetResourceAvailability(w http.ResponseWriter, r *http.Request) {
	var req model.AvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.svc.SetResourceAvailability(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "resourceID"), req.IsAvailable)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ─── Allocation workflow ──────────────────────────────────────────────────────

// RequestResource handles POST /events/{id}/resources
func (h *EventHandler) RequestResource(w http.ResponseWriter, r *http.Request) {
	var req model.ResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(h.svc.RequestResource(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req))
}

// FacultyApproveResource handles POST /events/{id}/resources/faculty-approve
func (h *EventHandler) FacultyApproveResource(w http.ResponseWriter, r *http.Request) {
	h.respondEvent(w, r)(h.svc.FacultyApproveResource(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")))
}

// AdminApproveResource handles POST /events/{id}/resources/{resourceID}/approve
func (h *EventHandler) AdminApproveResource(w http.ResponseWriter, r *http.Request) {
	h.respondEvent(w, r)(h.svc.AdminApproveResource(r.Context(), actorFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "resourceID")))
}

// RemoveResourceAllocation handles DELETE /events/{id}/resources/{resourceID}
// An optional {"reason": "..."} body is recorded on the event.
func (h *EventHandler) RemoveResourceAllocation(w http.ResponseWriter, r *http.Request) {
	var req model.ReasonRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(h.svc.RemoveResourceAllocation(r.Context(), actorFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "resourceID"), req.Reason))
}
