package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Register handles POST /events/{id}/register
// Performs a concurrency-safe registration of the caller. A full event
// answers 201 with status "waitlisted" rather than an error.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Register(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// CancelRegistration handles DELETE /events/{id}/register
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.CancelRegistration(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// PromoteWaitlist handles POST /events/{id}/waitlist/promote
func (h *EventHandler) PromoteWaitlist(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PromoteWaitlist(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if res != nil {
			h.writePartialPromotion(w, r, res, err)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// partialPromotion is the error envelope plus the promotions that were
// committed before the failure.
type partialPromotion struct {
	model.ErrorResponse
	model.PromotionResult
}

// writePartialPromotion reports an interrupted promotion run. The promoted
// registrations are durable, so the client gets them alongside the error.
func (h *EventHandler) writePartialPromotion(w http.ResponseWriter, r *http.Request, res *model.PromotionResult, err error) {
	kind := model.KindOf(err)
	h.log.Warn("promotion interrupted",
		zap.String("event_id", chi.URLParam(r, "id")),
		zap.Int("promoted", len(res.Promoted)),
		zap.Error(err),
	)
	msg := err.Error()
	if kind == model.KindInternal {
		msg = "promotion interrupted; retry to promote the remaining waitlist"
	}
	writeJSON(w, statusFor(kind), partialPromotion{
		ErrorResponse:   model.ErrorResponse{Kind: kind, Error: msg},
		PromotionResult: *res,
	})
}

// ListRegistrations handles GET /events/{id}/registrations
// Returns all registrations for a given event in registration order.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// EventStats handles GET /events/{id}/stats
func (h *EventHandler) EventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.EventStats(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// MarkAttendance handles POST /events/{id}/attendance
func (h *EventHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req model.AttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	stats, err := h.svc.MarkAttendance(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ─── Feedback ─────────────────────────────────────────────────────────────────

// SubmitFeedback handles POST /events/{id}/feedback
func (h *EventHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req model.FeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	summary, err := h.svc.SubmitFeedback(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// ListFeedback handles GET /events/{id}/feedback
func (h *EventHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListFeedback(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// ToggleFeedback handles PATCH /events/{id}/feedback
// Body: {"enabled": bool}
func (h *EventHandler) ToggleFeedback(w http.ResponseWriter, r *http.Request) {
	var req model.ToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.respondEvent(w, r)(h.svc.ToggleFeedback(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Enabled))
}

// ClubFeedback handles GET /clubs/{clubID}/feedback
func (h *EventHandler) ClubFeedback(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ClubFeedbackAnalytics(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "clubID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
