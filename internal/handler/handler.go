// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Shivanand-hulikatti/club-events/internal/auth"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/service"
	"go.uber.org/zap"
)

// kindUnauthenticated is reported when no valid bearer token was presented.
const kindUnauthenticated model.Kind = "unauthenticated"

// EventHandler holds all HTTP handlers for the club events API.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind model.Kind, msg string) {
	writeJSON(w, status, model.ErrorResponse{Kind: kind, Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidTransition, model.KindRegistrationClosed, model.KindAlreadyRegistered:
		return http.StatusConflict
	case model.KindCapacityInsufficient:
		return http.StatusUnprocessableEntity
	case model.KindUnauthorized:
		return http.StatusForbidden
	case model.KindValidation:
		return http.StatusBadRequest
	case kindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeServiceError maps a service error onto its status code. Internal
// errors are logged and replaced by a generic message.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	if kind == model.KindInternal {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, kind, "internal server error")
		return
	}
	writeError(w, statusFor(kind), kind, err.Error())
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, model.KindValidation, "invalid request body: "+err.Error())
}

// actorFrom returns the authenticated caller. Routes that reach a handler
// have passed Authenticate, so a missing actor is a wiring bug.
func actorFrom(ctx context.Context) model.Actor {
	actor, _ := auth.ActorFrom(ctx)
	return actor
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessCheck handles GET /ready. It reports 503 while check fails.
func ReadinessCheck(check func(ctx context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
