// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Error codes carried in the "error" field of the error envelope.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeValidation        = "VALIDATION_ERROR"
	CodeEventNotFound     = "EVENT_NOT_FOUND"
	CodeEventNotActive    = "EVENT_NOT_ACTIVE"
	CodeEventFull         = "EVENT_FULL"
	CodeDuplicate         = "DUPLICATE_INSCRIPTION"
	CodeInscriptionAbsent = "INSCRIPTION_NOT_FOUND"
	CodePhoneInUse        = "PHONE_IN_USE"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: msg})
}

func writeOK(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, model.Response{Success: true, Message: msg, Data: data})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// writeServiceError maps service errors to status codes. Anything outside
// the service taxonomy is logged and answered with 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   CodeValidation,
			Message: "invalid input",
			Details: verr.Fields,
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, service.ErrEventNotActive):
		writeError(w, http.StatusBadRequest, CodeEventNotActive, "event is not accepting registrations")
	case errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, CodeEventNotFound, "event not found")
	case errors.Is(err, service.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, CodeInscriptionAbsent, "registration not found")
	case errors.Is(err, service.ErrEventFull):
		writeError(w, http.StatusConflict, CodeEventFull, "event is full")
	case errors.Is(err, service.ErrDuplicateRegistration):
		writeError(w, http.StatusConflict, CodeDuplicate, "this phone is already registered for the event")
	case errors.Is(err, service.ErrPhoneAlreadyInUse):
		writeError(w, http.StatusConflict, CodePhoneInUse, "this phone is already used by another registration")
	case errors.Is(err, service.ErrTimeout):
		log.Warn("transaction timed out", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeTimeout, "the operation timed out, please retry")
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthCheck handles GET /health.
func HealthCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
	}
}
