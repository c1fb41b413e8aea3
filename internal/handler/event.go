package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"go.uber.org/zap"
)

// EventService is the event lifecycle API consumed by EventHandler.
type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.EventDetail, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// RegistrationService is the admission API consumed by EventHandler.
type RegistrationService interface {
	Register(ctx context.Context, eventID int64, req model.RegisterRequest) (*service.Admission, error)
	Cancel(ctx context.Context, eventID int64, phone string) (*service.Cancellation, error)
	UpdateRegistration(ctx context.Context, eventID, registrationID int64, req model.UpdateRegistrationRequest) (*model.Registration, error)
	ListRegistrations(ctx context.Context, eventID int64) (*model.RegistrationList, error)
}

// EventHandler holds the HTTP handlers for events and their registrations.
type EventHandler struct {
	events        EventService
	registrations RegistrationService
	log           *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events EventService, registrations RegistrationService, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{events: events, registrations: registrations, log: log}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusCreated, "event created", event)
}

// ListEvents handles GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	total := len(events)
	writeJSON(w, http.StatusOK, model.Response{Success: true, Data: events, Total: &total})
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "", event)
}

// UpdateEvent handles PATCH /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "event updated", event)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "event deleted", nil)
}

// ─── Inscriptions ─────────────────────────────────────────────────────────────

// Register handles POST /api/events/{id}/inscriptions
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	adm, err := h.registrations.Register(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	msg := "registration confirmed"
	if adm.Exhausted() {
		msg = "registration confirmed, the event is now full"
	}
	writeOK(w, http.StatusCreated, msg, adm)
}

// Cancel handles DELETE /api/events/{id}/inscriptions with body {"phone": ...}
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req model.CancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.registrations.Cancel(r.Context(), id, req.Phone)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "registration cancelled", out)
}

// UpdateRegistration handles PATCH /api/events/{id}/inscriptions/{rid}
func (h *EventHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	rid, err := pathID(r, "rid")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req model.UpdateRegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.registrations.UpdateRegistration(r.Context(), id, rid, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "registration updated", reg)
}

// ListRegistrations handles GET /api/events/{id}/inscriptions
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	list, err := h.registrations.ListRegistrations(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "", list)
}
