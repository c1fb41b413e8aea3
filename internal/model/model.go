// Package model defines the core domain types for the event signup system.
package model

import (
	"encoding/json"
	"time"
)

// EventStatus controls whether an event accepts new registrations.
type EventStatus string

const (
	EventActive   EventStatus = "ACTIVE"
	EventInactive EventStatus = "INACTIVE"
)

// Event represents an activity created by an organizer.
type Event struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Capacity    int         `json:"capacity"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// TotalInscriptions is derived from the registrations table on read.
	TotalInscriptions int `json:"totalInscriptions"`
}

// Remaining returns the number of free slots. It goes negative when an
// organizer lowered the capacity below the current count.
func (e *Event) Remaining() int {
	return e.Capacity - e.TotalInscriptions
}

// IsFull returns true when no slots remain.
func (e *Event) IsFull() bool {
	return e.TotalInscriptions >= e.Capacity
}

// IsActive returns true when the event accepts registrations.
func (e *Event) IsActive() bool {
	return e.Status == EventActive
}

// MarshalJSON adds remainingCapacity to the wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		RemainingCapacity int `json:"remainingCapacity"`
	}{plain(e), e.Remaining()})
}

// EventDetail is an event together with its registrations, oldest first.
type EventDetail struct {
	Event
	Registrations []Registration `json:"inscriptions"`
}

// MarshalJSON flattens the event fields next to inscriptions.
func (d EventDetail) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		RemainingCapacity int            `json:"remainingCapacity"`
		Registrations     []Registration `json:"inscriptions"`
	}{plain(d.Event), d.Remaining(), d.Registrations})
}

// Registration is a participant's signup against one event, keyed by phone.
type Registration struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"eventId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string      `json:"title" validate:"required,max=100"`
	Description string      `json:"description" validate:"max=500"`
	Capacity    *int        `json:"capacity" validate:"required,min=0,max=100000"`
	Status      EventStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

// UpdateEventRequest is the partial payload for PATCH /api/events/{id}.
type UpdateEventRequest struct {
	Title       *string      `json:"title" validate:"omitnil,min=1,max=100"`
	Description *string      `json:"description" validate:"omitnil,max=500"`
	Capacity    *int         `json:"capacity" validate:"omitnil,min=0,max=100000"`
	Status      *EventStatus `json:"status" validate:"omitnil,oneof=ACTIVE INACTIVE"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"required,phone"`
}

// CancelRequest is the payload for cancelling a registration by phone.
type CancelRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// UpdateRegistrationRequest is the partial payload for editing a registration.
type UpdateRegistrationRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=100"`
	Phone *string `json:"phone" validate:"omitnil,phone"`
}

// EventSummary is the short event description embedded in list responses.
type EventSummary struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title"`
	Capacity int         `json:"capacity"`
	Status   EventStatus `json:"status"`
}

// RegistrationList is the response of GET /api/events/{id}/inscriptions.
type RegistrationList struct {
	Event         EventSummary   `json:"event"`
	Registrations []Registration `json:"inscriptions"`
	Total         int            `json:"total"`
	Remaining     int            `json:"remaining"`
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
