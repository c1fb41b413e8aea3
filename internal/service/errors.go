package service

import (
	"errors"
	"strings"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
)

// Admission and lifecycle errors. Handlers map them to HTTP status codes
// with errors.Is; store errors never leave this package unclassified.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrEventNotActive        = errors.New("event is not accepting registrations")
	ErrEventFull             = errors.New("event is full")
	ErrDuplicateRegistration = errors.New("phone already registered for this event")
	ErrPhoneAlreadyInUse     = errors.New("phone already in use by another registration")
	ErrTimeout               = errors.New("transaction timed out")
)

// ValidationError carries the per-field reasons of an ErrInvalidInput.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []model.FieldError{{Field: field, Message: message}}}
}

// isClassified reports whether err already belongs to the taxonomy above.
func isClassified(err error) bool {
	for _, target := range []error{
		ErrInvalidInput,
		ErrEventNotFound,
		ErrRegistrationNotFound,
		ErrEventNotActive,
		ErrEventFull,
		ErrDuplicateRegistration,
		ErrPhoneAlreadyInUse,
		ErrTimeout,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
