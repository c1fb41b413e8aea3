package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Admission is the outcome of a successful Register.
type Admission struct {
	Registration      model.Registration `json:"inscription"`
	Event             model.Event        `json:"event"`
	TotalInscriptions int                `json:"totalInscriptions"`
	RemainingCapacity int                `json:"remainingCapacity"`
}

// Exhausted reports whether this admission took the last slot.
func (a *Admission) Exhausted() bool {
	return a.RemainingCapacity <= 0
}

// Cancellation is the outcome of a successful Cancel.
type Cancellation struct {
	Registration      model.Registration `json:"inscription"`
	TotalInscriptions int                `json:"totalInscriptions"`
	RemainingCapacity int                `json:"remainingCapacity"`
}

// RegistrationService admits, cancels and edits registrations.
type RegistrationService struct {
	deps
	events        EventStore
	registrations RegistrationStore
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(
	tx Transactor,
	events EventStore,
	registrations RegistrationStore,
	opts ...Option,
) *RegistrationService {
	return &RegistrationService{
		deps:          newDeps(tx, opts),
		events:        events,
		registrations: registrations,
	}
}

// Register admits a participant into an event. Checks run in this order and
// the first failure wins:
//
//  1. the event exists (ErrEventNotFound)
//  2. the event is ACTIVE (ErrEventNotActive)
//  3. a slot is free (ErrEventFull)
//  4. the phone is not registered yet (ErrDuplicateRegistration)
//  5. name and phone are well formed (ErrInvalidInput)
//
// All checks and the insert run in one transaction holding the event row
// lock, so concurrent calls for the same event see each other's commits.
// The unique (event, phone) index backs up check 4.
func (s *RegistrationService) Register(ctx context.Context, eventID int64, req model.RegisterRequest) (*Admission, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.Register",
		trace.WithAttributes(attribute.Int64("event.id", eventID)))
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)

	var adm Admission
	err := s.inTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}
		if !event.IsActive() {
			return ErrEventNotActive
		}

		count, err := s.registrations.Count(ctx, eventID)
		if err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		event.TotalInscriptions = count
		if event.IsFull() {
			return ErrEventFull
		}

		if _, err := s.registrations.FindByPhone(ctx, eventID, req.Phone); err == nil {
			return ErrDuplicateRegistration
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check duplicate: %w", err)
		}

		if err := Validate(req); err != nil {
			return err
		}

		reg, err := s.registrations.Insert(ctx, eventID, req.Name, req.Phone)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrUniqueViolation):
				return ErrDuplicateRegistration
			case errors.Is(err, repository.ErrNotFound):
				return ErrEventNotFound
			}
			return fmt.Errorf("insert registration: %w", err)
		}

		event.TotalInscriptions = count + 1
		adm = Admission{
			Registration:      *reg,
			Event:             *event,
			TotalInscriptions: event.TotalInscriptions,
			RemainingCapacity: event.Remaining(),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("event.remaining", adm.RemainingCapacity))

	s.audit(ctx, model.AuditRecord{
		Action:     model.ActionInscriptionCreated,
		EntityType: model.EntityInscription,
		EntityID:   adm.Registration.ID,
		Details: mustJSON(map[string]any{
			"name":              adm.Registration.Name,
			"phone":             adm.Registration.Phone,
			"eventId":           eventID,
			"remainingCapacity": adm.RemainingCapacity,
		}),
	})
	s.notify(model.Notification{
		Type:              model.KindInscription,
		EventID:           eventID,
		EventTitle:        adm.Event.Title,
		ParticipantName:   adm.Registration.Name,
		ParticipantPhone:  adm.Registration.Phone,
		RemainingCapacity: adm.RemainingCapacity,
		TotalInscriptions: adm.TotalInscriptions,
		Timestamp:         s.now().UTC(),
	})

	return &adm, nil
}

// Cancel removes the registration of phone from the event. A malformed
// phone is rejected before any lookup. Of two
// concurrent cancels for the same phone only one succeeds; the other gets
// ErrRegistrationNotFound.
func (s *RegistrationService) Cancel(ctx context.Context, eventID int64, phone string) (*Cancellation, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.Cancel",
		trace.WithAttributes(attribute.Int64("event.id", eventID)))
	defer span.End()

	phone = strings.TrimSpace(phone)
	if err := Validate(model.CancelRequest{Phone: phone}); err != nil {
		return nil, err
	}

	var (
		out   Cancellation
		title string
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		reg, err := s.registrations.FindByPhone(ctx, eventID, phone)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("find registration: %w", err)
		}

		if err := s.registrations.Delete(ctx, reg.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("delete registration: %w", err)
		}

		event, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("reload event: %w", err)
		}

		title = event.Title
		out = Cancellation{
			Registration:      *reg,
			TotalInscriptions: event.TotalInscriptions,
			RemainingCapacity: event.Remaining(),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	s.audit(ctx, model.AuditRecord{
		Action:     model.ActionInscriptionCancelled,
		EntityType: model.EntityInscription,
		EntityID:   out.Registration.ID,
		Details: mustJSON(map[string]any{
			"name":    out.Registration.Name,
			"phone":   out.Registration.Phone,
			"eventId": eventID,
		}),
	})
	s.notify(model.Notification{
		Type:              model.KindCancellation,
		EventID:           eventID,
		EventTitle:        title,
		ParticipantName:   out.Registration.Name,
		ParticipantPhone:  out.Registration.Phone,
		RemainingCapacity: out.RemainingCapacity,
		TotalInscriptions: out.TotalInscriptions,
		Timestamp:         s.now().UTC(),
	})

	return &out, nil
}

// UpdateRegistration edits the name and/or phone of a registration that
// belongs to eventID. A phone already held by another registration of the
// same event fails with ErrPhoneAlreadyInUse.
func (s *RegistrationService) UpdateRegistration(
	ctx context.Context,
	eventID, registrationID int64,
	req model.UpdateRegistrationRequest,
) (*model.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.UpdateRegistration",
		trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int64("registration.id", registrationID),
		))
	defer span.End()

	req.Name = trimPtr(req.Name)
	req.Phone = trimPtr(req.Phone)

	var before, after model.Registration
	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.GetByID(ctx, eventID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}

		reg, err := s.registrations.GetByID(ctx, eventID, registrationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("load registration: %w", err)
		}
		before = *reg

		if req.Phone != nil && *req.Phone != reg.Phone {
			other, err := s.registrations.FindByPhone(ctx, eventID, *req.Phone)
			switch {
			case err == nil && other.ID != reg.ID:
				return ErrPhoneAlreadyInUse
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("check phone: %w", err)
			}
		}

		if err := Validate(req); err != nil {
			return err
		}
		if req.Name != nil {
			reg.Name = *req.Name
		}
		if req.Phone != nil {
			reg.Phone = *req.Phone
		}

		if err := s.registrations.Update(ctx, reg); err != nil {
			switch {
			case errors.Is(err, repository.ErrUniqueViolation):
				return ErrPhoneAlreadyInUse
			case errors.Is(err, repository.ErrNotFound):
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("update registration: %w", err)
		}
		after = *reg
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	s.audit(ctx, model.AuditRecord{
		Action:     model.ActionInscriptionUpdated,
		EntityType: model.EntityInscription,
		EntityID:   after.ID,
		Details: mustJSON(map[string]any{
			"old": registrantSnapshot(before),
			"new": registrantSnapshot(after),
		}),
	})

	return &after, nil
}

// ListRegistrations returns an event's registrations with the current
// totals.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID int64) (*model.RegistrationList, error) {
	var out model.RegistrationList
	err := s.inTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}

		regs, err := s.registrations.ListByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		if regs == nil {
			regs = []model.Registration{}
		}

		out = model.RegistrationList{
			Event: model.EventSummary{
				ID:       event.ID,
				Title:    event.Title,
				Capacity: event.Capacity,
				Status:   event.Status,
			},
			Registrations: regs,
			Total:         len(regs),
			Remaining:     event.Capacity - len(regs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func registrantSnapshot(r model.Registration) map[string]any {
	return map[string]any{
		"name":    r.Name,
		"phone":   r.Phone,
		"eventId": r.EventID,
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
