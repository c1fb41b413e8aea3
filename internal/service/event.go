package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventService contains the business logic for managing events.
type EventService struct {
	deps
	events        EventStore
	registrations RegistrationStore
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(tx Transactor, events EventStore, registrations RegistrationStore, opts ...Option) *EventService {
	return &EventService{
		deps:          newDeps(tx, opts),
		events:        events,
		registrations: registrations,
	}
}

// CreateEvent validates the request and persists a new event. Status
// defaults to ACTIVE.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "EventService.CreateEvent")
	defer span.End()

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := Validate(req); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = model.EventActive
	}

	event := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Capacity:    *req.Capacity,
		Status:      req.Status,
	}
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	s.audit(ctx, model.AuditRecord{
		Action:     model.ActionEventCreated,
		EntityType: model.EntityEvent,
		EntityID:   event.ID,
		Details:    mustJSON(map[string]any{"new": eventSnapshot(*event)}),
	})
	return event, nil
}

// GetEvent returns a single event with its registrations.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*model.EventDetail, error) {
	var detail model.EventDetail
	err := s.inTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}
		regs, err := s.registrations.ListByEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		if regs == nil {
			regs = []model.Registration{}
		}
		detail = model.EventDetail{Event: *event, Registrations: regs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListEvents returns all events, newest first.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// UpdateEvent applies a partial change. Lowering the capacity below the
// current registration count is accepted; admissions stay closed until
// cancellations bring the count back under it.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "EventService.UpdateEvent",
		trace.WithAttributes(attribute.Int64("event.id", id)))
	defer span.End()

	req.Title = trimPtr(req.Title)
	req.Description = trimPtr(req.Description)
	if req.Title == nil && req.Description == nil && req.Capacity == nil && req.Status == nil {
		return nil, invalid("body", "at least one field must be provided")
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	var before, after model.Event
	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.GetForUpdate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		current, err := s.events.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		before = *current

		if req.Title != nil {
			current.Title = *req.Title
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		if req.Capacity != nil {
			current.Capacity = *req.Capacity
		}
		if req.Status != nil {
			current.Status = *req.Status
		}

		if err := s.events.Update(ctx, current); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("update event: %w", err)
		}

		reloaded, err := s.events.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload event: %w", err)
		}
		after = *reloaded
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	s.audit(ctx, model.AuditRecord{
		Action:     model.ActionEventUpdated,
		EntityType: model.EntityEvent,
		EntityID:   id,
		Details: mustJSON(map[string]any{
			"old": eventSnapshot(before),
			"new": eventSnapshot(after),
		}),
	})
	return &after, nil
}

// DeleteEvent removes an event and, by cascade, its registrations.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "EventService.DeleteEvent",
		trace.WithAttributes(attribute.Int64("event.id", id)))
	defer span.End()

	var snapshot model.Event
	err := s.inTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}
		snapshot = *event

		if err := s.events.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	s.audit(ctx, model.AuditRecord{
		Action:     model.ActionEventDeleted,
		EntityType: model.EntityEvent,
		EntityID:   id,
		Details:    mustJSON(map[string]any{"old": eventSnapshot(snapshot)}),
	})
	return nil
}

func eventSnapshot(e model.Event) map[string]any {
	return map[string]any{
		"title":             e.Title,
		"description":       e.Description,
		"capacity":          e.Capacity,
		"status":            e.Status,
		"totalInscriptions": e.TotalInscriptions,
	}
}
