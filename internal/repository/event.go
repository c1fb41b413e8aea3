package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// eventColumns selects an event together with its live registration count.
const eventColumns = `e.id, e.title, e.description, e.capacity, e.status, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM inscriptions i WHERE i.event_id = e.id)`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and fills in its generated id and timestamps.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO events (title, description, capacity, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		event.Title, event.Description, event.Capacity, event.Status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	event.TotalInscriptions = 0
	return nil
}

// List returns all events, newest first.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 ORDER BY e.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event with its registration count, or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`,
		id,
	)
	return scanEvent(row)
}

// GetForUpdate reads the event row and takes an exclusive row lock on it
// for the rest of the surrounding transaction. Any other transaction asking
// for the same lock blocks until this one commits or rolls back, so two
// registrations for one event cannot both read the same free slot.
//
// The registration count is not included; callers count after the lock is
// held. Outside a transaction the lock is released immediately.
func (r *EventRepository) GetForUpdate(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, title, description, capacity, status, created_at, updated_at
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Capacity, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return &e, nil
}

// Update writes the mutable fields of event and refreshes UpdatedAt.
func (r *EventRepository) Update(ctx context.Context, event *model.Event) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`UPDATE events
		 SET title = $2, description = $3, capacity = $4, status = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		event.ID, event.Title, event.Description, event.Capacity, event.Status,
	).Scan(&event.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes the event; its registrations go with it (ON DELETE CASCADE).
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Capacity, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.TotalInscriptions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}
