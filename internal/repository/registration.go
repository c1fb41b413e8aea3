package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrationColumns = `id, event_id, name, phone, created_at, updated_at`

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Count returns the number of registrations for an event.
func (r *RegistrationRepository) Count(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM inscriptions WHERE event_id = $1`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// FindByPhone returns the registration for (eventID, phone), or ErrNotFound.
func (r *RegistrationRepository) FindByPhone(ctx context.Context, eventID int64, phone string) (*model.Registration, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM inscriptions WHERE event_id = $1 AND phone = $2`,
		eventID, phone,
	)
	return scanRegistration(row)
}

// GetByID returns the registration with id inside eventID, or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, eventID, id int64) (*model.Registration, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM inscriptions WHERE event_id = $1 AND id = $2`,
		eventID, id,
	)
	return scanRegistration(row)
}

// ListByEvent returns all registrations for an event in signup order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Registration, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM inscriptions
		 WHERE event_id = $1
		 ORDER BY created_at ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Insert creates a registration. A second row for the same (event, phone)
// fails with ErrUniqueViolation; a missing event fails with ErrNotFound.
func (r *RegistrationRepository) Insert(ctx context.Context, eventID int64, name, phone string) (*model.Registration, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO inscriptions (event_id, name, phone)
		 VALUES ($1, $2, $3)
		 RETURNING `+registrationColumns,
		eventID, name, phone,
	)
	reg, err := scanRegistration(row)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, ErrUniqueViolation
		case isForeignKeyViolation(err):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return reg, nil
}

// Update writes name and phone of reg and refreshes UpdatedAt.
func (r *RegistrationRepository) Update(ctx context.Context, reg *model.Registration) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`UPDATE inscriptions
		 SET name = $3, phone = $4, updated_at = NOW()
		 WHERE event_id = $1 AND id = $2
		 RETURNING updated_at`,
		reg.EventID, reg.ID, reg.Name, reg.Phone,
	).Scan(&reg.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrUniqueViolation
		}
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

// Delete hard-deletes a registration. Deleting a row that is already gone
// returns ErrNotFound, so of two concurrent cancels only one succeeds.
func (r *RegistrationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM inscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.Name, &reg.Phone, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return &reg, nil
}
