package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_CRUD(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := context.Background()
	repo := repository.NewEventRepository(pool)

	event := &model.Event{Title: "Go Meetup", Description: "talks", Capacity: 3, Status: model.EventActive}
	require.NoError(t, repo.Create(ctx, event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	testutil.InsertRegistration(t, ctx, pool, event.ID, "Ana", "(11) 98765-4321")

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalInscriptions)
	assert.Equal(t, 2, got.Remaining())

	got.Status = model.EventInactive
	got.Capacity = 0
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.EventInactive, list[0].Status)
	assert.Equal(t, -1, list[0].Remaining())

	require.NoError(t, repo.Delete(ctx, event.ID))
	assert.ErrorIs(t, repo.Delete(ctx, event.ID), repository.ErrNotFound)

	_, err = repo.GetByID(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	regs := repository.NewRegistrationRepository(pool)
	n, err := regs.Count(ctx, event.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "registrations cascade with the event")
}

func TestRegistrationRepository_UniquePhone(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := context.Background()
	regs := repository.NewRegistrationRepository(pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "Go Meetup", 10, model.EventActive)

	first, err := regs.Insert(ctx, eventID, "Ana", "(11) 98765-4321")
	require.NoError(t, err)

	_, err = regs.Insert(ctx, eventID, "Bia", "(11) 98765-4321")
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)

	second, err := regs.Insert(ctx, eventID, "Bia", "(11) 91234-5678")
	require.NoError(t, err)

	second.Phone = first.Phone
	assert.ErrorIs(t, regs.Update(ctx, second), repository.ErrUniqueViolation)

	_, err = regs.Insert(ctx, eventID+1000, "Caio", "(11) 90000-0000")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	found, err := regs.FindByPhone(ctx, eventID, "(11) 98765-4321")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = regs.GetByID(ctx, eventID+1000, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, regs.Delete(ctx, first.ID))
	assert.ErrorIs(t, regs.Delete(ctx, first.ID), repository.ErrNotFound)

	list, err := regs.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := context.Background()
	tx := repository.NewTxManager(pool)
	regs := repository.NewRegistrationRepository(pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "Go Meetup", 10, model.EventActive)

	boom := errors.New("boom")
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := regs.Insert(ctx, eventID, "Ana", "(11) 98765-4321"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := regs.Count(ctx, eventID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
