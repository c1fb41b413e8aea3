package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/audit"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/Shivanand-hulikatti/event-signup/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresService(t *testing.T, pool *pgxpool.Pool) *service.RegistrationService {
	t.Helper()
	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })

	return service.NewRegistrationService(
		repository.NewTxManager(pool),
		repository.NewEventRepository(pool),
		repository.NewRegistrationRepository(pool),
		service.WithAuditor(audit.NewStore(db)),
		service.WithTxTimeout(5*time.Second),
	)
}

func TestPostgres_ConcurrentLastSlot(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := context.Background()
	svc := newPostgresService(t, pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "Go Meetup", 1, model.EventActive)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, eventID, model.RegisterRequest{
				Name:  "P",
				Phone: fmt.Sprintf("(11) 9000%d-0000", i),
			})
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)
}

func TestPostgres_ManyCallersNeverOverbook(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := context.Background()
	svc := newPostgresService(t, pool)
	const capacity = 3
	eventID := testutil.InsertEvent(t, ctx, pool, "Go Meetup", capacity, model.EventActive)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Register(ctx, eventID, model.RegisterRequest{
				Name:  "P",
				Phone: fmt.Sprintf("(11) 9%04d-1111", i),
			})
		}(i)
	}
	wg.Wait()

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM inscriptions WHERE event_id = $1`, eventID).Scan(&count))
	assert.Equal(t, capacity, count)
}

func TestPostgres_ConcurrentSamePhone(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := context.Background()
	svc := newPostgresService(t, pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "Go Meetup", 5, model.EventActive)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, eventID, model.RegisterRequest{Name: "Ana", Phone: "(11) 98765-4321"})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrDuplicateRegistration):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestPostgres_RegisterCancelAudited(t *testing.T) {
	pool := testutil.Setup(t)
	ctx := audit.WithClientIP(context.Background(), "198.51.100.2")
	svc := newPostgresService(t, pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "Go Meetup", 10, model.EventActive)
	for i := 0; i < 3; i++ {
		testutil.InsertRegistration(t, ctx, pool, eventID, "Seed", fmt.Sprintf("(11) 9%04d-2222", i))
	}

	adm, err := svc.Register(ctx, eventID, model.RegisterRequest{Name: "Ana", Phone: "(11) 98765-4321"})
	require.NoError(t, err)
	assert.Equal(t, 6, adm.RemainingCapacity)

	_, err = svc.Cancel(ctx, eventID, "(11) 98765-4321")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, eventID, "(11) 98765-4321")
	assert.ErrorIs(t, err, service.ErrRegistrationNotFound)

	var n int
	var ip string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(user_ip) FROM audit_logs WHERE entity_type = 'Inscription'`,
	).Scan(&n, &ip))
	assert.Equal(t, 2, n)
	assert.Equal(t, "198.51.100.2", ip)
}
