package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/crosslove/eventhub/internal/db"
	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE jobs, registrations, events, categories, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool
}

func seedUser(t *testing.T, users *UsersRepo, email string) user.User {
	t.Helper()

	u := user.New(email, "hash", "Test", "User", time.Now())
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func seedEvent(t *testing.T, events *EventsRepo, createdBy string, max *int, start time.Time) event.Event {
	t.Helper()

	e := event.NewFromCreateRequest(event.CreateEventRequest{
		Title:           "Integration event",
		Description:     "An event seeded by the integration tests.",
		DateStart:       start,
		DateEnd:         start.Add(2 * time.Hour),
		Address:         "1 Rue du Test",
		PostalCode:      "67000",
		City:            "Strasbourg",
		Country:         "France",
		Organizer:       "CrossLove",
		MaxParticipants: max,
	}, createdBy, time.Now())

	require.NoError(t, events.Create(context.Background(), e))
	return e
}

func TestRegistrations_CapacityAndDuplicates(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	users := NewUsersRepo(pool, nil)
	events := NewEventsRepo(pool, nil)
	regs := NewRegistrationsRepo(pool, nil, NewJobsRepo(pool, nil))

	admin := seedUser(t, users, "admin@example.com")
	capacity := 2
	ev := seedEvent(t, events, admin.ID, &capacity, time.Now().Add(time.Hour))

	a := seedUser(t, users, "a@example.com")
	b := seedUser(t, users, "b@example.com")
	c := seedUser(t, users, "c@example.com")
	now := time.Now()

	_, err := regs.Register(ctx, a.ID, ev.ID, "", now)
	require.NoError(t, err)

	_, err = regs.Register(ctx, a.ID, ev.ID, "", now)
	assert.ErrorIs(t, err, registration.ErrAlreadyRegistered)

	_, err = regs.Register(ctx, b.ID, ev.ID, "", now)
	require.NoError(t, err)

	_, err = regs.Register(ctx, c.ID, ev.ID, "", now)
	assert.ErrorIs(t, err, registration.ErrEventFull)

	got, err := events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ParticipantCount)
	assert.True(t, got.IsFull())

	var queued int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE type = 'registration.confirmation'`).Scan(&queued))
	assert.Equal(t, 2, queued)
}

func TestRegistrations_LastSeatRace(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	users := NewUsersRepo(pool, nil)
	events := NewEventsRepo(pool, nil)
	regs := NewRegistrationsRepo(pool, nil, NewJobsRepo(pool, nil))

	admin := seedUser(t, users, "admin@example.com")
	capacity := 1
	ev := seedEvent(t, events, admin.ID, &capacity, time.Now().Add(time.Hour))

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		ids[i] = seedUser(t, users, "racer"+string(rune('a'+i))+"@example.com").ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0

	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := regs.Register(ctx, userID, ev.ID, "", time.Now()); err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
}

func TestRegistrations_CancelAndReactivate(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	users := NewUsersRepo(pool, nil)
	events := NewEventsRepo(pool, nil)
	regs := NewRegistrationsRepo(pool, nil, NewJobsRepo(pool, nil))

	admin := seedUser(t, users, "admin@example.com")
	ev := seedEvent(t, events, admin.ID, nil, time.Now().Add(time.Hour))
	a := seedUser(t, users, "a@example.com")

	reg, err := regs.Register(ctx, a.ID, ev.ID, "+33612345678", time.Now())
	require.NoError(t, err)

	_, err = regs.Cancel(ctx, reg.ID, admin.ID, time.Now())
	assert.ErrorIs(t, err, registration.ErrForbidden)

	cancelled, err := regs.Cancel(ctx, reg.ID, a.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, registration.StatusCancelled, cancelled.Status)

	_, err = regs.Cancel(ctx, reg.ID, a.ID, time.Now())
	assert.ErrorIs(t, err, registration.ErrAlreadyCancelled)

	back, err := regs.Register(ctx, a.ID, ev.ID, "", time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, reg.ID, back.ID)
	assert.Equal(t, registration.StatusConfirmed, back.Status)

	bookings, err := regs.ListByUser(ctx, a.ID, time.Now())
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.True(t, bookings[0].CanCancel)
}

func TestEvents_QueriesAndCategories(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	users := NewUsersRepo(pool, nil)
	events := NewEventsRepo(pool, nil)
	cats := NewCategoriesRepo(pool, nil)

	admin := seedUser(t, users, "admin@example.com")

	solidarity := category.NewFromCreateRequest(category.CreateRequest{Name: "Solidarité"})
	require.NoError(t, cats.Create(ctx, solidarity))
	assert.ErrorIs(t, cats.Create(ctx, category.NewFromCreateRequest(category.CreateRequest{Name: "Solidarité"})), category.ErrNameTaken)

	later := seedEvent(t, events, admin.ID, nil, time.Now().Add(48*time.Hour))
	sooner := seedEvent(t, events, admin.ID, nil, time.Now().Add(24*time.Hour))

	sooner.Title = "Atelier 100% vélo"
	sooner.CategoryID = &solidarity.ID
	sooner.Touch(time.Now())
	require.NoError(t, events.Update(ctx, sooner))

	byDate, err := events.FindAllSorted(ctx, event.SortByDate)
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, sooner.ID, byDate[0].ID)

	found, err := events.Search(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, sooner.ID, found[0].ID)

	byCat, err := events.FindByCategory(ctx, "solidarite")
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "Solidarité", byCat[0].CategoryName)

	names, err := events.FindAllCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Solidarité"}, names)

	assert.ErrorIs(t, cats.Delete(ctx, solidarity.ID), category.ErrInUse)

	bySlug, err := events.GetBySlug(ctx, later.Slug)
	require.NoError(t, err)
	assert.Equal(t, later.ID, bySlug.ID)

	require.NoError(t, events.Delete(ctx, later.ID))
	_, err = events.GetByID(ctx, later.ID)
	assert.ErrorIs(t, err, event.ErrNotFound)
}
