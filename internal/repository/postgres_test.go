package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/database"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to TEST_DATABASE_URL and applies the schema.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool))
	return NewPostgresStore(pool)
}

func seedPostgres(t *testing.T, store Store) (clubID, userID string) {
	t.Helper()
	clubID, userID = uuid.NewString(), uuid.NewString()
	require.NoError(t, Seed(context.Background(), store, &Fixtures{
		Users: []model.User{{ID: userID, Name: "Org", Email: userID + "@campus.test", Role: model.RoleOrganizer, IsActive: true}},
		Clubs: []model.Club{{ID: clubID, Name: "club-" + clubID}},
		Memberships: []model.Membership{{
			ClubID: clubID, UserID: userID, Role: model.ClubRolePresident, IsActive: true, JoinedAt: time.Now().UTC(),
		}},
	}))
	return clubID, userID
}

func TestPostgresStore_EventRoundTrip(t *testing.T) {
	store := newTestPostgres(t)
	ctx := context.Background()
	clubID, userID := seedPostgres(t, store)

	resID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Resources().Create(ctx, &model.Resource{
		ID: resID, Name: "Hall", HallNo: "H-" + resID, Building: "B", Capacity: 50, IsAvailable: true, CreatedAt: now, UpdatedAt: now,
	}))

	e := newEvent(uuid.NewString())
	e.OrganizedBy = model.Organizer{ClubID: clubID, PrimaryCoordinatorID: userID}
	e.ResourcesAllocated = []model.Allocation{{ResourceID: resID, Quantity: 1}}
	require.NoError(t, store.Events().Create(ctx, e))

	got, err := store.Events().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	require.Len(t, got.ResourcesAllocated, 1)
	assert.Nil(t, got.ResourcesAllocated[0].AllocatedAt)

	got.ResourcesAllocated[0].AllocatedAt = &now
	got.SpecialInstructions = append(got.SpecialInstructions, "Cancelled: rain")
	got.Status = model.StatusCancelled
	require.NoError(t, store.Events().Update(ctx, got))

	again, err := store.Events().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, again.Status)
	assert.Equal(t, []string{"Cancelled: rain"}, again.SpecialInstructions)
	require.NotNil(t, again.ResourcesAllocated[0].AllocatedAt)

	list, err := store.Events().List(ctx, EventFilter{ClubID: clubID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresStore_ActiveRegistrationIsUnique(t *testing.T) {
	store := newTestPostgres(t)
	ctx := context.Background()
	clubID, userID := seedPostgres(t, store)

	e := newEvent(uuid.NewString())
	e.OrganizedBy = model.Organizer{ClubID: clubID, PrimaryCoordinatorID: userID}
	require.NoError(t, store.Events().Create(ctx, e))

	now := time.Now().UTC()
	reg := &model.Registration{ID: uuid.NewString(), EventID: e.ID, UserID: userID, Status: model.RegistrationRegistered, RegisteredAt: now, UpdatedAt: now}
	require.NoError(t, store.Registrations().Create(ctx, reg))

	dup := &model.Registration{ID: uuid.NewString(), EventID: e.ID, UserID: userID, Status: model.RegistrationWaitlisted, RegisteredAt: now, UpdatedAt: now}
	assert.ErrorIs(t, store.Registrations().Create(ctx, dup), model.ErrAlreadyRegistered)
}

func TestPostgresStore_ForUpdateSerialisesCounters(t *testing.T) {
	store := newTestPostgres(t)
	ctx := context.Background()
	clubID, userID := seedPostgres(t, store)

	e := newEvent(uuid.NewString())
	e.OrganizedBy = model.Organizer{ClubID: clubID, PrimaryCoordinatorID: userID}
	require.NoError(t, store.Events().Create(ctx, e))

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.InTx(ctx, func(tx Store) error {
				ev, err := tx.Events().GetForUpdate(ctx, e.ID)
				if err != nil {
					return err
				}
				ev.TotalAttendance++
				return tx.Events().Update(ctx, ev)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Events().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.TotalAttendance)
}
