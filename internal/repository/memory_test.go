package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(id string) *model.Event {
	now := time.Now().UTC()
	return &model.Event{
		ID:          id,
		Name:        "Hack Night",
		OrganizedBy: model.Organizer{ClubID: "club-1", PrimaryCoordinatorID: "u-1"},
		StartDate:   now.Add(24 * time.Hour),
		EndDate:     now.Add(26 * time.Hour),
		Status:      model.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStore_InTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Events().Create(ctx, newEvent("e1")))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx Store) error {
		e, err := tx.Events().GetForUpdate(ctx, "e1")
		require.NoError(t, err)
		e.Status = model.StatusCancelled
		require.NoError(t, tx.Events().Update(ctx, e))
		require.NoError(t, tx.Registrations().Create(ctx, &model.Registration{
			ID: "r1", EventID: "e1", UserID: "u-2", Status: model.RegistrationRegistered,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	e, err := store.Events().Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, e.Status)

	regs, err := store.Registrations().ListByEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestMemoryStore_InTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Events().Create(ctx, newEvent("e1")))

	err := store.InTx(ctx, func(tx Store) error {
		e, err := tx.Events().GetForUpdate(ctx, "e1")
		if err != nil {
			return err
		}
		e.Status = model.StatusPendingInternalApproval
		return tx.Events().Update(ctx, e)
	})
	require.NoError(t, err)

	e, err := store.Events().Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingInternalApproval, e.Status)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Events().Create(ctx, newEvent("e1")))

	e, err := store.Events().Get(ctx, "e1")
	require.NoError(t, err)
	e.Name = "mutated"
	e.SpecialInstructions = append(e.SpecialInstructions, "x")

	again, err := store.Events().Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Hack Night", again.Name)
	assert.Empty(t, again.SpecialInstructions)
}

func TestMemoryRegistrations_UniqueActivePerUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	regs := store.Registrations()

	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "r1", EventID: "e1", UserID: "u1", Status: model.RegistrationRegistered}))
	err := regs.Create(ctx, &model.Registration{ID: "r2", EventID: "e1", UserID: "u1", Status: model.RegistrationWaitlisted})
	assert.ErrorIs(t, err, model.ErrAlreadyRegistered)

	// Other events and other users are unaffected.
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "r3", EventID: "e2", UserID: "u1", Status: model.RegistrationRegistered}))
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "r4", EventID: "e1", UserID: "u2", Status: model.RegistrationRegistered}))

	// Once cancelled, the user may register again.
	r1, err := regs.FindActive(ctx, "e1", "u1")
	require.NoError(t, err)
	r1.Status = model.RegistrationCancelled
	require.NoError(t, regs.Update(ctx, r1))
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "r5", EventID: "e1", UserID: "u1", Status: model.RegistrationWaitlisted}))

	_, err = regs.FindActive(ctx, "e9", "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryRegistrations_WaitlistOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	regs := store.Registrations()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Inserted out of order; t1 and t1b share a timestamp.
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "c", EventID: "e1", UserID: "u3", Status: model.RegistrationWaitlisted, RegisteredAt: t0.Add(3 * time.Minute)}))
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "a", EventID: "e1", UserID: "u1", Status: model.RegistrationWaitlisted, RegisteredAt: t0.Add(1 * time.Minute)}))
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "b", EventID: "e1", UserID: "u2", Status: model.RegistrationWaitlisted, RegisteredAt: t0.Add(1 * time.Minute)}))
	require.NoError(t, regs.Create(ctx, &model.Registration{ID: "x", EventID: "e1", UserID: "u4", Status: model.RegistrationRegistered, RegisteredAt: t0}))

	all, err := regs.ListWaitlisted(ctx, "e1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := regs.ListWaitlisted(ctx, "e1", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	counts, err := regs.StatusCounts(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.RegistrationWaitlisted])
	assert.Equal(t, 1, counts[model.RegistrationRegistered])

	n, err := regs.CountByStatus(ctx, "e1", model.RegistrationRegistered)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryEvents_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	e1 := newEvent("e1")
	e2 := newEvent("e2")
	e2.OrganizedBy.ClubID = "club-2"
	e3 := newEvent("e3")
	e3.Status = model.StatusPublished
	for _, e := range []*model.Event{e1, e2, e3} {
		require.NoError(t, store.Events().Create(ctx, e))
	}

	got, err := store.Events().List(ctx, EventFilter{ClubID: "club-1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.Events().List(ctx, EventFilter{Status: model.StatusPublished})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e3", got[0].ID)

	_, err = store.Events().Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryResources_HallNoUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Resources().Create(ctx, &model.Resource{ID: "r1", HallNo: "H-1", Capacity: 10, IsAvailable: true}))
	err := store.Resources().Create(ctx, &model.Resource{ID: "r2", HallNo: "H-1"})
	assert.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, store.Resources().Create(ctx, &model.Resource{ID: "r3", HallNo: "H-2", IsAvailable: false}))
	avail, err := store.Resources().List(ctx, true)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "r1", avail[0].ID)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	f := &Fixtures{
		Users:       []model.User{{ID: "u1", Name: "Asha", Role: model.RoleOrganizer, IsActive: true}},
		Clubs:       []model.Club{{ID: "c1", Name: "Robotics"}},
		Memberships: []model.Membership{{ClubID: "c1", UserID: "u1", Role: model.ClubRolePresident, IsActive: true}},
		Resources:   []model.Resource{{Name: "Main Hall", HallNo: "MH", Capacity: 200, IsAvailable: true}},
	}
	require.NoError(t, Seed(ctx, store, f))
	// Seeding twice does not duplicate resources.
	require.NoError(t, Seed(ctx, store, f))

	m, err := store.Clubs().GetMembership(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.True(t, m.Role.IsOfficer())

	res, err := store.Resources().List(ctx, false)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.NotEmpty(t, res[0].ID)

	require.NoError(t, store.Users().AppendOrganizedEvent(ctx, []string{"u1", "ghost"}, "e1"))
	require.NoError(t, store.Users().AppendOrganizedEvent(ctx, []string{"u1"}, "e1"))
	u, err := store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, u.EventsOrganized)
}
