package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/notify"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ─── Test doubles ─────────────────────────────────────────────────────────────

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

// published returns every message passed to Publish, in order.
func (m *mockPublisher) published() []notify.Message {
	var out []notify.Message
	for _, c := range m.Calls {
		if c.Method == "Publish" {
			out = append(out, c.Arguments.Get(1).(notify.Message))
		}
	}
	return out
}

// stepClock advances one second per reading so registration order is strict.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// ─── Fixtures ─────────────────────────────────────────────────────────────────

const clubID = "club-robotics"

var (
	superAdmin = model.Actor{UserID: "u-root", Role: model.RoleSuperAdmin}
	admin      = model.Actor{UserID: "u-admin", Role: model.RoleAdmin}
	faculty    = model.Actor{UserID: "u-faculty", Role: model.RoleFacultyCoordinator}
	officer    = model.Actor{UserID: "u-president", Role: model.RoleOrganizer}
	secretary  = model.Actor{UserID: "u-secretary", Role: model.RoleOrganizer}
	member     = model.Actor{UserID: "u-member", Role: model.RoleParticipant}
	userA      = model.Actor{UserID: "u-a", Role: model.RoleParticipant}
	userB      = model.Actor{UserID: "u-b", Role: model.RoleParticipant}
	userC      = model.Actor{UserID: "u-c", Role: model.RoleParticipant}
)

type env struct {
	svc   *EventService
	store *repository.MemoryStore
	pub   *mockPublisher
	ctx   context.Context
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, repository.Seed(ctx, store, &repository.Fixtures{
		Users: []model.User{
			{ID: superAdmin.UserID, Role: superAdmin.Role, IsActive: true},
			{ID: admin.UserID, Role: admin.Role, IsActive: true},
			{ID: faculty.UserID, Role: faculty.Role, IsActive: true},
			{ID: officer.UserID, Role: officer.Role, IsActive: true},
			{ID: secretary.UserID, Role: secretary.Role, IsActive: true},
			{ID: member.UserID, Role: member.Role, IsActive: true},
		},
		Clubs: []model.Club{{ID: clubID, Name: "Robotics"}},
		Memberships: []model.Membership{
			{ClubID: clubID, UserID: officer.UserID, Role: model.ClubRolePresident, IsActive: true},
			{ClubID: clubID, UserID: secretary.UserID, Role: model.ClubRoleSecretary, IsActive: true},
			{ClubID: clubID, UserID: member.UserID, Role: model.ClubRoleGeneralMember, IsActive: true},
		},
		Resources: []model.Resource{
			{ID: "res-small", Name: "Seminar Room", HallNo: "S-1", Capacity: 2, IsAvailable: true},
			{ID: "res-big", Name: "Auditorium", HallNo: "A-1", Capacity: 500, IsAvailable: true},
			{ID: "res-closed", Name: "Old Lab", HallNo: "L-9", Capacity: 40, IsAvailable: false},
		},
	}))

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	clock := &stepClock{t: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc := NewEventService(store, pub, zaptest.NewLogger(t), opts...)
	return &env{svc: svc, store: store, pub: pub, ctx: ctx}
}

func (e *env) createEvent(t *testing.T, capacity int) *model.Event {
	t.Helper()
	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	ev, err := e.svc.CreateEvent(e.ctx, officer, clubID, model.CreateEventRequest{
		Name:      "Robot Wars",
		StartDate: start,
		EndDate:   start.Add(3 * time.Hour),
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return ev
}

// advance drives an event forward along the happy path until it reaches target.
func (e *env) advance(t *testing.T, id string, target model.EventStatus) {
	t.Helper()
	steps := []struct {
		to model.EventStatus
		do func() (*model.Event, error)
	}{
		{model.StatusPendingInternalApproval, func() (*model.Event, error) { return e.svc.SubmitEvent(e.ctx, officer, id) }},
		{model.StatusPendingAdminApproval, func() (*model.Event, error) { return e.svc.FacultyApproveEvent(e.ctx, faculty, id) }},
		{model.StatusApproved, func() (*model.Event, error) {
			return e.svc.AdminApproveEvent(e.ctx, admin, id, model.DecisionApproved)
		}},
		{model.StatusPublished, func() (*model.Event, error) { return e.svc.PublishEvent(e.ctx, officer, id) }},
		{model.StatusRegistrationOpen, func() (*model.Event, error) { return e.svc.OpenRegistration(e.ctx, officer, id) }},
		{model.StatusRegistrationClosed, func() (*model.Event, error) { return e.svc.CloseRegistration(e.ctx, officer, id) }},
		{model.StatusOngoing, func() (*model.Event, error) { return e.svc.StartEvent(e.ctx, officer, id) }},
		{model.StatusCompleted, func() (*model.Event, error) { return e.svc.CompleteEvent(e.ctx, officer, id) }},
	}

	current, err := e.svc.GetEvent(e.ctx, id)
	require.NoError(t, err)
	if current.Status == target {
		return
	}
	started := false
	for _, step := range steps {
		if !started {
			// Begin with the step that leaves the current status.
			if !leavesFrom(current.Status, step.to) {
				continue
			}
			started = true
		}
		ev, err := step.do()
		require.NoError(t, err, "advancing to %s", step.to)
		require.Equal(t, step.to, ev.Status)
		if step.to == target {
			return
		}
	}
	t.Fatalf("cannot advance %s from %s to %s", id, current.Status, target)
}

var happyPath = []model.EventStatus{
	model.StatusDraft,
	model.StatusPendingInternalApproval,
	model.StatusPendingAdminApproval,
	model.StatusApproved,
	model.StatusPublished,
	model.StatusRegistrationOpen,
	model.StatusRegistrationClosed,
	model.StatusOngoing,
	model.StatusCompleted,
}

func leavesFrom(from, to model.EventStatus) bool {
	for i := 0; i+1 < len(happyPath); i++ {
		if happyPath[i] == from {
			return happyPath[i+1] == to
		}
	}
	return false
}

// assertCounterInvariant checks totalRegistrations against the collection.
func (e *env) assertCounterInvariant(t *testing.T, id string) {
	t.Helper()
	ev, err := e.store.Events().Get(e.ctx, id)
	require.NoError(t, err)
	n, err := e.store.Registrations().CountByStatus(e.ctx, id, model.RegistrationRegistered)
	require.NoError(t, err)
	require.Equal(t, n, ev.TotalRegistrations, "totalRegistrations must equal registered count")
}
