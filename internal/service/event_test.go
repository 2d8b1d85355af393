package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/notify"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCreateEvent(t *testing.T) {
	e := newEnv(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ev, err := e.svc.CreateEvent(e.ctx, officer, clubID, model.CreateEventRequest{
		Name:           "  Line Follower Cup ",
		StartDate:      start,
		EndDate:        start.Add(time.Hour),
		Capacity:       30,
		CoOrganizerIDs: []string{secretary.UserID, officer.UserID, secretary.UserID, ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Line Follower Cup", ev.Name)
	assert.Equal(t, model.StatusDraft, ev.Status)
	assert.Equal(t, model.Organizer{ClubID: clubID, PrimaryCoordinatorID: officer.UserID}, ev.OrganizedBy)
	assert.Equal(t, []string{secretary.UserID}, ev.CoOrganizerIDs)
	assert.True(t, ev.FeedbackEnabled)
	assert.Zero(t, ev.TotalRegistrations)
}

func TestCreateEvent_Rejects(t *testing.T) {
	e := newEnv(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	valid := model.CreateEventRequest{Name: "x", StartDate: start, EndDate: start.Add(time.Hour)}

	tests := []struct {
		name   string
		actor  model.Actor
		club   string
		mutate func(r *model.CreateEventRequest)
		want   error
	}{
		{"missing name", officer, clubID, func(r *model.CreateEventRequest) { r.Name = " " }, model.ErrValidation},
		{"negative capacity", officer, clubID, func(r *model.CreateEventRequest) { r.Capacity = -1 }, model.ErrValidation},
		{"end before start", officer, clubID, func(r *model.CreateEventRequest) { r.EndDate = start.Add(-time.Hour) }, model.ErrValidation},
		{"unknown club", officer, "club-none", func(r *model.CreateEventRequest) {}, model.ErrNotFound},
		{"general member", member, clubID, func(r *model.CreateEventRequest) {}, model.ErrUnauthorized},
		{"admin is not a club officer", admin, clubID, func(r *model.CreateEventRequest) {}, model.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := e.svc.CreateEvent(e.ctx, tt.actor, tt.club, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := e.svc.CreateEvent(e.ctx, superAdmin, clubID, valid)
	assert.NoError(t, err)
}

func TestLifecycle_HappyPath(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)

	e.advance(t, ev.ID, model.StatusPublished)
	published, err := e.svc.GetEvent(e.ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)

	e.advance(t, ev.ID, model.StatusCompleted)

	club, err := e.store.Clubs().Get(e.ctx, clubID)
	require.NoError(t, err)
	assert.Equal(t, 1, club.TotalEvents)

	u, err := e.store.Users().Get(e.ctx, officer.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{ev.ID}, u.EventsOrganized)

	// One transitioned message per status change, in order.
	var tos []model.EventStatus
	for _, m := range e.pub.published() {
		if m.Type == notify.TypeEventTransitioned {
			tos = append(tos, m.To)
		}
	}
	assert.Equal(t, happyPath[1:], tos)
}

func TestRequestChangesThenPublishFails(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)
	e.advance(t, ev.ID, model.StatusPendingAdminApproval)

	changed, err := e.svc.RequestChanges(e.ctx, admin, ev.ID, "add a safety plan")
	require.NoError(t, err)
	assert.Equal(t, model.StatusChangesRequested, changed.Status)
	assert.Equal(t, []string{"Changes requested: add a safety plan"}, changed.SpecialInstructions)

	_, err = e.svc.PublishEvent(e.ctx, officer, ev.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	after, err := e.svc.GetEvent(e.ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusChangesRequested, after.Status)
	assert.Nil(t, after.PublishedAt)
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)
	e.advance(t, ev.ID, model.StatusPublished)
	before, err := e.svc.GetEvent(e.ctx, ev.ID)
	require.NoError(t, err)

	attempts := map[string]func() (*model.Event, error){
		"publish twice": func() (*model.Event, error) { return e.svc.PublishEvent(e.ctx, officer, ev.ID) },
		"re-approve": func() (*model.Event, error) {
			return e.svc.AdminApproveEvent(e.ctx, admin, ev.ID, model.DecisionApproved)
		},
		"submit":   func() (*model.Event, error) { return e.svc.SubmitEvent(e.ctx, officer, ev.ID) },
		"complete": func() (*model.Event, error) { return e.svc.CompleteEvent(e.ctx, officer, ev.ID) },
		"edit": func() (*model.Event, error) {
			return e.svc.UpdateEvent(e.ctx, officer, ev.ID, model.UpdateEventRequest{})
		},
		"request changes": func() (*model.Event, error) { return e.svc.RequestChanges(e.ctx, admin, ev.ID, "") },
		"request a resource": func() (*model.Event, error) {
			return e.svc.RequestResource(e.ctx, officer, ev.ID, model.ResourceRequest{ResourceID: "res-big", Quantity: 1})
		},
	}
	for name, attempt := range attempts {
		t.Run(name, func(t *testing.T) {
			_, err := attempt()
			require.ErrorIs(t, err, model.ErrInvalidTransition)
			after, err := e.svc.GetEvent(e.ctx, ev.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestTransitions_WrongParty(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)

	_, err := e.svc.SubmitEvent(e.ctx, member, ev.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = e.svc.SubmitEvent(e.ctx, faculty, ev.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// Any active officer of the owning club counts as the club.
	_, err = e.svc.SubmitEvent(e.ctx, secretary, ev.ID)
	require.NoError(t, err)

	_, err = e.svc.FacultyApproveEvent(e.ctx, admin, ev.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = e.svc.FacultyApproveEvent(e.ctx, faculty, ev.ID)
	require.NoError(t, err)

	_, err = e.svc.AdminApproveEvent(e.ctx, faculty, ev.ID, model.DecisionApproved)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// super_admin acts as every party.
	_, err = e.svc.AdminApproveEvent(e.ctx, superAdmin, ev.ID, model.DecisionApproved)
	require.NoError(t, err)
}

func TestTransitions_InactiveOfficerIsNotClub(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)
	require.NoError(t, e.store.Clubs().PutMembership(e.ctx, &model.Membership{
		ClubID: clubID, UserID: secretary.UserID, Role: model.ClubRoleSecretary, IsActive: false,
	}))

	_, err := e.svc.SubmitEvent(e.ctx, secretary, ev.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAdminApproveEvent_Decisions(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)
	e.advance(t, ev.ID, model.StatusPendingAdminApproval)

	_, err := e.svc.AdminApproveEvent(e.ctx, admin, ev.ID, "maybe")
	assert.ErrorIs(t, err, model.ErrValidation)

	rejected, err := e.svc.AdminApproveEvent(e.ctx, admin, ev.ID, model.DecisionRejected)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)

	_, err = e.svc.CancelEvent(e.ctx, admin, ev.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestUpdateEvent(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)

	name, capacity := "Robot Wars II", 25
	updated, err := e.svc.UpdateEvent(e.ctx, officer, ev.ID, model.UpdateEventRequest{Name: &name, Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 25, updated.Capacity)
	assert.Equal(t, model.StatusDraft, updated.Status)

	bad := -3
	_, err = e.svc.UpdateEvent(e.ctx, officer, ev.ID, model.UpdateEventRequest{Capacity: &bad})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRescheduleEvent_ForcesChangesRequested(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)
	e.advance(t, ev.ID, model.StatusRegistrationOpen)

	start := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	moved, err := e.svc.RescheduleEvent(e.ctx, officer, ev.ID, model.RescheduleRequest{StartDate: start, EndDate: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusChangesRequested, moved.Status)
	assert.True(t, moved.StartDate.Equal(start))

	_, err = e.svc.RescheduleEvent(e.ctx, officer, ev.ID, model.RescheduleRequest{StartDate: start, EndDate: start.Add(-time.Hour)})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCancelEvent_AppendsReason(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)
	e.advance(t, ev.ID, model.StatusRegistrationOpen)

	cancelled, err := e.svc.CancelEvent(e.ctx, officer, ev.ID, "venue flooded")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, []string{"Cancelled: venue flooded"}, cancelled.SpecialInstructions)

	_, err = e.svc.CancelEvent(e.ctx, officer, ev.ID, "again")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestAvailableActions(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, 10)

	tests := []struct {
		name  string
		actor model.Actor
		want  []string
	}{
		{"officer", officer, []string{"cancel", "edit", "request_resource", "reschedule", "submit"}},
		{"admin", admin, []string{"cancel", "release_resource"}},
		{"faculty", faculty, []string{}},
		{"general member", member, []string{}},
		{"super admin", superAdmin, []string{"cancel", "edit", "release_resource", "request_resource", "reschedule", "submit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.svc.AvailableActions(e.ctx, tt.actor, ev.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusDraft, got.Status)
			assert.Equal(t, tt.want, got.Actions)
		})
	}

	e.advance(t, ev.ID, model.StatusPendingAdminApproval)
	got, err := e.svc.AvailableActions(e.ctx, admin, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin_approve", "admin_reject", "cancel", "release_resource", "request_changes"}, got.Actions)

	// Every listed action is one the actor can actually take.
	_, err = e.svc.AdminApproveEvent(e.ctx, admin, ev.ID, model.DecisionApproved)
	require.NoError(t, err)

	e.advance(t, ev.ID, model.StatusCompleted)
	got, err = e.svc.AvailableActions(e.ctx, superAdmin, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Actions)

	_, err = e.svc.AvailableActions(e.ctx, officer, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListEvents(t *testing.T) {
	e := newEnv(t)
	a := e.createEvent(t, 10)
	e.createEvent(t, 10)
	e.advance(t, a.ID, model.StatusPendingInternalApproval)

	all, err := e.svc.ListEvents(e.ctx, repository.EventFilter{ClubID: clubID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := e.svc.ListEvents(e.ctx, repository.EventFilter{Status: model.StatusPendingInternalApproval})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	_, err = e.svc.ListEvents(e.ctx, repository.EventFilter{Status: "bogus"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPublishFailureDoesNotUndoTransition(t *testing.T) {
	e := newEnv(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := NewEventService(e.store, pub, zaptest.NewLogger(t))

	ev := e.createEvent(t, 10)
	submitted, err := svc.SubmitEvent(e.ctx, officer, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingInternalApproval, submitted.Status)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}
