package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitscheduler/internal/capacity"
	reservationserrors "visitscheduler/internal/reservations/errors"
	"visitscheduler/internal/reservations/events"
	"visitscheduler/internal/reservations/validator"
	"visitscheduler/pkg/config"
	apperrors "visitscheduler/pkg/errors"
	"visitscheduler/pkg/logger"
	"visitscheduler/pkg/model"
)

const validityWindow = 10 * time.Minute

type testEnv struct {
	svc       *reservationService
	store     *fakeStore
	locker    *fakeLocker
	clock     *fakeClock
	templates *fakeTemplates
	snapshots *fakeSnapshots
	events    *recordingPublisher
}

func mustDate(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mondayTemplate(ref string, open, closed int) *model.SessionTemplate {
	return &model.SessionTemplate{
		Reference:       ref,
		Name:            "Monday morning",
		PrisonCode:      "MDI",
		DayOfWeek:       model.Monday,
		StartTime:       "10:00",
		EndTime:         "11:00",
		WeeklyFrequency: 1,
		ValidFrom:       mustDate("2025-01-06"),
		OpenCapacity:    open,
		ClosedCapacity:  closed,
	}
}

func newTestEnv(t *testing.T, templates ...*model.SessionTemplate) *testEnv {
	t.Helper()

	log := logger.New(logger.Config{Output: io.Discard, Service: "test"})
	cfg := &config.Config{
		Log:                       log,
		ApplicationValidityWindow: validityWindow,
		SlotLockTTL:               10 * time.Second,
		SlotLockWaitTimeout:       10 * time.Second,
	}

	store := newFakeStore()
	clock := &fakeClock{now: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
	locker := newFakeLocker()
	tplFinder := &fakeTemplates{templates: map[string]*model.SessionTemplate{}}
	for _, tpl := range templates {
		tplFinder.templates[tpl.Reference] = tpl
	}
	snapshots := &fakeSnapshots{snapshots: map[string]*model.PrisonerEligibilitySnapshot{}}
	publisher := &recordingPublisher{}

	accountant := capacity.NewAccountant(fakeApplications{store}, fakeVisits{store}, validityWindow).WithClock(clock.Now)

	svc := NewReservationService(
		tplFinder,
		snapshots,
		fakeApplications{store},
		fakeVisits{store},
		fakeSlots{store},
		locker,
		fakeTxManager{},
		accountant,
		publisher,
		validator.NewApplicationValidator(log),
		cfg,
	).(*reservationService)
	svc.now = clock.Now

	return &testEnv{
		svc:       svc,
		store:     store,
		locker:    locker,
		clock:     clock,
		templates: tplFinder,
		snapshots: snapshots,
		events:    publisher,
	}
}

func reserveRequest(prisonerID, ref, date string, r model.Restriction) *model.ReservationRequest {
	return &model.ReservationRequest{
		PrisonerID:               prisonerID,
		SessionTemplateReference: ref,
		SessionDate:              date,
		Restriction:              r,
	}
}

func TestReserve_CapacityInvariantUnderConcurrency(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 3, 1))

	const callers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.Reserve(context.Background(),
				reserveRequest(fmt.Sprintf("A%04dBC", i), "MON-AM", "2025-03-10", model.RestrictionOpen))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			rejected = append(rejected, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	require.Len(t, rejected, callers-3)
	for _, err := range rejected {
		assert.True(t, apperrors.HasCode(err, reservationserrors.CodeCapacityExceeded), "unexpected error: %v", err)
	}
	assert.Zero(t, env.locker.heldCount())

	// the closed pool is untouched by open demand
	_, err := env.svc.Reserve(context.Background(), reserveRequest("Z9999ZZ", "MON-AM", "2025-03-10", model.RestrictionClosed))
	assert.NoError(t, err)
}

func TestReserve_PoolsShareFreshSlot(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 1))
	ctx := context.Background()

	var wg sync.WaitGroup
	apps := make([]*model.Application, 2)
	errs := make([]error, 2)
	for i, r := range []model.Restriction{model.RestrictionOpen, model.RestrictionClosed} {
		wg.Add(1)
		go func(i int, r model.Restriction) {
			defer wg.Done()
			apps[i], errs[i] = env.svc.Reserve(ctx, reserveRequest(fmt.Sprintf("A%04dAA", i), "MON-AM", "2025-03-10", r))
		}(i, r)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, apps[0].SessionSlotID, apps[1].SessionSlotID)
	assert.Len(t, env.store.slots, 1)
}

func TestReserve_CreatesApplication(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 2, 1))

	app, err := env.svc.Reserve(context.Background(), reserveRequest(" a1234bc ", "mon-am", "2025-03-10", "open"))
	require.NoError(t, err)

	assert.NotEmpty(t, app.ID)
	assert.NotEmpty(t, app.SessionSlotID)
	assert.Equal(t, "A1234BC", app.PrisonerID)
	assert.Equal(t, "MON-AM", app.SessionTemplateReference)
	assert.Equal(t, "MDI", app.PrisonCode)
	assert.Equal(t, model.RestrictionOpen, app.Restriction)
	assert.True(t, app.ReservedSlot)
	assert.False(t, app.Completed)
	assert.Equal(t, env.clock.Now(), app.ModifyTimestamp)
	assert.Equal(t, []string{events.TypeApplicationReserved}, env.events.types())
}

func TestReserve_DuplicateReservation(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 5, 1), mondayTemplate("MON-AM-2", 5, 1))
	ctx := context.Background()

	first, err := env.svc.Reserve(ctx, reserveRequest("A1234BC", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	_, err = env.svc.Reserve(ctx, reserveRequest("A1234BC", "MON-AM-2", "2025-03-10", model.RestrictionClosed))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeDuplicateReservation))
	assert.Equal(t, first.Reference, apperrors.AsAppError(err).Details["existing_reference"])

	// a different date is fine
	_, err = env.svc.Reserve(ctx, reserveRequest("A1234BC", "MON-AM", "2025-03-17", model.RestrictionOpen))
	assert.NoError(t, err)

	// once the first reservation lapses the date is free again
	env.clock.Advance(validityWindow + time.Second)
	_, err = env.svc.Reserve(ctx, reserveRequest("A1234BC", "MON-AM-2", "2025-03-10", model.RestrictionOpen))
	assert.NoError(t, err)
}

func TestReserve_Rejections(t *testing.T) {
	catA := mondayTemplate("CAT-A", 5, 1)
	catA.CategoryGroups = []model.CategoryGroup{{Name: "cat a", Categories: []string{"A"}}}
	env := newTestEnv(t, mondayTemplate("MON-AM", 5, 1), catA)
	env.snapshots.snapshots["B2222BB"] = &model.PrisonerEligibilitySnapshot{PrisonerID: "B2222BB", PrisonCode: "MDI", Category: "b"}
	env.snapshots.snapshots["C3333CC"] = &model.PrisonerEligibilitySnapshot{PrisonerID: "C3333CC", PrisonCode: "LEI"}

	tests := []struct {
		name          string
		req           *model.ReservationRequest
		wantCode      string
		wantDimension string
	}{
		{
			name:          "ineligible category",
			req:           reserveRequest("B2222BB", "CAT-A", "2025-03-10", model.RestrictionOpen),
			wantCode:      reservationserrors.CodeIneligible,
			wantDimension: "category",
		},
		{
			name:          "unknown prisoner on restricted template",
			req:           reserveRequest("X0000XX", "CAT-A", "2025-03-10", model.RestrictionOpen),
			wantCode:      reservationserrors.CodeIneligible,
			wantDimension: "category",
		},
		{
			name:          "held at another prison",
			req:           reserveRequest("C3333CC", "MON-AM", "2025-03-10", model.RestrictionOpen),
			wantCode:      reservationserrors.CodeIneligible,
			wantDimension: "prison",
		},
		{
			name:     "date off the template day",
			req:      reserveRequest("B2222BB", "MON-AM", "2025-03-11", model.RestrictionOpen),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "date before template starts",
			req:      reserveRequest("B2222BB", "MON-AM", "2024-12-30", model.RestrictionOpen),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "unknown template",
			req:      reserveRequest("B2222BB", "NOPE-NOPE", "2025-03-10", model.RestrictionOpen),
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "bad restriction",
			req:      reserveRequest("B2222BB", "MON-AM", "2025-03-10", "SEMI"),
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Reserve(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			if tt.wantDimension != "" {
				assert.Equal(t, tt.wantDimension, apperrors.AsAppError(err).Details["dimension"])
			}
		})
	}
	assert.Empty(t, env.store.applications)
}

func TestReserve_PrisonerServiceDown(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 5, 1))
	env.snapshots.err = errors.New("connection refused")

	_, err := env.svc.Reserve(context.Background(), reserveRequest("A1234BC", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
}

func TestReserve_LockTimeout(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 5, 1))
	env.svc.cfg.SlotLockWaitTimeout = 50 * time.Millisecond
	env.locker.always = true

	_, err := env.svc.Reserve(context.Background(), reserveRequest("A1234BC", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTimeout))
	assert.Empty(t, env.store.applications)
}

func TestReserve_ExpiredApplicationsFreeCapacity(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()

	_, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeCapacityExceeded))

	// exactly at the window boundary the first reservation still counts
	env.clock.Advance(validityWindow)
	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeCapacityExceeded))

	env.clock.Advance(time.Millisecond)
	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.NoError(t, err)
}

func TestAmend(t *testing.T) {
	ctx := context.Background()
	closed := model.RestrictionClosed
	open := model.RestrictionOpen

	t.Run("touch refreshes the timestamp", func(t *testing.T) {
		env := newTestEnv(t, mondayTemplate("MON-AM", 1, 1))
		app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)

		env.clock.Advance(9 * time.Minute)
		amended, err := env.svc.Amend(ctx, app.ID, &model.ApplicationUpdate{Restriction: &open})
		require.NoError(t, err)
		assert.Equal(t, env.clock.Now(), amended.ModifyTimestamp)

		// still live nine minutes after the refresh
		env.clock.Advance(9 * time.Minute)
		_, err = env.svc.Complete(ctx, app.ID)
		assert.NoError(t, err)
	})

	t.Run("restriction change re-runs admission", func(t *testing.T) {
		env := newTestEnv(t, mondayTemplate("MON-AM", 2, 1))
		first, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)
		second, err := env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)

		amended, err := env.svc.Amend(ctx, first.ID, &model.ApplicationUpdate{Restriction: &closed})
		require.NoError(t, err)
		assert.Equal(t, model.RestrictionClosed, amended.Restriction)

		_, err = env.svc.Amend(ctx, second.ID, &model.ApplicationUpdate{Restriction: &closed})
		assert.True(t, apperrors.HasCode(err, reservationserrors.CodeCapacityExceeded))

		stored, err := env.svc.GetApplication(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RestrictionOpen, stored.Restriction)
	})

	t.Run("moving session does not count itself", func(t *testing.T) {
		env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
		app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)

		ref, date := "MON-AM", "2025-03-17"
		amended, err := env.svc.Amend(ctx, app.ID, &model.ApplicationUpdate{SessionTemplateReference: &ref, SessionDate: &date})
		require.NoError(t, err)
		assert.Equal(t, mustDate("2025-03-17"), amended.SessionDate)
		assert.NotEqual(t, app.SessionSlotID, amended.SessionSlotID)

		// the original slot is free again
		_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", open))
		assert.NoError(t, err)
	})

	t.Run("moving onto an invalid date", func(t *testing.T) {
		env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
		app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)

		ref, date := "MON-AM", "2025-03-12"
		_, err = env.svc.Amend(ctx, app.ID, &model.ApplicationUpdate{SessionTemplateReference: &ref, SessionDate: &date})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("expired and completed applications", func(t *testing.T) {
		env := newTestEnv(t, mondayTemplate("MON-AM", 2, 1))
		stale, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)
		env.clock.Advance(validityWindow + time.Second)

		_, err = env.svc.Amend(ctx, stale.ID, &model.ApplicationUpdate{Restriction: &closed})
		assert.True(t, apperrors.HasCode(err, reservationserrors.CodeExpired))

		done, err := env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", open))
		require.NoError(t, err)
		_, err = env.svc.Complete(ctx, done.ID)
		require.NoError(t, err)

		_, err = env.svc.Amend(ctx, done.ID, &model.ApplicationUpdate{Restriction: &closed})
		assert.True(t, apperrors.HasCode(err, reservationserrors.CodeAlreadyCompleted))

		_, err = env.svc.Amend(ctx, "missing", &model.ApplicationUpdate{Restriction: &closed})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

// touchHook runs before between the service deciding to refresh a hold and
// the refresh reaching storage.
type touchHook struct {
	fakeApplications
	before func()
}

func (h touchHook) Touch(ctx context.Context, id string, at time.Time, liveSince time.Time) error {
	h.before()
	return h.fakeApplications.Touch(ctx, id, at, liveSince)
}

func TestAmend_TouchHoldsPoolAgainstReserve(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	env.svc.cfg.SlotLockWaitTimeout = 50 * time.Millisecond
	ctx := context.Background()
	open := model.RestrictionOpen

	held, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
	require.NoError(t, err)
	env.clock.Advance(validityWindow - time.Millisecond)

	// the hold lapses while its refresh is in flight and another prisoner
	// asks for the same unit
	var competing error
	env.svc.applications = touchHook{
		fakeApplications: fakeApplications{env.store},
		before: func() {
			env.clock.Advance(2 * time.Millisecond)
			_, competing = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", open))
		},
	}

	_, err = env.svc.Amend(ctx, held.ID, &model.ApplicationUpdate{Restriction: &open})
	require.NoError(t, err)
	assert.True(t, apperrors.HasCode(competing, apperrors.CodeTimeout), "got %v", competing)

	demand, err := env.svc.accountant.LiveDemand(ctx, held.SessionSlotID, open, "")
	require.NoError(t, err)
	assert.Equal(t, 1, demand)
	assert.Zero(t, env.locker.heldCount())

	env.svc.applications = fakeApplications{env.store}
	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", open))
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeCapacityExceeded))
}

func TestAmend_TouchOfLapsedHold(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()
	open := model.RestrictionOpen

	held, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", open))
	require.NoError(t, err)

	stored := env.store.applications[held.ID]
	env.clock.Advance(validityWindow + time.Millisecond)
	_, err = env.svc.Amend(ctx, held.ID, &model.ApplicationUpdate{Restriction: &open})
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeExpired))
	assert.Equal(t, stored.ModifyTimestamp, env.store.applications[held.ID].ModifyTimestamp)
}

func TestComplete_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()

	app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	visit, err := env.svc.Complete(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitBooked, visit.Status)
	assert.Equal(t, app.ID, visit.ApplicationID)
	assert.Equal(t, app.SessionSlotID, visit.SessionSlotID)

	_, err = env.svc.Complete(ctx, app.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeAlreadyCompleted))
	assert.Equal(t, visit.ID, apperrors.AsAppError(err).Details["visit_id"])
	assert.Len(t, env.store.visits, 1)

	stored, err := env.svc.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.False(t, stored.ReservedSlot)
	assert.Equal(t, visit.ID, stored.VisitID)

	// the booked visit still holds the only unit
	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeCapacityExceeded))
}

func TestComplete_ConcurrentCallsBookOnce(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()

	app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.Complete(ctx, app.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, reservationserrors.CodeAlreadyCompleted), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.store.visits, 1)
}

func TestComplete_Expired(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()

	app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	env.clock.Advance(validityWindow + time.Millisecond)

	_, err = env.svc.Complete(ctx, app.ID)
	assert.True(t, apperrors.HasCode(err, reservationserrors.CodeExpired))
	assert.Empty(t, env.store.visits)
}

func TestSweepExpired(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 5, 0))
	ctx := context.Background()

	stale1, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	booked, err := env.svc.Reserve(ctx, reserveRequest("C3333CC", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, booked.ID)
	require.NoError(t, err)

	env.clock.Advance(5 * time.Minute)
	fresh, err := env.svc.Reserve(ctx, reserveRequest("D4444DD", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	env.clock.Advance(6 * time.Minute)
	deleted, err := env.svc.SweepExpired(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = env.svc.GetApplication(ctx, stale1.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = env.svc.GetApplication(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = env.svc.GetApplication(ctx, booked.ID)
	assert.NoError(t, err)

	again, err := env.svc.SweepExpired(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Contains(t, env.events.types(), events.TypeApplicationsExpired)
}

func TestAbandon(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()

	app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	require.NoError(t, env.svc.Abandon(ctx, app.ID))
	_, err = env.svc.GetApplication(ctx, app.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)

	err = env.svc.Abandon(ctx, app.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCancelVisit_FreesCapacity(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 1, 0))
	ctx := context.Background()

	app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	visit, err := env.svc.Complete(ctx, app.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.CancelVisit(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	again, err := env.svc.CancelVisit(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitCancelled, again.Status)

	_, err = env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	assert.NoError(t, err)

	_, err = env.svc.CancelVisit(ctx, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	fetched, err := env.svc.GetVisit(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitCancelled, fetched.Status)
}

func TestPublishedEvents(t *testing.T) {
	env := newTestEnv(t, mondayTemplate("MON-AM", 2, 1))
	ctx := context.Background()
	closed := model.RestrictionClosed

	app, err := env.svc.Reserve(ctx, reserveRequest("A1111AA", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	_, err = env.svc.Amend(ctx, app.ID, &model.ApplicationUpdate{Restriction: &closed})
	require.NoError(t, err)
	visit, err := env.svc.Complete(ctx, app.ID)
	require.NoError(t, err)
	_, err = env.svc.CancelVisit(ctx, visit.ID)
	require.NoError(t, err)

	other, err := env.svc.Reserve(ctx, reserveRequest("B2222BB", "MON-AM", "2025-03-10", model.RestrictionOpen))
	require.NoError(t, err)
	require.NoError(t, env.svc.Abandon(ctx, other.ID))

	assert.Equal(t, []string{
		events.TypeApplicationReserved,
		events.TypeApplicationAmended,
		events.TypeApplicationBooked,
		events.TypeVisitCancelled,
		events.TypeApplicationReserved,
		events.TypeApplicationAbandoned,
	}, env.events.types())
}
