package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"visitscheduler/internal/capacity"
	reservationserrors "visitscheduler/internal/reservations/errors"
	templateserrors "visitscheduler/internal/templates/errors"
	"visitscheduler/pkg/client"
	mongotx "visitscheduler/pkg/db/mongo"
	"visitscheduler/pkg/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore backs the application, visit and slot fakes with one mutex so
// counts read a consistent view.
type fakeStore struct {
	mu           sync.Mutex
	applications map[string]model.Application
	visits       map[string]model.Visit
	slots        map[string]model.SessionSlot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		applications: map[string]model.Application{},
		visits:       map[string]model.Visit{},
		slots:        map[string]model.SessionSlot{},
	}
}

type fakeApplications struct{ *fakeStore }

func (f fakeApplications) Create(ctx context.Context, app *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applications[app.ID] = *app
	return nil
}

func (f fakeApplications) FindByID(ctx context.Context, id string) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.applications[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return &app, nil
}

func (f fakeApplications) FindLiveByPrisonerAndDate(ctx context.Context, prisonerID string, date time.Time, modifiedSince time.Time, excludeID string) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, app := range f.applications {
		if app.PrisonerID == prisonerID && app.SessionDate.Equal(date) && app.ReservedSlot &&
			!app.Completed && !app.ModifyTimestamp.Before(modifiedSince) && app.ID != excludeID {
			return &app, nil
		}
	}
	return nil, reservationserrors.ErrNotFound
}

func (f fakeApplications) CountLive(ctx context.Context, q capacity.DemandQuery) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, app := range f.applications {
		if app.SessionSlotID == q.SessionSlotID && app.Restriction == q.Restriction && app.ReservedSlot &&
			!app.Completed && !app.ModifyTimestamp.Before(q.ModifiedSince) && app.ID != q.ExcludeApplicationID {
			n++
		}
	}
	return n, nil
}

func (f fakeApplications) UpdateReservation(ctx context.Context, app *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, err := f.openLocked(app.ID)
	if err != nil {
		return err
	}
	existing.SessionSlotID = app.SessionSlotID
	existing.SessionTemplateReference = app.SessionTemplateReference
	existing.SessionDate = app.SessionDate
	existing.Restriction = app.Restriction
	existing.ModifyTimestamp = app.ModifyTimestamp
	f.applications[app.ID] = existing
	return nil
}

func (f fakeApplications) Touch(ctx context.Context, id string, at time.Time, liveSince time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, err := f.openLocked(id)
	if err != nil {
		return err
	}
	if existing.ModifyTimestamp.Before(liveSince) {
		return reservationserrors.ErrExpired
	}
	existing.ModifyTimestamp = at
	f.applications[id] = existing
	return nil
}

func (f fakeApplications) MarkCompleted(ctx context.Context, id string, visitID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, err := f.openLocked(id)
	if err != nil {
		return err
	}
	existing.Completed = true
	existing.ReservedSlot = false
	existing.VisitID = visitID
	existing.ModifyTimestamp = at
	f.applications[id] = existing
	return nil
}

func (f fakeApplications) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.openLocked(id); err != nil {
		return err
	}
	delete(f.applications, id)
	return nil
}

func (f fakeApplications) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, app := range f.applications {
		if !app.Completed && app.ModifyTimestamp.Before(cutoff) {
			delete(f.applications, id)
			n++
		}
	}
	return n, nil
}

func (f fakeApplications) openLocked(id string) (model.Application, error) {
	app, ok := f.applications[id]
	if !ok {
		return model.Application{}, reservationserrors.ErrNotFound
	}
	if app.Completed {
		return model.Application{}, reservationserrors.ErrAlreadyCompleted
	}
	return app, nil
}

type fakeVisits struct{ *fakeStore }

func (f fakeVisits) Create(ctx context.Context, visit *model.Visit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits[visit.ID] = *visit
	return nil
}

func (f fakeVisits) FindByID(ctx context.Context, id string) (*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visit, ok := f.visits[id]
	if !ok {
		return nil, reservationserrors.ErrVisitNotFound
	}
	return &visit, nil
}

func (f fakeVisits) FindByApplicationID(ctx context.Context, applicationID string) (*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, visit := range f.visits {
		if visit.ApplicationID == applicationID {
			return &visit, nil
		}
	}
	return nil, reservationserrors.ErrVisitNotFound
}

func (f fakeVisits) CountBooked(ctx context.Context, sessionSlotID string, restriction model.Restriction) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, visit := range f.visits {
		if visit.SessionSlotID == sessionSlotID && visit.Restriction == restriction && visit.Status == model.VisitBooked {
			n++
		}
	}
	return n, nil
}

func (f fakeVisits) Cancel(ctx context.Context, id string, at time.Time) (*model.Visit, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visit, ok := f.visits[id]
	if !ok {
		return nil, false, reservationserrors.ErrVisitNotFound
	}
	if visit.Status != model.VisitBooked {
		return &visit, false, nil
	}
	visit.Status = model.VisitCancelled
	visit.CancelledAt = &at
	f.visits[id] = visit
	return &visit, true, nil
}

func (f fakeVisits) StatsForTemplate(ctx context.Context, templateRef string, from time.Time) (*model.SessionTemplateVisitStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byDate := map[time.Time]*model.DateVisitCount{}
	stats := &model.SessionTemplateVisitStats{TemplateReference: templateRef}
	for _, visit := range f.visits {
		if visit.SessionTemplateReference != templateRef || visit.Status != model.VisitBooked || visit.SessionDate.Before(from) {
			continue
		}
		c, ok := byDate[visit.SessionDate]
		if !ok {
			c = &model.DateVisitCount{Date: visit.SessionDate}
			byDate[visit.SessionDate] = c
		}
		if visit.Restriction == model.RestrictionClosed {
			c.Closed++
		} else {
			c.Open++
		}
		stats.VisitCount++
	}
	for _, c := range byDate {
		stats.VisitsByDate = append(stats.VisitsByDate, *c)
	}
	sort.Slice(stats.VisitsByDate, func(i, j int) bool {
		return stats.VisitsByDate[i].Date.Before(stats.VisitsByDate[j].Date)
	})
	return stats, nil
}

type fakeSlots struct{ *fakeStore }

func (f fakeSlots) GetOrCreate(ctx context.Context, tpl *model.SessionTemplate, date time.Time) (*model.SessionSlot, error) {
	if inTransaction(ctx) {
		return nil, errors.New("session slot upsert inside a transaction")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, slot := range f.slots {
		if slot.SessionTemplateReference == tpl.Reference && slot.SlotDate.Equal(date) &&
			slot.StartTime == tpl.StartTime && slot.EndTime == tpl.EndTime {
			return &slot, nil
		}
	}
	id := uuid.NewString()
	slot := model.SessionSlot{
		ID:                       id,
		Reference:                id,
		SessionTemplateReference: tpl.Reference,
		PrisonCode:               tpl.PrisonCode,
		SlotDate:                 date,
		StartTime:                tpl.StartTime,
		EndTime:                  tpl.EndTime,
	}
	f.slots[id] = slot
	return &slot, nil
}

func (f fakeSlots) FindByID(ctx context.Context, id string) (*model.SessionSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[id]
	if !ok {
		return nil, reservationserrors.ErrSlotNotFound
	}
	return &slot, nil
}

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]string
	always bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (l *fakeLocker) Acquire(ctx context.Context, lockID string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[lockID]; ok || l.always {
		return "", reservationserrors.ErrLockHeld
	}
	token := uuid.NewString()
	l.held[lockID] = token
	return token, nil
}

func (l *fakeLocker) Release(ctx context.Context, lockID string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[lockID] != token {
		return reservationserrors.ErrLockNotOwned
	}
	delete(l.held, lockID)
	return nil
}

func (l *fakeLocker) heldCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

type inTransactionKey struct{}

// fakeTxManager marks ctx so fakes can refuse work MongoDB would abort
// inside a transaction.
type fakeTxManager struct{}

func (fakeTxManager) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(context.WithValue(ctx, inTransactionKey{}, true))
}

func inTransaction(ctx context.Context) bool {
	in, _ := ctx.Value(inTransactionKey{}).(bool)
	return in
}

type fakeTemplates struct {
	templates map[string]*model.SessionTemplate
}

func (f *fakeTemplates) FindByReference(ctx context.Context, reference string) (*model.SessionTemplate, error) {
	tpl, ok := f.templates[reference]
	if !ok {
		return nil, templateserrors.ErrNotFound
	}
	return tpl, nil
}

type fakeSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]*model.PrisonerEligibilitySnapshot
	err       error
}

func (f *fakeSnapshots) GetEligibilitySnapshot(ctx context.Context, prisonerID string) (*model.PrisonerEligibilitySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	snapshot, ok := f.snapshots[prisonerID]
	if !ok {
		return nil, client.ErrPrisonerNotFound
	}
	copied := *snapshot
	return &copied, nil
}

type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}
