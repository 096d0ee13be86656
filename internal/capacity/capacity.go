package capacity

import (
	"context"
	"fmt"
	"time"

	"visitscheduler/pkg/model"
)

// DemandQuery selects live applications competing for one pool.
type DemandQuery struct {
	SessionSlotID string
	Restriction   model.Restriction
	// ModifiedSince excludes applications last touched before this instant.
	ModifiedSince time.Time
	// ExcludeApplicationID leaves one application out of the count, used when
	// an application is moving between pools.
	ExcludeApplicationID string
}

type ApplicationCounter interface {
	CountLive(ctx context.Context, q DemandQuery) (int, error)
}

type VisitCounter interface {
	CountBooked(ctx context.Context, sessionSlotID string, restriction model.Restriction) (int, error)
}

type Headroom struct {
	Capacity int
	Demand   int
}

func (h Headroom) Available() bool {
	return h.Demand < h.Capacity
}

func (h Headroom) Remaining() int {
	if h.Demand >= h.Capacity {
		return 0
	}
	return h.Capacity - h.Demand
}

type Accountant struct {
	applications ApplicationCounter
	visits       VisitCounter
	window       time.Duration
	now          func() time.Time
}

func NewAccountant(applications ApplicationCounter, visits VisitCounter, window time.Duration) *Accountant {
	return &Accountant{
		applications: applications,
		visits:       visits,
		window:       window,
		now:          time.Now,
	}
}

// WithClock replaces the time source.
func (a *Accountant) WithClock(now func() time.Time) *Accountant {
	a.now = now
	return a
}

func (a *Accountant) Window() time.Duration {
	return a.window
}

// LiveDemand counts unexpired, uncompleted reservations plus booked visits
// for one slot and restriction. excludeApplicationID may be empty.
func (a *Accountant) LiveDemand(ctx context.Context, slotID string, r model.Restriction, excludeApplicationID string) (int, error) {
	apps, err := a.applications.CountLive(ctx, DemandQuery{
		SessionSlotID:        slotID,
		Restriction:          r,
		ModifiedSince:        a.now().Add(-a.window),
		ExcludeApplicationID: excludeApplicationID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count live applications: %w", err)
	}
	visits, err := a.visits.CountBooked(ctx, slotID, r)
	if err != nil {
		return 0, fmt.Errorf("failed to count booked visits: %w", err)
	}
	return apps + visits, nil
}

func (a *Accountant) Check(ctx context.Context, tpl *model.SessionTemplate, slot *model.SessionSlot, r model.Restriction, excludeApplicationID string) (Headroom, error) {
	demand, err := a.LiveDemand(ctx, slot.ID, r, excludeApplicationID)
	if err != nil {
		return Headroom{}, err
	}
	return Headroom{Capacity: CapacityFor(tpl, r), Demand: demand}, nil
}

func (a *Accountant) HasHeadroom(ctx context.Context, tpl *model.SessionTemplate, slot *model.SessionSlot, r model.Restriction) (bool, error) {
	h, err := a.Check(ctx, tpl, slot, r, "")
	if err != nil {
		return false, err
	}
	return h.Available(), nil
}

// IsExpired reports whether a reservation last modified at modifiedAt has
// left the validity window. A reservation modified exactly at the window
// boundary is still live.
func (a *Accountant) IsExpired(modifiedAt time.Time) bool {
	return IsExpired(modifiedAt, a.now(), a.window)
}

func CapacityFor(tpl *model.SessionTemplate, r model.Restriction) int {
	return tpl.CapacityFor(r)
}

func IsExpired(modifiedAt, now time.Time, window time.Duration) bool {
	return modifiedAt.Before(now.Add(-window))
}

// IsLive mirrors the demand query for a single application.
func IsLive(app *model.Application, now time.Time, window time.Duration) bool {
	return app.ReservedSlot && !app.Completed && !IsExpired(app.ModifyTimestamp, now, window)
}
