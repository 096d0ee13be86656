package model

import (
	"time"
)

type SessionTemplate struct {
	ID                       string                `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid"`
	Reference                string                `json:"reference" bson:"reference" validate:"omitempty,min=3,max=40"`
	Name                     string                `json:"name" bson:"name" validate:"required,min=2,max=100"`
	PrisonCode               string                `json:"prison_code" bson:"prison_code" validate:"required,min=2,max=10"`
	DayOfWeek                DayOfWeek             `json:"day_of_week" bson:"day_of_week" validate:"required,weekday"`
	StartTime                string                `json:"start_time" bson:"start_time" validate:"required,valid_time_of_day"`
	EndTime                  string                `json:"end_time" bson:"end_time" validate:"required,valid_time_of_day"`
	WeeklyFrequency          int                   `json:"weekly_frequency" bson:"weekly_frequency" validate:"required,min=1,max=12"`
	ValidFrom                time.Time             `json:"valid_from" bson:"valid_from" validate:"required"`
	ValidTo                  *time.Time            `json:"valid_to,omitempty" bson:"valid_to,omitempty" validate:"omitempty"`
	OpenCapacity             int                   `json:"open_capacity" bson:"open_capacity" validate:"min=0,max=500"`
	ClosedCapacity           int                   `json:"closed_capacity" bson:"closed_capacity" validate:"min=0,max=500"`
	IncludeLocationGroupType bool                  `json:"include_location_group_type" bson:"include_location_group_type"`
	LocationGroups           []LocationGroup       `json:"location_groups,omitempty" bson:"location_groups,omitempty" validate:"omitempty,dive"`
	CategoryGroups           []CategoryGroup       `json:"category_groups,omitempty" bson:"category_groups,omitempty" validate:"omitempty,dive"`
	IncentiveLevelGroups     []IncentiveLevelGroup `json:"incentive_level_groups,omitempty" bson:"incentive_level_groups,omitempty" validate:"omitempty,dive"`
	CreatedAt                time.Time             `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type LocationGroup struct {
	Reference string     `json:"reference,omitempty" bson:"reference,omitempty"`
	Name      string     `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Locations []Location `json:"locations" bson:"locations" validate:"min=1,dive"`
}

type CategoryGroup struct {
	Reference  string   `json:"reference,omitempty" bson:"reference,omitempty"`
	Name       string   `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Categories []string `json:"categories" bson:"categories" validate:"min=1,dive,min=1,max=20"`
}

type IncentiveLevelGroup struct {
	Reference string   `json:"reference,omitempty" bson:"reference,omitempty"`
	Name      string   `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Levels    []string `json:"levels" bson:"levels" validate:"min=1,dive,min=1,max=20"`
}

// ActiveOn reports whether the template produces a session on date.
func (t *SessionTemplate) ActiveOn(date time.Time) bool {
	date = DateOf(date)
	wd, ok := t.DayOfWeek.Weekday()
	if !ok || date.Weekday() != wd {
		return false
	}
	if !t.InRange(date) {
		return false
	}
	return t.OnCadence(date)
}

// InRange reports whether date lies within [ValidFrom, ValidTo].
func (t *SessionTemplate) InRange(date time.Time) bool {
	date = DateOf(date)
	if date.Before(DateOf(t.ValidFrom)) {
		return false
	}
	if t.ValidTo != nil && date.After(DateOf(*t.ValidTo)) {
		return false
	}
	return true
}

// OnCadence reports whether date is a whole multiple of WeeklyFrequency weeks
// after the template's first occurrence. Dates before the first occurrence are
// never on cadence.
func (t *SessionTemplate) OnCadence(date time.Time) bool {
	wd, ok := t.DayOfWeek.Weekday()
	if !ok {
		return false
	}
	first := FirstOnOrAfter(t.ValidFrom, wd)
	date = DateOf(date)
	if date.Before(first) {
		return false
	}
	days := int(date.Sub(first).Hours() / 24)
	if days%7 != 0 {
		return false
	}
	freq := t.WeeklyFrequency
	if freq < 1 {
		freq = 1
	}
	return (days/7)%freq == 0
}

// Occurrences lists active dates in [from, to].
func (t *SessionTemplate) Occurrences(from, to time.Time) []time.Time {
	wd, ok := t.DayOfWeek.Weekday()
	if !ok {
		return nil
	}
	var dates []time.Time
	to = DateOf(to)
	for d := FirstOnOrAfter(from, wd); !d.After(to); d = d.AddDate(0, 0, 7) {
		if t.ActiveOn(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

func (t *SessionTemplate) CapacityFor(r Restriction) int {
	switch r {
	case RestrictionOpen:
		return t.OpenCapacity
	case RestrictionClosed:
		return t.ClosedCapacity
	default:
		return 0
	}
}

func (t *SessionTemplate) PermittedLocations() []Location {
	var out []Location
	for _, g := range t.LocationGroups {
		out = append(out, g.Locations...)
	}
	return out
}

func (t *SessionTemplate) PermittedCategories() []string {
	var out []string
	for _, g := range t.CategoryGroups {
		out = append(out, g.Categories...)
	}
	return out
}

func (t *SessionTemplate) PermittedIncentiveLevels() []string {
	var out []string
	for _, g := range t.IncentiveLevelGroups {
		out = append(out, g.Levels...)
	}
	return out
}

// MigrationRequest asks whether visits on FromReference can move to
// ToReference from EffectiveFrom onwards.
type MigrationRequest struct {
	FromReference string `json:"from_reference" validate:"required,min=3,max=40"`
	ToReference   string `json:"to_reference" validate:"required,min=3,max=40"`
	EffectiveFrom string `json:"effective_from" validate:"required,datetime=2006-01-02"`
}

type MigrationResult struct {
	FromReference   string           `json:"from_reference"`
	ToReference     string           `json:"to_reference"`
	EffectiveFrom   string           `json:"effective_from"`
	Safe            bool             `json:"safe"`
	BlockingReasons []BlockingReason `json:"blocking_reasons"`
}
