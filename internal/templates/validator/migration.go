package validator

import (
	"fmt"
	"sort"
	"time"

	"visitscheduler/internal/eligibility"
	"visitscheduler/pkg/model"
)

const (
	ReasonSameTemplate           = "SAME_TEMPLATE"
	ReasonPrisonMismatch         = "PRISON_MISMATCH"
	ReasonDayOfWeekMismatch      = "DAY_OF_WEEK_MISMATCH"
	ReasonStartTimeDrift         = "START_TIME_DRIFT"
	ReasonInvalidTimeRange       = "INVALID_TIME_RANGE"
	ReasonDateOutOfRange         = "DATE_OUT_OF_RANGE"
	ReasonDateOffCadence         = "DATE_OFF_CADENCE"
	ReasonLocationCoverage       = "LOCATION_COVERAGE_REDUCED"
	ReasonCategoryCoverage       = "CATEGORY_COVERAGE_REDUCED"
	ReasonIncentiveCoverage      = "INCENTIVE_COVERAGE_REDUCED"
	ReasonOpenCapacityExceeded   = "OPEN_CAPACITY_EXCEEDED"
	ReasonClosedCapacityExceeded = "CLOSED_CAPACITY_EXCEEDED"
)

const DefaultStartTimeTolerance = 60 * time.Minute

// MigrationValidator decides whether visits booked against one session
// template can move to another. It never touches storage.
type MigrationValidator struct {
	tolerance time.Duration
}

func NewMigrationValidator(tolerance time.Duration) *MigrationValidator {
	if tolerance <= 0 {
		tolerance = DefaultStartTimeTolerance
	}
	return &MigrationValidator{tolerance: tolerance}
}

func (v *MigrationValidator) Tolerance() time.Duration {
	return v.tolerance
}

// ValidateMigration returns every reason the move from -> to starting at
// effectiveFrom would break existing visits. An empty result means the move
// is safe.
func (v *MigrationValidator) ValidateMigration(
	from *model.SessionTemplate,
	fromStats *model.SessionTemplateVisitStats,
	to *model.SessionTemplate,
	toStats *model.SessionTemplateVisitStats,
	effectiveFrom time.Time,
) []model.BlockingReason {
	reasons := []model.BlockingReason{}
	add := func(code, msg string, date *time.Time) {
		reasons = append(reasons, model.BlockingReason{Code: code, Message: msg, Date: date})
	}

	if from.Reference != "" && from.Reference == to.Reference {
		add(ReasonSameTemplate, fmt.Sprintf("Session template %s cannot be migrated onto itself", from.Reference), nil)
	}

	if from.PrisonCode != to.PrisonCode {
		add(ReasonPrisonMismatch, fmt.Sprintf("Prison %s does not match new prison %s", from.PrisonCode, to.PrisonCode), nil)
	}

	fromDay, _ := from.DayOfWeek.Weekday()
	toDay, toDayOK := to.DayOfWeek.Weekday()
	if !toDayOK || fromDay != toDay {
		add(ReasonDayOfWeekMismatch, fmt.Sprintf("Day of week %s does not match new day of week %s", from.DayOfWeek, to.DayOfWeek), nil)
	}

	if msg, ok := v.startTimeDrift(from, to); !ok {
		add(ReasonStartTimeDrift, msg, nil)
	}

	toStart, startErr := model.ParseTimeOfDay(to.StartTime)
	toEnd, endErr := model.ParseTimeOfDay(to.EndTime)
	if startErr != nil || endErr != nil || toEnd <= toStart {
		add(ReasonInvalidTimeRange, fmt.Sprintf("New session end time %s must be after start time %s", to.EndTime, to.StartTime), nil)
	}

	active := activeDates(fromStats, effectiveFrom)

	cadenceMustHold := to.WeeklyFrequency > 0 && from.WeeklyFrequency%to.WeeklyFrequency != 0
	for _, date := range active {
		d := date
		if !to.InRange(d) {
			add(ReasonDateOutOfRange, fmt.Sprintf("Visits on %s fall outside the new template's valid dates", model.FormatDate(d)), &d)
			continue
		}
		if cadenceMustHold && !to.OnCadence(d) {
			add(ReasonDateOffCadence, fmt.Sprintf("Visits on %s do not fall on the new template's %d-weekly cadence", model.FormatDate(d), to.WeeklyFrequency), &d)
		}
	}

	if !locationCoverageKept(from, to) {
		add(ReasonLocationCoverage, "New location groups do not cover every location permitted by the existing template", nil)
	}
	if !eligibility.AllMatch(to.PermittedCategories(), from.PermittedCategories()) {
		add(ReasonCategoryCoverage, "New category groups do not cover every category permitted by the existing template", nil)
	}
	if !eligibility.AllMatch(to.PermittedIncentiveLevels(), from.PermittedIncentiveLevels()) {
		add(ReasonIncentiveCoverage, "New incentive level groups do not cover every level permitted by the existing template", nil)
	}

	reasons = append(reasons, capacityReasons(from, fromStats, to, toStats, effectiveFrom)...)

	return reasons
}

func (v *MigrationValidator) startTimeDrift(from, to *model.SessionTemplate) (string, bool) {
	if from.StartTime == to.StartTime {
		return "", true
	}
	fromStart, err1 := model.ParseTimeOfDay(from.StartTime)
	toStart, err2 := model.ParseTimeOfDay(to.StartTime)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("Start time %s cannot be compared with new start time %s", from.StartTime, to.StartTime), false
	}
	drift := time.Duration(abs(toStart-fromStart)) * time.Minute
	if drift > v.tolerance {
		return fmt.Sprintf("Start time moves from %s to %s, more than the allowed %s", from.StartTime, to.StartTime, v.tolerance), false
	}
	return "", true
}

// locationCoverageKept reports whether every prisoner housed where the old
// template admitted visits is still admitted by the new one.
func locationCoverageKept(from, to *model.SessionTemplate) bool {
	newLocs := to.PermittedLocations()
	if len(newLocs) == 0 {
		return true
	}
	oldLocs := from.PermittedLocations()
	if len(oldLocs) == 0 {
		return false
	}

	switch {
	case from.IncludeLocationGroupType && to.IncludeLocationGroupType:
		return eligibility.HasAllLowerOrEqualLocationMatch(newLocs, oldLocs)
	case !from.IncludeLocationGroupType && !to.IncludeLocationGroupType:
		// the new block list may only exclude what the old one already did
		return eligibility.HasAllLowerOrEqualLocationMatch(oldLocs, newLocs)
	default:
		return false
	}
}

func activeDates(stats *model.SessionTemplateVisitStats, effectiveFrom time.Time) []time.Time {
	cutoff := model.DateOf(effectiveFrom)
	var dates []time.Time
	for d, c := range stats.ByDate() {
		if d.Before(cutoff) || c.Total() == 0 {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func capacityReasons(
	from *model.SessionTemplate,
	fromStats *model.SessionTemplateVisitStats,
	to *model.SessionTemplate,
	toStats *model.SessionTemplateVisitStats,
	effectiveFrom time.Time,
) []model.BlockingReason {
	fromByDate := fromStats.ByDate()
	toByDate := toStats.ByDate()

	var reasons []model.BlockingReason
	for _, date := range activeDates(fromStats, effectiveFrom) {
		moving := fromByDate[date]
		existing := toByDate[date]
		for _, r := range []model.Restriction{model.RestrictionOpen, model.RestrictionClosed} {
			combined := moving.For(r) + existing.For(r)
			if moving.For(r) == 0 || combined <= to.CapacityFor(r) {
				continue
			}
			d := date
			code := ReasonOpenCapacityExceeded
			if r == model.RestrictionClosed {
				code = ReasonClosedCapacityExceeded
			}
			msg := fmt.Sprintf("%s visits on %s would total %d, new %s capacity is %d",
				r, model.FormatDate(d), combined, r, to.CapacityFor(r))
			reasons = append(reasons, model.BlockingReason{Code: code, Message: msg, Date: &d})
		}
	}
	return reasons
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
