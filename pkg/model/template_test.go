package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestSessionTemplate_ActiveOn(t *testing.T) {
	validTo := date(t, "2025-04-30")
	tpl := &SessionTemplate{
		DayOfWeek:       Monday,
		WeeklyFrequency: 2,
		ValidFrom:       date(t, "2025-03-01"),
		ValidTo:         &validTo,
	}

	tests := []struct {
		name string
		date string
		want bool
	}{
		{name: "first monday after valid from", date: "2025-03-03", want: true},
		{name: "off cadence week", date: "2025-03-10", want: false},
		{name: "two weeks later", date: "2025-03-17", want: true},
		{name: "wrong weekday", date: "2025-03-04", want: false},
		{name: "before valid from", date: "2025-02-24", want: false},
		{name: "after valid to", date: "2025-05-12", want: false},
		{name: "last occurrence within range", date: "2025-04-28", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tpl.ActiveOn(date(t, tt.date)))
		})
	}
}

func TestSessionTemplate_ActiveOnIgnoresTimeOfDay(t *testing.T) {
	tpl := &SessionTemplate{DayOfWeek: Monday, WeeklyFrequency: 1, ValidFrom: date(t, "2025-03-03")}
	assert.True(t, tpl.ActiveOn(time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)))
}

func TestSessionTemplate_Occurrences(t *testing.T) {
	tpl := &SessionTemplate{DayOfWeek: Wednesday, WeeklyFrequency: 1, ValidFrom: date(t, "2025-03-01")}

	got := tpl.Occurrences(date(t, "2025-03-01"), date(t, "2025-03-20"))

	require.Len(t, got, 3)
	assert.Equal(t, "2025-03-05", FormatDate(got[0]))
	assert.Equal(t, "2025-03-19", FormatDate(got[2]))
}

func TestSessionTemplate_CapacityFor(t *testing.T) {
	tpl := &SessionTemplate{OpenCapacity: 20, ClosedCapacity: 2}

	assert.Equal(t, 20, tpl.CapacityFor(RestrictionOpen))
	assert.Equal(t, 2, tpl.CapacityFor(RestrictionClosed))
	assert.Equal(t, 0, tpl.CapacityFor(Restriction("UNKNOWN")))
}

func TestSessionTemplate_PermittedValuesFlattenGroups(t *testing.T) {
	tpl := &SessionTemplate{
		CategoryGroups: []CategoryGroup{
			{Name: "cat a", Categories: []string{"A", "B"}},
			{Name: "cat c", Categories: []string{"C"}},
		},
		LocationGroups: []LocationGroup{
			{Name: "wing a", Locations: []Location{{LevelOneCode: "A"}}},
		},
	}

	assert.Equal(t, []string{"A", "B", "C"}, tpl.PermittedCategories())
	assert.Len(t, tpl.PermittedLocations(), 1)
	assert.Empty(t, tpl.PermittedIncentiveLevels())
}

func TestParseLocation(t *testing.T) {
	loc := ParseLocation("A-2-014")

	assert.Equal(t, Location{LevelOneCode: "A", LevelTwoCode: "2", LevelThreeCode: "014"}, loc)
	assert.Equal(t, "A-2-014", loc.String())
}

func TestLocation_HasGap(t *testing.T) {
	assert.False(t, Location{LevelOneCode: "A"}.HasGap())
	assert.False(t, ParseLocation("A-2-014-3").HasGap())
	assert.True(t, Location{LevelOneCode: "A", LevelThreeCode: "014"}.HasGap())
	assert.True(t, Location{LevelTwoCode: "2"}.HasGap())
}

func TestParseTimeOfDay(t *testing.T) {
	m, err := ParseTimeOfDay("13:45")
	require.NoError(t, err)
	assert.Equal(t, 13*60+45, m)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestSessionTemplateVisitStats_ByDate(t *testing.T) {
	stats := &SessionTemplateVisitStats{
		VisitsByDate: []DateVisitCount{
			{Date: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Open: 3},
			{Date: date(t, "2025-03-10"), Closed: 1},
		},
	}

	byDate := stats.ByDate()

	require.Contains(t, byDate, date(t, "2025-03-10"))
	assert.Equal(t, 3, byDate[date(t, "2025-03-10")].Open)
	assert.Equal(t, 1, byDate[date(t, "2025-03-10")].Closed)

	var none *SessionTemplateVisitStats
	assert.Empty(t, none.ByDate())
}
