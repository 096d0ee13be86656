package model

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = map[DayOfWeek]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

func (d DayOfWeek) Valid() bool {
	_, ok := weekdays[DayOfWeek(strings.ToUpper(string(d)))]
	return ok
}

// Weekday returns ok=false for unknown day names.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	wd, ok := weekdays[DayOfWeek(strings.ToUpper(string(d)))]
	return wd, ok
}

func DayOfWeekOf(t time.Time) DayOfWeek {
	for d, wd := range weekdays {
		if wd == t.Weekday() {
			return d
		}
	}
	return ""
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// FirstOnOrAfter returns the first date on or after from that falls on wd.
func FirstOnOrAfter(from time.Time, wd time.Weekday) time.Time {
	from = DateOf(from)
	shift := (int(wd) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, shift)
}

// ParseTimeOfDay converts "HH:MM" into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
