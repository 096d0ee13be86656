package http

import (
	"net/http"
	"strings"
	"time"

	apperrors "visitscheduler/pkg/errors"
	"visitscheduler/pkg/model"
)

// ExtractDateRange reads the "from" and "to" query parameters as dates.
// from defaults to today and to defaults to from plus lookaheadDays.
func ExtractDateRange(r *http.Request, now time.Time, lookaheadDays int) (time.Time, time.Time, error) {
	query := r.URL.Query()

	from := model.DateOf(now)
	if s := strings.TrimSpace(query.Get("from")); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid from parameter: " + s)
		}
		from = d
	}

	to := from.AddDate(0, 0, lookaheadDays)
	if s := strings.TrimSpace(query.Get("to")); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid to parameter: " + s)
		}
		to = d
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("to must not be before from")
	}
	if lookaheadDays > 0 && to.Sub(from) > time.Duration(lookaheadDays)*24*time.Hour {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("date range exceeds the maximum lookahead")
	}

	return from, to, nil
}
