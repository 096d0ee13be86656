package model

import "time"

type DateVisitCount struct {
	Date   time.Time `json:"date" bson:"date"`
	Open   int       `json:"open" bson:"open"`
	Closed int       `json:"closed" bson:"closed"`
}

func (c DateVisitCount) Total() int {
	return c.Open + c.Closed
}

func (c DateVisitCount) For(r Restriction) int {
	if r == RestrictionClosed {
		return c.Closed
	}
	return c.Open
}

// SessionTemplateVisitStats holds booked visit counts per session date for one template.
type SessionTemplateVisitStats struct {
	TemplateReference string           `json:"template_reference"`
	VisitCount        int              `json:"visit_count"`
	VisitsByDate      []DateVisitCount `json:"visits_by_date"`
}

// ByDate indexes VisitsByDate on the calendar date.
func (s *SessionTemplateVisitStats) ByDate() map[time.Time]DateVisitCount {
	if s == nil {
		return map[time.Time]DateVisitCount{}
	}
	out := make(map[time.Time]DateVisitCount, len(s.VisitsByDate))
	for _, c := range s.VisitsByDate {
		d := DateOf(c.Date)
		prev := out[d]
		prev.Date = d
		prev.Open += c.Open
		prev.Closed += c.Closed
		out[d] = prev
	}
	return out
}

type BlockingReason struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Date    *time.Time `json:"date,omitempty"`
}
