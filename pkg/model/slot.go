package model

import "time"

type SessionSlot struct {
	ID                       string    `json:"id" bson:"_id"`
	Reference                string    `json:"reference" bson:"reference"`
	SessionTemplateReference string    `json:"session_template_reference" bson:"session_template_reference"`
	PrisonCode               string    `json:"prison_code" bson:"prison_code"`
	SlotDate                 time.Time `json:"slot_date" bson:"slot_date"`
	StartTime                string    `json:"start_time" bson:"start_time"`
	EndTime                  string    `json:"end_time" bson:"end_time"`
	CreatedAt                time.Time `json:"created_at" bson:"created_at"`
}

// SessionOccurrence is one dated session produced by a template.
type SessionOccurrence struct {
	SessionTemplateReference string    `json:"session_template_reference"`
	PrisonCode               string    `json:"prison_code"`
	SessionDate              time.Time `json:"session_date"`
	StartTime                string    `json:"start_time"`
	EndTime                  string    `json:"end_time"`
	OpenCapacity             int       `json:"open_capacity"`
	ClosedCapacity           int       `json:"closed_capacity"`
}
