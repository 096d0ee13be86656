package model

import "time"

type VisitStatus string

const (
	VisitBooked    VisitStatus = "BOOKED"
	VisitCancelled VisitStatus = "CANCELLED"
)

type Visit struct {
	ID                       string      `json:"id" bson:"_id"`
	Reference                string      `json:"reference" bson:"reference"`
	ApplicationID            string      `json:"application_id" bson:"application_id"`
	PrisonerID               string      `json:"prisoner_id" bson:"prisoner_id"`
	PrisonCode               string      `json:"prison_code" bson:"prison_code"`
	SessionSlotID            string      `json:"session_slot_id" bson:"session_slot_id"`
	SessionTemplateReference string      `json:"session_template_reference" bson:"session_template_reference"`
	SessionDate              time.Time   `json:"session_date" bson:"session_date"`
	Restriction              Restriction `json:"restriction" bson:"restriction"`
	Status                   VisitStatus `json:"status" bson:"status"`
	CreatedAt                time.Time   `json:"created_at" bson:"created_at"`
	CancelledAt              *time.Time  `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}
