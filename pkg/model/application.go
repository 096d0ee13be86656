package model

import "time"

type Application struct {
	ID                       string      `json:"id" bson:"_id"`
	Reference                string      `json:"reference" bson:"reference"`
	PrisonerID               string      `json:"prisoner_id" bson:"prisoner_id"`
	PrisonCode               string      `json:"prison_code" bson:"prison_code"`
	SessionSlotID            string      `json:"session_slot_id" bson:"session_slot_id"`
	SessionTemplateReference string      `json:"session_template_reference" bson:"session_template_reference"`
	SessionDate              time.Time   `json:"session_date" bson:"session_date"`
	Restriction              Restriction `json:"restriction" bson:"restriction"`
	ReservedSlot             bool        `json:"reserved_slot" bson:"reserved_slot"`
	Completed                bool        `json:"completed" bson:"completed"`
	VisitID                  string      `json:"visit_id,omitempty" bson:"visit_id,omitempty"`
	CreatedAt                time.Time   `json:"created_at" bson:"created_at"`
	ModifyTimestamp          time.Time   `json:"modify_timestamp" bson:"modify_timestamp"`
}

type ReservationRequest struct {
	PrisonerID               string      `json:"prisoner_id" validate:"required,min=1,max=20"`
	SessionTemplateReference string      `json:"session_template_reference" validate:"required,min=3,max=40"`
	SessionDate              string      `json:"session_date" validate:"required,datetime=2006-01-02"`
	Restriction              Restriction `json:"restriction" validate:"required,restriction"`
}

type ApplicationUpdate struct {
	Restriction              *Restriction `json:"restriction,omitempty" validate:"omitempty,restriction"`
	SessionTemplateReference *string      `json:"session_template_reference,omitempty" validate:"omitempty,min=3,max=40"`
	SessionDate              *string      `json:"session_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (u *ApplicationUpdate) IsEmpty() bool {
	return u.Restriction == nil && u.SessionTemplateReference == nil && u.SessionDate == nil
}
