package events

import (
	"context"
	"time"

	"visitscheduler/pkg/kafka"
	"visitscheduler/pkg/middleware"
	"visitscheduler/pkg/model"
)

const (
	TypeApplicationReserved  = "application.reserved"
	TypeApplicationAmended   = "application.amended"
	TypeApplicationBooked    = "application.booked"
	TypeApplicationAbandoned = "application.abandoned"
	TypeApplicationsExpired  = "applications.expired"
	TypeVisitCancelled       = "visit.cancelled"

	SchemaVersion = "1"
	Source        = "visitscheduler-reservations"
)

type ApplicationEvent struct {
	ApplicationID            string            `json:"application_id"`
	Reference                string            `json:"reference"`
	PrisonerID               string            `json:"prisoner_id"`
	PrisonCode               string            `json:"prison_code"`
	SessionSlotID            string            `json:"session_slot_id"`
	SessionTemplateReference string            `json:"session_template_reference"`
	SessionDate              string            `json:"session_date"`
	Restriction              model.Restriction `json:"restriction"`
	VisitID                  string            `json:"visit_id,omitempty"`
	OccurredAt               time.Time         `json:"occurred_at"`
}

func FromApplication(app *model.Application, at time.Time) ApplicationEvent {
	return ApplicationEvent{
		ApplicationID:            app.ID,
		Reference:                app.Reference,
		PrisonerID:               app.PrisonerID,
		PrisonCode:               app.PrisonCode,
		SessionSlotID:            app.SessionSlotID,
		SessionTemplateReference: app.SessionTemplateReference,
		SessionDate:              model.FormatDate(app.SessionDate),
		Restriction:              app.Restriction,
		VisitID:                  app.VisitID,
		OccurredAt:               at,
	}
}

type SweepEvent struct {
	Deleted    int64     `json:"deleted"`
	Cutoff     time.Time `json:"cutoff"`
	OccurredAt time.Time `json:"occurred_at"`
}

// VisitCancelled is consumed from the visit-cancelled topic.
type VisitCancelled struct {
	VisitID string `json:"visit_id"`
	Reason  string `json:"reason,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	builder := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source)
	if requestID := middleware.RequestIDFrom(ctx); requestID != "" {
		builder = builder.WithCorrelationID(requestID)
	}
	msg, err := builder.Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error {
	return nil
}
