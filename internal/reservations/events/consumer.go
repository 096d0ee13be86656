package events

import (
	"context"
	"errors"
	"strings"

	apperrors "visitscheduler/pkg/errors"
	"visitscheduler/pkg/kafka"
	"visitscheduler/pkg/logger"
	"visitscheduler/pkg/model"
)

type VisitCanceller interface {
	CancelVisit(ctx context.Context, visitID string) (*model.Visit, error)
}

// NewVisitCancelledHandler turns visit-cancelled messages into CancelVisit
// calls. Malformed messages and unknown visits are permanent failures and go
// to the DLQ; infrastructure failures are retried by the consumer.
func NewVisitCancelledHandler(canceller VisitCanceller, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event VisitCancelled
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("deserialization failed", err).
				WithDetail("event_id", msg.GetEventID())
		}
		event.VisitID = strings.TrimSpace(event.VisitID)
		if event.VisitID == "" {
			return kafka.NewPermanentError("invalid message", kafka.ErrInvalidMessage).
				WithDetail("event_id", msg.GetEventID())
		}

		visit, err := canceller.CancelVisit(ctx, event.VisitID)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode() < 500 {
				return kafka.NewBusinessError("visit cancellation rejected", err).
					WithDetail("visit_id", event.VisitID)
			}
			return kafka.NewTransientError("visit cancellation failed", err).
				WithDetail("visit_id", event.VisitID)
		}

		log.Info("Visit cancelled from event",
			"visit_id", visit.ID,
			"reason", event.Reason,
			"event_id", msg.GetEventID(),
		)
		return nil
	}
}
