package errors

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "visitscheduler/pkg/errors"
)

var (
	ErrNotFound = errors.New("application not found")

	ErrVisitNotFound = errors.New("visit not found")

	ErrSlotNotFound = errors.New("session slot not found")

	ErrAlreadyCompleted = errors.New("application already completed")

	ErrExpired = errors.New("application validity window has lapsed")

	ErrLockHeld = errors.New("slot lock held by another request")

	ErrLockNotOwned = errors.New("slot lock not owned by caller")
)

const (
	CodeIneligible           = "INELIGIBLE"
	CodeDuplicateReservation = "DUPLICATE_RESERVATION"
	CodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	CodeExpired              = "RESERVATION_EXPIRED"
	CodeAlreadyCompleted     = "ALREADY_COMPLETED"
	CodeInvalidSession       = "INVALID_SESSION"
)

func Ineligible(prisonerID, templateRef, dimension string) *apperrors.AppError {
	return apperrors.New(CodeIneligible,
		fmt.Sprintf("Prisoner %s is not eligible for session template %s", prisonerID, templateRef),
		http.StatusUnprocessableEntity,
	).WithDetail("dimension", dimension)
}

func DuplicateReservation(prisonerID, date, existingReference string) *apperrors.AppError {
	return apperrors.New(CodeDuplicateReservation,
		fmt.Sprintf("Prisoner %s already holds a reservation on %s", prisonerID, date),
		http.StatusConflict,
	).WithDetail("existing_reference", existingReference)
}

func CapacityExceeded(slotID, restriction string, capacity, demand int) *apperrors.AppError {
	return apperrors.New(CodeCapacityExceeded,
		fmt.Sprintf("No %s capacity left in session slot", restriction),
		http.StatusConflict,
	).WithDetails(map[string]any{
		"session_slot_id": slotID,
		"restriction":     restriction,
		"capacity":        capacity,
		"demand":          demand,
	})
}

func Expired(applicationID string) *apperrors.AppError {
	return apperrors.New(CodeExpired,
		fmt.Sprintf("Application %s has expired", applicationID),
		http.StatusGone,
	).WithDetail("application_id", applicationID)
}

func AlreadyCompleted(applicationID, visitID string) *apperrors.AppError {
	e := apperrors.New(CodeAlreadyCompleted,
		fmt.Sprintf("Application %s is already completed", applicationID),
		http.StatusConflict,
	).WithDetail("application_id", applicationID)
	if visitID != "" {
		e = e.WithDetail("visit_id", visitID)
	}
	return e
}

// InvalidSession rejects a date on which the template does not run.
func InvalidSession(templateRef, date string) *apperrors.AppError {
	return apperrors.Validation(
		fmt.Sprintf("Session template %s has no session on %s", templateRef, date),
		map[string]any{"reason": CodeInvalidSession, "session_template_reference": templateRef, "session_date": date},
	)
}
