package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"visitscheduler/pkg/logger"
	"visitscheduler/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ApplicationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewApplicationValidator(log *logger.Logger) *ApplicationValidator {
	v := validator.New()

	if err := v.RegisterValidation("restriction", validateRestriction); err != nil {
		log.Fatal("Failed to register 'restriction' validator", "error", err)
	}

	log.Info("Application validator initialized successfully")

	return &ApplicationValidator{
		validate: v,
		logger:   log,
	}
}

func validateRestriction(fl validator.FieldLevel) bool {
	return model.Restriction(fl.Field().String()).Valid()
}

func (v *ApplicationValidator) ValidateReservation(req *model.ReservationRequest) error {
	return v.validateStruct(req)
}

func (v *ApplicationValidator) ValidateUpdate(update *model.ApplicationUpdate) error {
	if update.IsEmpty() {
		return ValidationErrors{{
			Field:   "ApplicationUpdate",
			Message: "at least one of restriction, session_template_reference and session_date is required",
		}}
	}
	if (update.SessionTemplateReference == nil) != (update.SessionDate == nil) {
		return ValidationErrors{{
			Field:   "ApplicationUpdate.SessionDate",
			Message: "session_template_reference and session_date must be changed together",
		}}
	}
	return v.validateStruct(update)
}

func (v *ApplicationValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ApplicationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in %s format", err.Field(), err.Param())
		case "restriction":
			message = fmt.Sprintf("%s must be OPEN or CLOSED", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.StructNamespace(),
			Message: message,
		})
	}

	return validationErrors
}
