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

type TemplateValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTemplateValidator(log *logger.Logger) *TemplateValidator {
	v := validator.New()

	if err := v.RegisterValidation("valid_time_of_day", validateTimeOfDay); err != nil {
		log.Fatal("Failed to register 'valid_time_of_day' validator", "error", err)
	}
	if err := v.RegisterValidation("weekday", validateWeekday); err != nil {
		log.Fatal("Failed to register 'weekday' validator", "error", err)
	}

	log.Info("Session template validator initialized successfully")

	return &TemplateValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := model.ParseTimeOfDay(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, ok := model.DayOfWeek(fl.Field().String()).Weekday()
	return ok
}

func (v *TemplateValidator) Validate(tpl *model.SessionTemplate) error {
	if err := v.validate.Struct(tpl); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors

	start, _ := model.ParseTimeOfDay(tpl.StartTime)
	end, _ := model.ParseTimeOfDay(tpl.EndTime)
	if end <= start {
		errs = append(errs, ValidationError{
			Field:   "EndTime",
			Message: "end_time must be after start_time",
		})
	}

	if tpl.ValidTo != nil && model.DateOf(*tpl.ValidTo).Before(model.DateOf(tpl.ValidFrom)) {
		errs = append(errs, ValidationError{
			Field:   "ValidTo",
			Message: "valid_to cannot be before valid_from",
		})
	}

	for i, g := range tpl.LocationGroups {
		for j, loc := range g.Locations {
			if loc.HasGap() {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("LocationGroups[%d].Locations[%d]", i, j),
					Message: "location levels must be set from level one down without gaps",
				})
			}
		}
	}

	if tpl.OpenCapacity+tpl.ClosedCapacity == 0 {
		errs = append(errs, ValidationError{
			Field:   "OpenCapacity",
			Message: "at least one of open_capacity and closed_capacity must be positive",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *TemplateValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "uuid":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "valid_time_of_day":
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", err.Field())
		case "weekday":
			message = fmt.Sprintf("%s must be a weekday name (MONDAY-SUNDAY)", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in %s format", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.StructNamespace(),
			Message: message,
		})
	}

	return validationErrors
}

func (v *TemplateValidator) ValidateMigrationRequest(req *model.MigrationRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}
