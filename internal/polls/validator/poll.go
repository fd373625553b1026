package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"convene/pkg/logger"
	"convene/pkg/model"

	"github.com/go-playground/validator/v10"
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

type PollValidator struct {
	validate   *validator.Validate
	maxOptions int
	logger     *logger.Logger
}

func NewPollValidator(maxOptions int, log *logger.Logger) *PollValidator {
	return &PollValidator{
		validate:   validator.New(),
		maxOptions: maxOptions,
		logger:     log,
	}
}

func (v *PollValidator) ValidateCreate(req *model.PollCreateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if len(req.Options) > v.maxOptions {
		return ValidationErrors{
			ValidationError{
				Field:   "Options",
				Message: fmt.Sprintf("at most %d options allowed, got %d", v.maxOptions, len(req.Options)),
			},
		}
	}

	if req.Deadline != nil && !req.Deadline.After(time.Now()) {
		return ValidationErrors{
			ValidationError{
				Field:   "Deadline",
				Message: "deadline must be in the future",
			},
		}
	}

	return nil
}

func (v *PollValidator) ValidateVote(req *model.VoteRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *PollValidator) ValidateFinalize(req *model.FinalizeRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *PollValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must have at least %s entries", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "uuid4":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
