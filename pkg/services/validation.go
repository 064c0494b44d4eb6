package services

import (
	"errors"
	"fmt"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// validateStruct runs the model validator and wraps failures in ErrInvalidRequest.
func validateStruct(validate *validator.Validate, op string, value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]

		return NewValidationError(op, "VALIDATION_FAILED",
			fmt.Sprintf("field '%s' failed on '%s'", first.Namespace(), first.Tag()), ErrInvalidRequest)
	}

	return NewValidationError(op, "VALIDATION_FAILED", err.Error(), ErrInvalidRequest)
}

// validateActions checks the action payloads a struct tag cannot express.
func validateActions(op string, step models.Step) error {
	for _, action := range []models.Action{step.TrueAction(), step.FalseAction()} {
		if action.Kind == models.ActionProceedToStepByID && action.Data.NextStepID == nil {
			return NewValidationError(op, "MISSING_NEXT_STEP",
				fmt.Sprintf("step '%s': proceed_to_step_by_id requires next_step_id", step.Name), ErrMissingNextStep)
		}
	}

	return nil
}
