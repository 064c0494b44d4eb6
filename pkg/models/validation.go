package models

import "github.com/go-playground/validator/v10"

// NewValidator returns a validator with the custom tags used by the models
// (operator, action_kind and execution_point) registered.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("operator", func(fl validator.FieldLevel) bool {
		return Operator(fl.Field().String()).Valid()
	})

	_ = validate.RegisterValidation("action_kind", func(fl validator.FieldLevel) bool {
		return ActionKind(fl.Field().String()).Valid()
	})

	_ = validate.RegisterValidation("execution_point", func(fl validator.FieldLevel) bool {
		_, ok := ExecutionPointByCode(fl.Field().String())

		return ok
	})

	return validate
}
