package web

import (
	"errors"

	"github.com/dukex/stepflow/pkg/builder"
	"github.com/dukex/stepflow/pkg/services"
	"github.com/dukex/stepflow/pkg/steps"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

// serviceProblem maps service, builder and step API errors to problems.
func serviceProblem(c fiber.Ctx, err error) (int, *problems.Problem) {
	var apiErr *steps.APIError

	status, problemType, detail := fiber.StatusInternalServerError, "internal_error", err.Error()

	switch {
	case services.IsValidationError(err):
		status, problemType = fiber.StatusBadRequest, "validation_error"

	case errors.Is(err, services.ErrWorkflowNotFound):
		status, problemType, detail = fiber.StatusNotFound, "workflow_not_found", "workflow not found"

	case errors.Is(err, services.ErrStepNotFound):
		status, problemType, detail = fiber.StatusNotFound, "step_not_found", "step not found"

	case errors.Is(err, builder.ErrSaveInProgress):
		status, problemType = fiber.StatusConflict, "save_in_progress"

	case errors.Is(err, builder.ErrWorkflowRequired):
		status, problemType = fiber.StatusConflict, "workflow_required"

	case errors.As(err, &apiErr):
		status, problemType = apiErr.StatusCode, "step_api_error"
		if status < 400 || status > 599 {
			status = fiber.StatusBadGateway
		}
	}

	return status, problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)
}

func handleServiceError(c fiber.Ctx, err error) error {
	status, p := serviceProblem(c, err)

	return c.Status(status).JSON(p)
}
