// Package web provides the HTTP handlers of the step API and of the
// workflow builder sessions.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	stepService     *services.Step
	validator       *validator.Validate
	logger          *slog.Logger
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	stepService *services.Step,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		stepService:     stepService,
		validator:       validator,
		logger:          logger,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "stepflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "stepflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetExecutionPoints(c fiber.Ctx) error {
	return c.JSON(services.ExecutionPoints())
}

func (h *APIHandlers) GetDatasources(c fiber.Ctx) error {
	point := c.Query("execution_point")
	if point == "" {
		return badRequest(c, "execution_point is required")
	}

	response, err := services.Datasources(point)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	filter, err := parseWorkflowFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.ListWorkflows(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func parseWorkflowFilter(c fiber.Ctx) (models.WorkflowFilter, error) {
	filter := models.WorkflowFilter{
		Status:         models.WorkflowStatus(c.Query("status")),
		ExecutionPoint: c.Query("execution_point"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return filter, err
		}

		filter.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return filter, err
		}

		filter.Offset = offset
	}

	return filter, nil
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid workflow ID")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req models.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid workflow ID")
	}

	var req models.UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Update(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid workflow ID")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) BulkCreateSteps(c fiber.Ctx) error {
	var req models.BulkCreateStepsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.stepService.BulkCreate(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(BulkCreateStepsResponse{
		CreatedSteps: created,
		CreatedCount: len(created),
	})
}

func (h *APIHandlers) BulkUpdateSteps(c fiber.Ctx) error {
	var req models.BulkUpdateStepsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.stepService.BulkUpdate(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(BulkUpdateStepsResponse{
		UpdatedSteps: updated,
		UpdatedCount: len(updated),
	})
}

func (h *APIHandlers) DeleteStep(c fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid step ID")
	}

	if err := h.stepService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func intParam(c fiber.Ctx, name string) (int, error) {
	return strconv.Atoi(c.Params(name))
}
