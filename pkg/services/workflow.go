package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/events"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventBus
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. bus may be nil.
func NewWorkflow(p persistence.Persistence, bus eventbus.EventBus, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		publisher:   bus,
		validate:    models.NewValidator(),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflows returns one page of workflows, newest first.
func (w *Workflow) ListWorkflows(ctx context.Context, filter models.WorkflowFilter) (*models.WorkflowList, error) {
	result, err := w.persistence.WorkflowRepository().ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		Status:         filter.Status,
		ExecutionPoint: filter.ExecutionPoint,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSort) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &models.WorkflowList{
		Count:   int(result.TotalCount),
		Results: result.Workflows,
	}, nil
}

// FetchByID retrieves a workflow with its ordered steps.
func (w *Workflow) FetchByID(ctx context.Context, id int) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create adds a new workflow. Status defaults to draft.
func (w *Workflow) Create(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error) {
	if err := validateStruct(w.validate, "CreateWorkflow", req); err != nil {
		return nil, err
	}

	workflow := &models.Workflow{
		Name:           req.Name,
		Description:    req.Description,
		ExecutionPoint: req.ExecutionPoint,
		Status:         req.Status,
		IsDefault:      req.IsDefault,
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	err := w.persistence.WorkflowRepository().Create(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", workflow.ID, "name", workflow.Name)

	w.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent: w.baseEvent(events.WorkflowCreatedEvent, workflow.ID),
		Workflow:  *workflow,
	})

	return workflow, nil
}

// Update applies a partial update. An initial step must belong to the workflow.
func (w *Workflow) Update(ctx context.Context, workflowID int, req models.UpdateWorkflowRequest) (*models.Workflow, error) {
	if err := validateStruct(w.validate, "UpdateWorkflow", req); err != nil {
		return nil, err
	}

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if req.InitialStep != nil && workflow.StepByID(*req.InitialStep) == nil {
		return nil, NewValidationError("UpdateWorkflow", "FOREIGN_INITIAL_STEP",
			fmt.Sprintf("step %d is not part of workflow %d", *req.InitialStep, workflowID), ErrForeignInitialStep)
	}

	req.Apply(workflow)

	err = w.persistence.WorkflowRepository().Update(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.publish(ctx, workflow.ID, events.WorkflowUpdated{
		BaseEvent: w.baseEvent(events.WorkflowUpdatedEvent, workflow.ID),
		Workflow:  *workflow,
	})

	return workflow, nil
}

// Delete removes a workflow and its steps.
func (w *Workflow) Delete(ctx context.Context, workflowID int) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "workflow deleted", "workflow_id", workflowID)

	w.publish(ctx, workflowID, events.WorkflowDeleted{
		BaseEvent: w.baseEvent(events.WorkflowDeletedEvent, workflowID),
	})

	return nil
}

func (w *Workflow) baseEvent(eventType events.EventType, workflowID int) events.BaseEvent {
	return newBaseEvent(w.publisher, eventType, workflowID)
}

func (w *Workflow) publish(ctx context.Context, workflowID int, event eventbus.Event) {
	publish(ctx, w.publisher, w.logger, workflowID, event)
}

func newBaseEvent(bus eventbus.EventBus, eventType events.EventType, workflowID int) events.BaseEvent {
	id := ""
	if bus != nil {
		id = bus.GenerateID()
	}

	return events.NewBaseEvent(id, eventType, workflowID)
}

// publish sends event keyed by workflow. A failed publish is logged; the
// change is already stored.
func publish(ctx context.Context, bus eventbus.EventPublisher, logger *slog.Logger, workflowID int, event eventbus.Event) {
	if bus == nil {
		return
	}

	err := bus.Publish(ctx, "workflow-"+strconv.Itoa(workflowID), event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "workflow_id", workflowID, "error", err)
	}
}
