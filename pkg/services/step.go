package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/events"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

type Step struct {
	persistence persistence.Persistence
	publisher   eventbus.EventBus
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewStep creates a new step service. bus may be nil.
func NewStep(p persistence.Persistence, bus eventbus.EventBus, logger *slog.Logger) *Step {
	return &Step{
		persistence: p,
		publisher:   bus,
		validate:    models.NewValidator(),
		logger:      logger.With("module", "step_service"),
	}
}

// BulkCreate creates every step of req or none. When the workflow has no
// initial step, the lowest-order step becomes it; failing to record it is
// logged and does not fail the create, since the steps are already stored.
func (s *Step) BulkCreate(ctx context.Context, req models.BulkCreateStepsRequest) ([]models.Step, error) {
	if err := validateStruct(s.validate, "BulkCreateSteps", req); err != nil {
		return nil, err
	}

	for _, step := range req.Steps {
		if err := validateActions("BulkCreateSteps", step); err != nil {
			return nil, err
		}
	}

	created, err := s.persistence.StepRepository().CreateBatch(ctx, req.WorkflowID, req.Steps)
	if err != nil {
		return nil, err
	}

	if err := s.ensureInitialStep(ctx, req.WorkflowID); err != nil {
		s.logger.ErrorContext(ctx, "failed to set initial step", "workflow_id", req.WorkflowID, "error", err)
	}

	s.logger.InfoContext(ctx, "steps created", "workflow_id", req.WorkflowID, "count", len(created))

	publish(ctx, s.publisher, s.logger, req.WorkflowID, events.StepsCreated{
		BaseEvent: newBaseEvent(s.publisher, events.StepsCreatedEvent, req.WorkflowID),
		Steps:     created,
	})

	return created, nil
}

func (s *Step) ensureInitialStep(ctx context.Context, workflowID int) error {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}

	if workflow.InitialStep != nil && workflow.StepByID(*workflow.InitialStep) != nil {
		return nil
	}

	first := lowestOrder(workflow.Steps)
	if first == nil {
		return nil
	}

	workflow.InitialStep = &first.ID

	if err := s.persistence.WorkflowRepository().Update(ctx, workflow); err != nil {
		return fmt.Errorf("failed to set initial step: %w", err)
	}

	return nil
}

// BulkUpdate applies every update of req or none. Action payloads are
// checked against the merged step.
func (s *Step) BulkUpdate(ctx context.Context, req models.BulkUpdateStepsRequest) ([]models.Step, error) {
	if err := validateStruct(s.validate, "BulkUpdateSteps", req); err != nil {
		return nil, err
	}

	for _, update := range req.Updates {
		current, err := s.persistence.StepRepository().GetByID(ctx, update.StepID)
		if err != nil {
			return nil, err
		}

		update.Apply(current)

		if err := validateActions("BulkUpdateSteps", *current); err != nil {
			return nil, err
		}
	}

	updated, err := s.persistence.StepRepository().UpdateBatch(ctx, req.Updates)
	if err != nil {
		return nil, err
	}

	fields := map[int][]string{}
	for _, update := range req.Updates {
		fields[update.StepID] = update.Fields()
	}

	for workflowID, steps := range groupByWorkflow(updated) {
		var changed []string
		for _, step := range steps {
			changed = appendUnique(changed, fields[step.ID]...)
		}

		s.logger.InfoContext(ctx, "steps updated", "workflow_id", workflowID, "count", len(steps), "fields", changed)

		publish(ctx, s.publisher, s.logger, workflowID, events.StepsUpdated{
			BaseEvent: newBaseEvent(s.publisher, events.StepsUpdatedEvent, workflowID),
			Steps:     steps,
			Fields:    changed,
		})
	}

	return updated, nil
}

// Delete removes a step. Deleting the initial step clears it.
func (s *Step) Delete(ctx context.Context, stepID int) error {
	removed, err := s.persistence.StepRepository().Delete(ctx, stepID)
	if err != nil {
		return err
	}

	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, removed.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}

	if workflow.InitialStep != nil && *workflow.InitialStep == stepID {
		workflow.InitialStep = nil

		if err := s.persistence.WorkflowRepository().Update(ctx, workflow); err != nil {
			return fmt.Errorf("failed to clear initial step: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "step deleted", "workflow_id", removed.WorkflowID, "step_id", stepID)

	publish(ctx, s.publisher, s.logger, removed.WorkflowID, events.StepDeleted{
		BaseEvent: newBaseEvent(s.publisher, events.StepDeletedEvent, removed.WorkflowID),
		StepID:    stepID,
	})

	return nil
}

func lowestOrder(steps []models.Step) *models.Step {
	var first *models.Step

	for i := range steps {
		step := &steps[i]
		if first == nil || step.Order < first.Order || (step.Order == first.Order && step.ID < first.ID) {
			first = step
		}
	}

	return first
}

func groupByWorkflow(steps []models.Step) map[int][]models.Step {
	groups := map[int][]models.Step{}
	for _, step := range steps {
		groups[step.WorkflowID] = append(groups[step.WorkflowID], step)
	}

	return groups
}

// appendUnique adds the missing values and keeps the result sorted.
func appendUnique(values []string, more ...string) []string {
	for _, value := range more {
		if !slices.Contains(values, value) {
			values = append(values, value)
		}
	}

	slices.Sort(values)

	return values
}
