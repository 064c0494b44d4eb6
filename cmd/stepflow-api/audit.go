package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/events"
)

// AuditLog writes a log line for every workflow and step change seen on the
// event bus.
type AuditLog struct {
	logger *slog.Logger
}

func NewAuditLog(logger *slog.Logger) *AuditLog {
	return &AuditLog{logger: logger.With("module", "audit")}
}

// Register subscribes the audit handlers to bus.
func (a *AuditLog) Register(bus eventbus.EventSubscriber) error {
	handlers := map[events.EventType]eventbus.EventHandler{
		events.WorkflowCreatedEvent: a.handleWorkflowCreated,
		events.WorkflowUpdatedEvent: a.handleWorkflowUpdated,
		events.WorkflowDeletedEvent: a.handleWorkflowDeleted,
		events.StepsCreatedEvent:    a.handleStepsCreated,
		events.StepsUpdatedEvent:    a.handleStepsUpdated,
		events.StepDeletedEvent:     a.handleStepDeleted,
	}

	for eventType, handler := range handlers {
		if err := bus.Handle(eventType, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s events: %w", eventType, err)
		}
	}

	return nil
}

func (a *AuditLog) handleWorkflowCreated(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.WorkflowCreated)
	if !ok {
		return fmt.Errorf("invalid event type for workflow.created: %T", eventData)
	}

	a.logger.InfoContext(ctx, "workflow created",
		"event_id", event.ID,
		"workflow_id", event.WorkflowID,
		"name", event.Workflow.Name,
		"execution_point", event.Workflow.ExecutionPoint)

	return nil
}

func (a *AuditLog) handleWorkflowUpdated(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.WorkflowUpdated)
	if !ok {
		return fmt.Errorf("invalid event type for workflow.updated: %T", eventData)
	}

	a.logger.InfoContext(ctx, "workflow updated",
		"event_id", event.ID,
		"workflow_id", event.WorkflowID,
		"status", event.Workflow.Status)

	return nil
}

func (a *AuditLog) handleWorkflowDeleted(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.WorkflowDeleted)
	if !ok {
		return fmt.Errorf("invalid event type for workflow.deleted: %T", eventData)
	}

	a.logger.InfoContext(ctx, "workflow deleted", "event_id", event.ID, "workflow_id", event.WorkflowID)

	return nil
}

func (a *AuditLog) handleStepsCreated(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.StepsCreated)
	if !ok {
		return fmt.Errorf("invalid event type for steps.created: %T", eventData)
	}

	a.logger.InfoContext(ctx, "steps created",
		"event_id", event.ID,
		"workflow_id", event.WorkflowID,
		"count", len(event.Steps))

	return nil
}

func (a *AuditLog) handleStepsUpdated(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.StepsUpdated)
	if !ok {
		return fmt.Errorf("invalid event type for steps.updated: %T", eventData)
	}

	a.logger.InfoContext(ctx, "steps updated",
		"event_id", event.ID,
		"workflow_id", event.WorkflowID,
		"count", len(event.Steps),
		"fields", event.Fields)

	return nil
}

func (a *AuditLog) handleStepDeleted(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.StepDeleted)
	if !ok {
		return fmt.Errorf("invalid event type for step.deleted: %T", eventData)
	}

	a.logger.InfoContext(ctx, "step deleted",
		"event_id", event.ID,
		"workflow_id", event.WorkflowID,
		"step_id", event.StepID)

	return nil
}
