// Package events defines the notifications published when validation
// workflows and their steps change.
package events

import (
	"time"

	"github.com/dukex/stepflow/pkg/models"
)

type EventType string

// Topic is the Kafka topic carrying every stepflow event.
const Topic = "stepflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent EventType = "workflow.created"
	WorkflowUpdatedEvent EventType = "workflow.updated"
	WorkflowDeletedEvent EventType = "workflow.deleted"

	StepsCreatedEvent EventType = "steps.created"
	StepsUpdatedEvent EventType = "steps.updated"
	StepDeletedEvent  EventType = "step.deleted"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID int            `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps an event of the given type.
func NewBaseEvent(id string, eventType EventType, workflowID int) BaseEvent {
	return BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowCreated struct {
	BaseEvent

	Workflow models.Workflow `json:"workflow"`
}

func (e WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowUpdated struct {
	BaseEvent

	Workflow models.Workflow `json:"workflow"`
}

func (e WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

// StepsCreated is published once per bulk create.
type StepsCreated struct {
	BaseEvent

	Steps []models.Step `json:"steps"`
}

func (e StepsCreated) GetType() EventType {
	return StepsCreatedEvent
}

// StepsUpdated is published once per workflow touched by a bulk update.
type StepsUpdated struct {
	BaseEvent

	Steps  []models.Step `json:"steps"`
	Fields []string      `json:"fields"`
}

func (e StepsUpdated) GetType() EventType {
	return StepsUpdatedEvent
}

type StepDeleted struct {
	BaseEvent

	StepID int `json:"step_id"`
}

func (e StepDeleted) GetType() EventType {
	return StepDeletedEvent
}

// New returns an empty event value for eventType, or nil when the type is unknown.
func New(eventType EventType) any {
	switch eventType {
	case WorkflowCreatedEvent:
		return &WorkflowCreated{}
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}
	case WorkflowDeletedEvent:
		return &WorkflowDeleted{}
	case StepsCreatedEvent:
		return &StepsCreated{}
	case StepsUpdatedEvent:
		return &StepsUpdated{}
	case StepDeletedEvent:
		return &StepDeleted{}
	default:
		return nil
	}
}
