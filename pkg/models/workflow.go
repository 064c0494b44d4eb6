// Package models defines the wire models shared by the step API and the workflow builder.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a validation workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not evaluated
	WorkflowStatusActive   WorkflowStatus = "active"   // Evaluated at its execution point
	WorkflowStatusInactive WorkflowStatus = "inactive" // Kept for reference, not evaluated
)

// Workflow represents a validation workflow and, when fetched by id, its ordered steps.
type Workflow struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"                   validate:"required,min=3"`
	Description    string         `json:"description"`
	ExecutionPoint string         `json:"execution_point"        validate:"required,execution_point"`
	Status         WorkflowStatus `json:"status"                 validate:"omitempty,oneof=draft active inactive"`
	IsDefault      bool           `json:"is_default"`
	InitialStep    *int           `json:"initial_step,omitempty"`
	Steps          []Step         `json:"steps,omitempty"        validate:"dive"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// StepByID returns the step with the given id, or nil.
func (w *Workflow) StepByID(id int) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}

	return nil
}

// DanglingReferences returns the ids of steps whose actions point to a
// next_step_id that is not part of the workflow.
func (w *Workflow) DanglingReferences() []int {
	var dangling []int

	for _, step := range w.Steps {
		for _, action := range []Action{step.TrueAction(), step.FalseAction()} {
			if action.Data.NextStepID == nil {
				continue
			}

			if w.StepByID(*action.Data.NextStepID) == nil {
				dangling = append(dangling, step.ID)

				break
			}
		}
	}

	return dangling
}
