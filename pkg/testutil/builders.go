// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/stepflow/pkg/models"
)

// CreateTestStep creates a test Step with default values that can be overridden.
// The default step passes straight to complete_success and otherwise fails.
func CreateTestStep(overrides ...func(*models.Step)) models.Step {
	step := models.Step{
		Name:              "Amount check",
		Order:             1,
		LeftExpression:    "transfer.amount",
		Operation:         models.OperatorLessOrEqual,
		RightExpression:   "budget.available",
		IfTrueAction:      models.ActionCompleteSuccess,
		IfTrueActionData:  models.ActionData{Message: "Approved"},
		IfFalseAction:     models.ActionCompleteFailure,
		IfFalseActionData: models.ActionData{Error: "Insufficient budget"},
		IsActive:          true,
	}

	for _, override := range overrides {
		override(&step)
	}

	return step
}

// WithStepID sets the step id.
func WithStepID(id int) func(*models.Step) {
	return func(s *models.Step) {
		s.ID = id
	}
}

// WithName sets the step name.
func WithName(name string) func(*models.Step) {
	return func(s *models.Step) {
		s.Name = name
	}
}

// WithOrder sets the step order.
func WithOrder(order int) func(*models.Step) {
	return func(s *models.Step) {
		s.Order = order
	}
}

// WithProceedTo makes the true branch proceed to stepID.
func WithProceedTo(stepID int) func(*models.Step) {
	return func(s *models.Step) {
		id := stepID
		s.IfTrueAction = models.ActionProceedToStepByID
		s.IfTrueActionData = models.ActionData{NextStepID: &id}
	}
}

// CreateTestWorkflow creates a draft before_create workflow holding steps.
func CreateTestWorkflow(id int, steps ...models.Step) *models.Workflow {
	workflow := &models.Workflow{
		ID:             id,
		Name:           "Transfer checks",
		ExecutionPoint: "before_create",
		Status:         models.WorkflowStatusDraft,
		Steps:          steps,
	}

	for i := range workflow.Steps {
		workflow.Steps[i].WorkflowID = id
	}

	return workflow
}
