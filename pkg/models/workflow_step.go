package models

// Step is the persisted, flat representation of one validation check and
// the actions taken on each of its outcomes.
type Step struct {
	ID                int        `json:"id,omitempty"`
	WorkflowID        int        `json:"workflow_id,omitempty"`
	Name              string     `json:"name"                validate:"required"`
	Description       string     `json:"description"`
	Order             int        `json:"order"               validate:"min=0"`
	LeftExpression    string     `json:"left_expression"`
	Operation         Operator   `json:"operation"           validate:"required,operator"`
	RightExpression   string     `json:"right_expression"`
	IfTrueAction      ActionKind `json:"if_true_action"      validate:"required,action_kind"`
	IfTrueActionData  ActionData `json:"if_true_action_data"`
	IfFalseAction     ActionKind `json:"if_false_action"     validate:"required,action_kind"`
	IfFalseActionData ActionData `json:"if_false_action_data"`
	FailureMessage    string     `json:"failure_message,omitempty"`
	IsActive          bool       `json:"is_active"`
}

// TrueAction returns the action taken when the check passes.
func (s Step) TrueAction() Action {
	return Action{Kind: s.IfTrueAction, Data: s.IfTrueActionData}
}

// FalseAction returns the action taken when the check fails.
func (s Step) FalseAction() Action {
	return Action{Kind: s.IfFalseAction, Data: s.IfFalseActionData}
}

// StepUpdate is a partial update of an existing step. Nil fields are left
// untouched by the server.
type StepUpdate struct {
	StepID            int         `json:"step_id"                        validate:"required,min=1"`
	Name              *string     `json:"name,omitempty"`
	Description       *string     `json:"description,omitempty"`
	Order             *int        `json:"order,omitempty"`
	LeftExpression    *string     `json:"left_expression,omitempty"`
	Operation         *Operator   `json:"operation,omitempty"            validate:"omitempty,operator"`
	RightExpression   *string     `json:"right_expression,omitempty"`
	IfTrueAction      *ActionKind `json:"if_true_action,omitempty"       validate:"omitempty,action_kind"`
	IfTrueActionData  *ActionData `json:"if_true_action_data,omitempty"`
	IfFalseAction     *ActionKind `json:"if_false_action,omitempty"      validate:"omitempty,action_kind"`
	IfFalseActionData *ActionData `json:"if_false_action_data,omitempty"`
	FailureMessage    *string     `json:"failure_message,omitempty"`
	IsActive          *bool       `json:"is_active,omitempty"`
}

// Fields returns the wire names of the fields carried by the update, in
// declaration order.
func (u StepUpdate) Fields() []string {
	var fields []string

	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}

	add(u.Name != nil, "name")
	add(u.Description != nil, "description")
	add(u.Order != nil, "order")
	add(u.LeftExpression != nil, "left_expression")
	add(u.Operation != nil, "operation")
	add(u.RightExpression != nil, "right_expression")
	add(u.IfTrueAction != nil, "if_true_action")
	add(u.IfTrueActionData != nil, "if_true_action_data")
	add(u.IfFalseAction != nil, "if_false_action")
	add(u.IfFalseActionData != nil, "if_false_action_data")
	add(u.FailureMessage != nil, "failure_message")
	add(u.IsActive != nil, "is_active")

	return fields
}

// Empty reports whether the update carries no field.
func (u StepUpdate) Empty() bool {
	return len(u.Fields()) == 0
}

// Apply writes the fields carried by the update onto step.
func (u StepUpdate) Apply(step *Step) {
	if u.Name != nil {
		step.Name = *u.Name
	}

	if u.Description != nil {
		step.Description = *u.Description
	}

	if u.Order != nil {
		step.Order = *u.Order
	}

	if u.LeftExpression != nil {
		step.LeftExpression = *u.LeftExpression
	}

	if u.Operation != nil {
		step.Operation = *u.Operation
	}

	if u.RightExpression != nil {
		step.RightExpression = *u.RightExpression
	}

	if u.IfTrueAction != nil {
		step.IfTrueAction = *u.IfTrueAction
	}

	if u.IfTrueActionData != nil {
		step.IfTrueActionData = *u.IfTrueActionData
	}

	if u.IfFalseAction != nil {
		step.IfFalseAction = *u.IfFalseAction
	}

	if u.IfFalseActionData != nil {
		step.IfFalseActionData = *u.IfFalseActionData
	}

	if u.FailureMessage != nil {
		step.FailureMessage = *u.FailureMessage
	}

	if u.IsActive != nil {
		step.IsActive = *u.IsActive
	}
}

// BulkCreateStepsRequest creates several steps in one workflow.
type BulkCreateStepsRequest struct {
	WorkflowID int    `json:"workflow_id" validate:"required,min=1"`
	Steps      []Step `json:"steps"       validate:"required,min=1,dive"`
}

// BulkCreateStepsResponse lists the created steps in request order. Older
// servers answer with "steps" instead of "created_steps".
type BulkCreateStepsResponse struct {
	CreatedSteps []Step `json:"created_steps,omitempty"`
	Steps        []Step `json:"steps,omitempty"`
	CreatedCount int    `json:"created_count,omitempty"`
}

// Created returns the created steps whichever field carried them.
func (r BulkCreateStepsResponse) Created() []Step {
	if len(r.CreatedSteps) > 0 {
		return r.CreatedSteps
	}

	return r.Steps
}

// BulkUpdateStepsRequest updates several steps in one call.
type BulkUpdateStepsRequest struct {
	Updates []StepUpdate `json:"updates" validate:"required,min=1,dive"`
}

// BulkUpdateStepsResponse lists the updated steps. Older servers answer with
// "steps" instead of "updated_steps".
type BulkUpdateStepsResponse struct {
	UpdatedSteps []Step `json:"updated_steps,omitempty"`
	Steps        []Step `json:"steps,omitempty"`
	UpdatedCount int    `json:"updated_count,omitempty"`
}

// Updated returns the updated steps whichever field carried them.
func (r BulkUpdateStepsResponse) Updated() []Step {
	if len(r.UpdatedSteps) > 0 {
		return r.UpdatedSteps
	}

	return r.Steps
}
