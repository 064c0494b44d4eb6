package models

// CreateWorkflowRequest is the body of a workflow creation.
type CreateWorkflowRequest struct {
	Name           string         `json:"name"            validate:"required,min=3"`
	Description    string         `json:"description"`
	ExecutionPoint string         `json:"execution_point" validate:"required,execution_point"`
	Status         WorkflowStatus `json:"status"          validate:"omitempty,oneof=draft active inactive"`
	IsDefault      bool           `json:"is_default"`
}

// UpdateWorkflowRequest is a partial workflow update. Nil fields are kept.
type UpdateWorkflowRequest struct {
	Name           *string         `json:"name,omitempty"            validate:"omitempty,min=3"`
	Description    *string         `json:"description,omitempty"`
	ExecutionPoint *string         `json:"execution_point,omitempty" validate:"omitempty,execution_point"`
	Status         *WorkflowStatus `json:"status,omitempty"          validate:"omitempty,oneof=draft active inactive"`
	IsDefault      *bool           `json:"is_default,omitempty"`
	InitialStep    *int            `json:"initial_step,omitempty"`
}

// Apply writes the fields carried by the request onto workflow.
func (r UpdateWorkflowRequest) Apply(workflow *Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.ExecutionPoint != nil {
		workflow.ExecutionPoint = *r.ExecutionPoint
	}

	if r.Status != nil {
		workflow.Status = *r.Status
	}

	if r.IsDefault != nil {
		workflow.IsDefault = *r.IsDefault
	}

	if r.InitialStep != nil {
		id := *r.InitialStep
		workflow.InitialStep = &id
	}
}

// WorkflowFilter narrows a workflow listing.
type WorkflowFilter struct {
	Status         WorkflowStatus
	ExecutionPoint string
	Limit          int
	Offset         int
}

// Matches reports whether workflow passes the status and execution point filters.
func (f WorkflowFilter) Matches(workflow *Workflow) bool {
	if f.Status != "" && workflow.Status != f.Status {
		return false
	}

	return f.ExecutionPoint == "" || workflow.ExecutionPoint == f.ExecutionPoint
}

// WorkflowList is a page of workflows.
type WorkflowList struct {
	Count   int         `json:"count"`
	Results []*Workflow `json:"results"`
}

// ExecutionPointsResponse lists the execution point catalog.
type ExecutionPointsResponse struct {
	ExecutionPoints []ExecutionPoint `json:"execution_points"`
	TotalCount      int              `json:"total_count"`
}

// DatasourcesResponse lists the fields expressions may reference at an execution point.
type DatasourcesResponse struct {
	ExecutionPoint string   `json:"execution_point"`
	Datasources    []string `json:"datasources"`
}
