// Package persistence provides the storage abstraction for validation
// workflows and their steps.
package persistence

import (
	"context"

	"github.com/dukex/stepflow/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	StepRepository() StepRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow records. GetByID returns the workflow
// with its steps ordered by order, then id.
type WorkflowRepository interface {
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	GetByID(ctx context.Context, workflowID int) (*models.Workflow, error)
	// Create assigns the id and timestamps of workflow.
	Create(ctx context.Context, workflow *models.Workflow) error
	Update(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow and its steps.
	Delete(ctx context.Context, workflowID int) error
}

// StepRepository stores steps. Batch operations are all or nothing.
type StepRepository interface {
	ListByWorkflow(ctx context.Context, workflowID int) ([]models.Step, error)
	GetByID(ctx context.Context, stepID int) (*models.Step, error)
	// CreateBatch assigns ids and returns the created steps in input order.
	CreateBatch(ctx context.Context, workflowID int, steps []models.Step) ([]models.Step, error)
	// UpdateBatch applies partial updates and returns the updated steps.
	UpdateBatch(ctx context.Context, updates []models.StepUpdate) ([]models.Step, error)
	// Delete removes a step and returns it as it was.
	Delete(ctx context.Context, stepID int) (*models.Step, error)
}

// ListWorkflowsOptions filters and paginates ListWorkflows.
type ListWorkflowsOptions struct {
	Status         models.WorkflowStatus
	ExecutionPoint string
	Limit          int
	Offset         int
	SortBy         string // created_at, updated_at or name
	SortOrder      string // asc or desc
}

// Normalize applies defaults and validates the sort parameters.
func (o *ListWorkflowsOptions) Normalize() error {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}

	if !allowedSorts[o.SortBy] {
		return ErrInvalidSort
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return ErrInvalidSort
	}

	return nil
}

// WorkflowListResult is one page of workflows, without their steps.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}
