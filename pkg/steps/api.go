// Package steps defines the step persistence API consumed by the workflow
// builder, and an HTTP client for it.
package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/stepflow/pkg/models"
)

var ErrNotFound = errors.New("not found")

// API is the persistence boundary of the builder.
type API interface {
	FetchWorkflow(ctx context.Context, workflowID int) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, workflowID int, req models.UpdateWorkflowRequest) (*models.Workflow, error)
	// BulkCreateSteps returns the created steps in request order.
	BulkCreateSteps(ctx context.Context, req models.BulkCreateStepsRequest) ([]models.Step, error)
	BulkUpdateSteps(ctx context.Context, req models.BulkUpdateStepsRequest) ([]models.Step, error)
	DeleteStep(ctx context.Context, stepID int) error
	Datasources(ctx context.Context, executionPoint string) ([]string, error)
}

// APIError is a non-2xx answer of the step API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("step api: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}

	return fmt.Sprintf("step api: %d %s", e.StatusCode, e.Title)
}

// Is matches ErrNotFound for 404 answers.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
