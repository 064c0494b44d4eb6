package services

import (
	"context"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/steps"
)

// LocalAPI serves steps.API in process, for builder sessions hosted by the
// API server itself.
type LocalAPI struct {
	workflows *Workflow
	steps     *Step
}

var _ steps.API = (*LocalAPI)(nil)

func NewLocalAPI(workflows *Workflow, steps *Step) *LocalAPI {
	return &LocalAPI{workflows: workflows, steps: steps}
}

func (a *LocalAPI) FetchWorkflow(ctx context.Context, workflowID int) (*models.Workflow, error) {
	return a.workflows.FetchByID(ctx, workflowID)
}

func (a *LocalAPI) CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error) {
	return a.workflows.Create(ctx, req)
}

func (a *LocalAPI) UpdateWorkflow(ctx context.Context, workflowID int, req models.UpdateWorkflowRequest) (*models.Workflow, error) {
	return a.workflows.Update(ctx, workflowID, req)
}

func (a *LocalAPI) BulkCreateSteps(ctx context.Context, req models.BulkCreateStepsRequest) ([]models.Step, error) {
	return a.steps.BulkCreate(ctx, req)
}

func (a *LocalAPI) BulkUpdateSteps(ctx context.Context, req models.BulkUpdateStepsRequest) ([]models.Step, error) {
	return a.steps.BulkUpdate(ctx, req)
}

func (a *LocalAPI) DeleteStep(ctx context.Context, stepID int) error {
	return a.steps.Delete(ctx, stepID)
}

func (a *LocalAPI) Datasources(_ context.Context, executionPoint string) ([]string, error) {
	response, err := Datasources(executionPoint)
	if err != nil {
		return nil, err
	}

	return response.Datasources, nil
}
