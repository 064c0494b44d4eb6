package file

import (
	"context"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
)

// StepRepository stores steps inside their workflow document.
type StepRepository struct {
	store *store
}

func (sr *StepRepository) ListByWorkflow(_ context.Context, workflowID int) ([]models.Step, error) {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	workflow, err := sr.store.read(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("ListSteps", workflowID, err)
	}

	return workflow.Steps, nil
}

func (sr *StepRepository) GetByID(_ context.Context, stepID int) (*models.Step, error) {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	workflow, index, err := sr.store.findStep(stepID)
	if err != nil {
		return nil, persistence.NewStepError("GetByID", stepID, err)
	}

	step := workflow.Steps[index]

	return &step, nil
}

func (sr *StepRepository) CreateBatch(_ context.Context, workflowID int, steps []models.Step) ([]models.Step, error) {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	workflow, err := sr.store.read(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("CreateSteps", workflowID, err)
	}

	_, firstID, err := sr.store.nextIDs(0, len(steps))
	if err != nil {
		return nil, persistence.NewWorkflowError("CreateSteps", workflowID, err)
	}

	created := make([]models.Step, len(steps))

	for i, step := range steps {
		step.ID = firstID + i
		step.WorkflowID = workflowID
		created[i] = step
	}

	workflow.Steps = append(workflow.Steps, created...)
	workflow.UpdatedAt = time.Now().UTC()

	if err := sr.store.write(workflow); err != nil {
		return nil, persistence.NewWorkflowError("CreateSteps", workflowID, err)
	}

	return created, nil
}

// UpdateBatch validates every target exists before writing anything.
func (sr *StepRepository) UpdateBatch(_ context.Context, updates []models.StepUpdate) ([]models.Step, error) {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	touched := map[int]*models.Workflow{}
	updated := make([]models.Step, 0, len(updates))

	for _, update := range updates {
		workflow, index, err := sr.locate(touched, update.StepID)
		if err != nil {
			return nil, persistence.NewStepError("Update", update.StepID, err)
		}

		update.Apply(&workflow.Steps[index])
		updated = append(updated, workflow.Steps[index])
	}

	now := time.Now().UTC()

	for _, workflow := range touched {
		workflow.UpdatedAt = now

		if err := sr.store.write(workflow); err != nil {
			return nil, persistence.NewWorkflowError("UpdateSteps", workflow.ID, err)
		}
	}

	return updated, nil
}

// locate finds stepID, preferring workflows already loaded in this batch.
func (sr *StepRepository) locate(touched map[int]*models.Workflow, stepID int) (*models.Workflow, int, error) {
	for _, workflow := range touched {
		for i := range workflow.Steps {
			if workflow.Steps[i].ID == stepID {
				return workflow, i, nil
			}
		}
	}

	workflow, index, err := sr.store.findStep(stepID)
	if err != nil {
		return nil, 0, err
	}

	touched[workflow.ID] = workflow

	return workflow, index, nil
}

func (sr *StepRepository) Delete(_ context.Context, stepID int) (*models.Step, error) {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	workflow, index, err := sr.store.findStep(stepID)
	if err != nil {
		return nil, persistence.NewStepError("Delete", stepID, err)
	}

	removed := workflow.Steps[index]
	workflow.Steps = append(workflow.Steps[:index], workflow.Steps[index+1:]...)
	workflow.UpdatedAt = time.Now().UTC()

	if err := sr.store.write(workflow); err != nil {
		return nil, persistence.NewStepError("Delete", stepID, err)
	}

	return &removed, nil
}
