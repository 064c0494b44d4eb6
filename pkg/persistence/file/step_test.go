package file

import (
	"context"
	"testing"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkflow(t *testing.T) (*Persistence, *models.Workflow) {
	t.Helper()

	p := NewPersistence(t.TempDir())
	workflow := newWorkflow("Transfer checks", models.WorkflowStatusDraft)
	require.NoError(t, p.WorkflowRepository().Create(context.Background(), workflow))

	return p, workflow
}

func TestStepRepository_CreateBatch(t *testing.T) {
	ctx := context.Background()
	p, workflow := setupWorkflow(t)

	created, err := p.StepRepository().CreateBatch(ctx, workflow.ID, []models.Step{
		{Name: "Second", Order: 2},
		{Name: "First", Order: 1},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "Second", created[0].Name)
	assert.Equal(t, 1, created[0].ID)
	assert.Equal(t, 2, created[1].ID)
	assert.Equal(t, workflow.ID, created[1].WorkflowID)

	steps, err := p.StepRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "First", steps[0].Name)
	assert.Equal(t, "Second", steps[1].Name)

	more, err := p.StepRepository().CreateBatch(ctx, workflow.ID, []models.Step{{Name: "Third", Order: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, more[0].ID)
}

func TestStepRepository_CreateBatch_UnknownWorkflow(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.StepRepository().CreateBatch(context.Background(), 5, []models.Step{{Name: "Orphan"}})
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestStepRepository_UpdateBatch(t *testing.T) {
	ctx := context.Background()
	p, workflow := setupWorkflow(t)

	created, err := p.StepRepository().CreateBatch(ctx, workflow.ID, []models.Step{
		{Name: "Amount", Order: 1, IfTrueAction: models.ActionCompleteSuccess},
		{Name: "Budget", Order: 2},
	})
	require.NoError(t, err)

	name := "Amount limit"
	action := models.ActionProceedToStepByID
	next := created[1].ID

	updated, err := p.StepRepository().UpdateBatch(ctx, []models.StepUpdate{{
		StepID:           created[0].ID,
		Name:             &name,
		IfTrueAction:     &action,
		IfTrueActionData: &models.ActionData{NextStepID: &next},
	}})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "Amount limit", updated[0].Name)

	got, err := p.StepRepository().GetByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionProceedToStepByID, got.IfTrueAction)
	require.NotNil(t, got.IfTrueActionData.NextStepID)
	assert.Equal(t, next, *got.IfTrueActionData.NextStepID)
	assert.Equal(t, 1, got.Order)
}

func TestStepRepository_UpdateBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	p, workflow := setupWorkflow(t)

	created, err := p.StepRepository().CreateBatch(ctx, workflow.ID, []models.Step{{Name: "Amount", Order: 1}})
	require.NoError(t, err)

	name := "Changed"

	_, err = p.StepRepository().UpdateBatch(ctx, []models.StepUpdate{
		{StepID: created[0].ID, Name: &name},
		{StepID: 999, Name: &name},
	})
	require.Error(t, err)
	assert.True(t, persistence.IsStepNotFound(err))

	got, err := p.StepRepository().GetByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Amount", got.Name)
}

func TestStepRepository_Delete(t *testing.T) {
	ctx := context.Background()
	p, workflow := setupWorkflow(t)

	created, err := p.StepRepository().CreateBatch(ctx, workflow.ID, []models.Step{
		{Name: "Amount", Order: 1},
		{Name: "Budget", Order: 2},
	})
	require.NoError(t, err)

	removed, err := p.StepRepository().Delete(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Amount", removed.Name)

	steps, err := p.StepRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "Budget", steps[0].Name)

	_, err = p.StepRepository().Delete(ctx, created[0].ID)
	assert.True(t, persistence.IsStepNotFound(err))
}
