package testutil_test

import (
	"testing"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestStep(t *testing.T) {
	t.Parallel()

	step := testutil.CreateTestStep(testutil.WithStepID(4), testutil.WithName("Budget"), testutil.WithProceedTo(5))

	assert.Equal(t, 4, step.ID)
	assert.Equal(t, "Budget", step.Name)
	assert.Equal(t, models.ActionProceedToStepByID, step.IfTrueAction)
	require.NotNil(t, step.IfTrueActionData.NextStepID)
	assert.Equal(t, 5, *step.IfTrueActionData.NextStepID)
	assert.NoError(t, models.NewValidator().Struct(step))
}

func TestCreateTestWorkflow(t *testing.T) {
	t.Parallel()

	workflow := testutil.CreateTestWorkflow(3, testutil.CreateTestStep(testutil.WithStepID(1)))

	assert.Equal(t, 3, workflow.Steps[0].WorkflowID)
	assert.NoError(t, models.NewValidator().Struct(workflow))
}
