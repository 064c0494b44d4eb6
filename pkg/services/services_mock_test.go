package services_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/stepflow/pkg/events"
	"github.com/dukex/stepflow/pkg/mocks"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/services"
	"github.com/dukex/stepflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Create_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()
	bus := &mocks.MockEventBus{}

	p.GetMockWorkflowRepository().
		On("Create", mock.Anything, mock.AnythingOfType("*models.Workflow")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Workflow).ID = 12
		}).
		Return(nil)

	bus.On("GenerateID").Return("evt-1")
	bus.On("Publish", mock.Anything, "workflow-12", mock.MatchedBy(func(event events.WorkflowCreated) bool {
		return event.ID == "evt-1" && event.WorkflowID == 12 && event.Workflow.Status == models.WorkflowStatusDraft
	})).Return(errors.New("broker down"))

	service := services.NewWorkflow(p, bus, slog.Default())

	workflow, err := service.Create(t.Context(), models.CreateWorkflowRequest{
		Name:           "Transfer checks",
		ExecutionPoint: "before_create",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, workflow.ID)

	p.GetMockWorkflowRepository().AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestWorkflow_ListWorkflows_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		repoErr error
		check   func(t *testing.T, err error)
	}{
		{
			name:    "invalid sort",
			repoErr: persistence.ErrInvalidSort,
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorIs(t, err, services.ErrInvalidSortField)
				assert.True(t, services.IsValidationError(err))
			},
		},
		{
			name:    "storage failure",
			repoErr: errors.New("disk full"),
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorContains(t, err, "disk full")
				assert.False(t, services.IsValidationError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := mocks.NewMockPersistence()
			p.GetMockWorkflowRepository().On("ListWorkflows", mock.Anything, mock.Anything).Return(nil, tt.repoErr)

			_, err := services.NewWorkflow(p, nil, slog.Default()).ListWorkflows(t.Context(), models.WorkflowFilter{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestStep_BulkCreate_KeepsExistingInitialStep(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()

	initial := 1
	existing := testutil.CreateTestWorkflow(3,
		testutil.CreateTestStep(testutil.WithStepID(1), testutil.WithOrder(5)),
		testutil.CreateTestStep(testutil.WithStepID(2), testutil.WithOrder(1)),
	)
	existing.InitialStep = &initial

	created := []models.Step{existing.Steps[1]}

	p.GetMockStepRepository().On("CreateBatch", mock.Anything, 3, mock.Anything).Return(created, nil)
	p.GetMockWorkflowRepository().On("GetByID", mock.Anything, 3).Return(existing, nil)

	result, err := services.NewStep(p, nil, slog.Default()).BulkCreate(t.Context(), models.BulkCreateStepsRequest{
		WorkflowID: 3,
		Steps:      []models.Step{testutil.CreateTestStep(testutil.WithOrder(1))},
	})
	require.NoError(t, err)
	assert.Equal(t, created, result)

	p.GetMockWorkflowRepository().AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestStep_BulkCreate_InitialStepFailureKeepsCreatedSteps(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()

	stored := testutil.CreateTestWorkflow(4, testutil.CreateTestStep(testutil.WithStepID(31), testutil.WithOrder(1)))
	created := []models.Step{stored.Steps[0]}

	p.GetMockStepRepository().On("CreateBatch", mock.Anything, 4, mock.Anything).Return(created, nil)
	p.GetMockWorkflowRepository().On("GetByID", mock.Anything, 4).Return(stored, nil)
	p.GetMockWorkflowRepository().On("Update", mock.Anything, mock.AnythingOfType("*models.Workflow")).
		Return(errors.New("write conflict"))

	result, err := services.NewStep(p, nil, slog.Default()).BulkCreate(t.Context(), models.BulkCreateStepsRequest{
		WorkflowID: 4,
		Steps:      []models.Step{testutil.CreateTestStep(testutil.WithOrder(1))},
	})
	require.NoError(t, err)
	assert.Equal(t, created, result)

	p.GetMockWorkflowRepository().AssertExpectations(t)
}

func TestStep_BulkUpdate_StorageErrorIsReturned(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()

	current := testutil.CreateTestStep(testutil.WithStepID(8))
	p.GetMockStepRepository().On("GetByID", mock.Anything, 8).Return(&current, nil).Maybe()
	p.GetMockStepRepository().On("UpdateBatch", mock.Anything, mock.Anything).Return(nil, persistence.ErrStepNotFound)

	name := "Renamed"
	_, err := services.NewStep(p, nil, slog.Default()).BulkUpdate(t.Context(), models.BulkUpdateStepsRequest{
		Updates: []models.StepUpdate{{StepID: 8, Name: &name}},
	})
	require.Error(t, err)
	assert.True(t, services.IsNotFoundError(err))
}

func TestWorkflow_HealthCheck_Unhealthy(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()
	p.On("HealthCheck", mock.Anything).Return(errors.New("connection refused"))

	message, ok := services.NewWorkflow(p, nil, slog.Default()).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "connection refused")
}
