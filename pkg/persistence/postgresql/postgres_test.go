package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if err := testcontainers.TerminateContainer(postgresContainer); err != nil {
		slog.Error("failed to terminate postgres container", "error", err)
	}

	os.Exit(code)
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Children first, parents last
	for _, table := range []string{"validation_steps", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("stepflow_test"),
			postgres.WithUsername("stepflow"),
			postgres.WithPassword("stepflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func createWorkflow(ctx context.Context, t *testing.T, p *postgresql.Persistence, name string) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		Name:           name,
		ExecutionPoint: "before_create",
		Status:         models.WorkflowStatusDraft,
	}
	require.NoError(t, p.WorkflowRepository().Create(ctx, workflow))

	return workflow
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"workflows", "validation_steps", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestWorkflowRepository_CRUD(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createWorkflow(ctx, t, p, "Transfer checks")
	assert.NotZero(t, workflow.ID)

	got, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Transfer checks", got.Name)
	assert.Empty(t, got.Steps)
	assert.Nil(t, got.InitialStep)

	workflow.Name = "Renamed"
	workflow.Status = models.WorkflowStatusActive
	require.NoError(t, p.WorkflowRepository().Update(ctx, workflow))

	got, err = p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.WorkflowStatusActive, got.Status)

	require.NoError(t, p.WorkflowRepository().Delete(ctx, workflow.ID))

	_, err = p.WorkflowRepository().GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.WorkflowRepository().Delete(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_ListWorkflows(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	for _, name := range []string{"Charlie", "Alpha", "Bravo"} {
		createWorkflow(ctx, t, p, name)
	}

	result, err := p.WorkflowRepository().ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		SortBy:    "name",
		SortOrder: "asc",
		Limit:     2,
	})
	require.NoError(t, err)

	require.Len(t, result.Workflows, 2)
	assert.Equal(t, "Alpha", result.Workflows[0].Name)
	assert.Equal(t, "Bravo", result.Workflows[1].Name)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.True(t, result.HasNextPage)
}

func TestStepRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createWorkflow(ctx, t, p, "Transfer checks")
	repo := p.StepRepository()

	created, err := repo.CreateBatch(ctx, workflow.ID, []models.Step{
		{
			Name:              "Budget",
			Order:             2,
			LeftExpression:    "budget.available",
			Operation:         models.OperatorGreaterOrEqual,
			RightExpression:   "transfer.amount",
			IfTrueAction:      models.ActionCompleteSuccess,
			IfTrueActionData:  models.ActionData{Message: "ok"},
			IfFalseAction:     models.ActionCompleteFailure,
			IfFalseActionData: models.ActionData{Error: "no budget"},
			IsActive:          true,
		},
		{
			Name:          "Amount",
			Order:         1,
			Operation:     models.OperatorGreater,
			IfTrueAction:  models.ActionProceedToStep,
			IfFalseAction: models.ActionCompleteFailure,
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	steps, err := repo.ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Amount", steps[0].Name)
	assert.Equal(t, "no budget", steps[1].IfFalseActionData.Error)

	next := created[0].ID
	action := models.ActionProceedToStepByID

	updated, err := repo.UpdateBatch(ctx, []models.StepUpdate{{
		StepID:           created[1].ID,
		IfTrueAction:     &action,
		IfTrueActionData: &models.ActionData{NextStepID: &next},
	}})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.NotNil(t, updated[0].IfTrueActionData.NextStepID)
	assert.Equal(t, next, *updated[0].IfTrueActionData.NextStepID)
	assert.Equal(t, "Amount", updated[0].Name)

	workflow.InitialStep = &created[1].ID
	require.NoError(t, p.WorkflowRepository().Update(ctx, workflow))

	removed, err := repo.Delete(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Amount", removed.Name)

	got, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Nil(t, got.InitialStep)
	assert.Len(t, got.Steps, 1)

	_, err = repo.GetByID(ctx, created[1].ID)
	assert.True(t, persistence.IsStepNotFound(err))
}

func TestStepRepository_UpdateBatch_RollsBack(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createWorkflow(ctx, t, p, "Transfer checks")

	created, err := p.StepRepository().CreateBatch(ctx, workflow.ID, []models.Step{{
		Name:          "Amount",
		Operation:     models.OperatorEqual,
		IfTrueAction:  models.ActionCompleteSuccess,
		IfFalseAction: models.ActionCompleteFailure,
	}})
	require.NoError(t, err)

	name := "Changed"

	_, err = p.StepRepository().UpdateBatch(ctx, []models.StepUpdate{
		{StepID: created[0].ID, Name: &name},
		{StepID: created[0].ID + 1000, Name: &name},
	})
	assert.True(t, persistence.IsStepNotFound(err))

	got, err := p.StepRepository().GetByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Amount", got.Name)
}

func TestStepRepository_CreateBatch_UnknownWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.StepRepository().CreateBatch(ctx, 12345, []models.Step{{Name: "Orphan"}})
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
