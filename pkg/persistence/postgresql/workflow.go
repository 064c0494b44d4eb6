package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
)

const workflowColumns = `
			id
		  , name
		  , description
		  , execution_point
		  , status
		  , is_default
		  , initial_step
		  , COALESCE(created_by, '')
		  , created_at
		  , updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
	steps  *StepRepository
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger, steps: NewStepRepository(db, logger)}
}

// ListWorkflows returns one page of workflows without their steps.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	query, countQuery, args, err := r.buildListQuery(opts)
	if err != nil {
		return nil, err
	}

	var total int64

	err = r.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(workflows)) < total,
	}, nil
}

// buildListQuery returns the page query, the count query and their
// arguments. The count query takes every argument but the last two.
func (r *WorkflowRepository) buildListQuery(opts persistence.ListWorkflowsOptions) (string, string, []any, error) {
	if err := opts.Normalize(); err != nil {
		return "", "", nil, err
	}

	where := " WHERE 1=1"
	args := []any{}

	if opts.Status != "" {
		args = append(args, opts.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if opts.ExecutionPoint != "" {
		args = append(args, opts.ExecutionPoint)
		where += fmt.Sprintf(" AND execution_point = $%d", len(args))
	}

	countQuery := "SELECT COUNT(*) FROM workflows" + where

	// SortBy and SortOrder are checked against an allowlist by Normalize.
	query := fmt.Sprintf("SELECT %s FROM workflows%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		workflowColumns, where, opts.SortBy, opts.SortOrder, opts.SortOrder, len(args)+1, len(args)+2)

	args = append(args, opts.Limit, opts.Offset)

	return query, countQuery, args, nil
}

// GetByID returns the workflow with its steps ordered by order, then id.
func (r *WorkflowRepository) GetByID(ctx context.Context, workflowID int) (*models.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE id = $1"

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	steps, err := r.steps.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow steps: %w", err)
	}

	workflow.Steps = steps

	return workflow, nil
}

// Create inserts a workflow and assigns its id and timestamps.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	query := `
		INSERT INTO workflows (name, description, execution_point, status, is_default, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		workflow.Name,
		workflow.Description,
		workflow.ExecutionPoint,
		workflow.Status,
		workflow.IsDefault,
		workflow.CreatedBy,
		now,
	).Scan(&workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to insert workflow: %w", err)
	}

	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.Steps = nil

	return nil
}

// Update saves the workflow record. Steps are stored separately.
func (r *WorkflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	query := `
		UPDATE workflows SET
			name = $2,
			description = $3,
			execution_point = $4,
			status = $5,
			is_default = $6,
			initial_step = $7,
			updated_at = $8
		WHERE id = $1
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.ExecutionPoint,
		workflow.Status,
		workflow.IsDefault,
		workflow.InitialStep,
		now,
	).Scan(&workflow.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewWorkflowError("Update", workflow.ID, persistence.ErrWorkflowNotFound)
		}

		return fmt.Errorf("failed to update workflow: %w", err)
	}

	workflow.UpdatedAt = now

	return nil
}

// Delete removes a workflow; its steps are removed by the foreign key cascade.
func (r *WorkflowRepository) Delete(ctx context.Context, workflowID int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", workflowID, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		initialStep sql.NullInt64
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.ExecutionPoint,
		&workflow.Status,
		&workflow.IsDefault,
		&initialStep,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if initialStep.Valid {
		id := int(initialStep.Int64)
		workflow.InitialStep = &id
	}

	return &workflow, nil
}
