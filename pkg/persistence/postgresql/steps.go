package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
)

const stepColumns = `
			id
		  , workflow_id
		  , name
		  , description
		  , step_order
		  , left_expression
		  , operation
		  , right_expression
		  , if_true_action
		  , if_true_action_data
		  , if_false_action
		  , if_false_action_data
		  , failure_message
		  , is_active`

// StepRepository handles validation step database operations.
type StepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStepRepository creates a new step repository.
func NewStepRepository(db *sql.DB, logger *slog.Logger) *StepRepository {
	return &StepRepository{db: db, logger: logger}
}

func (r *StepRepository) ListByWorkflow(ctx context.Context, workflowID int) ([]models.Step, error) {
	query := "SELECT " + stepColumns + " FROM validation_steps WHERE workflow_id = $1 ORDER BY step_order, id"

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]models.Step, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, *step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

func (r *StepRepository) GetByID(ctx context.Context, stepID int) (*models.Step, error) {
	return r.get(ctx, r.db, "GetByID", stepID)
}

// CreateBatch inserts every step in one transaction.
func (r *StepRepository) CreateBatch(ctx context.Context, workflowID int, steps []models.Step) ([]models.Step, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	var exists bool

	err = tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM workflows WHERE id = $1)", workflowID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check workflow: %w", err)
	}

	if !exists {
		return nil, persistence.NewWorkflowError("CreateSteps", workflowID, persistence.ErrWorkflowNotFound)
	}

	query := `
		INSERT INTO validation_steps (workflow_id, name, description, step_order, left_expression, operation,
			right_expression, if_true_action, if_true_action_data, if_false_action, if_false_action_data,
			failure_message, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	created := make([]models.Step, len(steps))

	for i, step := range steps {
		trueData, falseData, err := marshalActionData(step)
		if err != nil {
			return nil, err
		}

		step.WorkflowID = workflowID

		err = tx.QueryRowContext(ctx, query,
			workflowID,
			step.Name,
			step.Description,
			step.Order,
			step.LeftExpression,
			step.Operation,
			step.RightExpression,
			step.IfTrueAction,
			trueData,
			step.IfFalseAction,
			falseData,
			step.FailureMessage,
			step.IsActive,
		).Scan(&step.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert step %d: %w", i, err)
		}

		created[i] = step
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// UpdateBatch applies every update in one transaction.
func (r *StepRepository) UpdateBatch(ctx context.Context, updates []models.StepUpdate) ([]models.Step, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE validation_steps SET
			name = $2,
			description = $3,
			step_order = $4,
			left_expression = $5,
			operation = $6,
			right_expression = $7,
			if_true_action = $8,
			if_true_action_data = $9,
			if_false_action = $10,
			if_false_action_data = $11,
			failure_message = $12,
			is_active = $13
		WHERE id = $1
	`

	updated := make([]models.Step, 0, len(updates))

	for _, update := range updates {
		step, err := r.get(ctx, tx, "Update", update.StepID)
		if err != nil {
			return nil, err
		}

		update.Apply(step)

		trueData, falseData, err := marshalActionData(*step)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, query,
			step.ID,
			step.Name,
			step.Description,
			step.Order,
			step.LeftExpression,
			step.Operation,
			step.RightExpression,
			step.IfTrueAction,
			trueData,
			step.IfFalseAction,
			falseData,
			step.FailureMessage,
			step.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update step %d: %w", step.ID, err)
		}

		updated = append(updated, *step)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

func (r *StepRepository) Delete(ctx context.Context, stepID int) (*models.Step, error) {
	query := "DELETE FROM validation_steps WHERE id = $1 RETURNING " + stepColumns

	step, err := scanStep(r.db.QueryRowContext(ctx, query, stepID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStepError("Delete", stepID, persistence.ErrStepNotFound)
		}

		return nil, fmt.Errorf("failed to delete step: %w", err)
	}

	return step, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *StepRepository) get(ctx context.Context, q queryer, op string, stepID int) (*models.Step, error) {
	query := "SELECT " + stepColumns + " FROM validation_steps WHERE id = $1"

	step, err := scanStep(q.QueryRowContext(ctx, query, stepID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStepError(op, stepID, persistence.ErrStepNotFound)
		}

		return nil, fmt.Errorf("failed to scan step: %w", err)
	}

	return step, nil
}

func scanStep(row scanner) (*models.Step, error) {
	var (
		step      models.Step
		trueData  []byte
		falseData []byte
	)

	err := row.Scan(
		&step.ID,
		&step.WorkflowID,
		&step.Name,
		&step.Description,
		&step.Order,
		&step.LeftExpression,
		&step.Operation,
		&step.RightExpression,
		&step.IfTrueAction,
		&trueData,
		&step.IfFalseAction,
		&falseData,
		&step.FailureMessage,
		&step.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trueData, &step.IfTrueActionData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal if_true_action_data: %w", err)
	}

	if err := json.Unmarshal(falseData, &step.IfFalseActionData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal if_false_action_data: %w", err)
	}

	return &step, nil
}

func marshalActionData(step models.Step) ([]byte, []byte, error) {
	trueData, err := json.Marshal(step.IfTrueActionData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal if_true_action_data: %w", err)
	}

	falseData, err := json.Marshal(step.IfFalseActionData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal if_false_action_data: %w", err)
	}

	return trueData, falseData, nil
}
