package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *store
}

// ListWorkflows returns paginated and filtered workflows with in-memory operations.
func (wr *WorkflowRepository) ListWorkflows(_ context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	wr.store.mu.Lock()
	all, err := wr.store.all()
	wr.store.mu.Unlock()

	if err != nil {
		return nil, err
	}

	filter := models.WorkflowFilter{Status: opts.Status, ExecutionPoint: opts.ExecutionPoint}
	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if !filter.Matches(workflow) {
			continue
		}

		workflow.Steps = nil
		filtered = append(filtered, workflow)
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	result := &persistence.WorkflowListResult{
		Workflows:  []*models.Workflow{},
		TotalCount: int64(len(filtered)),
	}

	if opts.Offset >= len(filtered) {
		return result, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))
	result.Workflows = filtered[opts.Offset:end]
	result.HasNextPage = end < len(filtered)

	return result, nil
}

func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]

		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "name":
			return a.Name < b.Name
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}

			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// GetByID retrieves a workflow and its ordered steps.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID int) (*models.Workflow, error) {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	workflow, err := wr.store.read(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	return workflow, nil
}

// Create stores a new workflow and assigns its id. Steps are ignored.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	id, _, err := wr.store.nextIDs(1, 0)
	if err != nil {
		return persistence.NewWorkflowError("Create", 0, err)
	}

	now := time.Now().UTC()

	workflow.ID = id
	workflow.Steps = nil
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := wr.store.write(workflow); err != nil {
		return persistence.NewWorkflowError("Create", id, err)
	}

	return nil
}

// Update replaces the workflow record, keeping the stored steps.
func (wr *WorkflowRepository) Update(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	existing, err := wr.store.read(workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Update", workflow.ID, err)
	}

	updated := *workflow
	updated.Steps = existing.Steps
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := wr.store.write(&updated); err != nil {
		return persistence.NewWorkflowError("Update", workflow.ID, err)
	}

	workflow.CreatedAt = updated.CreatedAt
	workflow.UpdatedAt = updated.UpdatedAt

	return nil
}

// Delete removes a workflow and its steps.
func (wr *WorkflowRepository) Delete(_ context.Context, workflowID int) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	if err := wr.store.remove(workflowID); err != nil {
		return persistence.NewWorkflowError("Delete", workflowID, err)
	}

	return nil
}
