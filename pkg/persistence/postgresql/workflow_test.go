package postgresql

import (
	"log/slog"
	"testing"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowRepository_buildListQuery_InvalidSort(t *testing.T) {
	repo := &WorkflowRepository{logger: slog.Default()}

	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		wantErr   error
	}{
		{name: "invalid sort field", sortBy: "invalid_field", sortOrder: "asc", wantErr: persistence.ErrInvalidSort},
		{name: "sql injection attempt", sortBy: "name; DROP TABLE workflows; --", sortOrder: "asc", wantErr: persistence.ErrInvalidSort},
		{name: "invalid sort order", sortBy: "name", sortOrder: "asc; --", wantErr: persistence.ErrInvalidSort},
		{name: "name", sortBy: "name", sortOrder: "asc"},
		{name: "created_at", sortBy: "created_at", sortOrder: "desc"},
		{name: "updated_at", sortBy: "updated_at", sortOrder: "asc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := repo.buildListQuery(persistence.ListWorkflowsOptions{
				SortBy:    tt.sortBy,
				SortOrder: tt.sortOrder,
				Limit:     10,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowRepository_buildListQuery_Filters(t *testing.T) {
	repo := &WorkflowRepository{logger: slog.Default()}

	query, countQuery, args, err := repo.buildListQuery(persistence.ListWorkflowsOptions{
		Status:         models.WorkflowStatusActive,
		ExecutionPoint: "before_create",
		Limit:          500,
		Offset:         40,
	})
	require.NoError(t, err)

	assert.Contains(t, query, "status = $1 AND execution_point = $2")
	assert.Contains(t, query, "ORDER BY created_at desc, id desc LIMIT $3 OFFSET $4")
	assert.Equal(t, "SELECT COUNT(*) FROM workflows WHERE 1=1 AND status = $1 AND execution_point = $2", countQuery)
	assert.Equal(t, []any{models.WorkflowStatusActive, "before_create", 20, 40}, args)
}
