package document_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/stepflow/pkg/document"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowYAML = `
id: 7
name: Transfer checks
execution_point: before_create
status: active
initial_step: 1
steps:
  - id: 1
    name: Amount
    order: 1
    left_expression: transfer.amount
    operation: "<="
    right_expression: budget.available
    if_true_action: proceed_to_step_by_id
    if_true_action_data:
      next_step_id: 2
    if_false_action: complete_failure
    if_false_action_data:
      error: Insufficient budget
    is_active: true
  - id: 2
    name: Role
    order: 2
    left_expression: user.role
    operation: "=="
    right_expression: "'manager'"
    if_true_action: complete_success
    if_true_action_data:
      message: Approved
    if_false_action: complete_failure
    if_false_action_data:
      error: Manager approval required
`

func TestFormatOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		want    document.Format
		wantErr bool
	}{
		{path: "wf.json", want: document.FormatJSON},
		{path: "wf.YAML", want: document.FormatYAML},
		{path: "dir/wf.yml", want: document.FormatYAML},
		{path: "wf.toml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			got, err := document.FormatOf(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, document.ErrUnsupportedFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_YAML(t *testing.T) {
	t.Parallel()

	doc, err := document.Parse([]byte(workflowYAML), document.FormatYAML)
	require.NoError(t, err)

	workflow := doc.Workflow
	assert.Equal(t, 7, workflow.ID)
	assert.Equal(t, "before_create", workflow.ExecutionPoint)
	assert.Equal(t, models.WorkflowStatusActive, workflow.Status)
	require.NotNil(t, workflow.InitialStep)
	assert.Equal(t, 1, *workflow.InitialStep)
	require.Len(t, workflow.Steps, 2)

	first := workflow.Steps[0]
	assert.Equal(t, models.OperatorLessOrEqual, first.Operation)
	assert.Equal(t, models.ActionProceedToStepByID, first.IfTrueAction)
	require.NotNil(t, first.IfTrueActionData.NextStepID)
	assert.Equal(t, 2, *first.IfTrueActionData.NextStepID)
	assert.Equal(t, "Insufficient budget", first.IfFalseActionData.Error)

	raw, ok := doc.Raw.(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 7, raw["id"], 0)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		format document.Format
	}{
		{name: "broken json", data: `{"name":`, format: document.FormatJSON},
		{name: "wrong type", data: `{"id":"seven"}`, format: document.FormatJSON},
		{name: "broken yaml", data: "name: [a", format: document.FormatYAML},
		{name: "unknown format", data: `{}`, format: "toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := document.Parse([]byte(tt.data), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	t.Parallel()

	source, err := document.Parse([]byte(workflowYAML), document.FormatYAML)
	require.NoError(t, err)

	dir := t.TempDir()

	for _, name := range []string{"wf.json", "wf.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, document.Write(path, source.Workflow))

		loaded, err := document.Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, source.Workflow, loaded.Workflow, name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := document.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
