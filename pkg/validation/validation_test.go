package validation_test

import (
	"testing"

	"github.com/dukex/stepflow/pkg/document"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validWorkflow = `{
  "name": "Transfer checks",
  "execution_point": "before_update",
  "initial_step": 1,
  "steps": [
    {
      "id": 1,
      "name": "Amount",
      "order": 1,
      "left_expression": "transfer.amount",
      "operation": "<=",
      "right_expression": "budget.available",
      "if_true_action": "proceed_to_step_by_id",
      "if_true_action_data": {"next_step_id": 2},
      "if_false_action": "complete_failure",
      "if_false_action_data": {"error": "Insufficient budget"}
    },
    {
      "id": 2,
      "name": "Status",
      "order": 2,
      "left_expression": "previous.status",
      "operation": "!=",
      "right_expression": "'closed'",
      "if_true_action": "complete_success",
      "if_false_action": "complete_failure"
    }
  ]
}`

func parse(t *testing.T, data string) *document.Document {
	t.Helper()

	doc, err := document.Parse([]byte(data), document.FormatJSON)
	require.NoError(t, err)

	return doc
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	v, err := validation.New()
	require.NoError(t, err)

	tests := []struct {
		name        string
		data        string
		wantSources []validation.Source
		wantField   string
	}{
		{
			name: "valid workflow",
			data: validWorkflow,
		},
		{
			name:        "schema rejects unknown operator",
			data:        `{"name":"Checks","execution_point":"before_create","steps":[{"name":"A","operation":"~=","if_true_action":"complete_success","if_false_action":"complete_failure"}]}`,
			wantSources: []validation.Source{validation.SourceSchema},
			wantField:   "steps.0.operation",
		},
		{
			name:        "schema requires name",
			data:        `{"execution_point":"before_create"}`,
			wantSources: []validation.Source{validation.SourceSchema},
			wantField:   "(root)",
		},
		{
			name:        "model rejects unknown execution point",
			data:        `{"name":"Checks","execution_point":"whenever"}`,
			wantSources: []validation.Source{validation.SourceModel},
			wantField:   "Workflow.ExecutionPoint",
		},
		{
			name: "dangling next step",
			data: `{"name":"Checks","execution_point":"before_create","steps":[
				{"id":1,"name":"A","operation":"==","if_true_action":"proceed_to_step_by_id","if_true_action_data":{"next_step_id":9},"if_false_action":"complete_failure"}]}`,
			wantSources: []validation.Source{validation.SourceReference},
			wantField:   "steps[id=1]",
		},
		{
			name: "missing next step and foreign initial step",
			data: `{"name":"Checks","execution_point":"before_create","initial_step":4,"steps":[
				{"id":1,"name":"A","operation":"==","if_true_action":"complete_success","if_false_action":"proceed_to_step_by_id"}]}`,
			wantSources: []validation.Source{validation.SourceReference, validation.SourceReference},
			wantField:   "initial_step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report, err := v.Validate(parse(t, tt.data))
			require.NoError(t, err)

			if len(tt.wantSources) == 0 {
				assert.True(t, report.Valid(), "unexpected issues: %v", report.Issues)

				return
			}

			assert.False(t, report.Valid())

			sources := make([]validation.Source, 0, len(report.Issues))
			fields := make([]string, 0, len(report.Issues))

			for _, issue := range report.Issues {
				sources = append(sources, issue.Source)
				fields = append(fields, issue.Field)
			}

			assert.Equal(t, tt.wantSources, sources)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestReferenceIssues(t *testing.T) {
	t.Parallel()

	next := 3
	workflow := &models.Workflow{
		Steps: []models.Step{
			{ID: 1, IfTrueAction: models.ActionProceedToStepByID, IfTrueActionData: models.ActionData{NextStepID: &next}},
			{ID: 2, IfFalseAction: models.ActionProceedToStepByID},
		},
	}

	issues := validation.ReferenceIssues(workflow)
	require.Len(t, issues, 2)
	assert.Equal(t, "steps[1].if_false_action_data.next_step_id", issues[0].Field)
	assert.Equal(t, "steps[id=1]", issues[1].Field)
	assert.Contains(t, issues[1].String(), "[reference]")
}
