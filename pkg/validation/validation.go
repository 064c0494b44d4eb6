// Package validation checks workflow documents before they are loaded into a
// builder session or sent to the step API.
package validation

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/dukex/stepflow/pkg/document"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed workflow.schema.json
var workflowSchema []byte

type Source string

const (
	SourceSchema    Source = "schema"
	SourceModel     Source = "model"
	SourceReference Source = "reference"
)

// Issue is one problem found in a document.
type Issue struct {
	Source  Source `json:"source"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Source, i.Field, i.Message)
}

// Report collects the issues of a document.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r Report) Valid() bool {
	return len(r.Issues) == 0
}

type Validator struct {
	schema   *gojsonschema.Schema
	validate *validator.Validate
}

func New() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(workflowSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile workflow schema: %w", err)
	}

	return &Validator{schema: schema, validate: models.NewValidator()}, nil
}

// Validate runs the schema check on the raw document, then the model rules
// and the step reference checks on the decoded workflow. Model checks are
// skipped when the schema already rejected the document.
func (v *Validator) Validate(doc *document.Document) (Report, error) {
	var report Report

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc.Raw))
	if err != nil {
		return report, fmt.Errorf("failed to run schema validation: %w", err)
	}

	for _, resultErr := range result.Errors() {
		report.Issues = append(report.Issues, Issue{
			Source:  SourceSchema,
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
		})
	}

	if !result.Valid() {
		return report, nil
	}

	report.Issues = append(report.Issues, v.modelIssues(doc.Workflow)...)
	report.Issues = append(report.Issues, ReferenceIssues(doc.Workflow)...)

	return report, nil
}

func (v *Validator) modelIssues(workflow *models.Workflow) []Issue {
	err := v.validate.Struct(workflow)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []Issue{{Source: SourceModel, Field: "workflow", Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		issues = append(issues, Issue{
			Source:  SourceModel,
			Field:   fieldErr.Namespace(),
			Message: fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag()),
		})
	}

	return issues
}

// ReferenceIssues reports proceed actions without a target, next_step_id
// values that point outside the workflow and an initial step that is not
// one of its steps.
func ReferenceIssues(workflow *models.Workflow) []Issue {
	var issues []Issue

	for i, step := range workflow.Steps {
		for _, branch := range []struct {
			field  string
			action models.Action
		}{
			{field: "if_true_action", action: step.TrueAction()},
			{field: "if_false_action", action: step.FalseAction()},
		} {
			if branch.action.Kind == models.ActionProceedToStepByID && branch.action.Data.NextStepID == nil {
				issues = append(issues, Issue{
					Source:  SourceReference,
					Field:   fmt.Sprintf("steps[%d].%s_data.next_step_id", i, branch.field),
					Message: "proceed_to_step_by_id requires next_step_id",
				})
			}
		}
	}

	dangling := workflow.DanglingReferences()
	sort.Ints(dangling)

	for _, stepID := range dangling {
		issues = append(issues, Issue{
			Source:  SourceReference,
			Field:   fmt.Sprintf("steps[id=%d]", stepID),
			Message: "next_step_id points to a step outside the workflow",
		})
	}

	if workflow.InitialStep != nil && workflow.StepByID(*workflow.InitialStep) == nil {
		issues = append(issues, Issue{
			Source:  SourceReference,
			Field:   "initial_step",
			Message: fmt.Sprintf("step %d is not part of the workflow", *workflow.InitialStep),
		})
	}

	return issues
}
