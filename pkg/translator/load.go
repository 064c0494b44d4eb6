package translator

import (
	"fmt"
	"sort"

	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/models"
)

// Loaded is the result of hydrating a graph from a workflow.
type Loaded struct {
	Graph    *graph.Graph
	Snapshot Snapshot
	RootID   string // node id of the initial step, empty for an empty workflow
}

// ConditionID returns the node id of the condition representing stepID.
func ConditionID(stepID int) string {
	return fmt.Sprintf("condition-%d", stepID)
}

// TerminalID returns the node id of the terminal synthesized for the inline
// outcome of stepID on handle.
func TerminalID(kind graph.Kind, stepID int, handle graph.Handle) string {
	return fmt.Sprintf("%s-%d-%s", kind, stepID, handle)
}

// SortSteps returns the steps ordered by their order field, keeping the list
// order for ties.
func SortSteps(steps []models.Step) []models.Step {
	sorted := append([]models.Step(nil), steps...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}

// Load turns the steps of a workflow into a graph.
//
// Each step becomes condition-<id>. Proceed actions become an edge to the
// target condition; complete_success and complete_failure actions become a
// success-<id>-<handle> or fail-<id>-<handle> terminal owned by the step. A
// proceed action whose target is missing, is the step itself, or already has
// an incoming edge produces no edge; the stored action still round-trips.
func Load(workflow *models.Workflow) Loaded {
	g := graph.New()

	if workflow == nil {
		return Loaded{Graph: g, Snapshot: NewSnapshot(nil)}
	}

	steps := SortSteps(workflow.Steps)

	for _, step := range steps {
		trueAction := step.TrueAction()
		falseAction := step.FalseAction()
		stepID := step.ID

		g.AddNode(graph.NewCondition(ConditionID(step.ID), graph.Condition{
			StepID:          &stepID,
			Name:            step.Name,
			Description:     step.Description,
			Order:           step.Order,
			LeftExpression:  step.LeftExpression,
			Operator:        step.Operation,
			RightExpression: step.RightExpression,
			OnTrue:          &trueAction,
			OnFalse:         &falseAction,
			FailureMessage:  step.FailureMessage,
			IsActive:        step.IsActive,
		}))
	}

	for i, step := range steps {
		loadBranch(g, steps, i, graph.HandleTrue, step.TrueAction())
		loadBranch(g, steps, i, graph.HandleFalse, step.FalseAction())
	}

	return Loaded{
		Graph:    g,
		Snapshot: NewSnapshot(steps),
		RootID:   rootID(workflow, steps),
	}
}

func loadBranch(g *graph.Graph, steps []models.Step, index int, handle graph.Handle, action models.Action) {
	step := steps[index]
	source := ConditionID(step.ID)

	switch {
	case action.Kind.IsProceed():
		targetID, ok := resolveProceed(steps, index, action)
		if !ok || targetID == step.ID {
			return
		}

		target := ConditionID(targetID)
		if len(g.Incoming(target)) > 0 {
			return
		}

		g.AddEdge(source, handle, target)

	case action.Kind.IsCompletion():
		kind := graph.KindSuccess
		if action.Kind == models.ActionCompleteFailure {
			kind = graph.KindFail
		}

		terminalID := TerminalID(kind, step.ID, handle)
		g.AddNode(graph.NewTerminal(terminalID, kind, graph.Terminal{
			Text:        action.Data.Text(action.Kind),
			OwnerID:     source,
			OwnerHandle: handle,
		}))
		g.AddEdge(source, handle, terminalID)
	}
}

// resolveProceed returns the step id a proceed action leads to. An explicit
// next_step_id wins; proceed_to_step without one means the next step by order.
func resolveProceed(steps []models.Step, index int, action models.Action) (int, bool) {
	if action.Data.NextStepID != nil {
		for _, step := range steps {
			if step.ID == *action.Data.NextStepID {
				return step.ID, true
			}
		}

		return 0, false
	}

	if action.Kind == models.ActionProceedToStep && index+1 < len(steps) {
		return steps[index+1].ID, true
	}

	return 0, false
}

func rootID(workflow *models.Workflow, steps []models.Step) string {
	if len(steps) == 0 {
		return ""
	}

	if workflow.InitialStep != nil {
		for _, step := range steps {
			if step.ID == *workflow.InitialStep {
				return ConditionID(step.ID)
			}
		}
	}

	return ConditionID(steps[0].ID)
}
