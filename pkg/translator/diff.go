package translator

import (
	"fmt"
	"sort"

	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/models"
)

const (
	DefaultSuccessMessage = "Step completed successfully"
	DefaultFailureMessage = "Validation failed"
	DefaultOperator       = models.OperatorEqual
)

// Create is a step to be created for a condition node without a step id.
type Create struct {
	NodeID string      `json:"node_id"`
	Step   models.Step `json:"step"`
}

// Update is a partial update for a persisted condition node.
type Update struct {
	NodeID string            `json:"node_id"`
	Update models.StepUpdate `json:"update"`
}

// Deferred is a link from a condition to a condition that has no step id yet.
// It can only be written once the target has been created.
type Deferred struct {
	NodeID       string       `json:"node_id"`
	Handle       graph.Handle `json:"handle"`
	TargetNodeID string       `json:"target_node_id"`
}

// Changes is the set of writes needed to reconcile a graph with a snapshot.
type Changes struct {
	Creates  []Create   `json:"creates"`
	Updates  []Update   `json:"updates"`
	Deferred []Deferred `json:"deferred"`
}

// Empty reports whether there is nothing to write.
func (c Changes) Empty() bool {
	return len(c.Creates) == 0 && len(c.Updates) == 0
}

// CreateRequest builds the bulk create body for workflowID.
func (c Changes) CreateRequest(workflowID int) models.BulkCreateStepsRequest {
	steps := make([]models.Step, len(c.Creates))
	for i, create := range c.Creates {
		steps[i] = create.Step
		steps[i].WorkflowID = workflowID
	}

	return models.BulkCreateStepsRequest{WorkflowID: workflowID, Steps: steps}
}

// UpdateRequest builds the bulk update body.
func (c Changes) UpdateRequest() models.BulkUpdateStepsRequest {
	updates := make([]models.StepUpdate, len(c.Updates))
	for i, update := range c.Updates {
		updates[i] = update.Update
	}

	return models.BulkUpdateStepsRequest{Updates: updates}
}

// Diff computes the creates and updates that make the persisted steps match
// the graph. Condition nodes without a step id are created in node order with
// a 1-based order among condition nodes. Persisted nodes produce an update
// carrying only the fields that differ from the snapshot.
func Diff(g *graph.Graph, snapshot Snapshot) Changes {
	var changes Changes

	for i, node := range g.Conditions() {
		step, deferred := EffectiveStep(g, node)
		changes.Deferred = append(changes.Deferred, deferred...)

		if !node.Persisted() {
			step.Order = i + 1

			if step.Name == "" {
				step.Name = fmt.Sprintf("Step %d", i+1)
			}

			if step.Operation == "" {
				step.Operation = DefaultOperator
			}

			changes.Creates = append(changes.Creates, Create{NodeID: node.ID, Step: step})

			continue
		}

		previous, ok := snapshot.Get(step.ID)
		if !ok {
			previous = models.Step{ID: step.ID}
		}

		update := diffStep(previous, step)
		if !update.Empty() {
			changes.Updates = append(changes.Updates, Update{NodeID: node.ID, Update: update})
		}
	}

	return changes
}

// EffectiveStep returns the step a condition node stands for, with the
// actions derived from its outgoing edges. Links to unsaved conditions are
// returned as deferred and replaced by a placeholder action.
func EffectiveStep(g *graph.Graph, node *graph.Node) (models.Step, []Deferred) {
	c := node.Condition

	step := models.Step{
		Name:            c.Name,
		Description:     c.Description,
		Order:           c.Order,
		LeftExpression:  c.LeftExpression,
		Operation:       c.Operator,
		RightExpression: c.RightExpression,
		FailureMessage:  c.FailureMessage,
		IsActive:        c.IsActive,
	}

	if c.StepID != nil {
		step.ID = *c.StepID
	}

	var deferred []Deferred

	trueAction, d := EffectiveAction(g, node, graph.HandleTrue)
	if d != nil {
		deferred = append(deferred, *d)
	}

	falseAction, d := EffectiveAction(g, node, graph.HandleFalse)
	if d != nil {
		deferred = append(deferred, *d)
	}

	step.IfTrueAction, step.IfTrueActionData = trueAction.Kind, trueAction.Data
	step.IfFalseAction, step.IfFalseActionData = falseAction.Kind, falseAction.Data

	return step, deferred
}

// DefaultAction is the action of a handle without a stored action or edge.
func DefaultAction(handle graph.Handle) models.Action {
	if handle == graph.HandleFalse {
		return models.FailureAction(DefaultFailureMessage)
	}

	return models.SuccessAction(DefaultSuccessMessage)
}

// EffectiveAction derives the action of one handle of a condition node.
//
// Without an edge the stored action is kept. An edge to a condition, or to a
// terminal chained to a condition, becomes a proceed action. An edge to any
// other terminal becomes the matching completion action. When the derived
// action is equivalent to the stored one, the stored action is returned
// unchanged.
func EffectiveAction(g *graph.Graph, node *graph.Node, handle graph.Handle) (models.Action, *Deferred) {
	stored := node.Condition.Stored(handle)

	edge := g.Outgoing(node.ID, handle)
	if edge == nil {
		if stored != nil {
			return *stored, nil
		}

		return DefaultAction(handle), nil
	}

	target := g.Node(edge.Target)
	if target == nil {
		return fallbackAction(stored, handle), nil
	}

	if target.IsCondition() {
		return proceedTo(g, node, handle, target)
	}

	if next := g.Outgoing(target.ID, graph.HandleNext); next != nil {
		if downstream := g.Node(next.Target); downstream != nil && downstream.IsCondition() && downstream.ID != node.ID {
			return proceedTo(g, node, handle, downstream)
		}
	}

	return completion(stored, target), nil
}

func proceedTo(g *graph.Graph, node *graph.Node, handle graph.Handle, target *graph.Node) (models.Action, *Deferred) {
	stored := node.Condition.Stored(handle)

	if !target.Persisted() {
		return fallbackAction(stored, handle), &Deferred{NodeID: node.ID, Handle: handle, TargetNodeID: target.ID}
	}

	targetID := *target.Condition.StepID

	if stored != nil && stored.Kind.IsProceed() {
		if id, ok := storedTarget(g, node, *stored); ok && id == targetID {
			return *stored, nil
		}
	}

	note := ""
	if stored != nil {
		note = stored.Data.Text(models.ActionProceedToStepByID)
	}

	return models.ProceedAction(targetID, note), nil
}

func completion(stored *models.Action, target *graph.Node) models.Action {
	kind := models.ActionCompleteFailure
	if target.Kind == graph.KindSuccess {
		kind = models.ActionCompleteSuccess
	}

	text := target.Terminal.Text

	if stored != nil && stored.Kind == kind && stored.Data.NextStepID == nil && stored.Data.Text(kind) == text {
		return *stored
	}

	if kind == models.ActionCompleteSuccess {
		return models.SuccessAction(text)
	}

	return models.FailureAction(text)
}

// fallbackAction is written while a link cannot be expressed yet. A stored
// action of any kind stays in place until the link is written.
func fallbackAction(stored *models.Action, handle graph.Handle) models.Action {
	if stored != nil {
		return *stored
	}

	return DefaultAction(handle)
}

// storedTarget resolves the step id a stored proceed action points at, using
// the same rules as Load.
func storedTarget(g *graph.Graph, node *graph.Node, action models.Action) (int, bool) {
	if action.Data.NextStepID != nil {
		return *action.Data.NextStepID, true
	}

	if action.Kind != models.ActionProceedToStep {
		return 0, false
	}

	var persisted []*graph.Node
	for _, n := range g.Conditions() {
		if n.Persisted() {
			persisted = append(persisted, n)
		}
	}

	sort.SliceStable(persisted, func(i, j int) bool {
		return persisted[i].Condition.Order < persisted[j].Condition.Order
	})

	for i, n := range persisted {
		if n.ID == node.ID && i+1 < len(persisted) {
			return *persisted[i+1].Condition.StepID, true
		}
	}

	return 0, false
}

func diffStep(previous, next models.Step) models.StepUpdate {
	update := models.StepUpdate{StepID: next.ID}

	if next.Name != previous.Name {
		update.Name = &next.Name
	}

	if next.Description != previous.Description {
		update.Description = &next.Description
	}

	if next.Order != previous.Order {
		update.Order = &next.Order
	}

	if next.LeftExpression != previous.LeftExpression {
		update.LeftExpression = &next.LeftExpression
	}

	if next.Operation != previous.Operation {
		update.Operation = &next.Operation
	}

	if next.RightExpression != previous.RightExpression {
		update.RightExpression = &next.RightExpression
	}

	if next.IfTrueAction != previous.IfTrueAction {
		update.IfTrueAction = &next.IfTrueAction
	}

	if !next.IfTrueActionData.Equal(previous.IfTrueActionData) {
		update.IfTrueActionData = &next.IfTrueActionData
	}

	if next.IfFalseAction != previous.IfFalseAction {
		update.IfFalseAction = &next.IfFalseAction
	}

	if !next.IfFalseActionData.Equal(previous.IfFalseActionData) {
		update.IfFalseActionData = &next.IfFalseActionData
	}

	if next.FailureMessage != previous.FailureMessage {
		update.FailureMessage = &next.FailureMessage
	}

	if next.IsActive != previous.IsActive {
		update.IsActive = &next.IsActive
	}

	return update
}
