package translator

import (
	"fmt"

	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/models"
)

// ApplyCreated writes the step ids returned for creates back onto their nodes
// and returns the snapshot including the new steps. created must be in the
// same order as creates. Nodes that were removed from g in the meantime are
// only recorded in the snapshot.
func ApplyCreated(g *graph.Graph, snapshot Snapshot, creates []Create, created []models.Step) (Snapshot, error) {
	if len(created) != len(creates) {
		return snapshot, fmt.Errorf("created %d steps, expected %d", len(created), len(creates))
	}

	steps := make([]models.Step, 0, len(creates))

	for i, create := range creates {
		if created[i].ID == 0 {
			return snapshot, fmt.Errorf("created step %d has no id", i)
		}

		step := create.Step
		step.ID = created[i].ID
		step.WorkflowID = created[i].WorkflowID
		steps = append(steps, step)

		node := g.Node(create.NodeID)
		if node == nil || !node.IsCondition() || node.Persisted() {
			continue
		}

		c := node.Condition
		id := step.ID
		c.StepID = &id
		c.Order = step.Order

		if c.Name == "" {
			c.Name = step.Name
		}

		if c.Operator == "" {
			c.Operator = step.Operation
		}

		storeActions(c, step)
	}

	return snapshot.With(steps...), nil
}

// ApplyUpdated records successful updates in the snapshot and refreshes the
// stored actions of the updated nodes.
func ApplyUpdated(g *graph.Graph, snapshot Snapshot, updates []Update) Snapshot {
	raw := make([]models.StepUpdate, len(updates))
	for i, update := range updates {
		raw[i] = update.Update
	}

	next := snapshot.WithUpdates(raw...)

	for _, update := range updates {
		node := g.Node(update.NodeID)
		if node == nil || !node.IsCondition() || node.Condition.StepID == nil || *node.Condition.StepID != update.Update.StepID {
			continue
		}

		if step, ok := next.Get(update.Update.StepID); ok {
			storeActions(node.Condition, step)
		}
	}

	return next
}

func storeActions(c *graph.Condition, step models.Step) {
	trueAction := step.TrueAction()
	falseAction := step.FalseAction()
	c.OnTrue = &trueAction
	c.OnFalse = &falseAction
}
