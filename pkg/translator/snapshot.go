// Package translator converts between the workflow graph and the persisted,
// ordered list of validation steps, and computes the minimal set of creates
// and updates needed to reconcile them.
package translator

import (
	"sort"

	"github.com/dukex/stepflow/pkg/models"
)

// Snapshot is an immutable view of the steps as last loaded from or saved to
// the step API. Every mutator returns a new Snapshot.
type Snapshot struct {
	steps map[int]models.Step
}

// NewSnapshot captures steps. Steps without an id are ignored.
func NewSnapshot(steps []models.Step) Snapshot {
	return Snapshot{}.With(steps...)
}

// Get returns a copy of the snapshot of step id.
func (s Snapshot) Get(id int) (models.Step, bool) {
	step, ok := s.steps[id]
	if !ok {
		return models.Step{}, false
	}

	return copyStep(step), true
}

// Len returns the number of steps in the snapshot.
func (s Snapshot) Len() int {
	return len(s.steps)
}

// IDs returns the step ids in ascending order.
func (s Snapshot) IDs() []int {
	ids := make([]int, 0, len(s.steps))
	for id := range s.steps {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// With returns a snapshot where the given steps replace any previous entry.
func (s Snapshot) With(steps ...models.Step) Snapshot {
	next := s.clone()

	for _, step := range steps {
		if step.ID == 0 {
			continue
		}

		next.steps[step.ID] = copyStep(step)
	}

	return next
}

// WithUpdates returns a snapshot with the partial updates applied to the
// steps they target. An update for an unknown step is applied to an empty step.
func (s Snapshot) WithUpdates(updates ...models.StepUpdate) Snapshot {
	next := s.clone()

	for _, update := range updates {
		if update.StepID == 0 {
			continue
		}

		step, ok := next.steps[update.StepID]
		if !ok {
			step = models.Step{ID: update.StepID}
		}

		update.Apply(&step)
		next.steps[update.StepID] = copyStep(step)
	}

	return next
}

// Without returns a snapshot without the given step ids.
func (s Snapshot) Without(ids ...int) Snapshot {
	next := s.clone()

	for _, id := range ids {
		delete(next.steps, id)
	}

	return next
}

func (s Snapshot) clone() Snapshot {
	next := Snapshot{steps: make(map[int]models.Step, len(s.steps))}

	for id, step := range s.steps {
		next.steps[id] = step
	}

	return next
}

func copyStep(step models.Step) models.Step {
	step.IfTrueActionData = copyData(step.IfTrueActionData)
	step.IfFalseActionData = copyData(step.IfFalseActionData)

	return step
}

func copyData(data models.ActionData) models.ActionData {
	if data.NextStepID != nil {
		id := *data.NextStepID
		data.NextStepID = &id
	}

	return data
}
