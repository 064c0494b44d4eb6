// Package graph holds the in-memory validation-workflow graph: condition nodes,
// terminal success/fail nodes and the labeled edges between them.
//
// The graph itself is invariant-agnostic. Callers that need the connection
// invariants (one edge per handle, one incoming edge per node, cascading
// deletes) go through package editor.
package graph

import (
	"github.com/dukex/stepflow/pkg/models"
	"github.com/google/uuid"
)

// Kind is the closed set of node variants.
type Kind string

const (
	KindCondition Kind = "condition"
	KindSuccess   Kind = "success"
	KindFail      Kind = "fail"
)

// IsTerminal reports whether nodes of this kind represent an inline outcome.
func (k Kind) IsTerminal() bool {
	return k == KindSuccess || k == KindFail
}

// Handle is a named exit point of a node.
type Handle string

const (
	HandleTrue  Handle = "true"
	HandleFalse Handle = "false"
	HandleNext  Handle = "next" // single exit of a terminal node
)

// Handles lists the exits of a condition node in traversal order.
var Handles = []Handle{HandleTrue, HandleFalse}

// Position is an on-canvas coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Condition is the data of a condition node.
type Condition struct {
	StepID          *int            `json:"step_id,omitempty"` // nil until first save
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Order           int             `json:"order,omitempty"`
	LeftExpression  string          `json:"left_expression"`
	Operator        models.Operator `json:"operator"`
	RightExpression string          `json:"right_expression"`
	OnTrue          *models.Action  `json:"on_true,omitempty"`  // last stored action, nil when none
	OnFalse         *models.Action  `json:"on_false,omitempty"` // last stored action, nil when none
	FailureMessage  string          `json:"failure_message,omitempty"`
	IsActive        bool            `json:"is_active"`
}

// Stored returns the last stored action for a handle.
func (c *Condition) Stored(handle Handle) *models.Action {
	switch handle {
	case HandleTrue:
		return c.OnTrue
	case HandleFalse:
		return c.OnFalse
	default:
		return nil
	}
}

// SetStored replaces the stored action for a handle.
func (c *Condition) SetStored(handle Handle, action *models.Action) {
	switch handle {
	case HandleTrue:
		c.OnTrue = action
	case HandleFalse:
		c.OnFalse = action
	case HandleNext:
	}
}

// Persisted reports whether the condition has a step id.
func (c *Condition) Persisted() bool {
	return c.StepID != nil
}

// Terminal is the data of a success or fail node. A terminal node is never
// persisted; it stands for an inline complete_success/complete_failure action.
type Terminal struct {
	Text        string `json:"text"`
	OwnerID     string `json:"owner_id,omitempty"`     // condition the terminal was spawned for
	OwnerHandle Handle `json:"owner_handle,omitempty"` // handle of the owner it represents
}

// OwnedBy reports whether the terminal was spawned for the given condition handle.
func (t *Terminal) OwnedBy(conditionID string, handle Handle) bool {
	return t.OwnerID == conditionID && t.OwnerHandle == handle
}

// Node is a graph vertex. Exactly one of Condition or Terminal is set,
// matching Kind.
type Node struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Position  Position   `json:"position"`
	Condition *Condition `json:"condition,omitempty"`
	Terminal  *Terminal  `json:"terminal,omitempty"`
}

// NewCondition creates a condition node.
func NewCondition(id string, condition Condition) *Node {
	return &Node{
		ID:        id,
		Kind:      KindCondition,
		Condition: &condition,
	}
}

// NewTerminal creates a success or fail node. Any other kind is coerced to fail.
func NewTerminal(id string, kind Kind, terminal Terminal) *Node {
	if kind != KindSuccess {
		kind = KindFail
	}

	return &Node{
		ID:       id,
		Kind:     kind,
		Terminal: &terminal,
	}
}

// NewTransientID returns an id for a node created in the editor before it
// has been persisted.
func NewTransientID(kind Kind) string {
	return string(kind) + "-new-" + uuid.New().String()
}

// IsCondition reports whether the node is a condition node.
func (n *Node) IsCondition() bool {
	return n.Kind == KindCondition && n.Condition != nil
}

// IsTerminal reports whether the node is a success or fail node.
func (n *Node) IsTerminal() bool {
	return n.Kind.IsTerminal() && n.Terminal != nil
}

// Persisted reports whether the node is backed by a stored step.
func (n *Node) Persisted() bool {
	return n.IsCondition() && n.Condition.Persisted()
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n

	if n.Condition != nil {
		condition := *n.Condition
		condition.StepID = cloneInt(n.Condition.StepID)
		condition.OnTrue = cloneAction(n.Condition.OnTrue)
		condition.OnFalse = cloneAction(n.Condition.OnFalse)
		clone.Condition = &condition
	}

	if n.Terminal != nil {
		terminal := *n.Terminal
		clone.Terminal = &terminal
	}

	return &clone
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}

func cloneAction(a *models.Action) *models.Action {
	if a == nil {
		return nil
	}

	c := *a
	c.Data.NextStepID = cloneInt(a.Data.NextStepID)

	return &c
}
