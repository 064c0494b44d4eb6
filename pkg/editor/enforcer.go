// Package editor keeps a workflow graph consistent while it is being edited.
//
// Every structural mutation goes through an Enforcer, which repairs the graph
// instead of rejecting an operation: a handle has at most one outgoing edge,
// a node has at most one incoming edge, a terminal only chains into a
// condition, and deleting a condition takes its inline outcome nodes with it.
package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/stepflow/pkg/graph"
)

// StepDeleter removes a persisted step.
type StepDeleter interface {
	DeleteStep(ctx context.Context, stepID int) error
}

// Enforcer applies invariant-preserving mutations to a graph.
type Enforcer struct {
	graph   *graph.Graph
	deleter StepDeleter
	logger  *slog.Logger
}

// NewEnforcer creates an enforcer over g. deleter may be nil when the graph
// has no persisted steps to delete.
func NewEnforcer(g *graph.Graph, deleter StepDeleter, logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Enforcer{
		graph:   g,
		deleter: deleter,
		logger:  logger.With("module", "editor"),
	}
}

// Graph returns the graph being edited.
func (e *Enforcer) Graph() *graph.Graph {
	return e.graph
}

// Connect links source to target through handle and returns the new edge.
//
// An edge already leaving (source, handle) is replaced; when its old target
// was a terminal standing only for that handle it is deleted as well. An edge
// already arriving at target is detached, leaving its source node in place.
// Invalid requests (unknown ids, self loops, handles the source does not have,
// terminals chaining into anything but a condition) return nil and leave the
// graph unchanged.
func (e *Enforcer) Connect(source string, handle graph.Handle, target string) *graph.Edge {
	from := e.graph.Node(source)
	to := e.graph.Node(target)

	if from == nil || to == nil || source == target {
		return nil
	}

	if from.IsTerminal() {
		handle = graph.HandleNext

		if !to.IsCondition() {
			return nil
		}
	} else if handle != graph.HandleTrue && handle != graph.HandleFalse {
		return nil
	}

	if existing := e.graph.Outgoing(source, handle); existing != nil {
		if existing.Target == target && len(e.graph.Incoming(target)) == 1 {
			return existing
		}

		e.graph.RemoveEdge(existing.ID)

		previous := e.graph.Node(existing.Target)
		if previous != nil && previous.ID != target && e.orphaned(previous, source, handle) {
			e.logger.Debug("Removing replaced inline outcome", "node_id", previous.ID, "source", source, "handle", handle)
			e.graph.RemoveNode(previous.ID)
		}
	}

	for _, incoming := range e.graph.Incoming(target) {
		e.graph.RemoveEdge(incoming.ID)
	}

	return e.graph.AddEdge(source, handle, target)
}

// orphaned reports whether a terminal existed only to represent the action of
// (source, handle) and is no longer reached by any edge.
func (e *Enforcer) orphaned(n *graph.Node, source string, handle graph.Handle) bool {
	if !n.IsTerminal() {
		return false
	}

	if len(e.graph.Incoming(n.ID)) > 0 {
		return false
	}

	return n.Terminal.OwnerID == "" || n.Terminal.OwnedBy(source, handle)
}

// Disconnect removes a single edge.
func (e *Enforcer) Disconnect(edgeID string) bool {
	return e.graph.RemoveEdge(edgeID)
}

// DeleteNode removes a node and the nodes that depend on it, returning the
// ids removed in declaration order.
//
// For a persisted condition the step is deleted through the StepDeleter
// first; if that fails the graph is left unchanged and the error is returned.
// Unknown ids are a no-op.
func (e *Enforcer) DeleteNode(ctx context.Context, id string) ([]string, error) {
	n := e.graph.Node(id)
	if n == nil {
		return nil, nil
	}

	if n.Persisted() {
		if e.deleter == nil {
			return nil, fmt.Errorf("cannot delete step %d: no step deleter configured", *n.Condition.StepID)
		}

		err := e.deleter.DeleteStep(ctx, *n.Condition.StepID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete step %d: %w", *n.Condition.StepID, err)
		}
	}

	return e.Remove(ctx, id), nil
}

// Remove deletes id and its cascade set from the graph without calling the
// step deleter. It is used once the persisted step is already gone.
func (e *Enforcer) Remove(ctx context.Context, id string) []string {
	removed := CascadeSet(e.graph, id)

	for _, nodeID := range removed {
		e.graph.RemoveNode(nodeID)
	}

	if len(removed) > 0 {
		e.logger.DebugContext(ctx, "Deleted nodes", "node_id", id, "removed", removed)
	}

	return removed
}

// CascadeSet returns the ids that deleting id removes, in declaration order.
//
// A terminal removes only itself. A condition also removes the terminals it
// owns and every node directly reached from it whose only incoming edge is
// that one and which has no persisted step.
func CascadeSet(g *graph.Graph, id string) []string {
	n := g.Node(id)
	if n == nil {
		return nil
	}

	if !n.IsCondition() {
		return []string{id}
	}

	set := map[string]bool{id: true}

	for _, candidate := range g.Nodes() {
		if candidate.IsTerminal() && candidate.Terminal.OwnerID == id {
			set[candidate.ID] = true
		}
	}

	for _, edge := range g.OutgoingAll(id) {
		target := g.Node(edge.Target)
		if target == nil || target.Persisted() {
			continue
		}

		if len(g.Incoming(target.ID)) == 1 {
			set[target.ID] = true
		}
	}

	var ordered []string

	for _, candidate := range g.Nodes() {
		if set[candidate.ID] {
			ordered = append(ordered, candidate.ID)
		}
	}

	return ordered
}
