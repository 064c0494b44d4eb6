package graph

import "github.com/dukex/stepflow/pkg/models"

// Graph is an ordered set of nodes and the edges between them. Node order is
// significant: it is the declaration order used by the translator and the
// layout engine.
//
// Mutations referencing unknown ids are no-ops. Graph is not safe for
// concurrent use; builder.Session serializes access.
type Graph struct {
	nodes []*Node
	index map[string]*Node
	edges []*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]*Node)}
}

// Patch is a partial update of a node's data. Condition fields are ignored on
// terminal nodes and Text is ignored on condition nodes.
type Patch struct {
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Order           *int             `json:"order,omitempty"`
	LeftExpression  *string          `json:"left_expression,omitempty"`
	Operator        *models.Operator `json:"operator,omitempty"`
	RightExpression *string          `json:"right_expression,omitempty"`
	FailureMessage  *string          `json:"failure_message,omitempty"`
	IsActive        *bool            `json:"is_active,omitempty"`
	Text            *string          `json:"text,omitempty"`
}

// AddNode appends a node. It returns false when the id is empty or already used.
func (g *Graph) AddNode(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}

	if _, exists := g.index[n.ID]; exists {
		return false
	}

	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n

	return true
}

// RemoveNode removes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) bool {
	if _, exists := g.index[id]; !exists {
		return false
	}

	delete(g.index, id)

	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}

	g.nodes = nodes

	g.filterEdges(func(e *Edge) bool {
		return e.Source != id && e.Target != id
	})

	return true
}

// AddEdge connects source to target through handle and returns the edge.
// Condition nodes leave through true or false, terminal nodes through next.
// It returns nil when an endpoint is unknown or the handle does not belong
// to the source kind. Adding an edge that already exists returns it.
func (g *Graph) AddEdge(source string, handle Handle, target string) *Edge {
	from, ok := g.index[source]
	if !ok {
		return nil
	}

	if _, ok := g.index[target]; !ok {
		return nil
	}

	if !validHandle(from, handle) {
		return nil
	}

	id := MakeEdgeID(source, handle, target)
	if existing := g.Edge(id); existing != nil {
		return existing
	}

	edge := &Edge{
		ID:     id,
		Source: source,
		Handle: handle,
		Target: target,
		Tag:    TagFor(handle),
	}
	g.edges = append(g.edges, edge)

	return edge
}

func validHandle(from *Node, handle Handle) bool {
	if from.IsTerminal() {
		return handle == HandleNext
	}

	return handle == HandleTrue || handle == HandleFalse
}

// RemoveEdge removes the edge with the given id.
func (g *Graph) RemoveEdge(id string) bool {
	if g.Edge(id) == nil {
		return false
	}

	g.filterEdges(func(e *Edge) bool {
		return e.ID != id
	})

	return true
}

// UpdateNodeData applies patch to the node's data.
func (g *Graph) UpdateNodeData(id string, patch Patch) bool {
	n, ok := g.index[id]
	if !ok {
		return false
	}

	if n.IsTerminal() {
		if patch.Text != nil {
			n.Terminal.Text = *patch.Text
		}

		return true
	}

	c := n.Condition
	if c == nil {
		return false
	}

	if patch.Name != nil {
		c.Name = *patch.Name
	}

	if patch.Description != nil {
		c.Description = *patch.Description
	}

	if patch.Order != nil {
		c.Order = *patch.Order
	}

	if patch.LeftExpression != nil {
		c.LeftExpression = *patch.LeftExpression
	}

	if patch.Operator != nil && patch.Operator.Valid() {
		c.Operator = *patch.Operator
	}

	if patch.RightExpression != nil {
		c.RightExpression = *patch.RightExpression
	}

	if patch.FailureMessage != nil {
		c.FailureMessage = *patch.FailureMessage
	}

	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}

	return true
}

// SetPosition moves a node.
func (g *Graph) SetPosition(id string, pos Position) bool {
	n, ok := g.index[id]
	if !ok {
		return false
	}

	n.Position = pos

	return true
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.index[id]
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Conditions returns the condition nodes in declaration order.
func (g *Graph) Conditions() []*Node {
	var conditions []*Node

	for _, n := range g.nodes {
		if n.IsCondition() {
			conditions = append(conditions, n)
		}
	}

	return conditions
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*Edge {
	return append([]*Edge(nil), g.edges...)
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id string) *Edge {
	for _, e := range g.edges {
		if e.ID == id {
			return e
		}
	}

	return nil
}

// Outgoing returns the first edge leaving source through handle, or nil.
func (g *Graph) Outgoing(source string, handle Handle) *Edge {
	for _, e := range g.edges {
		if e.Source == source && e.Handle == handle {
			return e
		}
	}

	return nil
}

// OutgoingAll returns every edge leaving source.
func (g *Graph) OutgoingAll(source string) []*Edge {
	var result []*Edge

	for _, e := range g.edges {
		if e.Source == source {
			result = append(result, e)
		}
	}

	return result
}

// Incoming returns every edge arriving at target.
func (g *Graph) Incoming(target string) []*Edge {
	var result []*Edge

	for _, e := range g.edges {
		if e.Target == target {
			result = append(result, e)
		}
	}

	return result
}

// FindByStepID returns the condition node persisted as stepID, or nil.
func (g *Graph) FindByStepID(stepID int) *Node {
	for _, n := range g.nodes {
		if n.Persisted() && *n.Condition.StepID == stepID {
			return n
		}
	}

	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	clone := New()

	for _, n := range g.nodes {
		clone.AddNode(n.Clone())
	}

	for _, e := range g.edges {
		edge := *e
		clone.edges = append(clone.edges, &edge)
	}

	return clone
}

func (g *Graph) filterEdges(keep func(*Edge) bool) {
	edges := make([]*Edge, 0, len(g.edges))

	for _, e := range g.edges {
		if keep(e) {
			edges = append(edges, e)
		}
	}

	g.edges = edges
}
