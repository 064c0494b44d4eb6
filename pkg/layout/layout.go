// Package layout computes deterministic canvas positions for a workflow graph.
//
// The graph is walked breadth first from the initial step. Conditions sit on
// the row of their depth; the true subtree is placed to the left of its parent
// and the false subtree to the right, each sized by its number of leaves so
// sibling subtrees never overlap. Terminals take the slot of the handle they
// hang from, a fixed offset below their condition. Components not reachable
// from the initial step are stacked below, in declaration order.
package layout

import (
	"github.com/dukex/stepflow/pkg/graph"
)

// Options controls spacing. Positions are node centers.
type Options struct {
	NodeWidth       int
	HorizontalGap   int
	LevelHeight     int
	TerminalOffsetY int
	TerminalReserve int // extra row height when a row has terminals beneath it
	Origin          graph.Position
}

// DefaultOptions returns the spacing used by the builder.
func DefaultOptions() Options {
	return Options{
		NodeWidth:       260,
		HorizontalGap:   40,
		LevelHeight:     200,
		TerminalOffsetY: 180,
		TerminalReserve: 160,
	}
}

// unit is the horizontal distance between two neighbouring leaves.
func (o Options) unit() int {
	return o.NodeWidth + o.HorizontalGap
}

// Apply computes the layout and writes it onto g.
func Apply(g *graph.Graph, rootID string, opts Options) map[string]graph.Position {
	positions := Compute(g, rootID, opts)

	for id, pos := range positions {
		g.SetPosition(id, pos)
	}

	return positions
}

// Compute returns a position for every node of g without modifying it.
func Compute(g *graph.Graph, rootID string, opts Options) map[string]graph.Position {
	l := &layouter{
		g:         g,
		opts:      opts,
		visited:   map[string]bool{},
		positions: make(map[string]graph.Position, g.Len()),
	}

	baseY := opts.Origin.Y
	if root := g.Node(rootID); root != nil {
		baseY = l.component(root.ID, baseY)
	}

	var free []*graph.Node

	// Roots without incoming edges first, then whatever is left (cycles).
	for _, requireRoot := range []bool{true, false} {
		for _, n := range g.Nodes() {
			if l.visited[n.ID] {
				continue
			}

			incoming := len(g.Incoming(n.ID))
			if requireRoot && incoming > 0 {
				continue
			}

			if n.IsTerminal() && incoming == 0 && len(g.OutgoingAll(n.ID)) == 0 {
				l.visited[n.ID] = true
				free = append(free, n)

				continue
			}

			baseY = l.component(n.ID, baseY)
		}
	}

	for i, n := range free {
		l.positions[n.ID] = graph.Position{X: opts.Origin.X + i*opts.unit(), Y: baseY}
	}

	return l.positions
}

type layouter struct {
	g         *graph.Graph
	opts      Options
	visited   map[string]bool
	positions map[string]graph.Position
}

// slot is one node of the traversal tree of a component.
type slot struct {
	id       string
	depth    int
	offset   bool // terminal hanging below its condition
	children map[graph.Handle]*slot
	left     int // extent left of the center, in half units
	right    int // extent right of the center, in half units
}

// component lays out the tree reachable from rootID with its first row at
// baseY and returns the y of the next free row.
func (l *layouter) component(rootID string, baseY int) int {
	root, order := l.walk(rootID)

	measure(root)

	maxDepth := 0
	reserve := map[int]bool{}

	for _, s := range order {
		if s.depth > maxDepth {
			maxDepth = s.depth
		}

		if s.offset {
			reserve[s.depth] = true
		}
	}

	rows := make([]int, maxDepth+1)
	rows[0] = baseY

	for d := 1; d <= maxDepth; d++ {
		rows[d] = rows[d-1] + l.opts.LevelHeight
		if reserve[d-1] {
			rows[d] += l.opts.TerminalReserve
		}
	}

	l.place(root, 0, rows)

	lowest := baseY
	for _, s := range order {
		if y := l.positions[s.id].Y; y > lowest {
			lowest = y
		}
	}

	return lowest + l.opts.LevelHeight
}

// walk builds the breadth first traversal tree from rootID. Exits are taken
// in handle order, so the result only depends on the graph.
func (l *layouter) walk(rootID string) (*slot, []*slot) {
	root := &slot{id: rootID, children: map[graph.Handle]*slot{}}
	l.visited[rootID] = true

	order := []*slot{root}

	for i := 0; i < len(order); i++ {
		parent := order[i]

		node := l.g.Node(parent.id)
		if node == nil {
			continue
		}

		for _, handle := range exits(node) {
			edge := l.g.Outgoing(node.ID, handle)
			if edge == nil || l.visited[edge.Target] {
				continue
			}

			target := l.g.Node(edge.Target)
			if target == nil {
				continue
			}

			l.visited[target.ID] = true

			child := &slot{id: target.ID, children: map[graph.Handle]*slot{}}

			switch {
			case node.IsCondition() && target.IsTerminal():
				child.depth = parent.depth
				child.offset = true
			default:
				child.depth = parent.depth + 1
			}

			parent.children[handle] = child
			order = append(order, child)
		}
	}

	return root, order
}

func exits(n *graph.Node) []graph.Handle {
	switch n.Kind {
	case graph.KindCondition:
		return graph.Handles
	case graph.KindSuccess, graph.KindFail:
		return []graph.Handle{graph.HandleNext}
	default:
		return nil
	}
}

// measure computes subtree extents. A leaf is one unit wide; a condition
// reserves the width of its true subtree on the left and of its false subtree
// on the right; a terminal is centered over the condition it leads to.
func measure(s *slot) {
	for _, child := range s.children {
		measure(child)
	}

	s.left, s.right = 1, 1

	if next := s.children[graph.HandleNext]; next != nil {
		s.left = max(1, next.left)
		s.right = max(1, next.right)

		return
	}

	if t := s.children[graph.HandleTrue]; t != nil {
		s.left = max(1, t.left+t.right)
	}

	if f := s.children[graph.HandleFalse]; f != nil {
		s.right = max(1, f.left+f.right)
	}
}

func (l *layouter) place(s *slot, center int, rows []int) {
	y := rows[s.depth]
	if s.offset {
		y += l.opts.TerminalOffsetY
	}

	l.positions[s.id] = graph.Position{
		X: l.opts.Origin.X + center*l.opts.unit()/2,
		Y: y,
	}

	if next := s.children[graph.HandleNext]; next != nil {
		l.place(next, center, rows)
	}

	if t := s.children[graph.HandleTrue]; t != nil {
		l.place(t, center-t.right, rows)
	}

	if f := s.children[graph.HandleFalse]; f != nil {
		l.place(f, center+f.left, rows)
	}
}
