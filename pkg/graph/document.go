package graph

// Document is the serializable form of a graph.
type Document struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Document returns a deep copy of the graph in serializable form.
func (g *Graph) Document() Document {
	clone := g.Clone()

	doc := Document{
		Nodes: clone.nodes,
		Edges: clone.edges,
	}

	if doc.Nodes == nil {
		doc.Nodes = []*Node{}
	}

	if doc.Edges == nil {
		doc.Edges = []*Edge{}
	}

	return doc
}
