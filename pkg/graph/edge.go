package graph

// Tag classifies an edge by the handle it leaves from.
type Tag string

const (
	TagAccept  Tag = "accept"  // true branch
	TagReject  Tag = "reject"  // false branch
	TagNeutral Tag = "neutral" // terminal pass-through
)

// TagFor returns the tag of edges leaving from handle.
func TagFor(handle Handle) Tag {
	switch handle {
	case HandleTrue:
		return TagAccept
	case HandleFalse:
		return TagReject
	default:
		return TagNeutral
	}
}

// Edge is a directed connection leaving a node through a handle.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Handle Handle `json:"handle"`
	Target string `json:"target"`
	Tag    Tag    `json:"tag"`
}

// MakeEdgeID returns the stable id of the edge "{source}:{handle}->{target}".
func MakeEdgeID(source string, handle Handle, target string) string {
	return source + ":" + string(handle) + "->" + target
}
