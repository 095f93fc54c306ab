package workflow

// Node is a single step of a workflow: one tool function call with its parameters,
// optionally chained to a successor through Next.
type Node struct {
	ID       string `json:"id"`
	Tool     string `json:"tool"`
	Function string `json:"function"`
	Params   Params `json:"params"`
	Next     string `json:"next,omitempty"`
}

// Envelope is the wire and storage format of a node list.
type Envelope struct {
	Nodes []Node `json:"nodes"`
}

// Position holds x/y coordinates for rendering the node on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayNode is a node placed on the canvas by Layout.
type DisplayNode struct {
	ID       string   `json:"id"`
	Tool     string   `json:"tool"`
	Function string   `json:"function"`
	Params   Params   `json:"params"`
	Level    int      `json:"level"`
	Position Position `json:"position"`
}

// Edge represents a directed connection between two nodes, one per Next pointer.
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

// Graph is the rendering-ready projection of a node list.
type Graph struct {
	Nodes []DisplayNode `json:"nodes"`
	Edges []Edge        `json:"edges"`
}

func (n Node) clone() Node {
	n.Params = n.Params.Clone()
	return n
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].clone()
	}
	return out
}

func indexOf(nodes []Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}
