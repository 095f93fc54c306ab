package workflow

import "strconv"

// NewNodeID returns an id unused by nodes: one past the largest numeric id, so ids
// stay short and ordered in the editor.
func NewNodeID(nodes []Node) string {
	used := make(map[string]bool, len(nodes))
	highest := 0
	for _, n := range nodes {
		used[n.ID] = true
		if v, err := strconv.Atoi(n.ID); err == nil && v > highest {
			highest = v
		}
	}

	next := highest + 1
	for used[strconv.Itoa(next)] {
		next++
	}
	return strconv.Itoa(next)
}

// AddNode appends a disconnected node with a fresh id and returns the new list and node.
func AddNode(nodes []Node, tool, function string, params Params) ([]Node, Node) {
	node := Node{
		ID:       NewNodeID(nodes),
		Tool:     tool,
		Function: function,
		Params:   params.Clone(),
	}

	out := make([]Node, 0, len(nodes)+1)
	out = append(out, cloneNodes(nodes)...)
	out = append(out, node)
	return out, node.clone()
}

// DeleteNode removes the node with the given id. Predecessors pointing at it lose their
// next pointer (the chain is cut, not spliced) and every reference to it is blanked.
// Deleting an unknown id returns an unchanged copy.
func DeleteNode(nodes []Node, id string) []Node {
	if indexOf(nodes, id) < 0 {
		return cloneNodes(nodes)
	}

	out := make([]Node, 0, len(nodes)-1)
	for _, n := range nodes {
		if n.ID == id {
			continue
		}
		n = n.clone()
		if n.Next == id {
			n.Next = ""
		}
		for k, v := range n.Params {
			if r, ok := v.Ref(); ok && r.NodeID == id {
				n.Params[k] = String("")
			}
		}
		out = append(out, n)
	}
	return out
}

// ConnectNodes points source at target, replacing any previous successor. Self loops
// and cycles are allowed; a missing target is rejected.
func ConnectNodes(nodes []Node, source, target string) ([]Node, error) {
	src := indexOf(nodes, source)
	if src < 0 {
		return nil, nodeNotFound(source)
	}
	if indexOf(nodes, target) < 0 {
		return nil, invalidReference(target)
	}

	out := cloneNodes(nodes)
	out[src].Next = target
	return out, nil
}

// DisconnectNode clears the successor of source.
func DisconnectNode(nodes []Node, source string) ([]Node, error) {
	src := indexOf(nodes, source)
	if src < 0 {
		return nil, nodeNotFound(source)
	}

	out := cloneNodes(nodes)
	out[src].Next = ""
	return out, nil
}

// ReconfigureNode replaces the tool, function and params of a node, keeping its id and next.
func ReconfigureNode(nodes []Node, id, tool, function string, params Params) ([]Node, error) {
	i := indexOf(nodes, id)
	if i < 0 {
		return nil, nodeNotFound(id)
	}

	out := cloneNodes(nodes)
	out[i].Tool = tool
	out[i].Function = function
	out[i].Params = params.Clone()
	return out, nil
}
