package workflow

import "fmt"

const (
	// HorizontalGap is the distance between neighbouring nodes on one level.
	HorizontalGap = 300.0
	// VerticalGap is the distance between two levels.
	VerticalGap = 150.0

	edgeType = "smoothstep"
)

// Roots returns, in list order, the ids of nodes no other node points at.
func Roots(nodes []Node) []string {
	targets := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Next != "" {
			targets[n.Next] = true
		}
	}

	var roots []string
	for _, n := range nodes {
		if !targets[n.ID] {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Levels assigns every node its depth along the next chains.
//
// Each root is walked forward and the k-th node of a walk is offered level k; a node
// reached from several roots keeps the deepest offer. A walk ends at a terminal node,
// at a next pointer that resolves to nothing, or when it returns to a node it already
// passed (the second visit is treated as a leaf).
//
// Nodes that no root reaches only sit on cycles. The first of them in list order is
// then walked as a root at level 0, over the nodes still without a level, until every
// node has one.
func Levels(nodes []Node) map[string]int {
	byID := make(map[string]*Node, len(nodes))
	for i := range nodes {
		if _, dup := byID[nodes[i].ID]; !dup {
			byID[nodes[i].ID] = &nodes[i]
		}
	}

	levels := make(map[string]int, len(nodes))
	walk := func(start string, skip func(string) bool) {
		seen := make(map[string]bool)
		depth := 0
		for id := start; id != ""; depth++ {
			n, ok := byID[id]
			if !ok || seen[id] || skip(id) {
				return
			}
			seen[id] = true
			if cur, ok := levels[id]; !ok || depth > cur {
				levels[id] = depth
			}
			id = n.Next
		}
	}

	never := func(string) bool { return false }
	for _, root := range Roots(nodes) {
		walk(root, never)
	}

	for {
		start, found := "", false
		for _, n := range nodes {
			if _, ok := levels[n.ID]; !ok {
				start, found = n.ID, true
				break
			}
		}
		if !found {
			break
		}
		if start == "" {
			// malformed list: an empty id cannot be walked
			levels[start] = 0
			continue
		}

		leveled := make(map[string]bool, len(levels))
		for id := range levels {
			leveled[id] = true
		}
		walk(start, func(id string) bool { return leveled[id] })
	}
	return levels
}

// Layout positions every node by level and derives one edge per resolvable next pointer.
// Levels stack top to bottom; within a level nodes keep list order and are centred
// against the widest level.
func Layout(nodes []Node) Graph {
	levels := Levels(nodes)

	rows := make(map[int][]string)
	maxLevel := -1
	for _, n := range nodes {
		lvl := levels[n.ID]
		if containsID(rows[lvl], n.ID) {
			continue
		}
		rows[lvl] = append(rows[lvl], n.ID)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	maxWidth := 0
	for _, row := range rows {
		if len(row) > maxWidth {
			maxWidth = len(row)
		}
	}

	positions := make(map[string]Position, len(nodes))
	for lvl := 0; lvl <= maxLevel; lvl++ {
		row := rows[lvl]
		centerOffset := float64(maxWidth-len(row)) / 2
		for i, id := range row {
			positions[id] = Position{
				X: (float64(i) + centerOffset) * HorizontalGap,
				Y: float64(lvl) * VerticalGap,
			}
		}
	}

	graph := Graph{
		Nodes: make([]DisplayNode, 0, len(nodes)),
		Edges: make([]Edge, 0, len(nodes)),
	}
	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}

	for _, n := range nodes {
		graph.Nodes = append(graph.Nodes, DisplayNode{
			ID:       n.ID,
			Tool:     n.Tool,
			Function: n.Function,
			Params:   n.Params.Clone(),
			Level:    levels[n.ID],
			Position: positions[n.ID],
		})

		if n.Next == "" || !exists[n.Next] {
			continue
		}
		graph.Edges = append(graph.Edges, Edge{
			ID:       fmt.Sprintf("e%s-%s", n.ID, n.Next),
			Source:   n.ID,
			Target:   n.Next,
			Type:     edgeType,
			Animated: true,
		})
	}
	return graph
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
