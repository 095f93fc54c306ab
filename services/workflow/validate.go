package workflow

import (
	"sort"
	"strconv"
)

// Validate checks the invariants of a well-formed node list: non-empty unique ids,
// a tool and function on every node, and next pointers that resolve. It returns a
// *ValidationError describing every problem, or nil.
func Validate(nodes []Node) error {
	var issues []Issue

	seen := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			issues = append(issues, Issue{Field: "id", Message: "node at index " + strconv.Itoa(i) + " has no id"})
			continue
		}
		if seen[n.ID] {
			issues = append(issues, Issue{NodeID: n.ID, Field: "id", Message: "duplicate id"})
		}
		seen[n.ID] = true
	}

	for _, n := range nodes {
		if n.Tool == "" {
			issues = append(issues, Issue{NodeID: n.ID, Field: "tool", Message: "is required"})
		}
		if n.Function == "" {
			issues = append(issues, Issue{NodeID: n.ID, Field: "function", Message: "is required"})
		}
		if n.Next != "" && !seen[n.Next] {
			issues = append(issues, Issue{NodeID: n.ID, Field: "next", Message: "points at unknown node " + n.Next})
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// DanglingReference is a reference token naming a node absent from the list.
type DanglingReference struct {
	NodeID string `json:"nodeId"`
	Param  string `json:"param"`
	Target string `json:"target"`
}

// DanglingReferences reports reference tokens that name nodes not in the list, in list
// order and then by parameter name.
func DanglingReferences(nodes []Node) []DanglingReference {
	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}

	var out []DanglingReference
	for _, n := range nodes {
		keys := make([]string, 0, len(n.Params))
		for k := range n.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if r, ok := n.Params[k].Ref(); ok && !exists[r.NodeID] {
				out = append(out, DanglingReference{NodeID: n.ID, Param: k, Target: r.NodeID})
			}
		}
	}
	return out
}
