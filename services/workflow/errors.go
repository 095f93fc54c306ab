package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeNotFound indicates an operation named a node id that is not in the list.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidReference indicates a connection or token pointing at a node that does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidEnvelope indicates a node list that could not be decoded.
	ErrInvalidEnvelope = errors.New("invalid node envelope")
)

// Issue is one problem found by Validate.
type Issue struct {
	NodeID  string `json:"nodeId,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return i.Field + ": " + i.Message
	}
	return fmt.Sprintf("node %q %s: %s", i.NodeID, i.Field, i.Message)
}

// ValidationError lists every invariant a node list breaks.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "invalid workflow: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidReference) match lists with dangling next pointers.
func (e *ValidationError) Unwrap() error {
	for _, issue := range e.Issues {
		if issue.Field == "next" {
			return ErrInvalidReference
		}
	}
	return nil
}

func nodeNotFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
}

func invalidReference(id string) error {
	return fmt.Errorf("%w: node %q does not exist", ErrInvalidReference, id)
}
