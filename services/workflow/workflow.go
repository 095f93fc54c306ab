package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
)

// CreateWorkflowRequest is the JSON body of POST /workflows.
type CreateWorkflowRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Prompt      string          `json:"prompt"`
	Nodes       json.RawMessage `json:"nodes"`
	Status      store.Status    `json:"status" validate:"omitempty,oneof=inactive active running error"`
}

// UpdateWorkflowRequest is the JSON body of PUT /workflows/{id}; absent fields are kept,
// and "nodes": null counts as absent.
type UpdateWorkflowRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1"`
	Description *string         `json:"description"`
	Prompt      *string         `json:"prompt"`
	Nodes       json.RawMessage `json:"nodes"`
	Status      *store.Status   `json:"status" validate:"omitempty,oneof=inactive active running error"`
}

// NodeRequest is the JSON body for adding or reconfiguring a node.
type NodeRequest struct {
	Tool     string `json:"tool" validate:"required"`
	Function string `json:"function" validate:"required"`
	Params   Params `json:"params"`
}

// ConnectRequest is the JSON body of POST /workflows/{id}/connections.
type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// EditorState is returned by every node operation: the new list and its layout.
type EditorState struct {
	WorkflowID int64               `json:"workflowId"`
	Node       *Node               `json:"node,omitempty"`
	Nodes      []Node              `json:"nodes"`
	Graph      Graph               `json:"graph"`
	Dangling   []DanglingReference `json:"danglingReferences,omitempty"`
}

func newEditorState(id int64, nodes []Node) EditorState {
	if nodes == nil {
		nodes = []Node{}
	}
	return EditorState{
		WorkflowID: id,
		Nodes:      nodes,
		Graph:      Layout(nodes),
		Dangling:   DanglingReferences(nodes),
	}
}

// HandleListWorkflows returns every stored workflow.
func (s *Service) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := s.repo.ListWorkflows(r.Context())
	if err != nil {
		slog.Error("Failed to list workflows", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	web.WriteJSON(w, http.StatusOK, wfs)
}

// HandleCreateWorkflow stores a new workflow. The node blob only has to be a
// well-shaped envelope; graph invariants are not enforced here.
func (s *Service) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	nodes, err := normalizeNodes(req.Nodes)
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	wf, err := s.repo.CreateWorkflow(r.Context(), store.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Prompt:      req.Prompt,
		Nodes:       nodes,
		Status:      req.Status,
	})
	if err != nil {
		slog.Error("Failed to create workflow", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Debug("Created workflow", "id", wf.ID, "name", wf.Name)
	web.WriteJSON(w, http.StatusCreated, wf)
}

// HandleGetWorkflow loads a workflow definition and returns it as JSON.
func (s *Service) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	slog.Debug("Getting workflow", "id", id)

	wf, err := s.repo.GetWorkflow(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, wf)
}

// HandleUpdateWorkflow applies a partial update.
func (s *Service) HandleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	update := store.WorkflowUpdate{
		Name:        req.Name,
		Description: req.Description,
		Prompt:      req.Prompt,
		Status:      req.Status,
	}
	if hasNodes(req.Nodes) {
		if update.Nodes, err = normalizeNodes(req.Nodes); err != nil {
			web.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	wf, err := s.repo.UpdateWorkflow(r.Context(), id, update)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, wf)
}

// HandleDeleteWorkflow removes a workflow. Agents linked to it are not touched.
func (s *Service) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	if err := s.repo.DeleteWorkflow(r.Context(), id); err != nil {
		s.writeError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetGraph derives the positioned graph of a stored workflow.
func (s *Service) HandleGetGraph(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	_, nodes, err := s.load(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, newEditorState(id, nodes))
}

// HandleLayout derives the graph of a posted envelope without touching the store.
func (s *Service) HandleLayout(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	web.WriteJSON(w, http.StatusOK, newEditorState(0, env.Nodes))
}

// HandleAddNode appends a disconnected node with a generated id.
func (s *Service) HandleAddNode(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	var req NodeRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, nodes, err := s.load(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	nodes, node := AddNode(nodes, req.Tool, req.Function, req.Params)
	if _, err := s.save(r.Context(), id, nodes); err != nil {
		s.writeError(w, id, err)
		return
	}

	slog.Debug("Added node", "workflow", id, "node", node.ID, "tool", node.Tool)
	state := newEditorState(id, nodes)
	state.Node = &node
	web.WriteJSON(w, http.StatusCreated, state)
}

// HandleReconfigureNode replaces the tool, function and params of one node.
func (s *Service) HandleReconfigureNode(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	nodeID := mux.Vars(r)["nodeId"]

	var req NodeRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, nodes, err := s.load(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	nodes, err = ReconfigureNode(nodes, nodeID, req.Tool, req.Function, req.Params)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	if _, err := s.save(r.Context(), id, nodes); err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, newEditorState(id, nodes))
}

// HandleDeleteNode removes a node, severing its incoming edge and blanking references
// to it. Deleting a node that is already gone succeeds.
func (s *Service) HandleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	nodeID := mux.Vars(r)["nodeId"]

	_, nodes, err := s.load(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	nodes = DeleteNode(nodes, nodeID)
	if _, err := s.save(r.Context(), id, nodes); err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, newEditorState(id, nodes))
}

// HandleConnectNodes points source at target, replacing any earlier successor.
func (s *Service) HandleConnectNodes(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	var req ConnectRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, nodes, err := s.load(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	nodes, err = ConnectNodes(nodes, req.Source, req.Target)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	if _, err := s.save(r.Context(), id, nodes); err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, newEditorState(id, nodes))
}

// HandleDisconnectNode clears the successor of a node.
func (s *Service) HandleDisconnectNode(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	nodeID := mux.Vars(r)["nodeId"]

	_, nodes, err := s.load(r.Context(), id)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	nodes, err = DisconnectNode(nodes, nodeID)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	if _, err := s.save(r.Context(), id, nodes); err != nil {
		s.writeError(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, newEditorState(id, nodes))
}

func (s *Service) writeError(w http.ResponseWriter, id int64, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		web.WriteError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, ErrNodeNotFound):
		web.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidReference), errors.Is(err, ErrInvalidEnvelope):
		web.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("Workflow request failed", "id", id, "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// normalizeNodes checks that a node blob is a well-shaped envelope. An absent blob
// becomes an empty envelope.
func normalizeNodes(raw json.RawMessage) (json.RawMessage, error) {
	nodes, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return EncodeEnvelope(nil)
	}
	return raw, nil
}

// hasNodes reports whether a request carried a node blob other than JSON null.
func hasNodes(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
