// Package catalog serves the tool catalog over HTTP.
package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
)

// Service exposes the tool catalog.
type Service struct {
	tools store.ToolRepo
}

func NewService(tools store.ToolRepo) *Service {
	return &Service{tools: tools}
}

// LoadRoutes registers tool handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.PathPrefix("/tools").Subrouter()
	router.Use(web.JSONMiddleware)

	router.HandleFunc("", s.HandleList).Methods("GET")
	router.HandleFunc("/{name}", s.HandleGet).Methods("GET")
	router.HandleFunc("/{name}/enabled", s.HandleSetEnabled).Methods("PUT")
}

// SetEnabledRequest is the JSON body of PUT /tools/{name}/enabled.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (s *Service) HandleList(w http.ResponseWriter, r *http.Request) {
	tools, err := s.tools.ListTools(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, tools)
}

func (s *Service) HandleGet(w http.ResponseWriter, r *http.Request) {
	tool, err := s.tools.GetTool(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, tool)
}

// HandleSetEnabled switches a tool on or off. Disabled tools are hidden from the
// generator prompt but stay valid in stored workflows.
func (s *Service) HandleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req SetEnabledRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tool, err := s.tools.SetToolEnabled(r.Context(), mux.Vars(r)["name"], *req.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Tool toggled", "tool", tool.Name, "enabled", tool.Enabled)
	web.WriteJSON(w, http.StatusOK, tool)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		web.WriteError(w, http.StatusNotFound, "tool not found")
		return
	}
	slog.Error("Tool request failed", "error", err)
	web.WriteError(w, http.StatusInternalServerError, "internal server error")
}
