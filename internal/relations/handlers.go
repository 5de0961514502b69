package relations

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/endpoint"
	"github.com/HerbHall/fleetgate/internal/server"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// Handler exposes the relation graph's administrative operations over HTTP.
type Handler struct {
	graph *Graph
}

// NewHandler creates the HTTP handler for the graph.
func NewHandler(graph *Graph) *Handler {
	return &Handler{graph: graph}
}

// RegisterRoutes implements server.SimpleRouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/relations", h.handleList)
	mux.HandleFunc("POST /api/v1/relations", h.handleCreate)
	mux.HandleFunc("DELETE /api/v1/relations/{id}", h.handleDelete)
}

// createRequest is the body for POST /relations.
type createRequest struct {
	Provider     string            `json:"provider"`
	Target       string            `json:"target"`
	RelationType string            `json:"relation_type"`
	Metadata     map[string]string `json:"metadata"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}

	relations, err := h.graph.ListAll(r.Context())
	if err != nil {
		server.InternalError(w, "failed to list relations", r.URL.Path)
		return
	}
	if relations == nil {
		relations = []models.Relation{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(relations)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}
	if !claims.Admin {
		server.Forbidden(w, "creating relations requires admin", r.URL.Path)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.Provider == "" || req.Target == "" || req.RelationType == "" {
		server.BadRequest(w, "provider, target, and relation_type are required", r.URL.Path)
		return
	}

	rel, err := h.graph.Add(r.Context(), req.Provider, req.Target, req.RelationType, req.Metadata)
	if err != nil {
		if errors.Is(err, endpoint.ErrNotFound) {
			server.BadRequest(w, "provider or target endpoint is not registered", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to create relation", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rel)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}
	if !claims.Admin {
		server.Forbidden(w, "deleting relations requires admin", r.URL.Path)
		return
	}

	if err := h.graph.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "relation not found", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to delete relation", r.URL.Path)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
