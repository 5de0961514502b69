package endpoint

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/server"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// Handler exposes the endpoint registry over HTTP.
type Handler struct {
	registry *Registry
}

// NewHandler creates the HTTP handler for the registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes implements server.SimpleRouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/endpoints", h.handleList)
	mux.HandleFunc("POST /api/v1/endpoints", h.handleRegister)
	mux.HandleFunc("GET /api/v1/endpoints/{guid}", h.handleGet)
	mux.HandleFunc("DELETE /api/v1/endpoints/{guid}", h.handleRemove)
}

// registerRequest is the body for POST /endpoints.
type registerRequest struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Version     string            `json:"version"`
	APIEndpoint string            `json:"api_endpoint"`
	AdminOnly   bool              `json:"admin_only"`
	Metadata    map[string]string `json:"metadata"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}

	endpoints, err := h.registry.List(r.Context())
	if err != nil {
		server.InternalError(w, "failed to list endpoints", r.URL.Path)
		return
	}

	// Non-admins never see admin-only endpoints.
	visible := make([]models.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.AdminOnly && !claims.Admin {
			continue
		}
		visible = append(visible, ep)
	}

	writeJSON(w, http.StatusOK, visible)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}

	ep, err := h.registry.Get(r.Context(), r.PathValue("guid"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "endpoint not registered", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to load endpoint", r.URL.Path)
		return
	}
	if ep.AdminOnly && !claims.Admin {
		server.NotFound(w, "endpoint not registered", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, ep)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}
	if !claims.Admin {
		server.Forbidden(w, "registering endpoints requires admin", r.URL.Path)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.Name == "" || req.Type == "" || req.APIEndpoint == "" {
		server.BadRequest(w, "name, type, and api_endpoint are required", r.URL.Path)
		return
	}

	ep, err := h.registry.Register(r.Context(), models.Endpoint{
		Name:        req.Name,
		Type:        models.EndpointType(req.Type),
		Version:     req.Version,
		APIEndpoint: req.APIEndpoint,
		AdminOnly:   req.AdminOnly,
		Metadata:    req.Metadata,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			server.Conflict(w, "endpoint GUID already registered", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to register endpoint", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusCreated, ep)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}
	if !claims.Admin {
		server.Forbidden(w, "unregistering endpoints requires admin", r.URL.Path)
		return
	}

	if err := h.registry.Remove(r.Context(), r.PathValue("guid")); err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "endpoint not registered", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to remove endpoint", r.URL.Path)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
