package token

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/server"
)

// Handler exposes token operations over HTTP. Raw token material travels
// request-to-store only; responses carry the metadata projection at most.
type Handler struct {
	service *Service
}

// NewHandler creates the HTTP handler for the token service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes implements server.SimpleRouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/endpoints/{guid}/token", h.handlePut)
	mux.HandleFunc("DELETE /api/v1/endpoints/{guid}/token", h.handleRevoke)
	mux.HandleFunc("POST /api/v1/endpoints/{guid}/token/shared", h.handlePutShared)
	mux.HandleFunc("DELETE /api/v1/endpoints/{guid}/token/shared", h.handleRevokeShared)
}

// putRequest is the body for POST token routes.
type putRequest struct {
	Token    string            `json:"token"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		server.BadRequest(w, "token is required", r.URL.Path)
		return
	}

	if err := h.service.Put(r.Context(), r.PathValue("guid"), claims.UserID, []byte(req.Token), req.Metadata); err != nil {
		server.InternalError(w, "failed to store token", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}

	if err := h.service.Revoke(r.Context(), r.PathValue("guid"), claims.UserID); err != nil {
		if errors.Is(err, ErrAbsent) {
			server.NotFound(w, "no token stored for this endpoint", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to revoke token", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePutShared(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}
	if !claims.Admin {
		server.Forbidden(w, "storing a shared token requires admin", r.URL.Path)
		return
	}

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		server.BadRequest(w, "token is required", r.URL.Path)
		return
	}

	if err := h.service.Put(r.Context(), r.PathValue("guid"), "", []byte(req.Token), req.Metadata); err != nil {
		server.InternalError(w, "failed to store shared token", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevokeShared(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}
	if !claims.Admin {
		server.Forbidden(w, "revoking a shared token requires admin", r.URL.Path)
		return
	}

	if err := h.service.Revoke(r.Context(), r.PathValue("guid"), ""); err != nil {
		if errors.Is(err, ErrAbsent) {
			server.NotFound(w, "no shared token stored for this endpoint", r.URL.Path)
			return
		}
		server.InternalError(w, "failed to revoke shared token", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
