package info

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/server"
)

// Handler exposes the aggregated info query over HTTP.
type Handler struct {
	aggregator *Aggregator
}

// NewHandler creates the HTTP handler for the aggregator.
func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// RegisterRoutes implements server.SimpleRouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/info", h.handleInfo)
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.Unauthorized(w, "no authenticated session", r.URL.Path)
		return
	}

	snap, err := h.aggregator.Build(r.Context(), claims.ModelUser())
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			server.Unauthorized(w, "no authenticated session", r.URL.Path)
		case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
			// Client went away; nothing useful to write.
		default:
			server.InternalError(w, "failed to build info snapshot", r.URL.Path)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}
