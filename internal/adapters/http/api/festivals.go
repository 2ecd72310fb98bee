package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/festa/internal/domain/types"
	"github.com/okian/festa/pkg/logger"
)

// FestivalDependencies defines the catalog reads exposed over HTTP.
type FestivalDependencies interface {
	Festivals(ctx context.Context, districtCode string) ([]types.Festival, error)
	Festival(ctx context.Context, contentID string) (types.Festival, error)
}

// FestivalsHandler handles catalog requests.
type FestivalsHandler struct {
	deps   FestivalDependencies
	logger logger.Logger
}

// NewFestivalsHandler creates a new festivals handler.
func NewFestivalsHandler(deps FestivalDependencies, l logger.Logger) *FestivalsHandler {
	return &FestivalsHandler{deps: deps, logger: l}
}

// HandleListFestivals handles GET /festivals?sigungucode=C.
func (h *FestivalsHandler) HandleListFestivals(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Festivals(r.Context(), r.URL.Query().Get("sigungucode"))
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGetFestival handles GET /festivals/{content_id}.
func (h *FestivalsHandler) HandleGetFestival(w http.ResponseWriter, r *http.Request) {
	contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
	if contentID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingID)
		return
	}
	f, err := h.deps.Festival(r.Context(), contentID)
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
