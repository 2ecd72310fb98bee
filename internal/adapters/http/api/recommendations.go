package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/okian/festa/internal/domain/types"
	"github.com/okian/festa/pkg/logger"
)

// RecommendationDependencies defines what the recommendations endpoint needs.
type RecommendationDependencies interface {
	Recommend(ctx context.Context, contentID string, topN int) (types.Recommendation, error)
	TopNLimits() (defaultN, maxN int)
}

// RecommendationsHandler handles recommendation requests.
type RecommendationsHandler struct {
	deps     RecommendationDependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps RecommendationDependencies, l logger.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps, validate: validator.New(), logger: l}
}

// HandleGetRecommendations handles GET /recommendations/{content_id}?top_n=N.
func (h *RecommendationsHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
	if contentID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingID)
		return
	}
	topN, err := h.topN(r.URL.Query().Get("top_n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	rec, err := h.deps.Recommend(r.Context(), contentID, topN)
	if err != nil {
		writeKindError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// topN parses the query value, falling back to the configured default.
func (h *RecommendationsHandler) topN(raw string) (int, error) {
	defaultN, maxN := h.deps.TopNLimits()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultN, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: top_n %q is not an integer", ErrBadRequest, raw)
	}
	if err := h.validate.Var(n, fmt.Sprintf("min=1,max=%d", maxN)); err != nil {
		return 0, fmt.Errorf("%w: top_n must be between 1 and %d", ErrBadRequest, maxN)
	}
	return n, nil
}
