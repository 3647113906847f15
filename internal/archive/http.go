package archive

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	httperrors "github.com/quizhall/jeopardy-server/pkg/http/errors"
)

// HTTPHandler exposes the archived-games read endpoint.
type HTTPHandler struct {
	repo   *Repository
	logger zerolog.Logger
}

// NewHTTPHandler constructs an archive HTTP handler.
func NewHTTPHandler(repo *Repository, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		repo:   repo,
		logger: logger.With().Str("component", "archive_http").Logger(),
	}
}

// HandleRecent responds with recently finished games.
// Route: GET /v1/games/recent?limit=20
func (h *HTTPHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	games, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("recent games fetch failed")
		httperrors.RespondInternalError(w, "failed to fetch recent games")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"games": games}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
