package halloffame

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/quizhall/jeopardy-server/pkg/http/errors"
)

// HTTPHandler exposes the hall-of-fame read endpoint.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a hall-of-fame HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "halloffame_http").Logger(),
	}
}

// HandleGet responds with the top winners across all finished games.
// Route: GET /v1/halloffame?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	entries, err := h.svc.Top(r.Context(), limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("hall of fame fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeHallOfFameFetchFailed, "failed to fetch hall of fame")
		return
	}

	resp := map[string]interface{}{
		"top":         entries,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
