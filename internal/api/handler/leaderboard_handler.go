package handler

import (
	"contest_room/internal/api/view"
	"contest_room/internal/app/service"
	"contest_room/internal/common"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	contestService *service.ContestService
	logger         *slog.Logger
}

func NewLeaderboardHandler(cs *service.ContestService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{contestService: cs, logger: logger}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/leaderboard", h.getLeaderboard)
}

// getLeaderboard renders HTML unless the client asks for JSON.
func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.contestService.Leaderboard(r.Context())
	if err != nil {
		if wantsJSON(r) {
			h.logger.Error("leaderboard failed", "error", err)
			common.RespondWithJSONError(w, common.HTTPStatusFromError(err), "leaderboard unavailable")
			return
		}
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	if wantsJSON(r) {
		common.RespondWithJSON(w, http.StatusOK, entries)
		return
	}
	body, err := view.Leaderboard(entries)
	if err != nil {
		respondWithDomainError(w, r, h.logger, common.Errorf("render: %v: %w", err, common.ErrInternalServer))
		return
	}
	common.RespondWithHTML(w, http.StatusOK, body)
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
