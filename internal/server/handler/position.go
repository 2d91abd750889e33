package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/galachain-tools/galabot/internal/domain"
)

// PositionHandler serves hold-policy position endpoints.
type PositionHandler struct {
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given store and logger.
func NewPositionHandler(positions domain.PositionStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logHandler(logger, "positions"),
	}
}

// listPositionsResponse wraps the position history plus the open position.
type listPositionsResponse struct {
	Open      *domain.Position  `json:"open"`
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns the open position (if any) and the position history,
// newest first.
// GET /api/positions?limit=50
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	resp := listPositionsResponse{Positions: []domain.Position{}}

	open, err := h.positions.GetOpen(r.Context())
	switch {
	case err == nil:
		resp.Open = &open
	case errors.Is(err, domain.ErrNotFound):
		// No open position; history alone.
	default:
		h.logger.ErrorContext(r.Context(), "get open position failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get open position")
		return
	}

	history, err := h.positions.ListHistory(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list positions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if history != nil {
		resp.Positions = history
	}

	writeJSON(w, http.StatusOK, resp)
}
