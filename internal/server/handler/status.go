package handler

import (
	"net/http"
	"time"

	"github.com/galachain-tools/galabot/internal/domain"
)

// StatusService exposes the engine state the dashboard needs.
type StatusService interface {
	Status() domain.EngineStatus
}

// StatusHandler serves the backend status (mode, engine state) for the
// dashboard.
type StatusHandler struct {
	engine StatusService
	prices domain.PriceCache // nil disables the reference price
	mode   string
}

// NewStatusHandler creates a StatusHandler for the given run mode. prices may
// be nil.
func NewStatusHandler(engine StatusService, prices domain.PriceCache, mode string) *StatusHandler {
	return &StatusHandler{engine: engine, prices: prices, mode: mode}
}

// GetStatus responds with the current backend mode and engine snapshot.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status()

	var uptime int64
	if status.Running && !status.StartedAt.IsZero() {
		uptime = int64(time.Since(status.StartedAt).Seconds())
	}

	resp := map[string]any{
		"mode":           h.mode,
		"running":        status.Running,
		"policy":         status.Policy,
		"total_trades":   status.TotalTrades,
		"total_profit":   status.TotalProfit,
		"uptime_seconds": uptime,
	}

	// The reference price is best-effort; a cold cache just omits it.
	if h.prices != nil {
		if price, ts, err := h.prices.GetPrice(r.Context(), "GALA/GUSDC"); err == nil {
			resp["gala_price"] = price
			resp["gala_price_at"] = ts.UTC().Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
