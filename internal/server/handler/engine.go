package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/galachain-tools/galabot/internal/engine"
)

// EngineService defines the engine controls the handler requires.
type EngineService interface {
	Start(ctx context.Context)
	Stop()
	UpdateConfig(patch engine.Patch)
	Params() engine.Params
}

// EngineHandler serves engine lifecycle and configuration endpoints.
type EngineHandler struct {
	engine EngineService
	// baseCtx is the application run context. The loop must outlive the
	// request that started it, so Start never uses the request context.
	baseCtx context.Context
	logger  *slog.Logger
}

// NewEngineHandler creates an EngineHandler bound to the given run context.
func NewEngineHandler(svc EngineService, baseCtx context.Context, logger *slog.Logger) *EngineHandler {
	return &EngineHandler{
		engine:  svc,
		baseCtx: baseCtx,
		logger:  logHandler(logger, "engine"),
	}
}

// StartEngine launches the trading loop if it is not already running.
// POST /api/engine/start
func (h *EngineHandler) StartEngine(w http.ResponseWriter, r *http.Request) {
	h.engine.Start(h.baseCtx)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// StopEngine requests a cooperative shutdown of the trading loop.
// POST /api/engine/stop
func (h *EngineHandler) StopEngine(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// GetConfig returns the engine's current parameters.
// GET /api/engine/config
func (h *EngineHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Params())
}

// UpdateConfig merges a partial parameter update. Changes take effect at the
// next cycle.
// PUT /api/engine/config
func (h *EngineHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch engine.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	h.engine.UpdateConfig(patch)
	h.logger.InfoContext(r.Context(), "engine config updated via api")

	writeJSON(w, http.StatusOK, h.engine.Params())
}
