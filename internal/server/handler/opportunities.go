package handler

import (
	"log/slog"
	"net/http"

	"github.com/galachain-tools/galabot/internal/domain"
)

// OpportunitySource exposes the most recent scan results.
type OpportunitySource interface {
	CurrentOpportunities() []domain.Opportunity
}

// OpportunityHandler serves detected spread opportunities, both the live
// snapshot from the engine and the persisted history.
type OpportunityHandler struct {
	engine OpportunitySource
	store  domain.OpportunityStore // nil disables history
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. store may be nil.
func NewOpportunityHandler(engine OpportunitySource, store domain.OpportunityStore, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		engine: engine,
		store:  store,
		logger: logHandler(logger, "opportunities"),
	}
}

// listOpportunityResponse wraps the list of opportunities.
type listOpportunityResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// ListOpportunities returns opportunities ranked best-first.
// GET /api/opportunities          — live results from the latest scan
// GET /api/opportunities?source=history — persisted history, newest first
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") == "history" {
		h.listHistory(w, r)
		return
	}

	opps := h.engine.CurrentOpportunities()
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunityResponse{Opportunities: opps})
}

func (h *OpportunityHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "opportunity history is not enabled")
		return
	}

	opts := parseListOpts(r)
	opps, err := h.store.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunityResponse{Opportunities: opps})
}
