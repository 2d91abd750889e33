package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/galachain-tools/galabot/internal/domain"
)

// TradeHandler serves executed trade records.
type TradeHandler struct {
	trades domain.TradeStore
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given store and logger.
func NewTradeHandler(trades domain.TradeStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logHandler(logger, "trades"),
	}
}

// listTradeResponse wraps the list of trade records plus rolling profit.
type listTradeResponse struct {
	Trades    []domain.TradeRecord `json:"trades"`
	Profit24h domain.Amount        `json:"profit_24h"`
	Profit7d  domain.Amount        `json:"profit_7d"`
}

// ListTrades returns recent trades, newest first, with rolling profit sums.
// GET /api/trades?limit=50
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	trades, err := h.trades.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}

	now := time.Now()
	resp := listTradeResponse{Trades: trades}
	// Rolling sums are best-effort; a failure leaves them at zero.
	if p, err := h.trades.SumProfit(r.Context(), now.Add(-24*time.Hour)); err == nil {
		resp.Profit24h = p
	}
	if p, err := h.trades.SumProfit(r.Context(), now.Add(-7*24*time.Hour)); err == nil {
		resp.Profit7d = p
	}

	writeJSON(w, http.StatusOK, resp)
}
