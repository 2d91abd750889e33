// Package sink fans trade completion records out to persistence, the signal
// bus, and notification channels. The sink is fire-and-forget: it never
// blocks the trading loop and swallows downstream failures after logging
// them.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/galachain-tools/galabot/internal/cache/redis"
	"github.com/galachain-tools/galabot/internal/domain"
	"github.com/galachain-tools/galabot/internal/notify"
)

// deliveryTimeout bounds each asynchronous delivery attempt.
const deliveryTimeout = 10 * time.Second

// Sink implements domain.ResultSink. Any of the downstream targets may be
// nil; delivery to the others proceeds regardless.
type Sink struct {
	trades   domain.TradeStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New creates a Sink.
func New(trades domain.TradeStore, bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) *Sink {
	return &Sink{
		trades:   trades,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "sink")),
	}
}

// AddResult delivers the record asynchronously and returns immediately.
func (s *Sink) AddResult(rec domain.TradeRecord) {
	go s.deliver(rec)
}

func (s *Sink) deliver(rec domain.TradeRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if s.trades != nil {
		if err := s.trades.Insert(ctx, rec); err != nil {
			s.logger.Error("trade record not persisted",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()))
		}
	}

	if s.bus != nil {
		payload, err := json.Marshal(newTradeEvent(rec))
		if err == nil {
			if err := s.bus.Publish(ctx, redis.ChannelTrades, payload); err != nil {
				s.logger.Warn("trade event not published",
					slog.String("id", rec.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	if s.notifier != nil {
		s.notify(ctx, rec)
	}
}

func (s *Sink) notify(ctx context.Context, rec domain.TradeRecord) {
	var (
		event, title, message string
	)
	switch rec.State {
	case domain.ExecStateCompleted:
		event = notify.EventTradeCompleted
		title = "Trade completed"
		message = fmt.Sprintf("%s size %s: profit %s (expected %s)",
			rec.Pair, rec.Amount, rec.ActualProfit, rec.ExpectedProfit)
	case domain.ExecStateAbortedAfterBuy:
		event = notify.EventSellLegFailed
		title = "Sell leg failed: residual exposure"
		message = fmt.Sprintf("%s size %s: buy leg %s settled but sell leg did not: %s",
			rec.Pair, rec.Amount, rec.BuyTxID, rec.Error)
	default:
		// Pre-buy aborts are routine and stay out of operators' inboxes.
		return
	}

	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}

// tradeEvent is the JSON shape published on the trades channel.
type tradeEvent struct {
	Type           string           `json:"type"`
	ID             string           `json:"id"`
	Pair           string           `json:"pair"`
	Amount         domain.Amount    `json:"amount"`
	State          domain.ExecState `json:"state"`
	ExpectedProfit domain.Amount    `json:"expected_profit"`
	ActualProfit   domain.Amount    `json:"actual_profit"`
	BuyTxID        string           `json:"buy_tx_id,omitempty"`
	SellTxID       string           `json:"sell_tx_id,omitempty"`
	Error          string           `json:"error,omitempty"`
	ExecutedAt     time.Time        `json:"executed_at"`
}

func newTradeEvent(rec domain.TradeRecord) tradeEvent {
	return tradeEvent{
		Type:           "trade",
		ID:             rec.ID,
		Pair:           rec.Pair.String(),
		Amount:         rec.Amount,
		State:          rec.State,
		ExpectedProfit: rec.ExpectedProfit,
		ActualProfit:   rec.ActualProfit,
		BuyTxID:        rec.BuyTxID,
		SellTxID:       rec.SellTxID,
		Error:          rec.Error,
		ExecutedAt:     rec.ExecutedAt,
	}
}

// Compile-time interface check.
var _ domain.ResultSink = (*Sink)(nil)
