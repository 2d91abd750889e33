package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/galachain-tools/galabot/internal/domain"
	"github.com/galachain-tools/galabot/internal/engine"
	"github.com/galachain-tools/galabot/internal/notify"
	"github.com/galachain-tools/galabot/internal/server"
	"github.com/galachain-tools/galabot/internal/server/handler"
	"github.com/galachain-tools/galabot/internal/server/ws"
	"github.com/galachain-tools/galabot/internal/sink"
)

// walletLockTTL bounds how long a crashed instance keeps the wallet locked.
const walletLockTTL = 5 * time.Minute

// newEngine builds the trading engine and its collaborators from the wired
// dependencies.
func (a *App) newEngine(deps *Dependencies, params engine.Params) *engine.Engine {
	resultSink := sink.New(deps.TradeStore, deps.SignalBus, deps.Notifier, a.logger)

	ledger := engine.NewLedger(deps.Gateway, deps.PositionStore, a.logger)
	ledger.SetPositionHook(func(pos domain.Position, opened bool) {
		a.notifyPosition(deps, pos, opened)
	})

	return engine.New(
		engine.NewScanner(deps.Gateway, a.logger),
		engine.NewExecutor(deps.Gateway, resultSink, a.logger),
		ledger,
		deps.OpportunityStore,
		params,
		a.logger,
	)
}

// notifyPosition fires position_opened / position_closed events.
func (a *App) notifyPosition(deps *Dependencies, pos domain.Position, opened bool) {
	if deps.Notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event, title := notify.EventPositionClosed, "Position closed"
	msg := fmt.Sprintf("%s size %s: %s", pos.Pair, pos.Amount, pos.CloseReason)
	if opened {
		event, title = notify.EventPositionOpened, "Position opened"
		msg = fmt.Sprintf("%s size %s, entry out %s", pos.Pair, pos.Amount, pos.EntryOut)
	}

	if err := deps.Notifier.Notify(ctx, event, title, msg); err != nil {
		a.logger.Warn("position notification failed", slog.String("error", err.Error()))
	}
}

// TradeMode runs the trading loop headless: no HTTP server, just the engine
// under the wallet lock.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	unlock, err := a.acquireWalletLock(ctx, deps)
	if err != nil {
		return err
	}
	defer unlock()

	params := engine.ParamsFromConfig(a.cfg)
	eng := a.newEngine(deps, params)

	eng.Start(ctx)
	defer eng.Stop()

	select {
	case <-ctx.Done():
	case <-eng.Done():
	}
	a.notifyStopped(deps, eng)
	return ctx.Err()
}

// MonitorMode scans and records opportunities without ever submitting swaps,
// and serves the read-only API.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	params := engine.ParamsFromConfig(a.cfg)
	eng := a.newEngine(deps, params)
	// Monitor mode never trades, even if an operator patches dry_run over
	// the API.
	eng.PinDryRun()

	eng.Start(ctx)
	defer eng.Stop()

	g.Go(func() error {
		return a.runPriceRefresher(ctx, deps, params)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}

	return g.Wait()
}

// ServerMode serves the API without auto-starting the engine; operators start
// and stop the loop through the engine endpoints.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	eng := a.newEngine(deps, engine.ParamsFromConfig(a.cfg))
	defer eng.Stop()

	a.startHTTPServer(ctx, g, deps, eng)

	return g.Wait()
}

// FullMode runs everything: the engine under the wallet lock, the API server,
// the price refresher, and the trade archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	unlock, err := a.acquireWalletLock(ctx, deps)
	if err != nil {
		return err
	}
	defer unlock()

	g, ctx := errgroup.WithContext(ctx)

	params := engine.ParamsFromConfig(a.cfg)
	eng := a.newEngine(deps, params)

	eng.Start(ctx)
	defer eng.Stop()

	g.Go(func() error {
		return a.runPriceRefresher(ctx, deps, params)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiver(ctx, deps.Archiver)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}

	err = g.Wait()
	a.notifyStopped(deps, eng)
	return err
}

// acquireWalletLock takes the per-wallet distributed lock so two instances
// never trade against the same balance.
func (a *App) acquireWalletLock(ctx context.Context, deps *Dependencies) (func(), error) {
	key := "wallet"
	if deps.Signer != nil {
		key = "wallet:" + deps.Signer.Address()
	}

	unlock, err := deps.LockManager.Acquire(ctx, key, walletLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("app: another instance is already trading with this wallet: %w", err)
		}
		return nil, fmt.Errorf("app: acquire wallet lock: %w", err)
	}
	return unlock, nil
}

// startHTTPServer adds the API server goroutine plus the WebSocket hub to the
// given errgroup, and a second goroutine that shuts the server down when the
// context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine.Engine) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app: ws hub: %w", err)
		}
		return nil
	})

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Status:        handler.NewStatusHandler(eng, deps.PriceCache, a.cfg.Mode),
		Opportunities: handler.NewOpportunityHandler(eng, deps.OpportunityStore, a.logger),
		Engine:        handler.NewEngineHandler(eng, ctx, a.logger),
	}
	if deps.TradeStore != nil {
		handlers.Trades = handler.NewTradeHandler(deps.TradeStore, a.logger)
	}
	if deps.PositionStore != nil {
		handlers.Positions = handler.NewPositionHandler(deps.PositionStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimiter: deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runPriceRefresher keeps the dashboard reference price warm by quoting a
// unit of the first configured pair and caching the implied rate.
func (a *App) runPriceRefresher(ctx context.Context, deps *Dependencies, params engine.Params) error {
	if len(params.Pairs) == 0 || len(params.FeeTiers) == 0 {
		return nil
	}
	pair := params.Pairs[0]
	tier := params.FeeTiers[0]
	unit := domain.MustParseAmount("1")
	// The dashboard looks prices up by "GIVE/RECEIVE" symbol.
	symbol := pair.Give.Symbol() + "/" + pair.Receive.Symbol()

	interval := a.cfg.Redis.PriceTTL.Duration / 2
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		quote, err := deps.Gateway.GetQuote(ctx, pair, unit, tier)
		if err != nil {
			a.logger.DebugContext(ctx, "price refresh skipped",
				slog.String("pair", pair.String()),
				slog.String("error", err.Error()),
			)
		} else if err := deps.PriceCache.SetPrice(ctx, symbol, quote.AmountOut.Float64(), time.Now()); err != nil {
			a.logger.WarnContext(ctx, "price cache update failed",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runArchiver exports aged trade records to blob storage once a day.
func (a *App) runArchiver(ctx context.Context, archiver domain.Archiver) error {
	retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return nil
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().Add(-retention)
		count, err := archiver.ArchiveTrades(ctx, cutoff)
		if err != nil {
			a.logger.ErrorContext(ctx, "trade archive run failed",
				slog.String("error", err.Error()),
			)
		} else if count > 0 {
			a.logger.InfoContext(ctx, "trade archive run complete",
				slog.Int64("archived", count),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// notifyStopped fires the engine_stopped event with final run statistics.
func (a *App) notifyStopped(deps *Dependencies, eng *engine.Engine) {
	if deps.Notifier == nil {
		return
	}
	status := eng.Status()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := fmt.Sprintf("trades %d, profit %s", status.TotalTrades, status.TotalProfit)
	if err := deps.Notifier.Notify(ctx, notify.EventEngineStopped, "Engine stopped", msg); err != nil {
		a.logger.Warn("stop notification failed", slog.String("error", err.Error()))
	}
}
