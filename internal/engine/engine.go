// Package engine implements the trading loop: scanning fee-tier venues for
// spread opportunities, executing two-leg swaps, and tracking run statistics
// and hold positions.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/galachain-tools/galabot/internal/domain"
	"github.com/galachain-tools/galabot/internal/lunar"
)

// Engine is the strategy loop. One Engine runs at most one loop goroutine;
// Start while running is a warned no-op.
type Engine struct {
	scanner  *Scanner
	executor *Executor
	ledger   *Ledger
	oppStore domain.OpportunityStore // nil disables opportunity persistence
	logger   *slog.Logger

	mu        sync.Mutex
	params    Params
	pinDryRun bool
	current   []domain.Opportunity
	startedAt time.Time

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	// gen identifies the current loop goroutine. A loop superseded by
	// Stop+Start must not clear the running flag on its way out.
	gen uint64
}

// New creates an Engine. oppStore may be nil.
func New(scanner *Scanner, executor *Executor, ledger *Ledger, oppStore domain.OpportunityStore, params Params, logger *slog.Logger) *Engine {
	return &Engine{
		scanner:  scanner,
		executor: executor,
		ledger:   ledger,
		oppStore: oppStore,
		params:   params,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Start launches the loop goroutine. Starting an already-running engine logs
// a warning and does nothing.
func (e *Engine) Start(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Warn("start ignored: engine already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.cancel = cancel
	e.done = make(chan struct{})
	e.startedAt = time.Now()
	e.gen++
	done := e.done
	gen := e.gen
	e.mu.Unlock()

	e.logger.Info("engine starting", slog.String("policy", string(e.snapshotParams().Policy)))

	go e.loop(loopCtx, done, gen)
}

// Stop requests a cooperative shutdown. It does not wait for the loop to
// finish; in-flight work observes the stop at its next checkpoint. Stopping
// a stopped engine is a no-op.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}

	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	stats := e.ledger.Stats()
	e.logger.Info("engine stopping",
		slog.Int64("total_trades", stats.TotalTrades),
		slog.String("total_profit", stats.TotalProfit.String()))
}

// Done returns a channel closed when the loop goroutine has exited. It
// returns nil if the engine was never started.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Status returns a read-only snapshot for dashboards.
func (e *Engine) Status() domain.EngineStatus {
	stats := e.ledger.Stats()
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.EngineStatus{
		Running:     e.running.Load(),
		Policy:      string(e.params.Policy),
		TotalTrades: stats.TotalTrades,
		TotalProfit: stats.TotalProfit,
		StartedAt:   e.startedAt,
	}
}

// CurrentOpportunities returns the opportunities found by the most recent
// scan, ranked best-first.
func (e *Engine) CurrentOpportunities() []domain.Opportunity {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Opportunity, len(e.current))
	copy(out, e.current)
	return out
}

// UpdateConfig merges a partial parameter update. Changes take effect at the
// next cycle; the in-flight cycle finishes under the old parameters.
func (e *Engine) UpdateConfig(patch Patch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.apply(patch)
	e.logger.Info("engine config updated", slog.String("policy", string(e.params.Policy)))
}

// PinDryRun forces dry-run for the lifetime of the engine; runtime config
// updates cannot unpin it. Monitoring deployments set this so no API call can
// flip them into live trading.
func (e *Engine) PinDryRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinDryRun = true
	e.params.DryRun = true
}

// Params returns a copy of the current parameters.
func (e *Engine) Params() Params {
	return e.snapshotParams()
}

func (e *Engine) snapshotParams() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.params
	if e.pinDryRun {
		p.DryRun = true
	}
	return p
}

// loop is the scheduler: scan, execute, sleep, repeat. Transport errors back
// off and retry forever; only Stop or context cancellation ends the loop.
func (e *Engine) loop(ctx context.Context, done chan struct{}, gen uint64) {
	defer e.finish(gen, done)

	for {
		params := e.snapshotParams()

		sleep := params.CheckInterval
		if err := e.cycle(ctx, params); err != nil {
			if ctx.Err() != nil {
				e.logFinal()
				return
			}
			e.logger.Error("cycle failed, backing off",
				slog.String("error", err.Error()),
				slog.Duration("backoff", params.ErrorBackoff))
			sleep = params.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			e.logFinal()
			return
		case <-time.After(sleep):
		}
	}
}

// finish is the loop's exit path. It clears the running flag only while this
// loop is still the engine's current one, so an old loop draining an
// in-flight cycle cannot clobber the state of a loop started after it.
func (e *Engine) finish(gen uint64, done chan struct{}) {
	e.mu.Lock()
	if gen == e.gen {
		e.running.Store(false)
	}
	e.mu.Unlock()
	close(done)
}

func (e *Engine) logFinal() {
	stats := e.ledger.Stats()
	e.logger.Info("engine stopped",
		slog.Int64("total_trades", stats.TotalTrades),
		slog.String("total_profit", stats.TotalProfit.String()))
}

// cycle runs one iteration under a fixed parameter snapshot.
func (e *Engine) cycle(ctx context.Context, params Params) error {
	if params.Policy == PolicyLunarHold {
		return e.holdCycle(ctx, params)
	}
	return e.arbCycle(ctx, params)
}

// arbCycle scans for spreads and executes the best one.
func (e *Engine) arbCycle(ctx context.Context, params Params) error {
	opps, err := e.scanner.Scan(ctx, params)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.current = opps
	e.mu.Unlock()

	if e.oppStore != nil {
		for _, opp := range opps {
			if err := e.oppStore.Insert(ctx, opp); err != nil {
				e.logger.Warn("opportunity not persisted",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	if len(opps) == 0 {
		return nil
	}

	if params.DryRun {
		e.logger.Info("dry run: skipping execution",
			slog.String("pair", opps[0].Pair.String()),
			slog.Float64("profit_pct", opps[0].ProfitPct))
		return nil
	}

	rec := e.executor.Execute(ctx, opps[0], params, func() bool {
		return e.running.Load() && ctx.Err() == nil
	})
	e.ledger.RecordCompleted(rec)

	return nil
}

// holdCycle manages the lunar position: evaluate exits first, then consider
// a new-moon entry when flat.
func (e *Engine) holdCycle(ctx context.Context, params Params) error {
	closed, err := e.ledger.EvaluatePosition(ctx, params)
	if err != nil {
		return err
	}
	if closed || e.ledger.HasOpenPosition(ctx) {
		return nil
	}

	now := time.Now()
	if !lunar.IsNew(now) {
		return nil
	}
	if params.DryRun || len(params.Pairs) == 0 || len(params.Amounts) == 0 {
		return nil
	}

	amount := entryAmount(params)
	if !amount.IsPositive() {
		return nil
	}

	if _, err := e.ledger.OpenPosition(ctx, params.Pairs[0], amount, params); err != nil {
		return err
	}
	return nil
}

// entryAmount picks the largest configured amount within the position cap.
func entryAmount(params Params) domain.Amount {
	var best domain.Amount
	for _, a := range params.Amounts {
		if params.MaxPositionSize.IsPositive() && a.Cmp(params.MaxPositionSize) > 0 {
			continue
		}
		if a.Cmp(best) > 0 {
			best = a
		}
	}
	return best
}
