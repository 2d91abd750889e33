package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/galachain-tools/galabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() Params {
	return Params{
		Policy:          PolicyFixedDirection,
		MinProfitPct:    1.0,
		MaxPositionSize: domain.MustParseAmount("1000"),
		CheckInterval:   10 * time.Millisecond,
		ErrorBackoff:    10 * time.Millisecond,
		MaxSlippageBps:  50,
		Pairs:           []domain.Pair{{Give: domain.TokenGALA, Receive: domain.TokenGUSDC}},
		Amounts:         []domain.Amount{domain.MustParseAmount("100")},
		FeeTiers:        []domain.FeeTier{domain.FeeTier500, domain.FeeTier3000, domain.FeeTier10000},
	}
}

type swapCall struct {
	Pair    domain.Pair
	Amount  domain.Amount
	FeeTier domain.FeeTier
}

// fakeGateway is a scriptable domain.GatewayClient. Unset funcs fall back to
// permissive defaults (huge balance, echoing swaps).
type fakeGateway struct {
	mu        sync.Mutex
	quoteFn   func(pair domain.Pair, amount domain.Amount, tier domain.FeeTier) (domain.Quote, error)
	swapFn    func(call swapCall) (domain.ExecutionResult, error)
	balanceFn func(token domain.TokenKey) (domain.Amount, error)
	swaps     []swapCall
}

func (f *fakeGateway) GetQuote(_ context.Context, pair domain.Pair, amount domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
	if f.quoteFn == nil {
		return domain.Quote{}, domain.ErrVenueUnavailable
	}
	return f.quoteFn(pair, amount, tier)
}

func (f *fakeGateway) ExecuteSwap(_ context.Context, pair domain.Pair, amount domain.Amount, tier domain.FeeTier, _ float64) (domain.ExecutionResult, error) {
	call := swapCall{Pair: pair, Amount: amount, FeeTier: tier}
	f.mu.Lock()
	f.swaps = append(f.swaps, call)
	f.mu.Unlock()
	if f.swapFn == nil {
		return domain.ExecutionResult{Success: true, AmountOut: amount, TxID: "tx"}, nil
	}
	return f.swapFn(call)
}

func (f *fakeGateway) GetTokenBalance(_ context.Context, token domain.TokenKey) (domain.Amount, error) {
	if f.balanceFn == nil {
		return domain.MustParseAmount("1000000"), nil
	}
	return f.balanceFn(token)
}

func (f *fakeGateway) swapCalls() []swapCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]swapCall, len(f.swaps))
	copy(out, f.swaps)
	return out
}

// quoteTable builds a quoteFn serving fixed amountOut strings per fee tier
// for one oriented pair; every other pair reads as unavailable.
func quoteTable(pair domain.Pair, outs map[domain.FeeTier]string) func(domain.Pair, domain.Amount, domain.FeeTier) (domain.Quote, error) {
	return func(p domain.Pair, _ domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
		if p != pair {
			return domain.Quote{}, domain.ErrVenueUnavailable
		}
		out, ok := outs[tier]
		if !ok {
			return domain.Quote{}, domain.ErrVenueUnavailable
		}
		return domain.Quote{FeeTier: tier, AmountOut: domain.MustParseAmount(out)}, nil
	}
}

// captureSink records every trade record it receives.
type captureSink struct {
	mu   sync.Mutex
	recs []domain.TradeRecord
}

func (c *captureSink) AddResult(rec domain.TradeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
}

func (c *captureSink) records() []domain.TradeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.TradeRecord, len(c.recs))
	copy(out, c.recs)
	return out
}

// memPositionStore is an in-memory domain.PositionStore.
type memPositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{positions: map[string]domain.Position{}}
}

func (m *memPositionStore) Create(_ context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.positions[pos.ID] = pos
	return nil
}

func (m *memPositionStore) Update(_ context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.ID]; !ok {
		return domain.ErrNotFound
	}
	m.positions[pos.ID] = pos
	return nil
}

func (m *memPositionStore) GetOpen(_ context.Context) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pos := range m.positions {
		if pos.Status == domain.PositionStatusOpen {
			return pos, nil
		}
	}
	return domain.Position{}, domain.ErrNotFound
}

func (m *memPositionStore) ListHistory(_ context.Context, _ domain.ListOpts) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	return out, nil
}

var errTransport = errors.New("connection refused")
