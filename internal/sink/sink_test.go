package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galachain-tools/galabot/internal/domain"
	"github.com/galachain-tools/galabot/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTradeStore struct {
	mu        sync.Mutex
	inserted  []domain.TradeRecord
	insertErr error
}

func (s *fakeTradeStore) Insert(_ context.Context, rec domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, rec)
	return nil
}

func (s *fakeTradeStore) records() []domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TradeRecord(nil), s.inserted...)
}

func (s *fakeTradeStore) ListRecent(context.Context, int) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *fakeTradeStore) ListBefore(context.Context, time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *fakeTradeStore) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *fakeTradeStore) SumProfit(context.Context, time.Time) (domain.Amount, error) {
	return 0, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published []publishedMsg
}

type publishedMsg struct {
	channel string
	payload []byte
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMsg{channel, payload})
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *fakeBus) messages() []publishedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedMsg(nil), b.published...)
}

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) Send(_ context.Context, title, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, title)
	return nil
}

func (c *captureSender) Name() string { return "capture" }

func (c *captureSender) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func completedRecord() domain.TradeRecord {
	return domain.TradeRecord{
		ID:             "trade-1",
		OpportunityID:  "opp-1",
		Pair:           domain.Pair{Give: domain.TokenGALA, Receive: domain.TokenGUSDC},
		Amount:         domain.MustParseAmount("100"),
		State:          domain.ExecStateCompleted,
		ExpectedProfit: domain.MustParseAmount("0.5"),
		ActualProfit:   domain.MustParseAmount("0.4"),
		BuyTxID:        "buy-tx",
		SellTxID:       "sell-tx",
		ExecutedAt:     time.Now().UTC(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAddResultFansOut(t *testing.T) {
	store := &fakeTradeStore{}
	bus := &fakeBus{}
	sender := &captureSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())

	s := New(store, bus, notifier, testLogger())
	rec := completedRecord()
	s.AddResult(rec)

	waitFor(t, func() bool {
		return len(store.records()) == 1 && len(bus.messages()) == 1 && len(sender.titles()) == 1
	})

	assert.Equal(t, rec.ID, store.records()[0].ID)

	msg := bus.messages()[0]
	assert.Equal(t, "galabot:trades", msg.channel)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "trade", evt["type"])
	assert.Equal(t, "trade-1", evt["id"])
	assert.Equal(t, string(domain.ExecStateCompleted), evt["state"])

	assert.Equal(t, []string{"Trade completed"}, sender.titles())
}

func TestAddResultSellLegFailureAlerts(t *testing.T) {
	sender := &captureSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())

	s := New(nil, nil, notifier, testLogger())
	rec := completedRecord()
	rec.State = domain.ExecStateAbortedAfterBuy
	rec.SellTxID = ""
	rec.Error = "sell leg: connection refused"
	s.AddResult(rec)

	waitFor(t, func() bool { return len(sender.titles()) == 1 })
	assert.Contains(t, sender.titles()[0], "Sell leg failed")
}

func TestAddResultPreBuyAbortIsQuiet(t *testing.T) {
	store := &fakeTradeStore{}
	sender := &captureSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())

	s := New(store, nil, notifier, testLogger())
	rec := completedRecord()
	rec.State = domain.ExecStateAbortedBeforeBuy
	s.AddResult(rec)

	// Persisted, but no alert fires for a free abort.
	waitFor(t, func() bool { return len(store.records()) == 1 })
	assert.Empty(t, sender.titles())
}

func TestAddResultSurvivesStoreFailure(t *testing.T) {
	store := &fakeTradeStore{insertErr: errors.New("connection refused")}
	bus := &fakeBus{}

	s := New(store, bus, nil, testLogger())
	s.AddResult(completedRecord())

	// The publish still goes out even though persistence failed.
	waitFor(t, func() bool { return len(bus.messages()) == 1 })
}

func TestAddResultNilTargets(t *testing.T) {
	s := New(nil, nil, nil, testLogger())
	assert.NotPanics(t, func() {
		s.AddResult(completedRecord())
		time.Sleep(10 * time.Millisecond)
	})
}
