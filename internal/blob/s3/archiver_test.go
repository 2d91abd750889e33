package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galachain-tools/galabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	puts map[string][]byte
	err  error
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.puts == nil {
		w.puts = map[string][]byte{}
	}
	w.puts[path] = buf
	return nil
}

type fakeReader struct {
	objects map[string][]byte
}

func (r *fakeReader) Exists(_ context.Context, path string) (bool, error) {
	_, ok := r.objects[path]
	return ok, nil
}

func (r *fakeReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := r.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeArchiveStore struct {
	trades  []domain.TradeRecord
	deleted *time.Time
	listErr error
}

func (s *fakeArchiveStore) ListBefore(_ context.Context, before time.Time) ([]domain.TradeRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.TradeRecord
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeArchiveStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.deleted = &before
	var n int64
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func TestArchiveTradesUploadsAndDeletes(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{trades: []domain.TradeRecord{
		{ID: "trade-1", State: domain.ExecStateCompleted, ExecutedAt: cutoff.Add(-time.Hour)},
		{ID: "trade-2", State: domain.ExecStateCompleted, ExecutedAt: cutoff.Add(-2 * time.Hour)},
		{ID: "trade-3", State: domain.ExecStateCompleted, ExecutedAt: cutoff.Add(time.Hour)}, // too new
	}}
	writer := &fakeWriter{}
	reader := &fakeReader{}

	a := NewArchiver(writer, reader, store, testLogger())

	count, err := a.ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	data, ok := writer.puts["archive/trades/2026-02.jsonl"]
	require.True(t, ok, "expected monthly object, got %v", writer.puts)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"trade-1"`)

	require.NotNil(t, store.deleted)
	assert.Equal(t, cutoff, *store.deleted)
}

func TestArchiveTradesAppendsToExistingObject(t *testing.T) {
	cutoff := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{trades: []domain.TradeRecord{
		{ID: "trade-new", ExecutedAt: cutoff.Add(-time.Hour)},
	}}
	writer := &fakeWriter{}
	reader := &fakeReader{objects: map[string][]byte{
		"archive/trades/2026-02.jsonl": []byte(`{"id":"trade-old"}` + "\n"),
	}}

	a := NewArchiver(writer, reader, store, testLogger())

	count, err := a.ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	data := string(writer.puts["archive/trades/2026-02.jsonl"])
	lines := strings.Split(strings.TrimSpace(data), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trade-old")
	assert.Contains(t, lines[1], "trade-new")
}

func TestArchiveTradesNothingToDo(t *testing.T) {
	a := NewArchiver(&fakeWriter{}, &fakeReader{}, &fakeArchiveStore{}, testLogger())

	count, err := a.ArchiveTrades(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestArchiveTradesUploadFailureKeepsRows(t *testing.T) {
	cutoff := time.Now()
	store := &fakeArchiveStore{trades: []domain.TradeRecord{
		{ID: "trade-1", ExecutedAt: cutoff.Add(-time.Hour)},
	}}
	writer := &fakeWriter{err: io.ErrUnexpectedEOF}

	a := NewArchiver(writer, &fakeReader{}, store, testLogger())

	_, err := a.ArchiveTrades(context.Background(), cutoff)
	require.Error(t, err)
	assert.Nil(t, store.deleted)
}
