package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// recordingHandler collects slog.Records for test assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	delay   time.Duration // optional per-record processing delay
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func (h *recordingHandler) last() slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records[len(h.records)-1]
}

func TestAsyncHandlerDeliversRecords(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)

	for range 10 {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "tool settled", 0)
		if err := ah.Handle(context.Background(), rec); err != nil {
			t.Fatalf("Handle returned error: %v", err)
		}
	}
	ah.Close()

	if got := inner.count(); got != 10 {
		t.Fatalf("expected 10 records, got %d", got)
	}
}

func TestAsyncHandlerConcurrentBurst(t *testing.T) {
	// A wide plan fans out many goroutines that log concurrently.
	const goroutines = 50
	const perGoroutine = 40
	total := goroutines * perGoroutine

	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, total, 4)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				rec := slog.NewRecord(time.Now(), slog.LevelInfo, "invocation", 0)
				_ = ah.Handle(context.Background(), rec)
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records, got %d", total, got)
	}
}

func TestAsyncHandlerOverflowDropsAndSummarizes(t *testing.T) {
	// A slow inner handler with a tiny queue forces drops; Handle must
	// never block, and Close must report what was lost.
	inner := &recordingHandler{delay: 10 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 50 {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "flood", 0)
		_ = ah.Handle(context.Background(), rec)
	}
	ah.Close()

	dropped := ah.DroppedCount()
	if dropped == 0 {
		t.Fatal("expected some records to be dropped, got 0")
	}
	if got := inner.last().Message; got != "log records dropped" {
		t.Fatalf("expected drop summary as final record, got %q", got)
	}
}

func TestAsyncHandlerCloseFlushesQueue(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 500, 2)

	const total = 200
	for range total {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "flush", 0)
		_ = ah.Handle(context.Background(), rec)
	}

	// Close blocks until every enqueued record reaches the inner handler.
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records after close, got %d", total, got)
	}
}

func TestAsyncHandlerWithAttrsSharesQueue(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)

	derived := ah.WithAttrs([]slog.Attr{slog.String("plan_id", "p1")})
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "derived", 0)
	_ = derived.Handle(context.Background(), rec)

	// Closing the parent must drain records enqueued via the child.
	ah.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("expected 1 record through derived handler, got %d", got)
	}
}
