package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

// ErrJournalFull is reported when a record is dropped because the queue is full.
var ErrJournalFull = errors.New("journal: queue full")

type journalEntry struct {
	decision   *domain.DecisionRecord
	transition *domain.TransitionRecord
}

// JournalWriter persists records on a background goroutine so the UI loop never
// waits on storage.
type JournalWriter struct {
	journal ports.Journal
	timeout time.Duration
	logger  *slog.Logger

	queue   chan journalEntry
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	started atomic.Bool
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewJournalWriter buffers up to size records. A nil journal makes every call a no-op.
func NewJournalWriter(journal ports.Journal, size int, logger *slog.Logger) *JournalWriter {
	if size <= 0 {
		size = 128
	}
	return &JournalWriter{
		journal: journal,
		timeout: 5 * time.Second,
		logger:  logger,
		queue:   make(chan journalEntry, size),
		stop:    make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (w *JournalWriter) Start(ctx context.Context) {
	if w == nil || w.journal == nil || !w.started.CompareAndSwap(false, true) {
		return
	}
	w.wg.Add(1)
	go w.run(ctx)
}

// Decision enqueues a decision record.
func (w *JournalWriter) Decision(rec domain.DecisionRecord) error {
	return w.enqueue(journalEntry{decision: &rec})
}

// Transition enqueues a lifecycle transition record.
func (w *JournalWriter) Transition(rec domain.TransitionRecord) error {
	return w.enqueue(journalEntry{transition: &rec})
}

func (w *JournalWriter) enqueue(e journalEntry) error {
	if w == nil || w.journal == nil {
		return nil
	}
	select {
	case w.queue <- e:
		return nil
	default:
		w.dropped.Add(1)
		return ErrJournalFull
	}
}

// Stats returns dropped and failed record counts.
func (w *JournalWriter) Stats() (dropped, failed int64) {
	return w.dropped.Load(), w.failed.Load()
}

// Close flushes queued records and stops the writer.
func (w *JournalWriter) Close() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		close(w.stop)
		w.wg.Wait()
	})
}

func (w *JournalWriter) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case e := <-w.queue:
			w.write(ctx, e)
		case <-w.stop:
			w.drain(ctx)
			return
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return
		}
	}
}

func (w *JournalWriter) drain(ctx context.Context) {
	for {
		select {
		case e := <-w.queue:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *JournalWriter) write(ctx context.Context, e journalEntry) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var err error
	switch {
	case e.decision != nil:
		err = w.journal.RecordDecision(ctx, *e.decision)
	case e.transition != nil:
		err = w.journal.RecordTransition(ctx, *e.transition)
	}
	if err != nil {
		w.failed.Add(1)
		if w.logger != nil {
			w.logger.Warn("journal write failed", "error", err)
		}
	}
}
