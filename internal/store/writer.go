package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// appendTimeout bounds a single sink write.
const appendTimeout = 5 * time.Second

// Writer feeds a Sink from a bounded queue on its own goroutine, so callers
// never wait on storage.
type Writer struct {
	sink  Sink
	log   *slog.Logger
	queue chan Message

	once sync.Once
	done chan struct{}
}

// NewWriter starts a writer with room for size pending messages.
func NewWriter(sink Sink, size int, log *slog.Logger) *Writer {
	if size <= 0 {
		size = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Writer{
		sink:  sink,
		log:   log,
		queue: make(chan Message, size),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Append queues m and returns immediately. It reports false when the queue
// is full and m was dropped. Safe on a nil Writer.
func (w *Writer) Append(m Message) bool {
	if w == nil {
		return false
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	select {
	case w.queue <- m:
		return true
	default:
		w.log.Warn("store.queue_full", "session", m.SessionID)
		return false
	}
}

// Close drains what is queued and waits for the worker to finish. Append
// must not be called after Close.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.queue) })
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for m := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := w.sink.Append(ctx, m); err != nil {
			w.log.Error("store.append", "session", m.SessionID, "err", err)
		}
		cancel()
	}
}
