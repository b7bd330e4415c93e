// Package events delivers pool events (executed matches, reference price
// samples and arbitrage opportunities) to a set of sinks.
package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/google/uuid"
)

const (
	// DefaultQueueSize bounds the events waiting for one background sink.
	DefaultQueueSize = 256

	// DefaultWriteTimeout bounds one background sink write.
	DefaultWriteTimeout = 10 * time.Second
)

// Sink persists or forwards events. Write must be safe for concurrent use.
type Sink interface {
	Name() string
	Write(ctx context.Context, e domain.Event) error
}

// Inline is implemented by sinks cheap enough to write in the recording
// goroutine, such as in-memory stores. Every other sink is written by its
// own background worker.
type Inline interface {
	Inline() bool
}

func isInline(s Sink) bool {
	in, ok := s.(Inline)
	return ok && in.Inline()
}

type job struct {
	ctx context.Context
	e   domain.Event
}

// worker owns the queue of one background sink.
type worker struct {
	sink  Sink
	queue chan job
}

// Dispatcher fans every recorded event out to its sinks. Inline sinks are
// written before Record returns; the rest are queued and written in the
// background, and an event is dropped for a sink whose queue is full. A
// failing sink is logged and skipped; recording never fails or blocks the
// caller.
type Dispatcher struct {
	sinks        []Sink
	inline       []Sink
	workers      []*worker
	writeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.RWMutex // guards closed against queue sends
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over sinks and starts one worker per
// background sink. Close stops the workers.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	return newDispatcher(logger, DefaultQueueSize, DefaultWriteTimeout, sinks...)
}

func newDispatcher(logger *slog.Logger, queueSize int, writeTimeout time.Duration, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:        sinks,
		writeTimeout: writeTimeout,
		logger:       logger.With(slog.String("component", "events")),
		now:          time.Now,
	}
	for _, s := range sinks {
		if isInline(s) {
			d.inline = append(d.inline, s)
			continue
		}
		w := &worker{sink: s, queue: make(chan job, queueSize)}
		d.workers = append(d.workers, w)
		d.wg.Add(1)
		go d.drain(w)
	}
	return d
}

// Record wraps payload in an Event with a fresh id, writes it to the inline
// sinks and queues it for the others.
func (d *Dispatcher) Record(ctx context.Context, kind domain.EventKind, payload any) {
	e := domain.Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    payload,
		RecordedAt: d.now().UTC(),
	}
	for _, s := range d.inline {
		d.write(ctx, s, e)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	bg := context.WithoutCancel(ctx)
	for _, w := range d.workers {
		select {
		case w.queue <- job{ctx: bg, e: e}:
		default:
			d.logger.WarnContext(ctx, "event sink queue full, dropping event",
				slog.String("sink", w.sink.Name()),
				slog.String("kind", string(kind)),
				slog.String("event_id", e.ID))
		}
	}
}

func (d *Dispatcher) drain(w *worker) {
	defer d.wg.Done()
	for j := range w.queue {
		ctx, cancel := context.WithTimeout(j.ctx, d.writeTimeout)
		d.write(ctx, w.sink, j.e)
		cancel()
	}
}

func (d *Dispatcher) write(ctx context.Context, s Sink, e domain.Event) {
	if err := s.Write(ctx, e); err != nil {
		d.logger.WarnContext(ctx, "event sink write failed",
			slog.String("sink", s.Name()),
			slog.String("kind", string(e.Kind)),
			slog.String("event_id", e.ID),
			slog.String("error", err.Error()))
	}
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Close stops accepting background work, waits for the queued events to be
// written and then closes every sink that holds resources.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, w := range d.workers {
			close(w.queue)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()

	var errs []error
	for _, s := range d.sinks {
		c, ok := s.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
