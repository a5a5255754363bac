package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-inventory/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"

	"go.opentelemetry.io/otel/trace"
)

var ErrClosed = errors.New("outbox: bus is stopped")

// Bus fans committed domain events out to in-process subscribers such as the low-stock
// worker and the Kafka relay. It is not durable: events queued when the process stops
// are lost, which the publishers accept since every publish is best-effort.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	queue       chan queued
	closed      bool
	started     bool
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
	concurrency int
	handlerWait time.Duration
	log         observability.Logger
}

// queued keeps the publisher's span so handlers continue the request trace.
type queued struct {
	event domoutbox.Event
	span  trace.SpanContext
}

const componentOutbox = "outbox"

type Options struct {
	QueueSize      int           // default 1024
	Concurrency    int           // per-event handler fanout cap, default 8
	HandlerTimeout time.Duration // default 30s
}

// NewBus creates a bus with a buffered queue and a concurrency cap.
func NewBus(logger observability.Logger, opts Options) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 30 * time.Second
	}
	return &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan queued, opts.QueueSize),
		done:        make(chan struct{}),
		concurrency: opts.Concurrency,
		handlerWait: opts.HandlerTimeout,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.mu.Lock()
		b.cancel = cancel
		b.started = true
		b.mu.Unlock()
		go func() {
			defer close(b.done)
			b.dispatchLoop(bg)
		}()
		logger := logctx.FromOr(ctx, b.log)
		logger.Info("event_bus_started")
	})
}

// Stop refuses new events and drains the queue. If ctx ends first the remaining
// events are dropped.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		started := b.started
		b.mu.Unlock()

		logger := logctx.FromOr(ctx, b.log)
		if started {
			select {
			case <-b.done:
			case <-ctx.Done():
				b.cancel()
				logger.Warn("event_bus_drain_aborted",
					observability.F("pending", len(b.queue)),
				)
			}
		}
		logger.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	// The read lock keeps Stop from closing the queue under a pending send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- queued{event: e, span: trace.SpanContextFromContext(ctx)}:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted",
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, q)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, q queued) {
	e := q.event
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	ctx = context.WithoutCancel(ctx)
	if q.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, q.span)
	}
	baseLogger := b.log.With(observability.F("event", name))

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					baseLogger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			ctx, cancel := context.WithTimeout(ctx, b.handlerWait)
			ctx = logctx.Scope(ctx, baseLogger)
			err := h(ctx, e)
			cancel()
			if err != nil {
				baseLogger.Warn("event_handler_error",
					observability.F("error", err),
				)
			}
		}()
	}

	wg.Wait()

	baseLogger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
	)
}
