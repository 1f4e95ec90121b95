package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink is one delivery target.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Options struct {
	QueueSize   int
	MaxRetries  int
	BaseBackoff time.Duration
	Timeout     time.Duration // per delivery attempt
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return o
}

// Dispatcher is an in-process outbound queue drained by one worker.
type Dispatcher struct {
	opts  Options
	sinks []Sink
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(opts Options, log *zap.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		opts:   opts,
		sinks:  sinks,
		log:    log.Named("notify"),
		queue:  make(chan Event, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues e and returns immediately. It reports false when the
// queue is full or the dispatcher is closed; the event is then dropped.
func (d *Dispatcher) Publish(e Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("event dropped, dispatcher closed", zap.String("type", e.Type), zap.String("id", e.ID))
		return false
	}
	select {
	case d.queue <- e:
		return true
	default:
		d.log.Warn("event dropped, queue full", zap.String("type", e.Type), zap.String("id", e.ID))
		return false
	}
}

// Close stops accepting events and waits for queued ones to be attempted
// until ctx expires. Pending retries are abandoned when ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	defer d.cancel()
	for e := range d.queue {
		for _, s := range d.sinks {
			d.deliver(s, e)
		}
	}
}

func (d *Dispatcher) deliver(s Sink, e Event) {
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(d.ctx, d.opts.Timeout)
		err := s.Deliver(ctx, e)
		cancel()
		if err == nil {
			d.log.Debug("event delivered",
				zap.String("sink", s.Name()), zap.String("type", e.Type), zap.Int("attempt", attempt))
			return
		}
		if attempt > d.opts.MaxRetries || d.ctx.Err() != nil {
			d.log.Warn("event delivery failed",
				zap.String("sink", s.Name()),
				zap.String("type", e.Type),
				zap.String("id", e.ID),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}
		// 1x, 2x, 4x, ... base backoff
		wait := d.opts.BaseBackoff * time.Duration(1<<uint(attempt-1))
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-d.ctx.Done():
			t.Stop()
		}
	}
}
