// Package eventsink delivers committed contract events to external systems.
// Deliveries are queued and retried with exponential backoff off the
// operation path; a full queue drops the event.
package eventsink

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"quarkdapp/core/events"
	"quarkdapp/observability"
)

const (
	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultTimeout     = 15 * time.Second
	defaultQueueSize   = 256
)

// Envelope is the wire representation of one committed event.
type Envelope struct {
	Type        string            `json:"type"`
	Attributes  map[string]string `json:"attributes"`
	Sequence    uint64            `json:"sequence"`
	PublishedAt time.Time         `json:"published_at"`
	DeliveryID  string            `json:"delivery_id"`
}

type delivery struct {
	eventType string
	key       []byte
	body      []byte
}

type deliverFunc func(ctx context.Context, job delivery) error

// Option mutates dispatcher configuration.
type Option func(*dispatcher)

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(d *dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			d.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			d.maxBackoff = maxBackoff
		}
	}
}

// WithQueueSize bounds the number of pending deliveries.
func WithQueueSize(size int) Option {
	return func(d *dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithTimeout bounds a single delivery attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for failed deliveries.
func WithLogger(logger *slog.Logger) Option {
	return func(d *dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

type dispatcher struct {
	name        string
	deliver     deliverFunc
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	timeout     time.Duration
	queueSize   int
	logger      *slog.Logger
	nowFn       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery
	wg     sync.WaitGroup
	seq    atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

func newDispatcher(name string, deliver deliverFunc, opts ...Option) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		name:        name,
		deliver:     deliver,
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		timeout:     defaultTimeout,
		queueSize:   defaultQueueSize,
		logger:      slog.Default(),
		nowFn:       time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan delivery, d.queueSize)
	d.wg.Add(1)
	go d.worker()
	return d
}

// Emit implements events.Emitter. It never blocks the caller.
func (d *dispatcher) Emit(evt events.Event) {
	if d == nil || evt == nil {
		return
	}
	job, err := d.encode(evt)
	if err != nil {
		d.logger.Error("event encoding failed", slog.String("sink", d.name), slog.Any("error", err))
		observability.Events().RecordPublished(d.name, "error")
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		observability.Events().RecordPublished(d.name, "dropped")
		return
	}
	select {
	case d.queue <- job:
	default:
		d.logger.Warn("event sink queue full", slog.String("sink", d.name), slog.String("event", job.eventType))
		observability.Events().RecordPublished(d.name, "dropped")
	}
}

func (d *dispatcher) encode(evt events.Event) (delivery, error) {
	env := Envelope{
		Type:        evt.EventType(),
		Attributes:  map[string]string{},
		Sequence:    d.seq.Add(1),
		PublishedAt: d.nowFn().UTC(),
		DeliveryID:  uuid.NewString(),
	}
	if rec, ok := evt.(events.Record); ok && rec.Evt != nil {
		for k, v := range rec.Evt.Attributes {
			env.Attributes[k] = v
		}
	}
	body, err := json.Marshal(env)
	if err != nil {
		return delivery{}, err
	}
	return delivery{eventType: env.Type, key: []byte(env.Attributes["order_key"]), body: body}, nil
}

// Close stops accepting events, drains the queue and waits for inflight
// deliveries. Deliveries still retrying when ctx expires are abandoned.
func (d *dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.process(job)
	}
}

func (d *dispatcher) process(job delivery) {
	attempt := 0
	backoff := d.minBackoff
	for {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		err := d.deliver(ctx, job)
		cancel()
		if err == nil {
			observability.Events().RecordPublished(d.name, "ok")
			return
		}
		observability.Events().RecordPublished(d.name, "error")
		if attempt >= d.maxAttempts || d.ctx.Err() != nil {
			d.logger.Error("event delivery abandoned",
				slog.String("sink", d.name),
				slog.String("event", job.eventType),
				slog.Int("attempts", attempt),
				slog.Any("error", err))
			return
		}
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, d.maxBackoff)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	if next < current {
		return max
	}
	return next
}
