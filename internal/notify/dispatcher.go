package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/metrics"
)

const defaultSendTimeout = 20 * time.Second

// Dispatcher queues messages and delivers them from a single background
// worker. Enqueue never blocks; a full or closed queue drops the message.
type Dispatcher struct {
	mailer      Mailer
	log         *zap.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records email outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithSendTimeout bounds each delivery attempt.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// NewDispatcher starts the delivery worker. Call Close to drain and stop it.
func NewDispatcher(mailer Mailer, queueSize int, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer:      mailer,
		log:         log,
		sendTimeout: defaultSendTimeout,
		queue:       make(chan Message, max(queueSize, 1)),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Enqueue schedules msg for delivery and returns immediately.
func (d *Dispatcher) Enqueue(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(msg, "dispatcher closed")
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.drop(msg, "queue full")
	}
}

func (d *Dispatcher) drop(msg Message, reason string) {
	d.log.Warn("email dropped",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("reason", reason))
	d.metrics.IncrementEmail(msg.Kind, "dropped")
}

// Close stops accepting messages and waits until queued ones are delivered
// or ctx expires.
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
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.log.Error("email send failed",
			zap.String("kind", msg.Kind),
			zap.String("to", msg.To),
			zap.Error(err))
		d.metrics.IncrementEmail(msg.Kind, "failed")
		return
	}
	d.log.Debug("email sent", zap.String("kind", msg.Kind), zap.String("to", msg.To))
	d.metrics.IncrementEmail(msg.Kind, "sent")
}
