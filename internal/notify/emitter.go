package notify

import (
	"context"
	"sync"
	"time"

	"github.com/edgeguard-ai/edgeguard/internal/redact"
)

// Metrics holds delivery counters.
type Metrics struct {
	enqueued uint64
	dropped  uint64

	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64
}

func (m *Metrics) Enqueued() uint64 { return m.enqueued }
func (m *Metrics) Dropped() uint64  { return m.dropped }
func (m *Metrics) SinkSuccess(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkSuccess[name]
}
func (m *Metrics) SinkFailure(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkFailure[name]
}

// Emitter buffers notices and delivers them to sinks off the request
// path. A nil emitter drops everything silently.
type Emitter struct {
	queue           chan *Notice
	sinks           []Sink
	metrics         *Metrics
	shutdownTimeout time.Duration

	mu        sync.RWMutex
	metricsMu sync.Mutex
	closed    bool
	wg        sync.WaitGroup
}

// EmitterConfig controls queue and worker sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// NewEmitter starts background workers delivering to the given sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 2 * time.Second
	}

	m := &Metrics{
		sinkSuccess: make(map[string]uint64, len(sinks)),
		sinkFailure: make(map[string]uint64, len(sinks)),
	}
	for _, s := range sinks {
		m.sinkSuccess[s.Name()] = 0
		m.sinkFailure[s.Name()] = 0
	}

	em := &Emitter{
		queue:           make(chan *Notice, queueSize),
		sinks:           sinks,
		metrics:         m,
		shutdownTimeout: shutdownTimeout,
	}
	for i := 0; i < workers; i++ {
		em.wg.Add(1)
		go em.worker()
	}
	return em
}

// Emit enqueues without blocking. Full queue drops the notice.
func (e *Emitter) Emit(n *Notice) {
	if e == nil || n == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.count(func(m *Metrics) { m.dropped++ })
		return
	}
	select {
	case e.queue <- n:
		e.count(func(m *Metrics) { m.enqueued++ })
	default:
		e.count(func(m *Metrics) { m.dropped++ })
	}
}

// Close stops accepting notices and waits briefly to drain the queue.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	waitCtx := ctx
	if waitCtx == nil {
		waitCtx = context.Background()
	}
	if e.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(waitCtx, e.shutdownTimeout)
		defer cancel()
	}
	select {
	case <-done:
	case <-waitCtx.Done():
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			redact.Logf("notify: sink %s close error: %v", s.Name(), err)
		}
	}
}

// MetricsSnapshot copies current counters for observation and tests.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil || e.metrics == nil {
		return Metrics{}
	}
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	out := Metrics{
		enqueued:    e.metrics.enqueued,
		dropped:     e.metrics.dropped,
		sinkSuccess: make(map[string]uint64, len(e.metrics.sinkSuccess)),
		sinkFailure: make(map[string]uint64, len(e.metrics.sinkFailure)),
	}
	for k, v := range e.metrics.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range e.metrics.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}

func (e *Emitter) count(fn func(*Metrics)) {
	e.metricsMu.Lock()
	fn(e.metrics)
	e.metricsMu.Unlock()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for n := range e.queue {
		e.deliver(n)
	}
}

func (e *Emitter) deliver(n *Notice) {
	for _, s := range e.sinks {
		if err := s.Deliver(context.Background(), n); err != nil {
			redact.Logf("notify: sink %s failed: %v", s.Name(), err)
			e.count(func(m *Metrics) { m.sinkFailure[s.Name()]++ })
			continue
		}
		e.count(func(m *Metrics) { m.sinkSuccess[s.Name()]++ })
	}
}
