// Package serializer provides the single write lane every mutating operation
// passes through. Operations run one at a time, in submission order, on one
// worker goroutine; readers never enter the lane.
package serializer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ErrClosed = errors.New("write serializer closed")
	ErrPanic  = errors.New("write operation panicked")
)

const defaultQueueSize = 256

// Operation is a self-contained unit of work. The context it receives keeps
// the caller's values but is never cancelled once the operation has started.
type Operation func(ctx context.Context) error

const (
	stateQueued int32 = iota
	stateRunning
	stateAbandoned
)

type job struct {
	name  string
	op    Operation
	ctx   context.Context
	state atomic.Int32
	done  chan error
}

type Serializer struct {
	log    *zap.Logger
	jobs   chan *job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	depth    prometheus.Gauge
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

type options struct {
	queueSize  int
	registerer prometheus.Registerer
}

type Option func(*options)

func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithRegisterer exposes the lane metrics on reg. Without it the metrics are
// kept but not registered anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

func New(logger *zap.Logger, opts ...Option) *Serializer {
	o := options{queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	factory := promauto.With(o.registerer)
	s := &Serializer{
		log:  logger.Named("serializer"),
		jobs: make(chan *job, o.queueSize),
		depth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vials_write_queue_depth",
			Help: "Write operations waiting for the serialized lane.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vials_write_operation_duration_seconds",
			Help:    "Time spent executing serialized write operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vials_write_operations_total",
			Help: "Serialized write operations by outcome.",
		}, []string{"operation", "outcome"}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Submit queues op and waits for its result. If ctx ends while op is still
// queued, op is skipped and ctx.Err() is returned; once op is running the
// caller waits for it to finish.
func (s *Serializer) Submit(ctx context.Context, name string, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j := &job{name: name, op: op, ctx: ctx, done: make(chan error, 1)}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.depth.Inc()
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		s.depth.Dec()
		s.mu.RUnlock()
		return ctx.Err()
	}
	s.mu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		if j.state.CompareAndSwap(stateQueued, stateAbandoned) {
			return ctx.Err()
		}
		return <-j.done
	}
}

// Do runs fn through the lane and hands back its value.
func Do[T any](ctx context.Context, s *Serializer, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.Submit(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Close stops admitting work and waits until every queued operation is done.
func (s *Serializer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Serializer) run() {
	defer s.wg.Done()

	for j := range s.jobs {
		s.depth.Dec()
		if !j.state.CompareAndSwap(stateQueued, stateRunning) {
			s.outcomes.WithLabelValues(j.name, "abandoned").Inc()
			s.log.Debug("Skipping abandoned write operation", zap.String("operation", j.name))
			continue
		}
		j.done <- s.execute(j)
	}
}

func (s *Serializer) execute(j *job) (err error) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, j.name, p)
			s.log.Error("Write operation panicked",
				zap.String("operation", j.name),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
		}

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.duration.WithLabelValues(j.name).Observe(time.Since(start).Seconds())
		s.outcomes.WithLabelValues(j.name, outcome).Inc()
	}()

	return j.op(context.WithoutCancel(j.ctx))
}
