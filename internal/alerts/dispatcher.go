package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pdv-backend/pkg/logger"
)

const (
	defaultQueueSize       = 256
	defaultWorkers         = 2
	defaultDeliveryTimeout = 5 * time.Second
)

// Enqueuer accepts alerts without blocking the caller.
type Enqueuer interface {
	Enqueue(alert Alert) bool
}

type dispatchMetrics interface {
	IncAlertEnqueued(alertType string)
	IncAlertDropped(alertType string)
	IncAlertFailed(sink string)
}

type noopDispatchMetrics struct{}

func (noopDispatchMetrics) IncAlertEnqueued(string) {}
func (noopDispatchMetrics) IncAlertDropped(string)  {}
func (noopDispatchMetrics) IncAlertFailed(string)   {}

type enricher interface {
	Enrich(ctx context.Context, alert Alert) (Event, error)
}

// DispatcherParams configure the dispatcher.
type DispatcherParams struct {
	Logger          *logger.Logger
	Enricher        enricher
	Sinks           []Sink
	Metrics         dispatchMetrics
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

// Dispatcher owns a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	logg     *logger.Logger
	enricher enricher
	sinks    []Sink
	metrics  dispatchMetrics
	workers  int
	timeout  time.Duration

	queue   chan Alert
	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher. Call Start before enqueueing.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Enricher == nil {
		return nil, fmt.Errorf("enricher required")
	}
	if len(params.Sinks) == 0 {
		return nil, fmt.Errorf("at least one sink required")
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = noopDispatchMetrics{}
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := params.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Dispatcher{
		logg:     params.Logger,
		enricher: params.Enricher,
		sinks:    params.Sinks,
		metrics:  metrics,
		workers:  workers,
		timeout:  timeout,
		queue:    make(chan Alert, queueSize),
	}, nil
}

// Start launches the workers. Deliveries run under ctx values but outlive its cancellation
// until Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(base)
	}
	d.logg.Info(d.logg.WithField(ctx, "workers", d.workers), "alert dispatcher started")
}

// Enqueue hands alert to the workers. A full or stopped queue drops it.
func (d *Dispatcher) Enqueue(alert Alert) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(alert, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- alert:
		d.metrics.IncAlertEnqueued(string(alert.Type))
		return true
	default:
		d.drop(alert, "alert queue full")
		return false
	}
}

func (d *Dispatcher) drop(alert Alert, reason string) {
	d.metrics.IncAlertDropped(string(alert.Type))
	ctx := d.logg.WithFields(context.Background(), map[string]any{
		"alert_type": string(alert.Type),
		"store_id":   alert.StoreID.String(),
	})
	d.logg.Warn(ctx, reason)
}

// Stop closes the queue and waits for queued alerts to be delivered or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
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
		return nil
	case <-ctx.Done():
		return fmt.Errorf("alert dispatcher drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for alert := range d.queue {
		d.handle(ctx, alert)
	}
}

func (d *Dispatcher) handle(ctx context.Context, alert Alert) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"alert_type": string(alert.Type),
		"store_id":   alert.StoreID.String(),
	})

	defer func() {
		if r := recover(); r != nil {
			d.logg.Error(logCtx, "alert delivery panicked", fmt.Errorf("panic: %v", r))
		}
	}()

	event, err := d.enricher.Enrich(ctx, alert)
	if err != nil {
		d.metrics.IncAlertFailed("enrich")
		d.logg.Error(logCtx, "alert enrichment failed", err)
		return
	}

	if err := d.deliver(ctx, event); err != nil {
		d.logg.Error(logCtx, "alert delivery failed", err)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) error {
	var errs error
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			d.metrics.IncAlertFailed(sink.Name())
			errs = multierr.Append(errs, fmt.Errorf("%s sink: %w", sink.Name(), err))
		}
	}
	return errs
}
