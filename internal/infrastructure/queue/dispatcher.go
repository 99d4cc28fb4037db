package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
	"github.com/incidenthub/auth-gateway/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher writes audit events asynchronously through a fixed set of
// workers sharded by username, so events for one user keep their order.
// It implements ports.AuditSink and never blocks the request path: when a
// worker channel is full the event is dropped and counted.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	repo    ports.AuditRepository
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.AuditSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and stop
// when ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record enqueues event on the worker responsible for its username.
func (d *Dispatcher) Record(event domain.AuthEvent) {
	idx := d.shardIndex(event.Username)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		d.log.Warn().
			Str("kind", string(event.Kind)).
			Str("username", event.Username).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			metrics.AuditQueueDepth.WithLabelValues(label).Set(0)
			return
		case event := <-ch:
			d.write(context.WithoutCancel(ctx), id, event)
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		}
	}
}

// drain flushes whatever is already queued after shutdown was requested.
func (d *Dispatcher) drain(id int, ch <-chan domain.AuthEvent) {
	for {
		select {
		case event := <-ch:
			d.write(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, id int, event domain.AuthEvent) {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := d.repo.Insert(writeCtx, &event); err != nil {
		metrics.AuditWriteErrorsTotal.Inc()
		d.log.Error().Err(err).
			Str("kind", string(event.Kind)).
			Str("username", event.Username).
			Int("worker_id", id).
			Msg("audit write failed")
	}
}
