package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dropme/rvm-backend/internal/api/metrics"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes aggregate audit jobs to a fixed set of workers using
// consistent hashing on the user ID, so two audits of the same user never
// run concurrently and cannot race a repair.
type Dispatcher struct {
	workers []chan string
	service ports.AggregateService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AggregateService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue schedules an audit for one user. Non-blocking up to channelBuffer
// capacity; a full shard drops the job, the next scheduled run covers it.
func (d *Dispatcher) Enqueue(userID string) {
	idx := d.shardIndex(userID)
	select {
	case d.workers[idx] <- userID:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.log.Warn().
			Str("user_id", userID).
			Int("worker_id", idx).
			Msg("audit queue full, job dropped")
	}
}

// EnqueueBatch schedules audits for many users.
func (d *Dispatcher) EnqueueBatch(userIDs []string) {
	for _, id := range userIDs {
		d.Enqueue(id)
	}
}

// shardIndex maps a user ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))

			consistent, err := d.service.Audit(ctx, userID)
			switch {
			case err != nil:
				metrics.AuditRunsTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Str("user_id", userID).
					Int("worker_id", id).
					Msg("aggregate audit failed")
			case !consistent:
				metrics.AuditRunsTotal.WithLabelValues("repaired").Inc()
			default:
				metrics.AuditRunsTotal.WithLabelValues("consistent").Inc()
			}
		}
	}
}
