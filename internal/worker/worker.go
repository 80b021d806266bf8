package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tdhoang/marketplace-notify/internal/mailer"
	"github.com/tdhoang/marketplace-notify/internal/notify"
	"github.com/tdhoang/marketplace-notify/shared/rabbitmq"
)

const defaultSendTimeout = 30 * time.Second

// DeliveryRecorder persists a history row for a processed job. Recording is
// best-effort: failures are logged and never affect acknowledgement.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, job *notify.Job) error
}

// acker is the slice of the AMQP channel the pool needs to settle
// deliveries. Satisfied by *amqp.Channel.
type acker interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple bool, requeue bool) error
}

// delivery is one queue message handed from the dispatcher to the pool. It
// carries the channel it arrived on: delivery tags are scoped per channel, so
// settling on any other channel would confirm the wrong message.
type delivery struct {
	Body []byte
	Tag  uint64
	acks acker
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Mailer        mailer.Mailer
	Recorder      DeliveryRecorder
	Concurrency   int
	PrefetchCount int
	SendTimeout   time.Duration
}

// Worker is the long-running consumer draining the notification queue
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	mailer        mailer.Mailer
	recorder      DeliveryRecorder
	concurrency   int
	prefetchCount int
	sendTimeout   time.Duration
	workerID      string
	jobsChan      chan *delivery
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		mailer:        cfg.Mailer,
		recorder:      cfg.Recorder,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		sendTimeout:   sendTimeout,
		workerID:      "mail-worker-" + uuid.New().String()[:8],
		jobsChan:      make(chan *delivery),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes the queue until the context is canceled or Stop is called.
// The first consumer setup failure is fatal; a mid-run channel close
// triggers reconnect-and-resume.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
		slog.Duration("send_timeout", w.sendTimeout),
	)

	deliveries, acks, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	for {
		w.dispatch(ctx, deliveries, acks)

		select {
		case <-ctx.Done():
			return nil
		case <-w.stopChan:
			return nil
		default:
		}

		// Delivery channel closed mid-run: reconnect and resume. In-flight
		// deliveries still settle on the channel they arrived on; a settle
		// on the dead channel errors and the broker has already requeued.
		w.logger.Warn("Delivery channel closed, reconnecting",
			slog.String("worker_id", w.workerID),
		)

		if err := w.rabbitClient.Reconnect(); err != nil {
			return err
		}

		deliveries, acks, err = w.setupConsumer()
		if err != nil {
			return err
		}
	}
}

// Stop gracefully stops the worker, letting in-flight messages finish
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
