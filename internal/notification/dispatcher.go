package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wordaddict/finance-sub001/internal/metrics"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Job is one delivery; exactly one of Email or SMS is set.
type Job struct {
	Kind  string
	Email *Email
	SMS   *SMS
}

func (j Job) channel() string {
	if j.SMS != nil {
		return ChannelSMS
	}
	return ChannelEmail
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "kind", job.Kind)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher delivers notifications on a bounded worker pool. A full queue drops the job.
type Dispatcher struct {
	mailer  Mailer
	sms     SMSSender
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewDispatcher(cfg DispatcherConfig, mailer Mailer, sms SMSSender, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	d := &Dispatcher{
		mailer:     mailer,
		sms:        sms,
		metrics:    m,
		logger:     logger,
		timeout:    timeout,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.pending.Done()
					return
				}
			case <-d.ctx.Done():
				d.pending.Done()
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

// Enqueue never blocks; it reports false when the job was dropped.
func (d *Dispatcher) Enqueue(job Job) bool {
	select {
	case <-d.ctx.Done():
		d.metrics.IncNotificationDropped(job.channel())
		return false
	default:
	}

	d.pending.Add(1)
	select {
	case d.jobQueue <- job:
		return true
	default:
		d.pending.Done()
		d.metrics.IncNotificationDropped(job.channel())
		d.logger.Warn("notification queue full, dropping job",
			"kind", job.Kind,
			"queue_capacity", cap(d.jobQueue))
		return false
	}
}

func (d *Dispatcher) process(job Job) {
	defer d.pending.Done()

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	var err error
	switch {
	case job.SMS != nil:
		err = d.sms.SendSMS(ctx, *job.SMS)
	case job.Email != nil:
		err = d.mailer.Send(ctx, *job.Email)
	default:
		return
	}

	d.metrics.IncNotification(job.channel(), err)
	if err != nil {
		d.logger.Error("notification delivery failed",
			"kind", job.Kind,
			"channel", job.channel(),
			"error", err)
		return
	}
	d.logger.Debug("notification delivered", "kind", job.Kind, "channel", job.channel())
}

// Drain waits until every accepted job has been processed.
func (d *Dispatcher) Drain() {
	d.pending.Wait()
}

func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down notification dispatcher")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("notification dispatcher shutdown complete")
	})
}
