package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/summarizer"
)

// ErrQueueFull is returned by Submit when the job queue has no room.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("job queue stopped")

// Processor runs one upload through the pipeline.
type Processor interface {
	Process(ctx context.Context, up Upload, params summarizer.Params, obs Observer) (*Outcome, error)
}

// QueueGauge observes the job backlog.
type QueueGauge interface {
	SetQueueDepth(n int)
}

// Orchestrator runs queued jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs       *JobStore
	queue      chan *Job
	proc       Processor
	log        *slog.Logger
	cfg        config.Config
	onComplete func(job *Job, out *Outcome)
	gauge      QueueGauge

	mu      sync.Mutex
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the job queue. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, proc Processor, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		proc:  proc,
		log:   log,
		cfg:   cfg,
	}
}

// OnComplete sets a hook run after each successful job. It must be set
// before Start.
func (o *Orchestrator) OnComplete(fn func(job *Job, out *Outcome)) {
	o.onComplete = fn
}

// SetQueueGauge attaches a backlog gauge. It must be set before Start.
func (o *Orchestrator) SetQueueGauge(g QueueGauge) {
	o.gauge = g
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.proc, o.log, o.onComplete)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.reportDepth()
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Info("expired jobs removed", "count", n)
				}
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Queued jobs that no worker
// picked up are dropped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing. A rejected job is not stored
// and its upload bytes are released.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.TakeUpload()
		return ErrStopped
	}

	select {
	case o.queue <- job:
		o.jobs.Put(job)
		o.reportDepth()
		return nil
	default:
		job.TakeUpload()
		job.Fail(errhandler.MessageFor(errhandler.System("submit_job", "job queue is full")))
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Jobs returns the job store so other cleanup owners can sweep it.
func (o *Orchestrator) Jobs() *JobStore {
	return o.jobs
}

// JobCount returns the number of jobs held in the store.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}

func (o *Orchestrator) reportDepth() {
	if o.gauge != nil {
		o.gauge.SetQueueDepth(len(o.queue))
	}
}
