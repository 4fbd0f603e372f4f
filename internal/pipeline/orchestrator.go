package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var ErrQueueFull = eris.New("job queue is full")

type OrchestratorConfig struct {
	Workers  int
	MaxQueue int
	JobTTL   time.Duration
}

// Orchestrator runs conversion jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	conv  *Converter
	store ResultStore
	log   *zap.Logger
	cfg   OrchestratorConfig

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start before submitting.
func NewOrchestrator(cfg OrchestratorConfig, conv *Converter, st ResultStore, log *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueue),
		conv:  conv,
		store: st,
		log:   log.Named("orchestrator"),
		cfg:   cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.Workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.conv, o.store, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

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
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit.
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

// Submit queues a job. A full queue fails the job immediately.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return eris.New("orchestrator stopped")
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Debug("job queued", zap.String("job_id", job.ID), zap.String("filename", job.Filename))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return eris.Wrapf(ErrQueueFull, "capacity %d", o.cfg.MaxQueue)
	}
}

func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) Workers() int {
	return o.cfg.Workers
}
