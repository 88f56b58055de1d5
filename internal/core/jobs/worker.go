package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoJobsAvailable is returned by ProcessNext when the queue is empty.
var ErrNoJobsAvailable = errors.New("no jobs available")

// ErrJobAbandoned is recorded on jobs reclaimed from a dead worker.
var ErrJobAbandoned = errors.New("job abandoned while processing")

// reclaimGrace keeps ReclaimStale clear of jobs still finishing their timeout.
const reclaimGrace = time.Minute

// Worker polls one queue with a fixed number of goroutines.
type Worker struct {
	queue    *Queue
	config   WorkerConfig
	handlers map[string]Handler
	mu       sync.RWMutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewWorker(queue *Queue, config WorkerConfig) *Worker {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	return &Worker{
		queue:    queue,
		config:   config,
		handlers: make(map[string]Handler),
	}
}

func (w *Worker) RegisterHandler(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[h.Type()] = h
	log.Info().Str("type", h.Type()).Msg("✅ Registered job handler")
}

func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	log.Info().Str("queue", w.config.Queue).Int("workers", w.config.Concurrency).Msg("🚀 Starting job worker")
	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Stop cancels polling and waits for in-flight jobs.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	log.Info().Str("queue", w.config.Queue).Msg("✅ Job worker stopped")
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// drain whatever is ready before sleeping again
			for {
				err := w.ProcessNext(ctx)
				if errors.Is(err, ErrNoJobsAvailable) || ctx.Err() != nil {
					break
				}
				if err != nil {
					log.Warn().Err(err).Int("worker", id).Msg("⚠️ job worker error")
					break
				}
			}
		}
	}
}

// ProcessNext runs at most one job. Handler errors are recorded on the job
// and are not returned.
func (w *Worker) ProcessNext(ctx context.Context) error {
	job, err := w.queue.Dequeue(ctx, w.config.Queue)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrNoJobsAvailable
	}
	// outcomes must be stored even when shutdown cancels ctx mid-job
	record := context.WithoutCancel(ctx)

	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()
	if !ok {
		w.fail(record, job, nil, fmt.Errorf("no handler registered for job type: %s", job.Type))
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	started := time.Now()
	err = handler.Handle(jobCtx, job)
	cancel()

	if err != nil {
		log.Warn().Err(err).
			Str("job_id", job.ID.String()).
			Str("type", job.Type).
			Int("attempt", job.Attempts).
			Dur("elapsed", time.Since(started)).
			Msg("❌ job failed")
		w.fail(record, job, handler, err)
		return nil
	}

	if err := w.queue.MarkCompleted(record, job.ID, nil); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to mark job completed")
	}
	log.Info().Str("job_id", job.ID.String()).Str("type", job.Type).Dur("elapsed", time.Since(started)).Msg("✅ job completed")
	return nil
}

func (w *Worker) fail(ctx context.Context, job *Job, handler Handler, cause error) {
	final, err := w.queue.MarkFailed(ctx, job.ID, cause)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to mark job failed")
		return
	}
	if !final {
		return
	}
	if fh, ok := handler.(FailureHandler); ok {
		if err := fh.OnPermanentFailure(ctx, job, cause); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("permanent failure hook failed")
		}
	}
}

// ReclaimStale requeues jobs left in processing longer than the job timeout
// and runs the failure hook for those out of retries.
func (w *Worker) ReclaimStale(ctx context.Context) (int, error) {
	n, finals, err := w.queue.ReclaimStale(ctx, w.config.Queue, w.config.Timeout+reclaimGrace)
	if err != nil {
		return 0, err
	}
	for i := range finals {
		job := &finals[i]
		w.mu.RLock()
		handler := w.handlers[job.Type]
		w.mu.RUnlock()
		if fh, ok := handler.(FailureHandler); ok {
			if err := fh.OnPermanentFailure(ctx, job, ErrJobAbandoned); err != nil {
				log.Error().Err(err).Str("job_id", job.ID.String()).Msg("permanent failure hook failed")
			}
		}
	}
	if n > 0 {
		log.Warn().Int("reclaimed", n).Int("failed", len(finals)).Str("queue", w.config.Queue).Msg("♻️ reclaimed stale jobs")
	}
	return n, nil
}
