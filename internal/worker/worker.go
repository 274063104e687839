package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job is a unit of periodic background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often jobs run
	PollInterval time.Duration

	// RunOnStart runs every job once before the first tick
	RunOnStart bool
}

// Worker runs jobs on a fixed interval. A job still running when its next
// tick arrives is skipped for that tick.
type Worker struct {
	config Config
	jobs   []Job
	logger zerolog.Logger

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// NewWorker creates a new background worker
func NewWorker(config Config, logger zerolog.Logger, jobs ...Job) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Hour
	}

	return &Worker{
		config:  config,
		jobs:    jobs,
		logger:  logger.With().Str("worker_id", config.WorkerID).Logger(),
		running: make(map[string]bool),
	}
}

// Start runs jobs until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("jobs", len(w.jobs)).
		Msg("worker starting")

	ctx = w.logger.WithContext(ctx)

	if w.config.RunOnStart {
		w.dispatch(ctx)
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker shutting down")
			w.wg.Wait()
			return ctx.Err()

		case <-ticker.C:
			w.dispatch(ctx)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context) {
	for _, job := range w.jobs {
		if !w.claim(job.Name()) {
			w.logger.Debug().Str("job", job.Name()).Msg("job still running, skipping tick")
			continue
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer w.release(job.Name())
			w.process(ctx, job)
		}()
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Str("job", job.Name()).Interface("panic", r).Msg("job panicked")
		}
	}()

	if err := job.Run(ctx); err != nil {
		w.logger.Error().Err(err).Str("job", job.Name()).Msg("job failed")
		return
	}
	w.logger.Debug().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("job completed")
}

func (w *Worker) claim(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running[name] {
		return false
	}
	w.running[name] = true
	return true
}

func (w *Worker) release(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.running, name)
}
