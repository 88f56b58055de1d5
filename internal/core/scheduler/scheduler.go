// Package scheduler runs periodic maintenance tasks on cron expressions
// with seconds resolution.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Task is one unit of periodic work. It gets a context bounded by the
// scheduler's task timeout.
type Task func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	tasks   map[string]cron.EntryID
	mu      sync.RWMutex
}

func New(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		timeout: timeout,
		tasks:   make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	log.Info().Int("tasks", len(s.Names())).Msg("⏰ Starting scheduler")
	s.cron.Start()
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	log.Info().Msg("⏰ Stopping scheduler")
	<-s.cron.Stop().Done()
}

// Add registers (or replaces) a named task.
func (s *Scheduler) Add(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tasks[name]; ok {
		s.cron.Remove(id)
		delete(s.tasks, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.tasks[name] = id
	log.Info().Str("task", name).Str("schedule", spec).Msg("scheduled task")
	return nil
}

func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tasks[name]; ok {
		s.cron.Remove(id)
		delete(s.tasks, name)
	}
}

func (s *Scheduler) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

// RunNow executes a registered task synchronously.
func (s *Scheduler) RunNow(name string, task Task) {
	s.run(name, task)
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", name).Interface("panic", r).Msg("scheduled task panicked")
		}
	}()

	started := time.Now()
	if err := task(ctx); err != nil {
		log.Error().Err(err).Str("task", name).Msg("scheduled task failed")
		return
	}
	log.Debug().Str("task", name).Dur("elapsed", time.Since(started)).Msg("scheduled task done")
}
