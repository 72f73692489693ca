package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/helios/pkg/logger"
)

// Job is a unit of scheduled work
// ⭐ SSOT: the scheduled-job contract is defined here and only here
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule is a six-field cron expression (with seconds), e.g.
	// "0 35 9 * * 1-5" for weekday mornings at 09:35
	Schedule() string
}

// Result records one job execution
type Result struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit bounds per-job result retention
const historyLimit = 100

// Scheduler runs registered jobs on their cron schedules with retry
// and bounded execution history
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]Job
	history map[string][]Result

	maxRetries int
	retryDelay time.Duration
}

// New creates a scheduler. Jobs retry up to three times, a minute
// apart, before a run counts as failed.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		history:    make(map[string][]Result),
		maxRetries: 3,
		retryDelay: time.Minute,
	}
}

// Register schedules a job. Duplicate names are rejected.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() {
		s.execute(context.Background(), job)
	}); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job registered")
	return nil
}

// Start begins cron dispatch
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started")
	s.cron.Start()
}

// Stop halts dispatch and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// TriggerNow runs a registered job immediately, outside its schedule
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}

	s.execute(ctx, job)
	return nil
}

// execute runs one job with retries and records the result
func (s *Scheduler) execute(ctx context.Context, job Job) {
	name := job.Name()
	start := time.Now()

	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	attempts := 0
	success := false

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		if lastErr = job.Run(ctx); lastErr == nil {
			success = true
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempts,
			"error":   lastErr.Error(),
		}).Warn("Job attempt failed")

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = s.maxRetries // stop retrying
			case <-time.After(s.retryDelay):
			}
		}
	}

	result := Result{
		JobName:   name,
		StartTime: start,
		Duration:  time.Since(start),
		Attempts:  attempts,
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	s.history[name] = append(s.history[name], result)
	if len(s.history[name]) > historyLimit {
		s.history[name] = s.history[name][len(s.history[name])-historyLimit:]
	}
	s.mu.Unlock()

	if success {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
		}).Info("Job completed")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after retries")
	}
}

// History returns the recorded results for a job, newest last
func (s *Scheduler) History(name string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.jobs[name]; !exists {
		return nil, fmt.Errorf("job %s not registered", name)
	}
	return append([]Result(nil), s.history[name]...), nil
}

// Stats summarizes execution history per job
type Stats struct {
	JobName     string     `json:"job_name"`
	Schedule    string     `json:"schedule"`
	TotalRuns   int        `json:"total_runs"`
	Failures    int        `json:"failures"`
	SuccessRate float64    `json:"success_rate"`
	LastRun     *time.Time `json:"last_run,omitempty"`
}

// JobStats returns per-job summaries for the status surfaces
func (s *Scheduler) JobStats() map[string]Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Stats, len(s.jobs))
	for name, job := range s.jobs {
		results := s.history[name]

		stat := Stats{
			JobName:   name,
			Schedule:  job.Schedule(),
			TotalRuns: len(results),
		}
		for _, r := range results {
			if !r.Success {
				stat.Failures++
			}
		}
		if len(results) > 0 {
			stat.SuccessRate = float64(len(results)-stat.Failures) / float64(len(results))
			last := results[len(results)-1].StartTime
			stat.LastRun = &last
		}

		out[name] = stat
	}
	return out
}
