// Package scheduler runs pipeline jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ibeckermayer/tgharvest/internal/logger"
)

// PipelineJobName is the name of the scrape-and-process job.
const PipelineJobName = "pipeline"

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 2 * time.Hour

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	mu         sync.Mutex
	cron       *cron.Cron
	jobs       map[string]cron.EntryID
	timezone   *time.Location
	logger     logger.Logger
	jobTimeout time.Duration
}

// New creates a new scheduler with the given timezone. A run that is still
// going when its next tick fires is skipped rather than overlapped.
func New(timezone string, log logger.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:       c,
		jobs:       make(map[string]cron.EntryID),
		timezone:   loc,
		logger:     log,
		jobTimeout: DefaultJobTimeout,
	}, nil
}

// Location returns the scheduler's timezone.
func (s *Scheduler) Location() *time.Location {
	return s.timezone
}

// AddJob adds a job with a cron schedule, replacing any job of the same name.
// schedule format: "0 */6 * * *" (every six hours)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = entryID
	s.mu.Unlock()

	s.logger.Info("Added job", logger.String("job", name), logger.String("schedule", schedule))
	return nil
}

// AddPipelineJob schedules the scrape-and-process job.
func (s *Scheduler) AddPipelineJob(schedule string, job Job) error {
	return s.AddJob(PipelineJobName, schedule, job)
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	s.logger.Info("Starting job", logger.String("job", name))
	start := time.Now()

	if err := job(ctx); err != nil {
		s.logger.Error("Job failed", logger.String("job", name), logger.Error(err))
		return
	}
	s.logger.Info("Job completed", logger.String("job", name), logger.Duration("duration", time.Since(start)))
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("Removed job", logger.String("job", name))
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", logger.String("timezone", s.timezone.String()))
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	s.logger.Info("Running job now", logger.String("job", name))
	return job(ctx)
}

// ListJobs returns info about scheduled jobs, sorted by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(s.jobs))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
