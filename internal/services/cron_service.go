package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	reconcileJob = "reconcile-journeys"
	archiveJob   = "archive-journeys"

	sweepLockTTL     = 10 * time.Minute
	sweepJobTimeout  = 9 * time.Minute
	sweepLockKeyBase = "journey:sweep:"
)

// JourneySweeper is the part of the journey facade driven by the scheduler
type JourneySweeper interface {
	ReconcileAll(ctx context.Context) (*SweepResult, error)
	ArchiveEnded(ctx context.Context, now time.Time) (*SweepResult, error)
}

// SweepLock keeps two replicas from running the same sweep at once
type SweepLock interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, job string) error
}

// RedisSweepLock is a SweepLock backed by SET NX
type RedisSweepLock struct {
	client *redis.Client
	owner  string
}

// NewRedisSweepLock creates a lock whose keys are owned by this process
func NewRedisSweepLock(client *redis.Client, owner string) *RedisSweepLock {
	return &RedisSweepLock{client: client, owner: owner}
}

// Acquire takes the lock for job if nobody holds it
func (l *RedisSweepLock) Acquire(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, sweepLockKeyBase+job, l.owner, ttl).Result()
}

// Release drops the lock if this process still owns it
func (l *RedisSweepLock) Release(ctx context.Context, job string) error {
	key := sweepLockKeyBase + job
	owner, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != l.owner {
		return nil
	}
	return l.client.Del(ctx, key).Err()
}

// CronSchedules are the cron expressions (with seconds) of the sweeps
type CronSchedules struct {
	Reconcile string
	Archive   string
}

// jobRun records the last outcome of a job
type jobRun struct {
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Result    *SweepResult `json:"result,omitempty"`
	Skipped   bool         `json:"skipped,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	sweeper   JourneySweeper
	lock      SweepLock
	schedules CronSchedules
	logger    *logrus.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	lastRun map[string]*jobRun
}

// NewCronService creates a new CronService. lock may be nil when only one
// instance runs.
func NewCronService(sweeper JourneySweeper, lock SweepLock, schedules CronSchedules, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:      cron.New(cron.WithSeconds()),
		sweeper:   sweeper,
		lock:      lock,
		schedules: schedules,
		logger:    logger,
		now:       time.Now,
		entries:   make(map[string]cron.EntryID),
		lastRun:   make(map[string]*jobRun),
	}
}

// Start schedules the sweeps and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	id, err := s.cron.AddFunc(s.schedules.Reconcile, s.scheduledReconcile)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation job: %w", err)
	}
	s.entries[reconcileJob] = id
	s.logger.WithField("schedule", s.schedules.Reconcile).Info("✓ Scheduled: Reconcile journey statuses")

	id, err = s.cron.AddFunc(s.schedules.Archive, s.scheduledArchive)
	if err != nil {
		return fmt.Errorf("failed to schedule archive job: %w", err)
	}
	s.entries[archiveJob] = id
	s.logger.WithField("schedule", s.schedules.Archive).Info("✓ Scheduled: Archive ended journeys")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) scheduledReconcile() {
	s.run(reconcileJob, func(ctx context.Context) (*SweepResult, error) {
		return s.sweeper.ReconcileAll(ctx)
	})
}

func (s *CronService) scheduledArchive() {
	s.run(archiveJob, func(ctx context.Context) (*SweepResult, error) {
		return s.sweeper.ArchiveEnded(ctx, s.now().UTC())
	})
}

// run executes one sweep under the distributed lock and records the outcome
func (s *CronService) run(job string, sweep func(ctx context.Context) (*SweepResult, error)) *jobRun {
	ctx, cancel := context.WithTimeout(context.Background(), sweepJobTimeout)
	defer cancel()

	log := s.logger.WithField("job", job)
	run := &jobRun{StartedAt: s.now().UTC()}
	defer s.record(job, run)

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, job, sweepLockTTL)
		if err != nil {
			log.WithError(err).Error("[CRON ERROR] Failed to acquire sweep lock")
			run.Error = err.Error()
			return run
		}
		if !acquired {
			log.Info("[CRON] Sweep already running elsewhere, skipping")
			run.Skipped = true
			return run
		}
		defer func() {
			if err := s.lock.Release(context.Background(), job); err != nil {
				log.WithError(err).Warn("[CRON] Failed to release sweep lock")
			}
		}()
	}

	log.Info("[CRON] Starting sweep...")
	start := time.Now()
	result, err := sweep(ctx)
	run.Duration = time.Since(start).String()
	run.Result = result
	if err != nil {
		log.WithError(err).Error("[CRON ERROR] Sweep failed")
		run.Error = err.Error()
		return run
	}

	log.WithFields(logrus.Fields{
		"checked":  result.Checked,
		"updated":  result.Updated,
		"failed":   result.Failed,
		"duration": run.Duration,
	}).Info("[CRON] ✓ Sweep finished")
	return run
}

func (s *CronService) record(job string, run *jobRun) {
	s.mu.Lock()
	s.lastRun[job] = run
	s.mu.Unlock()
}

// RunReconcileNow runs the reconciliation sweep immediately
func (s *CronService) RunReconcileNow() (*SweepResult, error) {
	s.logger.Info("[MANUAL] Running journey reconciliation now...")
	return outcome(s.run(reconcileJob, func(ctx context.Context) (*SweepResult, error) {
		return s.sweeper.ReconcileAll(ctx)
	}))
}

// RunArchiveNow runs the archive sweep immediately
func (s *CronService) RunArchiveNow() (*SweepResult, error) {
	s.logger.Info("[MANUAL] Running journey archival now...")
	return outcome(s.run(archiveJob, func(ctx context.Context) (*SweepResult, error) {
		return s.sweeper.ArchiveEnded(ctx, s.now().UTC())
	}))
}

func outcome(run *jobRun) (*SweepResult, error) {
	if run.Skipped {
		return nil, errors.New("sweep is already running on another instance")
	}
	if run.Error != "" {
		return run.Result, errors.New(run.Error)
	}
	return run.Result, nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]map[string]interface{}, 0, len(s.entries))
	for _, name := range []string{reconcileJob, archiveJob} {
		id, ok := s.entries[name]
		if !ok {
			continue
		}
		entry := s.cron.Entry(id)
		jobs = append(jobs, map[string]interface{}{
			"name":     name,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
			"last_run": s.lastRun[name],
		})
	}

	return map[string]interface{}{
		"running":   len(jobs) > 0,
		"job_count": len(jobs),
		"locked":    s.lock != nil,
		"jobs":      jobs,
	}
}
