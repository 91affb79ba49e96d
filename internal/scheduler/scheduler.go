package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"FinanceETL/internal/notifier"
	"FinanceETL/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one pipeline run with the configured parameters.
type RunFunc func(ctx context.Context) *pipeline.Result

// Notifier delivers run reports.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler triggers pipeline runs on a cron schedule and retries failed runs.
type Scheduler struct {
	Cron       *cron.Cron
	Run        RunFunc
	Notifier   Notifier
	Retries    int
	RetryDelay time.Duration
	Ctx        context.Context

	mu   sync.Mutex
	last *pipeline.Result
}

// NewScheduler creates a new Scheduler. notifier may be nil.
func NewScheduler(ctx context.Context, run RunFunc, n Notifier, retries int, retryDelay time.Duration) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Run:        run,
		Notifier:   n,
		Retries:    retries,
		RetryDelay: retryDelay,
		Ctx:        ctx,
	}
}

// Register schedules the pipeline on spec (six fields, seconds first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register pipeline task: %w", err)
	}
	log.Printf("[INFO] pipeline scheduled: %s", spec)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the pipeline immediately, retrying failed runs, and
// reports the final result.
func (s *Scheduler) RunNow() *pipeline.Result {
	res := s.runWithRetry()

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if s.Notifier != nil && res != nil {
		if err := s.Notifier.SendWithRetry(s.Ctx, notifier.FormatRunReport(res), 3); err != nil {
			log.Printf("[ERROR] send run report: %v", err)
		}
	}
	return res
}

// Last returns the most recent result, or nil before the first run.
func (s *Scheduler) Last() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runWithRetry() *pipeline.Result {
	var res *pipeline.Result
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			log.Printf("[WARN] run %s failed, retry %d/%d in %v", res.RunID, attempt, s.Retries, s.RetryDelay)
			select {
			case <-s.Ctx.Done():
				log.Printf("[WARN] retry cancelled: %v", s.Ctx.Err())
				return res
			case <-time.After(s.RetryDelay):
			}
		}
		res = s.Run(s.Ctx)
		if res == nil || res.Status != pipeline.StatusFailed {
			return res
		}
	}
	if res != nil {
		log.Printf("[ERROR] run %s failed after %d attempts: %v", res.RunID, s.Retries+1, res.Err())
	}
	return res
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run":
		go s.RunNow()
		return "Pipeline run started."
	case "/status":
		if last := s.Last(); last != nil {
			return notifier.FormatRunReport(last)
		}
		return "No run has completed yet."
	default:
		return "Available commands:\n• /run\n• /status"
	}
}
